package application

import (
	"context"

	"github.com/google/uuid"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/coupon"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/auth"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/domain"
)

// Transactor runs fn in a transaction carried by the context.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher announces coupon lifecycle changes. Publishing is best
// effort; failures are logged and never undo a committed transition.
type EventPublisher interface {
	PublishCouponEvent(ctx context.Context, eventType string, c *coupon.Coupon) error
}

// Actor is the verified identity performing a call.
type Actor struct {
	UserID uuid.UUID
	Role   auth.Role
}

// IsAdmin reports whether the actor has the admin role.
func (a Actor) IsAdmin() bool { return a.Role == auth.RoleAdmin }

// resultLabel is the metrics label for an operation outcome.
func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return string(domain.CodeOf(err))
}
