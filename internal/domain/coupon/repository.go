package coupon

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the persistence contract for Coupon aggregates.
type Repository interface {
	// Save persists a new coupon together with its items.
	Save(ctx context.Context, c *Coupon) error

	// Update persists a state change with optimistic locking. The caller
	// increments the version first; a lost race returns CONFLICT.
	Update(ctx context.Context, c *Coupon) error

	// FindByID returns COUPON_NOT_FOUND when absent.
	FindByID(ctx context.Context, id uuid.UUID) (*Coupon, error)

	// ListByUser returns a user's coupons, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Coupon, error)

	// ListAll retrieves all coupons with pagination (admin).
	ListAll(ctx context.Context, page, limit int) ([]*Coupon, int64, error)

	// CountByStatus returns the number of coupons per status (admin).
	CountByStatus(ctx context.Context) (map[string]int64, error)
}
