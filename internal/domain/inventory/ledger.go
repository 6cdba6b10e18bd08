// Package inventory defines the ledger that owns the remaining quantity of
// every redeemable option.
package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/catalog"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/domain"
)

// OptionRef names a quantity of one option to reserve.
type OptionRef struct {
	Type     catalog.OptionType
	ID       uuid.UUID
	Quantity int
}

func (r OptionRef) String() string {
	return fmt.Sprintf("%s:%s", r.Type, r.ID)
}

// Reservation is a claim on units of an option. It is released at most once.
type Reservation struct {
	ID         uuid.UUID
	OptionType catalog.OptionType
	OptionID   uuid.UUID
	Quantity   int
	ReservedAt time.Time
	ReleasedAt *time.Time
}

// Ledger is the single writer of remaining quantities.
type Ledger interface {
	// Reserve atomically takes ref.Quantity units. Failures carry
	// OPTION_NOT_FOUND, OPTION_INACTIVE, OPTION_EXPIRED or STOCK_SHORTAGE.
	Reserve(ctx context.Context, ref OptionRef) (*Reservation, error)

	// ReserveBatch reserves every ref or none of them. Reservations are
	// returned in the order of refs.
	ReserveBatch(ctx context.Context, refs []OptionRef) ([]*Reservation, error)

	// Release returns the reserved units, clamped to the option's total.
	// Releasing an already released reservation is a no-op.
	Release(ctx context.Context, reservationID uuid.UUID) error
}

// ReservationError identifies which ref of a reservation failed.
type ReservationError struct {
	Ref OptionRef
	Err error
}

func (e *ReservationError) Error() string {
	return fmt.Sprintf("reserve %s: %v", e.Ref, e.Err)
}

func (e *ReservationError) Unwrap() error { return e.Err }

// Stock is the reservable state of an option at one instant.
type Stock struct {
	IsActive  bool
	Validity  catalog.Window
	Remaining *int
}

// CheckReservable reports why qty units of stock cannot be reserved at now,
// or nil when they can. Inactive wins over expired, expired over shortage.
func CheckReservable(s Stock, qty int, now time.Time) error {
	if !s.IsActive {
		return domain.New(domain.CodeOptionInactive, "option is no longer active")
	}
	if !s.Validity.Contains(now) {
		return domain.New(domain.CodeOptionExpired, "option is outside its validity window")
	}
	if s.Remaining != nil && *s.Remaining < qty {
		return domain.New(domain.CodeStockShortage, "not enough stock left")
	}
	return nil
}

// ValidateRefs rejects empty batches, non-positive quantities and unknown
// option types.
func ValidateRefs(refs []OptionRef) error {
	if len(refs) == 0 {
		return domain.New(domain.CodeItemsRequired, "at least one option is required")
	}
	for _, r := range refs {
		if !r.Type.Valid() {
			return domain.Newf(domain.CodeInvalidItemType, "unknown option type %q", r.Type)
		}
		if r.Quantity < 1 {
			return domain.NewValidationError("quantity must be positive")
		}
	}
	return nil
}
