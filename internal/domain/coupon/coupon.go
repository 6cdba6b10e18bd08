package coupon

import (
	"time"

	"github.com/google/uuid"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/domain"
)

// Status represents the lifecycle state of a coupon.
type Status string

const (
	StatusIssued    Status = "issued"
	StatusActivated Status = "activated"
	StatusRedeemed  Status = "redeemed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusRedeemed || s == StatusCancelled
}

// Coupon is the aggregate root for an issued bundle of reserved options.
type Coupon struct {
	id          uuid.UUID
	userID      uuid.UUID
	storeID     uuid.UUID
	eventID     *uuid.UUID
	status      Status
	items       []Item
	issuedAt    time.Time
	expiresAt   time.Time
	activatedAt *time.Time
	redeemedAt  *time.Time
	cancelledAt *time.Time
	version     int64
	updatedAt   time.Time
}

// NewCoupon creates a coupon in the issued state.
func NewCoupon(userID, storeID uuid.UUID, eventID *uuid.UUID, items []Item, expiresAt, now time.Time) (*Coupon, error) {
	if len(items) == 0 {
		return nil, domain.New(domain.CodeItemsRequired, "a coupon needs at least one item")
	}
	if !expiresAt.After(now) {
		return nil, domain.New(domain.CodeCouponExpired, "coupon would already be expired")
	}
	return &Coupon{
		id:        uuid.New(),
		userID:    userID,
		storeID:   storeID,
		eventID:   eventID,
		status:    StatusIssued,
		items:     append([]Item(nil), items...),
		issuedAt:  now,
		expiresAt: expiresAt,
		version:   1,
		updatedAt: now,
	}, nil
}

// LatestBoundary returns the latest of the given instants. A coupon expires
// at the latest end boundary of its event and options.
func LatestBoundary(boundaries ...time.Time) time.Time {
	var latest time.Time
	for _, b := range boundaries {
		if b.After(latest) {
			latest = b
		}
	}
	return latest
}

// --- Getters ---

func (c *Coupon) ID() uuid.UUID           { return c.id }
func (c *Coupon) UserID() uuid.UUID       { return c.userID }
func (c *Coupon) StoreID() uuid.UUID      { return c.storeID }
func (c *Coupon) EventID() *uuid.UUID     { return c.eventID }
func (c *Coupon) Status() Status          { return c.status }
func (c *Coupon) IssuedAt() time.Time     { return c.issuedAt }
func (c *Coupon) ExpiresAt() time.Time    { return c.expiresAt }
func (c *Coupon) ActivatedAt() *time.Time { return c.activatedAt }
func (c *Coupon) RedeemedAt() *time.Time  { return c.redeemedAt }
func (c *Coupon) CancelledAt() *time.Time { return c.cancelledAt }
func (c *Coupon) Version() int64          { return c.version }
func (c *Coupon) UpdatedAt() time.Time    { return c.updatedAt }

// Items returns a copy of the coupon's items.
func (c *Coupon) Items() []Item {
	return append([]Item(nil), c.items...)
}

// ReservationIDs lists the ledger reservations held by the coupon.
func (c *Coupon) ReservationIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(c.items))
	for i, it := range c.items {
		ids[i] = it.ReservationID
	}
	return ids
}

// IsOwnedBy reports whether userID holds the coupon.
func (c *Coupon) IsOwnedBy(userID uuid.UUID) bool {
	return c.userID == userID
}

// IsExpiredAt reports whether now is at or past expiresAt.
func (c *Coupon) IsExpiredAt(now time.Time) bool {
	return !now.Before(c.expiresAt)
}

// --- State transitions ---

func (c *Coupon) terminalError() error {
	switch c.status {
	case StatusRedeemed:
		return domain.New(domain.CodeAlreadyRedeemed, "coupon has already been redeemed")
	case StatusCancelled:
		return domain.New(domain.CodeAlreadyCancelled, "coupon has been cancelled")
	}
	return nil
}

// Activate moves an issued coupon to activated and starts the redemption
// window.
func (c *Coupon) Activate(now time.Time) error {
	if err := c.terminalError(); err != nil {
		return err
	}
	if c.status == StatusActivated {
		return domain.New(domain.CodeAlreadyActivated, "coupon is already activated")
	}
	if c.IsExpiredAt(now) {
		return domain.New(domain.CodeCouponExpired, "coupon has expired")
	}
	c.status = StatusActivated
	c.activatedAt = &now
	c.updatedAt = now
	return nil
}

// Redeem moves an activated coupon to redeemed. window bounds the time since
// activation.
func (c *Coupon) Redeem(now time.Time, window time.Duration) error {
	if err := c.terminalError(); err != nil {
		return err
	}
	if c.status != StatusActivated || c.activatedAt == nil {
		return domain.New(domain.CodeNotActivated, "coupon must be activated before redemption")
	}
	if c.IsExpiredAt(now) {
		return domain.New(domain.CodeCouponExpired, "coupon has expired")
	}
	if now.Sub(*c.activatedAt) > window {
		return domain.Newf(domain.CodeRedemptionWindow, "redemption window of %s has elapsed", window)
	}
	c.status = StatusRedeemed
	c.redeemedAt = &now
	c.updatedAt = now
	return nil
}

// Cancel moves an issued or activated coupon to cancelled. The caller
// releases the reservations.
func (c *Coupon) Cancel(now time.Time) error {
	if err := c.terminalError(); err != nil {
		return err
	}
	c.status = StatusCancelled
	c.cancelledAt = &now
	c.updatedAt = now
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (c *Coupon) IncrementVersion() {
	c.version++
}

// Reconstitute rebuilds a Coupon from persisted data.
func Reconstitute(
	id, userID, storeID uuid.UUID,
	eventID *uuid.UUID,
	status Status,
	items []Item,
	issuedAt, expiresAt time.Time,
	activatedAt, redeemedAt, cancelledAt *time.Time,
	version int64,
	updatedAt time.Time,
) *Coupon {
	return &Coupon{
		id:          id,
		userID:      userID,
		storeID:     storeID,
		eventID:     eventID,
		status:      status,
		items:       items,
		issuedAt:    issuedAt,
		expiresAt:   expiresAt,
		activatedAt: activatedAt,
		redeemedAt:  redeemedAt,
		cancelledAt: cancelledAt,
		version:     version,
		updatedAt:   updatedAt,
	}
}
