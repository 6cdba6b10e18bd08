package testutil

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/inventory"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/clock"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/domain"
)

// Ledger is an in-memory inventory.Ledger over a CatalogStore. Every
// operation holds the store lock, so each is linearizable.
type Ledger struct {
	mu           sync.Mutex
	catalog      *CatalogStore
	clock        clock.Clock
	reservations map[uuid.UUID]*inventory.Reservation
}

// NewLedger creates a ledger reading and writing stock in store.
func NewLedger(store *CatalogStore, clk clock.Clock) *Ledger {
	return &Ledger{
		catalog:      store,
		clock:        clk,
		reservations: make(map[uuid.UUID]*inventory.Reservation),
	}
}

func (l *Ledger) Reserve(ctx context.Context, ref inventory.OptionRef) (*inventory.Reservation, error) {
	out, err := l.ReserveBatch(ctx, []inventory.OptionRef{ref})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// ReserveBatch checks and applies every ref under one lock, undoing the
// applied ones when a later ref fails.
func (l *Ledger) ReserveBatch(_ context.Context, refs []inventory.OptionRef) ([]*inventory.Reservation, error) {
	if err := inventory.ValidateRefs(refs); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.catalog.mu.Lock()
	defer l.catalog.mu.Unlock()

	now := l.clock.Now()
	out := make([]*inventory.Reservation, 0, len(refs))
	undo := func() {
		for _, r := range out {
			_, _, q, _ := l.catalog.stockLocked(r.OptionType, r.OptionID)
			if q.Remaining != nil {
				*q.Remaining += r.Quantity
			}
		}
	}

	for _, ref := range refs {
		active, validity, q, ok := l.catalog.stockLocked(ref.Type, ref.ID)
		if !ok {
			undo()
			return nil, &inventory.ReservationError{
				Ref: ref,
				Err: domain.Newf(domain.CodeOptionNotFound, "%s option %s not found", ref.Type, ref.ID),
			}
		}
		stock := inventory.Stock{IsActive: active, Validity: validity, Remaining: q.Remaining}
		if err := inventory.CheckReservable(stock, ref.Quantity, now); err != nil {
			undo()
			return nil, &inventory.ReservationError{Ref: ref, Err: err}
		}
		if q.Remaining != nil {
			*q.Remaining -= ref.Quantity
		}
		out = append(out, &inventory.Reservation{
			ID:         uuid.New(),
			OptionType: ref.Type,
			OptionID:   ref.ID,
			Quantity:   ref.Quantity,
			ReservedAt: now,
		})
	}

	for _, r := range out {
		stored := *r
		l.reservations[r.ID] = &stored
	}
	return out, nil
}

func (l *Ledger) Release(_ context.Context, reservationID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.reservations[reservationID]
	if !ok || r.ReleasedAt != nil {
		return nil
	}
	now := l.clock.Now()
	r.ReleasedAt = &now

	l.catalog.mu.Lock()
	defer l.catalog.mu.Unlock()
	if q, ok := l.catalog.quantityLocked(r.OptionType, r.OptionID); ok && q.Total != nil {
		*q.Remaining = min(*q.Remaining+r.Quantity, *q.Total)
	}
	return nil
}

// Reservation returns a copy of a recorded reservation.
func (l *Ledger) Reservation(id uuid.UUID) (inventory.Reservation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.reservations[id]
	if !ok {
		return inventory.Reservation{}, false
	}
	return *r, true
}

// Outstanding counts reservations that have not been released.
func (l *Ledger) Outstanding() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, r := range l.reservations {
		if r.ReleasedAt == nil {
			n++
		}
	}
	return n
}
