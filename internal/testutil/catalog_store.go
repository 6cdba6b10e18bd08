// Package testutil provides in-memory implementations of the repositories,
// the ledger and the event publisher for unit tests.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/catalog"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/domain"
)

// CatalogStore is an in-memory catalog.Repository. Returned values are copies.
type CatalogStore struct {
	mu        sync.Mutex
	stores    map[uuid.UUID]catalog.Store
	menus     map[uuid.UUID]catalog.MenuItem
	events    map[uuid.UUID]catalog.Event
	groups    map[uuid.UUID]catalog.GiftGroup
	discounts map[uuid.UUID]*catalog.DiscountOption
	gifts     map[uuid.UUID]*catalog.GiftOption
}

// NewCatalogStore creates an empty store.
func NewCatalogStore() *CatalogStore {
	return &CatalogStore{
		stores:    make(map[uuid.UUID]catalog.Store),
		menus:     make(map[uuid.UUID]catalog.MenuItem),
		events:    make(map[uuid.UUID]catalog.Event),
		groups:    make(map[uuid.UUID]catalog.GiftGroup),
		discounts: make(map[uuid.UUID]*catalog.DiscountOption),
		gifts:     make(map[uuid.UUID]*catalog.GiftOption),
	}
}

func cloneQuantity(q catalog.Quantity) catalog.Quantity {
	var out catalog.Quantity
	if q.Total != nil {
		t := *q.Total
		out.Total = &t
	}
	if q.Remaining != nil {
		r := *q.Remaining
		out.Remaining = &r
	}
	return out
}

func cloneDiscount(o *catalog.DiscountOption) *catalog.DiscountOption {
	c := *o
	c.Quantity = cloneQuantity(o.Quantity)
	if o.EventID != nil {
		id := *o.EventID
		c.EventID = &id
	}
	return &c
}

func cloneGift(o *catalog.GiftOption) *catalog.GiftOption {
	c := *o
	c.Quantity = cloneQuantity(o.Quantity)
	return &c
}

func (s *CatalogStore) SaveStore(_ context.Context, st *catalog.Store) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stores[st.ID] = *st
	return nil
}

func (s *CatalogStore) FindStoreByID(_ context.Context, id uuid.UUID) (*catalog.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stores[id]
	if !ok {
		return nil, domain.NewNotFoundError("store", id.String())
	}
	return &st, nil
}

func (s *CatalogStore) SaveMenuItem(_ context.Context, m *catalog.MenuItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.menus[m.ID] = *m
	return nil
}

func (s *CatalogStore) FindMenuItemByID(_ context.Context, id uuid.UUID) (*catalog.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.menus[id]
	if !ok {
		return nil, domain.NewNotFoundError("menu item", id.String())
	}
	return &m, nil
}

func (s *CatalogStore) SaveEvent(_ context.Context, e *catalog.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	head := *e
	head.Discounts, head.GiftGroups = nil, nil
	s.events[e.ID] = head
	for _, d := range e.Discounts {
		s.discounts[d.ID] = cloneDiscount(d)
	}
	for _, g := range e.GiftGroups {
		group := *g
		group.Options = nil
		s.groups[g.ID] = group
		for _, o := range g.Options {
			s.gifts[o.ID] = cloneGift(o)
		}
	}
	return nil
}

func (s *CatalogStore) FindEventByID(_ context.Context, id uuid.UUID) (*catalog.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	head, ok := s.events[id]
	if !ok {
		return nil, domain.NewNotFoundError("event", id.String())
	}
	e := head
	for _, d := range s.discounts {
		if d.EventID != nil && *d.EventID == id {
			e.Discounts = append(e.Discounts, cloneDiscount(d))
		}
	}
	for _, g := range s.groups {
		if g.EventID != id {
			continue
		}
		group := g
		for _, o := range s.gifts {
			if o.GiftGroupID == g.ID {
				group.Options = append(group.Options, cloneGift(o))
			}
		}
		e.GiftGroups = append(e.GiftGroups, &group)
	}
	return &e, nil
}

func (s *CatalogStore) ListEventsByStore(_ context.Context, storeID uuid.UUID) ([]*catalog.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*catalog.Event
	for _, e := range s.events {
		if e.StoreID == storeID {
			e := e
			out = append(out, &e)
		}
	}
	return out, nil
}

func (s *CatalogStore) DeactivateEvent(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return domain.NewNotFoundError("event", id.String())
	}
	now := time.Now().UTC()
	e.IsActive = false
	e.UpdatedAt = now
	s.events[id] = e
	for _, d := range s.discounts {
		if d.EventID != nil && *d.EventID == id {
			d.IsActive = false
			d.UpdatedAt = now
		}
	}
	for _, o := range s.gifts {
		if o.EventID == id {
			o.IsActive = false
			o.UpdatedAt = now
		}
	}
	return nil
}

func (s *CatalogStore) SaveDiscountOption(_ context.Context, o *catalog.DiscountOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discounts[o.ID] = cloneDiscount(o)
	return nil
}

func (s *CatalogStore) FindDiscountOptionByID(_ context.Context, id uuid.UUID) (*catalog.DiscountOption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.discounts[id]
	if !ok {
		return nil, domain.Newf(domain.CodeOptionNotFound, "discount option %s not found", id)
	}
	return cloneDiscount(o), nil
}

func (s *CatalogStore) FindDiscountOptions(_ context.Context, ids []uuid.UUID) ([]*catalog.DiscountOption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*catalog.DiscountOption
	for _, id := range ids {
		if o, ok := s.discounts[id]; ok {
			out = append(out, cloneDiscount(o))
		}
	}
	return out, nil
}

func (s *CatalogStore) FindGiftOptions(_ context.Context, ids []uuid.UUID) ([]*catalog.GiftOption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*catalog.GiftOption
	for _, id := range ids {
		if o, ok := s.gifts[id]; ok {
			out = append(out, cloneGift(o))
		}
	}
	return out, nil
}

func (s *CatalogStore) DeactivateDiscountOption(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.discounts[id]
	if !ok {
		return domain.Newf(domain.CodeOptionNotFound, "discount option %s not found", id)
	}
	o.IsActive = false
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// Remaining returns the remaining quantity of an option, nil when unlimited
// or unknown.
func (s *CatalogStore) Remaining(t catalog.OptionType, id uuid.UUID) *int {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quantityLocked(t, id)
	if !ok || q.Remaining == nil {
		return nil
	}
	r := *q.Remaining
	return &r
}

// quantityLocked returns the live quantity of an option. s.mu must be held.
func (s *CatalogStore) quantityLocked(t catalog.OptionType, id uuid.UUID) (*catalog.Quantity, bool) {
	switch t {
	case catalog.OptionDiscount:
		if o, ok := s.discounts[id]; ok {
			return &o.Quantity, true
		}
	case catalog.OptionGift:
		if o, ok := s.gifts[id]; ok {
			return &o.Quantity, true
		}
	}
	return nil, false
}

// stockLocked returns the reservable state of an option. s.mu must be held.
func (s *CatalogStore) stockLocked(t catalog.OptionType, id uuid.UUID) (active bool, validity catalog.Window, q *catalog.Quantity, ok bool) {
	switch t {
	case catalog.OptionDiscount:
		if o, found := s.discounts[id]; found {
			return o.IsActive, o.Validity, &o.Quantity, true
		}
	case catalog.OptionGift:
		if o, found := s.gifts[id]; found {
			return o.IsActive, o.Validity, &o.Quantity, true
		}
	}
	return false, catalog.Window{}, nil, false
}
