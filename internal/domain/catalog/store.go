package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/domain"
)

// Store is a shop registered by an owner.
type Store struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewStore creates a store owned by ownerID.
func NewStore(ownerID uuid.UUID, name string, now time.Time) (*Store, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("store name is required")
	}
	return &Store{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsOwnedBy reports whether userID owns the store.
func (s *Store) IsOwnedBy(userID uuid.UUID) bool {
	return s.OwnerID == userID
}

// MenuItem is a sellable item of a store.
type MenuItem struct {
	ID         uuid.UUID
	StoreID    uuid.UUID
	Name       string
	PriceCents int64
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewMenuItem creates an active menu item.
func NewMenuItem(storeID uuid.UUID, name string, priceCents int64, now time.Time) (*MenuItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("menu name is required")
	}
	if priceCents < 0 {
		return nil, domain.NewValidationError("price must not be negative")
	}
	return &MenuItem{
		ID:         uuid.New(),
		StoreID:    storeID,
		Name:       name,
		PriceCents: priceCents,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// DiscountedPrice applies rate (percent) to the menu price, rounding down.
func (m *MenuItem) DiscountedPrice(rate int) int64 {
	return m.PriceCents * int64(100-rate) / 100
}
