package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for stores, menus, events and options.
type Repository interface {
	SaveStore(ctx context.Context, s *Store) error
	FindStoreByID(ctx context.Context, id uuid.UUID) (*Store, error)

	SaveMenuItem(ctx context.Context, m *MenuItem) error
	FindMenuItemByID(ctx context.Context, id uuid.UUID) (*MenuItem, error)

	// SaveEvent persists the event with its discounts, gift groups and gift
	// options.
	SaveEvent(ctx context.Context, e *Event) error
	// FindEventByID loads the event with all children.
	FindEventByID(ctx context.Context, id uuid.UUID) (*Event, error)
	ListEventsByStore(ctx context.Context, storeID uuid.UUID) ([]*Event, error)
	// DeactivateEvent clears the active flag of the event and all its options.
	DeactivateEvent(ctx context.Context, id uuid.UUID) error

	SaveDiscountOption(ctx context.Context, o *DiscountOption) error
	FindDiscountOptionByID(ctx context.Context, id uuid.UUID) (*DiscountOption, error)
	FindDiscountOptions(ctx context.Context, ids []uuid.UUID) ([]*DiscountOption, error)
	FindGiftOptions(ctx context.Context, ids []uuid.UUID) ([]*GiftOption, error)
	DeactivateDiscountOption(ctx context.Context, id uuid.UUID) error
}
