package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/domain"
)

// OptionType tags the two kinds of redeemable options.
type OptionType string

const (
	OptionDiscount OptionType = "discount"
	OptionGift     OptionType = "gift"
)

// Valid reports whether t is a known option type.
func (t OptionType) Valid() bool {
	return t == OptionDiscount || t == OptionGift
}

// Window is a half-open validity interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

func (w Window) validate() error {
	if !w.End.After(w.Start) {
		return domain.NewValidationError("end time must be after start time")
	}
	return nil
}

// Quantity is the stock of an option. A nil Total means unlimited supply.
type Quantity struct {
	Total     *int
	Remaining *int
}

// NewQuantity returns a quantity whose remaining mirrors total.
func NewQuantity(total *int) (Quantity, error) {
	if total == nil {
		return Quantity{}, nil
	}
	if *total < 0 {
		return Quantity{}, domain.NewValidationError("total quantity must not be negative")
	}
	t, r := *total, *total
	return Quantity{Total: &t, Remaining: &r}, nil
}

// Unlimited reports whether the option has no stock limit.
func (q Quantity) Unlimited() bool { return q.Total == nil }

// DiscountOption is a discounted line on a menu item, either standalone or
// part of an event.
type DiscountOption struct {
	ID           uuid.UUID
	StoreID      uuid.UUID
	MenuID       uuid.UUID
	EventID      *uuid.UUID
	DiscountRate int
	FinalPrice   int64
	Quantity     Quantity
	IsActive     bool
	Validity     Window
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewDiscountOption validates and creates an active discount option.
func NewDiscountOption(storeID, menuID uuid.UUID, eventID *uuid.UUID, rate int, finalPrice int64, total *int, validity Window, now time.Time) (*DiscountOption, error) {
	if rate < 0 || rate > 100 {
		return nil, domain.NewValidationError("discount rate must be between 0 and 100")
	}
	if finalPrice < 0 {
		return nil, domain.NewValidationError("final price must not be negative")
	}
	if err := validity.validate(); err != nil {
		return nil, err
	}
	qty, err := NewQuantity(total)
	if err != nil {
		return nil, err
	}
	return &DiscountOption{
		ID:           uuid.New(),
		StoreID:      storeID,
		MenuID:       menuID,
		EventID:      eventID,
		DiscountRate: rate,
		FinalPrice:   finalPrice,
		Quantity:     qty,
		IsActive:     true,
		Validity:     validity,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// GiftGroup is a mutually exclusive set of gift options within an event.
type GiftGroup struct {
	ID      uuid.UUID
	EventID uuid.UUID
	Name    string
	Options []*GiftOption
}

// NewGiftGroup creates an empty gift group.
func NewGiftGroup(eventID uuid.UUID, name string) (*GiftGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("gift group name is required")
	}
	return &GiftGroup{ID: uuid.New(), EventID: eventID, Name: name}, nil
}

// GiftOption is a free add-on selectable from a gift group.
type GiftOption struct {
	ID          uuid.UUID
	GiftGroupID uuid.UUID
	EventID     uuid.UUID
	StoreID     uuid.UUID
	MenuID      uuid.UUID
	Quantity    Quantity
	IsActive    bool
	Validity    Window
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AddOption appends a new active gift option to the group.
func (g *GiftGroup) AddOption(storeID, menuID uuid.UUID, total *int, validity Window, now time.Time) (*GiftOption, error) {
	if err := validity.validate(); err != nil {
		return nil, err
	}
	qty, err := NewQuantity(total)
	if err != nil {
		return nil, err
	}
	opt := &GiftOption{
		ID:          uuid.New(),
		GiftGroupID: g.ID,
		EventID:     g.EventID,
		StoreID:     storeID,
		MenuID:      menuID,
		Quantity:    qty,
		IsActive:    true,
		Validity:    validity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	g.Options = append(g.Options, opt)
	return opt, nil
}
