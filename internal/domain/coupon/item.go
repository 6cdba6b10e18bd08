package coupon

import (
	"github.com/google/uuid"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/catalog"
)

// Terms is the snapshot of an option taken at issuance. It is either
// DiscountTerms or GiftTerms.
type Terms interface {
	Kind() catalog.OptionType
	TargetID() uuid.UUID
	isTerms()
}

// DiscountTerms freezes the rate and price of a discount option.
type DiscountTerms struct {
	OptionID     uuid.UUID
	MenuID       uuid.UUID
	DiscountRate int
	FinalPrice   int64
}

func (DiscountTerms) Kind() catalog.OptionType { return catalog.OptionDiscount }
func (t DiscountTerms) TargetID() uuid.UUID    { return t.OptionID }
func (DiscountTerms) isTerms()                 {}

// GiftTerms records the selected gift option and its group.
type GiftTerms struct {
	OptionID    uuid.UUID
	GiftGroupID uuid.UUID
	MenuID      uuid.UUID
}

func (GiftTerms) Kind() catalog.OptionType { return catalog.OptionGift }
func (t GiftTerms) TargetID() uuid.UUID    { return t.OptionID }
func (GiftTerms) isTerms()                 {}

// Item is one reserved unit within a coupon.
type Item struct {
	ID            uuid.UUID
	ReservationID uuid.UUID
	Quantity      int
	Terms         Terms
}

// NewItem creates an item for a reservation.
func NewItem(reservationID uuid.UUID, quantity int, terms Terms) Item {
	return Item{
		ID:            uuid.New(),
		ReservationID: reservationID,
		Quantity:      quantity,
		Terms:         terms,
	}
}
