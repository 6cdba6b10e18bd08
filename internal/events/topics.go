package events

import "github.com/google/uuid"

// Kafka topics.
const (
	TopicCouponEvents  = "coupon.events"
	TopicCatalogEvents = "catalog.events"
)

// Catalog event types consumed from TopicCatalogEvents.
const (
	CatalogEventDeactivated    = "catalog.event.deactivated"
	CatalogDiscountDeactivated = "catalog.discount.deactivated"
)

// EventDeactivatedData is the payload of CatalogEventDeactivated.
type EventDeactivatedData struct {
	EventID uuid.UUID `json:"eventId"`
}

// DiscountDeactivatedData is the payload of CatalogDiscountDeactivated.
type DiscountDeactivatedData struct {
	DiscountID uuid.UUID `json:"discountId"`
}

// CouponEventData is the payload of every coupon lifecycle event.
type CouponEventData struct {
	CouponID  uuid.UUID  `json:"couponId"`
	UserID    uuid.UUID  `json:"userId"`
	StoreID   uuid.UUID  `json:"storeId"`
	EventID   *uuid.UUID `json:"eventId,omitempty"`
	Status    string     `json:"status"`
	ItemCount int        `json:"itemCount"`
	Version   int64      `json:"version"`
}
