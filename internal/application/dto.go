package application

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/catalog"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/coupon"
)

// --- Coupon DTOs ---

// IssueItemRequest selects one option for a new coupon.
type IssueItemRequest struct {
	OptionType string    `json:"optionType"`
	OptionID   uuid.UUID `json:"optionId"`
}

// IssueCouponRequest is the body of POST /coupons.
type IssueCouponRequest struct {
	EventID *uuid.UUID         `json:"eventId"`
	Items   []IssueItemRequest `json:"items"`
}

// IssuedCouponDTO is the response to a successful issuance.
type IssuedCouponDTO struct {
	CouponID uuid.UUID `json:"couponId"`
	Coupon   CouponDTO `json:"coupon"`
}

// CouponItemDTO is one item with its issuance-time snapshot.
type CouponItemDTO struct {
	ID            uuid.UUID  `json:"id"`
	OptionType    string     `json:"optionType"`
	OptionID      uuid.UUID  `json:"optionId"`
	MenuID        uuid.UUID  `json:"menuId"`
	ReservationID uuid.UUID  `json:"reservationId"`
	Quantity      int        `json:"quantity"`
	DiscountRate  *int       `json:"discountRate,omitempty"`
	FinalPrice    *int64     `json:"finalPrice,omitempty"`
	GiftGroupID   *uuid.UUID `json:"giftGroupId,omitempty"`
}

// CouponDTO is the API representation of a coupon.
type CouponDTO struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"userId"`
	StoreID     uuid.UUID       `json:"storeId"`
	EventID     *uuid.UUID      `json:"eventId,omitempty"`
	Status      string          `json:"status"`
	Items       []CouponItemDTO `json:"items"`
	IssuedAt    time.Time       `json:"issuedAt"`
	ExpiresAt   time.Time       `json:"expiresAt"`
	ActivatedAt *time.Time      `json:"activatedAt,omitempty"`
	RedeemedAt  *time.Time      `json:"redeemedAt,omitempty"`
	CancelledAt *time.Time      `json:"cancelledAt,omitempty"`
}

// CouponListDTO wraps a user's coupons.
type CouponListDTO struct {
	Coupons []CouponDTO `json:"coupons"`
}

// CouponStatsDTO holds coupon statistics for the admin dashboard.
type CouponStatsDTO struct {
	TotalCoupons int64            `json:"totalCoupons"`
	ByStatus     map[string]int64 `json:"byStatus"`
}

func toCouponDTO(c *coupon.Coupon) CouponDTO {
	return CouponDTO{
		ID:          c.ID(),
		UserID:      c.UserID(),
		StoreID:     c.StoreID(),
		EventID:     c.EventID(),
		Status:      string(c.Status()),
		Items:       lo.Map(c.Items(), func(it coupon.Item, _ int) CouponItemDTO { return toCouponItemDTO(it) }),
		IssuedAt:    c.IssuedAt(),
		ExpiresAt:   c.ExpiresAt(),
		ActivatedAt: c.ActivatedAt(),
		RedeemedAt:  c.RedeemedAt(),
		CancelledAt: c.CancelledAt(),
	}
}

func toCouponDTOs(coupons []*coupon.Coupon) []CouponDTO {
	return lo.Map(coupons, func(c *coupon.Coupon, _ int) CouponDTO { return toCouponDTO(c) })
}

func toCouponItemDTO(it coupon.Item) CouponItemDTO {
	dto := CouponItemDTO{
		ID:            it.ID,
		OptionType:    string(it.Terms.Kind()),
		OptionID:      it.Terms.TargetID(),
		ReservationID: it.ReservationID,
		Quantity:      it.Quantity,
	}
	switch t := it.Terms.(type) {
	case coupon.DiscountTerms:
		dto.MenuID = t.MenuID
		dto.DiscountRate = lo.ToPtr(t.DiscountRate)
		dto.FinalPrice = lo.ToPtr(t.FinalPrice)
	case coupon.GiftTerms:
		dto.MenuID = t.MenuID
		dto.GiftGroupID = lo.ToPtr(t.GiftGroupID)
	}
	return dto
}

// --- Catalog DTOs ---

// CreateStoreRequest is the body of POST /stores.
type CreateStoreRequest struct {
	Name string `json:"name" binding:"required"`
}

// StoreDTO is the API representation of a store.
type StoreDTO struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"ownerId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateMenuItemRequest is the body of POST /stores/:id/menus.
type CreateMenuItemRequest struct {
	Name       string `json:"name" binding:"required"`
	PriceCents int64  `json:"priceCents" binding:"gte=0"`
}

// MenuItemDTO is the API representation of a menu item.
type MenuItemDTO struct {
	ID         uuid.UUID `json:"id"`
	StoreID    uuid.UUID `json:"storeId"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"priceCents"`
	IsActive   bool      `json:"isActive"`
}

// CreateDiscountRequest is the body of POST /stores/:id/discounts. A nil
// TotalQuantity means unlimited.
type CreateDiscountRequest struct {
	MenuID        uuid.UUID `json:"menuId" binding:"required"`
	DiscountRate  int       `json:"discountRate" binding:"gte=0,lte=100"`
	TotalQuantity *int      `json:"totalQuantity" binding:"omitempty,gte=0"`
	StartTime     time.Time `json:"startTime" binding:"required"`
	EndTime       time.Time `json:"endTime" binding:"required"`
}

// DiscountOptionDTO is the API representation of a discount option.
type DiscountOptionDTO struct {
	ID                uuid.UUID  `json:"id"`
	StoreID           uuid.UUID  `json:"storeId"`
	MenuID            uuid.UUID  `json:"menuId"`
	EventID           *uuid.UUID `json:"eventId,omitempty"`
	DiscountRate      int        `json:"discountRate"`
	FinalPrice        int64      `json:"finalPrice"`
	TotalQuantity     *int       `json:"totalQuantity"`
	RemainingQuantity *int       `json:"remainingQuantity"`
	IsActive          bool       `json:"isActive"`
	StartTime         time.Time  `json:"startTime"`
	EndTime           time.Time  `json:"endTime"`
}

// EventDiscountRequest is a discount line created with an event.
type EventDiscountRequest struct {
	MenuID        uuid.UUID `json:"menuId" binding:"required"`
	DiscountRate  int       `json:"discountRate" binding:"gte=0,lte=100"`
	TotalQuantity *int      `json:"totalQuantity" binding:"omitempty,gte=0"`
}

// GiftOptionRequest is a gift option created with an event.
type GiftOptionRequest struct {
	MenuID        uuid.UUID `json:"menuId" binding:"required"`
	TotalQuantity *int      `json:"totalQuantity" binding:"omitempty,gte=0"`
}

// GiftGroupRequest is a gift group created with an event.
type GiftGroupRequest struct {
	Name    string              `json:"name" binding:"required"`
	Options []GiftOptionRequest `json:"options" binding:"required,min=1,dive"`
}

// CreateEventRequest is the body of POST /stores/:id/events. Dates are
// YYYY-MM-DD, happy hour bounds HH:MM, weekdays 0 (Sunday) to 6.
type CreateEventRequest struct {
	Title          string                 `json:"title" binding:"required"`
	StartDate      string                 `json:"startDate" binding:"required"`
	EndDate        string                 `json:"endDate" binding:"required"`
	Weekdays       []int                  `json:"weekdays" binding:"omitempty,dive,gte=0,lte=6"`
	HappyHourStart string                 `json:"happyHourStart"`
	HappyHourEnd   string                 `json:"happyHourEnd"`
	Discounts      []EventDiscountRequest `json:"discounts" binding:"omitempty,dive"`
	GiftGroups     []GiftGroupRequest     `json:"giftGroups" binding:"omitempty,dive"`
}

// GiftOptionDTO is the API representation of a gift option.
type GiftOptionDTO struct {
	ID                uuid.UUID `json:"id"`
	MenuID            uuid.UUID `json:"menuId"`
	TotalQuantity     *int      `json:"totalQuantity"`
	RemainingQuantity *int      `json:"remainingQuantity"`
	IsActive          bool      `json:"isActive"`
}

// GiftGroupDTO is the API representation of a gift group.
type GiftGroupDTO struct {
	ID      uuid.UUID       `json:"id"`
	Name    string          `json:"name"`
	Options []GiftOptionDTO `json:"options"`
}

// EventDTO is the API representation of an event.
type EventDTO struct {
	ID             uuid.UUID           `json:"id"`
	StoreID        uuid.UUID           `json:"storeId"`
	Title          string              `json:"title"`
	StartDate      string              `json:"startDate"`
	EndDate        string              `json:"endDate"`
	Weekdays       []int               `json:"weekdays,omitempty"`
	HappyHourStart string              `json:"happyHourStart,omitempty"`
	HappyHourEnd   string              `json:"happyHourEnd,omitempty"`
	IsActive       bool                `json:"isActive"`
	RedeemableNow  bool                `json:"redeemableNow"`
	Discounts      []DiscountOptionDTO `json:"discounts,omitempty"`
	GiftGroups     []GiftGroupDTO      `json:"giftGroups,omitempty"`
}

const dateLayout = "2006-01-02"

func toStoreDTO(s *catalog.Store) StoreDTO {
	return StoreDTO{ID: s.ID, OwnerID: s.OwnerID, Name: s.Name, CreatedAt: s.CreatedAt}
}

func toMenuItemDTO(m *catalog.MenuItem) MenuItemDTO {
	return MenuItemDTO{ID: m.ID, StoreID: m.StoreID, Name: m.Name, PriceCents: m.PriceCents, IsActive: m.IsActive}
}

func toDiscountOptionDTO(o *catalog.DiscountOption) DiscountOptionDTO {
	return DiscountOptionDTO{
		ID:                o.ID,
		StoreID:           o.StoreID,
		MenuID:            o.MenuID,
		EventID:           o.EventID,
		DiscountRate:      o.DiscountRate,
		FinalPrice:        o.FinalPrice,
		TotalQuantity:     o.Quantity.Total,
		RemainingQuantity: o.Quantity.Remaining,
		IsActive:          o.IsActive,
		StartTime:         o.Validity.Start,
		EndTime:           o.Validity.End,
	}
}

func toEventDTO(e *catalog.Event, now time.Time, loc *time.Location) EventDTO {
	dto := EventDTO{
		ID:            e.ID,
		StoreID:       e.StoreID,
		Title:         e.Title,
		StartDate:     e.StartDate.Format(dateLayout),
		EndDate:       e.EndDate.Format(dateLayout),
		Weekdays:      lo.Map(e.Weekdays.Days(), func(d time.Weekday, _ int) int { return int(d) }),
		IsActive:      e.IsActive,
		RedeemableNow: e.IsRedeemableAt(now, loc),
		Discounts:     lo.Map(e.Discounts, func(o *catalog.DiscountOption, _ int) DiscountOptionDTO { return toDiscountOptionDTO(o) }),
		GiftGroups: lo.Map(e.GiftGroups, func(g *catalog.GiftGroup, _ int) GiftGroupDTO {
			return GiftGroupDTO{
				ID:   g.ID,
				Name: g.Name,
				Options: lo.Map(g.Options, func(o *catalog.GiftOption, _ int) GiftOptionDTO {
					return GiftOptionDTO{
						ID:                o.ID,
						MenuID:            o.MenuID,
						TotalQuantity:     o.Quantity.Total,
						RemainingQuantity: o.Quantity.Remaining,
						IsActive:          o.IsActive,
					}
				}),
			}
		}),
	}
	if e.HappyHour != nil {
		dto.HappyHourStart = e.HappyHour.Start.String()
		dto.HappyHourEnd = e.HappyHour.End.String()
	}
	return dto
}
