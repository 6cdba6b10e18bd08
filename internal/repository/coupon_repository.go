package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/catalog"
	couponDomain "github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/coupon"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/database"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/domain"
)

// CouponModel is the GORM persistence model for the coupons table.
type CouponModel struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID         `gorm:"type:uuid;not null;index"`
	StoreID     uuid.UUID         `gorm:"type:uuid;not null;index"`
	EventID     *uuid.UUID        `gorm:"type:uuid;index"`
	Status      string            `gorm:"type:varchar(20);not null;default:'issued';index"`
	IssuedAt    time.Time         `gorm:"type:timestamptz;not null"`
	ExpiresAt   time.Time         `gorm:"type:timestamptz;not null"`
	ActivatedAt *time.Time        `gorm:"type:timestamptz"`
	RedeemedAt  *time.Time        `gorm:"type:timestamptz"`
	CancelledAt *time.Time        `gorm:"type:timestamptz"`
	Version     int64             `gorm:"not null;default:1"`
	UpdatedAt   time.Time         `gorm:"type:timestamptz;not null;default:now()"`
	Items       []CouponItemModel `gorm:"foreignKey:CouponID"`
}

func (CouponModel) TableName() string { return "coupons" }

// CouponItemModel is one row per coupon item. Exactly one of
// DiscountOptionID and GiftOptionID is set, matching OptionType.
type CouponItemModel struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CouponID         uuid.UUID  `gorm:"type:uuid;not null;index"`
	Position         int        `gorm:"not null"`
	ReservationID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex"`
	OptionType       string     `gorm:"type:varchar(20);not null"`
	DiscountOptionID *uuid.UUID `gorm:"type:uuid"`
	GiftOptionID     *uuid.UUID `gorm:"type:uuid"`
	GiftGroupID      *uuid.UUID `gorm:"type:uuid"`
	MenuID           uuid.UUID  `gorm:"type:uuid;not null"`
	DiscountRate     int        `gorm:"not null;default:0"`
	FinalPrice       int64      `gorm:"not null;default:0"`
	Quantity         int        `gorm:"not null;default:1"`
}

func (CouponItemModel) TableName() string { return "coupon_items" }

// GormCouponRepository is the GORM-based implementation of coupon.Repository.
type GormCouponRepository struct {
	db *gorm.DB
}

// NewGormCouponRepository creates a new GormCouponRepository.
func NewGormCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

// Save inserts the coupon and its items atomically.
func (r *GormCouponRepository) Save(ctx context.Context, c *couponDomain.Coupon) error {
	model := toCouponModel(c)
	if err := database.Conn(ctx, r.db).Create(model).Error; err != nil {
		return domain.Internal(err, "save coupon")
	}
	return nil
}

// Update persists the coupon's state with optimistic locking. Items are
// immutable after issuance and are not written.
func (r *GormCouponRepository) Update(ctx context.Context, c *couponDomain.Coupon) error {
	previousVersion := c.Version() - 1

	result := database.Conn(ctx, r.db).
		Model(&CouponModel{}).
		Where("id = ? AND version = ?", c.ID(), previousVersion).
		Updates(map[string]any{
			"status":       string(c.Status()),
			"activated_at": c.ActivatedAt(),
			"redeemed_at":  c.RedeemedAt(),
			"cancelled_at": c.CancelledAt(),
			"version":      c.Version(),
			"updated_at":   c.UpdatedAt(),
		})
	if result.Error != nil {
		return domain.Internal(result.Error, "update coupon")
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("coupon was modified by another transaction")
	}
	return nil
}

func (r *GormCouponRepository) FindByID(ctx context.Context, id uuid.UUID) (*couponDomain.Coupon, error) {
	var model CouponModel
	err := database.Conn(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.Newf(domain.CodeCouponNotFound, "coupon %s not found", id)
		}
		return nil, domain.Internal(err, "find coupon")
	}
	return couponToDomain(&model), nil
}

func (r *GormCouponRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*couponDomain.Coupon, error) {
	var models []CouponModel
	err := database.Conn(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Where("user_id = ?", userID).
		Order("issued_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, domain.Internal(err, "list user coupons")
	}
	return couponsToDomain(models), nil
}

// ListAll retrieves all coupons with pagination (admin).
func (r *GormCouponRepository) ListAll(ctx context.Context, page, limit int) ([]*couponDomain.Coupon, int64, error) {
	db := database.Conn(ctx, r.db)

	var total int64
	if err := db.Model(&CouponModel{}).Count(&total).Error; err != nil {
		return nil, 0, domain.Internal(err, "count coupons")
	}

	var models []CouponModel
	offset := (page - 1) * limit
	if err := db.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Order("issued_at DESC").Offset(offset).Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, domain.Internal(err, "list coupons")
	}
	return couponsToDomain(models), total, nil
}

// CountByStatus returns coupon counts grouped by status (admin).
func (r *GormCouponRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := database.Conn(ctx, r.db).Model(&CouponModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, domain.Internal(err, "count coupons by status")
	}

	counts := make(map[string]int64, len(results))
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

func couponsToDomain(models []CouponModel) []*couponDomain.Coupon {
	coupons := make([]*couponDomain.Coupon, len(models))
	for i := range models {
		coupons[i] = couponToDomain(&models[i])
	}
	return coupons
}

// couponToDomain maps a CouponModel with preloaded items to the aggregate.
func couponToDomain(m *CouponModel) *couponDomain.Coupon {
	items := make([]couponDomain.Item, len(m.Items))
	for i, it := range m.Items {
		items[i] = couponDomain.Item{
			ID:            it.ID,
			ReservationID: it.ReservationID,
			Quantity:      it.Quantity,
			Terms:         termsFromModel(&it),
		}
	}
	return couponDomain.Reconstitute(
		m.ID,
		m.UserID,
		m.StoreID,
		m.EventID,
		couponDomain.Status(m.Status),
		items,
		m.IssuedAt,
		m.ExpiresAt,
		m.ActivatedAt,
		m.RedeemedAt,
		m.CancelledAt,
		m.Version,
		m.UpdatedAt,
	)
}

func termsFromModel(m *CouponItemModel) couponDomain.Terms {
	if catalog.OptionType(m.OptionType) == catalog.OptionGift && m.GiftOptionID != nil {
		t := couponDomain.GiftTerms{OptionID: *m.GiftOptionID, MenuID: m.MenuID}
		if m.GiftGroupID != nil {
			t.GiftGroupID = *m.GiftGroupID
		}
		return t
	}
	t := couponDomain.DiscountTerms{MenuID: m.MenuID, DiscountRate: m.DiscountRate, FinalPrice: m.FinalPrice}
	if m.DiscountOptionID != nil {
		t.OptionID = *m.DiscountOptionID
	}
	return t
}

// toCouponModel maps the aggregate and its items for insertion.
func toCouponModel(c *couponDomain.Coupon) *CouponModel {
	items := c.Items()
	models := make([]CouponItemModel, len(items))
	for i, it := range items {
		m := CouponItemModel{
			ID:            it.ID,
			CouponID:      c.ID(),
			Position:      i,
			ReservationID: it.ReservationID,
			OptionType:    string(it.Terms.Kind()),
			Quantity:      it.Quantity,
		}
		switch t := it.Terms.(type) {
		case couponDomain.DiscountTerms:
			id := t.OptionID
			m.DiscountOptionID = &id
			m.MenuID = t.MenuID
			m.DiscountRate = t.DiscountRate
			m.FinalPrice = t.FinalPrice
		case couponDomain.GiftTerms:
			id, group := t.OptionID, t.GiftGroupID
			m.GiftOptionID = &id
			m.GiftGroupID = &group
			m.MenuID = t.MenuID
		}
		models[i] = m
	}
	return &CouponModel{
		ID:          c.ID(),
		UserID:      c.UserID(),
		StoreID:     c.StoreID(),
		EventID:     c.EventID(),
		Status:      string(c.Status()),
		IssuedAt:    c.IssuedAt(),
		ExpiresAt:   c.ExpiresAt(),
		ActivatedAt: c.ActivatedAt(),
		RedeemedAt:  c.RedeemedAt(),
		CancelledAt: c.CancelledAt(),
		Version:     c.Version(),
		UpdatedAt:   c.UpdatedAt(),
		Items:       models,
	}
}
