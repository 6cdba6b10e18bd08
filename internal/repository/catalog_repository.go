package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/catalog"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/database"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/domain"
)

// StoreModel is the GORM persistence model for the stores table.
type StoreModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"type:varchar(200);not null"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null;default:now()"`
}

func (StoreModel) TableName() string { return "stores" }

// MenuItemModel is the GORM persistence model for the menu_items table.
type MenuItemModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	StoreID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Name       string    `gorm:"type:varchar(200);not null"`
	PriceCents int64     `gorm:"not null"`
	IsActive   bool      `gorm:"not null;default:true"`
	CreatedAt  time.Time `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt  time.Time `gorm:"type:timestamptz;not null;default:now()"`
}

func (MenuItemModel) TableName() string { return "menu_items" }

// EventModel is the GORM persistence model for the events table.
type EventModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	StoreID        uuid.UUID `gorm:"type:uuid;not null;index"`
	Title          string    `gorm:"type:varchar(200);not null"`
	StartDate      time.Time `gorm:"type:date;not null"`
	EndDate        time.Time `gorm:"type:date;not null"`
	Weekdays       int16     `gorm:"not null;default:0"`
	HappyHourStart *int16
	HappyHourEnd   *int16
	IsActive       bool      `gorm:"not null;default:true"`
	CreatedAt      time.Time `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt      time.Time `gorm:"type:timestamptz;not null;default:now()"`
}

func (EventModel) TableName() string { return "events" }

// DiscountOptionModel is the GORM persistence model for discount_options.
// remaining_quantity is only written by the ledger.
type DiscountOptionModel struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"`
	StoreID           uuid.UUID  `gorm:"type:uuid;not null;index"`
	MenuID            uuid.UUID  `gorm:"type:uuid;not null"`
	EventID           *uuid.UUID `gorm:"type:uuid;index"`
	DiscountRate      int        `gorm:"not null;check:discount_rate BETWEEN 0 AND 100"`
	FinalPrice        int64      `gorm:"not null"`
	TotalQuantity     *int
	RemainingQuantity *int      `gorm:"check:remaining_quantity >= 0"`
	IsActive          bool      `gorm:"not null;default:true"`
	StartTime         time.Time `gorm:"type:timestamptz;not null"`
	EndTime           time.Time `gorm:"type:timestamptz;not null"`
	CreatedAt         time.Time `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt         time.Time `gorm:"type:timestamptz;not null;default:now()"`
}

func (DiscountOptionModel) TableName() string { return "discount_options" }

// GiftGroupModel is the GORM persistence model for gift_groups.
type GiftGroupModel struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	EventID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name    string    `gorm:"type:varchar(200);not null"`
}

func (GiftGroupModel) TableName() string { return "gift_groups" }

// GiftOptionModel is the GORM persistence model for gift_options.
type GiftOptionModel struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	GiftGroupID       uuid.UUID `gorm:"type:uuid;not null;index"`
	EventID           uuid.UUID `gorm:"type:uuid;not null;index"`
	StoreID           uuid.UUID `gorm:"type:uuid;not null"`
	MenuID            uuid.UUID `gorm:"type:uuid;not null"`
	TotalQuantity     *int
	RemainingQuantity *int      `gorm:"check:remaining_quantity >= 0"`
	IsActive          bool      `gorm:"not null;default:true"`
	StartTime         time.Time `gorm:"type:timestamptz;not null"`
	EndTime           time.Time `gorm:"type:timestamptz;not null"`
	CreatedAt         time.Time `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt         time.Time `gorm:"type:timestamptz;not null;default:now()"`
}

func (GiftOptionModel) TableName() string { return "gift_options" }

// CatalogModels lists the catalog tables for AutoMigrate.
func CatalogModels() []any {
	return []any{
		&StoreModel{}, &MenuItemModel{}, &EventModel{},
		&DiscountOptionModel{}, &GiftGroupModel{}, &GiftOptionModel{},
	}
}

// GormCatalogRepository is the GORM-based implementation of catalog.Repository.
type GormCatalogRepository struct {
	db *gorm.DB
}

// NewGormCatalogRepository creates a new GormCatalogRepository.
func NewGormCatalogRepository(db *gorm.DB) *GormCatalogRepository {
	return &GormCatalogRepository{db: db}
}

func (r *GormCatalogRepository) SaveStore(ctx context.Context, s *catalog.Store) error {
	m := StoreModel{ID: s.ID, OwnerID: s.OwnerID, Name: s.Name, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt}
	if err := database.Conn(ctx, r.db).Create(&m).Error; err != nil {
		return domain.Internal(err, "save store")
	}
	return nil
}

func (r *GormCatalogRepository) FindStoreByID(ctx context.Context, id uuid.UUID) (*catalog.Store, error) {
	var m StoreModel
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("store", id.String())
		}
		return nil, domain.Internal(err, "find store")
	}
	return &catalog.Store{ID: m.ID, OwnerID: m.OwnerID, Name: m.Name, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}, nil
}

func (r *GormCatalogRepository) SaveMenuItem(ctx context.Context, item *catalog.MenuItem) error {
	m := MenuItemModel{
		ID:         item.ID,
		StoreID:    item.StoreID,
		Name:       item.Name,
		PriceCents: item.PriceCents,
		IsActive:   item.IsActive,
		CreatedAt:  item.CreatedAt,
		UpdatedAt:  item.UpdatedAt,
	}
	if err := database.Conn(ctx, r.db).Create(&m).Error; err != nil {
		return domain.Internal(err, "save menu item")
	}
	return nil
}

func (r *GormCatalogRepository) FindMenuItemByID(ctx context.Context, id uuid.UUID) (*catalog.MenuItem, error) {
	var m MenuItemModel
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("menu item", id.String())
		}
		return nil, domain.Internal(err, "find menu item")
	}
	return &catalog.MenuItem{
		ID:         m.ID,
		StoreID:    m.StoreID,
		Name:       m.Name,
		PriceCents: m.PriceCents,
		IsActive:   m.IsActive,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}, nil
}

// SaveEvent inserts the event and all of its children in one transaction.
func (r *GormCatalogRepository) SaveEvent(ctx context.Context, e *catalog.Event) error {
	err := database.Conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(toEventModel(e)).Error; err != nil {
			return err
		}
		for _, d := range e.Discounts {
			if err := tx.Create(toDiscountModel(d)).Error; err != nil {
				return err
			}
		}
		for _, g := range e.GiftGroups {
			if err := tx.Create(&GiftGroupModel{ID: g.ID, EventID: g.EventID, Name: g.Name}).Error; err != nil {
				return err
			}
			for _, o := range g.Options {
				if err := tx.Create(toGiftModel(o)).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return domain.Internal(err, "save event")
	}
	return nil
}

func (r *GormCatalogRepository) FindEventByID(ctx context.Context, id uuid.UUID) (*catalog.Event, error) {
	db := database.Conn(ctx, r.db)

	var m EventModel
	if err := db.Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("event", id.String())
		}
		return nil, domain.Internal(err, "find event")
	}
	e := eventToDomain(&m)

	var discounts []DiscountOptionModel
	if err := db.Where("event_id = ?", id).Order("created_at").Find(&discounts).Error; err != nil {
		return nil, domain.Internal(err, "find event discounts")
	}
	for i := range discounts {
		e.Discounts = append(e.Discounts, discountToDomain(&discounts[i]))
	}

	var groups []GiftGroupModel
	if err := db.Where("event_id = ?", id).Order("name").Find(&groups).Error; err != nil {
		return nil, domain.Internal(err, "find gift groups")
	}
	var gifts []GiftOptionModel
	if err := db.Where("event_id = ?", id).Order("created_at").Find(&gifts).Error; err != nil {
		return nil, domain.Internal(err, "find gift options")
	}
	for _, g := range groups {
		group := &catalog.GiftGroup{ID: g.ID, EventID: g.EventID, Name: g.Name}
		for i := range gifts {
			if gifts[i].GiftGroupID == g.ID {
				group.Options = append(group.Options, giftToDomain(&gifts[i]))
			}
		}
		e.GiftGroups = append(e.GiftGroups, group)
	}
	return e, nil
}

// ListEventsByStore returns the store's events without their children.
func (r *GormCatalogRepository) ListEventsByStore(ctx context.Context, storeID uuid.UUID) ([]*catalog.Event, error) {
	var models []EventModel
	if err := database.Conn(ctx, r.db).
		Where("store_id = ?", storeID).
		Order("start_date DESC").
		Find(&models).Error; err != nil {
		return nil, domain.Internal(err, "list events")
	}
	events := make([]*catalog.Event, len(models))
	for i := range models {
		events[i] = eventToDomain(&models[i])
	}
	return events, nil
}

// DeactivateEvent soft-deletes the event and cascades to its options.
// Coupons already issued are untouched.
func (r *GormCatalogRepository) DeactivateEvent(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	err := database.Conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&EventModel{}).Where("id = ?", id).
			Updates(map[string]any{"is_active": false, "updated_at": now})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.NewNotFoundError("event", id.String())
		}
		if err := tx.Model(&DiscountOptionModel{}).Where("event_id = ?", id).
			Updates(map[string]any{"is_active": false, "updated_at": now}).Error; err != nil {
			return err
		}
		return tx.Model(&GiftOptionModel{}).Where("event_id = ?", id).
			Updates(map[string]any{"is_active": false, "updated_at": now}).Error
	})
	if err != nil {
		if domain.CodeOf(err) == domain.CodeNotFound {
			return err
		}
		return domain.Internal(err, "deactivate event")
	}
	return nil
}

func (r *GormCatalogRepository) SaveDiscountOption(ctx context.Context, o *catalog.DiscountOption) error {
	if err := database.Conn(ctx, r.db).Create(toDiscountModel(o)).Error; err != nil {
		return domain.Internal(err, "save discount option")
	}
	return nil
}

func (r *GormCatalogRepository) FindDiscountOptionByID(ctx context.Context, id uuid.UUID) (*catalog.DiscountOption, error) {
	var m DiscountOptionModel
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.Newf(domain.CodeOptionNotFound, "discount option %s not found", id)
		}
		return nil, domain.Internal(err, "find discount option")
	}
	return discountToDomain(&m), nil
}

// FindDiscountOptions returns the options that exist among ids, in no
// particular order.
func (r *GormCatalogRepository) FindDiscountOptions(ctx context.Context, ids []uuid.UUID) ([]*catalog.DiscountOption, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var models []DiscountOptionModel
	if err := database.Conn(ctx, r.db).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, domain.Internal(err, "find discount options")
	}
	opts := make([]*catalog.DiscountOption, len(models))
	for i := range models {
		opts[i] = discountToDomain(&models[i])
	}
	return opts, nil
}

// FindGiftOptions returns the options that exist among ids, in no particular
// order.
func (r *GormCatalogRepository) FindGiftOptions(ctx context.Context, ids []uuid.UUID) ([]*catalog.GiftOption, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var models []GiftOptionModel
	if err := database.Conn(ctx, r.db).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, domain.Internal(err, "find gift options")
	}
	opts := make([]*catalog.GiftOption, len(models))
	for i := range models {
		opts[i] = giftToDomain(&models[i])
	}
	return opts, nil
}

func (r *GormCatalogRepository) DeactivateDiscountOption(ctx context.Context, id uuid.UUID) error {
	result := database.Conn(ctx, r.db).Model(&DiscountOptionModel{}).Where("id = ?", id).
		Updates(map[string]any{"is_active": false, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return domain.Internal(result.Error, "deactivate discount option")
	}
	if result.RowsAffected == 0 {
		return domain.Newf(domain.CodeOptionNotFound, "discount option %s not found", id)
	}
	return nil
}

// --- mappers ---

func toEventModel(e *catalog.Event) *EventModel {
	m := &EventModel{
		ID:        e.ID,
		StoreID:   e.StoreID,
		Title:     e.Title,
		StartDate: e.StartDate,
		EndDate:   e.EndDate,
		Weekdays:  int16(e.Weekdays),
		IsActive:  e.IsActive,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
	if e.HappyHour != nil {
		start, end := int16(e.HappyHour.Start), int16(e.HappyHour.End)
		m.HappyHourStart, m.HappyHourEnd = &start, &end
	}
	return m
}

func eventToDomain(m *EventModel) *catalog.Event {
	e := &catalog.Event{
		ID:        m.ID,
		StoreID:   m.StoreID,
		Title:     m.Title,
		StartDate: catalog.CalendarDate(m.StartDate),
		EndDate:   catalog.CalendarDate(m.EndDate),
		Weekdays:  catalog.Weekdays(m.Weekdays),
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.HappyHourStart != nil && m.HappyHourEnd != nil {
		e.HappyHour = &catalog.HappyHour{
			Start: catalog.TimeOfDay(*m.HappyHourStart),
			End:   catalog.TimeOfDay(*m.HappyHourEnd),
		}
	}
	return e
}

func toDiscountModel(o *catalog.DiscountOption) *DiscountOptionModel {
	return &DiscountOptionModel{
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
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}

func discountToDomain(m *DiscountOptionModel) *catalog.DiscountOption {
	return &catalog.DiscountOption{
		ID:           m.ID,
		StoreID:      m.StoreID,
		MenuID:       m.MenuID,
		EventID:      m.EventID,
		DiscountRate: m.DiscountRate,
		FinalPrice:   m.FinalPrice,
		Quantity:     catalog.Quantity{Total: m.TotalQuantity, Remaining: m.RemainingQuantity},
		IsActive:     m.IsActive,
		Validity:     catalog.Window{Start: m.StartTime, End: m.EndTime},
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toGiftModel(o *catalog.GiftOption) *GiftOptionModel {
	return &GiftOptionModel{
		ID:                o.ID,
		GiftGroupID:       o.GiftGroupID,
		EventID:           o.EventID,
		StoreID:           o.StoreID,
		MenuID:            o.MenuID,
		TotalQuantity:     o.Quantity.Total,
		RemainingQuantity: o.Quantity.Remaining,
		IsActive:          o.IsActive,
		StartTime:         o.Validity.Start,
		EndTime:           o.Validity.End,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}

func giftToDomain(m *GiftOptionModel) *catalog.GiftOption {
	return &catalog.GiftOption{
		ID:          m.ID,
		GiftGroupID: m.GiftGroupID,
		EventID:     m.EventID,
		StoreID:     m.StoreID,
		MenuID:      m.MenuID,
		Quantity:    catalog.Quantity{Total: m.TotalQuantity, Remaining: m.RemainingQuantity},
		IsActive:    m.IsActive,
		Validity:    catalog.Window{Start: m.StartTime, End: m.EndTime},
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
