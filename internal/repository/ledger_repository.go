package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/catalog"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/inventory"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/clock"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/database"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/pkg/domain"
)

// ReservationModel is the GORM persistence model for inventory_reservations.
// A reservation is released once, when released_at goes from NULL to a time.
type ReservationModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	OptionType string     `gorm:"type:varchar(20);not null"`
	OptionID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	Quantity   int        `gorm:"not null;check:quantity > 0"`
	ReservedAt time.Time  `gorm:"type:timestamptz;not null"`
	ReleasedAt *time.Time `gorm:"type:timestamptz"`
}

func (ReservationModel) TableName() string { return "inventory_reservations" }

// GormLedger implements inventory.Ledger with conditional UPDATEs on the
// option rows. Postgres row locks serialize concurrent writers per option.
type GormLedger struct {
	db    *gorm.DB
	tx    *database.Transactor
	clock clock.Clock
}

// NewGormLedger creates a ledger over the option tables.
func NewGormLedger(db *gorm.DB, tx *database.Transactor, clk clock.Clock) *GormLedger {
	return &GormLedger{db: db, tx: tx, clock: clk}
}

func optionTable(t catalog.OptionType) (string, error) {
	switch t {
	case catalog.OptionDiscount:
		return DiscountOptionModel{}.TableName(), nil
	case catalog.OptionGift:
		return GiftOptionModel{}.TableName(), nil
	}
	return "", domain.Newf(domain.CodeInvalidItemType, "unknown option type %q", t)
}

// Reserve decrements remaining_quantity only if the option is active, valid
// at the current time and has enough stock, then records the reservation.
func (l *GormLedger) Reserve(ctx context.Context, ref inventory.OptionRef) (*inventory.Reservation, error) {
	if err := inventory.ValidateRefs([]inventory.OptionRef{ref}); err != nil {
		return nil, err
	}
	var res *inventory.Reservation
	err := l.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		res, err = l.reserve(ctx, ref)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (l *GormLedger) reserve(ctx context.Context, ref inventory.OptionRef) (*inventory.Reservation, error) {
	table, err := optionTable(ref.Type)
	if err != nil {
		return nil, err
	}
	db := database.Conn(ctx, l.db)
	now := l.clock.Now()

	// NULL - qty stays NULL, so unlimited options pass through unchanged.
	result := db.Table(table).
		Where("id = ? AND is_active AND start_time <= ? AND end_time > ?", ref.ID, now, now).
		Where("total_quantity IS NULL OR remaining_quantity >= ?", ref.Quantity).
		Updates(map[string]any{
			"remaining_quantity": gorm.Expr("remaining_quantity - ?", ref.Quantity),
			"updated_at":         now,
		})
	if result.Error != nil {
		return nil, &inventory.ReservationError{Ref: ref, Err: domain.Internal(result.Error, "reserve option")}
	}
	if result.RowsAffected == 0 {
		return nil, &inventory.ReservationError{Ref: ref, Err: l.classify(ctx, table, ref, now)}
	}

	model := ReservationModel{
		ID:         uuid.New(),
		OptionType: string(ref.Type),
		OptionID:   ref.ID,
		Quantity:   ref.Quantity,
		ReservedAt: now,
	}
	if err := db.Create(&model).Error; err != nil {
		return nil, &inventory.ReservationError{Ref: ref, Err: domain.Internal(err, "record reservation")}
	}
	return reservationToDomain(&model), nil
}

// classify re-reads an option whose conditional update matched no row.
func (l *GormLedger) classify(ctx context.Context, table string, ref inventory.OptionRef, now time.Time) error {
	var row struct {
		IsActive          bool
		StartTime         time.Time
		EndTime           time.Time
		RemainingQuantity *int
	}
	err := database.Conn(ctx, l.db).Table(table).
		Select("is_active, start_time, end_time, remaining_quantity").
		Where("id = ?", ref.ID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Newf(domain.CodeOptionNotFound, "%s option %s not found", ref.Type, ref.ID)
		}
		return domain.Internal(err, "classify reservation failure")
	}

	stock := inventory.Stock{
		IsActive:  row.IsActive,
		Validity:  catalog.Window{Start: row.StartTime, End: row.EndTime},
		Remaining: row.RemainingQuantity,
	}
	if err := inventory.CheckReservable(stock, ref.Quantity, now); err != nil {
		return err
	}
	// A concurrent release restored stock after our update lost.
	return domain.New(domain.CodeStockShortage, "not enough stock left")
}

// ReserveBatch reserves all refs inside one transaction. Refs are applied in
// a stable option order so concurrent batches lock rows in the same order.
func (l *GormLedger) ReserveBatch(ctx context.Context, refs []inventory.OptionRef) ([]*inventory.Reservation, error) {
	if err := inventory.ValidateRefs(refs); err != nil {
		return nil, err
	}

	order := make([]int, len(refs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := refs[order[a]], refs[order[b]]
		if ra.Type != rb.Type {
			return ra.Type < rb.Type
		}
		return ra.ID.String() < rb.ID.String()
	})

	out := make([]*inventory.Reservation, len(refs))
	err := l.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		for _, i := range order {
			res, err := l.reserve(ctx, refs[i])
			if err != nil {
				return err
			}
			out[i] = res
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Release marks the reservation released and returns its quantity to the
// option, never above total_quantity. A second release matches no row and
// changes nothing.
func (l *GormLedger) Release(ctx context.Context, reservationID uuid.UUID) error {
	return l.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		db := database.Conn(ctx, l.db)
		now := l.clock.Now()

		var model ReservationModel
		result := db.Model(&model).
			Clauses(clause.Returning{}).
			Where("id = ? AND released_at IS NULL", reservationID).
			Update("released_at", now)
		if result.Error != nil {
			return domain.Internal(result.Error, "release reservation")
		}
		if result.RowsAffected == 0 {
			return nil
		}

		table, err := optionTable(catalog.OptionType(model.OptionType))
		if err != nil {
			return err
		}
		if err := db.Table(table).
			Where("id = ? AND total_quantity IS NOT NULL", model.OptionID).
			Updates(map[string]any{
				"remaining_quantity": gorm.Expr("LEAST(remaining_quantity + ?, total_quantity)", model.Quantity),
				"updated_at":         now,
			}).Error; err != nil {
			return domain.Internal(err, "restore option stock")
		}
		return nil
	})
}

// FindReservation loads a reservation by id.
func (l *GormLedger) FindReservation(ctx context.Context, id uuid.UUID) (*inventory.Reservation, error) {
	var model ReservationModel
	if err := database.Conn(ctx, l.db).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("reservation", id.String())
		}
		return nil, domain.Internal(err, "find reservation")
	}
	return reservationToDomain(&model), nil
}

func reservationToDomain(m *ReservationModel) *inventory.Reservation {
	return &inventory.Reservation{
		ID:         m.ID,
		OptionType: catalog.OptionType(m.OptionType),
		OptionID:   m.OptionID,
		Quantity:   m.Quantity,
		ReservedAt: m.ReservedAt,
		ReleasedAt: m.ReleasedAt,
	}
}
