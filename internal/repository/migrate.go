package repository

import (
	"github.com/cockroachdb/errors"
	"gorm.io/gorm"
)

// AutoMigrate creates or updates every table of the service.
func AutoMigrate(db *gorm.DB) error {
	models := append(CatalogModels(), &CouponModel{}, &CouponItemModel{}, &ReservationModel{})
	if err := db.AutoMigrate(models...); err != nil {
		return errors.Wrap(err, "auto-migrate")
	}
	return nil
}
