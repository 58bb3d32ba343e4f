package database

import (
	"fmt"
	"time"

	"invoicegen/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Models lists every table owned by the service, in migration order.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.BillingPlan{},
		&model.Subscription{},
		&model.BusinessProfile{},
		&model.Client{},
		&model.Category{},
		&model.Product{},
		&model.Invoice{},
		&model.InvoiceItem{},
		&model.Payment{},
		&model.AuditLog{},
	}
}

// Config returns the gorm settings shared by every dialect. Timestamps are stored in UTC and
// driver constraint errors are translated to gorm.ErrDuplicatedKey and friends.
func Config() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// NewConnection opens a postgres connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), Config())
	if err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
