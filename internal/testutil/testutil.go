// Package testutil builds throwaway SQLite and Redis backends for package tests.
package testutil

import (
	"context"
	"testing"

	"invoicegen/internal/database"
	"invoicegen/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory database with every model migrated.
// A single connection serializes transactions the way row locks would on postgres.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := database.Config()
	cfg.Logger = logger.Default.LogMode(logger.Silent)

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// NewRedis starts a miniredis server and returns a client connected to it.
func NewRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return srv, rdb
}

// Fixture is a user owning one business with one client.
type Fixture struct {
	User     *model.User
	Business *model.BusinessProfile
	Client   *model.Client
}

// Seed creates a free-plan user, an "INV" business and a company client.
func Seed(t *testing.T, db *gorm.DB) Fixture {
	t.Helper()
	ctx := context.Background()

	user := &model.User{
		Email:              uuid.NewString() + "@example.com",
		Password:           "hash",
		FirstName:          "Ada",
		SubscriptionPlan:   model.PlanFree,
		SubscriptionStatus: model.SubscriptionActive,
	}
	require.NoError(t, db.WithContext(ctx).Create(user).Error)

	business := &model.BusinessProfile{
		UserID:            user.ID,
		BusinessName:      "Acme Studio",
		Currency:          "USD",
		InvoicePrefix:     "INV",
		NextInvoiceNumber: 1,
		IsActive:          true,
	}
	require.NoError(t, db.WithContext(ctx).Create(business).Error)

	client := &model.Client{
		BusinessID:  business.ID,
		ClientType:  model.ClientTypeCompany,
		CompanyName: "Globex",
		Email:       "ap@globex.example",
		Currency:    "USD",
		Status:      model.ClientStatusActive,
	}
	require.NoError(t, db.WithContext(ctx).Create(client).Error)

	return Fixture{User: user, Business: business, Client: client}
}
