package database

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"fruitbox_backend/internal/model"
)

func TestMigrateDatabaseIsRepeatable(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()

	require.NoError(t, MigrateDatabase(db, model.AllModels()...))
	require.NoError(t, MigrateDatabase(db, model.AllModels()...))

	for _, table := range []string{"products", "subscription_plans", "plan_fixed_items", "plan_customizable_items",
		"user_subscriptions", "subscription_items", "orders", "order_items", "users", "customers", "webhook_events"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}
