// Package dbtest opens throwaway in-memory stores for package tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"nciso/server/internal/db"
)

// Open returns a migrated in-memory SQLite store private to t.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// One connection keeps the shared-cache database alive and serialises writers.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

// Client returns a TenantClient for tenantID over gdb, failing t on error.
func Client(t testing.TB, gdb *gorm.DB, tenantID string) *db.TenantClient {
	t.Helper()
	c, err := db.NewTenantClient(gdb, tenantID)
	if err != nil {
		t.Fatalf("tenant client: %v", err)
	}
	return c
}
