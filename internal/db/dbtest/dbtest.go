// Package dbtest provides throwaway databases for tests.
package dbtest

import (
	"fmt"
	"sync/atomic"
	"testing"

	"gorm.io/gorm"

	"reimburse/internal/db"
)

var seq atomic.Int64

// New opens a migrated in-memory sqlite database private to t.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:reimburse_test_%d?mode=memory&cache=shared&_foreign_keys=on", seq.Add(1))
	gormDB, err := db.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gormDB
}
