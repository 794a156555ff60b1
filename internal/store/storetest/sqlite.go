// Package storetest opens throwaway sqlite databases for tests.
package storetest

import (
	"context"
	"testing"

	"identity/internal/store"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// New returns a migrated in-memory store. A single connection keeps every
// query on the same :memory: database and serialises writers.
func New(t *testing.T) (*store.Store, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), store.GormConfig(false))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	st := store.New(db)
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return st, db
}
