// Package databasetest provides throwaway SQLite databases for repository tests.
package databasetest

import (
	"testing"

	"github.com/reshetovitsme/insta-autoreply/internal/shared/config"
	"github.com/reshetovitsme/insta-autoreply/internal/shared/database"
	"gorm.io/gorm"
)

// New opens a private in-memory database with the given models migrated.
func New(t testing.TB, models ...any) *gorm.DB {
	t.Helper()

	db, err := database.Open(&config.Config{
		DatabaseDriver: "sqlite",
		DatabaseDSN:    ":memory:",
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := database.Migrate(db, models...); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

