// Package docstoretest provides a document store backed by an in-memory
// SQLite database for tests.
package docstoretest

import (
	"testing"

	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/docstore"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens an in-memory SQLite database with the given models migrated.
func NewDB(t testing.TB, extra ...any) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(append([]any{&models.DocNode{}}, extra...)...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// New returns a store on a fresh database.
func New(t testing.TB) *docstore.GormStore {
	t.Helper()
	s := docstore.NewStore(NewDB(t), docstore.NewMemoryFeed())
	t.Cleanup(func() { s.Close() })
	return s
}
