// Package dbtest opens throwaway SQLite databases with the service schema.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/uptrace/bun"

	"github.com/Additional-Code/edisync/internal/database"
)

// New returns a migrated SQLite database that is closed when the test ends.
func New(t *testing.T) *bun.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "edisync.sqlite") + "?_pragma=foreign_keys(1)"
	db, err := database.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := database.CreateSchema(context.Background(), db); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

// Connections wraps db as both writer and reader.
func Connections(db *bun.DB) *database.Connections {
	return &database.Connections{Writer: db, Reader: db}
}
