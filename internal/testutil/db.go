// Package testutil provides helpers shared by package tests.
package testutil

import (
	"context"
	"database/sql"
	"testing"

	"github.com/iliyamo/worktime-ledger/internal/database"
)

// NewDB returns a migrated in-memory SQLite database that is closed when
// the test ends.
func NewDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(context.Background(), db, database.DialectSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
