// Package testutil provides fixtures for tests that need a real history store.
// It offers a migrated in-memory database and a fluent transaction builder.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/spice-ingest/internal/model"
	"github.com/Veraticus/spice-ingest/internal/storage"
)

// SetupTestStore creates a migrated in-memory SQLite store that is closed
// when the test ends.
//
// Example:
//
//	store := testutil.SetupTestStore(t)
//	testutil.SeedHistory(t, store, "u1",
//		testutil.NewTxn("phở").Expense(50_000).Category(model.CategoryFood).On(day).Build(),
//	)
func SetupTestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()

	store, err := storage.NewSQLiteStore(":memory:", nil)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return store
}

// SeedHistory records txns for userID or fails the test.
func SeedHistory(t *testing.T, store storage.Store, userID string, txns ...model.ValidatedTransaction) {
	t.Helper()

	saved, err := store.SaveTransactions(context.Background(), userID, txns)
	if err != nil {
		t.Fatalf("failed to seed history: %v", err)
	}
	if saved != len(txns) {
		t.Fatalf("seeded %d of %d transactions; check for duplicate IDs", saved, len(txns))
	}
}
