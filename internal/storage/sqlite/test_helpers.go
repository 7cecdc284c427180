package sqlite

import (
	"context"
	"path/filepath"
	"testing"
)

// newTestStore opens a SQLiteStorage under a fresh t.TempDir and gives it
// an issue_prefix, since generateIssueIDTx refuses to mint IDs until one is
// configured. Passing "" picks a private temp file per call; package tests
// that need a specific path (a shared-file scenario, an in-memory DB) pass
// one explicitly.
func newTestStore(t *testing.T, dbPath string) *SQLiteStorage {
	t.Helper()

	if dbPath == "" {
		dbPath = filepath.Join(t.TempDir(), "test.db")
	}

	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("New(%s): %v", dbPath, err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	if err := store.SetConfig(ctx, "issue_prefix", "bd"); err != nil {
		t.Fatalf("SetConfig(issue_prefix): %v", err)
	}

	return store
}
