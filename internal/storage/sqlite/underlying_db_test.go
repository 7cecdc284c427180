package sqlite

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/steveyegge/beads/internal/types"
)

func TestUnderlyingDBReturnsQueryableConnection(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	db := store.UnderlyingDB()
	if db == nil {
		t.Fatal("UnderlyingDB() returned nil")
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM issues").Scan(&count); err != nil {
		t.Fatalf("query via UnderlyingDB: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 issues on a fresh store, got %d", count)
	}
}

// TestUnderlyingDBSupportsExtensionTables verifies a caller can layer its
// own tables on top of the core schema — e.g. a sync adapter tracking
// per-issue export state — and that FK enforcement and cross-table joins
// still work through the exposed *sql.DB.
func TestUnderlyingDBSupportsExtensionTables(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	issue := &types.Issue{Title: "Needs export tracking", Status: types.StatusOpen, Priority: 1, IssueType: types.TypeTask}
	if err := store.CreateIssue(ctx, issue, "test-user"); err != nil {
		t.Fatalf("CreateIssue: %v", err)
	}

	db := store.UnderlyingDB()
	schema := `
		CREATE TABLE IF NOT EXISTS export_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			issue_id TEXT NOT NULL,
			destination TEXT NOT NULL,
			exported_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (issue_id) REFERENCES issues(id) ON DELETE CASCADE
		);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("create extension table: %v", err)
	}

	result, err := db.Exec(`INSERT INTO export_log (issue_id, destination) VALUES (?, ?)`, issue.ID, "jsonl")
	if err != nil {
		t.Fatalf("insert into extension table: %v", err)
	}
	if id, _ := result.LastInsertId(); id == 0 {
		t.Error("expected non-zero insert ID")
	}

	if _, err := db.Exec(`INSERT INTO export_log (issue_id, destination) VALUES (?, ?)`, "nonexistent-id", "jsonl"); err == nil {
		t.Error("expected FK constraint violation for a nonexistent issue_id, got nil")
	}

	var title, destination string
	err = db.QueryRow(`
		SELECT i.title, e.destination
		FROM issues i
		JOIN export_log e ON i.id = e.issue_id
		WHERE i.id = ?
	`, issue.ID).Scan(&title, &destination)
	if err != nil {
		t.Fatalf("join across core and extension tables: %v", err)
	}
	if title != issue.Title {
		t.Errorf("title = %q, want %q", title, issue.Title)
	}
	if destination != "jsonl" {
		t.Errorf("destination = %q, want jsonl", destination)
	}
}

func TestUnderlyingDBWithstandsConcurrentReadersAndWriters(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	db := store.UnderlyingDB()

	for i := 0; i < 10; i++ {
		issue := &types.Issue{Title: "Seed issue", Status: types.StatusOpen, Priority: 1, IssueType: types.TypeTask}
		if err := store.CreateIssue(ctx, issue, "test-user"); err != nil {
			t.Fatalf("CreateIssue(seed %d): %v", i, err)
		}
	}

	var wg sync.WaitGroup
	errs := make(chan error, 20)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var count int
			if err := db.QueryRow("SELECT COUNT(*) FROM issues").Scan(&count); err != nil {
				errs <- err
			}
		}()
	}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.SearchIssues(ctx, "", types.IssueFilter{}); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent access error: %v", err)
	}
}

func TestUnderlyingDBRejectsQueriesAfterClose(t *testing.T) {
	store, cleanup := setupTestDB(t)
	cleanup()
	_ = store

	db := store.UnderlyingDB()
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM issues").Scan(&count); err == nil {
		t.Error("expected an error querying a closed database, got nil")
	}
}

// TestUnderlyingDBLongReadTxDoesNotBlockWrites confirms a caller holding a
// long-lived read transaction on the exposed *sql.DB doesn't starve a
// concurrent storage write — WAL mode plus a busy timeout should let the
// writer proceed rather than deadlock against the open read transaction.
func TestUnderlyingDBLongReadTxDoesNotBlockWrites(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	db := store.UnderlyingDB()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx: %v", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRow("SELECT COUNT(*) FROM issues").Scan(&count); err != nil {
		t.Fatalf("query inside tx: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		issue := &types.Issue{Title: "written during long read tx", Status: types.StatusOpen, Priority: 1, IssueType: types.TypeTask}
		done <- store.CreateIssue(ctx, issue, "test-user")
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("CreateIssue failed during concurrent long read tx: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("CreateIssue deadlocked or timed out against a long-lived read transaction")
	}
}
