package sqlite

import (
	"context"
	"database/sql"
	"testing"

	"github.com/steveyegge/beads/internal/types"
)

func setupInvariantTestDB(t *testing.T) *sql.DB {
	t.Helper()
	store := newTestStore(t, ":memory:")
	return store.db
}

func TestCaptureRowCounts(t *testing.T) {
	db := setupInvariantTestDB(t)

	if _, err := db.Exec(`INSERT INTO issues (id, title) VALUES ('test-1', 'Test Issue')`); err != nil {
		t.Fatalf("insert issue: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO dependencies (issue_id, depends_on_id, created_by) VALUES ('test-1', 'test-1', 'test')`); err != nil {
		t.Fatalf("insert dependency: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO labels (issue_id, label) VALUES ('test-1', 'urgent')`); err != nil {
		t.Fatalf("insert label: %v", err)
	}

	counts, err := captureRowCounts(db)
	if err != nil {
		t.Fatalf("captureRowCounts: %v", err)
	}
	want := rowCounts{"issues": 1, "dependencies": 1, "labels": 1}
	for table, n := range want {
		if counts[table] != n {
			t.Errorf("counts[%s] = %d, want %d", table, counts[table], n)
		}
	}
}

func TestVerifyNoRowsLostPassesWhenCountsHoldOrGrow(t *testing.T) {
	before := rowCounts{"issues": 3, "dependencies": 1}
	after := rowCounts{"issues": 3, "dependencies": 2, "labels": 0}
	if err := before.verifyNoRowsLost(after); err != nil {
		t.Errorf("verifyNoRowsLost with equal/growing counts: %v", err)
	}
}

func TestVerifyNoRowsLostFailsOnShrink(t *testing.T) {
	before := rowCounts{"issues": 5}
	after := rowCounts{"issues": 4}
	if err := before.verifyNoRowsLost(after); err == nil {
		t.Error("verifyNoRowsLost should reject a table that lost rows, got nil")
	}
}

// TestRunMigrationsIsIdempotentOnRowCounts exercises runMigrations itself:
// calling it again against an already-migrated database with data present
// must not trip the invariant check, since every migration in the list is
// additive and re-running an already-applied one is a no-op.
func TestRunMigrationsIsIdempotentOnRowCounts(t *testing.T) {
	store := newTestStore(t, "")
	ctx := context.Background()

	issue := &types.Issue{Title: "re-migration target", Status: types.StatusOpen, Priority: 1, IssueType: types.TypeTask}
	if err := store.CreateIssue(ctx, issue, "test"); err != nil {
		t.Fatalf("CreateIssue: %v", err)
	}

	if err := runMigrations(store.db); err != nil {
		t.Fatalf("second runMigrations call failed: %v", err)
	}

	got, err := store.GetIssue(ctx, issue.ID)
	if err != nil {
		t.Fatalf("GetIssue after re-running migrations: %v", err)
	}
	if got == nil {
		t.Fatal("issue created before a second migration run went missing")
	}
}
