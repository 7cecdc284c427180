package sqlite

import (
	"context"
	"testing"

	"github.com/steveyegge/beads/internal/types"
)

// newEpicWithChildren creates an open epic and n open task children linked
// via parent-child dependencies, returning the epic and its children.
func newEpicWithChildren(t *testing.T, store *SQLiteStorage, ctx context.Context, n int) (*types.Issue, []*types.Issue) {
	t.Helper()
	epic := &types.Issue{Title: "Epic under test", Status: types.StatusOpen, Priority: 1, IssueType: types.TypeEpic}
	if err := store.CreateIssue(ctx, epic, "test-user"); err != nil {
		t.Fatalf("CreateIssue(epic): %v", err)
	}
	children := make([]*types.Issue, n)
	for i := 0; i < n; i++ {
		children[i] = &types.Issue{Title: "Task", Status: types.StatusOpen, Priority: 2, IssueType: types.TypeTask}
		if err := store.CreateIssue(ctx, children[i], "test-user"); err != nil {
			t.Fatalf("CreateIssue(child %d): %v", i, err)
		}
		dep := &types.Dependency{IssueID: children[i].ID, DependsOnID: epic.ID, Type: types.DepParentChild}
		if err := store.AddDependency(ctx, dep, "test-user"); err != nil {
			t.Fatalf("AddDependency(child %d): %v", i, err)
		}
	}
	return epic, children
}

func findEpicStatus(statuses []*types.EpicStatus, epicID string) *types.EpicStatus {
	for _, s := range statuses {
		if s.Epic.ID == epicID {
			return s
		}
	}
	return nil
}

// TestGetEpicsEligibleForClosureOnlyListsFullyClosedEpics exercises the
// actual contract: the query only surfaces epics whose children are ALL
// closed (closed_children = total_children > 0), so an epic with any open
// child — or no children at all — never appears in the result, rather than
// appearing with an EligibleForClose=false flag.
func TestGetEpicsEligibleForClosureOnlyListsFullyClosedEpics(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	epic, children := newEpicWithChildren(t, store, ctx, 2)

	statuses, err := store.GetEpicsEligibleForClosure(ctx)
	if err != nil {
		t.Fatalf("GetEpicsEligibleForClosure: %v", err)
	}
	if findEpicStatus(statuses, epic.ID) != nil {
		t.Error("epic with open children should not appear in eligible list")
	}

	if err := store.CloseIssue(ctx, children[0].ID, "done", "", "test-user"); err != nil {
		t.Fatalf("CloseIssue(children[0]): %v", err)
	}
	statuses, err = store.GetEpicsEligibleForClosure(ctx)
	if err != nil {
		t.Fatalf("GetEpicsEligibleForClosure (one closed): %v", err)
	}
	if findEpicStatus(statuses, epic.ID) != nil {
		t.Error("epic with one of two children still open should not appear in eligible list")
	}

	if err := store.CloseIssue(ctx, children[1].ID, "done", "", "test-user"); err != nil {
		t.Fatalf("CloseIssue(children[1]): %v", err)
	}
	statuses, err = store.GetEpicsEligibleForClosure(ctx)
	if err != nil {
		t.Fatalf("GetEpicsEligibleForClosure (all closed): %v", err)
	}
	status := findEpicStatus(statuses, epic.ID)
	if status == nil {
		t.Fatal("epic with all children closed should appear in eligible list")
	}
	if status.TotalChildren != 2 {
		t.Errorf("TotalChildren = %d, want 2", status.TotalChildren)
	}
	if status.ClosedChildren != 2 {
		t.Errorf("ClosedChildren = %d, want 2", status.ClosedChildren)
	}
	if !status.EligibleForClose {
		t.Error("EligibleForClose should be true once all children are closed")
	}
}

func TestGetEpicsEligibleForClosureExcludesChildlessEpics(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	epic := &types.Issue{Title: "Childless Epic", Status: types.StatusOpen, Priority: 1, IssueType: types.TypeEpic}
	if err := store.CreateIssue(ctx, epic, "test-user"); err != nil {
		t.Fatalf("CreateIssue: %v", err)
	}

	statuses, err := store.GetEpicsEligibleForClosure(ctx)
	if err != nil {
		t.Fatalf("GetEpicsEligibleForClosure: %v", err)
	}
	if findEpicStatus(statuses, epic.ID) != nil {
		t.Error("epic with no children should never appear, even though it has nothing open to block it")
	}
}

func TestGetEpicsEligibleForClosureExcludesAlreadyClosedEpics(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	epic, children := newEpicWithChildren(t, store, ctx, 1)
	if err := store.CloseIssue(ctx, children[0].ID, "done", "", "test-user"); err != nil {
		t.Fatalf("CloseIssue(child): %v", err)
	}
	if err := store.CloseIssue(ctx, epic.ID, "wrapped up", "", "test-user"); err != nil {
		t.Fatalf("CloseIssue(epic): %v", err)
	}

	statuses, err := store.GetEpicsEligibleForClosure(ctx)
	if err != nil {
		t.Fatalf("GetEpicsEligibleForClosure: %v", err)
	}
	if findEpicStatus(statuses, epic.ID) != nil {
		t.Error("an already-closed epic should not be reported as eligible for closure again")
	}
}
