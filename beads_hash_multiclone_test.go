package beads_test

import (
	"context"
	"testing"

	"github.com/steveyegge/beads"
	"github.com/steveyegge/beads/internal/contenthash"
)

// TestContentHashIDsConvergeAcrossStores simulates two independently
// initialized workspaces ("clones") that each create issues offline. With
// sequential IDs this would require collision detection and remapping once
// the two histories meet; with content-hash IDs the two stores only ever
// agree on an ID when the issue content actually matches, so merging their
// exports is a plain union with no remap step.
func TestContentHashIDsConvergeAcrossStores(t *testing.T) {
	ctx := context.Background()
	cloneA := newTestStorage(t)
	cloneB := newTestStorage(t)

	issueA := newTestIssue("feature from clone A", beads.TypeFeature, 1)
	if err := cloneA.CreateIssue(ctx, issueA, "dev-a"); err != nil {
		t.Fatalf("CreateIssue(cloneA): %v", err)
	}
	issueB := newTestIssue("feature from clone B", beads.TypeFeature, 1)
	if err := cloneB.CreateIssue(ctx, issueB, "dev-b"); err != nil {
		t.Fatalf("CreateIssue(cloneB): %v", err)
	}

	if issueA.ID == issueB.ID {
		t.Fatalf("distinct content produced the same ID %q", issueA.ID)
	}

	// Merging clone A's issue into clone B must create it under A's own ID
	// rather than colliding with anything B already minted locally.
	merged := &beads.Issue{
		ID:        issueA.ID,
		Title:     issueA.Title,
		Status:    issueA.Status,
		Priority:  issueA.Priority,
		IssueType: issueA.IssueType,
		CreatedAt: issueA.CreatedAt,
		UpdatedAt: issueA.UpdatedAt,
	}
	if err := cloneB.CreateIssues(ctx, []*beads.Issue{merged}, "sync"); err != nil {
		t.Fatalf("CreateIssues(merged into cloneB): %v", err)
	}

	got, err := cloneB.GetIssue(ctx, issueA.ID)
	if err != nil {
		t.Fatalf("GetIssue(cloneB, issueA.ID): %v", err)
	}
	if got.Title != issueA.Title {
		t.Errorf("merged issue title = %q, want %q", got.Title, issueA.Title)
	}

	all, err := cloneB.SearchIssues(ctx, "", beads.IssueFilter{IncludeClosed: true})
	if err != nil {
		t.Fatalf("SearchIssues(cloneB): %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("cloneB has %d issues after merge, want 2 (its own plus A's)", len(all))
	}
}

// TestContentHashIDsDedupIdenticalContent verifies that two stores which
// independently create issues with identical semantic content agree on the
// content hash even though each minted its own ID (IDs fold in a creation
// timestamp and nonce, so they need not match). That shared content hash is
// what lets export/import recognize "the same change arrived twice" instead
// of treating every clone's copy as a distinct edit.
func TestContentHashIDsDedupIdenticalContent(t *testing.T) {
	ctx := context.Background()
	cloneA := newTestStorage(t)
	cloneB := newTestStorage(t)

	same := func() *beads.Issue { return newTestIssue("shared onboarding doc", beads.TypeTask, 2) }

	issueA := same()
	if err := cloneA.CreateIssue(ctx, issueA, "dev-a"); err != nil {
		t.Fatalf("CreateIssue(cloneA): %v", err)
	}
	issueB := same()
	if err := cloneB.CreateIssue(ctx, issueB, "dev-b"); err != nil {
		t.Fatalf("CreateIssue(cloneB): %v", err)
	}

	gotA, err := cloneA.GetIssue(ctx, issueA.ID)
	if err != nil {
		t.Fatalf("GetIssue(cloneA): %v", err)
	}
	gotB, err := cloneB.GetIssue(ctx, issueB.ID)
	if err != nil {
		t.Fatalf("GetIssue(cloneB): %v", err)
	}
	if contenthash.Compute(gotA) != contenthash.Compute(gotB) {
		t.Fatalf("identical semantic content hashed differently across clones: %q vs %q",
			contenthash.Compute(gotA), contenthash.Compute(gotB))
	}
}
