package sync

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/steveyegge/beads/internal/types"
)

func TestImportCreatesNewIssue(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	jsonlPath := filepath.Join(dir, "issues.jsonl")
	line := `{"id":"bd-abc123","title":"from jsonl","status":"open","priority":2,"issue_type":"task"}` + "\n"
	if err := os.WriteFile(jsonlPath, []byte(line), 0644); err != nil {
		t.Fatalf("writing jsonl: %v", err)
	}

	result, err := Import(ctx, store, jsonlPath, dir, false, Options{})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if result.Created != 1 {
		t.Errorf("expected 1 created issue, got %+v", result)
	}

	issue, err := store.GetIssue(ctx, "bd-abc123")
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}
	if issue == nil || issue.Title != "from jsonl" {
		t.Errorf("expected imported issue to be persisted, got %+v", issue)
	}
}

func TestImportRejectsConflictMarkers(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	jsonlPath := filepath.Join(dir, "issues.jsonl")
	content := "<<<<<<< ours\n" +
		`{"id":"bd-1","title":"mine"}` + "\n" +
		"=======\n" +
		`{"id":"bd-1","title":"theirs"}` + "\n" +
		">>>>>>> theirs\n"
	if err := os.WriteFile(jsonlPath, []byte(content), 0644); err != nil {
		t.Fatalf("writing jsonl: %v", err)
	}

	if _, err := Import(ctx, store, jsonlPath, dir, false, Options{}); err == nil {
		t.Fatal("expected an error for unresolved conflict markers")
	}
}

func TestImportSkipUpdateLeavesExistingIssueAlone(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	issue := &types.Issue{Title: "original", Status: types.StatusOpen, Priority: 2, IssueType: types.TypeTask}
	if err := store.CreateIssue(ctx, issue, "tester"); err != nil {
		t.Fatalf("CreateIssue: %v", err)
	}

	jsonlPath := filepath.Join(dir, "issues.jsonl")
	line := `{"id":"` + issue.ID + `","title":"changed upstream","status":"open","priority":2,"issue_type":"task"}` + "\n"
	if err := os.WriteFile(jsonlPath, []byte(line), 0644); err != nil {
		t.Fatalf("writing jsonl: %v", err)
	}

	result, err := Import(ctx, store, jsonlPath, dir, false, Options{SkipUpdate: true})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if result.Skipped != 1 || result.Updated != 0 {
		t.Errorf("expected the update to be skipped, got %+v", result)
	}

	reread, err := store.GetIssue(ctx, issue.ID)
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}
	if reread.Title != "original" {
		t.Errorf("expected title to remain %q, got %q", "original", reread.Title)
	}
}

func TestImportDryRunMakesNoChanges(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	jsonlPath := filepath.Join(dir, "issues.jsonl")
	line := `{"id":"bd-dryrun","title":"preview only","status":"open","priority":2,"issue_type":"task"}` + "\n"
	if err := os.WriteFile(jsonlPath, []byte(line), 0644); err != nil {
		t.Fatalf("writing jsonl: %v", err)
	}

	result, err := Import(ctx, store, jsonlPath, dir, false, Options{DryRun: true})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if result.Created != 1 {
		t.Errorf("expected dry-run to report 1 would-be-created issue, got %+v", result)
	}

	issue, err := store.GetIssue(ctx, "bd-dryrun")
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}
	if issue != nil {
		t.Errorf("expected dry-run to make no persisted changes, got %+v", issue)
	}
}

func TestAutoImportIfStaleSkipsUnchangedFile(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	jsonlPath := filepath.Join(dir, "issues.jsonl")
	line := `{"id":"bd-stale","title":"first pass","status":"open","priority":2,"issue_type":"task"}` + "\n"
	if err := os.WriteFile(jsonlPath, []byte(line), 0644); err != nil {
		t.Fatalf("writing jsonl: %v", err)
	}

	result, err := AutoImportIfStale(ctx, store, jsonlPath, dir, false)
	if err != nil {
		t.Fatalf("first AutoImportIfStale: %v", err)
	}
	if result == nil || result.Created != 1 {
		t.Fatalf("expected the first pass to import, got %+v", result)
	}

	result, err = AutoImportIfStale(ctx, store, jsonlPath, dir, false)
	if err != nil {
		t.Fatalf("second AutoImportIfStale: %v", err)
	}
	if result != nil {
		t.Errorf("expected no re-import of an unchanged file, got %+v", result)
	}
}
