package sync

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/steveyegge/beads/internal/contenthash"
	"github.com/steveyegge/beads/internal/errs"
	"github.com/steveyegge/beads/internal/pathsafety"
	"github.com/steveyegge/beads/internal/storage"
	"github.com/steveyegge/beads/internal/types"
)

// Options controls the import engine's behavior, grounded on
// ttrei-beads/internal/importer.Options minus the rename/remap knobs
// that only made sense under sequential IDs.
type Options struct {
	DryRun     bool // preview without applying
	SkipUpdate bool // create-only: never overwrite an existing issue
	Strict     bool // fail the whole import on any per-issue error
}

// Result summarizes one import run, mirroring ttrei-beads/internal/
// importer.Result's counters minus the ID-remap bookkeeping (component
// C's hash IDs make renames/remaps obsolete: a same-ID different-content
// row is just an update, never a collision requiring a new ID).
type Result struct {
	Created        int
	Updated        int
	Unchanged      int
	Skipped        int
	PrefixMismatch bool
	ExpectedPrefix string
}

// Import reads jsonlPath and upserts its issues, dependencies, labels,
// and comments into store. Refuses to proceed over conflict markers
// (spec.md §4.H's conflict-marker scan) and skips creating or
// resurrecting tombstoned issues unless the caller owns that via
// RestoreIssue directly.
func Import(ctx context.Context, store storage.Storage, jsonlPath, beadsDir string, allowExternal bool, opts Options) (*Result, error) {
	validated, err := pathsafety.Validate(jsonlPath, beadsDir, allowExternal)
	if err != nil {
		return nil, err
	}
	jsonlPath = validated.String()

	data, err := os.ReadFile(jsonlPath)
	if err != nil {
		return nil, errs.Wrap(errs.CodeFileNotFound, "failed to read "+jsonlPath, err)
	}

	if err := scanForConflictMarkers(data); err != nil {
		return nil, err
	}

	issues, err := parseJSONL(data)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	if err := checkPrefixMismatch(ctx, store, issues, result); err != nil {
		return result, err
	}

	for _, issue := range issues {
		issue.ContentHash = contenthash.Compute(issue)
	}

	if err := upsertIssues(ctx, store, issues, opts, result); err != nil {
		return result, err
	}
	if opts.DryRun {
		return result, nil
	}

	if err := importDependencies(ctx, store, issues, opts); err != nil {
		return result, err
	}
	if err := importLabels(ctx, store, issues, opts); err != nil {
		return result, err
	}
	if err := importComments(ctx, store, issues, opts); err != nil {
		return result, err
	}

	return result, nil
}

// AutoImportIfStale is the daemon-free equivalent of the teacher's
// autoImportIfNewer: compares jsonlPath's content hash against the hash
// recorded at the end of the last successful sync round-trip, and only
// imports when they differ (so a `bd` invocation right after its own
// export doesn't re-import its own output).
func AutoImportIfStale(ctx context.Context, store storage.Storage, jsonlPath, beadsDir string, allowExternal bool) (*Result, error) {
	data, err := os.ReadFile(jsonlPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.Wrap(errs.CodeFileNotFound, "failed to read "+jsonlPath, err)
	}

	currentHash := sha256Hex(data)
	lastHash, err := store.GetJSONLFileHash(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.CodeIOFailed, "failed to read last JSONL hash", err)
	}
	if currentHash == lastHash {
		return nil, nil
	}

	result, err := Import(ctx, store, jsonlPath, beadsDir, allowExternal, Options{})
	if err != nil {
		return nil, err
	}
	if err := store.SetJSONLFileHash(ctx, currentHash); err != nil {
		return nil, errs.Wrap(errs.CodeIOFailed, "failed to record JSONL file hash", err)
	}
	return result, nil
}

func scanForConflictMarkers(data []byte) error {
	const (
		ours   = "<<<<<<<"
		theirs = ">>>>>>>"
		sep    = "======="
	)
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, ours) || strings.HasPrefix(line, theirs) || line == sep {
			return errs.New(errs.CodeConflictMarkers, "JSONL file contains unresolved merge conflict markers").
				WithHint("resolve the conflict in the JSONL file before importing")
		}
	}
	return nil
}

func parseJSONL(data []byte) ([]*types.Issue, error) {
	var issues []*types.Issue
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var issue types.Issue
		if err := json.Unmarshal([]byte(line), &issue); err != nil {
			return nil, errs.Wrap(errs.CodeValidationFailed, fmt.Sprintf("malformed JSONL at line %d", lineNum), err)
		}
		issues = append(issues, &issue)
	}
	return issues, nil
}

func checkPrefixMismatch(ctx context.Context, store storage.Storage, issues []*types.Issue, result *Result) error {
	prefix, err := store.GetConfig(ctx, "issue_prefix")
	if err != nil {
		return errs.Wrap(errs.CodeConfigInvalid, "failed to read configured prefix", err)
	}
	if strings.TrimSpace(prefix) == "" {
		return nil
	}
	result.ExpectedPrefix = prefix

	for _, issue := range issues {
		if !strings.HasPrefix(issue.ID, prefix+"-") && !strings.HasPrefix(issue.ID, prefix+".") {
			result.PrefixMismatch = true
			return errs.New(errs.CodePrefixMismatch, fmt.Sprintf("issue %s does not match configured prefix %q", issue.ID, prefix))
		}
	}
	return nil
}

// upsertIssues applies content-first matching: identical ID and
// content is a no-op, identical ID with different content is an
// update when the incoming updated_at is newer (never a collision,
// since IDs are content-derived at creation time; an incoming copy that
// is not newer counts as unchanged), and an unknown ID is a create.
func upsertIssues(ctx context.Context, store storage.Storage, issues []*types.Issue, opts Options, result *Result) error {
	var newIssues []*types.Issue

	for _, incoming := range issues {
		existing, err := store.GetIssue(ctx, incoming.ID)
		if err != nil {
			return errs.Wrap(errs.CodeIOFailed, "failed to look up "+incoming.ID, err)
		}

		if existing == nil {
			if incoming.DeletedAt != nil {
				result.Skipped++
				continue
			}
			newIssues = append(newIssues, incoming)
			continue
		}

		if existing.DeletedAt != nil && incoming.DeletedAt == nil {
			// Tombstone protection (spec.md §4.H): a tombstoned issue is
			// never silently resurrected by an import; RestoreIssue is
			// an explicit operation.
			result.Skipped++
			continue
		}

		if existing.ContentHash == incoming.ContentHash {
			result.Unchanged++
			continue
		}
		if opts.SkipUpdate {
			result.Skipped++
			continue
		}
		if !incoming.UpdatedAt.After(existing.UpdatedAt) {
			result.Unchanged++
			continue
		}

		if opts.DryRun {
			result.Updated++
			continue
		}

		updates := map[string]interface{}{
			"title":               incoming.Title,
			"description":         incoming.Description,
			"design":              incoming.Design,
			"acceptance_criteria": incoming.AcceptanceCriteria,
			"notes":               incoming.Notes,
			"status":              string(incoming.Status),
			"priority":            incoming.Priority,
			"issue_type":          string(incoming.IssueType),
			"assignee":            incoming.Assignee,
		}
		if err := store.UpdateIssue(ctx, existing.ID, updates, "import"); err != nil {
			if opts.Strict {
				return errs.Wrap(errs.CodeIOFailed, "failed to update "+existing.ID, err)
			}
			result.Skipped++
			continue
		}
		result.Updated++
	}

	if opts.DryRun {
		result.Created += len(newIssues)
		return nil
	}

	if len(newIssues) > 0 {
		if err := store.CreateIssues(ctx, newIssues, "import"); err != nil {
			return errs.Wrap(errs.CodeIOFailed, "failed to create imported issues", err)
		}
		result.Created += len(newIssues)
	}
	return nil
}

func importDependencies(ctx context.Context, store storage.Storage, issues []*types.Issue, opts Options) error {
	for _, issue := range issues {
		if len(issue.Dependencies) == 0 {
			continue
		}
		existing, err := store.GetDependencyRecords(ctx, issue.ID)
		if err != nil {
			return errs.Wrap(errs.CodeIOFailed, "failed to read dependencies of "+issue.ID, err)
		}
		seen := make(map[string]bool, len(existing))
		for _, dep := range existing {
			seen[dep.DependsOnID+"|"+string(dep.Type)] = true
		}

		for _, dep := range issue.Dependencies {
			key := dep.DependsOnID + "|" + string(dep.Type)
			if seen[key] {
				continue
			}
			if err := store.AddDependency(ctx, dep, "import"); err != nil {
				if opts.Strict {
					return errs.Wrap(errs.CodeIOFailed, fmt.Sprintf("failed to add dependency %s -> %s", dep.IssueID, dep.DependsOnID), err)
				}
			}
		}
	}
	return nil
}

func importLabels(ctx context.Context, store storage.Storage, issues []*types.Issue, opts Options) error {
	for _, issue := range issues {
		if len(issue.Labels) == 0 {
			continue
		}
		existing, err := store.GetLabels(ctx, issue.ID)
		if err != nil {
			return errs.Wrap(errs.CodeIOFailed, "failed to read labels of "+issue.ID, err)
		}
		have := make(map[string]bool, len(existing))
		for _, l := range existing {
			have[l] = true
		}
		for _, label := range issue.Labels {
			if have[label] {
				continue
			}
			if err := store.AddLabel(ctx, issue.ID, label, "import"); err != nil {
				if opts.Strict {
					return errs.Wrap(errs.CodeIOFailed, "failed to add label "+label+" to "+issue.ID, err)
				}
			}
		}
	}
	return nil
}

func importComments(ctx context.Context, store storage.Storage, issues []*types.Issue, opts Options) error {
	for _, issue := range issues {
		if len(issue.Comments) == 0 {
			continue
		}
		existing, err := store.GetIssueComments(ctx, issue.ID)
		if err != nil {
			return errs.Wrap(errs.CodeIOFailed, "failed to read comments of "+issue.ID, err)
		}
		have := make(map[string]bool, len(existing))
		for _, c := range existing {
			have[c.Author+":"+strings.TrimSpace(c.Text)] = true
		}
		for _, c := range issue.Comments {
			key := c.Author + ":" + strings.TrimSpace(c.Text)
			if have[key] {
				continue
			}
			if _, err := store.AddIssueComment(ctx, issue.ID, c.Author, c.Text); err != nil {
				if opts.Strict {
					return errs.Wrap(errs.CodeIOFailed, "failed to add comment to "+issue.ID, err)
				}
			}
		}
	}
	return nil
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
