// Package sync implements the export engine (component G) and import
// engine (component H): the deterministic, atomic bridge between the
// SQLite store and the JSONL file that git actually tracks.
//
// Grounded on the logic embedded in ttrei-beads/cmd/bd/main.go's
// autoflush.go (writeJSONLAtomic, flushToJSONL) and autoimport.go
// (autoImportIfNewer), extracted into a standalone library package per
// spec.md §4.G/§4.H so the CLI layer is a thin caller rather than the
// home of the sync algorithm. Atomic rename and the PID-tagged temp
// file (named <target>.<pid>.tmp) come from the teacher; file locking via
// github.com/gofrs/flock is new, guarding the rename against a second
// bd process exporting concurrently (the teacher relies on its daemon's
// single-writer serialization instead, which this module doesn't have).
package sync

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/steveyegge/beads/internal/contenthash"
	"github.com/steveyegge/beads/internal/errs"
	"github.com/steveyegge/beads/internal/pathsafety"
	"github.com/steveyegge/beads/internal/storage"
	"github.com/steveyegge/beads/internal/types"
)

// ExportResult summarizes one export run.
type ExportResult struct {
	Exported []string // issue IDs written to the file
	Skipped  []string // dirty issues whose content hash was unchanged (timestamp-only)
	FileHash string   // sha256 of the written file, recorded for the next import's staleness check
}

// Export flushes dirty issues to jsonlPath, merging them into the
// file's existing content, and clears their dirty marks on success.
// Pass full=true to rebuild the file from the complete issue set (used
// after an ID-changing operation like a prefix rename); full=false
// performs the default incremental export of only GetDirtyIssues().
func Export(ctx context.Context, store storage.Storage, jsonlPath, beadsDir string, allowExternal, full bool) (*ExportResult, error) {
	validated, err := pathsafety.Validate(jsonlPath, beadsDir, allowExternal)
	if err != nil {
		return nil, err
	}
	jsonlPath = validated.String()

	var targetIDs []string
	if full {
		all, err := store.AllIssueIDs(ctx)
		if err != nil {
			return nil, errs.Wrap(errs.CodeIOFailed, "failed to list issues for full export", err)
		}
		targetIDs = all
	} else {
		dirty, err := store.GetDirtyIssues(ctx)
		if err != nil {
			return nil, errs.Wrap(errs.CodeIOFailed, "failed to list dirty issues", err)
		}
		if len(dirty) == 0 {
			return &ExportResult{}, nil
		}
		targetIDs = dirty
	}

	merged := make(map[string]*types.Issue)
	if !full {
		if existing, err := os.Open(jsonlPath); err == nil {
			scanner := bufio.NewScanner(existing)
			scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				var issue types.Issue
				if jsonErr := json.Unmarshal([]byte(line), &issue); jsonErr == nil {
					merged[issue.ID] = &issue
				}
			}
			_ = existing.Close()
		}
	}

	result := &ExportResult{}
	for _, id := range targetIDs {
		issue, err := store.GetIssue(ctx, id)
		if err != nil {
			return nil, errs.Wrap(errs.CodeIOFailed, "failed to read issue "+id+" for export", err)
		}
		if issue == nil {
			delete(merged, id)
			continue
		}

		currentHash := contenthash.Compute(issue)
		storedHash, err := store.GetExportHash(ctx, id)
		if err != nil {
			return nil, errs.Wrap(errs.CodeIOFailed, "failed to read export hash for "+id, err)
		}
		if !full && storedHash == currentHash {
			result.Skipped = append(result.Skipped, id)
			continue
		}

		merged[id] = issue
		if err := store.SetExportHash(ctx, id, currentHash); err != nil {
			return nil, errs.Wrap(errs.CodeIOFailed, "failed to record export hash for "+id, err)
		}
		result.Exported = append(result.Exported, id)
	}

	if len(result.Exported) == 0 {
		return result, nil
	}

	fileHash, err := writeJSONLAtomic(jsonlPath, beadsDir, allowExternal, merged)
	if err != nil {
		return nil, err
	}
	result.FileHash = fileHash

	if err := store.SetJSONLFileHash(ctx, fileHash); err != nil {
		return nil, errs.Wrap(errs.CodeIOFailed, "failed to record JSONL file hash", err)
	}
	if !full {
		if err := store.ClearDirtyIssuesByID(ctx, result.Exported); err != nil {
			return nil, errs.Wrap(errs.CodeIOFailed, "failed to clear dirty marks", err)
		}
	} else {
		if err := store.ClearDirtyIssues(ctx); err != nil {
			return nil, errs.Wrap(errs.CodeIOFailed, "failed to clear dirty marks", err)
		}
	}

	return result, nil
}

// writeJSONLAtomic writes issues (keyed by ID) to jsonlPath sorted by
// ID, via a PID-tagged temp file ending in .tmp and atomic rename, and returns the
// sha256 of the final file content. A file lock guards the rename
// against a concurrent exporter.
func writeJSONLAtomic(jsonlPath, beadsDir string, allowExternal bool, issues map[string]*types.Issue) (string, error) {
	sorted := make([]*types.Issue, 0, len(issues))
	for _, issue := range issues {
		sorted = append(sorted, issue)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	tempPath := fmt.Sprintf("%s.%d.tmp", jsonlPath, os.Getpid())
	if _, err := pathsafety.ValidateTempFile(tempPath, jsonlPath, beadsDir, allowExternal); err != nil {
		return "", err
	}

	f, err := os.Create(tempPath)
	if err != nil {
		return "", errs.Wrap(errs.CodeIOFailed, "failed to create temp export file", err)
	}
	cleanTemp := true
	defer func() {
		if cleanTemp {
			_ = f.Close()
			_ = os.Remove(tempPath)
		}
	}()

	hasher := sha256.New()
	writer := bufio.NewWriter(f)
	encoder := json.NewEncoder(writer)
	for _, issue := range sorted {
		line, err := json.Marshal(issue)
		if err != nil {
			return "", errs.Wrap(errs.CodeIOFailed, "failed to marshal issue "+issue.ID, err)
		}
		hasher.Write(line)
		hasher.Write([]byte{'\n'})
		if err := encoder.Encode(issue); err != nil {
			return "", errs.Wrap(errs.CodeIOFailed, "failed to write issue "+issue.ID, err)
		}
	}
	if err := writer.Flush(); err != nil {
		return "", errs.Wrap(errs.CodeIOFailed, "failed to flush export file", err)
	}
	if err := f.Close(); err != nil {
		return "", errs.Wrap(errs.CodeIOFailed, "failed to close temp export file", err)
	}
	cleanTemp = false

	lockCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	lock := flock.New(jsonlPath + ".lock")
	locked, err := lock.TryLockContext(lockCtx, 50*time.Millisecond)
	if err != nil || !locked {
		_ = os.Remove(tempPath)
		return "", errs.New(errs.CodeIOFailed, "could not acquire export lock, another sync is in progress")
	}
	defer func() { _ = lock.Unlock() }()

	if err := os.Rename(tempPath, jsonlPath); err != nil {
		_ = os.Remove(tempPath)
		return "", errs.Wrap(errs.CodeIOFailed, "failed to rename export file into place", err)
	}
	_ = os.Chmod(jsonlPath, 0644)

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
