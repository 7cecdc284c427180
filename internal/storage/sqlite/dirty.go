// Package sqlite - dirty-issue tracking feeding incremental JSONL
// export (component G).
//
// Grounded on ttrei-beads/internal/storage/sqlite/dirty.go's
// dirty_issues table and ON CONFLICT upsert idiom. Marking dirty within
// a mutation is now mutationContext.markDirty/flushDirty
// (mutation.go); this file keeps the read-side and post-export-clear
// operations the export engine calls directly, outside any mutation.
package sqlite

import (
	"context"

	"github.com/steveyegge/beads/internal/errs"
)

// GetDirtyIssues returns every issue ID queued for export, oldest mark
// first.
func (s *SQLiteStorage) GetDirtyIssues(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT issue_id FROM dirty_issues ORDER BY marked_at ASC`)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to get dirty issues", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errs.Wrap(errs.CodeInternal, "failed to scan dirty issue id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ClearDirtyIssues empties the dirty set unconditionally. Prefer
// ClearDirtyIssuesByID after an export, since a concurrent mutation
// between the export read and this call would otherwise have its dirty
// mark silently dropped.
func (s *SQLiteStorage) ClearDirtyIssues(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM dirty_issues`); err != nil {
		return errs.Wrap(errs.CodeInternal, "failed to clear dirty issues", err)
	}
	return nil
}

// ClearDirtyIssuesByID removes exactly the given issue IDs from the
// dirty set, so a mutation that lands after the export's read but
// before this call keeps its mark.
func (s *SQLiteStorage) ClearDirtyIssuesByID(ctx context.Context, issueIDs []string) error {
	if len(issueIDs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.CodeDatabaseConnection, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM dirty_issues WHERE issue_id = ?`)
	if err != nil {
		return errs.Wrap(errs.CodeInternal, "failed to prepare delete", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, id := range issueIDs {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return errs.Wrap(errs.CodeInternal, "failed to clear dirty issue "+id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.CodeInternal, "failed to commit", err)
	}
	return nil
}
