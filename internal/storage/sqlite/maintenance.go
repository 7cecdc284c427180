// Package sqlite - rare-path maintenance operations: ID renames and
// prefix migrations.
//
// Grounded on ttrei-beads/internal/storage/sqlite/sqlite.go's
// UpdateIssueID (disables foreign_keys on a dedicated connection so the
// rename can touch every referencing table before the PRIMARY KEY
// changes, then re-enables it) and RenameCounterPrefix (moves a
// hierarchical-ID counter's high-water mark to a new prefix). The
// teacher's RenameDependencyPrefix is a no-op stub since dependency
// rows reference issue IDs directly rather than prefixes; kept as a
// no-op here for the same reason.
package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/steveyegge/beads/internal/errs"
	"github.com/steveyegge/beads/internal/types"
)

// UpdateIssueID renames issue oldID to newID, rewriting every table
// that references it by ID. Used by the import engine's collision
// remapping, never in the normal create/update path.
func (s *SQLiteStorage) UpdateIssueID(ctx context.Context, oldID, newID string, issue *types.Issue, actor string) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return errs.Wrap(errs.CodeDatabaseConnection, "failed to acquire connection", err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.ExecContext(ctx, `PRAGMA foreign_keys = OFF`); err != nil {
		return errs.Wrap(errs.CodeInternal, "failed to disable foreign keys", err)
	}
	defer func() { _, _ = conn.ExecContext(context.Background(), `PRAGMA foreign_keys = ON`) }()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.CodeDatabaseConnection, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		UPDATE issues
		SET id = ?, title = ?, description = ?, design = ?, acceptance_criteria = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`, newID, issue.Title, issue.Description, issue.Design, issue.AcceptanceCriteria, issue.Notes, time.Now(), oldID)
	if err != nil {
		return errs.Wrap(errs.CodeInternal, "failed to rename issue", err)
	}

	renameTables := []struct{ table, column string }{
		{"dependencies", "issue_id"}, {"dependencies", "depends_on_id"},
		{"events", "issue_id"}, {"labels", "issue_id"}, {"comments", "issue_id"},
		{"dirty_issues", "issue_id"}, {"export_hashes", "issue_id"}, {"blocked_cache", "issue_id"},
	}
	for _, r := range renameTables {
		if _, err := tx.ExecContext(ctx, `UPDATE `+r.table+` SET `+r.column+` = ? WHERE `+r.column+` = ?`, newID, oldID); err != nil {
			return errs.Wrap(errs.CodeInternal, "failed to rename references in "+r.table, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO dirty_issues (issue_id, marked_at) VALUES (?, ?)
		ON CONFLICT(issue_id) DO UPDATE SET marked_at = excluded.marked_at
	`, newID, time.Now())
	if err != nil {
		return errs.Wrap(errs.CodeInternal, "failed to mark renamed issue dirty", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO events (issue_id, event_type, actor, old_value, new_value)
		VALUES (?, 'renamed', ?, ?, ?)
	`, newID, actor, oldID, newID)
	if err != nil {
		return errs.Wrap(errs.CodeInternal, "failed to record rename event", err)
	}

	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.CodeInternal, "failed to commit rename", err)
	}
	return nil
}

// RenameDependencyPrefix is a no-op: dependency rows reference full
// issue IDs directly, so renaming a prefix has nothing to rewrite here
// (UpdateIssueID already moved every dependency row that referenced the
// renamed issue).
func (s *SQLiteStorage) RenameDependencyPrefix(ctx context.Context, oldPrefix, newPrefix string) error {
	return nil
}

// RenameCounterPrefix moves a hierarchical-ID counter's high-water mark
// from oldPrefix to newPrefix, preserving the higher of the two if both
// already have counters.
func (s *SQLiteStorage) RenameCounterPrefix(ctx context.Context, oldPrefix, newPrefix string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.CodeDatabaseConnection, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	var lastID int
	err = tx.QueryRowContext(ctx, `SELECT last_id FROM issue_counters WHERE prefix = ?`, oldPrefix).Scan(&lastID)
	if err != nil && err != sql.ErrNoRows {
		return errs.Wrap(errs.CodeInternal, "failed to get old counter", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM issue_counters WHERE prefix = ?`, oldPrefix); err != nil {
		return errs.Wrap(errs.CodeInternal, "failed to delete old counter", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO issue_counters (prefix, last_id) VALUES (?, ?)
		ON CONFLICT(prefix) DO UPDATE SET last_id = MAX(last_id, excluded.last_id)
	`, newPrefix, lastID)
	if err != nil {
		return errs.Wrap(errs.CodeInternal, "failed to create new counter", err)
	}

	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.CodeInternal, "failed to commit", err)
	}
	return nil
}
