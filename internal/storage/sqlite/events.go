// Package sqlite - audit events, comments, and aggregate statistics.
//
// Grounded on ttrei-beads/internal/storage/sqlite/events.go: GetEvents'
// column scan and limit clause are kept; AddComment's inline event-insert
// is generalized into AddEvent (now exposed directly on the Storage
// interface rather than folded into comment-adding only), and
// structured comments move to their own table (migrateCommentsTable)
// instead of being represented as "commented" events, since spec.md
// models comments and the audit trail as separate constructs.
// GetStatistics keeps the teacher's aggregate-query shape, with the
// blocked/ready counts read from blocked_cache instead of recomputed.
package sqlite

import (
	"context"
	"database/sql"

	"github.com/steveyegge/beads/internal/errs"
	"github.com/steveyegge/beads/internal/types"
)

const limitClause = " LIMIT ?"

// AddEvent records a single audit-trail entry directly, outside any
// other mutation. Most mutations instead go through
// mutationContext.event so the event commits atomically with its
// mutation; this is for standalone annotations (e.g. a sync engine
// recording an import-time note).
func (s *SQLiteStorage) AddEvent(ctx context.Context, issueID string, eventType types.EventType, actor string, oldValue, newValue, comment *string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (issue_id, event_type, actor, old_value, new_value, comment)
		VALUES (?, ?, ?, ?, ?, ?)
	`, issueID, eventType, actor, oldValue, newValue, comment)
	if err != nil {
		return errs.Wrap(errs.CodeInternal, "failed to record event", err)
	}
	return nil
}

// GetEvents returns issueID's audit trail, newest first, optionally
// capped at limit entries.
func (s *SQLiteStorage) GetEvents(ctx context.Context, issueID string, limit int) ([]*types.Event, error) {
	args := []interface{}{issueID}
	limitSQL := ""
	if limit > 0 {
		limitSQL = limitClause
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, issue_id, event_type, actor, old_value, new_value, comment, created_at
		FROM events
		WHERE issue_id = ?
		ORDER BY created_at DESC
	`+limitSQL, args...)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to get events", err)
	}
	defer func() { _ = rows.Close() }()

	var events []*types.Event
	for rows.Next() {
		var event types.Event
		var oldValue, newValue, comment sql.NullString

		if err := rows.Scan(&event.ID, &event.IssueID, &event.EventType, &event.Actor, &oldValue, &newValue, &comment, &event.CreatedAt); err != nil {
			return nil, errs.Wrap(errs.CodeInternal, "failed to scan event", err)
		}
		if oldValue.Valid {
			event.OldValue = &oldValue.String
		}
		if newValue.Valid {
			event.NewValue = &newValue.String
		}
		if comment.Valid {
			event.Comment = &comment.String
		}
		events = append(events, &event)
	}
	return events, rows.Err()
}

// AddIssueComment appends a comment to issueID's comment thread and
// records a commented event.
func (s *SQLiteStorage) AddIssueComment(ctx context.Context, issueID, author, text string) (*types.Comment, error) {
	var comment types.Comment
	err := s.withMutation(ctx, author, func(mc *mutationContext) error {
		res, err := mc.conn.ExecContext(ctx, `
			INSERT INTO comments (issue_id, author, text) VALUES (?, ?, ?)
		`, issueID, author, text)
		if err != nil {
			return errs.Wrap(errs.CodeInternal, "failed to add comment", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return errs.Wrap(errs.CodeInternal, "failed to read comment id", err)
		}

		row := mc.conn.QueryRowContext(ctx, `SELECT id, issue_id, author, text, created_at FROM comments WHERE id = ?`, id)
		if err := row.Scan(&comment.ID, &comment.IssueID, &comment.Author, &comment.Text, &comment.CreatedAt); err != nil {
			return errs.Wrap(errs.CodeInternal, "failed to read back comment", err)
		}

		if err := mc.event(issueID, types.EventCommented, nil, nil, &text); err != nil {
			return err
		}
		mc.markDirty(issueID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// GetIssueComments returns issueID's comments, oldest first.
func (s *SQLiteStorage) GetIssueComments(ctx context.Context, issueID string) ([]*types.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, issue_id, author, text, created_at FROM comments WHERE issue_id = ? ORDER BY created_at ASC
	`, issueID)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to get comments", err)
	}
	defer func() { _ = rows.Close() }()

	var comments []*types.Comment
	for rows.Next() {
		var c types.Comment
		if err := rows.Scan(&c.ID, &c.IssueID, &c.Author, &c.Text, &c.CreatedAt); err != nil {
			return nil, errs.Wrap(errs.CodeInternal, "failed to scan comment", err)
		}
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}

// GetStatistics computes aggregate metrics over the whole issue set.
func (s *SQLiteStorage) GetStatistics(ctx context.Context) (*types.Statistics, error) {
	var stats types.Statistics

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'open' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'in_progress' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'closed' THEN 1 ELSE 0 END), 0)
		FROM issues
		WHERE status != 'tombstone'
	`).Scan(&stats.TotalIssues, &stats.OpenIssues, &stats.InProgressIssues, &stats.ClosedIssues)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to get issue counts", err)
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blocked_cache`).Scan(&stats.BlockedIssues); err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to get blocked count", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM issues i
		WHERE i.status IN ('open', 'in_progress')
		  AND NOT EXISTS (SELECT 1 FROM blocked_cache bc WHERE bc.issue_id = i.id)
	`).Scan(&stats.ReadyIssues)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to get ready count", err)
	}

	var avgLeadTime sql.NullFloat64
	err = s.db.QueryRowContext(ctx, `
		SELECT AVG((julianday(closed_at) - julianday(created_at)) * 24)
		FROM issues WHERE closed_at IS NOT NULL
	`).Scan(&avgLeadTime)
	if err != nil && err != sql.ErrNoRows {
		return nil, errs.Wrap(errs.CodeInternal, "failed to get lead time", err)
	}
	if avgLeadTime.Valid {
		stats.AverageLeadTime = avgLeadTime.Float64
	}

	err = s.db.QueryRowContext(ctx, `
		WITH epic_children AS (
			SELECT d.depends_on_id AS epic_id, i.status AS child_status
			FROM dependencies d
			JOIN issues i ON i.id = d.issue_id
			WHERE d.type = 'parent-child'
		),
		epic_stats AS (
			SELECT epic_id, COUNT(*) AS total_children,
			       SUM(CASE WHEN child_status = 'closed' THEN 1 ELSE 0 END) AS closed_children
			FROM epic_children
			GROUP BY epic_id
		)
		SELECT COUNT(*)
		FROM issues i
		JOIN epic_stats es ON es.epic_id = i.id
		WHERE i.issue_type = 'epic'
		  AND i.status != 'closed'
		  AND es.total_children > 0
		  AND es.closed_children = es.total_children
	`).Scan(&stats.EpicsEligibleForClosure)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to get eligible epics count", err)
	}

	return &stats, nil
}
