// Package sqlite implements issue CRUD for the SQLite storage backend
// (component D).
//
// Grounded on ttrei-beads/internal/storage/sqlite/issues.go's
// insertIssue/insertIssues prepared-statement shape and sqlite.go's
// CreateIssue method, widened to the full column set SPEC_FULL.md's
// data model adds and routed through withMutation/mutationContext
// instead of the teacher's inline per-method transaction handling.
// DeleteIssue replaces the teacher's hard DELETE with a tombstone
// (status=tombstone, deleted_at/by/reason set, original_type
// preserved) per spec.md §4.D's soft-delete requirement; RestoreIssue
// is the corresponding reversal.
package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/steveyegge/beads/internal/contenthash"
	"github.com/steveyegge/beads/internal/errs"
	"github.com/steveyegge/beads/internal/types"
)

// issueSelectColumns is the common column list + alias prefix every
// issue-returning query in this package selects, in the order
// scanIssues expects.
const issueSelectColumns = `
	SELECT i.id, i.content_hash, i.title, i.description, i.design, i.acceptance_criteria, i.notes,
	       i.status, i.priority, i.issue_type, i.assignee, i.owner, i.sender, i.estimated_minutes,
	       i.ephemeral, i.pinned, i.is_template, i.external_ref, i.due_date, i.defer_until,
	       i.created_at, i.updated_at, i.closed_at, i.closed_reason, i.closed_session,
	       i.deleted_at, i.deleted_by, i.delete_reason, i.original_type,
	       i.compaction_level, i.compacted_at, i.compacted_at_commit, i.original_size
`

func scanIssueRow(scan func(...interface{}) error) (*types.Issue, error) {
	var issue types.Issue
	var assignee, owner, sender, externalRef, closedReason, closedSession sql.NullString
	var deletedBy, deleteReason, originalType, compactedAtCommit sql.NullString
	var estimatedMinutes, originalSize sql.NullInt64
	var ephemeral, pinned, isTemplate int
	var dueDate, deferUntil, closedAt, deletedAt, compactedAt sql.NullTime

	err := scan(
		&issue.ID, &issue.ContentHash, &issue.Title, &issue.Description, &issue.Design,
		&issue.AcceptanceCriteria, &issue.Notes, &issue.Status, &issue.Priority, &issue.IssueType,
		&assignee, &owner, &sender, &estimatedMinutes,
		&ephemeral, &pinned, &isTemplate, &externalRef, &dueDate, &deferUntil,
		&issue.CreatedAt, &issue.UpdatedAt, &closedAt, &closedReason, &closedSession,
		&deletedAt, &deletedBy, &deleteReason, &originalType,
		&issue.CompactionLevel, &compactedAt, &compactedAtCommit, &originalSize,
	)
	if err != nil {
		return nil, err
	}

	issue.Assignee, issue.Owner, issue.Sender = assignee.String, owner.String, sender.String
	issue.ClosedReason = closedReason.String
	issue.DeletedBy, issue.DeleteReason, issue.OriginalType = deletedBy.String, deleteReason.String, originalType.String
	issue.Ephemeral, issue.Pinned, issue.IsTemplate = ephemeral != 0, pinned != 0, isTemplate != 0
	if externalRef.Valid {
		issue.ExternalRef = &externalRef.String
	}
	if closedSession.Valid {
		issue.ClosedSession = &closedSession.String
	}
	if compactedAtCommit.Valid {
		issue.CompactedAtCommit = &compactedAtCommit.String
	}
	if estimatedMinutes.Valid {
		v := int(estimatedMinutes.Int64)
		issue.EstimatedMinutes = &v
	}
	if originalSize.Valid {
		issue.OriginalSize = int(originalSize.Int64)
	}
	if dueDate.Valid {
		issue.DueDate = &dueDate.Time
	}
	if deferUntil.Valid {
		issue.DeferUntil = &deferUntil.Time
	}
	if closedAt.Valid {
		issue.ClosedAt = &closedAt.Time
	}
	if deletedAt.Valid {
		issue.DeletedAt = &deletedAt.Time
	}
	if compactedAt.Valid {
		issue.CompactedAt = &compactedAt.Time
	}
	return &issue, nil
}

func scanIssues(rows *sql.Rows) ([]*types.Issue, error) {
	var issues []*types.Issue
	for rows.Next() {
		issue, err := scanIssueRow(rows.Scan)
		if err != nil {
			return nil, errs.Wrap(errs.CodeInternal, "failed to scan issue", err)
		}
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}

const issueInsertColumns = `
	id, content_hash, title, description, design, acceptance_criteria, notes,
	status, priority, issue_type, assignee, owner, sender, estimated_minutes,
	ephemeral, pinned, is_template, external_ref, due_date, defer_until,
	created_at, updated_at, closed_at, closed_reason, closed_session
`

const issueInsertPlaceholders = `?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?`

func issueInsertArgs(issue *types.Issue) []interface{} {
	return []interface{}{
		issue.ID, issue.ContentHash, issue.Title, issue.Description, issue.Design,
		issue.AcceptanceCriteria, issue.Notes, issue.Status, issue.Priority, issue.IssueType,
		issue.Assignee, issue.Owner, issue.Sender, issue.EstimatedMinutes,
		issue.Ephemeral, issue.Pinned, issue.IsTemplate, issue.ExternalRef, issue.DueDate, issue.DeferUntil,
		issue.CreatedAt, issue.UpdatedAt, issue.ClosedAt, issue.ClosedReason, issue.ClosedSession,
	}
}

// CreateIssue validates, hashes, timestamps, assigns an ID if missing,
// and inserts a single issue, recording its creation event.
func (s *SQLiteStorage) CreateIssue(ctx context.Context, issue *types.Issue, actor string) error {
	if err := issue.Validate(); err != nil {
		return errs.Wrap(errs.CodeValidationFailed, err.Error(), err)
	}

	return s.withMutation(ctx, actor, func(mc *mutationContext) error {
		now := time.Now()
		if issue.CreatedAt.IsZero() {
			issue.CreatedAt = now
		}
		issue.UpdatedAt = now

		if issue.ID == "" {
			prefix, err := configPrefix(ctx, mc.conn, s.dbPath)
			if err != nil {
				return err
			}
			id, err := generateIssueIDTx(ctx, mc.conn, prefix, issue.Title, issue.Description, actor, issue.CreatedAt)
			if err != nil {
				return err
			}
			issue.ID = id
		}
		issue.ContentHash = contenthash.Compute(issue)

		stmt := `INSERT INTO issues (` + issueInsertColumns + `) VALUES (` + issueInsertPlaceholders + `)`
		if _, err := mc.conn.ExecContext(ctx, stmt, issueInsertArgs(issue)...); err != nil {
			if IsUniqueConstraintError(err) {
				return errs.New(errs.CodeIssueConflict, "issue id already exists: "+issue.ID)
			}
			return errs.Wrap(errs.CodeInternal, "failed to insert issue", err)
		}

		for _, label := range issue.Labels {
			if _, err := mc.conn.ExecContext(ctx, `INSERT INTO labels (issue_id, label) VALUES (?, ?)`, issue.ID, label); err != nil {
				return errs.Wrap(errs.CodeInternal, "failed to insert label", err)
			}
		}

		if err := mc.event(issue.ID, types.EventCreated, nil, nil, nil); err != nil {
			return err
		}
		mc.markDirty(issue.ID)
		return nil
	})
}

// CreateIssues bulk-inserts issues in a single transaction.
func (s *SQLiteStorage) CreateIssues(ctx context.Context, issues []*types.Issue, actor string) error {
	return s.withMutation(ctx, actor, func(mc *mutationContext) error {
		stmt, err := mc.conn.PrepareContext(ctx, `INSERT INTO issues (`+issueInsertColumns+`) VALUES (`+issueInsertPlaceholders+`)`)
		if err != nil {
			return errs.Wrap(errs.CodeInternal, "failed to prepare bulk insert", err)
		}
		defer func() { _ = stmt.Close() }()

		now := time.Now()
		for _, issue := range issues {
			if err := issue.Validate(); err != nil {
				return errs.Wrap(errs.CodeValidationFailed, "issue "+issue.ID+": "+err.Error(), err)
			}
			if issue.CreatedAt.IsZero() {
				issue.CreatedAt = now
			}
			issue.UpdatedAt = now
			issue.ContentHash = contenthash.Compute(issue)

			if _, err := stmt.ExecContext(ctx, issueInsertArgs(issue)...); err != nil {
				if IsUniqueConstraintError(err) {
					return errs.New(errs.CodeIssueConflict, "issue id already exists: "+issue.ID)
				}
				return errs.Wrap(errs.CodeInternal, "failed to insert issue "+issue.ID, err)
			}
			if err := mc.event(issue.ID, types.EventCreated, nil, nil, nil); err != nil {
				return err
			}
			mc.markDirty(issue.ID)
		}
		return nil
	})
}

// GetIssue returns a single issue by exact ID, including its labels.
func (s *SQLiteStorage) GetIssue(ctx context.Context, id string) (*types.Issue, error) {
	row := s.db.QueryRowContext(ctx, issueSelectColumns+`FROM issues i WHERE i.id = ?`, id)
	issue, err := scanIssueRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to get issue", err)
	}

	labels, err := s.GetLabels(ctx, id)
	if err != nil {
		return nil, err
	}
	issue.Labels = labels
	return issue, nil
}

// UpdateIssue applies a partial field update, recomputes the content
// hash, and records a status_changed/updated event as appropriate.
func (s *SQLiteStorage) UpdateIssue(ctx context.Context, id string, updates map[string]interface{}, actor string) error {
	if len(updates) == 0 {
		return nil
	}
	for key, value := range updates {
		if err := validateFieldUpdate(key, value); err != nil {
			return errs.Wrap(errs.CodeValidationFailed, err.Error(), err)
		}
	}

	return s.withMutation(ctx, actor, func(mc *mutationContext) error {
		issue, err := s.GetIssue(ctx, id)
		if err != nil {
			return err
		}
		if issue == nil {
			return errs.New(errs.CodeIssueNotFound, "issue "+id+" not found")
		}

		setClauses := make([]string, 0, len(updates))
		args := make([]interface{}, 0, len(updates)+1)
		var statusChanged bool
		var oldStatus string
		for key, value := range updates {
			if key == "status" {
				statusChanged = true
				oldStatus = string(issue.Status)
				if _, explicit := updates["closed_at"]; !explicit {
					if value == string(types.StatusClosed) || value == types.StatusClosed {
						setClauses = append(setClauses, "closed_at = ?")
						args = append(args, time.Now())
					} else if issue.Status == types.StatusClosed {
						setClauses = append(setClauses, "closed_at = NULL")
					}
				}
			}
			setClauses = append(setClauses, key+" = ?")
			args = append(args, value)
		}
		setClauses = append(setClauses, "updated_at = ?")
		args = append(args, time.Now())
		args = append(args, id)

		stmt := "UPDATE issues SET " + strings.Join(setClauses, ", ") + " WHERE id = ?"
		if _, err := mc.conn.ExecContext(ctx, stmt, args...); err != nil {
			return errs.Wrap(errs.CodeInternal, "failed to update issue", err)
		}

		updated, err := scanIssueRow(mc.conn.QueryRowContext(ctx, issueSelectColumns+`FROM issues i WHERE i.id = ?`, id).Scan)
		if err != nil {
			return errs.Wrap(errs.CodeInternal, "failed to reload updated issue", err)
		}
		newHash := contenthash.Compute(updated)
		if _, err := mc.conn.ExecContext(ctx, `UPDATE issues SET content_hash = ? WHERE id = ?`, newHash, id); err != nil {
			return errs.Wrap(errs.CodeInternal, "failed to update content hash", err)
		}

		if statusChanged {
			newStatus := string(updated.Status)
			if err := mc.event(id, types.EventStatusChanged, &oldStatus, &newStatus, nil); err != nil {
				return err
			}
			mc.markBlockingChanged()
		} else if err := mc.event(id, types.EventUpdated, nil, nil, nil); err != nil {
			return err
		}
		mc.markDirty(id)
		return nil
	})
}

// CloseIssue marks an issue closed with a reason and optional session
// identifier, refusing to re-close an already-closed or tombstoned
// issue.
func (s *SQLiteStorage) CloseIssue(ctx context.Context, id, reason, session, actor string) error {
	return s.withMutation(ctx, actor, func(mc *mutationContext) error {
		issue, err := s.GetIssue(ctx, id)
		if err != nil {
			return err
		}
		if issue == nil {
			return errs.New(errs.CodeIssueNotFound, "issue "+id+" not found")
		}
		if issue.Status == types.StatusClosed {
			return errs.New(errs.CodeAlreadyClosed, "issue "+id+" is already closed")
		}
		if issue.Status == types.StatusTombstone {
			return errs.New(errs.CodeAlreadyDeleted, "issue "+id+" is deleted")
		}

		now := time.Now()
		var sessionArg interface{}
		if session != "" {
			sessionArg = session
		}
		_, err = mc.conn.ExecContext(ctx, `
			UPDATE issues SET status = ?, closed_at = ?, closed_reason = ?, closed_session = ?, updated_at = ?
			WHERE id = ?
		`, types.StatusClosed, now, reason, sessionArg, now, id)
		if err != nil {
			return errs.Wrap(errs.CodeInternal, "failed to close issue", err)
		}

		oldStatus := string(issue.Status)
		newStatus := string(types.StatusClosed)
		if err := mc.event(id, types.EventClosed, &oldStatus, &newStatus, &reason); err != nil {
			return err
		}
		mc.markDirty(id)
		mc.markBlockingChanged()
		return nil
	})
}

// DeleteIssue soft-deletes an issue into a tombstone, preserving its
// original type for later inspection, per spec.md §4.D.
func (s *SQLiteStorage) DeleteIssue(ctx context.Context, id, reason, actor string) error {
	return s.withMutation(ctx, actor, func(mc *mutationContext) error {
		issue, err := s.GetIssue(ctx, id)
		if err != nil {
			return err
		}
		if issue == nil {
			return errs.New(errs.CodeIssueNotFound, "issue "+id+" not found")
		}
		if issue.Status == types.StatusTombstone {
			return errs.New(errs.CodeAlreadyDeleted, "issue "+id+" is already deleted")
		}

		now := time.Now()
		_, err = mc.conn.ExecContext(ctx, `
			UPDATE issues
			SET status = ?, deleted_at = ?, deleted_by = ?, delete_reason = ?, original_type = ?, updated_at = ?
			WHERE id = ?
		`, types.StatusTombstone, now, actor, reason, string(issue.IssueType), now, id)
		if err != nil {
			return errs.Wrap(errs.CodeInternal, "failed to delete issue", err)
		}

		oldStatus := string(issue.Status)
		newStatus := string(types.StatusTombstone)
		if err := mc.event(id, types.EventDeleted, &oldStatus, &newStatus, &reason); err != nil {
			return err
		}
		mc.markDirty(id)
		mc.markBlockingChanged()
		return nil
	})
}

// RestoreIssue reverses DeleteIssue, returning a tombstoned issue to
// its original type in open status.
func (s *SQLiteStorage) RestoreIssue(ctx context.Context, id, actor string) error {
	return s.withMutation(ctx, actor, func(mc *mutationContext) error {
		issue, err := s.GetIssue(ctx, id)
		if err != nil {
			return err
		}
		if issue == nil {
			return errs.New(errs.CodeIssueNotFound, "issue "+id+" not found")
		}
		if issue.Status != types.StatusTombstone {
			return errs.New(errs.CodeValidationFailed, "issue "+id+" is not deleted")
		}

		restoredType := issue.OriginalType
		if restoredType == "" {
			restoredType = string(types.TypeTask)
		}
		now := time.Now()
		_, err = mc.conn.ExecContext(ctx, `
			UPDATE issues
			SET status = ?, issue_type = ?, deleted_at = NULL, deleted_by = NULL,
			    delete_reason = NULL, original_type = NULL, updated_at = ?
			WHERE id = ?
		`, types.StatusOpen, restoredType, now, id)
		if err != nil {
			return errs.Wrap(errs.CodeInternal, "failed to restore issue", err)
		}

		oldStatus := string(types.StatusTombstone)
		newStatus := string(types.StatusOpen)
		if err := mc.event(id, types.EventRestored, &oldStatus, &newStatus, nil); err != nil {
			return err
		}
		mc.markDirty(id)
		mc.markBlockingChanged()
		return nil
	})
}

// SearchIssues runs a filtered, optionally full-text-searched query
// over the issue set (component F).
func (s *SQLiteStorage) SearchIssues(ctx context.Context, query string, filter types.IssueFilter) ([]*types.Issue, error) {
	where := []string{}
	args := []interface{}{}

	if !filter.IncludeClosed {
		where = append(where, "i.status NOT IN ('closed', 'tombstone')")
	} else {
		where = append(where, "i.status != 'tombstone'")
	}
	if !filter.IncludeTemplates {
		where = append(where, "i.is_template = 0")
	}
	if !filter.IncludeDeferred {
		where = append(where, "(i.defer_until IS NULL OR i.defer_until <= CURRENT_TIMESTAMP)")
	}
	if filter.Status != nil {
		where = append(where, "i.status = ?")
		args = append(args, *filter.Status)
	}
	if filter.Priority != nil {
		where = append(where, "i.priority = ?")
		args = append(args, *filter.Priority)
	}
	if filter.PriorityMin != nil {
		where = append(where, "i.priority >= ?")
		args = append(args, *filter.PriorityMin)
	}
	if filter.PriorityMax != nil {
		where = append(where, "i.priority <= ?")
		args = append(args, *filter.PriorityMax)
	}
	if filter.IssueType != nil {
		where = append(where, "i.issue_type = ?")
		args = append(args, *filter.IssueType)
	}
	if filter.Assignee != nil {
		where = append(where, "i.assignee = ?")
		args = append(args, *filter.Assignee)
	}
	if query != "" {
		where = append(where, "(i.title LIKE ? OR i.description LIKE ?)")
		args = append(args, "%"+query+"%", "%"+query+"%")
	}
	if len(filter.IDs) > 0 {
		placeholders := make([]string, len(filter.IDs))
		for i, id := range filter.IDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		where = append(where, "i.id IN ("+strings.Join(placeholders, ",")+")")
	}

	orderBy := "i.created_at DESC"
	switch filter.SortBy {
	case "priority":
		orderBy = "i.priority ASC, i.created_at ASC"
	case "updated":
		orderBy = "i.updated_at DESC"
	case "title":
		orderBy = "i.title ASC"
	case "created":
		orderBy = "i.created_at ASC"
	}
	if filter.SortDescending {
		orderBy = strings.ReplaceAll(orderBy, " ASC", " DESC")
	}

	limitSQL := ""
	if filter.Limit > 0 {
		limitSQL = " LIMIT ?"
		args = append(args, filter.Limit)
	}

	stmt := issueSelectColumns + `FROM issues i WHERE ` + strings.Join(where, " AND ") + ` ORDER BY ` + orderBy + limitSQL
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to search issues", err)
	}
	defer func() { _ = rows.Close() }()

	issues, err := scanIssues(rows)
	if err != nil {
		return nil, err
	}
	if len(filter.Labels) > 0 || len(filter.LabelsAny) > 0 {
		issues, err = s.filterByLabels(ctx, issues, filter.Labels, filter.LabelsAny)
		if err != nil {
			return nil, err
		}
	}
	return issues, nil
}

func (s *SQLiteStorage) filterByLabels(ctx context.Context, issues []*types.Issue, all, any []string) ([]*types.Issue, error) {
	var result []*types.Issue
	for _, issue := range issues {
		labels, err := s.GetLabels(ctx, issue.ID)
		if err != nil {
			return nil, err
		}
		labelSet := make(map[string]bool, len(labels))
		for _, l := range labels {
			labelSet[l] = true
		}
		if !hasAll(labelSet, all) {
			continue
		}
		if len(any) > 0 && !hasAny(labelSet, any) {
			continue
		}
		issue.Labels = labels
		result = append(result, issue)
	}
	return result, nil
}

func hasAll(set map[string]bool, want []string) bool {
	for _, w := range want {
		if !set[w] {
			return false
		}
	}
	return true
}

func hasAny(set map[string]bool, want []string) bool {
	for _, w := range want {
		if set[w] {
			return true
		}
	}
	return false
}

// AllIssueIDs returns every issue ID (including tombstones), feeding
// the ID resolver's (component C) suffix-match candidate list.
func (s *SQLiteStorage) AllIssueIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM issues`)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to list issue ids", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errs.Wrap(errs.CodeInternal, "failed to scan issue id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
