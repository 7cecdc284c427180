// Package sqlite - ready-work, blocked, epic-closure, and staleness
// queries (component F).
//
// Grounded on ttrei-beads/internal/storage/sqlite/ready.go: the
// WorkFilter-driven WHERE/ORDER BY/LIMIT assembly and buildOrderByClause
// are kept, but the per-query "WITH RECURSIVE blocked_transitively" CTE
// is replaced by a join against the blocked_cache table the dependency
// graph engine (dependencies.go's rebuildBlockedCacheTx) maintains, so
// a read is a plain indexed lookup instead of a recomputation.
//
// buildOrderByClause's Hybrid case diverges from the teacher's: the
// teacher's Hybrid sorts by a rolling 48-hour "is this issue recent"
// window, but spec.md defines Hybrid as a literal priority-tier split —
// all P0/P1 issues first (by creation ascending), then everything else
// (also by creation ascending) — so that is what this implements.
package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/steveyegge/beads/internal/errs"
	"github.com/steveyegge/beads/internal/types"
)

// GetReadyWork returns issues with no open blockers, honoring filter's
// priority/assignee/sort/limit/defer constraints.
func (s *SQLiteStorage) GetReadyWork(ctx context.Context, filter types.WorkFilter) ([]*types.Issue, error) {
	where := []string{"i.status IN ('open', 'in_progress')"}
	args := []interface{}{}

	if filter.Priority != nil {
		where = append(where, "i.priority = ?")
		args = append(args, *filter.Priority)
	}
	if filter.Assignee != nil {
		where = append(where, "i.assignee = ?")
		args = append(args, *filter.Assignee)
	}
	if !filter.IncludeDeferred {
		where = append(where, "(i.defer_until IS NULL OR i.defer_until <= CURRENT_TIMESTAMP)")
	}

	limitSQL := ""
	if filter.Limit > 0 {
		limitSQL = " LIMIT ?"
		args = append(args, filter.Limit)
	}

	sortPolicy := filter.SortPolicy
	if sortPolicy == "" {
		sortPolicy = types.SortPolicyHybrid
	}
	orderBySQL := buildOrderByClause(sortPolicy)

	query := fmt.Sprintf(`
		%sFROM issues i
		WHERE %s
		  AND NOT EXISTS (SELECT 1 FROM blocked_cache bc WHERE bc.issue_id = i.id)
		%s
		%s
	`, issueSelectColumns, strings.Join(where, " AND "), orderBySQL, limitSQL)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to get ready work", err)
	}
	defer func() { _ = rows.Close() }()

	return scanIssues(rows)
}

// buildOrderByClause renders the ORDER BY clause for a sort policy.
func buildOrderByClause(policy types.SortPolicy) string {
	switch policy {
	case types.SortPolicyPriority:
		return `ORDER BY i.priority ASC, i.created_at ASC`
	case types.SortPolicyOldest:
		return `ORDER BY i.created_at ASC`
	case types.SortPolicyHybrid:
		fallthrough
	default:
		return `ORDER BY CASE WHEN i.priority <= 1 THEN 0 ELSE 1 END ASC, i.created_at ASC`
	}
}

// GetBlockedIssues returns every issue the blocked_cache table currently
// lists as blocked, alongside its blocker IDs.
func (s *SQLiteStorage) GetBlockedIssues(ctx context.Context) ([]*types.BlockedIssue, error) {
	rows, err := s.db.QueryContext(ctx, issueSelectColumns+`,
		bc.blocked_by
		FROM issues i
		JOIN blocked_cache bc ON bc.issue_id = i.id
		ORDER BY i.priority ASC, i.created_at ASC
	`)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to get blocked issues", err)
	}
	defer func() { _ = rows.Close() }()

	var blocked []*types.BlockedIssue
	for rows.Next() {
		var blockedByStr string
		issue, err := scanIssueRow(func(dest ...interface{}) error {
			return rows.Scan(append(dest, &blockedByStr)...)
		})
		if err != nil {
			return nil, errs.Wrap(errs.CodeInternal, "failed to scan blocked issue", err)
		}

		bi := &types.BlockedIssue{Issue: *issue}
		if blockedByStr != "" {
			bi.BlockedBy = strings.Split(blockedByStr, ",")
			bi.BlockedByCount = len(bi.BlockedBy)
		}
		blocked = append(blocked, bi)
	}
	return blocked, rows.Err()
}

// GetEpicsEligibleForClosure returns open epics whose parent-child
// children are all closed.
func (s *SQLiteStorage) GetEpicsEligibleForClosure(ctx context.Context) ([]*types.EpicStatus, error) {
	rows, err := s.db.QueryContext(ctx, `
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
		SELECT i.id, es.total_children, es.closed_children
		FROM issues i
		JOIN epic_stats es ON es.epic_id = i.id
		WHERE i.issue_type = 'epic'
		  AND i.status != 'closed'
		  AND es.total_children > 0
		  AND es.closed_children = es.total_children
	`)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to get eligible epics", err)
	}
	defer func() { _ = rows.Close() }()

	var statuses []*types.EpicStatus
	var ids []string
	var pairs [][2]int
	for rows.Next() {
		var id string
		var total, closed int
		if err := rows.Scan(&id, &total, &closed); err != nil {
			return nil, errs.Wrap(errs.CodeInternal, "failed to scan epic status", err)
		}
		ids = append(ids, id)
		pairs = append(pairs, [2]int{total, closed})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, id := range ids {
		epic, err := s.GetIssue(ctx, id)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, &types.EpicStatus{
			Epic:             epic,
			TotalChildren:    pairs[i][0],
			ClosedChildren:   pairs[i][1],
			EligibleForClose: true,
		})
	}
	return statuses, nil
}

// GetStaleIssues returns open issues untouched for at least
// filter.OlderThanDays days.
func (s *SQLiteStorage) GetStaleIssues(ctx context.Context, filter types.StaleFilter) ([]*types.Issue, error) {
	where := []string{"i.status NOT IN ('closed', 'tombstone')", "i.updated_at <= datetime('now', ?)"}
	args := []interface{}{fmt.Sprintf("-%d days", filter.OlderThanDays)}

	if filter.Status != nil {
		where = append(where, "i.status = ?")
		args = append(args, *filter.Status)
	}

	query := issueSelectColumns + `FROM issues i WHERE ` + strings.Join(where, " AND ") + ` ORDER BY i.updated_at ASC`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to get stale issues", err)
	}
	defer func() { _ = rows.Close() }()

	return scanIssues(rows)
}
