// Package sqlite implements the dependency graph engine (component E)
// on top of the SQLite storage backend.
//
// Grounded on ttrei-beads/internal/storage/sqlite/dependencies.go: the
// recursive-CTE cycle check in AddDependency and the dependency-record
// query shapes are kept, generalized from the teacher's single "blocks"
// cycle-check to the full Blocking set (blocks, parent-child,
// conditional-blocks) per spec.md §3/§4.E, and from its per-query
// recursive CTE (ready.go's blocked_transitively) to a materialized
// blocked_cache table rebuilt by RebuildBlockedCache after any mutation
// that can change blocking — so ready.go's read path does a plain
// indexed lookup instead of re-running a recursive CTE on every call.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/steveyegge/beads/internal/errs"
	"github.com/steveyegge/beads/internal/types"
)

// AddDependency adds a typed edge between two issues, preventing
// self-dependencies and cycles among Blocking-set edges.
func (s *SQLiteStorage) AddDependency(ctx context.Context, dep *types.Dependency, actor string) error {
	if !dep.Type.IsValid() {
		return errs.New(errs.CodeInvalidDepType, "invalid dependency type: "+string(dep.Type))
	}
	if dep.IssueID == dep.DependsOnID {
		return errs.New(errs.CodeSelfDependency, "issue cannot depend on itself")
	}

	return s.withMutation(ctx, actor, func(mc *mutationContext) error {
		var exists int
		if err := mc.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM issues WHERE id = ?`, dep.IssueID).Scan(&exists); err != nil {
			return errs.Wrap(errs.CodeDatabaseConnection, "failed to check issue", err)
		}
		if exists == 0 {
			return errs.New(errs.CodeIssueNotFound, "issue "+dep.IssueID+" not found")
		}
		if err := mc.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM issues WHERE id = ?`, dep.DependsOnID).Scan(&exists); err != nil {
			return errs.Wrap(errs.CodeDatabaseConnection, "failed to check dependency target", err)
		}
		if exists == 0 {
			return errs.New(errs.CodeIssueNotFound, "dependency target "+dep.DependsOnID+" not found")
		}

		if dep.Type == types.DepParentChild {
			var fromType, toType string
			if err := mc.conn.QueryRowContext(ctx, `SELECT issue_type FROM issues WHERE id = ?`, dep.IssueID).Scan(&fromType); err != nil {
				return errs.Wrap(errs.CodeDatabaseConnection, "failed to check issue type", err)
			}
			if err := mc.conn.QueryRowContext(ctx, `SELECT issue_type FROM issues WHERE id = ?`, dep.DependsOnID).Scan(&toType); err != nil {
				return errs.Wrap(errs.CodeDatabaseConnection, "failed to check dependency target type", err)
			}
			if fromType == string(types.TypeEpic) && toType != string(types.TypeEpic) {
				return errs.New(errs.CodeValidationFailed, "invalid parent-child dependency: parent "+dep.IssueID+" cannot depend on child "+dep.DependsOnID)
			}
		}

		var metaJSON interface{}
		if len(dep.Metadata) > 0 {
			b, err := json.Marshal(dep.Metadata)
			if err != nil {
				return errs.Wrap(errs.CodeInternal, "failed to marshal dependency metadata", err)
			}
			metaJSON = string(b)
		}

		createdAt := dep.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		createdBy := dep.CreatedBy
		if createdBy == "" {
			createdBy = actor
		}

		_, err := mc.conn.ExecContext(ctx, `
			INSERT INTO dependencies (issue_id, depends_on_id, type, created_at, created_by, metadata, thread_id)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, dep.IssueID, dep.DependsOnID, dep.Type, createdAt, createdBy, metaJSON, dep.ThreadID)
		if err != nil {
			if IsUniqueConstraintError(err) {
				return errs.New(errs.CodeDuplicateEdge, "dependency already exists")
			}
			return errs.Wrap(errs.CodeInternal, "failed to add dependency", err)
		}

		if dep.Type.IsBlocking() {
			cycle, err := hasCyclePath(ctx, mc.conn, dep.DependsOnID, dep.IssueID)
			if err != nil {
				return err
			}
			if cycle {
				return errs.New(errs.CodeDependencyCycle, "would create a dependency cycle").
					WithContext("from", dep.IssueID).WithContext("to", dep.DependsOnID)
			}
			mc.markBlockingChanged()
		}

		comment := dep.IssueID + " " + string(dep.Type) + " " + dep.DependsOnID
		if err := mc.event(dep.IssueID, types.EventDependencyAdded, nil, nil, &comment); err != nil {
			return err
		}
		mc.markDirty(dep.IssueID, dep.DependsOnID)
		return nil
	})
}

// hasCyclePath reports whether from can already reach to via Blocking-
// set edges — if so, adding "to depends on from" would close a cycle.
func hasCyclePath(ctx context.Context, conn *sql.Conn, from, to string) (bool, error) {
	var exists bool
	err := conn.QueryRowContext(ctx, `
		WITH RECURSIVE paths AS (
			SELECT issue_id, depends_on_id, 1 as depth
			FROM dependencies
			WHERE type IN ('blocks', 'parent-child', 'conditional-blocks')
			  AND issue_id = ?
			UNION ALL
			SELECT d.issue_id, d.depends_on_id, p.depth + 1
			FROM dependencies d
			JOIN paths p ON d.issue_id = p.depends_on_id
			WHERE d.type IN ('blocks', 'parent-child', 'conditional-blocks')
			  AND p.depth < 200
		)
		SELECT EXISTS(SELECT 1 FROM paths WHERE depends_on_id = ?)
	`, from, to).Scan(&exists)
	if err != nil {
		return false, errs.Wrap(errs.CodeInternal, "failed to check for cycles", err)
	}
	return exists, nil
}

// RemoveDependency deletes an edge between two issues.
func (s *SQLiteStorage) RemoveDependency(ctx context.Context, issueID, dependsOnID string, actor string) error {
	return s.withMutation(ctx, actor, func(mc *mutationContext) error {
		_, err := mc.conn.ExecContext(ctx, `DELETE FROM dependencies WHERE issue_id = ? AND depends_on_id = ?`, issueID, dependsOnID)
		if err != nil {
			return errs.Wrap(errs.CodeInternal, "failed to remove dependency", err)
		}
		comment := "removed dependency on " + dependsOnID
		if err := mc.event(issueID, types.EventDependencyRemoved, nil, nil, &comment); err != nil {
			return err
		}
		mc.markDirty(issueID, dependsOnID)
		mc.markBlockingChanged()
		return nil
	})
}

// GetDependencies returns issues that issueID depends on.
func (s *SQLiteStorage) GetDependencies(ctx context.Context, issueID string) ([]*types.Issue, error) {
	rows, err := s.db.QueryContext(ctx, issueSelectColumns+`
		FROM issues i
		JOIN dependencies d ON i.id = d.depends_on_id
		WHERE d.issue_id = ?
	`, issueID)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to get dependencies", err)
	}
	defer func() { _ = rows.Close() }()
	return scanIssues(rows)
}

// GetDependents returns issues that depend on issueID.
func (s *SQLiteStorage) GetDependents(ctx context.Context, issueID string) ([]*types.Issue, error) {
	rows, err := s.db.QueryContext(ctx, issueSelectColumns+`
		FROM issues i
		JOIN dependencies d ON i.id = d.issue_id
		WHERE d.depends_on_id = ?
	`, issueID)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to get dependents", err)
	}
	defer func() { _ = rows.Close() }()
	return scanIssues(rows)
}

func scanDependencyRows(rows *sql.Rows) ([]*types.Dependency, error) {
	var deps []*types.Dependency
	for rows.Next() {
		var d types.Dependency
		var metaJSON, threadID sql.NullString
		if err := rows.Scan(&d.IssueID, &d.DependsOnID, &d.Type, &d.CreatedAt, &d.CreatedBy, &metaJSON, &threadID); err != nil {
			return nil, errs.Wrap(errs.CodeInternal, "failed to scan dependency", err)
		}
		if metaJSON.Valid && metaJSON.String != "" {
			_ = json.Unmarshal([]byte(metaJSON.String), &d.Metadata)
		}
		if threadID.Valid {
			d.ThreadID = &threadID.String
		}
		deps = append(deps, &d)
	}
	return deps, rows.Err()
}

// GetDependencyRecords returns the raw dependency edges for issueID.
func (s *SQLiteStorage) GetDependencyRecords(ctx context.Context, issueID string) ([]*types.Dependency, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT issue_id, depends_on_id, type, created_at, created_by, metadata, thread_id
		FROM dependencies WHERE issue_id = ?
	`, issueID)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to get dependency records", err)
	}
	defer func() { _ = rows.Close() }()
	return scanDependencyRows(rows)
}

// GetAllDependencyRecords returns every dependency edge in the
// database, grouped by issue ID — used by the export engine (G) to
// embed dependencies inline with each exported issue.
func (s *SQLiteStorage) GetAllDependencyRecords(ctx context.Context) (map[string][]*types.Dependency, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT issue_id, depends_on_id, type, created_at, created_by, metadata, thread_id
		FROM dependencies
	`)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to get dependency records", err)
	}
	defer func() { _ = rows.Close() }()
	deps, err := scanDependencyRows(rows)
	if err != nil {
		return nil, err
	}
	byIssue := make(map[string][]*types.Dependency)
	for _, d := range deps {
		byIssue[d.IssueID] = append(byIssue[d.IssueID], d)
	}
	return byIssue, nil
}

// GetDependencyCounts summarizes inbound/outbound edges per issue ID.
func (s *SQLiteStorage) GetDependencyCounts(ctx context.Context, issueIDs []string) (map[string]*types.DependencyCounts, error) {
	result := make(map[string]*types.DependencyCounts, len(issueIDs))
	for _, id := range issueIDs {
		result[id] = &types.DependencyCounts{}
	}
	if len(issueIDs) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(issueIDs))
	args := make([]interface{}, len(issueIDs))
	for i, id := range issueIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	inClause := strings.Join(placeholders, ",")

	rows, err := s.db.QueryContext(ctx, `
		SELECT issue_id, type, COUNT(*) FROM dependencies
		WHERE issue_id IN (`+inClause+`) GROUP BY issue_id, type
	`, args...)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to count outbound dependencies", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var id string
		var depType types.DependencyType
		var count int
		if err := rows.Scan(&id, &depType, &count); err != nil {
			return nil, errs.Wrap(errs.CodeInternal, "failed to scan dependency count", err)
		}
		applyCount(result[id], depType, count, false)
	}

	rows2, err := s.db.QueryContext(ctx, `
		SELECT depends_on_id, type, COUNT(*) FROM dependencies
		WHERE depends_on_id IN (`+inClause+`) GROUP BY depends_on_id, type
	`, args...)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to count inbound dependencies", err)
	}
	defer func() { _ = rows2.Close() }()
	for rows2.Next() {
		var id string
		var depType types.DependencyType
		var count int
		if err := rows2.Scan(&id, &depType, &count); err != nil {
			return nil, errs.Wrap(errs.CodeInternal, "failed to scan dependency count", err)
		}
		applyCount(result[id], depType, count, true)
	}
	return result, nil
}

func applyCount(c *types.DependencyCounts, depType types.DependencyType, count int, inbound bool) {
	if c == nil {
		return
	}
	switch {
	case depType == types.DepBlocks && inbound:
		c.Blocks += count
	case depType == types.DepBlocks:
		c.BlockedBy += count
	case depType == types.DepParentChild:
		c.ParentChild += count
	case depType == types.DepRelated || depType == types.DepRelatesTo:
		c.Related += count
	}
}

// GetDependencyTree walks the dependency graph from issueID to maxDepth,
// recording a Truncated marker on any node cut off by the depth limit.
func (s *SQLiteStorage) GetDependencyTree(ctx context.Context, issueID string, maxDepth int, showAllPaths bool, reverse bool) ([]*types.TreeNode, error) {
	edgeCol, targetCol := "issue_id", "depends_on_id"
	if reverse {
		edgeCol, targetCol = "depends_on_id", "issue_id"
	}

	visited := map[string]bool{issueID: true}
	var nodes []*types.TreeNode
	root, err := s.GetIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if root != nil {
		nodes = append(nodes, &types.TreeNode{Issue: *root, Depth: 0})
	}
	frontier := []string{issueID}

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		placeholders := make([]string, len(frontier))
		args := make([]interface{}, len(frontier))
		for i, id := range frontier {
			placeholders[i] = "?"
			args[i] = id
		}
		rows, err := s.db.QueryContext(ctx, `
			SELECT DISTINCT `+targetCol+` FROM dependencies WHERE `+edgeCol+` IN (`+strings.Join(placeholders, ",")+`)
		`, args...)
		if err != nil {
			return nil, errs.Wrap(errs.CodeInternal, "failed to walk dependency tree", err)
		}
		var next []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				_ = rows.Close()
				return nil, errs.Wrap(errs.CodeInternal, "failed to scan tree node", err)
			}
			if visited[id] && !showAllPaths {
				continue
			}
			visited[id] = true
			next = append(next, id)
		}
		_ = rows.Close()

		for _, id := range next {
			issue, err := s.GetIssue(ctx, id)
			if err != nil || issue == nil {
				continue
			}
			nodes = append(nodes, &types.TreeNode{Issue: *issue, Depth: depth, Truncated: depth == maxDepth})
		}
		frontier = next
	}
	return nodes, nil
}

// DetectCycles finds every cycle among Blocking-set edges, returning
// each as the ordered list of issues that form it.
func (s *SQLiteStorage) DetectCycles(ctx context.Context) ([][]*types.Issue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT issue_id, depends_on_id FROM dependencies
		WHERE type IN ('blocks', 'parent-child', 'conditional-blocks')
	`)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to load dependency edges", err)
	}
	adjacency := make(map[string][]string)
	for rows.Next() {
		var from, to string
		if err := rows.Scan(&from, &to); err != nil {
			_ = rows.Close()
			return nil, errs.Wrap(errs.CodeInternal, "failed to scan edge", err)
		}
		adjacency[from] = append(adjacency[from], to)
	}
	_ = rows.Close()

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int)
	var stack []string
	var cycles [][]string

	var visit func(node string)
	visit = func(node string) {
		color[node] = gray
		stack = append(stack, node)
		for _, next := range adjacency[node] {
			switch color[next] {
			case white:
				visit(next)
			case gray:
				idx := len(stack) - 1
				for idx >= 0 && stack[idx] != next {
					idx--
				}
				if idx >= 0 {
					cycle := append([]string{}, stack[idx:]...)
					cycles = append(cycles, cycle)
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[node] = black
	}
	for node := range adjacency {
		if color[node] == white {
			visit(node)
		}
	}

	result := make([][]*types.Issue, 0, len(cycles))
	for _, cycle := range cycles {
		var issues []*types.Issue
		for _, id := range cycle {
			issue, err := s.GetIssue(ctx, id)
			if err == nil && issue != nil {
				issues = append(issues, issue)
			}
		}
		result = append(result, issues)
	}
	return result, nil
}

// RebuildBlockedCache recomputes blocked_cache for the whole database.
// Exposed on Storage so the sync/import engine can force a rebuild
// after a bulk load, in addition to the automatic per-mutation rebuild
// withMutation triggers via mutationContext.markBlockingChanged.
func (s *SQLiteStorage) RebuildBlockedCache(ctx context.Context) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return errs.Wrap(errs.CodeDatabaseConnection, "failed to acquire connection", err)
	}
	defer func() { _ = conn.Close() }()
	return rebuildBlockedCacheTx(ctx, conn)
}

// rebuildBlockedCacheTx recomputes which issues are blocked (directly or
// transitively through parent-child) and replaces blocked_cache's
// contents in place. Grounded on ready.go's blocked_transitively
// recursive CTE, materialized here instead of re-run per query.
func rebuildBlockedCacheTx(ctx context.Context, conn *sql.Conn) error {
	if _, err := conn.ExecContext(ctx, `DELETE FROM blocked_cache`); err != nil {
		return errs.Wrap(errs.CodeInternal, "failed to clear blocked cache", err)
	}
	_, err := conn.ExecContext(ctx, `
		WITH RECURSIVE
		  blocked_directly AS (
		    SELECT DISTINCT d.issue_id, d.depends_on_id as blocker_id
		    FROM dependencies d
		    JOIN issues blocker ON d.depends_on_id = blocker.id
		    WHERE d.type IN ('blocks', 'conditional-blocks')
		      AND blocker.status IN ('open', 'in_progress', 'blocked', 'deferred')
		  ),
		  blocked_transitively AS (
		    SELECT issue_id, blocker_id, 0 as depth FROM blocked_directly
		    UNION ALL
		    SELECT d.issue_id, bt.blocker_id, bt.depth + 1
		    FROM blocked_transitively bt
		    JOIN dependencies d ON d.depends_on_id = bt.issue_id
		    WHERE d.type = 'parent-child' AND bt.depth < 50
		  )
		INSERT INTO blocked_cache (issue_id, blocked_by)
		SELECT issue_id, GROUP_CONCAT(DISTINCT blocker_id)
		FROM blocked_transitively
		GROUP BY issue_id
	`)
	if err != nil {
		return errs.Wrap(errs.CodeInternal, "failed to rebuild blocked cache", err)
	}
	return nil
}
