// Package sqlite - label tagging.
//
// Grounded on ttrei-beads/internal/storage/sqlite/labels.go's
// executeLabelOperation (mutate + record event + mark dirty inside one
// transaction), now routed through withMutation/mutationContext.
package sqlite

import (
	"context"
	"fmt"

	"github.com/steveyegge/beads/internal/errs"
	"github.com/steveyegge/beads/internal/types"
)

// AddLabel attaches label to issueID, idempotently.
func (s *SQLiteStorage) AddLabel(ctx context.Context, issueID, label, actor string) error {
	return s.withMutation(ctx, actor, func(mc *mutationContext) error {
		if _, err := mc.conn.ExecContext(ctx, `INSERT OR IGNORE INTO labels (issue_id, label) VALUES (?, ?)`, issueID, label); err != nil {
			return errs.Wrap(errs.CodeInternal, "failed to add label", err)
		}
		comment := fmt.Sprintf("Added label: %s", label)
		if err := mc.event(issueID, types.EventLabelAdded, nil, nil, &comment); err != nil {
			return err
		}
		mc.markDirty(issueID)
		return nil
	})
}

// RemoveLabel detaches label from issueID, idempotently.
func (s *SQLiteStorage) RemoveLabel(ctx context.Context, issueID, label, actor string) error {
	return s.withMutation(ctx, actor, func(mc *mutationContext) error {
		if _, err := mc.conn.ExecContext(ctx, `DELETE FROM labels WHERE issue_id = ? AND label = ?`, issueID, label); err != nil {
			return errs.Wrap(errs.CodeInternal, "failed to remove label", err)
		}
		comment := fmt.Sprintf("Removed label: %s", label)
		if err := mc.event(issueID, types.EventLabelRemoved, nil, nil, &comment); err != nil {
			return err
		}
		mc.markDirty(issueID)
		return nil
	})
}

// GetLabels returns every label attached to issueID, sorted.
func (s *SQLiteStorage) GetLabels(ctx context.Context, issueID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT label FROM labels WHERE issue_id = ? ORDER BY label`, issueID)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to get labels", err)
	}
	defer func() { _ = rows.Close() }()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, errs.Wrap(errs.CodeInternal, "failed to scan label", err)
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}

// GetIssuesByLabel returns every issue tagged with label.
func (s *SQLiteStorage) GetIssuesByLabel(ctx context.Context, label string) ([]*types.Issue, error) {
	rows, err := s.db.QueryContext(ctx, issueSelectColumns+`
		FROM issues i
		JOIN labels l ON i.id = l.issue_id
		WHERE l.label = ?
		ORDER BY i.priority ASC, i.created_at DESC
	`, label)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to get issues by label", err)
	}
	defer func() { _ = rows.Close() }()

	return scanIssues(rows)
}
