package sqlite

import (
	"context"
	"database/sql"

	"github.com/steveyegge/beads/internal/errs"
	"github.com/steveyegge/beads/internal/types"
)

// mutationContext is threaded through every transactional write and
// accumulates the bookkeeping spec.md §5's mutation protocol requires:
// every mutation marks its issue(s) dirty for the export engine and
// records an audit event, both committed atomically with the mutation
// itself. No single teacher file has a literal unified version of this
// — ttrei-beads repeats the transaction-open / mutate / markDirty /
// event / commit sequence inline in each of dependencies.go, issues.go
// and events.go — so this is a direct reification of that repeated
// shape into one reusable type.
type mutationContext struct {
	ctx   context.Context
	conn  *sql.Conn
	actor string

	dirty      map[string]bool
	rebuildDep bool
}

func (mc *mutationContext) markDirty(issueIDs ...string) {
	if mc.dirty == nil {
		mc.dirty = make(map[string]bool)
	}
	for _, id := range issueIDs {
		mc.dirty[id] = true
	}
}

// markBlockingChanged flags that this mutation may have altered the
// blocking relationships between issues, so the blocked_cache
// materialization must be rebuilt before commit (component E).
func (mc *mutationContext) markBlockingChanged() {
	mc.rebuildDep = true
}

func (mc *mutationContext) event(issueID string, eventType types.EventType, oldValue, newValue, comment *string) error {
	_, err := mc.conn.ExecContext(mc.ctx, `
		INSERT INTO events (issue_id, event_type, actor, old_value, new_value, comment)
		VALUES (?, ?, ?, ?, ?, ?)
	`, issueID, eventType, mc.actor, oldValue, newValue, comment)
	if err != nil {
		return errs.Wrap(errs.CodeInternal, "failed to record event", err)
	}
	return nil
}

// flushDirty writes accumulated dirty marks and, if blocking may have
// changed, rebuilds the blocked_cache table — both inside the caller's
// still-open transaction so they commit atomically with the mutation
// that triggered them.
func (mc *mutationContext) flushDirty() error {
	for id := range mc.dirty {
		_, err := mc.conn.ExecContext(mc.ctx, `
			INSERT INTO dirty_issues (issue_id) VALUES (?)
			ON CONFLICT(issue_id) DO UPDATE SET marked_at = CURRENT_TIMESTAMP
		`, id)
		if err != nil {
			return errs.Wrap(errs.CodeInternal, "failed to mark issue dirty", err)
		}
	}

	if mc.rebuildDep {
		if err := rebuildBlockedCacheTx(mc.ctx, mc.conn); err != nil {
			return err
		}
	}
	return nil
}
