// Package storage defines the backend-agnostic contract for schema &
// storage (component D), with the dependency graph (E) and query (F)
// engines layered directly on top of it.
//
// Generalized from the teacher's storage.go Storage interface: the
// postgres-shaped Config fields are dropped, since spec.md names exactly
// one backend (a single-writer SQLite file) and a Config.Backend switch
// with no second implementation is dead surface. Several accessor pairs
// (GetDirtyIssueHash/ClearAllExportHashes) are folded away in favor of
// the single GetDirtyIssues/ClearDirtyIssuesByID + GetExportHash/
// SetExportHash pair spec.md's mutation-protocol framing (§5) needs:
// every mutation marks dirty and records a hash at commit, so there is
// no separate timestamp-only path to support.
package storage

import (
	"context"
	"database/sql"

	"github.com/steveyegge/beads/internal/types"
)

// Storage is the full contract a backend must satisfy. The only
// implementation is internal/storage/sqlite, matching spec.md's
// single-writer SQLite requirement; the interface exists so the sync,
// query and CLI layers depend on behavior rather than a concrete driver.
type Storage interface {
	// Issues
	CreateIssue(ctx context.Context, issue *types.Issue, actor string) error
	CreateIssues(ctx context.Context, issues []*types.Issue, actor string) error
	GetIssue(ctx context.Context, id string) (*types.Issue, error)
	UpdateIssue(ctx context.Context, id string, updates map[string]interface{}, actor string) error
	CloseIssue(ctx context.Context, id, reason, session, actor string) error
	DeleteIssue(ctx context.Context, id, reason, actor string) error
	RestoreIssue(ctx context.Context, id, actor string) error
	SearchIssues(ctx context.Context, query string, filter types.IssueFilter) ([]*types.Issue, error)

	// Dependency graph engine (component E)
	AddDependency(ctx context.Context, dep *types.Dependency, actor string) error
	RemoveDependency(ctx context.Context, issueID, dependsOnID string, actor string) error
	GetDependencies(ctx context.Context, issueID string) ([]*types.Issue, error)
	GetDependents(ctx context.Context, issueID string) ([]*types.Issue, error)
	GetDependencyRecords(ctx context.Context, issueID string) ([]*types.Dependency, error)
	GetAllDependencyRecords(ctx context.Context) (map[string][]*types.Dependency, error)
	GetDependencyCounts(ctx context.Context, issueIDs []string) (map[string]*types.DependencyCounts, error)
	GetDependencyTree(ctx context.Context, issueID string, maxDepth int, showAllPaths bool, reverse bool) ([]*types.TreeNode, error)
	DetectCycles(ctx context.Context) ([][]*types.Issue, error)
	RebuildBlockedCache(ctx context.Context) error

	// Labels
	AddLabel(ctx context.Context, issueID, label, actor string) error
	RemoveLabel(ctx context.Context, issueID, label, actor string) error
	GetLabels(ctx context.Context, issueID string) ([]string, error)
	GetIssuesByLabel(ctx context.Context, label string) ([]*types.Issue, error)

	// Query engine (component F): ready work, blocking, epics, staleness
	GetReadyWork(ctx context.Context, filter types.WorkFilter) ([]*types.Issue, error)
	GetBlockedIssues(ctx context.Context) ([]*types.BlockedIssue, error)
	GetEpicsEligibleForClosure(ctx context.Context) ([]*types.EpicStatus, error)
	GetStaleIssues(ctx context.Context, filter types.StaleFilter) ([]*types.Issue, error)

	// Events
	AddEvent(ctx context.Context, issueID string, eventType types.EventType, actor string, oldValue, newValue, comment *string) error
	GetEvents(ctx context.Context, issueID string, limit int) ([]*types.Event, error)

	// Comments
	AddIssueComment(ctx context.Context, issueID, author, text string) (*types.Comment, error)
	GetIssueComments(ctx context.Context, issueID string) ([]*types.Comment, error)

	// Statistics
	GetStatistics(ctx context.Context) (*types.Statistics, error)

	// Dirty tracking (feeds the export engine, component G)
	GetDirtyIssues(ctx context.Context) ([]string, error)
	ClearDirtyIssues(ctx context.Context) error
	ClearDirtyIssuesByID(ctx context.Context, issueIDs []string) error

	// Export/import bookkeeping (components G/H)
	GetExportHash(ctx context.Context, issueID string) (string, error)
	SetExportHash(ctx context.Context, issueID, contentHash string) error
	GetJSONLFileHash(ctx context.Context) (string, error)
	SetJSONLFileHash(ctx context.Context, fileHash string) error

	// ID generation (component C's writer side)
	GenerateIssueID(ctx context.Context, prefix, title, description, creator string) (string, error)
	GetNextChildID(ctx context.Context, parentID string) (string, error)

	// Config (component I's database-layer merge target)
	SetConfig(ctx context.Context, key, value string) error
	GetConfig(ctx context.Context, key string) (string, error)
	GetAllConfig(ctx context.Context) (map[string]string, error)
	DeleteConfig(ctx context.Context, key string) error

	// Metadata (single-value bookkeeping: last_import_hash, prefix, etc.)
	SetMetadata(ctx context.Context, key, value string) error
	GetMetadata(ctx context.Context, key string) (string, error)

	// Prefix rename operations (operational maintenance, rare path)
	UpdateIssueID(ctx context.Context, oldID, newID string, issue *types.Issue, actor string) error
	RenameDependencyPrefix(ctx context.Context, oldPrefix, newPrefix string) error
	RenameCounterPrefix(ctx context.Context, oldPrefix, newPrefix string) error

	// AllIssueIDs feeds the ID resolver's (component C) suffix-match
	// candidate list.
	AllIssueIDs(ctx context.Context) ([]string, error)

	// Lifecycle
	Close() error
	Path() string

	// UnderlyingDB returns the underlying *sql.DB connection. Provided
	// for extensions that need to create their own tables in the same
	// database; direct access bypasses the storage layer's mutation
	// protocol, so extensions must use foreign keys against core tables
	// rather than mutating them directly.
	UnderlyingDB() *sql.DB

	// UnderlyingConn returns a single connection from the pool for
	// migrations and DDL operations that benefit from an explicit
	// connection lifetime. The caller must close it when done.
	UnderlyingConn(ctx context.Context) (*sql.Conn, error)
}
