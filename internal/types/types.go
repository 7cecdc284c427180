// Package types defines core data structures for the bd issue tracker.
package types

import (
	"fmt"
	"time"
)

// Issue represents a trackable work item.
type Issue struct {
	ID          string `json:"id"`
	ContentHash string `json:"content_hash,omitempty"`

	Title              string `json:"title"`
	Description        string `json:"description,omitempty"`
	Design             string `json:"design,omitempty"`
	AcceptanceCriteria string `json:"acceptance_criteria,omitempty"`
	Notes              string `json:"notes,omitempty"`

	Status    Status    `json:"status"`
	Priority  int       `json:"priority"`
	IssueType IssueType `json:"issue_type"`

	Assignee string `json:"assignee,omitempty"`
	Owner    string `json:"owner,omitempty"`
	Sender   string `json:"sender,omitempty"`

	EstimatedMinutes *int `json:"estimated_minutes,omitempty"`

	Ephemeral  bool `json:"ephemeral,omitempty"`
	Pinned     bool `json:"pinned,omitempty"`
	IsTemplate bool `json:"is_template,omitempty"`

	ExternalRef *string `json:"external_ref,omitempty"`

	DueDate    *time.Time `json:"due_date,omitempty"`
	DeferUntil *time.Time `json:"defer_until,omitempty"`

	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
	ClosedReason  string     `json:"closed_reason,omitempty"`
	ClosedSession *string    `json:"closed_session,omitempty"`

	// Tombstone triple (plus original-type). Set only when Status == StatusTombstone.
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
	DeletedBy    string     `json:"deleted_by,omitempty"`
	DeleteReason string     `json:"delete_reason,omitempty"`
	OriginalType string     `json:"original_type,omitempty"`

	// Compaction triple, carried through as inert bookkeeping (no compaction
	// engine is implemented; see DESIGN.md).
	CompactionLevel   int        `json:"compaction_level"`
	CompactedAt       *time.Time `json:"compacted_at,omitempty"`
	CompactedAtCommit *string    `json:"compacted_at_commit,omitempty"`
	OriginalSize      int        `json:"original_size,omitempty"`

	Labels       []string      `json:"labels,omitempty"`
	Dependencies []*Dependency `json:"dependencies,omitempty"`
	Comments     []*Comment    `json:"comments,omitempty"`
}

// Validate checks the issue's static field constraints. Cross-row
// invariants (ID uniqueness, cycle-freedom) belong to the storage layer.
func (i *Issue) Validate() error {
	if len(i.Title) == 0 {
		return fmt.Errorf("title is required")
	}
	if len(i.Title) > 500 {
		return fmt.Errorf("title must be 500 characters or less (got %d)", len(i.Title))
	}
	if i.Priority < 0 || i.Priority > 4 {
		return fmt.Errorf("priority must be between 0 and 4 (got %d)", i.Priority)
	}
	if i.EstimatedMinutes != nil && *i.EstimatedMinutes < 0 {
		return fmt.Errorf("estimated_minutes cannot be negative")
	}
	if i.Status == StatusClosed && i.ClosedAt == nil {
		return fmt.Errorf("closed issues must have closed_at timestamp")
	}
	if i.Status != StatusClosed && i.Status != StatusTombstone && i.ClosedAt != nil {
		return fmt.Errorf("non-closed issues cannot have closed_at timestamp")
	}
	if i.Status == StatusTombstone && i.DeletedAt == nil {
		return fmt.Errorf("tombstone issues must have deleted_at timestamp")
	}
	return nil
}

// Status represents the current state of an issue.
type Status string

// Closed set named in spec.md §3, plus an open-ended custom escape hatch.
const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusDeferred   Status = "deferred"
	StatusClosed     Status = "closed"
	StatusTombstone  Status = "tombstone"
	StatusPinned     Status = "pinned"
)

var knownStatuses = map[Status]bool{
	StatusOpen: true, StatusInProgress: true, StatusBlocked: true,
	StatusDeferred: true, StatusClosed: true, StatusTombstone: true,
	StatusPinned: true,
}

// IsKnown reports whether the status is one of the closed set.
func (s Status) IsKnown() bool { return knownStatuses[s] }

// IsTerminal reports whether the status is closed or tombstone. Unknown
// (custom) statuses are treated as non-terminal: their semantics outside
// the closed enum are defined only by consumers (spec.md §9).
func (s Status) IsTerminal() bool {
	return s == StatusClosed || s == StatusTombstone
}

// IsActive reports whether the status is one of the two active states.
func (s Status) IsActive() bool {
	return s == StatusOpen || s == StatusInProgress
}

// IsValid reports whether s is a recognized status string.
func (s Status) IsValid() bool { return s.IsKnown() }

// IsBlocking reports whether a dependency target in this status blocks its
// source per the blocked-cache algorithm (spec.md §4.E step 2).
func (s Status) IsBlocking() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusBlocked, StatusDeferred:
		return true
	}
	return false
}

// IssueType categorizes the kind of work.
type IssueType string

const (
	TypeBug     IssueType = "bug"
	TypeFeature IssueType = "feature"
	TypeTask    IssueType = "task"
	TypeEpic    IssueType = "epic"
	TypeChore   IssueType = "chore"
)

func (t IssueType) IsValid() bool {
	switch t {
	case TypeBug, TypeFeature, TypeTask, TypeEpic, TypeChore:
		return true
	}
	return false
}

// Dependency represents a typed directed edge between two issues.
type Dependency struct {
	IssueID     string            `json:"issue_id"`
	DependsOnID string            `json:"depends_on_id"`
	Type        DependencyType    `json:"type"`
	CreatedAt   time.Time         `json:"created_at"`
	CreatedBy   string            `json:"created_by,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	ThreadID    *string           `json:"thread_id,omitempty"`
}

// DependencyType categorizes the relationship between two issues.
type DependencyType string

// Full type set named in spec.md §3, plus custom.
const (
	DepBlocks            DependencyType = "blocks"
	DepParentChild       DependencyType = "parent-child"
	DepConditionalBlocks DependencyType = "conditional-blocks"
	DepWaitsFor          DependencyType = "waits-for"
	DepRelated           DependencyType = "related"
	DepDiscoveredFrom    DependencyType = "discovered-from"
	DepRepliesTo         DependencyType = "replies-to"
	DepRelatesTo         DependencyType = "relates-to"
	DepDuplicates        DependencyType = "duplicates"
	DepSupersedes        DependencyType = "supersedes"
	DepCausedBy          DependencyType = "caused-by"
)

var knownDependencyTypes = map[DependencyType]bool{
	DepBlocks: true, DepParentChild: true, DepConditionalBlocks: true,
	DepWaitsFor: true, DepRelated: true, DepDiscoveredFrom: true,
	DepRepliesTo: true, DepRelatesTo: true, DepDuplicates: true,
	DepSupersedes: true, DepCausedBy: true,
}

// IsValid reports whether d is a known type or any non-empty custom string.
func (d DependencyType) IsValid() bool {
	if knownDependencyTypes[d] {
		return true
	}
	return d != ""
}

// IsBlocking reports whether d participates in cycle prevention (spec.md
// §3 "Blocking" predicate = {blocks, parent-child, conditional-blocks}).
func (d DependencyType) IsBlocking() bool {
	return d == DepBlocks || d == DepParentChild || d == DepConditionalBlocks
}

// IsReadyAffecting reports whether d participates in "is the source ready?"
// computation (spec.md §3 "Ready-affecting" = Blocking ∪ {waits-for}).
func (d DependencyType) IsReadyAffecting() bool {
	return d.IsBlocking() || d == DepWaitsFor
}

// Label represents a tag on an issue.
type Label struct {
	IssueID string `json:"issue_id"`
	Label   string `json:"label"`
}

// Comment represents an append-only comment on an issue.
type Comment struct {
	ID        int64     `json:"id"`
	IssueID   string    `json:"issue_id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Event represents an append-only audit-trail entry.
type Event struct {
	ID        int64     `json:"id"`
	IssueID   string    `json:"issue_id"`
	EventType EventType `json:"event_type"`
	Actor     string    `json:"actor"`
	OldValue  *string   `json:"old_value,omitempty"`
	NewValue  *string   `json:"new_value,omitempty"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// EventType categorizes audit-trail events.
type EventType string

const (
	EventCreated           EventType = "created"
	EventUpdated           EventType = "updated"
	EventStatusChanged     EventType = "status_changed"
	EventPriorityChanged   EventType = "priority_changed"
	EventAssigneeChanged   EventType = "assignee_changed"
	EventCommented         EventType = "commented"
	EventClosed            EventType = "closed"
	EventReopened          EventType = "reopened"
	EventDeleted           EventType = "deleted"
	EventRestored          EventType = "restored"
	EventDependencyAdded   EventType = "dependency_added"
	EventDependencyRemoved EventType = "dependency_removed"
	EventLabelAdded        EventType = "label_added"
	EventLabelRemoved      EventType = "label_removed"
	EventCompacted         EventType = "compacted"
)

// BlockedIssue extends Issue with blocking information.
type BlockedIssue struct {
	Issue
	BlockedByCount int      `json:"blocked_by_count"`
	BlockedBy      []string `json:"blocked_by"`
}

// TreeNode represents a node in a dependency tree traversal.
type TreeNode struct {
	Issue
	Depth     int  `json:"depth"`
	Truncated bool `json:"truncated"`
}

// Statistics provides aggregate metrics over the issue set.
type Statistics struct {
	TotalIssues             int     `json:"total_issues"`
	OpenIssues              int     `json:"open_issues"`
	InProgressIssues        int     `json:"in_progress_issues"`
	ClosedIssues            int     `json:"closed_issues"`
	BlockedIssues           int     `json:"blocked_issues"`
	ReadyIssues             int     `json:"ready_issues"`
	EpicsEligibleForClosure int     `json:"epics_eligible_for_closure"`
	AverageLeadTime         float64 `json:"average_lead_time_hours"`
}

// DependencyCounts summarizes inbound/outbound edges for one issue.
type DependencyCounts struct {
	Blocks      int `json:"blocks"`
	BlockedBy   int `json:"blocked_by"`
	Related     int `json:"related"`
	ParentChild int `json:"parent_child"`
}

// IssueFilter is used to filter issue list/search queries (component F).
type IssueFilter struct {
	Status           *Status
	Priority         *int
	PriorityMin      *int
	PriorityMax      *int
	IssueType        *IssueType
	Assignee         *string
	Labels           []string // AND semantics
	LabelsAny        []string // OR semantics
	TitleSearch      string
	IDs              []string
	IncludeClosed    bool
	IncludeTemplates bool
	IncludeDeferred  bool
	SortBy           string // "priority" | "created" | "updated" | "title"
	SortDescending   bool
	Limit            int
}

// SortPolicy determines how ready work is ordered (component F).
type SortPolicy string

const (
	// SortPolicyHybrid puts all P0/P1 issues first (by creation ASC), then
	// the rest, also by creation ASC — per spec.md §4.F.
	SortPolicyHybrid   SortPolicy = "hybrid"
	SortPolicyPriority SortPolicy = "priority"
	SortPolicyOldest   SortPolicy = "oldest"
)

func (s SortPolicy) IsValid() bool {
	switch s {
	case SortPolicyHybrid, SortPolicyPriority, SortPolicyOldest, "":
		return true
	}
	return false
}

// WorkFilter is used to filter ready-work queries.
type WorkFilter struct {
	Priority        *int
	Assignee        *string
	Limit           int
	SortPolicy      SortPolicy
	IncludeDeferred bool
}

// EpicStatus represents an epic issue with its children's completion state.
type EpicStatus struct {
	Epic             *Issue `json:"epic"`
	TotalChildren    int    `json:"total_children"`
	ClosedChildren   int    `json:"closed_children"`
	EligibleForClose bool   `json:"eligible_for_close"`
}

// StaleFilter selects issues that haven't been touched in a while.
type StaleFilter struct {
	OlderThanDays int
	Status        *Status
}
