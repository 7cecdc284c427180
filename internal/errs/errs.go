// Package errs implements the structured error taxonomy of spec.md §7.
//
// Grounded on original_source/src/error/structured.rs's ErrorCode enum (28
// variants across 8 categories), is_retryable(), and exit_code(), and
// generalizes the teacher's sentinel-error idiom
// (steveyegge-beads/internal/storage/sqlite/errors.go: ErrNotFound,
// ErrConflict, ErrCycle, wrapDBError) into a single structured type.
package errs

import (
	"encoding/json"
	"fmt"
)

// Code is a machine-readable error code, SCREAMING_SNAKE_CASE per spec.md §7.
type Code string

// Database category (exit code 2).
const (
	CodeDatabaseLocked     Code = "DATABASE_LOCKED"
	CodeDatabaseCorrupt    Code = "DATABASE_CORRUPT"
	CodeDatabaseConnection Code = "DATABASE_CONNECTION"
	CodeMigrationFailed    Code = "MIGRATION_FAILED"
)

// Issue category (exit code 3).
const (
	CodeIssueNotFound  Code = "ISSUE_NOT_FOUND"
	CodeAmbiguousID    Code = "AMBIGUOUS_ID"
	CodeIssueConflict  Code = "ISSUE_CONFLICT"
	CodeAlreadyClosed  Code = "ALREADY_CLOSED"
	CodeAlreadyDeleted Code = "ALREADY_DELETED"
)

// Validation category (exit code 4).
const (
	CodeValidationFailed Code = "VALIDATION_FAILED"
	CodeInvalidStatus    Code = "INVALID_STATUS"
	CodeInvalidType      Code = "INVALID_TYPE"
	CodeInvalidPriority  Code = "INVALID_PRIORITY"
	CodeRequiredField    Code = "REQUIRED_FIELD"
	CodeTitleTooLong     Code = "TITLE_TOO_LONG"
)

// Dependency category (exit code 5).
const (
	CodeSelfDependency  Code = "SELF_DEPENDENCY"
	CodeDependencyCycle Code = "DEPENDENCY_CYCLE"
	CodeDuplicateEdge   Code = "DUPLICATE_EDGE"
	CodeInvalidDepType  Code = "INVALID_DEP_TYPE"
)

// Sync category (exit code 6).
const (
	CodeConflictMarkers    Code = "CONFLICT_MARKERS"
	CodePrefixMismatch     Code = "PREFIX_MISMATCH"
	CodeEmptyDBGuard       Code = "EMPTY_DB_GUARD"
	CodeStaleDBGuard       Code = "STALE_DB_GUARD"
	CodeOrphanDependency   Code = "ORPHAN_DEPENDENCY"
	CodeTombstoneProtected Code = "TOMBSTONE_PROTECTED"
	CodePathRejected       Code = "PATH_REJECTED"
)

// Config category (exit code 7).
const (
	CodeConfigInvalid      Code = "CONFIG_INVALID"
	CodeStartupKeyOnDB     Code = "STARTUP_KEY_ON_DB"
	CodeConfigFileNotFound Code = "CONFIG_FILE_NOT_FOUND"
)

// I/O category (exit code 8).
const (
	CodeIOFailed     Code = "IO_FAILED"
	CodeFileNotFound Code = "FILE_NOT_FOUND"
	CodePermission   Code = "PERMISSION_DENIED"
)

// Internal category (exit code 1).
const (
	CodeInternal Code = "INTERNAL"
)

// retryable mirrors original_source's is_retryable(): true for locks,
// validation errors, and ambiguous IDs.
var retryable = map[Code]bool{
	CodeDatabaseLocked:  true,
	CodeValidationFailed: true,
	CodeInvalidStatus:   true,
	CodeInvalidType:     true,
	CodeInvalidPriority: true,
	CodeRequiredField:   true,
	CodeTitleTooLong:    true,
	CodeAmbiguousID:     true,
}

// exitCodes mirrors original_source's exit_code() category mapping,
// matching spec.md §6 exactly.
var exitCodes = map[Code]int{
	CodeDatabaseLocked: 2, CodeDatabaseCorrupt: 2, CodeDatabaseConnection: 2, CodeMigrationFailed: 2,

	CodeIssueNotFound: 3, CodeAmbiguousID: 3, CodeIssueConflict: 3, CodeAlreadyClosed: 3, CodeAlreadyDeleted: 3,

	CodeValidationFailed: 4, CodeInvalidStatus: 4, CodeInvalidType: 4, CodeInvalidPriority: 4,
	CodeRequiredField: 4, CodeTitleTooLong: 4,

	CodeSelfDependency: 5, CodeDependencyCycle: 5, CodeDuplicateEdge: 5, CodeInvalidDepType: 5,

	CodeConflictMarkers: 6, CodePrefixMismatch: 6, CodeEmptyDBGuard: 6, CodeStaleDBGuard: 6,
	CodeOrphanDependency: 6, CodeTombstoneProtected: 6, CodePathRejected: 6,

	CodeConfigInvalid: 7, CodeStartupKeyOnDB: 7, CodeConfigFileNotFound: 7,

	CodeIOFailed: 8, CodeFileNotFound: 8, CodePermission: 8,

	CodeInternal: 1,
}

// E is the structured error carried through the system, satisfying the
// error interface and the §7 JSON shape `{code, message, hint?,
// retryable, context?}`.
type E struct {
	Code      Code                   `json:"code"`
	Message   string                 `json:"message"`
	Hint      string                 `json:"hint,omitempty"`
	Retryable bool                   `json:"retryable"`
	Context   map[string]interface{} `json:"context,omitempty"`

	// cause is not serialized; it supports errors.Unwrap for %w chains.
	cause error
}

func (e *E) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s (hint: %s)", e.Message, e.Hint)
	}
	return e.Message
}

func (e *E) Unwrap() error { return e.cause }

// ExitCode returns the process exit code for this error's category.
func (e *E) ExitCode() int {
	if code, ok := exitCodes[e.Code]; ok {
		return code
	}
	return 1
}

// New constructs a structured error for the given code.
func New(code Code, message string) *E {
	return &E{Code: code, Message: message, Retryable: retryable[code]}
}

// Wrap constructs a structured error that preserves an underlying cause
// for errors.Is/errors.As and %w-style chains.
func Wrap(code Code, message string, cause error) *E {
	e := New(code, message)
	e.cause = cause
	return e
}

// WithHint attaches a "did you mean" or remediation hint.
func (e *E) WithHint(hint string) *E {
	e.Hint = hint
	return e
}

// WithContext attaches structured context (searched ID, cycle path, etc.).
func (e *E) WithContext(key string, value interface{}) *E {
	if e.Context == nil {
		e.Context = map[string]interface{}{}
	}
	e.Context[key] = value
	return e
}

// jsonEnvelope is the top-level shape printed in --json error mode.
type jsonEnvelope struct {
	Error *E `json:"error"`
}

// JSON renders the error as the single `{"error": {...}}` object spec.md
// §7 mandates for JSON-mode output.
func (e *E) JSON() ([]byte, error) {
	return json.Marshal(jsonEnvelope{Error: e})
}

// HumanLines renders the two-line human-mode form: "Error: <message>"
// followed by an optional hint line.
func (e *E) HumanLines() []string {
	lines := []string{"Error: " + e.Message}
	if e.Hint != "" {
		lines = append(lines, "Hint: "+e.Hint)
	}
	return lines
}
