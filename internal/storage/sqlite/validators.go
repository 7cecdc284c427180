// Package sqlite - per-field guards for UpdateIssue's partial update map.
//
// UpdateIssue takes map[string]interface{} straight from the CLI layer, so
// unlike CreateIssue it never runs through types.Issue.Validate as a whole;
// these guards are applied one changed field at a time. The priority,
// title and estimated_minutes guards match Validate; the status and
// issue_type guards are stricter and accept only the built-in values,
// while Validate lets custom status and type strings through.
package sqlite

import (
	"fmt"

	"github.com/steveyegge/beads/internal/types"
)

// titleMaxLength mirrors schema.go's `CHECK(length(title) <= 500)` so a
// too-long title is rejected before it reaches SQLite's constraint error.
const titleMaxLength = 500

func validatePriority(value interface{}) error {
	priority, ok := value.(int)
	if !ok {
		return nil
	}
	if priority < 0 || priority > 4 {
		return fmt.Errorf("priority must be between 0 and 4 (got %d)", priority)
	}
	return nil
}

func validateStatus(value interface{}) error {
	status, ok := value.(string)
	if !ok {
		return nil
	}
	if !types.Status(status).IsValid() {
		return fmt.Errorf("invalid status: %s", status)
	}
	return nil
}

func validateIssueType(value interface{}) error {
	issueType, ok := value.(string)
	if !ok {
		return nil
	}
	if !types.IssueType(issueType).IsValid() {
		return fmt.Errorf("invalid issue type: %s", issueType)
	}
	return nil
}

func validateTitle(value interface{}) error {
	title, ok := value.(string)
	if !ok {
		return nil
	}
	if len(title) == 0 || len(title) > titleMaxLength {
		return fmt.Errorf("title must be 1-%d characters", titleMaxLength)
	}
	return nil
}

func validateEstimatedMinutes(value interface{}) error {
	mins, ok := value.(int)
	if !ok {
		return nil
	}
	if mins < 0 {
		return fmt.Errorf("estimated_minutes cannot be negative")
	}
	return nil
}

var fieldValidators = map[string]func(interface{}) error{
	"priority":          validatePriority,
	"status":            validateStatus,
	"issue_type":        validateIssueType,
	"title":             validateTitle,
	"estimated_minutes": validateEstimatedMinutes,
}

// validateFieldUpdate runs the named field's guard, if one is registered;
// fields with no registered guard (assignee, labels-adjacent text fields,
// etc.) pass through unchecked, matching UpdateIssue's free-form column set.
func validateFieldUpdate(key string, value interface{}) error {
	if validator, ok := fieldValidators[key]; ok {
		return validator(value)
	}
	return nil
}
