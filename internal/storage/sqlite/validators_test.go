package sqlite

import (
	"strings"
	"testing"

	"github.com/steveyegge/beads/internal/types"
)

func TestFieldValidatorsRejectOutOfRangeValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   interface{}
		wantErr bool
	}{
		{"priority in range", "priority", 2, false},
		{"priority negative", "priority", -1, true},
		{"priority above max", "priority", 5, true},
		{"priority wrong type is ignored", "priority", "urgent", false},
		{"status known value", "status", string(types.StatusBlocked), false},
		{"status unknown value", "status", "on-hold", true},
		{"issue_type known value", "issue_type", string(types.TypeChore), false},
		{"issue_type unknown value", "issue_type", "spike", true},
		{"title non-empty within bound", "title", "fix the thing", false},
		{"title empty", "title", "", true},
		{"title at max length", "title", strings.Repeat("x", titleMaxLength), false},
		{"title over max length", "title", strings.Repeat("x", titleMaxLength+1), true},
		{"estimated_minutes non-negative", "estimated_minutes", 0, false},
		{"estimated_minutes negative", "estimated_minutes", -5, true},
		{"unregistered key passes through", "owner", 12345, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFieldUpdate(tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateFieldUpdate(%q, %v) error = %v, wantErr %v", tt.key, tt.value, err, tt.wantErr)
			}
		})
	}
}
