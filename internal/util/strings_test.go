package util

import (
	"reflect"
	"testing"
)

func TestNormalizeLabels(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{"nil input", nil, []string{}},
		{"already clean", []string{"bug", "critical"}, []string{"bug", "critical"}},
		{"trims surrounding whitespace", []string{"  bug  ", " critical"}, []string{"bug", "critical"}},
		{"drops duplicates, keeps first occurrence order", []string{"bug", "bug", "critical", "bug"}, []string{"bug", "critical"}},
		{"duplicate only after trimming", []string{"bug", "  bug  ", " bug"}, []string{"bug"}},
		{"drops empty and whitespace-only entries", []string{"bug", "", "  ", "\t", "critical"}, []string{"bug", "critical"}},
		{"case distinct labels stay distinct", []string{"Bug", "bug", "BUG"}, []string{"Bug", "bug", "BUG"}},
		{"preserves internal spaces in a label", []string{"needs review", "  needs review  ", "in progress"}, []string{"needs review", "in progress"}},
		{
			"mixed everything at once",
			[]string{"  bug  ", "", "bug", "critical", "   ", "frontend", "critical", "  frontend  "},
			[]string{"bug", "critical", "frontend"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeLabels(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeLabels(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
