package contenthash

import (
	"testing"
	"time"

	"github.com/steveyegge/beads/internal/types"
)

func base() *types.Issue {
	return &types.Issue{
		ID:        "bd-1",
		Title:     "Fix the thing",
		Status:    types.StatusOpen,
		Priority:  2,
		IssueType: types.TypeBug,
	}
}

func TestPurity(t *testing.T) {
	a := base()
	b := base()
	b.ID = "bd-999"
	b.CreatedAt = time.Now()
	b.UpdatedAt = time.Now().Add(time.Hour)
	b.Labels = []string{"urgent"}
	b.Dependencies = []*types.Dependency{{IssueID: "bd-999", DependsOnID: "bd-2"}}
	b.Comments = []*types.Comment{{Text: "hi"}}

	if Compute(a) != Compute(b) {
		t.Fatalf("hash should be invariant to id/timestamps/relations")
	}
}

func TestSensitivity(t *testing.T) {
	a := base()
	mutators := []func(*types.Issue){
		func(i *types.Issue) { i.Title = "Different title" },
		func(i *types.Issue) { i.Description = "now has a description" },
		func(i *types.Issue) { i.Design = "some design" },
		func(i *types.Issue) { i.AcceptanceCriteria = "must pass" },
		func(i *types.Issue) { i.Notes = "a note" },
		func(i *types.Issue) { i.Status = types.StatusClosed },
		func(i *types.Issue) { i.Priority = 0 },
		func(i *types.Issue) { i.IssueType = types.TypeFeature },
	}
	base := Compute(a)
	for idx, mutate := range mutators {
		b := base2(a)
		mutate(b)
		if Compute(b) == base {
			t.Errorf("mutator %d: expected hash to change", idx)
		}
	}
}

func base2(i *types.Issue) *types.Issue {
	cp := *i
	return &cp
}

func TestDeterministic(t *testing.T) {
	a := base()
	if Compute(a) != Compute(a) {
		t.Fatalf("hash must be deterministic across calls")
	}
}
