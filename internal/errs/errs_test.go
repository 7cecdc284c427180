package errs

import "testing"

func TestExitCodeCategories(t *testing.T) {
	cases := []struct {
		code Code
		want int
	}{
		{CodeDatabaseLocked, 2},
		{CodeIssueNotFound, 3},
		{CodeValidationFailed, 4},
		{CodeDependencyCycle, 5},
		{CodeConflictMarkers, 6},
		{CodeConfigInvalid, 7},
		{CodeIOFailed, 8},
		{CodeInternal, 1},
	}
	for _, c := range cases {
		e := New(c.code, "boom")
		if got := e.ExitCode(); got != c.want {
			t.Errorf("%s: ExitCode() = %d, want %d", c.code, got, c.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	if !New(CodeDatabaseLocked, "x").Retryable {
		t.Error("database locked should be retryable")
	}
	if !New(CodeAmbiguousID, "x").Retryable {
		t.Error("ambiguous id should be retryable")
	}
	if New(CodeIssueNotFound, "x").Retryable {
		t.Error("issue not found should not be retryable")
	}
}

func TestJSONEnvelope(t *testing.T) {
	e := New(CodeIssueNotFound, "no such issue").WithHint("check the id")
	data, err := e.JSON()
	if err != nil {
		t.Fatal(err)
	}
	want := `"error"`
	if !contains(string(data), want) {
		t.Errorf("expected %q in %s", want, data)
	}
}

func contains(s, sub string) bool {
	return len(s) >= len(sub) && (indexOf(s, sub) >= 0)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func TestSynonymHint(t *testing.T) {
	if got := SynonymHint("done"); got == "" {
		t.Error("expected a hint for 'done'")
	}
	if got := SynonymHint("nonsense"); got != "" {
		t.Errorf("expected no hint, got %q", got)
	}
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"bd-1", "bd-1", 0},
		{"bd-1", "bd-2", 1},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
	}
	for _, c := range cases {
		if got := Levenshtein(c.a, c.b); got != c.want {
			t.Errorf("Levenshtein(%q,%q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestSimilarIDs(t *testing.T) {
	known := []string{"bd-1", "bd-12", "bd-999", "bd-2"}
	got := SimilarIDs("bd-1", known)
	if len(got) == 0 {
		t.Fatal("expected at least one similar id")
	}
	if got[0] != "bd-1" {
		t.Errorf("expected exact match first, got %v", got)
	}
}
