package errs

import "strings"

// synonyms maps common free-text values agents type to their canonical
// form, per spec.md §7 "Intent detection for agent-friendliness". No
// example in the retrieved pack covers this literal table; authored
// directly from spec.md's prose examples.
var synonyms = map[string]string{
	"done":    "closed",
	"wip":     "in_progress",
	"doing":   "in_progress",
	"story":   "feature",
	"high":    "1",
	"critical": "0",
	"low":     "4",
	"urgent":  "0",
}

// SynonymHint returns a "did you mean" suggestion for a free-text value
// that failed strict validation, or "" if no synonym is known.
func SynonymHint(value string) string {
	if canonical, ok := synonyms[strings.ToLower(strings.TrimSpace(value))]; ok {
		return "did you mean " + canonical + "?"
	}
	return ""
}

// Levenshtein computes the edit distance between two strings. Used by the
// ID resolver (§4.C) and the error layer (§7) to suggest near-miss IDs;
// no ecosystem library in the retrieved pack covers this narrow a need,
// so it is implemented directly on the standard library (documented in
// DESIGN.md as a standard-library exception).
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			curr[j] = min3(del, ins, sub)
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// SimilarIDs returns candidates from known within Levenshtein distance <=3
// of target, sorted by increasing distance — used to populate the
// structured-error context's "similar IDs" field (§7).
func SimilarIDs(target string, known []string) []string {
	type scored struct {
		id   string
		dist int
	}
	var candidates []scored
	for _, id := range known {
		d := Levenshtein(target, id)
		if d <= 3 {
			candidates = append(candidates, scored{id, d})
		}
	}
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && candidates[j-1].dist > candidates[j].dist; j-- {
			candidates[j-1], candidates[j] = candidates[j], candidates[j-1]
		}
	}
	result := make([]string, len(candidates))
	for i, c := range candidates {
		result[i] = c.id
	}
	return result
}
