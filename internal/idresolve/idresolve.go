// Package idresolve implements component C: mapping a user-supplied
// prefix/suffix fragment to a canonical issue ID, detecting ambiguity.
//
// Grounded on the suffix-matching and collision-handling helpers spread
// across ttrei-beads/internal/storage/sqlite/ids.go and collision.go,
// generalized into a standalone, storage-agnostic resolver that operates
// over a caller-supplied ID list (the storage layer calls this after
// fetching all known IDs, keeping SQL concerns out of this package).
package idresolve

import (
	"strings"

	"github.com/steveyegge/beads/internal/errs"
)

// Lookup is the callback the resolver uses to get the full list of known
// issue IDs to search for suffix matches.
type Lookup func() ([]string, error)

// Resolve implements the §4.C procedure:
//  1. Verbatim match wins outright.
//  2. Otherwise treat the input as a suffix fragment; find every ID whose
//     suffix contains it.
//  3. Zero matches -> NotFound (with Levenshtein suggestions).
//  4. One match -> that ID.
//  5. Many matches -> Ambiguous, with the full list.
//
// external:* IDs are opaque and bypass resolution entirely.
func Resolve(input string, lookup Lookup) (string, error) {
	if strings.HasPrefix(input, "external:") {
		return input, nil
	}

	ids, err := lookup()
	if err != nil {
		return "", errs.Wrap(errs.CodeDatabaseConnection, "failed to list known issue ids", err)
	}

	for _, id := range ids {
		if id == input {
			return id, nil
		}
	}

	var matches []string
	for _, id := range ids {
		suffix := id
		if idx := strings.LastIndex(id, "-"); idx >= 0 {
			suffix = id[idx+1:]
		}
		if strings.Contains(suffix, input) {
			matches = append(matches, id)
		}
	}

	switch len(matches) {
	case 0:
		similar := errs.SimilarIDs(input, ids)
		e := errs.New(errs.CodeIssueNotFound, "no issue matches \""+input+"\"")
		if len(similar) > 0 {
			e = e.WithHint("did you mean one of: " + strings.Join(similar, ", ") + "?")
			e = e.WithContext("similar_ids", similar)
		}
		return "", e
	case 1:
		return matches[0], nil
	default:
		return "", errs.New(errs.CodeAmbiguousID, "\""+input+"\" matches multiple issues").
			WithContext("matches", matches)
	}
}
