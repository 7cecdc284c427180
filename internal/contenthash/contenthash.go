// Package contenthash computes the deterministic, canonical content hash
// of an issue's semantic fields (component B of the storage design).
//
// Grounded on the teacher's ttrei-beads/internal/types/types.go
// Issue.ComputeContentHash, which already uses fixed-order field
// concatenation with a NUL separator — that shape is kept and extended to
// the fuller semantic field set named in spec.md §4.B. Timestamps,
// identity (ID), relations (labels/deps/comments), and tombstone/
// compaction bookkeeping are excluded, per spec.
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/steveyegge/beads/internal/types"
)

const sep = byte(0)

// Compute returns the canonical content hash of an issue's semantic fields.
// It is a total, pure function: identical semantic fields always yield
// byte-identical output, independent of ID, timestamps, or relations.
func Compute(issue *types.Issue) string {
	h := sha256.New()
	write := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{sep})
	}

	write(issue.Title)
	write(issue.Description)
	write(issue.Design)
	write(issue.AcceptanceCriteria)
	write(issue.Notes)
	write(string(issue.Status))
	write(fmt.Sprintf("%d", issue.Priority))
	write(string(issue.IssueType))
	write(issue.Assignee)
	write(issue.Owner)
	write(issue.Sender)

	if issue.ExternalRef != nil {
		write(*issue.ExternalRef)
	} else {
		write("")
	}

	if issue.EstimatedMinutes != nil {
		write(fmt.Sprintf("%d", *issue.EstimatedMinutes))
	} else {
		write("")
	}

	write(boolStr(issue.Ephemeral))
	write(boolStr(issue.Pinned))
	write(boolStr(issue.IsTemplate))

	return hex.EncodeToString(h.Sum(nil))
}

func boolStr(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
