// Package sqlite - export content-hash bookkeeping (component G).
//
// Grounded on ttrei-beads/internal/storage/sqlite/hash.go's
// export_hashes table and GetExportHash/SetExportHash pair, used by the
// export engine to skip re-serializing issues whose content hasn't
// changed since the last JSONL write. GetJSONLFileHash/SetJSONLFileHash
// extend this to the whole-file hash the import engine (component H)
// checks at sync start to detect external edits to the JSONL file,
// stored in the generic metadata table under a fixed key.
package sqlite

import (
	"context"
	"database/sql"

	"github.com/steveyegge/beads/internal/errs"
)

// GetExportHash returns the content hash recorded at the last export of
// issueID, or "" if it has never been exported.
func (s *SQLiteStorage) GetExportHash(ctx context.Context, issueID string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT content_hash FROM export_hashes WHERE issue_id = ?`, issueID).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errs.Wrap(errs.CodeInternal, "failed to get export hash for "+issueID, err)
	}
	return hash, nil
}

// SetExportHash records the content hash of issueID after a successful
// export.
func (s *SQLiteStorage) SetExportHash(ctx context.Context, issueID, contentHash string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO export_hashes (issue_id, content_hash, exported_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(issue_id) DO UPDATE SET content_hash = excluded.content_hash, exported_at = CURRENT_TIMESTAMP
	`, issueID, contentHash)
	if err != nil {
		return errs.Wrap(errs.CodeInternal, "failed to set export hash for "+issueID, err)
	}
	return nil
}

const jsonlFileHashKey = "jsonl_file_hash"

// GetJSONLFileHash returns the whole-file hash recorded at the end of
// the last successful export/import round-trip, or "" if none exists.
func (s *SQLiteStorage) GetJSONLFileHash(ctx context.Context) (string, error) {
	return s.GetMetadata(ctx, jsonlFileHashKey)
}

// SetJSONLFileHash records the whole-file hash of the JSONL file as of
// the last successful export/import.
func (s *SQLiteStorage) SetJSONLFileHash(ctx context.Context, fileHash string) error {
	return s.SetMetadata(ctx, jsonlFileHashKey, fileHash)
}
