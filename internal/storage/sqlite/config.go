// Package sqlite - database-layer config and single-value metadata
// (component I's merge target, and bookkeeping like last_import_hash).
//
// Grounded on the config table's usage scattered across
// ttrei-beads/internal/storage/sqlite (sqlite.go's issue_prefix lookup,
// ids.go's adaptive-length overrides): this file gives that table a
// proper CRUD surface instead of ad hoc inline SELECT/INSERTs, and adds
// the parallel metadata table (migrateMetadataTable) for single values
// that aren't part of the config layering (e.g. last_import_hash).
package sqlite

import (
	"context"
	"database/sql"

	"github.com/steveyegge/beads/internal/errs"
)

// SetConfig upserts a database-layer config key/value pair.
func (s *SQLiteStorage) SetConfig(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return errs.Wrap(errs.CodeInternal, "failed to set config "+key, err)
	}
	return nil
}

// GetConfig returns the value for key, or "" if unset.
func (s *SQLiteStorage) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errs.Wrap(errs.CodeInternal, "failed to get config "+key, err)
	}
	return value, nil
}

// GetAllConfig returns every database-layer config key/value pair.
func (s *SQLiteStorage) GetAllConfig(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM config`)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "failed to get all config", err)
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, errs.Wrap(errs.CodeInternal, "failed to scan config row", err)
		}
		result[key] = value
	}
	return result, rows.Err()
}

// DeleteConfig removes key, if present.
func (s *SQLiteStorage) DeleteConfig(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM config WHERE key = ?`, key); err != nil {
		return errs.Wrap(errs.CodeInternal, "failed to delete config "+key, err)
	}
	return nil
}

// SetMetadata upserts a single-value bookkeeping entry (not part of the
// config layering, e.g. last_import_hash or jsonl_file_hash).
func (s *SQLiteStorage) SetMetadata(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return errs.Wrap(errs.CodeInternal, "failed to set metadata "+key, err)
	}
	return nil
}

// GetMetadata returns the value for key, or "" if unset.
func (s *SQLiteStorage) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errs.Wrap(errs.CodeInternal, "failed to get metadata "+key, err)
	}
	return value, nil
}
