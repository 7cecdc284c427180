// Package sqlite - content-derived hash ID generation (component C's
// writer side).
//
// Grounded on ttrei-beads's hash_ids.go (generateHashID's SHA-256 over
// title|description|creator|timestamp|nonce, truncated to 4/5/6/7/8
// hex characters), adaptive_length.go (computeAdaptiveLength's
// birthday-paradox collision estimate and its config-table overrides
// max_collision_prob/min_hash_length/max_hash_length), and ids.go's
// nonce-then-length retry loop (10 nonces per length before escalating
// to the next length, capped at 8).
package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/steveyegge/beads/internal/errs"
)

// adaptiveIDConfig mirrors the teacher's AdaptiveIDConfig: the
// collision-probability threshold at which ID length scales up, and
// the length bounds it scales within.
type adaptiveIDConfig struct {
	maxCollisionProbability float64
	minLength               int
	maxLength               int
}

func defaultAdaptiveIDConfig() adaptiveIDConfig {
	return adaptiveIDConfig{maxCollisionProbability: 0.25, minLength: 4, maxLength: 8}
}

// collisionProbability estimates P(collision) for n issues in a
// hex (base-16) ID space of the given length via the birthday
// paradox approximation P ≈ 1 - e^(-n²/2N).
func collisionProbability(numIssues, idLength int) float64 {
	const base = 16.0
	totalPossibilities := math.Pow(base, float64(idLength))
	exponent := -float64(numIssues*numIssues) / (2.0 * totalPossibilities)
	return 1.0 - math.Exp(exponent)
}

func computeAdaptiveLength(numIssues int, config adaptiveIDConfig) int {
	for length := config.minLength; length <= config.maxLength; length++ {
		if collisionProbability(numIssues, length) <= config.maxCollisionProbability {
			return length
		}
	}
	return config.maxLength
}

func getAdaptiveIDConfig(ctx context.Context, conn *sql.Conn) adaptiveIDConfig {
	config := defaultAdaptiveIDConfig()

	if v, err := configValue(ctx, conn, "max_collision_prob"); err == nil && v != "" {
		if prob, err := strconv.ParseFloat(v, 64); err == nil {
			config.maxCollisionProbability = prob
		}
	}
	if v, err := configValue(ctx, conn, "min_hash_length"); err == nil && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.minLength = n
		}
	}
	if v, err := configValue(ctx, conn, "max_hash_length"); err == nil && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.maxLength = n
		}
	}
	return config
}

func configValue(ctx context.Context, conn *sql.Conn, key string) (string, error) {
	var value string
	err := conn.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// configPrefix reads the database's configured issue-ID prefix,
// refusing to generate an ID until one is set (the teacher requires
// `bd init --prefix` to run first).
func configPrefix(ctx context.Context, conn *sql.Conn, dbPath string) (string, error) {
	prefix, err := configValue(ctx, conn, "issue_prefix")
	if err != nil {
		return "", errs.Wrap(errs.CodeInternal, "failed to read issue prefix", err)
	}
	if prefix == "" {
		return "", errs.New(errs.CodeConfigInvalid, "database has no issue_prefix configured; run init first")
	}
	return prefix, nil
}

func countTopLevelIssues(ctx context.Context, conn *sql.Conn, prefix string) (int, error) {
	var count int
	err := conn.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM issues
		WHERE id LIKE ? || '-%'
		  AND instr(substr(id, length(?) + 2), '.') = 0
	`, prefix, prefix).Scan(&count)
	return count, err
}

func adaptiveIDLength(ctx context.Context, conn *sql.Conn, prefix string) int {
	numIssues, err := countTopLevelIssues(ctx, conn, prefix)
	if err != nil {
		return 6
	}
	return computeAdaptiveLength(numIssues, getAdaptiveIDConfig(ctx, conn))
}

// generateHashID derives a deterministic-looking but content-keyed
// short ID: sha256(title|description|creator|timestamp|nonce),
// truncated to the requested hex length.
func generateHashID(prefix, title, description, creator string, timestamp time.Time, length, nonce int) string {
	content := fmt.Sprintf("%s|%s|%s|%d|%d", title, description, creator, timestamp.UnixNano(), nonce)
	hash := sha256.Sum256([]byte(content))

	var shortHash string
	switch length {
	case 4:
		shortHash = hex.EncodeToString(hash[:2])
	case 5:
		shortHash = hex.EncodeToString(hash[:3])[:5]
	case 6:
		shortHash = hex.EncodeToString(hash[:3])
	case 7:
		shortHash = hex.EncodeToString(hash[:4])[:7]
	case 8:
		shortHash = hex.EncodeToString(hash[:4])
	default:
		shortHash = hex.EncodeToString(hash[:3])
	}
	return fmt.Sprintf("%s-%s", prefix, shortHash)
}

// generateIssueIDTx picks an adaptive base length, then tries up to 10
// nonces per length, escalating length up to 8 hex characters, until it
// finds an ID not already present in issues.
func generateIssueIDTx(ctx context.Context, conn *sql.Conn, prefix, title, description, creator string, timestamp time.Time) (string, error) {
	baseLength := adaptiveIDLength(ctx, conn, prefix)
	const maxLength = 8
	if baseLength > maxLength {
		baseLength = maxLength
	}

	for length := baseLength; length <= maxLength; length++ {
		for nonce := 0; nonce < 10; nonce++ {
			candidate := generateHashID(prefix, title, description, creator, timestamp, length, nonce)

			var exists int
			if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM issues WHERE id = ?`, candidate).Scan(&exists); err != nil {
				return "", errs.Wrap(errs.CodeInternal, "failed to check id uniqueness", err)
			}
			if exists == 0 {
				return candidate, nil
			}
		}
	}
	return "", errs.New(errs.CodeInternal, fmt.Sprintf("failed to generate unique id after trying lengths %d-%d", baseLength, maxLength))
}

// GenerateIssueID is the Storage-interface entry point, used by
// callers that mint an ID outside an existing mutation (e.g. CLI
// preview of the ID an issue would receive).
func (s *SQLiteStorage) GenerateIssueID(ctx context.Context, prefix, title, description, creator string) (string, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return "", errs.Wrap(errs.CodeDatabaseConnection, "failed to acquire connection", err)
	}
	defer func() { _ = conn.Close() }()
	return generateIssueIDTx(ctx, conn, prefix, title, description, creator, time.Now())
}

// GetNextChildID mints the next hierarchical child ID for parentID,
// formatted as parentID.N (or parentID.N.M up to 3 levels deep),
// using an atomic INSERT ... ON CONFLICT counter per parent.
func (s *SQLiteStorage) GetNextChildID(ctx context.Context, parentID string) (string, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM issues WHERE id = ?`, parentID).Scan(&exists); err != nil {
		return "", errs.Wrap(errs.CodeInternal, "failed to check parent existence", err)
	}
	if exists == 0 {
		return "", errs.New(errs.CodeIssueNotFound, "parent issue "+parentID+" does not exist")
	}

	if strings.Count(parentID, ".") >= 3 {
		return "", errs.New(errs.CodeValidationFailed, "maximum hierarchy depth (3) exceeded for parent "+parentID)
	}

	var nextChild int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO issue_counters (prefix, last_id)
		VALUES (?, 1)
		ON CONFLICT(prefix) DO UPDATE SET last_id = last_id + 1
		RETURNING last_id
	`, parentID).Scan(&nextChild)
	if err != nil {
		return "", errs.Wrap(errs.CodeInternal, "failed to generate next child id for parent "+parentID, err)
	}
	return fmt.Sprintf("%s.%d", parentID, nextChild), nil
}
