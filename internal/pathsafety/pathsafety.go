// Package pathsafety is the single choke point every sync-engine
// filesystem access must pass through before any syscall (component A).
//
// No Go example in the retrieved pack implements this; it is grounded
// directly on original_source/src/sync/path.rs (validate_no_git_path,
// validate_sync_path_with_external, require_safe_sync_overwrite_path,
// validate_temp_file_path), re-expressed idiomatically: a Validate
// function returning an opaque Path value that can only be constructed by
// this package, rather than the Rust enum of rejection reasons.
package pathsafety

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AllowedExtensions names the suffixes permitted inside the workspace
// .beads/ directory (spec.md §4.A).
var AllowedExtensions = []string{".db", ".db-wal", ".db-shm", ".jsonl", ".jsonl.tmp"}

// AllowedExactNames names the non-suffix-matched files permitted inside
// the workspace .beads/ directory.
var AllowedExactNames = []string{".manifest.json", "metadata.json"}

// Path is an opaque validated filesystem path. The only way to obtain one
// is through Validate or ValidateTempFile — any code that needs to touch
// the filesystem for sync purposes must be given one of these rather than
// a raw string, so a bypass of the allowlist is a compile-time-visible bug.
type Path struct {
	raw string
}

// String returns the underlying path for use with os/io calls.
func (p Path) String() string { return p.raw }

// RejectedError describes why a path failed validation. The message is
// precise and safe to surface in the error layer (§7).
type RejectedError struct {
	Path   string
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("path rejected: %s (%s)", e.Path, e.Reason)
}

func reject(path, reason string) error {
	Logger().Warnf("rejected sync path %q: %s", path, reason)
	return &RejectedError{Path: path, Reason: reason}
}

// hasGitComponent reports whether any path component (raw or
// canonicalized) is literally ".git". This check is unconditional and
// is the first one Validate runs — it cannot be overridden by allow-external.
func hasGitComponent(path string) bool {
	for _, p := range []string{path, canonicalize(path)} {
		if p == "" {
			continue
		}
		for _, part := range strings.Split(filepath.ToSlash(p), "/") {
			if part == ".git" {
				return true
			}
		}
	}
	return false
}

func hasDotDot(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return true
		}
	}
	return false
}

// canonicalize resolves symlinks and relative segments where possible. If
// the path (or an existing ancestor) cannot be resolved, it falls back to
// filepath.Clean so validation degrades to the raw path rather than
// failing open.
func canonicalize(path string) string {
	if path == "" {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	dir := filepath.Dir(path)
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		return filepath.Join(resolved, filepath.Base(path))
	}
	return filepath.Clean(path)
}

func hasAllowedExtensionOrName(path string) bool {
	base := filepath.Base(path)
	for _, name := range AllowedExactNames {
		if base == name {
			return true
		}
	}
	for _, ext := range AllowedExtensions {
		if strings.HasSuffix(base, ext) {
			return true
		}
	}
	return false
}

func isJSONLPath(path string) bool {
	return strings.HasSuffix(path, ".jsonl") || strings.HasSuffix(path, ".jsonl.tmp")
}

// Validate is the core entry point (spec.md §4.A). beadsDir is the
// workspace's .beads/ directory. allowExternal relaxes the containment
// check for an explicitly opted-in external JSONL path, but never relaxes
// the git check or the ".." check.
func Validate(path, beadsDir string, allowExternal bool) (Path, error) {
	if hasGitComponent(path) {
		return Path{}, reject(path, "touches version-control internals (.git)")
	}
	if hasDotDot(path) {
		return Path{}, reject(path, "contains parent-directory component")
	}

	if allowExternal {
		if !isJSONLPath(path) {
			return Path{}, reject(path, "external path must end in .jsonl or .jsonl.tmp")
		}
		Logger().Debugf("allowed external sync path %q", path)
		return Path{raw: path}, nil
	}

	canonBeadsDir := canonicalize(beadsDir)
	canonPath := canonicalize(path)
	if canonBeadsDir != "" && canonPath != "" {
		rel, err := filepath.Rel(canonBeadsDir, canonPath)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return Path{}, reject(path, "escapes the workspace .beads/ directory")
		}
	}

	if !hasAllowedExtensionOrName(path) {
		return Path{}, reject(path, "extension or name not in the sync allowlist")
	}

	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		target, err := filepath.EvalSymlinks(path)
		if err != nil {
			return Path{}, reject(path, "symlink target could not be resolved")
		}
		rel, err := filepath.Rel(canonBeadsDir, target)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return Path{}, reject(path, "symlink escapes the workspace directory")
		}
	}

	Logger().Debugf("allowed sync path %q", path)
	return Path{raw: path}, nil
}

// ValidateTempFile validates a temp path used for an atomic write. The
// temp path must share a directory with the target and end in ".tmp",
// per spec.md §4.A's temp-file rule.
func ValidateTempFile(tempPath, targetPath, beadsDir string, allowExternal bool) (Path, error) {
	if !strings.HasSuffix(tempPath, ".tmp") {
		return Path{}, reject(tempPath, "temp file must end in .tmp")
	}
	if filepath.Dir(tempPath) != filepath.Dir(targetPath) {
		return Path{}, reject(tempPath, "temp file must share a directory with its target")
	}
	if hasGitComponent(tempPath) {
		return Path{}, reject(tempPath, "touches version-control internals (.git)")
	}
	if hasDotDot(tempPath) {
		return Path{}, reject(tempPath, "contains parent-directory component")
	}
	// The temp name itself (e.g. "issues.jsonl.1234.tmp") needn't match the
	// static extension allowlist's suffix rule exactly, so long as it sits
	// beside an already-validated target and ends in .tmp.
	if _, err := Validate(targetPath, beadsDir, allowExternal); err != nil {
		return Path{}, err
	}
	Logger().Debugf("allowed temp sync path %q", tempPath)
	return Path{raw: tempPath}, nil
}

// RequireSafeOverwrite validates a path immediately before a destructive
// operation (rename-over, delete), tagging the log line with the
// operation name for auditing.
func RequireSafeOverwrite(path, beadsDir string, allowExternal bool, operation string) (Path, error) {
	p, err := Validate(path, beadsDir, allowExternal)
	if err != nil {
		return Path{}, err
	}
	Logger().Debugf("safe overwrite check passed for %q (operation=%s)", path, operation)
	return p, nil
}
