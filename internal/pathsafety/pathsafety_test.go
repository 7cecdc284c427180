package pathsafety

import (
	"os"
	"path/filepath"
	"testing"
)

func setupWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	beadsDir := filepath.Join(dir, ".beads")
	if err := os.MkdirAll(beadsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	return beadsDir
}

func TestGitIsolationAlwaysRejected(t *testing.T) {
	beadsDir := setupWorkspace(t)
	paths := []string{
		filepath.Join(beadsDir, ".git", "config"),
		filepath.Join(filepath.Dir(beadsDir), ".git", "HEAD"),
	}
	for _, p := range paths {
		if _, err := Validate(p, beadsDir, false); err == nil {
			t.Errorf("expected rejection for %q", p)
		}
		// Even with external opt-in, the git check cannot be bypassed.
		if _, err := Validate(p, beadsDir, true); err == nil {
			t.Errorf("expected rejection for %q even with allowExternal=true", p)
		}
	}
}

func TestDotDotAlwaysRejected(t *testing.T) {
	beadsDir := setupWorkspace(t)
	p := beadsDir + string(filepath.Separator) + ".." + string(filepath.Separator) + "escape.jsonl"
	if _, err := Validate(p, beadsDir, false); err == nil {
		t.Errorf("expected rejection for path containing ..")
	}
}

func TestContainmentEnforced(t *testing.T) {
	beadsDir := setupWorkspace(t)
	outside := filepath.Join(filepath.Dir(beadsDir), "issues.jsonl")
	if _, err := Validate(outside, beadsDir, false); err == nil {
		t.Errorf("expected rejection for path outside workspace")
	}
}

func TestAllowedInsideWorkspace(t *testing.T) {
	beadsDir := setupWorkspace(t)
	for _, name := range []string{"beads.db", "beads.db-wal", "issues.jsonl", "issues.jsonl.tmp", "metadata.json", ".manifest.json"} {
		p := filepath.Join(beadsDir, name)
		if _, err := Validate(p, beadsDir, false); err != nil {
			t.Errorf("expected %q to be allowed, got %v", p, err)
		}
	}
}

func TestDisallowedExtension(t *testing.T) {
	beadsDir := setupWorkspace(t)
	p := filepath.Join(beadsDir, "notes.txt")
	if _, err := Validate(p, beadsDir, false); err == nil {
		t.Errorf("expected rejection for disallowed extension")
	}
}

func TestExternalJSONLOptIn(t *testing.T) {
	beadsDir := setupWorkspace(t)
	outside := filepath.Join(filepath.Dir(beadsDir), "shared", "issues.jsonl")
	if _, err := Validate(outside, beadsDir, true); err != nil {
		t.Errorf("expected external jsonl to be allowed, got %v", err)
	}
	outsideDB := filepath.Join(filepath.Dir(beadsDir), "shared", "issues.db")
	if _, err := Validate(outsideDB, beadsDir, true); err == nil {
		t.Errorf("expected external .db path to be rejected")
	}
}

func TestTempFileRule(t *testing.T) {
	beadsDir := setupWorkspace(t)
	target := filepath.Join(beadsDir, "issues.jsonl")
	goodTemp := filepath.Join(beadsDir, "issues.jsonl.123.tmp")
	if _, err := ValidateTempFile(goodTemp, target, beadsDir, false); err != nil {
		t.Errorf("expected temp file in same dir to be allowed, got %v", err)
	}
	badDirTemp := filepath.Join(filepath.Dir(beadsDir), "issues.jsonl.tmp")
	if _, err := ValidateTempFile(badDirTemp, target, beadsDir, false); err == nil {
		t.Errorf("expected temp file in different dir to be rejected")
	}
	badSuffix := filepath.Join(beadsDir, "issues.jsonl.bak")
	if _, err := ValidateTempFile(badSuffix, target, beadsDir, false); err == nil {
		t.Errorf("expected temp file without .tmp suffix to be rejected")
	}
}
