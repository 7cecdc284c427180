package beads

import (
	"os"
	"path/filepath"
	"testing"
)

func mustWriteFakeDB(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte("fake db"), 0o600); err != nil {
		t.Fatalf("WriteFile(%s): %v", path, err)
	}
}

func TestFindAllDatabasesOrdersClosestFirst(t *testing.T) {
	tmpDir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("EvalSymlinks: %v", err)
	}

	rootDB := filepath.Join(tmpDir, ".beads", "test.db")
	mustWriteFakeDB(t, rootDB)

	project1Dir := filepath.Join(tmpDir, "project1")
	project1DB := filepath.Join(project1Dir, ".beads", "project1.db")
	mustWriteFakeDB(t, project1DB)

	subdir := filepath.Join(project1Dir, "subdir")
	if err := os.MkdirAll(subdir, 0o750); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	withWorkingDir(t, subdir)

	databases := FindAllDatabases()
	if len(databases) != 2 {
		t.Fatalf("FindAllDatabases() returned %d entries, want 2", len(databases))
	}
	if databases[0].Path != project1DB {
		t.Errorf("databases[0].Path = %q, want the closer %q", databases[0].Path, project1DB)
	}
	if databases[1].Path != rootDB {
		t.Errorf("databases[1].Path = %q, want the farther %q", databases[1].Path, rootDB)
	}
}

func TestFindAllDatabasesSingleAndNone(t *testing.T) {
	t.Run("single database", func(t *testing.T) {
		tmpDir, err := filepath.EvalSymlinks(t.TempDir())
		if err != nil {
			t.Fatalf("EvalSymlinks: %v", err)
		}
		dbPath := filepath.Join(tmpDir, ".beads", "test.db")
		mustWriteFakeDB(t, dbPath)
		withWorkingDir(t, tmpDir)

		databases := FindAllDatabases()
		if len(databases) != 1 || databases[0].Path != dbPath {
			t.Fatalf("FindAllDatabases() = %+v, want a single entry for %q", databases, dbPath)
		}
	})

	t.Run("no databases", func(t *testing.T) {
		withWorkingDir(t, t.TempDir())
		if databases := FindAllDatabases(); len(databases) != 0 {
			t.Fatalf("FindAllDatabases() = %+v, want none", databases)
		}
	})
}
