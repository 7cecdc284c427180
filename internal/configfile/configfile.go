// Package configfile reads and writes the small JSON pin `bd init` leaves
// in a workspace's .beads directory, naming the database and JSONL export
// filenames a discovery glob would otherwise have to guess at.
//
// Grounded on ttrei-beads/internal/configfile/configfile.go; the pin's
// write path is changed from a direct os.WriteFile to a temp-file-then-
// rename, matching the atomicity internal/sync's writeJSONLAtomic already
// gives the JSONL export itself, so a crash mid-write never leaves a
// truncated config.json for the next `bd` invocation to trip over.
package configfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// PinFileName is the name `bd init` gives its discovery-hint file inside
// the .beads directory.
const PinFileName = "config.json"

const (
	defaultDatabaseName = "beads.db"
	defaultJSONLName    = "beads.jsonl"
)

// Config is the pin a workspace's .beads directory carries, naming the
// database and JSONL export files a bare glob would otherwise resolve
// lexicographically rather than by which one `bd init` actually created.
type Config struct {
	Database    string `json:"database"`
	Version     string `json:"version"`
	JSONLExport string `json:"jsonl_export,omitempty"`
}

// DefaultConfig returns the pin `bd init` writes for a freshly created
// workspace, stamped with the running binary's version.
func DefaultConfig(version string) *Config {
	return &Config{
		Database:    defaultDatabaseName,
		Version:     version,
		JSONLExport: defaultJSONLName,
	}
}

// PinPath returns the path of the pin file inside beadsDir.
func PinPath(beadsDir string) string {
	return filepath.Join(beadsDir, PinFileName)
}

// Load reads the pin from beadsDir, returning (nil, nil) if no pin file
// exists yet (a workspace `bd init` hasn't touched, or one using an older
// layout with no pin at all).
func Load(beadsDir string) (*Config, error) {
	data, err := os.ReadFile(PinPath(beadsDir)) // #nosec G304 -- beadsDir is caller-controlled, not request input
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config pin: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config pin: %w", err)
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("config pin at %s has an empty database field", PinPath(beadsDir))
	}
	return &cfg, nil
}

// Save writes the pin into beadsDir via a temp file and rename, so a
// reader never observes a partially written config.json.
func (c *Config) Save(beadsDir string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config pin: %w", err)
	}

	target := PinPath(beadsDir)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing config pin: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("installing config pin: %w", err)
	}
	return nil
}

// DatabasePath resolves the pinned database filename against beadsDir.
func (c *Config) DatabasePath(beadsDir string) string {
	return filepath.Join(beadsDir, c.Database)
}

// JSONLPath resolves the pinned JSONL export filename against beadsDir,
// falling back to the default export name for a pin predating that field.
func (c *Config) JSONLPath(beadsDir string) string {
	if c.JSONLExport == "" {
		return filepath.Join(beadsDir, defaultJSONLName)
	}
	return filepath.Join(beadsDir, c.JSONLExport)
}
