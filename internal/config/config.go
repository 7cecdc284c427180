// Package config implements component I's layered configuration merge:
// defaults < DB config table < legacy user YAML < user YAML < project
// YAML < environment < CLI overrides, per spec.md §4.I.
//
// Grounded on ttrei-beads/internal/config/config.go's Viper singleton
// (search-path walk, BD_ env prefix, key replacer) for the YAML/env
// layers, generalized into an explicit ordered list of layers rather
// than one flat viper instance, per original_source/src/config/mod.rs's
// ConfigLayer{startup,runtime} + merge_layers shape: each layer is kept
// distinct so the startup/runtime key partition (spec.md §4.I) can
// reject startup keys read from the database layer specifically,
// something a single merged viper instance can't express.
package config

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/steveyegge/beads/internal/errs"
	"github.com/steveyegge/beads/internal/storage"
)

// Layer names a source in the merge chain, lowest precedence first.
type Layer string

const (
	LayerDefaults Layer = "defaults"
	LayerDatabase Layer = "database"
	LayerLegacy   Layer = "legacy-user"
	LayerUser     Layer = "user"
	LayerProject  Layer = "project"
	LayerEnv      Layer = "env"
	LayerCLI      Layer = "cli"
)

// startupKeys may only be set via YAML, env, or CLI — never persisted
// into the database that the same settings configure access to.
var startupKeys = map[string]bool{
	"db":             true,
	"actor":          true,
	"no-daemon":      true,
	"no-auto-flush":  true,
	"no-auto-import": true,
	"no-db":          true,
	"json":           true,
	"lock-timeout":   true,
}

var defaults = map[string]interface{}{
	"json":              false,
	"no-daemon":         false,
	"no-auto-flush":     false,
	"no-auto-import":    false,
	"no-db":             false,
	"db":                "",
	"actor":             "",
	"issue-prefix":      "bd",
	"default-priority":  2,
	"default-type":      "task",
	"sort-policy":       "hybrid",
	"lock-timeout":      "30s",
	"max-hash-length":   8,
	"min-hash-length":   4,
}

// Config is the fully-merged, read-only view a command consults after
// resolution. origin records which layer supplied each key, mainly
// useful for `bd config --show-origin`-style diagnostics.
type Config struct {
	values map[string]interface{}
	origin map[string]Layer
}

// Load resolves every layer in precedence order and returns the merged
// result. store may be nil (e.g. before a database exists yet), in
// which case the database layer is skipped. cliOverrides holds flags
// the invoking command parsed itself (component I never parses flags;
// it only merges what the CLI layer already decided).
func Load(ctx context.Context, store storage.Storage, projectDir string, cliOverrides map[string]interface{}) (*Config, error) {
	cfg := &Config{values: map[string]interface{}{}, origin: map[string]Layer{}}

	cfg.apply(LayerDefaults, defaults)

	if store != nil {
		dbValues, err := store.GetAllConfig(ctx)
		if err != nil {
			return nil, errs.Wrap(errs.CodeConfigInvalid, "failed to read database config layer", err)
		}
		runtimeOnly := map[string]interface{}{}
		for k, v := range dbValues {
			key := normalizeKey(k)
			if startupKeys[key] {
				continue // spec.md §4.I: startup keys are never honored from the DB layer
			}
			runtimeOnly[key] = v
		}
		cfg.apply(LayerDatabase, runtimeOnly)
	}

	if legacy, err := readYAMLLayer(legacyUserPath()); err == nil {
		cfg.apply(LayerLegacy, legacy)
	}
	if user, err := readYAMLLayer(userConfigPath()); err == nil {
		cfg.apply(LayerUser, user)
	}
	if projectDir != "" {
		if project, err := readYAMLLayer(filepath.Join(projectDir, "config.yaml")); err == nil {
			cfg.apply(LayerProject, project)
		}
	}

	cfg.apply(LayerEnv, readEnvLayer())

	if len(cliOverrides) > 0 {
		normalized := make(map[string]interface{}, len(cliOverrides))
		for k, v := range cliOverrides {
			normalized[normalizeKey(k)] = v
		}
		cfg.apply(LayerCLI, normalized)
	}

	return cfg, nil
}

func (c *Config) apply(layer Layer, values map[string]interface{}) {
	for k, v := range values {
		c.values[k] = v
		c.origin[k] = layer
	}
}

// Origin returns which layer last set key, or "" if key was never set.
func (c *Config) Origin(key string) Layer {
	return c.origin[normalizeKey(key)]
}

func (c *Config) GetString(key string) string {
	v, ok := c.values[normalizeKey(key)]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func (c *Config) GetBool(key string) bool {
	v, ok := c.values[normalizeKey(key)]
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(t)
		return b
	default:
		return false
	}
}

func (c *Config) GetInt(key string) int {
	v, ok := c.values[normalizeKey(key)]
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case int:
		return t
	case float64:
		return int(t)
	case string:
		n, _ := strconv.Atoi(t)
		return n
	default:
		return 0
	}
}

// AllSettings returns the fully-merged key/value view.
func (c *Config) AllSettings() map[string]interface{} {
	out := make(map[string]interface{}, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// IsStartupKey reports whether key is reserved to the non-database
// layers (spec.md §4.I's startup/runtime partition).
func IsStartupKey(key string) bool {
	return startupKeys[normalizeKey(key)]
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.ReplaceAll(key, "_", "-"))
}

func legacyUserPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".beadsrc.yaml")
}

func userConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "bd", "config.yaml")
}

func readYAMLLayer(path string) (map[string]interface{}, error) {
	if path == "" {
		return nil, errs.New(errs.CodeConfigFileNotFound, "no path")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, errs.Wrap(errs.CodeConfigFileNotFound, "config file not found", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, errs.Wrap(errs.CodeConfigInvalid, "failed to read "+path, err)
	}

	settings := v.AllSettings()
	normalized := make(map[string]interface{}, len(settings))
	for k, val := range settings {
		normalized[normalizeKey(k)] = val
	}
	return normalized, nil
}

// readEnvLayer binds BD_-prefixed environment variables directly,
// matching the teacher's SetEnvPrefix("BD")/SetEnvKeyReplacer
// convention without requiring a full viper instance for env-only
// reads.
func readEnvLayer() map[string]interface{} {
	result := map[string]interface{}{}
	const prefix = "BD_"
	for _, entry := range os.Environ() {
		if !strings.HasPrefix(entry, prefix) {
			continue
		}
		parts := strings.SplitN(entry[len(prefix):], "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			continue
		}
		key := normalizeKey(parts[0])
		result[key] = parts[1]
	}
	// A handful of legacy names are bound without the BD_ prefix, per
	// the teacher's explicit BindEnv calls.
	if v := os.Getenv("BEADS_FLUSH_DEBOUNCE"); v != "" {
		result["flush-debounce"] = v
	}
	if v := os.Getenv("BEADS_AUTO_START_DAEMON"); v != "" {
		result["auto-start-daemon"] = v
	}
	return result
}
