package main

import (
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/beads/internal/configfile"
	"github.com/steveyegge/beads/internal/errs"
	"github.com/steveyegge/beads/internal/storage/sqlite"
)

var initPrefix string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "create a .beads database in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := dbPath
		if path == "" {
			path = filepath.Join(".beads", "beads.db")
		}

		beadsDir := filepath.Dir(path)
		if err := os.MkdirAll(beadsDir, 0750); err != nil {
			return errs.Wrap(errs.CodeIOFailed, "failed to create "+beadsDir, err)
		}

		if _, err := os.Stat(path); err == nil {
			return errs.New(errs.CodeIssueConflict, path+" already exists")
		}

		s, err := sqlite.New(path)
		if err != nil {
			return errs.Wrap(errs.CodeIOFailed, "failed to create database", err)
		}
		defer func() { _ = s.Close() }()

		prefix := initPrefix
		if prefix == "" {
			prefix = "bd"
		}
		if err := s.SetConfig(cmd.Context(), "issue_prefix", prefix); err != nil {
			return errs.Wrap(errs.CodeIOFailed, "failed to set issue prefix", err)
		}

		pin := configfile.DefaultConfig(Version)
		pin.Database = filepath.Base(path)
		if err := pin.Save(beadsDir); err != nil {
			return errs.Wrap(errs.CodeIOFailed, "failed to write config.json", err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		cmd.Printf("%s initialized beads database at %s (prefix %q)\n", green("✓"), path, prefix)
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initPrefix, "prefix", "bd", "issue ID prefix for this database")
}
