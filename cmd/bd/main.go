// Command bd is the CLI front end over the beads library: cobra-dispatched
// subcommands that open a database, call into internal/storage,
// internal/sync, and internal/config, and print the result. Grounded on
// ttrei-beads/cmd/bd/main.go's rootCmd/PersistentPreRun shape, with the
// daemon/RPC connection dance removed (spec.md §1/§5 model bd as a
// short-lived direct-storage process; see DESIGN.md's dropped-modules
// list for why the daemon didn't survive the transform).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/beads"
	bdconfig "github.com/steveyegge/beads/internal/config"
	"github.com/steveyegge/beads/internal/errs"
	"github.com/steveyegge/beads/internal/storage"
	"github.com/steveyegge/beads/internal/storage/sqlite"
	bdsync "github.com/steveyegge/beads/internal/sync"
)

// Version is stamped at build time via -ldflags; left as a default here
// so `go build` without ldflags still produces a working binary.
var Version = "dev"

var (
	dbPath        string
	actorFlag     string
	jsonOutput    bool
	noAutoFlush   bool
	noAutoImport  bool
	allowExternal bool

	store storage.Storage
	cfg   *bdconfig.Config
	actor string
)

var rootCmd = &cobra.Command{
	Use:   "bd",
	Short: "bd - dependency-aware issue tracker",
	Long:  "Issues chained together like beads. A lightweight issue tracker with first-class dependency support.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch cmd.Name() {
		case "init", "help", "version":
			return nil
		}

		if dbPath == "" {
			dbPath = beads.FindDatabasePath()
		}
		if dbPath == "" {
			return errs.New(errs.CodeFileNotFound, "no beads database found").
				WithHint("run 'bd init' to create one, or set BEADS_DB")
		}

		var err error
		store, err = sqlite.New(dbPath)
		if err != nil {
			return errs.Wrap(errs.CodeIOFailed, "failed to open database "+dbPath, err)
		}

		beadsDir := beadsDirFor(dbPath)
		cliOverrides := map[string]interface{}{}
		if actorFlag != "" {
			cliOverrides["actor"] = actorFlag
		}
		if jsonOutput {
			cliOverrides["json"] = true
		}
		cfg, err = bdconfig.Load(cmd.Context(), store, beadsDir, cliOverrides)
		if err != nil {
			return err
		}

		actor = cfg.GetString("actor")
		if actor == "" {
			actor = os.Getenv("USER")
		}
		if actor == "" {
			actor = "unknown"
		}
		if !jsonOutput {
			jsonOutput = cfg.GetBool("json")
		}
		noAutoFlush = noAutoFlush || cfg.GetBool("no-auto-flush")
		noAutoImport = noAutoImport || cfg.GetBool("no-auto-import")

		if cmd.Name() != "import" && !noAutoImport {
			autoImport(cmd.Context())
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if store == nil {
			return nil
		}
		defer func() { _ = store.Close() }()

		if cmd.Name() != "export" && !noAutoFlush {
			autoFlush(cmd.Context())
		}
		return nil
	},
}

func beadsDirFor(dbPath string) string {
	return dirOf(dbPath)
}

// autoImport runs the import engine when the JSONL file's content hash
// differs from the hash recorded at the end of the last sync round-trip.
// Errors are reported but never abort the command; a stale or unreadable
// JSONL file shouldn't block normal database operations.
func autoImport(ctx context.Context) {
	jsonlPath := beads.FindJSONLPath(dbPath)
	if _, err := bdsync.AutoImportIfStale(ctx, store, jsonlPath, beadsDirFor(dbPath), allowExternal); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: auto-import failed: %v\n", err)
	}
}

func autoFlush(ctx context.Context) {
	jsonlPath := beads.FindJSONLPath(dbPath)
	if _, err := bdsync.Export(ctx, store, jsonlPath, beadsDirFor(dbPath), allowExternal, false); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: auto-export failed: %v\n", err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default: auto-discover .beads/*.db)")
	rootCmd.PersistentFlags().StringVar(&actorFlag, "actor", "", "actor name for the audit trail (default: $BD_ACTOR or $USER)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noAutoFlush, "no-auto-flush", false, "disable automatic JSONL export after mutations")
	rootCmd.PersistentFlags().BoolVar(&noAutoImport, "no-auto-import", false, "disable automatic JSONL import when stale")
	rootCmd.PersistentFlags().BoolVar(&allowExternal, "allow-external-jsonl", false, "allow a JSONL path outside the .beads directory")

	rootCmd.AddCommand(
		initCmd,
		versionCmd,
		createCmd,
		showCmd,
		listCmd,
		updateCmd,
		closeCmd,
		reopenCmd,
		deleteCmd,
		restoreCmd,
		depCmd,
		labelCmd,
		commentCmd,
		readyCmd,
		blockedCmd,
		statsCmd,
		importCmd,
		exportCmd,
		configCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(exitCodeFor(err))
	}
}

func printError(err error) {
	if e, ok := err.(*errs.E); ok {
		if jsonOutput {
			data, jsonErr := e.JSON()
			if jsonErr == nil {
				fmt.Fprintln(os.Stderr, string(data))
				return
			}
		}
		for _, line := range e.HumanLines() {
			fmt.Fprintln(os.Stderr, color.New(color.FgRed).Sprint(line))
		}
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}

func exitCodeFor(err error) int {
	if e, ok := err.(*errs.E); ok {
		return e.ExitCode()
	}
	return 1
}
