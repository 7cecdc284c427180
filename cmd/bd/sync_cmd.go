// Command-line entry points for the export engine (component G) and
// import engine (component H), both of which live in internal/sync.
// Grounded on ttrei-beads/cmd/bd's separate import.go/export.go command
// files, trimmed to call the library instead of re-implementing the
// algorithm inline in cmd/bd.
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/beads"
	bdsync "github.com/steveyegge/beads/internal/sync"
)

var (
	exportPath string
	exportFull bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "export the database to the JSONL file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := exportPath
		if path == "" {
			path = beads.FindJSONLPath(dbPath)
		}
		result, err := bdsync.Export(cmd.Context(), store, path, dirOf(dbPath), allowExternal, exportFull)
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(result)
			return nil
		}
		green := color.New(color.FgGreen).SprintFunc()
		cmd.Printf("%s exported %d issue(s) to %s (%d unchanged, skipped)\n", green("✓"), len(result.Exported), path, len(result.Skipped))
		return nil
	},
}

var (
	importPath       string
	importDryRun     bool
	importSkipUpdate bool
	importStrict     bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "import the JSONL file into the database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := importPath
		if path == "" {
			path = beads.FindJSONLPath(dbPath)
		}
		opts := bdsync.Options{DryRun: importDryRun, SkipUpdate: importSkipUpdate, Strict: importStrict}
		result, err := bdsync.Import(cmd.Context(), store, path, dirOf(dbPath), allowExternal, opts)
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(result)
			return nil
		}
		fmt.Printf("created %d, updated %d, unchanged %d, skipped %d\n",
			result.Created, result.Updated, result.Unchanged, result.Skipped)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportPath, "output", "o", "", "JSONL output path (default: auto-discover)")
	exportCmd.Flags().BoolVar(&exportFull, "full", false, "rebuild the entire file instead of exporting only dirty issues")

	importCmd.Flags().StringVarP(&importPath, "input", "i", "", "JSONL input path (default: auto-discover)")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "preview the import without applying it")
	importCmd.Flags().BoolVar(&importSkipUpdate, "skip-update", false, "only create new issues, never update existing ones")
	importCmd.Flags().BoolVar(&importStrict, "strict", false, "abort the whole import on any per-issue error")
}
