package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/steveyegge/beads/internal/idresolve"
)

func dirOf(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Dir(path)
}

// resolveID applies component C's resolution procedure against the
// current store's known ID list, so commands can take a prefix suffix
// ("42") or a full ID ("bd-42") interchangeably.
func resolveID(ctx context.Context, input string) (string, error) {
	return idresolve.Resolve(input, func() ([]string, error) {
		return store.AllIssueIDs(ctx)
	})
}

func outputJSON(v interface{}) {
	encoder := json.NewEncoder(rootCmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}

