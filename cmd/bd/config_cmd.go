package main

import (
	"sort"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "show the merged configuration (component I's layer chain)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := cfg.AllSettings()
		if jsonOutput {
			outputJSON(settings)
			return nil
		}
		keys := make([]string, 0, len(settings))
		for k := range settings {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			cmd.Printf("%-20s %-30v (%s)\n", k, settings[k], cfg.Origin(k))
		}
		return nil
	},
}
