package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var commentCmd = &cobra.Command{
	Use:   "comment <issue-id> <text>",
	Short: "add a comment to an issue",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := resolveID(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		comment, err := store.AddIssueComment(cmd.Context(), id, actor, args[1])
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(comment)
			return nil
		}
		green := color.New(color.FgGreen).SprintFunc()
		cmd.Printf("%s commented on %s\n", green("✓"), id)
		return nil
	},
}
