package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var labelCmd = &cobra.Command{
	Use:   "label",
	Short: "manage labels on an issue",
}

var labelAddCmd = &cobra.Command{
	Use:   "add <issue-id> <label>",
	Short: "attach a label",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := resolveID(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := store.AddLabel(cmd.Context(), id, args[1], actor); err != nil {
			return err
		}
		green := color.New(color.FgGreen).SprintFunc()
		cmd.Printf("%s labeled %s: %s\n", green("✓"), id, args[1])
		return nil
	},
}

var labelRemoveCmd = &cobra.Command{
	Use:   "remove <issue-id> <label>",
	Short: "detach a label",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := resolveID(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := store.RemoveLabel(cmd.Context(), id, args[1], actor); err != nil {
			return err
		}
		green := color.New(color.FgGreen).SprintFunc()
		cmd.Printf("%s removed label %s from %s\n", green("✓"), args[1], id)
		return nil
	},
}

var labelListCmd = &cobra.Command{
	Use:   "list <label>",
	Short: "list issues carrying a label",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		issues, err := store.GetIssuesByLabel(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(issues)
			return nil
		}
		for _, issue := range issues {
			cmd.Printf("%s  %s\n", issue.ID, issue.Title)
		}
		return nil
	},
}

func init() {
	labelCmd.AddCommand(labelAddCmd, labelRemoveCmd, labelListCmd)
}
