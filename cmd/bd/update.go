package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	updateTitle       string
	updateDescription string
	updateDesign      string
	updateAcceptance  string
	updateNotes       string
	updateStatus      string
	updatePriority    int
	updateType        string
	updateAssignee    string
)

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "update an issue's fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := resolveID(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		updates := map[string]interface{}{}
		f := cmd.Flags()
		if f.Changed("title") {
			updates["title"] = updateTitle
		}
		if f.Changed("description") {
			updates["description"] = updateDescription
		}
		if f.Changed("design") {
			updates["design"] = updateDesign
		}
		if f.Changed("acceptance") {
			updates["acceptance_criteria"] = updateAcceptance
		}
		if f.Changed("notes") {
			updates["notes"] = updateNotes
		}
		if f.Changed("status") {
			updates["status"] = updateStatus
		}
		if f.Changed("priority") {
			updates["priority"] = updatePriority
		}
		if f.Changed("type") {
			updates["issue_type"] = updateType
		}
		if f.Changed("assignee") {
			updates["assignee"] = updateAssignee
		}

		if len(updates) == 0 {
			cmd.Println("nothing to update")
			return nil
		}

		if err := store.UpdateIssue(cmd.Context(), id, updates, actor); err != nil {
			return err
		}

		if jsonOutput {
			issue, err := store.GetIssue(cmd.Context(), id)
			if err != nil {
				return err
			}
			outputJSON(issue)
			return nil
		}
		green := color.New(color.FgGreen).SprintFunc()
		cmd.Printf("%s updated %s\n", green("✓"), id)
		return nil
	},
}

func init() {
	updateCmd.Flags().StringVar(&updateTitle, "title", "", "new title")
	updateCmd.Flags().StringVarP(&updateDescription, "description", "d", "", "new description")
	updateCmd.Flags().StringVar(&updateDesign, "design", "", "new design notes")
	updateCmd.Flags().StringVar(&updateAcceptance, "acceptance", "", "new acceptance criteria")
	updateCmd.Flags().StringVar(&updateNotes, "notes", "", "new notes")
	updateCmd.Flags().StringVar(&updateStatus, "status", "", "new status")
	updateCmd.Flags().IntVarP(&updatePriority, "priority", "p", 0, "new priority 0-4")
	updateCmd.Flags().StringVarP(&updateType, "type", "t", "", "new issue type")
	updateCmd.Flags().StringVarP(&updateAssignee, "assignee", "a", "", "new assignee")
}

var closeReason string

var closeCmd = &cobra.Command{
	Use:   "close <id>",
	Short: "close an issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := resolveID(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := store.CloseIssue(cmd.Context(), id, closeReason, "", actor); err != nil {
			return err
		}
		green := color.New(color.FgGreen).SprintFunc()
		cmd.Printf("%s closed %s\n", green("✓"), id)
		return nil
	},
}

func init() {
	closeCmd.Flags().StringVar(&closeReason, "reason", "", "reason for closing")
}

var reopenCmd = &cobra.Command{
	Use:   "reopen <id>",
	Short: "reopen a closed issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := resolveID(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := store.UpdateIssue(cmd.Context(), id, map[string]interface{}{"status": "open"}, actor); err != nil {
			return err
		}
		green := color.New(color.FgGreen).SprintFunc()
		cmd.Printf("%s reopened %s\n", green("✓"), id)
		return nil
	},
}

var deleteReason string

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "tombstone an issue (soft delete)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := resolveID(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := store.DeleteIssue(cmd.Context(), id, deleteReason, actor); err != nil {
			return err
		}
		green := color.New(color.FgGreen).SprintFunc()
		cmd.Printf("%s deleted %s\n", green("✓"), id)
		return nil
	},
}

func init() {
	deleteCmd.Flags().StringVar(&deleteReason, "reason", "", "reason for deletion")
}

var restoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "restore a tombstoned issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := resolveID(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := store.RestoreIssue(cmd.Context(), id, actor); err != nil {
			return err
		}
		green := color.New(color.FgGreen).SprintFunc()
		cmd.Printf("%s restored %s\n", green("✓"), id)
		return nil
	},
}
