package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/beads/internal/types"
)

var (
	listStatus        string
	listType           string
	listAssignee       string
	listLabel          string
	listPriority       int
	listIncludeClosed  bool
	listLimit          int
)

var listCmd = &cobra.Command{
	Use:   "list [query]",
	Short: "list or search issues",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := ""
		if len(args) > 0 {
			query = args[0]
		}

		filter := types.IssueFilter{
			IncludeClosed: listIncludeClosed,
			Limit:         listLimit,
		}
		if listStatus != "" {
			s := types.Status(listStatus)
			filter.Status = &s
		}
		if listType != "" {
			t := types.IssueType(listType)
			filter.IssueType = &t
		}
		if listAssignee != "" {
			filter.Assignee = &listAssignee
		}
		if listLabel != "" {
			filter.Labels = []string{listLabel}
		}
		if cmd.Flags().Changed("priority") {
			filter.Priority = &listPriority
		}

		issues, err := store.SearchIssues(cmd.Context(), query, filter)
		if err != nil {
			return err
		}

		if jsonOutput {
			outputJSON(issues)
			return nil
		}
		for _, issue := range issues {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  P%d  %-12s %s\n", issue.ID, issue.Priority, issue.Status, issue.Title)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d issue(s)\n", len(issues))
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by status")
	listCmd.Flags().StringVar(&listType, "type", "", "filter by issue type")
	listCmd.Flags().StringVar(&listAssignee, "assignee", "", "filter by assignee")
	listCmd.Flags().StringVar(&listLabel, "label", "", "filter by label")
	listCmd.Flags().IntVar(&listPriority, "priority", 0, "filter by exact priority")
	listCmd.Flags().BoolVar(&listIncludeClosed, "include-closed", false, "include closed issues")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "max results (0 = unlimited)")
}
