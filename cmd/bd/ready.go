package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/beads/internal/types"
)

var (
	readyPriority   int
	readyAssignee   string
	readyLimit      int
	readySortPolicy string
	readyDeferred   bool
)

var readyCmd = &cobra.Command{
	Use:   "ready",
	Short: "list issues ready to work on (no unresolved blockers)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := types.WorkFilter{
			Limit:           readyLimit,
			SortPolicy:      types.SortPolicy(readySortPolicy),
			IncludeDeferred: readyDeferred,
		}
		if cmd.Flags().Changed("priority") {
			filter.Priority = &readyPriority
		}
		if readyAssignee != "" {
			filter.Assignee = &readyAssignee
		}

		issues, err := store.GetReadyWork(cmd.Context(), filter)
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(issues)
			return nil
		}
		for _, issue := range issues {
			fmt.Printf("%s  P%d  %s\n", issue.ID, issue.Priority, issue.Title)
		}
		fmt.Printf("\n%d ready\n", len(issues))
		return nil
	},
}

func init() {
	readyCmd.Flags().IntVar(&readyPriority, "priority", 0, "filter by exact priority")
	readyCmd.Flags().StringVar(&readyAssignee, "assignee", "", "filter by assignee")
	readyCmd.Flags().IntVar(&readyLimit, "limit", 0, "max results (0 = unlimited)")
	readyCmd.Flags().StringVar(&readySortPolicy, "sort", string(types.SortPolicyHybrid), "sort policy: hybrid, priority, oldest")
	readyCmd.Flags().BoolVar(&readyDeferred, "include-deferred", false, "include deferred issues")
}

var blockedCmd = &cobra.Command{
	Use:   "blocked",
	Short: "list issues blocked by unresolved dependencies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		issues, err := store.GetBlockedIssues(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(issues)
			return nil
		}
		for _, issue := range issues {
			fmt.Printf("%s  blocked by %d: %s\n", issue.ID, issue.BlockedByCount, issue.Title)
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "show project-wide statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := store.GetStatistics(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(stats)
			return nil
		}
		fmt.Printf("total:       %d\n", stats.TotalIssues)
		fmt.Printf("open:        %d\n", stats.OpenIssues)
		fmt.Printf("in progress: %d\n", stats.InProgressIssues)
		fmt.Printf("closed:      %d\n", stats.ClosedIssues)
		fmt.Printf("blocked:     %d\n", stats.BlockedIssues)
		fmt.Printf("ready:       %d\n", stats.ReadyIssues)
		return nil
	},
}
