package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/beads/internal/types"
	"github.com/steveyegge/beads/internal/util"
)

var (
	createDescription string
	createDesign       string
	createAcceptance   string
	createPriority     int
	createType         string
	createAssignee     string
	createLabels       []string
	createDeps         []string
)

var createCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "create a new issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		issue := &types.Issue{
			Title:              args[0],
			Description:        createDescription,
			Design:             createDesign,
			AcceptanceCriteria: createAcceptance,
			Status:             types.StatusOpen,
			Priority:           createPriority,
			IssueType:          types.IssueType(createType),
			Assignee:           createAssignee,
		}

		if err := store.CreateIssue(cmd.Context(), issue, actor); err != nil {
			return err
		}

		for _, label := range util.NormalizeLabels(createLabels) {
			if err := store.AddLabel(cmd.Context(), issue.ID, label, actor); err != nil {
				return err
			}
		}
		for _, depID := range createDeps {
			resolved, err := resolveID(cmd.Context(), depID)
			if err != nil {
				return err
			}
			dep := &types.Dependency{IssueID: issue.ID, DependsOnID: resolved, Type: types.DepBlocks}
			if err := store.AddDependency(cmd.Context(), dep, actor); err != nil {
				return err
			}
		}

		if jsonOutput {
			outputJSON(issue)
			return nil
		}
		green := color.New(color.FgGreen).SprintFunc()
		cmd.Printf("%s created %s: %s\n", green("✓"), issue.ID, issue.Title)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVarP(&createDescription, "description", "d", "", "issue description")
	createCmd.Flags().StringVar(&createDesign, "design", "", "design notes")
	createCmd.Flags().StringVar(&createAcceptance, "acceptance", "", "acceptance criteria")
	createCmd.Flags().IntVarP(&createPriority, "priority", "p", 2, "priority 0-4 (0 highest)")
	createCmd.Flags().StringVarP(&createType, "type", "t", "task", "issue type (bug, feature, task, epic, chore)")
	createCmd.Flags().StringVarP(&createAssignee, "assignee", "a", "", "assignee")
	createCmd.Flags().StringSliceVarP(&createLabels, "labels", "l", nil, "labels to attach")
	createCmd.Flags().StringSliceVar(&createDeps, "deps", nil, "issue IDs this issue blocks on")
}
