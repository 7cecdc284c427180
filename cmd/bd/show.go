package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/beads/internal/errs"
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "show an issue's full detail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := resolveID(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		issue, err := store.GetIssue(cmd.Context(), id)
		if err != nil {
			return err
		}
		if issue == nil {
			return errs.New(errs.CodeIssueNotFound, "no issue "+id)
		}

		deps, err := store.GetDependencyRecords(cmd.Context(), id)
		if err != nil {
			return err
		}
		issue.Dependencies = deps

		labels, err := store.GetLabels(cmd.Context(), id)
		if err != nil {
			return err
		}
		issue.Labels = labels

		comments, err := store.GetIssueComments(cmd.Context(), id)
		if err != nil {
			return err
		}
		issue.Comments = comments

		if jsonOutput {
			outputJSON(issue)
			return nil
		}

		bold := color.New(color.Bold).SprintFunc()
		fmt.Printf("%s: %s\n", bold(issue.ID), issue.Title)
		fmt.Printf("  status: %s   priority: P%d   type: %s\n", issue.Status, issue.Priority, issue.IssueType)
		if issue.Assignee != "" {
			fmt.Printf("  assignee: %s\n", issue.Assignee)
		}
		if issue.Description != "" {
			fmt.Printf("\n%s\n", issue.Description)
		}
		if len(issue.Labels) > 0 {
			fmt.Printf("\nlabels: %v\n", issue.Labels)
		}
		if len(issue.Dependencies) > 0 {
			fmt.Println("\ndependencies:")
			for _, dep := range issue.Dependencies {
				fmt.Printf("  %s -> %s\n", dep.Type, dep.DependsOnID)
			}
		}
		if len(issue.Comments) > 0 {
			fmt.Println("\ncomments:")
			for _, c := range issue.Comments {
				fmt.Printf("  [%s] %s: %s\n", c.CreatedAt.Format("2006-01-02 15:04"), c.Author, c.Text)
			}
		}
		return nil
	},
}
