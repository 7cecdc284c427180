package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/beads/internal/types"
)

var depType string

var depCmd = &cobra.Command{
	Use:   "dep",
	Short: "manage dependencies between issues",
}

var depAddCmd = &cobra.Command{
	Use:   "add <issue-id> <depends-on-id>",
	Short: "add a dependency edge",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		issueID, err := resolveID(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		dependsOnID, err := resolveID(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		dep := &types.Dependency{IssueID: issueID, DependsOnID: dependsOnID, Type: types.DependencyType(depType)}
		if err := store.AddDependency(cmd.Context(), dep, actor); err != nil {
			return err
		}
		green := color.New(color.FgGreen).SprintFunc()
		cmd.Printf("%s %s %s %s\n", green("✓"), issueID, depType, dependsOnID)
		return nil
	},
}

var depRemoveCmd = &cobra.Command{
	Use:   "remove <issue-id> <depends-on-id>",
	Short: "remove a dependency edge",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		issueID, err := resolveID(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		dependsOnID, err := resolveID(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		if err := store.RemoveDependency(cmd.Context(), issueID, dependsOnID, actor); err != nil {
			return err
		}
		green := color.New(color.FgGreen).SprintFunc()
		cmd.Printf("%s removed %s -> %s\n", green("✓"), issueID, dependsOnID)
		return nil
	},
}

var (
	depTreeDepth     int
	depTreeReverse   bool
	depTreeAllPaths  bool
)

var depTreeCmd = &cobra.Command{
	Use:   "tree <issue-id>",
	Short: "show the dependency tree rooted at an issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := resolveID(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		nodes, err := store.GetDependencyTree(cmd.Context(), id, depTreeDepth, depTreeAllPaths, depTreeReverse)
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(nodes)
			return nil
		}
		for _, n := range nodes {
			fmt.Printf("%s%s  %s\n", indent(n.Depth), n.ID, n.Title)
		}
		return nil
	},
}

func indent(depth int) string {
	out := ""
	for i := 0; i < depth; i++ {
		out += "  "
	}
	return out
}

var depCyclesCmd = &cobra.Command{
	Use:   "cycles",
	Short: "detect dependency cycles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cycles, err := store.DetectCycles(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(cycles)
			return nil
		}
		if len(cycles) == 0 {
			cmd.Println("no cycles found")
			return nil
		}
		for i, cycle := range cycles {
			fmt.Printf("cycle %d:\n", i+1)
			for _, issue := range cycle {
				fmt.Printf("  %s: %s\n", issue.ID, issue.Title)
			}
		}
		return nil
	},
}

func init() {
	depAddCmd.Flags().StringVarP(&depType, "type", "t", string(types.DepBlocks), "dependency type")
	depTreeCmd.Flags().IntVar(&depTreeDepth, "depth", 5, "maximum traversal depth")
	depTreeCmd.Flags().BoolVar(&depTreeReverse, "reverse", false, "show dependents instead of dependencies")
	depTreeCmd.Flags().BoolVar(&depTreeAllPaths, "all-paths", false, "show every path instead of the shortest")
	depCmd.AddCommand(depAddCmd, depRemoveCmd, depTreeCmd, depCyclesCmd)
}
