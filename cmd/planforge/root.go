package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "planforge",
	Short: "AI project planning orchestrator",
	Long: `Planforge turns a project idea into a structured work breakdown.

It interviews you about your project, refines the requirements over a
conversation, generates an epic/story/task plan, and finalizes the project
by creating the repository, labels, and issues through its tool
collaborators.

Core capabilities:
- Conversational project analysis and refinement
- Hierarchical plan storage (epics, stories, tasks)
- Multi-step finalization with repository and issue creation
- Prioritized next-task selection for execution`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(planningCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(versionCmd)
}
