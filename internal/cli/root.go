package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

// projectFlag holds the global --project flag.
var projectFlag string

var rootCmd = &cobra.Command{
	Use:   "splan",
	Short: "Site Planner - construction planning, timelines and alerts",
	Long: `Site Planner (splan) tracks the tasks of a construction project across its
phases, rolls their progress up into project and phase summaries, lays them
out on a Gantt timeline, and raises alerts for delays, blocked dependencies,
missed milestones and resource conflicts.

Data lives in a SQLite database under the base directory (or a Postgres
database when store.dsn is a postgres:// URL).`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "splan %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectFlag, "project", "p", "", "Project ID (defaults to default_project_id from .splanconfig)")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// currentProject returns the project selected by --project or the
// configured default.
func currentProject() (string, error) {
	if projectFlag != "" {
		return projectFlag, nil
	}
	if Config != nil && Config.DefaultProjectID != "" {
		return Config.DefaultProjectID, nil
	}
	return "", fmt.Errorf("no project selected: pass --project or set default_project_id in .splanconfig")
}

func requirePlanner() error {
	if Planner == nil {
		return fmt.Errorf("planning service not initialized")
	}
	return nil
}
