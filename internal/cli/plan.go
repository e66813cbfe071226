package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/site-planner/internal/storage"
)

var importCmd = &cobra.Command{
	Use:   "import <plan.yaml>",
	Short: "Import tasks from a YAML plan file",
	Long: `Import the tasks of a YAML plan file into the project.

Every task is validated before anything is written; one invalid task
rejects the whole file. Parent references between tasks of the file are
rewritten to the new task IDs. The project is taken from --project, then
from the file, then from the configured default; it replaces any project
recorded on the individual tasks.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requirePlanner(); err != nil {
			return err
		}

		plan, err := storage.ReadPlanFile(args[0])
		if err != nil {
			return err
		}

		projectID := projectFlag
		if projectID == "" {
			projectID = plan.ProjectID
		}
		if projectID == "" {
			if projectID, err = currentProject(); err != nil {
				return err
			}
		}

		// The whole file lands in one project, whatever it was exported from.
		for i := range plan.Tasks {
			plan.Tasks[i].ProjectID = projectID
		}

		n, err := Planner.ImportTasks(cmd.Context(), projectID, plan.Tasks)
		if err != nil {
			return fmt.Errorf("importing %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d task(s) into project %s\n", n, projectID)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <plan.yaml>",
	Short: "Export the project's tasks to a YAML plan file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requirePlanner(); err != nil {
			return err
		}
		projectID, err := currentProject()
		if err != nil {
			return err
		}

		snap, err := Planner.Refresh(cmd.Context(), projectID)
		if err != nil {
			return fmt.Errorf("loading project %s: %w", projectID, err)
		}
		if err := storage.WritePlanFile(args[0], projectID, snap.Tasks); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d task(s) to %s\n", len(snap.Tasks), args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd, exportCmd)
}
