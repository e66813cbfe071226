package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/site-planner/internal/core"
	"github.com/valter-silva-au/site-planner/pkg/models"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List, detect and resolve planning alerts",
	Long: `Planning alerts flag overdue tasks, tasks started before their parent,
missed milestones and people assigned to overlapping tasks.

Without a subcommand, lists the open alerts of the project.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return alertsListCmd.RunE(cmd, args)
	},
}

var alertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List open alerts, most severe first",
	Args:  cobra.NoArgs,
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
			return fmt.Errorf("loading alerts: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(snap.Alerts) == 0 {
			fmt.Fprintln(out, "No active alerts.")
			return nil
		}

		fmt.Fprintf(out, "%d active alert(s):\n\n", len(snap.Alerts))
		for _, a := range snap.Alerts {
			printAlert(out, a)
		}
		return nil
	},
}

var alertsDetectAll bool

var alertsDetectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Run alert detection",
	Long: `Evaluate the alert rules against the current plan and store any new
alerts. An alert is never raised twice while an identical one is open.

Use --all to run detection for every project, e.g. from cron.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requirePlanner(); err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if alertsDetectAll {
			results, err := Planner.DetectAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("detecting alerts: %w", err)
			}
			ids := make([]string, 0, len(results))
			for id := range results {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				printDetection(out, id, results[id])
			}
			if len(ids) == 0 {
				fmt.Fprintln(out, "No projects with tasks.")
			}
			return nil
		}

		projectID, err := currentProject()
		if err != nil {
			return err
		}
		result, err := Planner.DetectAlerts(cmd.Context(), projectID)
		if err != nil {
			return fmt.Errorf("detecting alerts: %w", err)
		}
		printDetection(out, projectID, result)
		return nil
	},
}

var alertsResolveCmd = &cobra.Command{
	Use:   "resolve <alert-id>",
	Short: "Mark an alert as resolved",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requirePlanner(); err != nil {
			return err
		}
		alert, err := Planner.ResolveAlert(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("resolving alert %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Alert %s resolved at %s\n", alert.ID, alert.ResolvedAt.Format("2006-01-02 15:04 UTC"))
		return nil
	},
}

func printDetection(out io.Writer, projectID string, r *core.DetectionResult) {
	fmt.Fprintf(out, "Project %s: %d new alert(s), %d stale\n", projectID, len(r.Raised), len(r.Stale))
	for _, a := range r.Raised {
		printAlert(out, a)
	}
}

func printAlert(out io.Writer, a models.Alert) {
	severity := strings.ToUpper(string(a.Severity))
	fmt.Fprintf(out, "  [%s] %s: %s\n", severity, a.Type, a.Message)
	fmt.Fprintf(out, "         id %s, raised %s\n\n", a.ID, a.CreatedAt.Format("2006-01-02 15:04 UTC"))
}

func init() {
	alertsDetectCmd.Flags().BoolVar(&alertsDetectAll, "all", false, "Run detection for every project in the store")
	alertsCmd.AddCommand(alertsListCmd, alertsDetectCmd, alertsResolveCmd)
	rootCmd.AddCommand(alertsCmd)
}
