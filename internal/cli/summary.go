package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/site-planner/internal/core"
)

var summaryJSON bool

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show project progress and per-phase summaries",
	Long: `Show the progress roll-up of the project: the global progress (unweighted
mean of task progress), status counts, the planned project window and a
summary of each phase.`,
	Args: cobra.NoArgs,
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

		out := cmd.OutOrStdout()
		if summaryJSON {
			return writeJSON(out, snap)
		}
		printSummary(out, snap)
		return nil
	},
}

func printSummary(out io.Writer, snap *core.Snapshot) {
	s := snap.Summary
	fmt.Fprintf(out, "Project %s\n\n", snap.ProjectID)
	fmt.Fprintf(out, "  %-18s %s %d%%\n", "Global progress:", progressBar(s.GlobalProgress, 20), s.GlobalProgress)
	fmt.Fprintf(out, "  %-18s %d\n", "Tasks:", s.TotalTasks)
	fmt.Fprintf(out, "  %-18s %d\n", "Completed:", s.Completed)
	fmt.Fprintf(out, "  %-18s %d\n", "In progress:", s.InProgress)
	fmt.Fprintf(out, "  %-18s %d\n", "Delayed:", s.DelayedTasks)
	if snap.Start != nil {
		fmt.Fprintf(out, "  %-18s %s .. %s\n", "Window:", snap.Start, snap.End)
	}
	if len(snap.Alerts) > 0 {
		fmt.Fprintf(out, "  %-18s %d\n", "Open alerts:", len(snap.Alerts))
	}

	fmt.Fprintln(out, "\n  Phases:")
	for _, phase := range core.PhaseOrder {
		ps := snap.Phases[phase]
		if ps.TotalTasks == 0 {
			fmt.Fprintf(out, "    %-14s %s\n", phaseLabel(phase), "-")
			continue
		}
		fmt.Fprintf(out, "    %-14s %s %3d%%  %d/%d done  %s .. %s\n",
			phaseLabel(phase), progressBar(ps.AvgProgress, 10), ps.AvgProgress,
			ps.CompletedTasks, ps.TotalTasks, ps.StartDate, ps.EndDate)
	}

	if len(snap.Issues) > 0 {
		fmt.Fprintln(out, "\n  Consistency:")
		for _, issue := range snap.Issues {
			fmt.Fprintf(out, "    ! %s\n", issue.Message)
		}
	}
}

func progressBar(pct, width int) string {
	filled := pct * width / 100
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

func init() {
	summaryCmd.Flags().BoolVar(&summaryJSON, "json", false, "Output the full snapshot as JSON")
	rootCmd.AddCommand(summaryCmd)
}
