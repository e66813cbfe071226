package cli

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/valter-silva-au/site-planner/internal/core"
	"github.com/valter-silva-au/site-planner/pkg/models"
)

const timelineLabelWidth = 24

var (
	timelineZoom   float64
	timelineOrigin string
	timelineWidth  int
)

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Draw the project's Gantt timeline",
	Long: `Draw the project's tasks as a Gantt chart grouped by phase.

The view starts at the project start unless --origin is given. --zoom is
clamped to the configured range (0.5 to 2 by default); lower zoom shows more
months.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requirePlanner(); err != nil {
			return err
		}
		projectID, err := currentProject()
		if err != nil {
			return err
		}

		view := Timeline.DefaultView()
		if cmd.Flags().Changed("zoom") {
			view.Zoom = Timeline.ClampZoom(timelineZoom)
		}
		if timelineOrigin != "" {
			origin, err := models.ParseDate(timelineOrigin)
			if err != nil {
				return fmt.Errorf("--origin: %w", err)
			}
			view.Origin = &origin
		}

		snap, err := Planner.Refresh(cmd.Context(), projectID)
		if err != nil {
			return fmt.Errorf("loading project %s: %w", projectID, err)
		}

		layout := Timeline.Layout(snap.Tasks, view, models.Today(time.Now()))
		fmt.Fprintln(cmd.OutOrStdout(), renderTimeline(layout, timelineWidth))
		return nil
	},
}

var (
	phaseHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	monthStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	barCompleted  = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	barInProgress = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	barLate       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	barPending    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	milestoneMark = lipgloss.NewStyle().Foreground(lipgloss.Color("141")).Bold(true)
)

// renderTimeline draws a layout as text with a chart area width columns wide.
// The pixel geometry of the layout is scaled so the whole visible month range
// fits the chart area.
func renderTimeline(l core.TimelineLayout, width int) string {
	if width < 10 {
		width = 10
	}
	scale := chartScale(l.PxPerDay)
	if l.TotalWidth > 0 {
		scale = chartScale(l.TotalWidth / float64(width))
	}

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", timelineLabelWidth))
	b.WriteString(monthStyle.Render(monthRuler(l.Months, width, scale)))
	b.WriteString("\n")

	if len(l.Rows) == 0 {
		b.WriteString("\n  No tasks planned.\n")
		return b.String()
	}

	for _, row := range l.Rows {
		b.WriteString("\n")
		b.WriteString(phaseHeaderStyle.Render(phaseLabel(row.Phase)))
		b.WriteString("\n")
		for _, bar := range row.Bars {
			label := truncate(bar.Task.Name, timelineLabelWidth-3)
			b.WriteString(fmt.Sprintf("  %-*s ", timelineLabelWidth-3, label))
			b.WriteString(renderBar(bar, width, scale))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// chartScale is the number of layout pixels per text column.
type chartScale float64

func (s chartScale) col(x float64) int {
	return int(math.Floor(x / float64(s)))
}

func (s chartScale) colEnd(x float64) int {
	return int(math.Ceil(x / float64(s)))
}

// monthRuler places abbreviated month names at their header positions,
// skipping labels that would overlap the previous one.
func monthRuler(months []core.MonthHeader, width int, scale chartScale) string {
	ruler := []rune(strings.Repeat(" ", width))
	next := 0
	for _, m := range months {
		c := scale.col(m.Left)
		if c < 0 {
			c = 0
		}
		label := []rune(m.Start.Time().Format("Jan 06"))
		if c < next || c+len(label) > width {
			continue
		}
		copy(ruler[c:], label)
		next = c + len(label) + 1
	}
	return string(ruler)
}

func renderBar(bar core.Bar, width int, scale chartScale) string {
	start := scale.col(bar.Left)
	end := scale.colEnd(bar.Left + bar.Width)
	if end <= start {
		end = start + 1
	}

	switch {
	case end <= 0:
		return "‹" + strings.Repeat(" ", width-1)
	case start >= width:
		return strings.Repeat(" ", width-1) + "›"
	}

	visStart, visEnd := max(start, 0), min(end, width)
	lead := strings.Repeat(" ", visStart)
	trail := strings.Repeat(" ", width-visEnd)

	if core.IsMilestone(bar.Task) {
		return lead + milestoneMark.Render("◆") + strings.Repeat(" ", visEnd-visStart-1) + trail
	}

	cells := visEnd - visStart
	done := cells * bar.Task.Progress / 100
	body := strings.Repeat("█", done) + strings.Repeat("░", cells-done)
	return lead + barStyle(bar.Task).Render(body) + trail
}

func barStyle(t models.Task) lipgloss.Style {
	switch t.Status {
	case models.StatusCompleted:
		return barCompleted
	case models.StatusInProgress:
		return barInProgress
	case models.StatusDelayed, models.StatusBlocked:
		return barLate
	default:
		return barPending
	}
}

func init() {
	timelineCmd.Flags().Float64Var(&timelineZoom, "zoom", 1, "Zoom factor (clamped to the configured range)")
	timelineCmd.Flags().StringVar(&timelineOrigin, "origin", "", "Left edge of the view (YYYY-MM-DD), defaults to the project start")
	timelineCmd.Flags().IntVar(&timelineWidth, "width", 96, "Width of the chart area in columns")
	rootCmd.AddCommand(timelineCmd)
}
