package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/valter-silva-au/site-planner/internal/core"
	"github.com/valter-silva-au/site-planner/pkg/models"
)

// Dashboard panel indices.
const (
	panelTimeline = iota
	panelAlerts
	panelCount
)

type dashboardKeyMap struct {
	ZoomIn   key.Binding
	ZoomOut  key.Binding
	PanLeft  key.Binding
	PanRight key.Binding
	Reset    key.Binding
	Panel    key.Binding
	Detect   key.Binding
	Refresh  key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultDashboardKeys() dashboardKeyMap {
	return dashboardKeyMap{
		ZoomIn: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "zoom in"),
		),
		ZoomOut: key.NewBinding(
			key.WithKeys("-", "_"),
			key.WithHelp("-", "zoom out"),
		),
		PanLeft: key.NewBinding(
			key.WithKeys("h", "left"),
			key.WithHelp("h/←", "earlier"),
		),
		PanRight: key.NewBinding(
			key.WithKeys("l", "right"),
			key.WithHelp("l/→", "later"),
		),
		Reset: key.NewBinding(
			key.WithKeys("0"),
			key.WithHelp("0", "reset view"),
		),
		Panel: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch panel"),
		),
		Detect: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "detect alerts"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k dashboardKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.ZoomIn, k.ZoomOut, k.PanLeft, k.PanRight, k.Panel, k.Help, k.Quit}
}

func (k dashboardKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.ZoomIn, k.ZoomOut, k.Reset},
		{k.PanLeft, k.PanRight, k.Panel},
		{k.Detect, k.Refresh, k.Help, k.Quit},
	}
}

type dashboardModel struct {
	projectID string
	planner   core.PlanningService
	timeline  *core.Timeline
	today     models.Date

	view        core.ViewState
	snap        *core.Snapshot
	activePanel int
	status      string

	keys dashboardKeyMap
	help help.Model

	width  int
	height int

	loading bool
	err     error
}

// snapshotLoadedMsg carries a refreshed snapshot back to the model.
type snapshotLoadedMsg struct {
	snap *core.Snapshot
	err  error
}

// detectionDoneMsg reports the outcome of a detection pass.
type detectionDoneMsg struct {
	result *core.DetectionResult
	err    error
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	severityCritical = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	severityWarning  = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	severityInfo     = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))

	statusLineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newDashboardModel(projectID string, planner core.PlanningService, timeline *core.Timeline, today models.Date) dashboardModel {
	return dashboardModel{
		projectID:   projectID,
		planner:     planner,
		timeline:    timeline,
		today:       today,
		view:        timeline.DefaultView(),
		activePanel: panelTimeline,
		keys:        defaultDashboardKeys(),
		help:        help.New(),
		loading:     true,
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return m.load()
}

func (m dashboardModel) load() tea.Cmd {
	planner, projectID := m.planner, m.projectID
	return func() tea.Msg {
		snap, err := planner.Refresh(context.Background(), projectID)
		return snapshotLoadedMsg{snap: snap, err: err}
	}
}

func (m dashboardModel) detect() tea.Cmd {
	planner, projectID := m.planner, m.projectID
	return func() tea.Msg {
		result, err := planner.DetectAlerts(context.Background(), projectID)
		return detectionDoneMsg{result: result, err: err}
	}
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Panel):
			m.activePanel = (m.activePanel + 1) % panelCount
		case key.Matches(msg, m.keys.ZoomIn):
			m.view = m.timeline.ZoomIn(m.view)
		case key.Matches(msg, m.keys.ZoomOut):
			m.view = m.timeline.ZoomOut(m.view)
		case key.Matches(msg, m.keys.PanLeft):
			m.view = m.timeline.Pan(m.view, -1, m.projectStart())
		case key.Matches(msg, m.keys.PanRight):
			m.view = m.timeline.Pan(m.view, 1, m.projectStart())
		case key.Matches(msg, m.keys.Reset):
			m.view = m.timeline.DefaultView()
		case key.Matches(msg, m.keys.Refresh):
			m.loading = true
			return m, m.load()
		case key.Matches(msg, m.keys.Detect):
			m.status = "Detecting alerts..."
			return m, m.detect()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case snapshotLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.snap = msg.snap
		m.err = nil
		return m, nil

	case detectionDoneMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.status = fmt.Sprintf("%d new alert(s), %d stale", len(msg.result.Raised), len(msg.result.Stale))
		m.loading = true
		return m, m.load()
	}

	return m, nil
}

func (m dashboardModel) projectStart() models.Date {
	if m.snap == nil {
		return m.today
	}
	return core.ProjectStart(m.snap.Tasks, m.today)
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(fmt.Sprintf(" Site Planner: %s ", m.projectID))
	helpView := m.help.View(m.keys)

	if m.loading && m.snap == nil {
		return fmt.Sprintf("%s\n\n  Loading plan...\n\n%s", title, helpView)
	}
	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, helpView)
	}

	s := m.snap.Summary
	summary := fmt.Sprintf("Progress %s %d%%   %d tasks  %d done  %d in progress  %d delayed   zoom %.2fx",
		progressBar(s.GlobalProgress, 20), s.GlobalProgress, s.TotalTasks, s.Completed, s.InProgress, s.DelayedTasks, m.view.Zoom)

	panelWidth := m.width - 4
	if panelWidth < 40 {
		panelWidth = 40
	}

	var body string
	switch m.activePanel {
	case panelTimeline:
		chartWidth := panelWidth - timelineLabelWidth - 4
		layout := m.timeline.Layout(m.snap.Tasks, m.view, m.today)
		body = activePanelStyle.Width(panelWidth).Render(renderTimeline(layout, chartWidth))
	case panelAlerts:
		body = activePanelStyle.Width(panelWidth).Render(m.renderAlertsPanel())
	}
	tabs := m.renderTabs()

	status := ""
	if m.status != "" {
		status = "\n" + statusLineStyle.Render(m.status)
	}
	return fmt.Sprintf("%s\n%s\n\n%s\n%s%s\n\n%s", title, summary, tabs, body, status, helpView)
}

func (m dashboardModel) renderTabs() string {
	names := []string{"Timeline", fmt.Sprintf("Alerts (%d)", len(m.snap.Alerts))}
	tabs := make([]string, len(names))
	for i, n := range names {
		style := panelStyle
		if i == m.activePanel {
			style = activePanelStyle.Bold(true)
		}
		tabs[i] = style.Render(n)
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)
}

func (m dashboardModel) renderAlertsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Open alerts"))
	b.WriteString("\n\n")

	if len(m.snap.Alerts) == 0 {
		b.WriteString("  No active alerts.")
		return b.String()
	}

	for _, a := range m.snap.Alerts {
		sev := styleForSeverity(a.Severity).Render(fmt.Sprintf("[%s]", strings.ToUpper(string(a.Severity))))
		b.WriteString(fmt.Sprintf("  %s %s\n", sev, a.Message))
		b.WriteString(fmt.Sprintf("      %s, raised %s\n", a.Type, a.CreatedAt.Format("2006-01-02")))
	}
	return b.String()
}

func styleForSeverity(severity models.AlertSeverity) lipgloss.Style {
	switch severity {
	case models.SeverityCritical:
		return severityCritical
	case models.SeverityWarning:
		return severityWarning
	case models.SeverityInfo:
		return severityInfo
	default:
		return lipgloss.NewStyle()
	}
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive planning dashboard with a zoomable timeline",
	Long: `Launch an interactive terminal dashboard showing the project's progress,
Gantt timeline and open alerts.

Zoom with + and -, pan by three months with h and l, switch panels with
Tab, run detection with d, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requirePlanner(); err != nil {
			return err
		}
		projectID, err := currentProject()
		if err != nil {
			return err
		}

		m := newDashboardModel(projectID, Planner, Timeline, models.Today(time.Now()))
		p := tea.NewProgram(m, tea.WithAltScreen())
		_, err = p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
