package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/site-planner/pkg/models"
)

var diaryCmd = &cobra.Command{
	Use:   "diary",
	Short: "Record and read the daily site diary",
}

var (
	diaryDate    string
	diaryWeather string
	diaryNotes   string
	diaryPhase   string
	diaryWorkers []string
	diaryIssues  []string
)

var diaryAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a site diary entry",
	Long: `Add a site diary entry for the project.

Workforce is given as trade=headcount, optionally followed by @company:
  --worker macon=4@Dupont --worker electricien=2

Issues are given as [severity:]description, severity being low, medium or
high (default medium):
  --issue "high:pompe à béton en panne"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requirePlanner(); err != nil {
			return err
		}
		projectID, err := currentProject()
		if err != nil {
			return err
		}

		entry := models.DiaryEntry{ProjectID: projectID, EntryDate: models.Today(time.Now())}
		if diaryDate != "" {
			if entry.EntryDate, err = models.ParseDate(diaryDate); err != nil {
				return fmt.Errorf("--date: %w", err)
			}
		}
		if diaryWeather != "" {
			entry.Weather = &diaryWeather
		}
		if diaryNotes != "" {
			entry.Notes = &diaryNotes
		}
		if diaryPhase != "" {
			entry.PlanningPhaseID = &diaryPhase
		}
		for _, w := range diaryWorkers {
			we, err := parseWorker(w)
			if err != nil {
				return err
			}
			entry.Workforce = append(entry.Workforce, we)
		}
		for _, i := range diaryIssues {
			entry.Issues = append(entry.Issues, parseIssue(i))
		}

		created, err := Planner.AddDiaryEntry(cmd.Context(), entry)
		if err != nil {
			return fmt.Errorf("adding diary entry: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Recorded diary entry %s for %s (%d on site, %d open issue(s))\n",
			created.ID, created.EntryDate, created.Headcount(), created.OpenIssues())
		return nil
	},
}

var diaryListJSON bool

var diaryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List site diary entries, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requirePlanner(); err != nil {
			return err
		}
		projectID, err := currentProject()
		if err != nil {
			return err
		}

		entries, err := Planner.ListDiary(cmd.Context(), projectID)
		if err != nil {
			return fmt.Errorf("listing diary: %w", err)
		}

		out := cmd.OutOrStdout()
		if diaryListJSON {
			return writeJSON(out, entries)
		}
		if len(entries) == 0 {
			fmt.Fprintln(out, "No diary entries.")
			return nil
		}
		for _, e := range entries {
			weather := "-"
			if e.Weather != nil {
				weather = *e.Weather
			}
			fmt.Fprintf(out, "%s  weather: %-10s  on site: %-3d  open issues: %d\n",
				e.EntryDate, weather, e.Headcount(), e.OpenIssues())
			if e.Notes != nil {
				fmt.Fprintf(out, "    %s\n", *e.Notes)
			}
			for _, i := range e.Issues {
				mark := " "
				if i.Resolved {
					mark = "x"
				}
				fmt.Fprintf(out, "    [%s] %s (%s)\n", mark, i.Description, i.Severity)
			}
		}
		return nil
	},
}

// parseWorker parses trade=headcount[@company].
func parseWorker(s string) (models.WorkforceEntry, error) {
	var we models.WorkforceEntry
	spec, company, hasCompany := strings.Cut(s, "@")
	trade, count, ok := strings.Cut(spec, "=")
	if !ok {
		return we, fmt.Errorf("invalid --worker %q: use trade=headcount[@company]", s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(count))
	if err != nil {
		return we, fmt.Errorf("invalid headcount in --worker %q", s)
	}
	we.Trade = strings.TrimSpace(trade)
	we.Headcount = n
	if hasCompany && strings.TrimSpace(company) != "" {
		c := strings.TrimSpace(company)
		we.Company = &c
	}
	return we, nil
}

// parseIssue parses [severity:]description. An unknown prefix is kept as
// part of the description.
func parseIssue(s string) models.IssueEntry {
	if sev, desc, ok := strings.Cut(s, ":"); ok {
		switch models.IssueSeverity(strings.ToLower(strings.TrimSpace(sev))) {
		case models.IssueLow, models.IssueMedium, models.IssueHigh:
			return models.IssueEntry{
				Severity:    models.IssueSeverity(strings.ToLower(strings.TrimSpace(sev))),
				Description: strings.TrimSpace(desc),
			}
		}
	}
	return models.IssueEntry{Description: strings.TrimSpace(s)}
}

func init() {
	diaryAddCmd.Flags().StringVar(&diaryDate, "date", "", "Entry date (YYYY-MM-DD), defaults to today")
	diaryAddCmd.Flags().StringVar(&diaryWeather, "weather", "", "Weather on site")
	diaryAddCmd.Flags().StringVar(&diaryNotes, "notes", "", "Free-form notes")
	diaryAddCmd.Flags().StringVar(&diaryPhase, "phase", "", "Planning phase the entry relates to")
	diaryAddCmd.Flags().StringArrayVar(&diaryWorkers, "worker", nil, "Workforce as trade=headcount[@company] (repeatable)")
	diaryAddCmd.Flags().StringArrayVar(&diaryIssues, "issue", nil, "Issue as [severity:]description (repeatable)")

	diaryListCmd.Flags().BoolVar(&diaryListJSON, "json", false, "Output entries as JSON")

	diaryCmd.AddCommand(diaryAddCmd, diaryListCmd)
	rootCmd.AddCommand(diaryCmd)
}
