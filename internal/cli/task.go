package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/site-planner/internal/core"
	"github.com/valter-silva-au/site-planner/pkg/models"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage planning tasks (add, list, update, progress, status, delete)",
	Long: `Create and maintain the tasks of a project plan.

Every task has an inclusive start and end date, a phase, a progress
percentage and a status. Changes are validated before they are written.`,
}

// taskFlags holds the field flags shared by "task add" and "task update".
type taskFlags struct {
	name        string
	description string
	start       string
	end         string
	phase       string
	taskType    string
	priority    string
	status      string
	progress    int
	responsible string
	parent      string
}

func (f *taskFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "Task name")
	cmd.Flags().StringVar(&f.description, "description", "", "Task description")
	cmd.Flags().StringVar(&f.start, "start", "", "Planned start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.end, "end", "", "Planned end date, inclusive (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.phase, "phase", "", "Phase: preparation, gros_oeuvre, second_oeuvre, finitions, livraison")
	cmd.Flags().StringVar(&f.taskType, "type", "", "Task type: task, milestone, or phase")
	cmd.Flags().StringVar(&f.priority, "priority", "", "Priority: low, medium, high, or critical")
	cmd.Flags().StringVar(&f.status, "status", "", "Status: not_started, in_progress, completed, delayed, blocked")
	cmd.Flags().IntVar(&f.progress, "progress", 0, "Completion percentage (0-100)")
	cmd.Flags().StringVar(&f.responsible, "responsible", "", "Responsible user ID")
	cmd.Flags().StringVar(&f.parent, "parent", "", "Parent task ID the task depends on")
}

// filled reports a field as set when its flag was passed or a form filled it.
func (f *taskFlags) filled(cmd *cobra.Command) func(string) bool {
	values := map[string]string{
		"name":        f.name,
		"description": f.description,
		"start":       f.start,
		"end":         f.end,
		"phase":       f.phase,
		"type":        f.taskType,
		"priority":    f.priority,
		"status":      f.status,
		"responsible": f.responsible,
		"parent":      f.parent,
	}
	return func(name string) bool {
		return cmd.Flags().Changed(name) || values[name] != ""
	}
}

// update builds a TaskUpdate from the fields for which changed is true.
func (f *taskFlags) update(changed func(name string) bool) (models.TaskUpdate, error) {
	var u models.TaskUpdate

	if changed("name") {
		u.Name = &f.name
	}
	if changed("description") {
		u.Description = &f.description
	}
	if changed("start") {
		d, err := models.ParseDate(f.start)
		if err != nil {
			return u, fmt.Errorf("--start: %w", err)
		}
		u.StartDate = &d
	}
	if changed("end") {
		d, err := models.ParseDate(f.end)
		if err != nil {
			return u, fmt.Errorf("--end: %w", err)
		}
		u.EndDate = &d
	}
	if changed("phase") {
		p := core.ParsePhase(f.phase)
		u.Phase = &p
	}
	if changed("type") {
		t := models.TaskType(f.taskType)
		u.Type = &t
	}
	if changed("priority") {
		p, err := core.ParsePriority(f.priority)
		if err != nil {
			return u, err
		}
		u.Priority = &p
	}
	if changed("status") {
		s, err := core.ParseStatus(f.status)
		if err != nil {
			return u, err
		}
		u.Status = &s
	}
	if changed("progress") {
		u.Progress = &f.progress
	}
	if changed("responsible") {
		u.ResponsibleUserID = &f.responsible
	}
	if changed("parent") {
		u.ParentTaskID = &f.parent
	}
	return u, nil
}

var (
	taskAddFlags       taskFlags
	taskAddInteractive bool
)

var taskAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add a task to the project plan",
	Long: `Add a task to the current project.

Pass the fields as flags, or use --interactive to fill them in a form.
Dates are inclusive; a milestone uses the same start and end date.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requirePlanner(); err != nil {
			return err
		}
		projectID, err := currentProject()
		if err != nil {
			return err
		}

		if len(args) == 1 {
			taskAddFlags.name = args[0]
		}
		if taskAddInteractive {
			if err := runTaskForm(&taskAddFlags); err != nil {
				return fmt.Errorf("task form: %w", err)
			}
		}

		update, err := taskAddFlags.update(taskAddFlags.filled(cmd))
		if err != nil {
			return err
		}
		task := update.Apply(models.Task{ProjectID: projectID})
		if strings.TrimSpace(task.Name) == "" {
			return fmt.Errorf("task name is required")
		}

		created, err := Planner.CreateTask(cmd.Context(), task)
		if err != nil {
			return fmt.Errorf("creating task: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Created task %s\n", created.ID)
		printTaskDetail(out, *created)
		return nil
	},
}

var (
	taskListStatus string
	taskListPhase  string
	taskListJSON   bool
)

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tasks of the project",
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
			return fmt.Errorf("loading tasks: %w", err)
		}

		tasks, err := filterTasks(snap.Tasks, taskListStatus, taskListPhase)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if taskListJSON {
			return writeJSON(out, tasks)
		}
		if len(tasks) == 0 {
			fmt.Fprintln(out, "No tasks found.")
			return nil
		}

		fmt.Fprintf(out, "%-36s  %-28s  %-13s  %-10s  %-10s  %5s  %s\n", "ID", "NAME", "PHASE", "START", "END", "PROG", "STATUS")
		for _, t := range tasks {
			fmt.Fprintf(out, "%-36s  %-28s  %-13s  %-10s  %-10s  %4d%%  %s\n",
				t.ID, truncate(t.Name, 28), core.NormalizePhase(t.Phase), t.StartDate, t.EndDate, t.Progress, t.Status)
		}
		fmt.Fprintf(out, "\n%d task(s)\n", len(tasks))
		return nil
	},
}

var taskUpdateFlags taskFlags

var taskUpdateCmd = &cobra.Command{
	Use:   "update <task-id>",
	Short: "Update fields of a task",
	Long: `Update one or more fields of a task. Only the flags you pass are changed;
the merged task must still be valid.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requirePlanner(); err != nil {
			return err
		}
		update, err := taskUpdateFlags.update(cmd.Flags().Changed)
		if err != nil {
			return err
		}
		if update.IsEmpty() {
			return fmt.Errorf("nothing to update: pass at least one field flag")
		}
		if err := Planner.UpdateTask(cmd.Context(), args[0], update); err != nil {
			return fmt.Errorf("updating task %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated task %s\n", args[0])
		return nil
	},
}

var taskProgressCmd = &cobra.Command{
	Use:   "progress <task-id> <percent>",
	Short: "Set the completion percentage of a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requirePlanner(); err != nil {
			return err
		}
		pct, err := strconv.Atoi(strings.TrimSuffix(args[1], "%"))
		if err != nil {
			return fmt.Errorf("invalid percentage %q", args[1])
		}
		if err := Planner.UpdateProgress(cmd.Context(), args[0], pct); err != nil {
			return fmt.Errorf("updating progress of %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Task %s progress set to %d%%\n", args[0], pct)
		return nil
	},
}

var taskStatusCmd = &cobra.Command{
	Use:   "status <task-id> <status>",
	Short: "Change the status of a task",
	Long: `Change the status of a task.

Valid statuses: not_started, in_progress, completed, delayed, blocked.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requirePlanner(); err != nil {
			return err
		}
		status, err := core.ParseStatus(args[1])
		if err != nil {
			return err
		}
		if err := Planner.SetStatus(cmd.Context(), args[0], status); err != nil {
			return fmt.Errorf("updating status of %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Task %s status set to %s\n", args[0], status)
		return nil
	},
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete <task-id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requirePlanner(); err != nil {
			return err
		}
		if err := Planner.DeleteTask(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("deleting task %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s\n", args[0])
		return nil
	},
}

func completeTaskIDs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if Planner == nil || len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	projectID, err := currentProject()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	snap, err := Planner.Refresh(context.Background(), projectID)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	var ids []string
	for _, t := range snap.Tasks {
		if strings.HasPrefix(t.ID, toComplete) {
			ids = append(ids, t.ID+"\t"+t.Name)
		}
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}

func filterTasks(tasks []models.Task, status, phase string) ([]models.Task, error) {
	var wantStatus models.TaskStatus
	if status != "" {
		s, err := core.ParseStatus(status)
		if err != nil {
			return nil, err
		}
		wantStatus = s
	}
	var wantPhase models.Phase
	if phase != "" {
		wantPhase = core.ParsePhase(phase)
	}

	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if wantStatus != "" && t.Status != wantStatus {
			continue
		}
		if wantPhase != "" && core.NormalizePhase(t.Phase) != wantPhase {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func printTaskDetail(out io.Writer, t models.Task) {
	fmt.Fprintf(out, "  Name:     %s\n", t.Name)
	fmt.Fprintf(out, "  Phase:    %s\n", core.NormalizePhase(t.Phase))
	fmt.Fprintf(out, "  Type:     %s\n", t.Type)
	fmt.Fprintf(out, "  Dates:    %s .. %s\n", t.StartDate, t.EndDate)
	fmt.Fprintf(out, "  Status:   %s (%d%%)\n", t.Status, t.Progress)
	fmt.Fprintf(out, "  Priority: %s\n", t.Priority)
	if t.ParentTaskID != nil {
		fmt.Fprintf(out, "  Parent:   %s\n", *t.ParentTaskID)
	}
}

func writeJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("formatting JSON: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func init() {
	taskAddFlags.register(taskAddCmd)
	taskAddCmd.Flags().BoolVarP(&taskAddInteractive, "interactive", "i", false, "Fill the task fields in an interactive form")

	taskListCmd.Flags().StringVar(&taskListStatus, "status", "", "Filter by status")
	taskListCmd.Flags().StringVar(&taskListPhase, "phase", "", "Filter by phase")
	taskListCmd.Flags().BoolVar(&taskListJSON, "json", false, "Output tasks as JSON")

	taskUpdateFlags.register(taskUpdateCmd)

	for _, c := range []*cobra.Command{taskUpdateCmd, taskProgressCmd, taskStatusCmd, taskDeleteCmd} {
		c.ValidArgsFunction = completeTaskIDs
	}

	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskUpdateCmd, taskProgressCmd, taskStatusCmd, taskDeleteCmd)
	rootCmd.AddCommand(taskCmd)
}
