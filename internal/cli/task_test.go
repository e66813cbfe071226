package cli

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/valter-silva-au/site-planner/internal/core"
	"github.com/valter-silva-au/site-planner/pkg/models"
)

func TestTaskCmd_Subcommands(t *testing.T) {
	expected := []string{"add", "list", "update", "progress", "status", "delete"}
	subs := make(map[string]bool)
	for _, cmd := range taskCmd.Commands() {
		subs[cmd.Name()] = true
	}
	for _, name := range expected {
		if !subs[name] {
			t.Errorf("expected subcommand %q on 'task'", name)
		}
	}
}

func TestTaskAdd_AppliesDefaults(t *testing.T) {
	planner := setupPlanner(t)

	out, err := runCLI(t, "task", "add", "Fondations", "--start", "2024-02-01", "--end", "2024-02-20", "--phase", "gros_oeuvre")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Created task") || !strings.Contains(out, "gros_oeuvre") {
		t.Errorf("unexpected output:\n%s", out)
	}

	snap, err := planner.Refresh(context.Background(), testProject)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(snap.Tasks))
	}
	task := snap.Tasks[0]
	if task.Status != models.StatusNotStarted || task.Priority != models.PriorityMedium || task.Type != models.TaskTypeTask {
		t.Errorf("defaults not applied: status=%s priority=%s type=%s", task.Status, task.Priority, task.Type)
	}
}

func TestTaskAdd_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"missing name", []string{"task", "add", "--start", "2024-01-01", "--end", "2024-01-02"}, "task name is required"},
		{"bad date", []string{"task", "add", "Dalle", "--start", "2024-13-01", "--end", "2024-01-02"}, "--start"},
		{"end before start", []string{"task", "add", "Dalle", "--start", "2024-01-10", "--end", "2024-01-02"}, "end"},
		{"bad priority", []string{"task", "add", "Dalle", "--start", "2024-01-01", "--end", "2024-01-02", "--priority", "urgent"}, "priority"},
		{"progress out of range", []string{"task", "add", "Dalle", "--start", "2024-01-01", "--end", "2024-01-02", "--progress", "120"}, "progress"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			planner := setupPlanner(t)

			_, err := runCLI(t, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err, tt.wantErr)
			}

			snap, _ := planner.Refresh(context.Background(), testProject)
			if len(snap.Tasks) != 0 {
				t.Errorf("rejected task was stored: %+v", snap.Tasks)
			}
		})
	}
}

func TestTaskList_Filters(t *testing.T) {
	planner := setupPlanner(t)
	a := seedTask(t, planner, "Terrassement", "2024-01-01", "2024-01-10")
	seedTask(t, planner, "Peinture", "2024-03-01", "2024-03-10")
	if err := planner.SetStatus(context.Background(), a.ID, models.StatusInProgress); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "task", "list")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Terrassement") || !strings.Contains(out, "Peinture") || !strings.Contains(out, "2 task(s)") {
		t.Errorf("unexpected list output:\n%s", out)
	}

	out, err = runCLI(t, "task", "list", "--status", "in_progress", "--json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var tasks []models.Task
	if err := json.Unmarshal([]byte(out), &tasks); err != nil {
		t.Fatalf("decoding JSON output: %v\n%s", err, out)
	}
	if len(tasks) != 1 || tasks[0].ID != a.ID {
		t.Errorf("status filter returned %+v", tasks)
	}

	if _, err := runCLI(t, "task", "list", "--status", "paused"); err == nil {
		t.Error("expected error for unknown status filter")
	}
}

func TestTaskList_Empty(t *testing.T) {
	setupPlanner(t)

	out, err := runCLI(t, "task", "list")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "No tasks found.") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestTaskUpdate(t *testing.T) {
	planner := setupPlanner(t)
	task := seedTask(t, planner, "Charpente", "2024-04-01", "2024-04-15")

	if _, err := runCLI(t, "task", "update", task.ID, "--name", "Charpente bois", "--priority", "high"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := planner.GetTask(context.Background(), task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Charpente bois" || got.Priority != models.PriorityHigh {
		t.Errorf("update not applied: %+v", got)
	}
	if got.StartDate.String() != "2024-04-01" {
		t.Errorf("unchanged field modified: start = %s", got.StartDate)
	}

	_, err = runCLI(t, "task", "update", task.ID)
	if err == nil || !strings.Contains(err.Error(), "nothing to update") {
		t.Errorf("expected nothing-to-update error, got %v", err)
	}

	// The merged task must stay valid.
	if _, err := runCLI(t, "task", "update", task.ID, "--end", "2024-03-01"); err == nil {
		t.Error("expected error for end before start after merge")
	}
}

func TestTaskProgressAndStatus(t *testing.T) {
	planner := setupPlanner(t)
	task := seedTask(t, planner, "Isolation", "2024-05-01", "2024-05-20")

	out, err := runCLI(t, "task", "progress", task.ID, "60%")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "60%") {
		t.Errorf("unexpected output: %s", out)
	}

	if _, err := runCLI(t, "task", "progress", task.ID, "150"); err == nil {
		t.Error("expected error for progress above 100")
	}
	if _, err := runCLI(t, "task", "progress", task.ID, "lots"); err == nil {
		t.Error("expected error for non-numeric progress")
	}

	if _, err := runCLI(t, "task", "status", task.ID, "completed"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := runCLI(t, "task", "status", task.ID, "done-ish"); err == nil {
		t.Error("expected error for unknown status")
	}

	got, err := planner.GetTask(context.Background(), task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Progress != 60 || got.Status != models.StatusCompleted {
		t.Errorf("progress/status = %d/%s, want 60/completed", got.Progress, got.Status)
	}
}

func TestTaskDelete(t *testing.T) {
	planner := setupPlanner(t)
	task := seedTask(t, planner, "Échafaudage", "2024-01-01", "2024-01-03")

	if _, err := runCLI(t, "task", "delete", task.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := planner.GetTask(context.Background(), task.ID); !core.IsNotFound(err) {
		t.Errorf("expected not found after delete, got %v", err)
	}

	_, err := runCLI(t, "task", "delete", task.ID)
	if err == nil {
		t.Error("expected error deleting a missing task")
	}
}

func TestFilterTasks_PhaseNormalization(t *testing.T) {
	gros := models.PhaseGrosOeuvre
	tasks := []models.Task{
		{ID: "a", Phase: &gros},
		{ID: "b"},
	}

	got, err := filterTasks(tasks, "", "GROS_OEUVRE")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("phase filter = %+v", got)
	}

	got, _ = filterTasks(tasks, "", "other")
	if len(got) != 1 || got[0].ID != "b" {
		t.Errorf("tasks without a phase should match other, got %+v", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Gros œuvre", 20); got != "Gros œuvre" {
		t.Errorf("short string changed: %q", got)
	}
	if got := truncate("Maçonnerie porteuse", 6); got != "Maçon…" {
		t.Errorf("truncate = %q, want Maçon…", got)
	}
}
