package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExportThenImport(t *testing.T) {
	planner := setupPlanner(t)
	parent := seedTask(t, planner, "Fondations", "2024-01-01", "2024-01-20")
	child := seedTask(t, planner, "Élévation des murs", "2024-01-21", "2024-02-28")
	parentID := parent.ID
	if _, err := runCLI(t, "task", "update", child.ID, "--parent", parentID); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "plan.yaml")
	out, err := runCLI(t, "export", path)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out, "Exported 2 task(s)") {
		t.Errorf("unexpected export output: %s", out)
	}

	out, err = runCLI(t, "import", path, "--project", "villa-copie")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "Imported 2 task(s) into project villa-copie") {
		t.Errorf("unexpected import output: %s", out)
	}

	snap, err := planner.Refresh(context.Background(), "villa-copie")
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Tasks) != 2 {
		t.Fatalf("expected 2 imported tasks, got %d", len(snap.Tasks))
	}
	ids := map[string]string{}
	for _, task := range snap.Tasks {
		ids[task.Name] = task.ID
	}
	for _, task := range snap.Tasks {
		if task.Name != "Élévation des murs" {
			continue
		}
		if task.ParentTaskID == nil || *task.ParentTaskID != ids["Fondations"] {
			t.Errorf("parent not rewritten to the imported task: %v", task.ParentTaskID)
		}
		if *task.ParentTaskID == parentID {
			t.Error("imported task still points at the source project")
		}
	}
}

func TestImport_RejectsInvalidFile(t *testing.T) {
	planner := setupPlanner(t)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	plan := `version: "1"
project_id: villa-neuve
tasks:
  - name: Dalle
    start_date: "2024-01-10"
    end_date: "2024-01-12"
  - name: Toiture
    start_date: "2024-03-10"
    end_date: "2024-03-01"
`
	if err := os.WriteFile(path, []byte(plan), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := runCLI(t, "import", path); err == nil {
		t.Fatal("expected error importing a plan with an invalid task")
	}

	snap, err := planner.Refresh(context.Background(), "villa-neuve")
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Tasks) != 0 {
		t.Errorf("partial import stored %d task(s)", len(snap.Tasks))
	}
}

func TestImport_MissingFile(t *testing.T) {
	setupPlanner(t)

	if _, err := runCLI(t, "import", filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing plan file")
	}
}
