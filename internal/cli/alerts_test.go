package cli

import (
	"context"
	"strings"
	"testing"
)

func TestAlertsLifecycle(t *testing.T) {
	planner := setupPlanner(t)
	seedTask(t, planner, "Gros œuvre bloc A", "2020-01-01", "2020-01-10")

	out, err := runCLI(t, "alerts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "No active alerts.") {
		t.Errorf("expected no alerts before detection:\n%s", out)
	}

	out, err = runCLI(t, "alerts", "detect")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "1 new alert(s)") || !strings.Contains(out, "delay") {
		t.Errorf("unexpected detection output:\n%s", out)
	}

	// A second pass must not raise the same alert again.
	out, err = runCLI(t, "alerts", "detect")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "0 new alert(s)") {
		t.Errorf("second detection should raise nothing:\n%s", out)
	}

	out, err = runCLI(t, "alerts", "list")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "1 active alert(s)") || !strings.Contains(out, "[WARNING]") {
		t.Errorf("unexpected list output:\n%s", out)
	}

	snap, err := planner.Refresh(context.Background(), testProject)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Alerts) != 1 {
		t.Fatalf("expected 1 open alert, got %d", len(snap.Alerts))
	}
	alertID := snap.Alerts[0].ID

	out, err = runCLI(t, "alerts", "resolve", alertID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "resolved at") {
		t.Errorf("unexpected resolve output: %s", out)
	}

	out, _ = runCLI(t, "alerts")
	if !strings.Contains(out, "No active alerts.") {
		t.Errorf("resolved alert still listed:\n%s", out)
	}

	if _, err := runCLI(t, "alerts", "resolve", "no-such-alert"); err == nil {
		t.Error("expected error resolving an unknown alert")
	}
}

func TestAlertsDetectAll(t *testing.T) {
	planner := setupPlanner(t)
	seedTask(t, planner, "Terrassement", "2020-01-01", "2020-01-10")

	out, err := runCLI(t, "alerts", "detect", "--all")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Project "+testProject+": 1 new alert(s)") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestAlertsDetectAll_NoProjects(t *testing.T) {
	setupPlanner(t)

	out, err := runCLI(t, "alerts", "detect", "--all")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "No projects with tasks.") {
		t.Errorf("unexpected output:\n%s", out)
	}
}
