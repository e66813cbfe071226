package cli

import (
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/valter-silva-au/site-planner/internal/observability"
)

func TestParseSinceDuration(t *testing.T) {
	now := time.Now().UTC()
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "", want: now.AddDate(0, 0, -7)},
		{in: "30d", want: now.AddDate(0, 0, -30)},
		{in: "24h", want: now.Add(-24 * time.Hour)},
		{in: "2w", wantErr: true},
		{in: "xd", wantErr: true},
		{in: "yh", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseSinceDuration(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := got.Sub(tt.want); diff < -time.Minute || diff > time.Minute {
				t.Errorf("parseSinceDuration(%q) = %v, want about %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMetricsCmd_NilCalculator(t *testing.T) {
	orig := MetricsCalc
	defer func() { MetricsCalc = orig }()
	MetricsCalc = nil

	_, err := runCLI(t, "metrics")
	if err == nil || !strings.Contains(err.Error(), "metrics calculator not initialized") {
		t.Errorf("expected not-initialized error, got %v", err)
	}
}

func TestMetricsCmd_ScopedToProject(t *testing.T) {
	setupPlanner(t)

	log, err := observability.NewJSONLEventLog(filepath.Join(t.TempDir(), "events.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	defer log.Close()

	now := time.Now().UTC()
	for _, ev := range []observability.Event{
		{Time: now, Level: "INFO", Type: "task.created", Data: map[string]any{"project_id": testProject, "task_id": "a"}},
		{Time: now, Level: "INFO", Type: "task.created", Data: map[string]any{"project_id": testProject, "task_id": "b"}},
		{Time: now, Level: "INFO", Type: "task.created", Data: map[string]any{"project_id": "autre", "task_id": "c"}},
	} {
		if err := log.Write(ev); err != nil {
			t.Fatal(err)
		}
	}

	orig := MetricsCalc
	defer func() { MetricsCalc = orig }()
	MetricsCalc = observability.NewMetricsCalculator(log)

	out, err := runCLI(t, "metrics", "--since", "1d")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "project "+testProject) {
		t.Errorf("metrics should default to the configured project:\n%s", out)
	}
	if !regexp.MustCompile(`Tasks created:\s+2\n`).MatchString(out) {
		t.Errorf("expected 2 tasks created for the project:\n%s", out)
	}

	if _, err := runCLI(t, "metrics", "--since", "forever"); err == nil {
		t.Error("expected error for malformed --since")
	}
}
