package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/valter-silva-au/site-planner/internal/core"
	"github.com/valter-silva-au/site-planner/internal/storage"
	"github.com/valter-silva-au/site-planner/pkg/models"
)

const testProject = "villa-dupont"

// setupPlanner wires an in-memory planning service into the package vars
// and restores the previous values when the test ends.
func setupPlanner(t *testing.T) core.PlanningService {
	t.Helper()

	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}

	origPlanner, origTimeline, origConfig := Planner, Timeline, Config
	t.Cleanup(func() {
		Planner, Timeline, Config = origPlanner, origTimeline, origConfig
		_ = store.Close()
	})

	cfg := core.DefaultConfig()
	cfg.DefaultProjectID = testProject

	Config = cfg
	Planner = core.NewPlanningService(store, nil, core.AlertPolicy{}, nil, nil, nil)
	Timeline = core.NewTimeline(cfg.Timeline)
	return Planner
}

// resetFlags returns every flag of cmd and its children to its default so
// consecutive Execute calls do not leak state.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// runCLI executes the root command with args and returns combined output.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return buf.String(), err
}

func seedTask(t *testing.T, planner core.PlanningService, name, start, end string) *models.Task {
	t.Helper()
	created, err := planner.CreateTask(context.Background(), models.Task{
		ProjectID: testProject,
		Name:      name,
		StartDate: models.MustParseDate(start),
		EndDate:   models.MustParseDate(end),
	})
	if err != nil {
		t.Fatalf("seeding task %s: %v", name, err)
	}
	return created
}
