package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valter-silva-au/site-planner/pkg/models"
)

func TestPlanFile_WriteThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export", "plan.yaml")

	ms := sampleTask("p1", "Reception", "2024-09-30", "2024-09-30")
	ms.Type = models.TaskTypeMilestone
	ms.ID = "m-1"
	tasks := []models.Task{sampleTask("p1", "Gros oeuvre", "2024-03-01", "2024-06-30"), ms}

	require.NoError(t, WritePlanFile(path, "p1", tasks))

	pf, err := ReadPlanFile(path)
	require.NoError(t, err)
	assert.Equal(t, PlanFileVersion, pf.Version)
	assert.Equal(t, "p1", pf.ProjectID)
	require.Len(t, pf.Tasks, 2)
	assert.Equal(t, "2024-03-01", pf.Tasks[0].StartDate.String())
	assert.Equal(t, models.TaskTypeMilestone, pf.Tasks[1].Type)
	assert.Equal(t, "m-1", pf.Tasks[1].ID)
}

func TestReadPlanFile_HandWritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	content := `version: "1"
project_id: villa
tasks:
  - name: Terrassement
    type: task
    phase: preparation
    start_date: 2024-01-08
    end_date: 2024-01-19
    progress: 0
    status: not_started
    priority: high
  - name: Permis
    type: milestone
    start_date: "2024-01-05"
    end_date: "2024-01-05"
    progress: 100
    status: completed
    priority: medium
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	pf, err := ReadPlanFile(path)
	require.NoError(t, err)
	require.Len(t, pf.Tasks, 2)
	assert.Equal(t, "2024-01-08", pf.Tasks[0].StartDate.String())
	require.NotNil(t, pf.Tasks[0].Phase)
	assert.Equal(t, models.PhasePreparation, *pf.Tasks[0].Phase)
	assert.Equal(t, models.PriorityHigh, pf.Tasks[0].Priority)
	assert.Nil(t, pf.Tasks[1].Phase)
}

func TestReadPlanFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadPlanFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	typo := filepath.Join(dir, "typo.yaml")
	require.NoError(t, os.WriteFile(typo, []byte("project_id: p\ntasks:\n  - nmae: x\n"), 0o644))
	_, err = ReadPlanFile(typo)
	assert.Error(t, err, "unknown fields must be rejected")

	badDate := filepath.Join(dir, "date.yaml")
	require.NoError(t, os.WriteFile(badDate, []byte("tasks:\n  - name: x\n    start_date: 05/01/2024\n"), 0o644))
	_, err = ReadPlanFile(badDate)
	assert.Error(t, err)
}
