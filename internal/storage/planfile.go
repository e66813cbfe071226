package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/valter-silva-au/site-planner/pkg/models"
)

// PlanFileVersion is written to every exported plan file.
const PlanFileVersion = "1"

// PlanFile is the YAML document used to import and export a project plan.
type PlanFile struct {
	Version   string        `yaml:"version"`
	ProjectID string        `yaml:"project_id"`
	Tasks     []models.Task `yaml:"tasks"`
}

// ReadPlanFile loads a plan file from path. Unknown fields are rejected so
// typos do not silently drop data.
func ReadPlanFile(path string) (*PlanFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening plan file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var pf PlanFile
	if err := dec.Decode(&pf); err != nil {
		return nil, fmt.Errorf("parsing plan file %s: %w", path, err)
	}
	return &pf, nil
}

// WritePlanFile exports a project's tasks to path. Store-assigned IDs are
// kept so that parent references survive a round trip for reading, but they
// are re-assigned on import.
func WritePlanFile(path, projectID string, tasks []models.Task) error {
	pf := PlanFile{
		Version:   PlanFileVersion,
		ProjectID: projectID,
		Tasks:     tasks,
	}
	if pf.Tasks == nil {
		pf.Tasks = []models.Task{}
	}

	data, err := yaml.Marshal(&pf)
	if err != nil {
		return fmt.Errorf("marshaling plan file: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory for plan file: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing plan file: %w", err)
	}
	return nil
}
