package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/valter-silva-au/site-planner/internal/core"
	"github.com/valter-silva-au/site-planner/pkg/models"
)

// runTaskForm prompts for the fields of a new task. Values already set by
// flags are used as the form's initial values.
func runTaskForm(f *taskFlags) error {
	if f.taskType == "" {
		f.taskType = string(models.TaskTypeTask)
	}
	if f.priority == "" {
		f.priority = string(models.PriorityMedium)
	}
	if f.phase == "" {
		f.phase = string(models.PhasePreparation)
	}

	phaseOpts := make([]huh.Option[string], 0, len(core.PhaseOrder)-1)
	for _, p := range core.PhaseOrder {
		if p == models.PhaseOther {
			continue
		}
		phaseOpts = append(phaseOpts, huh.NewOption(phaseLabel(p), string(p)))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Placeholder("e.g. Coulage dalle RDC").
				Value(&f.name).
				Validate(validateRequired("Name")),
			huh.NewText().
				Title("Description").
				Placeholder("Optional details...").
				Value(&f.description),
			huh.NewSelect[string]().
				Title("Phase").
				Options(phaseOpts...).
				Value(&f.phase),
			huh.NewSelect[string]().
				Title("Type").
				Options(
					huh.NewOption("Task", string(models.TaskTypeTask)),
					huh.NewOption("Milestone", string(models.TaskTypeMilestone)),
					huh.NewOption("Phase", string(models.TaskTypePhase)),
				).
				Value(&f.taskType),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Start date").
				Placeholder("YYYY-MM-DD").
				Value(&f.start).
				Validate(validateDate),
			huh.NewInput().
				Title("End date").
				Placeholder("YYYY-MM-DD (inclusive)").
				Value(&f.end).
				Validate(validateDate),
			huh.NewSelect[string]().
				Title("Priority").
				Options(
					huh.NewOption("Critical", string(models.PriorityCritical)),
					huh.NewOption("High", string(models.PriorityHigh)),
					huh.NewOption("Medium", string(models.PriorityMedium)),
					huh.NewOption("Low", string(models.PriorityLow)),
				).
				Value(&f.priority),
			huh.NewInput().
				Title("Responsible").
				Placeholder("User ID (optional)").
				Value(&f.responsible),
		),
	)
	return form.Run()
}

func validateRequired(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func validateDate(s string) error {
	if _, err := models.ParseDate(s); err != nil {
		return fmt.Errorf("use YYYY-MM-DD")
	}
	return nil
}

func phaseLabel(p models.Phase) string {
	switch p {
	case models.PhasePreparation:
		return "Préparation"
	case models.PhaseGrosOeuvre:
		return "Gros œuvre"
	case models.PhaseSecondOeuvre:
		return "Second œuvre"
	case models.PhaseFinitions:
		return "Finitions"
	case models.PhaseLivraison:
		return "Livraison"
	default:
		return "Autres"
	}
}
