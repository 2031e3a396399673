package decompose

import (
	"errors"
	"fmt"

	"github.com/ShayCichocki/concierge/internal/graph"
	"github.com/ShayCichocki/concierge/pkg/models"
)

// ErrInvalidPlan is returned when a task list breaks a plan invariant.
var ErrInvalidPlan = errors.New("invalid task plan")

// Validate checks that tasks form a usable deep-path plan:
// ids are unique and every dependency exists, there are no cycles,
// the list is topologically sorted, and exactly one synthesis task exists
// and depends on every other task.
func Validate(tasks []*models.DeepTask) error {
	_, err := PlanGraph(tasks, nil)
	return err
}

// PlanGraph validates tasks like Validate and returns their dependency graph.
// debugLog may be nil.
func PlanGraph(tasks []*models.DeepTask, debugLog func(format string, args ...interface{})) (*graph.DependencyGraph, error) {
	if len(tasks) == 0 {
		return nil, fmt.Errorf("%w: no tasks", ErrInvalidPlan)
	}

	for _, t := range tasks {
		if t.ID == "" {
			return nil, fmt.Errorf("%w: task with empty id", ErrInvalidPlan)
		}
		if !t.Type.Valid() {
			return nil, fmt.Errorf("%w: task %s has unknown type %q", ErrInvalidPlan, t.ID, t.Type)
		}
	}

	g := graph.New()
	g.SetDebugLog(debugLog)
	if err := g.Build(tasks); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}

	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	if !g.IsTopological(ids) {
		return nil, fmt.Errorf("%w: tasks are not in dependency order", ErrInvalidPlan)
	}

	var synth *models.DeepTask
	for _, t := range tasks {
		if t.Type != models.TaskTypeSynthesis {
			continue
		}
		if synth != nil {
			return nil, fmt.Errorf("%w: more than one synthesis task", ErrInvalidPlan)
		}
		synth = t
	}
	if synth == nil {
		return nil, fmt.Errorf("%w: no synthesis task", ErrInvalidPlan)
	}

	deps := make(map[string]bool, len(synth.Dependencies))
	for _, id := range synth.Dependencies {
		deps[id] = true
	}
	for _, t := range tasks {
		if t != synth && !deps[t.ID] {
			return nil, fmt.Errorf("%w: synthesis does not depend on %s", ErrInvalidPlan, t.ID)
		}
	}
	return g, nil
}
