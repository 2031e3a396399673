package graph

import (
	"errors"
	"strings"
	"testing"

	"github.com/ShayCichocki/concierge/pkg/models"
)

func task(id string, deps ...string) *models.DeepTask {
	return &models.DeepTask{
		ID:           id,
		Description:  "Task " + id,
		Type:         models.TaskTypeReasoning,
		Status:       models.TaskStatusPending,
		Dependencies: deps,
	}
}

func TestBuildWithDependencies(t *testing.T) {
	g := New()
	tasks := []*models.DeepTask{
		task("task-1"),
		task("task-2", "task-1"),
		task("task-3", "task-1", "task-2"),
	}
	if err := g.Build(tasks); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := strings.Join(g.GetDependencies("task-3"), ","); got != "task-1,task-2" {
		t.Errorf("dependencies of task-3 = %q, want task-1,task-2", got)
	}
	if deps := g.GetDependencies("task-1"); len(deps) != 0 {
		t.Errorf("expected no dependencies for task-1, got %v", deps)
	}
	if g.GetTask("task-2") != tasks[1] {
		t.Error("GetTask should return the original task pointer")
	}
	if g.GetTask("missing") != nil {
		t.Error("GetTask on unknown id should return nil")
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name  string
		tasks []*models.DeepTask
		want  error
	}{
		{"unknown dependency", []*models.DeepTask{task("a", "ghost")}, ErrUnknownDependency},
		{"duplicate id", []*models.DeepTask{task("a"), task("a")}, ErrDuplicateTask},
		{"self cycle", []*models.DeepTask{task("a", "a")}, ErrCycleDetected},
		{"direct cycle", []*models.DeepTask{task("a", "b"), task("b", "a")}, ErrCycleDetected},
		{"indirect cycle", []*models.DeepTask{task("a", "c"), task("b", "a"), task("c", "b")}, ErrCycleDetected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New().Build(tt.tasks)
			if !errors.Is(err, tt.want) {
				t.Errorf("Build() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestIsTopological(t *testing.T) {
	g := New()
	tasks := []*models.DeepTask{
		task("synth", "research", "analysis"),
		task("research"),
		task("analysis", "research"),
	}
	if err := g.Build(tasks); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		order []string
		want  bool
	}{
		{[]string{"research", "analysis", "synth"}, true},
		{[]string{"synth", "research", "analysis"}, false},
		{[]string{"analysis", "research", "synth"}, false},
		// Ids missing from the list are not checked.
		{[]string{"research", "analysis"}, true},
	}
	for _, tt := range tests {
		if got := g.IsTopological(tt.order); got != tt.want {
			t.Errorf("IsTopological(%v) = %v, want %v", tt.order, got, tt.want)
		}
	}
}

func TestMarkCompleteAndDependenciesMet(t *testing.T) {
	g := New()
	tasks := []*models.DeepTask{
		task("a"),
		task("b"),
		task("c", "a", "b"),
	}
	if err := g.Build(tasks); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !g.DependenciesMet("a") {
		t.Error("a has no dependencies and should be ready")
	}

	g.MarkComplete("a")
	if g.DependenciesMet("c") {
		t.Error("c should not be ready while b is pending")
	}

	// Status on the task counts as completion too.
	tasks[1].Status = models.TaskStatusCompleted
	if !g.DependenciesMet("c") {
		t.Error("c should be ready once a and b are complete")
	}
}

func TestFailedDependencyBlocksDependents(t *testing.T) {
	g := New()
	tasks := []*models.DeepTask{task("a"), task("b", "a")}
	if err := g.Build(tasks); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tasks[0].Status = models.TaskStatusFailed

	if g.DependenciesMet("b") {
		t.Error("failed dependency should not satisfy dependents")
	}
}

func TestSetDebugLog(t *testing.T) {
	g := New()
	var lines []string
	g.SetDebugLog(func(format string, args ...interface{}) {
		lines = append(lines, format)
	})
	g.SetDebugLog(nil)

	if err := g.Build([]*models.DeepTask{task("a")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) == 0 {
		t.Error("expected debug output from Build")
	}
}
