package decompose

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/ShayCichocki/concierge/internal/complexity"
	"github.com/ShayCichocki/concierge/internal/graph"
	"github.com/ShayCichocki/concierge/pkg/models"
)

func types(tasks []*models.DeepTask) []models.TaskType {
	out := make([]models.TaskType, len(tasks))
	for i, t := range tasks {
		out[i] = t.Type
	}
	return out
}

func TestDecompose_Rules(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []models.TaskType
	}{
		{
			"product brief scenario",
			"Can you analyze the fintech market and compare it to AI, and then recommend a strategy?",
			[]models.TaskType{models.TaskTypeAnalysis, models.TaskTypeReasoning, models.TaskTypeSynthesis},
		},
		{
			"multi-part research with domain",
			"Can you research seed investors? What valuation should we expect?",
			[]models.TaskType{models.TaskTypePlanning, models.TaskTypeResearch, models.TaskTypeReasoning, models.TaskTypeSynthesis},
		},
		{
			"research wins over analysis",
			"research and compare accelerators",
			[]models.TaskType{models.TaskTypeResearch, models.TaskTypeSynthesis},
		},
		{
			"no factors gets a general reasoning step",
			"hello there",
			[]models.TaskType{models.TaskTypeReasoning, models.TaskTypeSynthesis},
		},
		{
			"two questions only",
			"Why? How?",
			[]models.TaskType{models.TaskTypePlanning, models.TaskTypeSynthesis},
		},
	}

	analyzer := complexity.New(complexity.Keywords{})
	d := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks := d.Decompose(tt.query, analyzer.Analyze(tt.query))
			if got := types(tasks); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("task types = %v, want %v", got, tt.want)
			}
			if err := Validate(tasks); err != nil {
				t.Errorf("Validate() = %v", err)
			}
			for i, task := range tasks {
				if task.Status != models.TaskStatusPending {
					t.Errorf("task %s status = %s, want pending", task.ID, task.Status)
				}
				if task.Priority != i+1 {
					t.Errorf("task %s priority = %d, want %d", task.ID, task.Priority, i+1)
				}
			}
		})
	}
}

func TestDecompose_Dependencies(t *testing.T) {
	q := "Can you research seed investors? What valuation should we expect?"
	tasks := New().Decompose(q, complexity.New(complexity.Keywords{}).Analyze(q))
	if len(tasks) != 4 {
		t.Fatalf("got %d tasks, want 4", len(tasks))
	}

	wantDeps := [][]string{
		nil,
		{"task-1"},
		{"task-2"},
		{"task-1", "task-2", "task-3"},
	}
	for i, task := range tasks {
		if !reflect.DeepEqual(task.Dependencies, wantDeps[i]) {
			t.Errorf("task %d deps = %v, want %v", i, task.Dependencies, wantDeps[i])
		}
	}
	if !strings.Contains(tasks[1].Description, "research") {
		t.Errorf("research task description %q should name matched terms", tasks[1].Description)
	}
	if !strings.Contains(tasks[2].Description, "valuation") {
		t.Errorf("domain task description %q should name matched terms", tasks[2].Description)
	}
}

func TestDecompose_SynthesisDependsOnAll(t *testing.T) {
	q := "Can you analyze the fintech market and compare it to AI, and then recommend a strategy?"
	tasks := New().Decompose(q, complexity.New(complexity.Keywords{}).Analyze(q))

	last := tasks[len(tasks)-1]
	if last.Type != models.TaskTypeSynthesis {
		t.Fatalf("last task type = %s, want synthesis", last.Type)
	}
	if len(last.Dependencies) != len(tasks)-1 {
		t.Errorf("synthesis depends on %d tasks, want %d", len(last.Dependencies), len(tasks)-1)
	}
	// Domain task depends on the analysis task before it.
	if !reflect.DeepEqual(tasks[1].Dependencies, []string{tasks[0].ID}) {
		t.Errorf("domain task deps = %v, want [%s]", tasks[1].Dependencies, tasks[0].ID)
	}
}

func TestDecompose_CustomIDs(t *testing.T) {
	d := New(WithIDFunc(func(n int) string { return "step" + strings.Repeat("+", n) }))
	tasks := d.Decompose("hi", complexity.Analysis{})
	if tasks[0].ID != "step+" || tasks[1].ID != "step++" {
		t.Errorf("ids = %s, %s", tasks[0].ID, tasks[1].ID)
	}
	if !reflect.DeepEqual(tasks[1].Dependencies, []string{"step+"}) {
		t.Errorf("synthesis deps = %v", tasks[1].Dependencies)
	}
}

func TestValidate(t *testing.T) {
	mk := func(id string, typ models.TaskType, deps ...string) *models.DeepTask {
		return &models.DeepTask{ID: id, Type: typ, Status: models.TaskStatusPending, Dependencies: deps}
	}

	tests := []struct {
		name      string
		tasks     []*models.DeepTask
		wantGraph error
	}{
		{"empty", nil, nil},
		{"no synthesis", []*models.DeepTask{mk("a", models.TaskTypeResearch)}, nil},
		{
			"two synthesis",
			[]*models.DeepTask{mk("a", models.TaskTypeResearch), mk("s1", models.TaskTypeSynthesis, "a"), mk("s2", models.TaskTypeSynthesis, "a")},
			nil,
		},
		{
			"synthesis misses a task",
			[]*models.DeepTask{mk("a", models.TaskTypeResearch), mk("b", models.TaskTypeAnalysis), mk("s", models.TaskTypeSynthesis, "a")},
			nil,
		},
		{
			"out of order",
			[]*models.DeepTask{mk("s", models.TaskTypeSynthesis, "a"), mk("a", models.TaskTypeResearch)},
			nil,
		},
		{
			"unknown dependency",
			[]*models.DeepTask{mk("a", models.TaskTypeResearch, "ghost"), mk("s", models.TaskTypeSynthesis, "a")},
			graph.ErrUnknownDependency,
		},
		{
			"cycle",
			[]*models.DeepTask{mk("a", models.TaskTypeResearch, "b"), mk("b", models.TaskTypeAnalysis, "a"), mk("s", models.TaskTypeSynthesis, "a", "b")},
			graph.ErrCycleDetected,
		},
		{
			"unknown type",
			[]*models.DeepTask{mk("a", models.TaskType("guess")), mk("s", models.TaskTypeSynthesis, "a")},
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.tasks)
			if !errors.Is(err, ErrInvalidPlan) {
				t.Fatalf("Validate() = %v, want ErrInvalidPlan", err)
			}
			if tt.wantGraph != nil && !errors.Is(err, tt.wantGraph) {
				t.Errorf("Validate() = %v, want wrapped %v", err, tt.wantGraph)
			}
		})
	}
}
