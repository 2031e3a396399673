package deep

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/concierge/internal/complexity"
	"github.com/ShayCichocki/concierge/internal/decompose"
	"github.com/ShayCichocki/concierge/internal/llm"
	"github.com/ShayCichocki/concierge/pkg/models"
)

const scenario = "Can you analyze the fintech market and compare it to AI, and then recommend a strategy?"

// scripted answers by matching a substring of the user prompt.
type scripted struct {
	mu      sync.Mutex
	fail    []string
	prompts []string
	onCall  func(prompt string)
}

func (s *scripted) Generate(_ context.Context, req llm.Request) (*llm.Response, error) {
	prompt := req.Messages[len(req.Messages)-1].Content
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	if s.onCall != nil {
		s.onCall(prompt)
	}
	for _, f := range s.fail {
		if strings.Contains(prompt, f) {
			return nil, errors.New("provider unavailable")
		}
	}
	if strings.Contains(prompt, "Write one well-structured answer") {
		return &llm.Response{Content: "final answer"}, nil
	}
	return &llm.Response{Content: "step output"}, nil
}

func plan(t *testing.T, query string) []*models.DeepTask {
	t.Helper()
	tasks := decompose.New().Decompose(query, complexity.New(complexity.Keywords{}).Analyze(query))
	require.NoError(t, decompose.Validate(tasks))
	return tasks
}

func TestRun_AllSucceed(t *testing.T) {
	gen := &scripted{}
	var phases []models.DeepSessionStatus
	r := New(gen, WithProgress(func(p Progress) {
		if p.TaskID == "" {
			phases = append(phases, p.Phase)
		}
	}))

	s := r.Run(context.Background(), scenario, plan(t, scenario))

	assert.Equal(t, models.DeepSessionCompleted, s.Status)
	assert.Equal(t, "final answer", s.Answer)
	assert.Equal(t, len(s.Tasks), s.CompletedCount())
	require.Len(t, s.Results, len(s.Tasks)-1)
	assert.Equal(t, "task-1", s.Results[0].TaskID)
	assert.NotNil(t, s.EndTime)
	assert.NotEmpty(t, s.ID)

	// One call per task plus synthesis; the second prompt sees the first result.
	require.Len(t, gen.prompts, len(s.Tasks))
	assert.Contains(t, gen.prompts[0], "(none yet)")
	assert.Contains(t, gen.prompts[1], "step output")

	assert.Equal(t, []models.DeepSessionStatus{
		models.DeepSessionPlanning,
		models.DeepSessionExecuting,
		models.DeepSessionSynthesizing,
		models.DeepSessionCompleted,
	}, phases)
}

func TestRun_FailedDependencySkipsDependents(t *testing.T) {
	// analysis fails, the domain task depends on it and is skipped.
	gen := &scripted{fail: []string{"Analyze and compare"}}
	s := New(gen).Run(context.Background(), scenario, plan(t, scenario))

	require.Len(t, s.Tasks, 3)
	assert.Equal(t, models.TaskStatusFailed, s.Tasks[0].Status)
	assert.Equal(t, "provider unavailable", s.Tasks[0].Error)
	assert.Equal(t, models.TaskStatusPending, s.Tasks[1].Status, "dependent task must not run")
	assert.Equal(t, models.TaskStatusPending, s.Tasks[2].Status, "synthesis with unmet deps stays pending")

	assert.Equal(t, models.DeepSessionCompleted, s.Status)
	assert.Equal(t, "final answer", s.Answer)

	log := strings.Join(s.ReasoningLog, "\n")
	assert.Contains(t, log, "task-1 (analysis) failed")
	assert.Contains(t, log, "skipped task-2 (reasoning): dependencies not completed: task-1")
	assert.Contains(t, log, "synthesis ran over partial results")
}

func TestRun_NeverRunsBeforeDependencies(t *testing.T) {
	q := "Can you research seed investors? What valuation should we expect?"
	tasks := plan(t, q)

	gen := &scripted{fail: []string{"Break down"}}
	gen.onCall = func(prompt string) {
		for _, task := range tasks {
			if task.Type == models.TaskTypeSynthesis || !strings.Contains(prompt, task.Description) {
				continue
			}
			for _, dep := range task.Dependencies {
				assert.Equal(t, models.TaskStatusCompleted, tasks[indexOf(tasks, dep)].Status,
					"task %s ran before %s completed", task.ID, dep)
			}
		}
	}

	s := New(gen).Run(context.Background(), q, tasks)

	// Planning failed, so nothing downstream ran: only the planning call and synthesis.
	assert.Len(t, gen.prompts, 2)
	assert.Equal(t, 0, s.CompletedCount())
}

func indexOf(tasks []*models.DeepTask, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func TestRun_TotalLLMFailureStillAnswers(t *testing.T) {
	failing := llm.GeneratorFunc(func(context.Context, llm.Request) (*llm.Response, error) {
		return nil, errors.New("every provider is down")
	})

	s := New(failing).Run(context.Background(), scenario, plan(t, scenario))

	assert.Equal(t, models.DeepSessionFailed, s.Status)
	require.NotEmpty(t, s.Answer)
	assert.Contains(t, s.Answer, fallbackEmptyHeader)
	assert.Contains(t, s.Answer, "synthesis failed: every provider is down")
	assert.Contains(t, s.Answer, "task-1 (analysis) failed")
	assert.Equal(t, models.TaskStatusPending, s.Tasks[len(s.Tasks)-1].Status)
}

func TestRun_SynthesisFailureUsesPartialResults(t *testing.T) {
	gen := &scripted{fail: []string{"Write one well-structured answer"}}
	s := New(gen).Run(context.Background(), scenario, plan(t, scenario))

	assert.Equal(t, models.DeepSessionFailed, s.Status)
	assert.True(t, strings.HasPrefix(s.Answer, fallbackHeader))
	assert.Contains(t, s.Answer, "step output")
	assert.Contains(t, s.Answer, "Notes:")

	synth := s.Tasks[len(s.Tasks)-1]
	assert.Equal(t, models.TaskStatusFailed, synth.Status, "synthesis with met deps records the failure")
}

func TestRun_EmptyResponseIsFailure(t *testing.T) {
	empty := llm.GeneratorFunc(func(context.Context, llm.Request) (*llm.Response, error) {
		return &llm.Response{Content: "  "}, nil
	})
	s := New(empty).Run(context.Background(), "hi", plan(t, "hi"))
	assert.Equal(t, models.TaskStatusFailed, s.Tasks[0].Status)
	assert.NotEmpty(t, s.Answer)
}

func TestRun_NilGenerator(t *testing.T) {
	s := New(nil).Run(context.Background(), "hi", plan(t, "hi"))
	assert.Equal(t, models.DeepSessionFailed, s.Status)
	assert.Contains(t, s.Answer, llm.ErrNoProvider.Error())
}

func TestRun_InvalidPlanStillAnswers(t *testing.T) {
	tasks := []*models.DeepTask{
		{ID: "a", Type: models.TaskTypeResearch, Status: models.TaskStatusPending, Dependencies: []string{"ghost"}},
		{ID: "s", Type: models.TaskTypeSynthesis, Status: models.TaskStatusPending, Dependencies: []string{"a"}},
	}
	gen := &scripted{}
	s := New(gen).Run(context.Background(), "q", tasks)

	assert.Len(t, gen.prompts, 1, "only synthesis should run")
	assert.Equal(t, "final answer", s.Answer)
	assert.Contains(t, strings.Join(s.ReasoningLog, "\n"), "task plan rejected")
}

func TestRun_RejectsPlansBreakingInvariants(t *testing.T) {
	tests := []struct {
		name  string
		tasks []*models.DeepTask
	}{
		{"synthesis misses a task", []*models.DeepTask{
			{ID: "a", Type: models.TaskTypeResearch, Status: models.TaskStatusPending},
			{ID: "b", Type: models.TaskTypeAnalysis, Status: models.TaskStatusPending},
			{ID: "s", Type: models.TaskTypeSynthesis, Status: models.TaskStatusPending, Dependencies: []string{"a"}},
		}},
		{"out of order", []*models.DeepTask{
			{ID: "b", Type: models.TaskTypeAnalysis, Status: models.TaskStatusPending, Dependencies: []string{"a"}},
			{ID: "a", Type: models.TaskTypeResearch, Status: models.TaskStatusPending},
			{ID: "s", Type: models.TaskTypeSynthesis, Status: models.TaskStatusPending, Dependencies: []string{"a", "b"}},
		}},
		{"no synthesis", []*models.DeepTask{
			{ID: "a", Type: models.TaskTypeResearch, Status: models.TaskStatusPending},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &scripted{}
			s := New(gen).Run(context.Background(), "q", tt.tasks)

			assert.Len(t, gen.prompts, 1, "only synthesis should run")
			assert.NotEmpty(t, s.Answer)
			assert.Equal(t, 0, s.CompletedCount())
			assert.Contains(t, strings.Join(s.ReasoningLog, "\n"), "task plan rejected")
		})
	}
}

func TestRun_PassesModelAndParams(t *testing.T) {
	var got llm.Request
	gen := llm.GeneratorFunc(func(_ context.Context, req llm.Request) (*llm.Response, error) {
		got = req
		return &llm.Response{Content: "ok"}, nil
	})
	params := llm.Params{Temperature: 0.3, MaxTokens: 500, PreferredProvider: "gemini"}
	New(gen, WithModel("m"), WithParams(params)).Run(context.Background(), "hi", plan(t, "hi"))

	assert.Equal(t, "m", got.Model)
	assert.Equal(t, params, got.Params)
	assert.Equal(t, llm.RoleSystem, got.Messages[0].Role)
}
