// Package deep executes deep-path task plans and synthesizes their results
// into a single answer.
//
// Tasks run in list order in a single pass. A task runs only when every
// dependency has completed; otherwise it is skipped and stays pending. Task
// failures are recorded and never abort the run. If the final synthesis call
// fails, the answer is assembled locally from task results and run notes, so
// the answer is never empty.
package deep

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/concierge/internal/decompose"
	"github.com/ShayCichocki/concierge/internal/graph"
	"github.com/ShayCichocki/concierge/internal/llm"
	"github.com/ShayCichocki/concierge/pkg/models"
)

// Progress describes a state change during a run.
type Progress struct {
	SessionID string                   `json:"session_id"`
	Phase     models.DeepSessionStatus `json:"phase"`
	TaskID    string                   `json:"task_id,omitempty"`
	Status    models.TaskStatus        `json:"status,omitempty"`
	Completed int                      `json:"completed"`
	Total     int                      `json:"total"`
}

// Option configures a Runner.
type Option func(*Runner)

// WithModel sets the model requested for every call.
func WithModel(model string) Option {
	return func(r *Runner) { r.model = model }
}

// WithParams sets generation parameters for every call.
func WithParams(p llm.Params) Option {
	return func(r *Runner) { r.params = p }
}

// WithProgress registers a callback invoked on every phase and task change.
func WithProgress(fn func(Progress)) Option {
	return func(r *Runner) { r.progress = fn }
}

// WithDebugLog sets the debug logging function.
func WithDebugLog(fn func(format string, args ...interface{})) Option {
	return func(r *Runner) {
		if fn != nil {
			r.debugLog = fn
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// Runner executes task plans against a language model.
type Runner struct {
	gen      llm.Generator
	model    string
	params   llm.Params
	progress func(Progress)
	debugLog func(format string, args ...interface{})
	now      func() time.Time
}

// New creates a Runner. gen should already carry a timeout.
func New(gen llm.Generator, opts ...Option) *Runner {
	r := &Runner{
		gen:      gen,
		debugLog: func(format string, args ...interface{}) {},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes tasks for query and returns the finished session.
// A plan that fails decompose.Validate runs no tasks; synthesis still answers.
func (r *Runner) Run(ctx context.Context, query string, tasks []*models.DeepTask) *models.DeepAgentSession {
	s := &models.DeepAgentSession{
		ID:            uuid.New().String(),
		OriginalQuery: query,
		Tasks:         tasks,
		Status:        models.DeepSessionPlanning,
		StartTime:     r.now(),
	}
	s.Log(fmt.Sprintf("planned %d tasks", len(tasks)))
	r.notify(s, nil)

	g, err := decompose.PlanGraph(tasks, r.debugLog)
	if err != nil {
		// Unusable plan: nothing can run safely, go straight to synthesis over no results.
		s.Log(fmt.Sprintf("task plan rejected: %v", err))
		r.debugLog("[deep] session %s: invalid plan: %v", s.ID, err)
	}

	s.Status = models.DeepSessionExecuting
	r.notify(s, nil)

	if g != nil {
		r.execute(ctx, s, g)
	}

	s.Status = models.DeepSessionSynthesizing
	r.notify(s, nil)
	r.synthesize(ctx, s, g)

	end := r.now()
	s.EndTime = &end
	r.notify(s, nil)
	r.debugLog("[deep] session %s finished: status=%s completed=%d/%d", s.ID, s.Status, s.CompletedCount(), len(s.Tasks))
	return s
}

// execute makes one pass over the non-synthesis tasks in list order.
func (r *Runner) execute(ctx context.Context, s *models.DeepAgentSession, g *graph.DependencyGraph) {
	for _, task := range s.Tasks {
		if task.Type == models.TaskTypeSynthesis || task.Status != models.TaskStatusPending {
			continue
		}

		if !g.DependenciesMet(task.ID) {
			s.Log(fmt.Sprintf("skipped %s (%s): dependencies not completed: %s",
				task.ID, task.Type, strings.Join(unmet(g, task), ", ")))
			continue
		}

		task.Status = models.TaskStatusInProgress
		r.notify(s, task)

		content, err := r.call(ctx, buildTaskPrompt(s.OriginalQuery, task, s.Results))
		if err != nil {
			task.Status = models.TaskStatusFailed
			task.Error = err.Error()
			s.Log(fmt.Sprintf("%s (%s) failed: %v", task.ID, task.Type, err))
			r.debugLog("[deep] session %s: task %s failed: %v", s.ID, task.ID, err)
			r.notify(s, task)
			continue
		}

		task.Status = models.TaskStatusCompleted
		task.Result = content
		g.MarkComplete(task.ID)
		s.Results = append(s.Results, models.TaskResult{
			TaskID:      task.ID,
			Type:        task.Type,
			Description: task.Description,
			Content:     content,
		})
		s.Log(fmt.Sprintf("completed %s (%s)", task.ID, task.Type))
		r.notify(s, task)
	}
}

// synthesize produces the answer. The synthesis task is only marked when all
// of its dependencies completed; otherwise it stays pending.
func (r *Runner) synthesize(ctx context.Context, s *models.DeepAgentSession, g *graph.DependencyGraph) {
	var synth *models.DeepTask
	for _, t := range s.Tasks {
		if t.Type == models.TaskTypeSynthesis {
			synth = t
		}
	}
	mark := synth != nil && g != nil && g.DependenciesMet(synth.ID)
	if synth != nil && !mark {
		s.Log("synthesis ran over partial results")
	}

	if mark {
		synth.Status = models.TaskStatusInProgress
		r.notify(s, synth)
	}

	content, err := r.call(ctx, buildSynthesisPrompt(s.OriginalQuery, s.Results, s.ReasoningLog))
	if err != nil {
		s.Log(fmt.Sprintf("synthesis failed: %v", err))
		r.debugLog("[deep] session %s: synthesis failed, using local answer: %v", s.ID, err)
		if mark {
			synth.Status = models.TaskStatusFailed
			synth.Error = err.Error()
			r.notify(s, synth)
		}
		s.Answer = localAnswer(s)
		s.Status = models.DeepSessionFailed
		return
	}

	if mark {
		synth.Status = models.TaskStatusCompleted
		synth.Result = content
		g.MarkComplete(synth.ID)
		r.notify(s, synth)
	}
	s.Answer = content
	s.Status = models.DeepSessionCompleted
}

// errEmptyResponse is treated like a provider failure.
var errEmptyResponse = errors.New("empty response")

func (r *Runner) call(ctx context.Context, prompt string) (string, error) {
	if r.gen == nil {
		return "", llm.ErrNoProvider
	}
	resp, err := r.gen.Generate(ctx, llm.Request{
		Model: r.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: prompt},
		},
		Params: r.params,
	})
	if err != nil {
		return "", err
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", errEmptyResponse
	}
	return resp.Content, nil
}

func (r *Runner) notify(s *models.DeepAgentSession, task *models.DeepTask) {
	if r.progress == nil {
		return
	}
	p := Progress{
		SessionID: s.ID,
		Phase:     s.Status,
		Completed: s.CompletedCount(),
		Total:     len(s.Tasks),
	}
	if task != nil {
		p.TaskID = task.ID
		p.Status = task.Status
	}
	r.progress(p)
}

func unmet(g *graph.DependencyGraph, task *models.DeepTask) []string {
	var out []string
	for _, id := range g.GetDependencies(task.ID) {
		if dep := g.GetTask(id); dep == nil || dep.Status != models.TaskStatusCompleted {
			out = append(out, id)
		}
	}
	return out
}
