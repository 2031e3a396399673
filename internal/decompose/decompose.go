// Package decompose turns a complex query into an ordered, dependency-linked task plan.
package decompose

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/concierge/internal/complexity"
	"github.com/ShayCichocki/concierge/pkg/models"
)

// Task descriptions used by the rule set.
const (
	breakdownDescription = "Break down the multi-part question into its individual parts"
	domainDescription    = "Apply funding and business domain expertise"
	generalDescription   = "Reason through the request and identify the key points to address"
	synthesisDescription = "Synthesize the findings into a single, well-structured answer"
)

// Option configures a Decomposer.
type Option func(*Decomposer)

// WithIDFunc overrides how task ids are generated. The function receives the
// 1-based position of the task in the plan.
func WithIDFunc(fn func(n int) string) Option {
	return func(d *Decomposer) {
		if fn != nil {
			d.newID = fn
		}
	}
}

// WithDebugLog sets the debug logging function.
func WithDebugLog(fn func(format string, args ...interface{})) Option {
	return func(d *Decomposer) {
		if fn != nil {
			d.debugLog = fn
		}
	}
}

// Decomposer breaks complex queries into deep-path tasks.
type Decomposer struct {
	newID    func(n int) string
	debugLog func(format string, args ...interface{})
}

// New creates a Decomposer.
func New(opts ...Option) *Decomposer {
	d := &Decomposer{
		newID:    func(n int) string { return fmt.Sprintf("task-%d", n) },
		debugLog: func(format string, args ...interface{}) {},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decompose builds a plan from the factors found in the analysis of query.
// The returned list is topologically sorted and always ends with exactly one
// synthesis task that depends on every other task.
func (d *Decomposer) Decompose(query string, analysis complexity.Analysis) []*models.DeepTask {
	var tasks []*models.DeepTask
	add := func(typ models.TaskType, desc string, deps ...string) *models.DeepTask {
		t := &models.DeepTask{
			ID:           d.newID(len(tasks) + 1),
			Description:  desc,
			Type:         typ,
			Priority:     len(tasks) + 1,
			Dependencies: deps,
			Status:       models.TaskStatusPending,
		}
		tasks = append(tasks, t)
		return t
	}
	last := func() []string {
		if len(tasks) == 0 {
			return nil
		}
		return []string{tasks[len(tasks)-1].ID}
	}

	var first *models.DeepTask
	if analysis.MultipleQuestions() {
		first = add(models.TaskTypePlanning, breakdownDescription)
	}

	switch {
	case len(analysis.ResearchMatches) > 0:
		var deps []string
		if first != nil {
			deps = []string{first.ID}
		}
		add(models.TaskTypeResearch, withTerms("Research the facts needed to answer the request", analysis.ResearchMatches), deps...)
	case len(analysis.AnalysisMatches) > 0:
		var deps []string
		if first != nil {
			deps = []string{first.ID}
		}
		add(models.TaskTypeAnalysis, withTerms("Analyze and compare the subjects of the request", analysis.AnalysisMatches), deps...)
	}

	if len(analysis.DomainMatches) > 0 {
		add(models.TaskTypeReasoning, withTerms(domainDescription, analysis.DomainMatches), last()...)
	}

	if len(tasks) == 0 {
		add(models.TaskTypeReasoning, generalDescription)
	}

	prior := make([]string, len(tasks))
	for i, t := range tasks {
		prior[i] = t.ID
	}
	add(models.TaskTypeSynthesis, synthesisDescription, prior...)

	d.debugLog("[decompose] query %q -> %d tasks", truncate(query, 60), len(tasks))
	return tasks
}

func withTerms(desc string, terms []string) string {
	return fmt.Sprintf("%s (%s)", desc, strings.Join(terms, ", "))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
