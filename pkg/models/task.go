package models

import "time"

// TaskType classifies a step of a deep-path plan.
type TaskType string

const (
	// TaskTypeResearch gathers facts relevant to the query.
	TaskTypeResearch TaskType = "research"
	// TaskTypeAnalysis evaluates or compares the subjects of the query.
	TaskTypeAnalysis TaskType = "analysis"
	// TaskTypeSynthesis combines every prior result into the final answer.
	TaskTypeSynthesis TaskType = "synthesis"
	// TaskTypeReasoning applies domain expertise to the query.
	TaskTypeReasoning TaskType = "reasoning"
	// TaskTypePlanning splits a multi-part question into its parts.
	TaskTypePlanning TaskType = "planning"
)

// Valid returns true if the type is a known value.
func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeResearch, TaskTypeAnalysis, TaskTypeSynthesis, TaskTypeReasoning, TaskTypePlanning:
		return true
	default:
		return false
	}
}

// TaskStatus represents the current state of a deep task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has not run.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress indicates the task is waiting on the language model.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusCompleted indicates the task produced a result.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task could not produce a result.
	TaskStatusFailed TaskStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// DeepTask is one node of a deep-path plan.
type DeepTask struct {
	// ID is unique within its DeepAgentSession.
	ID string `json:"id"`
	// Description tells the model what this step must produce.
	Description string `json:"description"`
	// Type selects the prompt template for this step.
	Type TaskType `json:"type"`
	// Priority orders tasks for display; lower runs earlier.
	Priority int `json:"priority"`
	// Dependencies lists task IDs that must be completed before this task runs.
	Dependencies []string `json:"dependencies,omitempty"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// Result holds the model output once the task completes.
	Result string `json:"result,omitempty"`
	// Error contains the failure reason if the task failed.
	Error string `json:"error,omitempty"`
}

// TaskResult is a completed task's output, in completion order.
type TaskResult struct {
	TaskID      string   `json:"task_id"`
	Type        TaskType `json:"type"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
}

// DeepSessionStatus represents the phase of a deep-path run.
type DeepSessionStatus string

const (
	DeepSessionPlanning     DeepSessionStatus = "planning"
	DeepSessionExecuting    DeepSessionStatus = "executing"
	DeepSessionSynthesizing DeepSessionStatus = "synthesizing"
	DeepSessionCompleted    DeepSessionStatus = "completed"
	DeepSessionFailed       DeepSessionStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s DeepSessionStatus) Valid() bool {
	switch s {
	case DeepSessionPlanning, DeepSessionExecuting, DeepSessionSynthesizing,
		DeepSessionCompleted, DeepSessionFailed:
		return true
	default:
		return false
	}
}

// DeepAgentSession tracks a single deep-path run. It lives for one turn only.
type DeepAgentSession struct {
	ID            string            `json:"id"`
	OriginalQuery string            `json:"original_query"`
	Tasks         []*DeepTask       `json:"tasks"`
	Status        DeepSessionStatus `json:"status"`
	StartTime     time.Time         `json:"start_time"`
	EndTime       *time.Time        `json:"end_time,omitempty"`
	Results       []TaskResult      `json:"results"`
	ReasoningLog  []string          `json:"reasoning_log"`
	// Answer is the user-facing text produced by synthesis or its fallback.
	Answer string `json:"answer"`
}

// Log appends a note to the reasoning log.
func (s *DeepAgentSession) Log(note string) {
	s.ReasoningLog = append(s.ReasoningLog, note)
}

// Task returns the task with the given ID, or nil.
func (s *DeepAgentSession) Task(id string) *DeepTask {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// CompletedCount returns how many tasks reached TaskStatusCompleted.
func (s *DeepAgentSession) CompletedCount() int {
	n := 0
	for _, t := range s.Tasks {
		if t.Status == TaskStatusCompleted {
			n++
		}
	}
	return n
}
