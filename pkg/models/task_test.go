package models

import "testing"

func TestTaskType_Valid(t *testing.T) {
	tests := []struct {
		name string
		tt   TaskType
		want bool
	}{
		{"research is valid", TaskTypeResearch, true},
		{"analysis is valid", TaskTypeAnalysis, true},
		{"synthesis is valid", TaskTypeSynthesis, true},
		{"reasoning is valid", TaskTypeReasoning, true},
		{"planning is valid", TaskTypePlanning, true},
		{"empty string is invalid", TaskType(""), false},
		{"unknown type is invalid", TaskType("summary"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tt.Valid(); got != tt.want {
				t.Errorf("TaskType(%q).Valid() = %v, want %v", tt.tt, got, tt.want)
			}
		})
	}
}

func TestTaskStatus_Valid(t *testing.T) {
	tests := []struct {
		name   string
		status TaskStatus
		want   bool
	}{
		{"pending is valid", TaskStatusPending, true},
		{"in_progress is valid", TaskStatusInProgress, true},
		{"completed is valid", TaskStatusCompleted, true},
		{"failed is valid", TaskStatusFailed, true},
		{"empty string is invalid", TaskStatus(""), false},
		{"done is invalid", TaskStatus("done"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Valid(); got != tt.want {
				t.Errorf("TaskStatus(%q).Valid() = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestDeepSessionStatus_Valid(t *testing.T) {
	for _, s := range []DeepSessionStatus{
		DeepSessionPlanning, DeepSessionExecuting, DeepSessionSynthesizing,
		DeepSessionCompleted, DeepSessionFailed,
	} {
		if !s.Valid() {
			t.Errorf("DeepSessionStatus(%q).Valid() = false, want true", s)
		}
	}
	if DeepSessionStatus("paused").Valid() {
		t.Error("DeepSessionStatus(\"paused\").Valid() = true, want false")
	}
}

func TestDeepAgentSession_Helpers(t *testing.T) {
	s := &DeepAgentSession{
		Tasks: []*DeepTask{
			{ID: "a", Status: TaskStatusCompleted},
			{ID: "b", Status: TaskStatusFailed},
			{ID: "c", Status: TaskStatusCompleted},
		},
	}

	if got := s.CompletedCount(); got != 2 {
		t.Errorf("CompletedCount() = %d, want 2", got)
	}
	if s.Task("b") == nil {
		t.Error("Task(\"b\") = nil, want task")
	}
	if s.Task("missing") != nil {
		t.Error("Task(\"missing\") should be nil")
	}

	s.Log("first")
	s.Log("second")
	if len(s.ReasoningLog) != 2 || s.ReasoningLog[1] != "second" {
		t.Errorf("ReasoningLog = %v, want [first second]", s.ReasoningLog)
	}
}
