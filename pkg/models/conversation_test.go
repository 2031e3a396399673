package models

import (
	"testing"
	"time"
)

func TestStage_Valid(t *testing.T) {
	tests := []struct {
		stage Stage
		want  bool
	}{
		{StageGreeting, true},
		{StageInformation, true},
		{StageSpecialized, true},
		{StageAction, true},
		{Stage(""), false},
		{Stage("closing"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			if got := tt.stage.Valid(); got != tt.want {
				t.Errorf("Stage(%q).Valid() = %v, want %v", tt.stage, got, tt.want)
			}
		})
	}
}

func TestNewConversationState_Defaults(t *testing.T) {
	s := NewConversationState("s1")

	if s.Stage != StageGreeting {
		t.Errorf("Stage = %q, want %q", s.Stage, StageGreeting)
	}
	if s.Style != StyleBrief {
		t.Errorf("Style = %q, want %q", s.Style, StyleBrief)
	}
	if s.RepeatedQueries == nil {
		t.Error("RepeatedQueries should be initialized")
	}
	if s.LastAgentUsed != "" {
		t.Errorf("LastAgentUsed = %q, want empty", s.LastAgentUsed)
	}
}

func TestConversationState_CloneIsIndependent(t *testing.T) {
	now := time.Now()
	s := NewConversationState("s1")
	s.TopicsCovered = []string{"funding"}
	s.RepeatedQueries["hello"] = 1
	s.LastTopicAt = &now

	c := s.Clone()
	c.TopicsCovered[0] = "pitch"
	c.RepeatedQueries["hello"] = 5
	*c.LastTopicAt = now.Add(time.Hour)

	if s.TopicsCovered[0] != "funding" {
		t.Errorf("original topics mutated: %v", s.TopicsCovered)
	}
	if s.RepeatedQueries["hello"] != 1 {
		t.Errorf("original repeated count mutated: %d", s.RepeatedQueries["hello"])
	}
	if !s.LastTopicAt.Equal(now) {
		t.Error("original LastTopicAt mutated")
	}

	var nilState *ConversationState
	if nilState.Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
}

func TestSession_Active(t *testing.T) {
	now := time.Now()
	s := NewSession("s1", "u1", now.Add(-10*time.Minute))

	if s.Active(now, 5*time.Minute) {
		t.Error("session idle for 10m should be inactive with 5m threshold")
	}
	if !s.Active(now, 15*time.Minute) {
		t.Error("session idle for 10m should be active with 15m threshold")
	}
	if !s.Active(now, 0) {
		t.Error("zero threshold disables inactivity")
	}
}

func TestReply_AsMessage(t *testing.T) {
	r := Reply{
		ID:       "r1",
		Role:     RoleAssistant,
		Content:  "hi",
		AgentID:  "general",
		Metadata: ResponseMetadata{Error: "llm unavailable"},
	}

	if !r.Degraded() {
		t.Error("Degraded() = false, want true")
	}

	m := r.AsMessage()
	if m.Role != RoleAssistant || m.AgentID != "general" || m.Content != "hi" {
		t.Errorf("AsMessage() = %+v", m)
	}
	if m.Metadata == nil || m.Metadata.Error != "llm unavailable" {
		t.Errorf("AsMessage().Metadata = %+v", m.Metadata)
	}
}
