package models

import "time"

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid returns true if the role is a known value.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one entry of a session's append-only log.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	// AgentID is the responder that produced an assistant message.
	AgentID  string           `json:"agent_id,omitempty"`
	Metadata *ResponseMetadata `json:"metadata,omitempty"`
}

// ResponseMetadata describes how a reply was produced.
type ResponseMetadata struct {
	// Confidence is set for replies chosen by scoring or deep-path completion.
	Confidence       *float64 `json:"confidence,omitempty"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
	ToolsUsed        []string `json:"tools_used,omitempty"`
	DeepAgent        bool     `json:"deep_agent,omitempty"`
	TasksCompleted   int      `json:"tasks_completed,omitempty"`
	TotalTasks       int      `json:"total_tasks,omitempty"`
	IsRepeatedQuery  bool     `json:"is_repeated_query,omitempty"`
	Stage            Stage    `json:"stage,omitempty"`
	Complexity       float64  `json:"complexity"`
	Provider         string   `json:"provider,omitempty"`
	// Error marks a degraded reply; the content is still usable.
	Error string `json:"error,omitempty"`
}

// Reply is the result of processing one turn.
type Reply struct {
	ID        string           `json:"id"`
	Role      Role             `json:"role"`
	Content   string           `json:"content"`
	AgentID   string           `json:"agent_id"`
	Timestamp time.Time        `json:"timestamp"`
	Metadata  ResponseMetadata `json:"metadata"`
}

// Degraded reports whether the reply was produced by a fallback path.
func (r Reply) Degraded() bool {
	return r.Metadata.Error != ""
}

// AsMessage converts the reply into a history entry.
func (r Reply) AsMessage() Message {
	md := r.Metadata
	return Message{
		ID:        r.ID,
		Role:      RoleAssistant,
		Content:   r.Content,
		Timestamp: r.Timestamp,
		AgentID:   r.AgentID,
		Metadata:  &md,
	}
}
