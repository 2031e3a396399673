package models

import "time"

// Stage is the coarse phase of a conversation.
type Stage string

const (
	// StageGreeting is the initial stage of every session.
	StageGreeting Stage = "greeting"
	// StageInformation means the user is exploring topics in general terms.
	StageInformation Stage = "information"
	// StageSpecialized means the user raised funding or investment specifics.
	StageSpecialized Stage = "specialized"
	// StageAction means the user wants to act (apply, contact, schedule).
	StageAction Stage = "action"
)

// Valid returns true if the stage is a known value.
func (s Stage) Valid() bool {
	switch s {
	case StageGreeting, StageInformation, StageSpecialized, StageAction:
		return true
	default:
		return false
	}
}

// ResponseStyle is the verbosity a responder should aim for.
type ResponseStyle string

const (
	StyleBrief    ResponseStyle = "brief"
	StyleDetailed ResponseStyle = "detailed"
)

// Valid returns true if the style is a known value.
func (s ResponseStyle) Valid() bool {
	return s == StyleBrief || s == StyleDetailed
}

// ConversationState is the per-session state the tracker maintains across turns.
type ConversationState struct {
	SessionID string `json:"session_id"`
	// TopicsCovered is an ordered set, first mention first.
	TopicsCovered []string      `json:"topics_covered"`
	Stage         Stage         `json:"stage"`
	Style         ResponseStyle `json:"preferred_response_style"`
	// RepeatedQueries counts normalized messages seen in this session.
	RepeatedQueries map[string]int `json:"repeated_queries"`
	// LastAgentUsed is empty until the first turn completes.
	LastAgentUsed  string     `json:"last_agent_used,omitempty"`
	LastGreetingAt *time.Time `json:"last_greeting_at,omitempty"`
	LastTopicAt    *time.Time `json:"last_topic_at,omitempty"`
}

// NewConversationState returns the initial state for a session.
func NewConversationState(sessionID string) *ConversationState {
	return &ConversationState{
		SessionID:       sessionID,
		Stage:           StageGreeting,
		Style:           StyleBrief,
		RepeatedQueries: make(map[string]int),
	}
}

// HasTopic reports whether topic is already in TopicsCovered.
func (c *ConversationState) HasTopic(topic string) bool {
	for _, t := range c.TopicsCovered {
		if t == topic {
			return true
		}
	}
	return false
}

// Clone returns a deep copy that shares no mutable state with c.
func (c *ConversationState) Clone() *ConversationState {
	if c == nil {
		return nil
	}
	out := *c
	out.TopicsCovered = append([]string(nil), c.TopicsCovered...)
	out.RepeatedQueries = make(map[string]int, len(c.RepeatedQueries))
	for k, v := range c.RepeatedQueries {
		out.RepeatedQueries[k] = v
	}
	if c.LastGreetingAt != nil {
		t := *c.LastGreetingAt
		out.LastGreetingAt = &t
	}
	if c.LastTopicAt != nil {
		t := *c.LastTopicAt
		out.LastTopicAt = &t
	}
	return &out
}
