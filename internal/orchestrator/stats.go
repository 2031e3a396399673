package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/ShayCichocki/concierge/internal/llm"
	"github.com/ShayCichocki/concierge/pkg/models"
)

// responseWindow is the number of recent turns averaged for response time.
const responseWindow = 100

// Stats are computed in memory and reset when the process restarts.
type Stats struct {
	TotalSessions  int            `json:"total_sessions"`
	ActiveSessions int            `json:"active_sessions"`
	TotalMessages  int            `json:"total_messages"`
	ResponderUsage map[string]int `json:"responder_usage"`
	// AverageResponseTimeMs covers the most recent turns only.
	AverageResponseTimeMs float64 `json:"average_response_time_ms"`
	DeepTurns             int     `json:"deep_turns"`
	DegradedTurns         int     `json:"degraded_turns"`
	PromptTokens          int64   `json:"prompt_tokens"`
	CompletionTokens      int64   `json:"completion_tokens"`
	LLMCalls              int     `json:"llm_calls"`
	// ProviderUsage is keyed by the provider that served each call.
	ProviderUsage    map[string]llm.ProviderUsage `json:"provider_usage"`
	EstimatedCostUSD float64                      `json:"estimated_cost_usd"`
}

// sessionTable holds every session seen by this process.
type sessionTable struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session

	usage    map[string]int
	messages int
	deep     int
	degraded int

	times []int64
	next  int

	tokens *llm.TokenTracker
}

func newSessionTable() *sessionTable {
	return &sessionTable{
		sessions: make(map[string]*models.Session),
		usage:    make(map[string]int),
		times:    make([]int64, 0, responseWindow),
		tokens:   llm.NewTokenTracker(),
	}
}

// touch returns a copy of the session, creating it on first use.
func (t *sessionTable) touch(sessionID, userID string, now time.Time) models.Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[sessionID]
	if !ok {
		s = models.NewSession(sessionID, userID, now)
		t.sessions[sessionID] = s
	}
	if s.UserID == "" && userID != "" {
		s.UserID = userID
	}
	return *s
}

// get returns a copy of the session.
func (t *sessionTable) get(sessionID string) (models.Session, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.sessions[sessionID]
	if !ok {
		return models.Session{}, false
	}
	return *s, true
}

// record applies a finished turn and returns the updated session.
func (t *sessionTable) record(sessionID string, reply models.Reply, now time.Time) models.Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.sessions[sessionID]
	s.MessageCount++
	s.CurrentResponderID = reply.AgentID
	s.LastActivity = now

	t.messages++
	t.usage[reply.AgentID]++
	if reply.Metadata.DeepAgent {
		t.deep++
	}
	if reply.Degraded() {
		t.degraded++
	}
	if len(t.times) < responseWindow {
		t.times = append(t.times, reply.Metadata.ProcessingTimeMs)
	} else {
		t.times[t.next] = reply.Metadata.ProcessingTimeMs
		t.next = (t.next + 1) % responseWindow
	}
	return *s
}

func (t *sessionTable) stats(now time.Time, idle time.Duration) Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	in, out := t.tokens.Total()
	st := Stats{
		TotalSessions:    len(t.sessions),
		TotalMessages:    t.messages,
		ResponderUsage:   make(map[string]int, len(t.usage)),
		DeepTurns:        t.deep,
		DegradedTurns:    t.degraded,
		PromptTokens:     in,
		CompletionTokens: out,
		LLMCalls:         t.tokens.Calls(),
		ProviderUsage:    t.tokens.ByProvider(),
		EstimatedCostUSD: t.tokens.Cost(),
	}
	for id, n := range t.usage {
		st.ResponderUsage[id] = n
	}
	for _, s := range t.sessions {
		if s.Active(now, idle) {
			st.ActiveSessions++
		}
	}
	if len(t.times) > 0 {
		var sum int64
		for _, ms := range t.times {
			sum += ms
		}
		st.AverageResponseTimeMs = float64(sum) / float64(len(t.times))
	}
	return st
}

// usageCounter feeds token usage of every successful call into the table.
type usageCounter struct {
	next  llm.Generator
	table *sessionTable
}

func (u *usageCounter) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	resp, err := u.next.Generate(ctx, req)
	if err == nil && resp != nil {
		u.table.tokens.Add(resp.Provider, int64(resp.Usage.PromptTokens), int64(resp.Usage.CompletionTokens))
	}
	return resp, err
}
