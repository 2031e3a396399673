// Package convstate tracks per-session conversation state across turns.
package convstate

import (
	"strings"
	"sync"
	"time"

	"github.com/ShayCichocki/concierge/pkg/models"
)

// DefaultDetailThreshold is the reply length, in characters, above which the
// session switches to detailed replies.
const DefaultDetailThreshold = 500

// Turn is the input to Update: what the user said and what was answered.
type Turn struct {
	Message string
	Reply   string
	AgentID string
}

// Tracker owns the ConversationState of every session.
// States are created lazily and never deleted.
type Tracker struct {
	mu              sync.RWMutex
	states          map[string]*models.ConversationState
	vocab           Vocabulary
	detailThreshold int
	now             func() time.Time
}

// NewTracker creates a tracker. A non-positive detailThreshold uses DefaultDetailThreshold.
func NewTracker(vocab Vocabulary, detailThreshold int) *Tracker {
	if detailThreshold <= 0 {
		detailThreshold = DefaultDetailThreshold
	}
	return &Tracker{
		states:          make(map[string]*models.ConversationState),
		vocab:           vocab,
		detailThreshold: detailThreshold,
		now:             time.Now,
	}
}

// Vocabulary returns the keyword tables used by the tracker.
func (t *Tracker) Vocabulary() Vocabulary {
	return t.vocab
}

// Snapshot returns a copy of the session's state, or nil before the first turn.
func (t *Tracker) Snapshot(sessionID string) *models.ConversationState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.states[sessionID].Clone()
}

// RepeatCount returns how many times message was already seen in the session.
func (t *Tracker) RepeatCount(sessionID, message string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st := t.states[sessionID]
	if st == nil {
		return 0
	}
	return st.RepeatedQueries[Normalize(message)]
}

// Update applies a completed turn and returns a copy of the new state.
func (t *Tracker) Update(sessionID string, turn Turn) *models.ConversationState {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.states[sessionID]
	if st == nil {
		st = models.NewConversationState(sessionID)
		t.states[sessionID] = st
	}
	now := t.now()

	if norm := Normalize(turn.Message); norm != "" {
		st.RepeatedQueries[norm]++
	}

	if t.vocab.IsGreeting(turn.Message) {
		st.LastGreetingAt = &now
	}

	topics := t.vocab.ExtractTopics(turn.Message)
	for _, topic := range topics {
		if !st.HasTopic(topic) {
			st.TopicsCovered = append(st.TopicsCovered, topic)
		}
	}
	if len(topics) > 0 {
		st.LastTopicAt = &now
	}

	st.Stage = nextStage(st, t.vocab, turn.Message)

	if len(turn.Reply) > t.detailThreshold {
		st.Style = models.StyleDetailed
	}

	st.LastAgentUsed = turn.AgentID

	return st.Clone()
}

// Len returns the number of sessions with state.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.states)
}

// nextStage applies the stage transitions. A call to action outranks domain
// keywords when both appear in the same message.
func nextStage(st *models.ConversationState, vocab Vocabulary, message string) models.Stage {
	switch {
	case vocab.IsAction(message):
		return models.StageAction
	case vocab.IsSpecialized(message):
		return models.StageSpecialized
	case len(st.TopicsCovered) > 0:
		return models.StageInformation
	default:
		return st.Stage
	}
}

// Normalize lowercases message, strips ?.!, and trims surrounding whitespace.
func Normalize(message string) string {
	s := strings.ToLower(message)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '?', '.', '!', ',':
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
