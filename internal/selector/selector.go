// Package selector picks the responder that should answer a message.
//
// Selection is a pure function of the message, the session's conversation
// state and the registry: no randomness, no side effects. Scores are integers
// so ties are exact, and ties go to the responder registered first.
package selector

import (
	"strings"

	"github.com/ShayCichocki/concierge/internal/convstate"
	"github.com/ShayCichocki/concierge/internal/registry"
	"github.com/ShayCichocki/concierge/pkg/models"
)

// Score weights.
const (
	SpecialtyWeight = 10
	ContinuityBonus = 15
	MentionBonus    = 25
	TriggerWeight   = 20
)

// fallbackConfidence is reported when no responder accepted the message.
const fallbackConfidence = 0.3

// Breakdown itemizes how a candidate's score was reached.
type Breakdown struct {
	Priority           int      `json:"priority"`
	Specialty          int      `json:"specialty"`
	Continuity         int      `json:"continuity"`
	Mention            int      `json:"mention"`
	Trigger            int      `json:"trigger"`
	MatchedSpecialties []string `json:"matched_specialties,omitempty"`
	MatchedTriggers    []string `json:"matched_triggers,omitempty"`
}

// Total returns the candidate's score.
func (b Breakdown) Total() int {
	return b.Priority + b.Specialty + b.Continuity + b.Mention + b.Trigger
}

// Candidate is a responder whose CanHandle accepted the message.
type Candidate struct {
	ID string `json:"id"`
	// Order is the registration index, used for tie-breaks.
	Order     int       `json:"order"`
	Score     int       `json:"score"`
	Breakdown Breakdown `json:"breakdown"`
}

// Selection is the outcome of scoring a message.
type Selection struct {
	ResponderID string `json:"responder_id"`
	// Fallback is true when no responder accepted the message.
	Fallback   bool        `json:"fallback"`
	Confidence float64     `json:"confidence"`
	Candidates []Candidate `json:"candidates"`
}

// Selector scores registry descriptors against messages.
type Selector struct {
	reg       *registry.Registry
	defaultID string
}

// New creates a selector. defaultID is used when no descriptor accepts a message.
func New(reg *registry.Registry, defaultID string) *Selector {
	return &Selector{reg: reg, defaultID: defaultID}
}

// Select returns the id of the responder for message. state may be nil.
// It returns an empty id only when the registry is empty.
func (s *Selector) Select(message string, state *models.ConversationState) string {
	return s.Explain(message, state).ResponderID
}

// Explain scores every accepting responder and reports the winner.
func (s *Selector) Explain(message string, state *models.ConversationState) Selection {
	all := s.reg.All()
	if len(all) == 0 {
		return Selection{Fallback: true}
	}

	lastAgent := ""
	if state != nil {
		lastAgent = state.LastAgentUsed
	}

	lower := strings.ToLower(message)
	words := convstate.Tokenize(message)

	var candidates []Candidate
	for i, d := range all {
		if !d.Handles(message) {
			continue
		}
		b := score(d, s.reg.Triggers(d.ID), lower, words, lastAgent)
		candidates = append(candidates, Candidate{ID: d.ID, Order: i, Score: b.Total(), Breakdown: b})
	}

	if len(candidates) == 0 {
		id := s.defaultID
		if !s.reg.Has(id) {
			id = all[0].ID
		}
		return Selection{ResponderID: id, Fallback: true, Confidence: fallbackConfidence}
	}

	best := 0
	for i := 1; i < len(candidates); i++ {
		// Strict comparison keeps the earliest-registered candidate on ties.
		if candidates[i].Score > candidates[best].Score {
			best = i
		}
	}

	return Selection{
		ResponderID: candidates[best].ID,
		Confidence:  confidence(candidates, best),
		Candidates:  candidates,
	}
}

func score(d registry.Descriptor, triggers []string, lower string, words []string, lastAgent string) Breakdown {
	b := Breakdown{Priority: d.Priority}

	for _, spec := range d.Specialties {
		if specialtyMatches(spec, words) {
			b.Specialty += SpecialtyWeight
			b.MatchedSpecialties = append(b.MatchedSpecialties, spec)
		}
	}

	if lastAgent != "" && d.ID == lastAgent {
		b.Continuity = ContinuityBonus
	}

	if mentions(lower, d) {
		b.Mention = MentionBonus
	}

	for _, trig := range triggers {
		if convstate.ContainsPhrase(words, convstate.Tokenize(trig)) {
			b.Trigger += TriggerWeight
			b.MatchedTriggers = append(b.MatchedTriggers, trig)
		}
	}

	return b
}

// specialtyMatches reports whether any message word shares a token with the
// specialty: an exact token match, or a word longer than three characters
// that occurs inside the specialty.
func specialtyMatches(specialty string, words []string) bool {
	lowerSpec := strings.ToLower(specialty)
	specTokens := convstate.Tokenize(specialty)
	for _, w := range words {
		for _, st := range specTokens {
			if w == st {
				return true
			}
		}
		if len(w) > 3 && strings.Contains(lowerSpec, w) {
			return true
		}
	}
	return false
}

func mentions(lower string, d registry.Descriptor) bool {
	if name := strings.ToLower(strings.TrimSpace(d.Name)); name != "" && strings.Contains(lower, name) {
		return true
	}
	for _, spec := range d.Specialties {
		if spec = strings.ToLower(strings.TrimSpace(spec)); spec != "" && strings.Contains(lower, spec) {
			return true
		}
	}
	return false
}

func confidence(candidates []Candidate, best int) float64 {
	top := candidates[best].Score
	if len(candidates) == 1 {
		return 1.0
	}
	if top <= 0 {
		return 0.5
	}
	runnerUp := 0
	for i, c := range candidates {
		if i != best && c.Score > runnerUp {
			runnerUp = c.Score
		}
	}
	return float64(top) / float64(top+runnerUp)
}
