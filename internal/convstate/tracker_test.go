package convstate

import (
	"strings"
	"testing"

	"github.com/ShayCichocki/concierge/pkg/models"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello", "hello"},
		{"  How do I apply?  ", "how do i apply"},
		{"Wait, what?!", "wait what"},
		{"hi ?", "hi"},
		{"...", ""},
		{"", ""},
		{"Series A.", "series a"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Hello", " HELLO?! ", "a ? b . c", "?hi?", "\tTabs, and NEWLINES!\n",
		"Ünïcödé Question?", "   ", "already normalized",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize(Normalize(%q)) = %q, want %q", in, twice, once)
		}
	}
}

func TestTracker_SnapshotBeforeFirstTurn(t *testing.T) {
	tr := NewTracker(DefaultVocabulary, 0)
	if s := tr.Snapshot("s1"); s != nil {
		t.Errorf("Snapshot before first turn = %+v, want nil", s)
	}
	if n := tr.RepeatCount("s1", "hello"); n != 0 {
		t.Errorf("RepeatCount before first turn = %d, want 0", n)
	}
}

func TestTracker_GreetingTurn(t *testing.T) {
	tr := NewTracker(DefaultVocabulary, 0)

	st := tr.Update("s1", Turn{Message: "Hello", Reply: "Hi there!", AgentID: "general"})

	if st.Stage != models.StageGreeting {
		t.Errorf("Stage = %q, want %q", st.Stage, models.StageGreeting)
	}
	if st.LastAgentUsed != "general" {
		t.Errorf("LastAgentUsed = %q, want %q", st.LastAgentUsed, "general")
	}
	if st.LastGreetingAt == nil {
		t.Error("LastGreetingAt should be set after a greeting")
	}
	if len(st.TopicsCovered) != 0 {
		t.Errorf("TopicsCovered = %v, want none", st.TopicsCovered)
	}
}

func TestTracker_StageTransitions(t *testing.T) {
	tests := []struct {
		name    string
		turns   []string
		want    models.Stage
		wantTop []string
	}{
		{"greeting stays without topics", []string{"hello", "thanks"}, models.StageGreeting, nil},
		{"domain keyword moves to specialized", []string{"hello", "how do I raise funding"}, models.StageSpecialized, []string{"funding"}},
		{"action keyword moves to action", []string{"I want to apply now"}, models.StageAction, []string{"application"}},
		{"action wins over domain", []string{"contact an investor about funding"}, models.StageAction, []string{"funding", "investors"}},
		{"topic without domain keyword is information", []string{"tips for my pitch deck"}, models.StageInformation, []string{"pitch"}},
		{"back to information after specialized", []string{"seed funding", "what about my deck"}, models.StageInformation, []string{"funding", "pitch"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker(DefaultVocabulary, 0)
			var st *models.ConversationState
			for _, m := range tt.turns {
				st = tr.Update("s", Turn{Message: m, AgentID: "general"})
			}
			if st.Stage != tt.want {
				t.Errorf("Stage = %q, want %q", st.Stage, tt.want)
			}
			if strings.Join(st.TopicsCovered, ",") != strings.Join(tt.wantTop, ",") {
				t.Errorf("TopicsCovered = %v, want %v", st.TopicsCovered, tt.wantTop)
			}
		})
	}
}

func TestTracker_StyleRatchet(t *testing.T) {
	tr := NewTracker(DefaultVocabulary, 20)

	st := tr.Update("s", Turn{Message: "hi", Reply: "short", AgentID: "general"})
	if st.Style != models.StyleBrief {
		t.Fatalf("Style = %q, want brief", st.Style)
	}

	st = tr.Update("s", Turn{Message: "more", Reply: strings.Repeat("x", 21), AgentID: "general"})
	if st.Style != models.StyleDetailed {
		t.Fatalf("Style = %q, want detailed after long reply", st.Style)
	}

	st = tr.Update("s", Turn{Message: "ok", Reply: "k", AgentID: "general"})
	if st.Style != models.StyleDetailed {
		t.Errorf("Style = %q, style must not return to brief", st.Style)
	}
}

func TestTracker_RepeatedQueries(t *testing.T) {
	tr := NewTracker(DefaultVocabulary, 0)

	if n := tr.RepeatCount("s", "How do I apply?"); n != 0 {
		t.Fatalf("RepeatCount before first = %d, want 0", n)
	}
	tr.Update("s", Turn{Message: "How do I apply?", AgentID: "application"})

	if n := tr.RepeatCount("s", "how do i apply"); n != 1 {
		t.Fatalf("RepeatCount after first = %d, want 1", n)
	}
	st := tr.Update("s", Turn{Message: "  HOW do I apply!", AgentID: "application"})

	if got := st.RepeatedQueries["how do i apply"]; got != 2 {
		t.Errorf("RepeatedQueries[normalized] = %d, want 2", got)
	}
	if n := tr.RepeatCount("other", "how do i apply"); n != 0 {
		t.Errorf("RepeatCount leaked across sessions: %d", n)
	}
}

func TestTracker_LastAgentAlwaysUpdated(t *testing.T) {
	tr := NewTracker(DefaultVocabulary, 0)
	tr.Update("s", Turn{Message: "hello", AgentID: "general"})
	st := tr.Update("s", Turn{Message: "hello", AgentID: "funding"})
	if st.LastAgentUsed != "funding" {
		t.Errorf("LastAgentUsed = %q, want funding", st.LastAgentUsed)
	}
	st = tr.Update("s", Turn{Message: "hello", AgentID: ""})
	if st.LastAgentUsed != "" {
		t.Errorf("LastAgentUsed = %q, want empty", st.LastAgentUsed)
	}
}

func TestTracker_SnapshotIsCopy(t *testing.T) {
	tr := NewTracker(DefaultVocabulary, 0)
	tr.Update("s", Turn{Message: "pitch deck", AgentID: "pitch"})

	snap := tr.Snapshot("s")
	snap.TopicsCovered = append(snap.TopicsCovered, "tampered")
	snap.RepeatedQueries["pitch deck"] = 99

	again := tr.Snapshot("s")
	if again.HasTopic("tampered") {
		t.Error("Snapshot mutation leaked into tracker")
	}
	if again.RepeatedQueries["pitch deck"] != 1 {
		t.Errorf("RepeatedQueries = %d, want 1", again.RepeatedQueries["pitch deck"])
	}
	if tr.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tr.Len())
	}
}

func TestVocabulary_ExtractTopics(t *testing.T) {
	tests := []struct {
		msg  string
		want string
	}{
		{"hello", ""},
		{"Is a Series A round right for us?", "funding"},
		{"We need non-dilutive grants", "grants"},
		{"angel investors and a pitch deck", "investors,pitch"},
		{"this is hi-tech", ""},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			got := strings.Join(DefaultVocabulary.ExtractTopics(tt.msg), ",")
			if got != tt.want {
				t.Errorf("ExtractTopics(%q) = %q, want %q", tt.msg, got, tt.want)
			}
		})
	}
}

func TestVocabulary_GreetingIsWholeWord(t *testing.T) {
	if DefaultVocabulary.IsGreeting("this thing") {
		t.Error("IsGreeting(\"this thing\") = true, want false")
	}
	if !DefaultVocabulary.IsGreeting("Hi!") {
		t.Error("IsGreeting(\"Hi!\") = false, want true")
	}
	if !DefaultVocabulary.IsGreeting("good morning team") {
		t.Error("IsGreeting(\"good morning team\") = false, want true")
	}
}

func TestTokenize(t *testing.T) {
	got := strings.Join(Tokenize("Series-A round, 2024!"), " ")
	if got != "series a round 2024" {
		t.Errorf("Tokenize() = %q, want %q", got, "series a round 2024")
	}
	if words := Tokenize("  ?!  "); len(words) != 0 {
		t.Errorf("Tokenize(punctuation) = %v, want none", words)
	}
}

func TestContainsPhrase(t *testing.T) {
	words := Tokenize("we closed a series a last year")
	tests := []struct {
		phrase []string
		want   bool
	}{
		{Tokenize("series a"), true},
		{Tokenize("last year"), true},
		{Tokenize("series b"), false},
		{Tokenize("year after"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := ContainsPhrase(words, tt.phrase); got != tt.want {
			t.Errorf("ContainsPhrase(%v) = %v, want %v", tt.phrase, got, tt.want)
		}
	}
}

func TestVocabulary_Merge(t *testing.T) {
	override := Vocabulary{
		Topics: []Topic{{Name: "grants", Keywords: []string{"grant"}}},
		Action: []string{"apply now"},
	}

	merged := DefaultVocabulary.Merge(override)

	if len(merged.Topics) != 1 || merged.Topics[0].Name != "grants" {
		t.Errorf("Topics = %+v, want override", merged.Topics)
	}
	if len(merged.Action) != 1 || merged.Action[0] != "apply now" {
		t.Errorf("Action = %v, want override", merged.Action)
	}
	if len(merged.Greetings) != len(DefaultVocabulary.Greetings) {
		t.Errorf("Greetings = %v, want defaults kept", merged.Greetings)
	}
	if len(merged.Specialized) != len(DefaultVocabulary.Specialized) {
		t.Errorf("Specialized = %v, want defaults kept", merged.Specialized)
	}
	if got := merged.ExtractTopics("is there a grant for us"); len(got) != 1 || got[0] != "grants" {
		t.Errorf("ExtractTopics() = %v, want [grants]", got)
	}
	if len(DefaultVocabulary.Topics) <= 1 {
		t.Error("Merge must not modify the receiver")
	}
}
