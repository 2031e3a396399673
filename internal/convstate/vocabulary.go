package convstate

import (
	"strings"
	"unicode"
)

// Topic is a named group of keywords.
type Topic struct {
	Name     string   `yaml:"name" mapstructure:"name"`
	Keywords []string `yaml:"keywords" mapstructure:"keywords"`
}

// Vocabulary holds the keyword tables that drive stage transitions and topic tracking.
type Vocabulary struct {
	// Topics are checked in order; TopicsCovered keeps first-mention order.
	Topics []Topic `yaml:"topics" mapstructure:"topics"`
	// Specialized keywords move the conversation into the specialized stage.
	Specialized []string `yaml:"specialized" mapstructure:"specialized"`
	// Action keywords move the conversation into the action stage.
	Action    []string `yaml:"action" mapstructure:"action"`
	Greetings []string `yaml:"greetings" mapstructure:"greetings"`
}

// Merge returns v with every non-empty table of o replacing v's.
func (v Vocabulary) Merge(o Vocabulary) Vocabulary {
	if len(o.Topics) > 0 {
		v.Topics = o.Topics
	}
	if len(o.Specialized) > 0 {
		v.Specialized = o.Specialized
	}
	if len(o.Action) > 0 {
		v.Action = o.Action
	}
	if len(o.Greetings) > 0 {
		v.Greetings = o.Greetings
	}
	return v
}

// DefaultVocabulary is the funding assistant vocabulary.
var DefaultVocabulary = Vocabulary{
	Topics: []Topic{
		{Name: "funding", Keywords: []string{"funding", "fund", "funds", "raise", "fundraising", "capital", "seed", "series a", "round"}},
		{Name: "investors", Keywords: []string{"investor", "investors", "angel", "angels", "vc", "venture"}},
		{Name: "pitch", Keywords: []string{"pitch", "deck", "slides", "presentation"}},
		{Name: "application", Keywords: []string{"application", "apply", "eligibility", "eligible", "deadline"}},
		{Name: "market", Keywords: []string{"market", "competitor", "competitors", "competition", "industry", "strategy"}},
		{Name: "grants", Keywords: []string{"grant", "grants", "non dilutive"}},
		{Name: "team", Keywords: []string{"cofounder", "co founder", "hiring", "team"}},
	},
	Specialized: []string{
		"funding", "fund", "funds", "fundraising", "raise", "investment", "invest", "investor", "investors",
		"capital", "grant", "grants", "loan", "loans", "equity", "valuation", "seed", "series a",
	},
	Action: []string{
		"apply", "contact", "sign up", "schedule", "book a call", "submit", "get started",
	},
	Greetings: []string{
		"hello", "hi", "hey", "greetings", "good morning", "good afternoon", "good evening",
	},
}

// ExtractTopics returns the names of topics mentioned in message, in vocabulary order.
func (v Vocabulary) ExtractTopics(message string) []string {
	words := Tokenize(message)
	var topics []string
	for _, t := range v.Topics {
		if matchAny(words, t.Keywords) {
			topics = append(topics, t.Name)
		}
	}
	return topics
}

// IsSpecialized reports whether message contains a funding/investment keyword.
func (v Vocabulary) IsSpecialized(message string) bool {
	return matchAny(Tokenize(message), v.Specialized)
}

// IsAction reports whether message contains a call-to-action keyword.
func (v Vocabulary) IsAction(message string) bool {
	return matchAny(Tokenize(message), v.Action)
}

// IsGreeting reports whether message contains a greeting.
func (v Vocabulary) IsGreeting(message string) bool {
	return matchAny(Tokenize(message), v.Greetings)
}

// matchAny reports whether any keyword phrase occurs as whole words.
func matchAny(words []string, keywords []string) bool {
	for _, kw := range keywords {
		if ContainsPhrase(words, Tokenize(kw)) {
			return true
		}
	}
	return false
}

// Tokenize lowercases s and splits it into letter/digit runs.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// ContainsPhrase reports whether phrase occurs in words as a contiguous run.
func ContainsPhrase(words, phrase []string) bool {
	if len(phrase) == 0 {
		return false
	}
outer:
	for i := 0; i+len(phrase) <= len(words); i++ {
		for j, p := range phrase {
			if words[i+j] != p {
				continue outer
			}
		}
		return true
	}
	return false
}
