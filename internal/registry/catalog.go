package registry

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Catalog is the declarative form of a registry, as stored in catalog.yaml.
type Catalog struct {
	// DefaultResponder is used when no responder accepts a message.
	DefaultResponder string          `yaml:"default_responder"`
	Responders       []ResponderSpec `yaml:"responders"`
}

// ResponderSpec is one responder entry of a catalog file.
type ResponderSpec struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Priority    int      `yaml:"priority"`
	Specialties []string `yaml:"specialties"`
	// Handles lists keywords the message must contain for the responder to be
	// considered. An empty list accepts every message.
	Handles  []string `yaml:"handles"`
	Triggers []string `yaml:"triggers"`
	Provider string   `yaml:"provider"`
	Tools    []string `yaml:"tools"`
	Prompt   string   `yaml:"prompt"`
	Fallback string   `yaml:"fallback"`
}

// LoadCatalog reads a catalog from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a catalog from YAML bytes.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(c.Responders) == 0 {
		return nil, fmt.Errorf("parse catalog: no responders defined")
	}
	return &c, nil
}

// Marshal encodes the catalog as YAML.
func (c *Catalog) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// TriggerTable extracts the id -> trigger words mapping.
func (c *Catalog) TriggerTable() TriggerTable {
	t := make(TriggerTable, len(c.Responders))
	for _, r := range c.Responders {
		if len(r.Triggers) > 0 {
			t[r.ID] = append([]string(nil), r.Triggers...)
		}
	}
	return t
}

// Build registers every responder in catalog order and freezes the registry.
func (c *Catalog) Build() (*Registry, error) {
	reg := New(c.TriggerTable())
	for _, spec := range c.Responders {
		d := Descriptor{
			ID:           spec.ID,
			Name:         spec.Name,
			Specialties:  spec.Specialties,
			Priority:     spec.Priority,
			CanHandle:    keywordPredicate(spec.Handles),
			SystemPrompt: spec.Prompt,
			Fallback:     spec.Fallback,
			Provider:     spec.Provider,
			Tools:        spec.Tools,
		}
		if d.Name == "" {
			d.Name = spec.ID
		}
		if err := reg.Register(d); err != nil {
			return nil, fmt.Errorf("build registry: %w", err)
		}
	}
	reg.Freeze()
	return reg, nil
}

// keywordPredicate accepts a message containing any keyword, case-insensitively.
func keywordPredicate(keywords []string) func(string) bool {
	if len(keywords) == 0 {
		return nil
	}
	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			lowered = append(lowered, kw)
		}
	}
	return func(message string) bool {
		m := strings.ToLower(message)
		for _, kw := range lowered {
			if strings.Contains(m, kw) {
				return true
			}
		}
		return false
	}
}

// DefaultCatalog returns the built-in funding assistant catalog.
func DefaultCatalog() *Catalog {
	return &Catalog{
		DefaultResponder: "general",
		Responders: []ResponderSpec{
			{
				ID:          "general",
				Name:        "Concierge",
				Priority:    1,
				Specialties: []string{"general questions", "platform help", "getting started"},
				Triggers:    []string{"hello", "hi", "hey", "help", "thanks"},
				Prompt: "You are the front-desk concierge of a startup funding platform. " +
					"Answer general questions and point users to the right specialist.",
				Fallback: "I'm having trouble reaching my knowledge sources right now. " +
					"You can ask me about funding, investors, pitch decks or applications and I'll do my best to help.",
			},
			{
				ID:          "funding",
				Name:        "Funding Advisor",
				Priority:    5,
				Specialties: []string{"funding", "grants", "loans", "venture capital", "fundraising"},
				Handles:     []string{"fund", "grant", "loan", "capital", "raise", "raising", "money", "invest", "seed", "series", "runway"},
				Triggers:    []string{"raise", "runway", "round", "seed", "series a"},
				Tools:       []string{"runway_calculator", "funding_stage"},
				Prompt: "You are a funding advisor for early-stage founders. Explain funding options, " +
					"rounds and trade-offs precisely.",
				Fallback: "I can't generate a tailored funding answer at the moment. As a starting point: " +
					"pre-seed and seed rounds usually come from angels and accelerators, while Series A " +
					"investors look for repeatable revenue. Please try again shortly for specifics.",
			},
			{
				ID:          "investor",
				Name:        "Investor Matcher",
				Priority:    4,
				Specialties: []string{"investors", "angel investors", "venture capital firms", "investor matching"},
				Handles:     []string{"investor", "angel", "vc", "venture"},
				Triggers:    []string{"match", "introduce", "introduction", "angel", "vc"},
				Prompt: "You help founders identify and approach investors whose thesis fits their company.",
				Fallback: "Investor matching is temporarily unavailable. Meanwhile, list your sector, stage " +
					"and target cheque size so I can match you as soon as I'm back.",
			},
			{
				ID:          "pitch",
				Name:        "Pitch Coach",
				Priority:    4,
				Specialties: []string{"pitch deck", "pitch", "presentation", "storytelling"},
				Handles:     []string{"pitch", "deck", "present", "slides", "story"},
				Triggers:    []string{"deck", "slides", "elevator"},
				Prompt:      "You coach founders on pitch decks and investor presentations.",
				Fallback: "I can't review your pitch right now. A solid deck covers problem, solution, " +
					"market, traction, team and the ask; check yours against that list.",
			},
			{
				ID:          "application",
				Name:        "Application Assistant",
				Priority:    3,
				Specialties: []string{"application", "eligibility", "documents", "deadlines"},
				Handles:     []string{"apply", "application", "eligib", "document", "deadline", "form", "contact"},
				Triggers:    []string{"apply", "deadline", "eligible", "submit"},
				Tools:       []string{"eligibility_check"},
				Prompt:      "You guide founders through funding program applications step by step.",
				Fallback: "The application assistant is unavailable right now. Keep your incorporation " +
					"documents, financials and cap table ready and try again in a moment.",
			},
			{
				ID:          "market",
				Name:        "Market Analyst",
				Priority:    3,
				Specialties: []string{"market analysis", "competition", "market sizing", "strategy"},
				Handles:     []string{"market", "compet", "industry", "trend", "sector", "strategy"},
				Triggers:    []string{"tam", "competitors", "trends"},
				Prompt:      "You analyse markets, competitors and go-to-market strategy for startups.",
				Fallback: "Market analysis is unavailable right now. Try again shortly, or share your " +
					"sector and region so I can prepare.",
			},
		},
	}
}
