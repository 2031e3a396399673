package complexity

import (
	"strings"
	"testing"
)

func TestAnalyze_Scores(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		want     float64
		wantDeep bool
	}{
		{"no factors", "hello", 0, false},
		{"empty query", "", 0, false},
		{"long query only", strings.Repeat("a", 101), 0.2, false},
		{"exactly 100 chars is not long", strings.Repeat("a", 100), 0, false},
		{"two questions and domain", "What is a term sheet? And how does valuation work?", 0.5, false},
		{"complexity keywords capped", "analyze, compare, evaluate and assess", 0.4, false},
		{"domain keywords capped", "investment valuation fintech market strategy", 0.3, false},
		{"threshold reached exactly", "analyze, compare and assess the market and then decide", 0.7, true},
		{
			"scenario from product brief",
			"Can you analyze the fintech market and compare it to AI, and then recommend a strategy?",
			0.9, true,
		},
		{
			"clamped to one",
			"Can you do a comprehensive, step by step analysis? Analyze and compare our valuation, " +
				"equity and fintech market strategy, and then assess due diligence? Additionally evaluate it.",
			1.0, true,
		},
	}

	a := New(Keywords{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Analyze(tt.query)
			if got.Score != tt.want {
				t.Errorf("Analyze(%q).Score = %v, want %v (factors %+v)", tt.query, got.Score, tt.want, got.Factors)
			}
			if got.Deep() != tt.wantDeep {
				t.Errorf("Analyze(%q).Deep() = %v, want %v", tt.query, got.Deep(), tt.wantDeep)
			}
			if got.Score < 0 || got.Score > 1 {
				t.Errorf("Analyze(%q).Score = %v, out of [0,1]", tt.query, got.Score)
			}
		})
	}
}

func TestAnalyze_ScenarioFactors(t *testing.T) {
	q := "Can you analyze the fintech market and compare it to AI, and then recommend a strategy?"
	got := New(Keywords{}).Analyze(q)

	if got.QuestionCount != 1 {
		t.Errorf("QuestionCount = %d, want 1", got.QuestionCount)
	}
	if strings.Join(got.ComplexityMatches, ",") != "analyze,compare,recommend" {
		t.Errorf("ComplexityMatches = %v", got.ComplexityMatches)
	}
	if strings.Join(got.DomainMatches, ",") != "fintech,market,strategy" {
		t.Errorf("DomainMatches = %v", got.DomainMatches)
	}
	if strings.Join(got.AnalysisMatches, ",") != "analyze,compare" {
		t.Errorf("AnalysisMatches = %v", got.AnalysisMatches)
	}
	if len(got.ResearchMatches) != 0 {
		t.Errorf("ResearchMatches = %v, want none", got.ResearchMatches)
	}

	names := make([]string, len(got.Factors))
	for i, f := range got.Factors {
		names[i] = f.Name
	}
	if strings.Join(names, ",") != "complexity_keywords,domain_keywords,multi_step" {
		t.Errorf("factor names = %v", names)
	}
}

func TestAnalyze_NoFactorsNoList(t *testing.T) {
	got := New(Keywords{}).Analyze("thanks")
	if len(got.Factors) != 0 {
		t.Errorf("Factors = %+v, want none", got.Factors)
	}
}

func TestAnalyze_MultipleQuestions(t *testing.T) {
	a := New(Keywords{})
	if a.Analyze("Why?").MultipleQuestions() {
		t.Error("one question mark should not count as multiple questions")
	}
	if !a.Analyze("Why? How?").MultipleQuestions() {
		t.Error("two question marks should count as multiple questions")
	}
}

func TestNew_CustomKeywords(t *testing.T) {
	a := New(Keywords{Domain: []string{"biotech"}})

	got := a.Analyze("biotech and fintech")
	if strings.Join(got.DomainMatches, ",") != "biotech" {
		t.Errorf("DomainMatches = %v, want [biotech]", got.DomainMatches)
	}
	// Unset tables fall back to defaults.
	if len(a.Analyze("please analyze").ComplexityMatches) != 1 {
		t.Error("default complexity keywords should apply when none are configured")
	}
}
