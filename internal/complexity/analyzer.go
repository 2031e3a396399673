// Package complexity scores how structurally complex a query is, to choose
// between a single responder and the deep decomposition path.
package complexity

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// DeepThreshold is the score at or above which a query takes the deep path.
const DeepThreshold = 0.7

// Factor weights and caps.
const (
	lengthWeight     = 0.2
	lengthThreshold  = 100
	questionsWeight  = 0.3
	complexityWeight = 0.15
	complexityCap    = 0.4
	domainWeight     = 0.1
	domainCap        = 0.3
	connectiveWeight = 0.2
)

// Keywords is the single source of truth for complexity keyword tables.
type Keywords struct {
	// Complexity keywords signal a request for structured, multi-angle work.
	Complexity []string `yaml:"complexity" mapstructure:"complexity"`
	// Domain keywords signal funding or business-strategy subject matter.
	Domain []string `yaml:"domain" mapstructure:"domain"`
	// Connectives signal a multi-step request.
	Connectives []string `yaml:"connectives" mapstructure:"connectives"`
	// Research keywords make decomposition add a research task.
	Research []string `yaml:"research" mapstructure:"research"`
	// Analysis keywords make decomposition add an analysis task.
	Analysis []string `yaml:"analysis" mapstructure:"analysis"`
}

// DefaultKeywords returns the built-in keyword tables.
var DefaultKeywords = Keywords{
	Complexity: []string{
		"analyze", "analyse", "compare", "comprehensive", "step by step", "evaluate",
		"assess", "recommend", "pros and cons", "in detail", "thorough", "research",
		"investigate", "break down",
	},
	Domain: []string{
		"investment", "due diligence", "competitive analysis", "valuation", "fintech",
		"market", "strategy", "business model", "cap table", "term sheet", "portfolio",
		"fundraising", "revenue model", "equity",
	},
	Connectives: []string{
		"and then", "after that", "additionally", "furthermore", "followed by", "next,", "finally",
	},
	Research: []string{
		"research", "investigate", "look into", "find out", "study",
	},
	Analysis: []string{
		"analyze", "analyse", "compare", "evaluate", "assess", "examine",
	},
}

// Factor is one contribution to a complexity score.
type Factor struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Detail string  `json:"detail"`
}

// Analysis is the result of scoring a query.
type Analysis struct {
	// Score is in [0, 1].
	Score   float64  `json:"score"`
	Factors []Factor `json:"factors"`

	Length            int      `json:"length"`
	QuestionCount     int      `json:"question_count"`
	ComplexityMatches []string `json:"complexity_matches,omitempty"`
	DomainMatches     []string `json:"domain_matches,omitempty"`
	ConnectiveMatches []string `json:"connective_matches,omitempty"`
	ResearchMatches   []string `json:"research_matches,omitempty"`
	AnalysisMatches   []string `json:"analysis_matches,omitempty"`
}

// Deep reports whether the query should take the deep path.
func (a Analysis) Deep() bool {
	return a.Score >= DeepThreshold
}

// MultipleQuestions reports whether the query asks more than one question.
func (a Analysis) MultipleQuestions() bool {
	return a.QuestionCount > 1
}

// Analyzer scores queries against a keyword table.
type Analyzer struct {
	keywords Keywords
}

// New creates an analyzer. Empty keyword lists fall back to DefaultKeywords.
func New(kw Keywords) *Analyzer {
	if len(kw.Complexity) == 0 {
		kw.Complexity = DefaultKeywords.Complexity
	}
	if len(kw.Domain) == 0 {
		kw.Domain = DefaultKeywords.Domain
	}
	if len(kw.Connectives) == 0 {
		kw.Connectives = DefaultKeywords.Connectives
	}
	if len(kw.Research) == 0 {
		kw.Research = DefaultKeywords.Research
	}
	if len(kw.Analysis) == 0 {
		kw.Analysis = DefaultKeywords.Analysis
	}
	return &Analyzer{keywords: kw}
}

// Analyze scores query from its literal text.
func (a *Analyzer) Analyze(query string) Analysis {
	lower := strings.ToLower(query)
	res := Analysis{
		Length:            utf8.RuneCountInString(query),
		QuestionCount:     strings.Count(query, "?"),
		ComplexityMatches: matches(lower, a.keywords.Complexity),
		DomainMatches:     matches(lower, a.keywords.Domain),
		ConnectiveMatches: matches(lower, a.keywords.Connectives),
		ResearchMatches:   matches(lower, a.keywords.Research),
		AnalysisMatches:   matches(lower, a.keywords.Analysis),
	}

	var score float64
	add := func(name string, weight float64, detail string) {
		score += weight
		res.Factors = append(res.Factors, Factor{Name: name, Weight: weight, Detail: detail})
	}

	if res.Length > lengthThreshold {
		add("length", lengthWeight, fmt.Sprintf("%d characters", res.Length))
	}
	if res.MultipleQuestions() {
		add("multiple_questions", questionsWeight, fmt.Sprintf("%d question marks", res.QuestionCount))
	}
	if n := len(res.ComplexityMatches); n > 0 {
		add("complexity_keywords", math.Min(complexityCap, complexityWeight*float64(n)),
			strings.Join(res.ComplexityMatches, ", "))
	}
	if m := len(res.DomainMatches); m > 0 {
		add("domain_keywords", math.Min(domainCap, domainWeight*float64(m)),
			strings.Join(res.DomainMatches, ", "))
	}
	if len(res.ConnectiveMatches) > 0 {
		add("multi_step", connectiveWeight, strings.Join(res.ConnectiveMatches, ", "))
	}

	// Two decimals, so 0.4+0.2+0.1 compares equal to the threshold.
	res.Score = math.Min(1.0, math.Round(score*100)/100)
	return res
}

// matches returns the keywords contained in lower, in table order.
func matches(lower string, keywords []string) []string {
	var out []string
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			out = append(out, kw)
		}
	}
	return out
}
