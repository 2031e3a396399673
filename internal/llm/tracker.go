package llm

import "sync"

// TokenTracker tracks token usage across API calls.
type TokenTracker struct {
	mu        sync.Mutex
	inputTok  int64
	outputTok int64
	calls     int
	byName    map[string]*ProviderUsage
}

// ProviderUsage is the usage recorded for one provider.
type ProviderUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	Calls        int   `json:"calls"`
}

// NewTokenTracker creates a new token tracker.
func NewTokenTracker() *TokenTracker {
	return &TokenTracker{byName: make(map[string]*ProviderUsage)}
}

// Add records token usage from an API call.
func (t *TokenTracker) Add(provider string, input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputTok += input
	t.outputTok += output
	t.calls++

	u, ok := t.byName[provider]
	if !ok {
		u = &ProviderUsage{}
		t.byName[provider] = u
	}
	u.InputTokens += input
	u.OutputTokens += output
	u.Calls++
}

// Total returns the total input and output tokens tracked.
func (t *TokenTracker) Total() (input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inputTok, t.outputTok
}

// Calls returns the number of API calls made.
func (t *TokenTracker) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// ByProvider returns a copy of per-provider usage.
func (t *TokenTracker) ByProvider() map[string]ProviderUsage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]ProviderUsage, len(t.byName))
	for name, u := range t.byName {
		out[name] = *u
	}
	return out
}

// Cost estimates the cost in USD.
// This uses approximate mid-tier pricing and should be updated as pricing changes.
func (t *TokenTracker) Cost() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	// $3/1M input, $15/1M output
	inputCost := float64(t.inputTok) / 1_000_000 * 3.0
	outputCost := float64(t.outputTok) / 1_000_000 * 15.0
	return inputCost + outputCost
}
