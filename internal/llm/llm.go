// Package llm is the language-model boundary: a provider-neutral request and
// response shape, concrete providers, and a router that falls through providers
// in a configured order.
package llm

import (
	"context"
	"errors"
)

// ErrNoProvider is returned when no provider could serve a request.
var ErrNoProvider = errors.New("no language model provider available")

// ErrEmptyResponse is returned when a provider reports success without a response.
var ErrEmptyResponse = errors.New("provider returned no response")

// Role is the author of a prompt message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a prompt.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Params are generation parameters. Zero values mean provider defaults.
type Params struct {
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
	// PreferredProvider is a hint; the router tries it first when registered.
	PreferredProvider string `json:"preferred_provider,omitempty"`
}

// Request is a single generation call.
type Request struct {
	// Model is provider specific. Empty uses the provider's default model.
	Model    string    `json:"model,omitempty"`
	Messages []Message `json:"messages"`
	Params   Params    `json:"params"`
}

// FinishReason says why generation stopped.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishContentFilter FinishReason = "content_filter"
)

// Usage is token accounting for one call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Response is the result of a generation call.
type Response struct {
	Content          string       `json:"content"`
	Usage            Usage        `json:"usage"`
	FinishReason     FinishReason `json:"finish_reason"`
	ProcessingTimeMs int64        `json:"processing_time_ms"`
	// Provider names the provider that produced the response.
	Provider string `json:"provider,omitempty"`
}

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Provider is a Generator backed by a named model vendor.
type Provider interface {
	Generator
	Name() string
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req Request) (*Response, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// splitSystem separates system messages from the conversation.
// System contents are joined with blank lines.
func splitSystem(msgs []Message) (system string, rest []Message) {
	var parts []string
	for _, m := range msgs {
		if m.Role == RoleSystem {
			if m.Content != "" {
				parts = append(parts, m.Content)
			}
			continue
		}
		rest = append(rest, m)
	}
	for i, p := range parts {
		if i > 0 {
			system += "\n\n"
		}
		system += p
	}
	return system, rest
}
