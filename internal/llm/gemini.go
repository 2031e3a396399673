package llm

import (
	"context"
	"fmt"
	"os"
	"time"

	"google.golang.org/genai"
)

// ProviderGemini is the name of the Gemini provider.
const ProviderGemini = "gemini"

// GeminiConfig contains configuration for creating a GeminiProvider.
type GeminiConfig struct {
	// Model defaults to gemini-2.5-flash.
	Model string
	// APIKey is the Gemini API key. If empty, uses GEMINI_API_KEY env var.
	APIKey    string
	MaxTokens int
}

// GeminiProvider generates text with the Gemini API.
type GeminiProvider struct {
	client    *genai.Client
	model     string
	maxTokens int
}

// NewGeminiProvider creates a new Gemini provider.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &GeminiProvider{client: client, model: model, maxTokens: maxTokens}, nil
}

// Name returns the provider identifier.
func (p *GeminiProvider) Name() string {
	return ProviderGemini
}

// Generate performs a non-streaming completion request.
func (p *GeminiProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = p.model
	}
	maxTokens := req.Params.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.maxTokens
	}

	system, rest := splitSystem(req.Messages)
	contents := make([]*genai.Content, 0, len(rest))
	for _, m := range rest {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if req.Params.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(req.Params.Temperature))
	}
	if req.Params.TopP > 0 {
		cfg.TopP = genai.Ptr(float32(req.Params.TopP))
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	out := &Response{
		Content:          resp.Text(),
		FinishReason:     FinishStop,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		Provider:         ProviderGemini,
	}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	if len(resp.Candidates) > 0 {
		switch resp.Candidates[0].FinishReason {
		case genai.FinishReasonMaxTokens:
			out.FinishReason = FinishLength
		case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent, genai.FinishReasonBlocklist:
			out.FinishReason = FinishContentFilter
		}
	}
	return out, nil
}
