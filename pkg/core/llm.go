package core

import (
	"context"
)

// LLM is the one true black box of the pipeline: an external reasoning
// capability. The judge and rewriter build prompts against it and validate
// every response before trusting it. Tests substitute a deterministic stub.
type LLM interface {
	// Generate produces a text completion for the given prompt.
	Generate(ctx context.Context, prompt string, options ...GenerateOption) (*LLMResponse, error)

	// GenerateWithJSON produces structured JSON output for the given prompt.
	GenerateWithJSON(ctx context.Context, prompt string, options ...GenerateOption) (map[string]interface{}, error)

	ProviderName() string
	ModelID() string
}

// LLMResponse is a raw completion plus usage accounting.
type LLMResponse struct {
	Content string
	Usage   *TokenInfo
}

// TokenInfo tracks token usage for cost monitoring.
type TokenInfo struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// GenerateOption represents an option for text generation.
type GenerateOption func(*GenerateOptions)

// GenerateOptions holds configuration for text generation.
type GenerateOptions struct {
	MaxTokens    int
	Temperature  float64
	TopP         float64
	SystemPrompt string
}

// NewGenerateOptions creates options tuned for deterministic scoring:
// zero temperature, no nucleus sampling.
func NewGenerateOptions() *GenerateOptions {
	return &GenerateOptions{
		MaxTokens:   4096,
		Temperature: 0.0,
		TopP:        1.0,
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
func WithMaxTokens(n int) GenerateOption {
	return func(o *GenerateOptions) {
		if n > 0 {
			o.MaxTokens = n
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = t
	}
}

// WithSystemPrompt sets the system instruction for the call.
func WithSystemPrompt(prompt string) GenerateOption {
	return func(o *GenerateOptions) {
		o.SystemPrompt = prompt
	}
}
