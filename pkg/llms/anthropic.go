// Package llms provides concrete core.LLM implementations for the judge,
// rewriter and red-team capabilities.
package llms

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/agentmentor/agentqa-go/pkg/core"
	"github.com/agentmentor/agentqa-go/pkg/errors"
	"github.com/agentmentor/agentqa-go/pkg/logging"
)

// AnthropicLLM implements core.LLM on the official Anthropic SDK.
type AnthropicLLM struct {
	client *anthropic.Client
	model  anthropic.Model
}

var _ core.LLM = (*AnthropicLLM)(nil)

// NewAnthropicLLM creates an adapter for the given model. The API key falls
// back to ANTHROPIC_API_KEY when empty.
func NewAnthropicLLM(apiKey string, model anthropic.Model) (*AnthropicLLM, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New(errors.InvalidInput, "API key is required")
	}
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_5_20250929
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &AnthropicLLM{
		client: &client,
		model:  model,
	}, nil
}

func (a *AnthropicLLM) ProviderName() string { return "anthropic" }
func (a *AnthropicLLM) ModelID() string      { return string(a.model) }

// Generate implements core.LLM.
func (a *AnthropicLLM) Generate(ctx context.Context, prompt string, options ...core.GenerateOption) (*core.LLMResponse, error) {
	logger := logging.GetLogger()
	opts := core.NewGenerateOptions()
	for _, opt := range options {
		opt(opts)
	}

	params := anthropic.MessageNewParams{
		Model: a.model,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(prompt),
			),
		},
		MaxTokens:   int64(opts.MaxTokens),
		Temperature: anthropic.Float(opts.Temperature),
		TopP:        anthropic.Float(opts.TopP),
	}
	if opts.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: opts.SystemPrompt}}
	}

	message, err := a.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if stderrors.As(err, &apiErr) {
			logger.Error(ctx, "Anthropic API error: status code %d", apiErr.StatusCode)
		}
		return nil, errors.WithFields(
			errors.Wrap(err, errors.LLMGenerationFailed, "failed to generate response"),
			errors.Fields{
				"model":      string(a.model),
				"max_tokens": opts.MaxTokens,
			})
	}
	if message == nil || len(message.Content) == 0 {
		return nil, errors.New(errors.LLMGenerationFailed, "received empty content from Anthropic API")
	}

	var responseText string
	if block := message.Content[0]; block.Type == "text" {
		responseText = block.Text
	}

	usage := &core.TokenInfo{
		PromptTokens:     int(message.Usage.InputTokens),
		CompletionTokens: int(message.Usage.OutputTokens),
		TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
	}
	logger.Debug(ctx, "Anthropic response: %d prompt tokens, %d completion tokens",
		message.Usage.InputTokens, message.Usage.OutputTokens)

	return &core.LLMResponse{Content: responseText, Usage: usage}, nil
}

// GenerateWithJSON implements core.LLM. The response is parsed as a JSON
// object, tolerating a markdown code fence around it.
func (a *AnthropicLLM) GenerateWithJSON(ctx context.Context, prompt string, options ...core.GenerateOption) (map[string]interface{}, error) {
	response, err := a.Generate(ctx, prompt, options...)
	if err != nil {
		return nil, err
	}
	return ParseJSONResponse(response.Content)
}

// ParseJSONResponse decodes a model response into a JSON object, stripping
// a surrounding markdown fence when present.
func ParseJSONResponse(response string) (map[string]interface{}, error) {
	text := strings.TrimSpace(response)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	var result map[string]interface{}
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, errors.Wrap(err, errors.InvalidResponse, "failed to parse response as JSON")
	}
	return result, nil
}
