package llms

import (
	"github.com/anthropics/anthropic-sdk-go"

	"github.com/agentmentor/agentqa-go/pkg/core"
	"github.com/agentmentor/agentqa-go/pkg/errors"
)

// New constructs the capability client for a provider name. Only the
// anthropic provider is wired; the interface leaves room for others.
func New(provider, model, apiKey string) (core.LLM, error) {
	switch provider {
	case "", "anthropic":
		return NewAnthropicLLM(apiKey, anthropic.Model(model))
	default:
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, "unsupported LLM provider"),
			errors.Fields{"provider": provider})
	}
}
