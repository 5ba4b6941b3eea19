package llm

import (
	"fmt"
	"strings"

	"github.com/lukeacampbell/Stock-News-Sentiment/internal/config"
)

// NewFromConfig builds the configured provider. The keyword provider has no
// backend, so it returns a nil Provider and a nil error; callers score
// headlines with keyword matching instead.
func NewFromConfig(cfg config.LLMConfig) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	model := cfg.Model

	switch name {
	case ProviderGroq, "":
		var opts []OpenAIOption
		if cfg.BaseURL != "" {
			opts = append(opts, WithOpenAIBaseURL(cfg.BaseURL))
		}
		if model != "" {
			opts = append(opts, WithOpenAIModel(model))
		}
		return NewGroqProvider(cfg.GroqKey, opts...)

	case ProviderOpenAI:
		if model == "" || model == GroqDefaultModel {
			model = OpenAIDefaultModel
		}
		opts := []OpenAIOption{WithOpenAIModel(model)}
		if cfg.BaseURL != "" {
			opts = append(opts, WithOpenAIBaseURL(cfg.BaseURL))
		}
		return NewOpenAIProvider(cfg.OpenAIKey, opts...)

	case ProviderAnthropic:
		if model == "" || model == GroqDefaultModel {
			model = AnthropicDefaultModel
		}
		opts := []AnthropicOption{WithAnthropicModel(model)}
		if cfg.BaseURL != "" {
			opts = append(opts, WithAnthropicBaseURL(cfg.BaseURL))
		}
		return NewAnthropicProvider(cfg.AnthropicKey, opts...)

	case ProviderKeyword:
		return nil, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Provider)
}
