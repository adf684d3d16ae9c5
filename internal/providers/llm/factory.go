package llm

import (
	"context"
	"fmt"

	"github.com/sandevgo/muse/internal/config"
	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/pkg/log"
)

// NewProvider creates the appropriate AIProvider based on configuration.
func NewProvider(ctx context.Context, cfg *config.LLMConfig) (core.AIProvider, error) {
	log.FromCtx(ctx).Info().
		Str("provider", cfg.Provider).
		Str("model", cfg.Model).
		Msg("starting llm provider")

	opts := Options{
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout,
	}

	switch cfg.Provider {
	case config.ProviderOpenAI:
		if cfg.BaseURL != "" {
			return NewCustomOpenAI(cfg.BaseURL, cfg.OpenAIAPIKey, cfg.Model, opts), nil
		}
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.Model, opts), nil
	case config.ProviderAnthropic:
		if cfg.BaseURL != "" {
			return NewAnthropicWithBaseURL(cfg.BaseURL, cfg.AnthropicAPIKey, cfg.Model, opts), nil
		}
		return NewAnthropic(cfg.AnthropicAPIKey, cfg.Model, opts), nil
	case config.ProviderOpenRouter:
		return NewOpenRouter(cfg.OpenRouterAPIKey, cfg.Model, opts), nil
	case config.ProviderOllama:
		return NewOllama(cfg.BaseURL, cfg.Model, opts), nil
	case config.ProviderCustom:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("custom llm provider requires LLM_BASE_URL")
		}
		return NewCustomOpenAI(cfg.BaseURL, cfg.CustomAPIKey, cfg.Model, opts), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}
