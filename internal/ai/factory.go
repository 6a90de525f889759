package ai

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jkindrix/draftwise/internal/config"
)

// NewCompleter builds the provider client selected by llm.provider. It
// returns ErrNoProvider when the provider is "none".
func NewCompleter(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Completer, error) {
	logger = logger.Named("ai")
	switch cfg.LLM.Provider {
	case config.ProviderAnthropic:
		return NewClaudeClient(&cfg.Anthropic, &cfg.LLM, logger), nil
	case config.ProviderOpenAI:
		return NewOpenAIClient(&cfg.OpenAI, &cfg.LLM, logger), nil
	case config.ProviderGemini:
		return NewGeminiClient(ctx, &cfg.Gemini, &cfg.LLM, logger)
	case config.ProviderNone, "":
		return nil, ErrNoProvider
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}
