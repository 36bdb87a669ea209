// Package analysis sends a trading screenshot to an LLM provider and decodes
// the roast into models.AnalysisResult. One attempt per call: no retry, no cache.
package analysis

import (
	"context"
	"fmt"

	"github.com/dyike/fupanxia/config"
	"github.com/dyike/fupanxia/consts"
	"github.com/dyike/fupanxia/models"
	"go.uber.org/zap"
)

// Analyzer produces an AnalysisResult from a base64 image data URL.
// Every failure is returned as *Error.
type Analyzer interface {
	Analyze(ctx context.Context, imageDataURL string) (*models.AnalysisResult, error)
	Name() string
}

// New builds the analyzer selected by cfg.LLMProvider. A missing credential
// is not an error here: the analyzer fails fast on each attempt instead.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Analyzer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("provider", cfg.LLMProvider))

	switch cfg.LLMProvider {
	case consts.ProviderGemini:
		return NewGeminiAnalyzer(ctx, GeminiConfig{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			BaseURL: cfg.GeminiBaseURL,
		}, logger)
	case consts.ProviderOpenAI:
		return NewOpenAIAnalyzer(ctx, OpenAIConfig{
			APIKey:    cfg.OpenAIAPIKey,
			Model:     cfg.OpenAIModel,
			BaseURL:   cfg.OpenAIBaseURL,
			MaxTokens: cfg.MaxTokens,
		}, logger)
	case consts.ProviderDeepSeek:
		return NewDeepSeekAnalyzer(ctx, DeepSeekConfig{
			APIKey:    cfg.DeepSeekAPIKey,
			Model:     cfg.DeepSeekModel,
			BaseURL:   cfg.DeepSeekBaseURL,
			MaxTokens: cfg.MaxTokens,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}

// unconfigured fails every attempt with a configuration error and never dials out.
type unconfigured struct {
	provider string
	logger   *zap.Logger
}

func (u *unconfigured) Name() string { return u.provider }

func (u *unconfigured) Analyze(context.Context, string) (*models.AnalysisResult, error) {
	err := configurationError(u.provider, config.APIKeyEnv(u.provider))
	u.logger.Error("analysis not attempted", zap.Error(err))
	return nil, err
}
