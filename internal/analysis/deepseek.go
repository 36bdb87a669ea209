package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino/schema"
	"github.com/dyike/fupanxia/consts"
	"go.uber.org/zap"
)

type DeepSeekConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
}

// NewDeepSeekAnalyzer is the text-only fallback: the model never sees the
// image, only a base64 excerpt, and its reply is parsed leniently.
func NewDeepSeekAnalyzer(ctx context.Context, cfg DeepSeekConfig, logger *zap.Logger) (Analyzer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return &unconfigured{provider: consts.ProviderDeepSeek, logger: logger}, nil
	}

	model := cfg.Model
	if model == "" {
		model = "deepseek-chat"
	}
	mc := &deepseek.ChatModelConfig{
		APIKey:    cfg.APIKey,
		Model:     model,
		MaxTokens: cfg.MaxTokens,
	}
	if cfg.BaseURL != "" {
		mc.BaseURL = cfg.BaseURL
	}
	chatModel, err := deepseek.NewChatModel(ctx, mc)
	if err != nil {
		return nil, fmt.Errorf("create deepseek chat model: %w", err)
	}

	return NewChatAnalyzer(ctx, consts.ProviderDeepSeek, chatModel, ExcerptMessages, ParseLenient, logger)
}

// ExcerptMessages embeds only the first few thousand characters of the data URL.
func ExcerptMessages(_ context.Context, imageDataURL string) ([]*schema.Message, error) {
	if strings.TrimSpace(imageDataURL) == "" {
		return nil, fmt.Errorf("empty image")
	}
	excerpt := imageDataURL
	if len(excerpt) > excerptLimit {
		excerpt = excerpt[:excerptLimit]
	}
	return []*schema.Message{
		schema.SystemMessage(JSONInstruction),
		schema.UserMessage(TextOnlyPrompt + "\n\n" + excerptHeader + "\n" + excerpt),
	}, nil
}
