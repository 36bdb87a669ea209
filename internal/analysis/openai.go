package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/schema"
	"github.com/dyike/fupanxia/consts"
	"go.uber.org/zap"
)

type OpenAIConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
}

// NewOpenAIAnalyzer sends the image as an image_url part to an
// OpenAI-compatible vision model. The JSON shape is only requested by prompt.
func NewOpenAIAnalyzer(ctx context.Context, cfg OpenAIConfig, logger *zap.Logger) (Analyzer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return &unconfigured{provider: consts.ProviderOpenAI, logger: logger}, nil
	}

	mc := &openai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
	}
	if cfg.MaxTokens > 0 {
		maxTokens := cfg.MaxTokens
		mc.MaxTokens = &maxTokens
	}
	chatModel, err := openai.NewChatModel(ctx, mc)
	if err != nil {
		return nil, fmt.Errorf("create openai chat model: %w", err)
	}

	return NewChatAnalyzer(ctx, consts.ProviderOpenAI, chatModel, MultimodalMessages, ParseLenient, logger)
}

// MultimodalMessages attaches the full image next to the task prompt.
func MultimodalMessages(_ context.Context, imageDataURL string) ([]*schema.Message, error) {
	if strings.TrimSpace(imageDataURL) == "" {
		return nil, fmt.Errorf("empty image")
	}
	return []*schema.Message{
		schema.SystemMessage(JSONInstruction),
		{
			Role: schema.User,
			MultiContent: []schema.ChatMessagePart{
				{Type: schema.ChatMessagePartTypeText, Text: ImagePrompt},
				{
					Type: schema.ChatMessagePartTypeImageURL,
					ImageURL: &schema.ChatMessageImageURL{
						URL:    imageDataURL,
						Detail: schema.ImageURLDetailAuto,
					},
				},
			},
		},
	}, nil
}
