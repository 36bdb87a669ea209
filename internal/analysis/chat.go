package analysis

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/dyike/fupanxia/consts"
	"github.com/dyike/fupanxia/models"
	"go.uber.org/zap"
)

// MessageBuilder turns the image data URL into the prompt messages.
type MessageBuilder = func(ctx context.Context, imageDataURL string) ([]*schema.Message, error)

// ChatAnalyzer runs load_messages -> chat_model as a compiled eino chain and
// decodes the reply text itself.
type ChatAnalyzer struct {
	provider string
	runnable compose.Runnable[string, *schema.Message]
	trace    callbacks.Handler
	parse    func(string) (*models.AnalysisResult, error)
	logger   *zap.Logger
}

// NewChatAnalyzer compiles the chain around any eino chat model.
func NewChatAnalyzer(ctx context.Context, provider string, cm model.ChatModel, build MessageBuilder,
	parse func(string) (*models.AnalysisResult, error), logger *zap.Logger) (*ChatAnalyzer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if parse == nil {
		parse = ParseResult
	}

	chain := compose.NewChain[string, *schema.Message]()
	chain.
		AppendLambda(compose.InvokableLambda(build), compose.WithNodeName(consts.NodeLoadMessages)).
		AppendChatModel(cm, compose.WithNodeName(consts.NodeChatModel))

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile %s chain: %w", provider, err)
	}

	return &ChatAnalyzer{
		provider: provider,
		runnable: runnable,
		trace:    LoggerCallback(logger, provider),
		parse:    parse,
		logger:   logger,
	}, nil
}

func (a *ChatAnalyzer) Name() string { return a.provider }

func (a *ChatAnalyzer) Analyze(ctx context.Context, imageDataURL string) (*models.AnalysisResult, error) {
	msg, err := a.runnable.Invoke(ctx, imageDataURL, compose.WithCallbacks(a.trace))
	if err != nil {
		a.logger.Error("chat completion failed", zap.Error(err))
		return nil, transportError(a.provider, err)
	}

	text := ""
	if msg != nil {
		text = msg.Content
	}
	result, err := a.parse(text)
	if err != nil {
		a.logger.Error("chat response unusable", zap.Error(err), zap.String("text", truncate(text, 500)))
		return nil, shapeError(a.provider, err)
	}
	if msg.ResponseMeta != nil && msg.ResponseMeta.Usage != nil {
		a.logger.Debug("chat completion usage",
			zap.Int("prompt_tokens", msg.ResponseMeta.Usage.PromptTokens),
			zap.Int("completion_tokens", msg.ResponseMeta.Usage.CompletionTokens))
	}
	return result, nil
}
