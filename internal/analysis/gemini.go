package analysis

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dyike/fupanxia/consts"
	"github.com/dyike/fupanxia/internal/intake"
	"github.com/dyike/fupanxia/models"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-3-flash-preview"

type GeminiConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// GeminiAnalyzer attaches the image as inline bytes and lets the provider
// enforce the response schema.
type GeminiAnalyzer struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewGeminiAnalyzer returns an Analyzer; with an empty API key every attempt
// fails with a configuration error.
func NewGeminiAnalyzer(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (Analyzer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return &unconfigured{provider: consts.ProviderGemini, logger: logger}, nil
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultGeminiModel
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiAnalyzer{client: client, model: model, logger: logger}, nil
}

func (g *GeminiAnalyzer) Name() string { return consts.ProviderGemini }

func (g *GeminiAnalyzer) Analyze(ctx context.Context, imageDataURL string) (*models.AnalysisResult, error) {
	mimeType, data, err := intake.ParseDataURL(imageDataURL)
	if err != nil {
		g.logger.Error("bad image payload", zap.Error(err))
		return nil, transportError(consts.ProviderGemini, fmt.Errorf("prepare image: %w", err))
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(data, mimeType),
			genai.NewPartFromText(ImagePrompt),
		}, genai.RoleUser),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(StructuredInstruction, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    ResultSchema(),
	})
	if err != nil {
		g.logger.Error("gemini generate content failed", zap.String("model", g.model), zap.Error(err))
		return nil, transportError(consts.ProviderGemini, err)
	}

	text := ""
	if resp != nil {
		text = resp.Text()
	}
	result, err := ParseResult(text)
	if err != nil {
		g.logger.Error("gemini response unusable", zap.Error(err), zap.String("text", truncate(text, 500)))
		return nil, shapeError(consts.ProviderGemini, err)
	}
	return result, nil
}

// ResultSchema declares the AnalysisResult shape for structured output.
func ResultSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"score": {Type: genai.TypeInteger, Description: "交易成熟度分数，0-100"},
			"title": {Type: genai.TypeString, Description: "扎心的称号"},
			"tags": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "行为标签",
			},
			"roast": {Type: genai.TypeString, Description: "一段辛辣扎心的总评"},
			"behaviorAnalysis": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"point":       {Type: genai.TypeString, Description: "痛点名称"},
						"description": {Type: genai.TypeString, Description: "具体扎心描述"},
					},
					Required: []string{"point", "description"},
				},
			},
			"suggestion": {Type: genai.TypeString, Description: "最后的一句嘲讽式建议"},
		},
		Required: []string{"score", "title", "tags", "roast", "behaviorAnalysis", "suggestion"},
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
