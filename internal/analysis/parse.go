package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dyike/fupanxia/models"
)

// ParseResult strictly decodes the provider text into an AnalysisResult.
// Fields are not checked beyond what JSON decoding guarantees.
func ParseResult(text string) (*models.AnalysisResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyResponse
	}
	if text == "null" {
		return nil, errors.New("parse analysis result: got null")
	}

	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("parse analysis result: %w", err)
	}
	return &result, nil
}

// ParseLenient tolerates markdown fences and prose around the JSON object,
// which free-text completions tend to add.
func ParseLenient(text string) (*models.AnalysisResult, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrEmptyResponse
	}
	return ParseResult(extractObject(trimmed))
}

func extractObject(text string) string {
	if i := strings.Index(text, "```"); i >= 0 {
		body := text[i+3:]
		// drop the language tag on the fence line
		if nl := strings.IndexByte(body, '\n'); nl >= 0 {
			body = body[nl+1:]
		}
		if end := strings.Index(body, "```"); end >= 0 {
			body = body[:end]
		}
		text = strings.TrimSpace(body)
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return text
	}
	return text[start : end+1]
}
