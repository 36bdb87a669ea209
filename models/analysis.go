package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// BehaviorPoint 单个交易行为痛点
type BehaviorPoint struct {
	Point       string `json:"point"`       // 痛点名称
	Description string `json:"description"` // 具体扎心描述
}

// AnalysisResult 模型返回的交易行为鉴定结果
type AnalysisResult struct {
	Score            int             `json:"score"`            // 0-100，交易成熟度分数，越高越专业
	Title            string          `json:"title"`            // 扎心的称号，如“提款机”
	Tags             []string        `json:"tags"`             // 行为标签，按展示顺序
	Roast            string          `json:"roast"`            // 辛辣总评
	BehaviorAnalysis []BehaviorPoint `json:"behaviorAnalysis"` // 具体行为分析点
	Suggestion       string          `json:"suggestion"`       // 嘲讽式建议
}

// Validate reports fields the model left out or filled with nonsense.
// Parsing never calls it; the result is surfaced as-is.
func (r *AnalysisResult) Validate() error {
	if r == nil {
		return errors.New("nil result")
	}
	var problems []string
	if r.Score < 0 || r.Score > 100 {
		problems = append(problems, fmt.Sprintf("score %d out of range [0,100]", r.Score))
	}
	if strings.TrimSpace(r.Title) == "" {
		problems = append(problems, "title is empty")
	}
	if r.Tags == nil {
		problems = append(problems, "tags missing")
	}
	if strings.TrimSpace(r.Roast) == "" {
		problems = append(problems, "roast is empty")
	}
	if r.BehaviorAnalysis == nil {
		problems = append(problems, "behaviorAnalysis missing")
	}
	if strings.TrimSpace(r.Suggestion) == "" {
		problems = append(problems, "suggestion is empty")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid analysis result: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Clone returns a deep copy so callers can hand results across goroutines.
func (r *AnalysisResult) Clone() *AnalysisResult {
	if r == nil {
		return nil
	}
	out := *r
	if r.Tags != nil {
		out.Tags = append([]string(nil), r.Tags...)
	}
	if r.BehaviorAnalysis != nil {
		out.BehaviorAnalysis = append([]BehaviorPoint(nil), r.BehaviorAnalysis...)
	}
	return &out
}

// UnmarshalJSON accepts a fractional score ("score": 12.0) and rounds it.
func (r *AnalysisResult) UnmarshalJSON(data []byte) error {
	type plain AnalysisResult
	aux := struct {
		*plain
		Score json.Number `json:"score"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Score == "" {
		return nil
	}
	f, err := aux.Score.Float64()
	if err != nil {
		return fmt.Errorf("score: %w", err)
	}
	r.Score = int(math.Round(f))
	return nil
}
