package models

// ViewMode 当前应渲染的视图
type ViewMode string

const (
	ViewIdle      ViewMode = "idle"
	ViewAnalyzing ViewMode = "analyzing"
	ViewError     ViewMode = "error"
	ViewResult    ViewMode = "result"
)

// AppState 单次会话的全部状态，只存在于内存
type AppState struct {
	IsAnalyzing bool            `json:"isAnalyzing"`
	Image       *string         `json:"image"`  // base64 data URL，首次上传前为空
	Result      *AnalysisResult `json:"result"` // 成功鉴定后才有
	Error       *string         `json:"error"`  // 最近一次鉴定失败的提示
}

// Mode derives the single active view from the state fields.
func (s AppState) Mode() ViewMode {
	switch {
	case s.IsAnalyzing:
		return ViewAnalyzing
	case s.Error != nil:
		return ViewError
	case s.Result != nil:
		return ViewResult
	default:
		return ViewIdle
	}
}

// IsZero reports whether the state equals the initial session state.
func (s AppState) IsZero() bool {
	return !s.IsAnalyzing && s.Image == nil && s.Result == nil && s.Error == nil
}
