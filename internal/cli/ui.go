package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dyike/fupanxia/config"
	"github.com/dyike/fupanxia/internal/views"
	"github.com/dyike/fupanxia/models"
)

// UI styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			MarginBottom(1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(1, 2).
			Width(72)

	roastStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#EF4444")).
			Foreground(lipgloss.Color("#E2E8F0")).
			Italic(true).
			Padding(1, 2).
			Width(72)

	tagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CBD5E1")).
			Background(lipgloss.Color("#1E293B")).
			Padding(0, 1).
			MarginRight(1)

	issueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94A3B8"))

	suggestionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#60A5FA")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#EF4444")).
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true).
			Padding(0, 2)

	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))

	scoreStyles = map[views.Band]lipgloss.Style{
		views.BandHigh: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#60A5FA")),
		views.BandMid:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FACC15")),
		views.BandLow:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444")),
	}
)

// RenderBanner is the header shown in interactive mode.
func RenderBanner() string {
	brand := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444")).Render("复盘") +
		lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3B82F6")).Render("侠")
	return lipgloss.JoinVertical(lipgloss.Left,
		brand,
		mutedStyle.Render("上传交易截图，让AI老兵撕下你的伪装。"),
		mutedStyle.Italic(true).Render("温馨提示：心脏脆弱者请立即关闭。"),
	)
}

func RenderLoading(msg string) string {
	return mutedStyle.Render("⏳ 鉴定中... " + msg)
}

func RenderError(msg string) string {
	return errorStyle.Render("出错了！" + msg)
}

// RenderResult lays out every field of the verdict.
func RenderResult(r *models.AnalysisResult) string {
	if r == nil {
		return ""
	}

	score := scoreStyles[views.ScoreBand(r.Score)].Render(fmt.Sprintf("%d", r.Score))
	tags := make([]string, 0, len(r.Tags))
	for _, tag := range r.Tags {
		tags = append(tags, tagStyle.Render("#"+tag))
	}
	summary := panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		mutedStyle.Render("鉴定结果"),
		titleStyle.Render(r.Title),
		score+mutedStyle.Render(" 交易分"),
		strings.Join(tags, ""),
	))

	var issues strings.Builder
	issues.WriteString(titleStyle.Render("痛点剖析"))
	for i, p := range r.BehaviorAnalysis {
		fmt.Fprintf(&issues, "\n%s %s\n%s\n", issueStyle.Render("["+views.IssueLabel(i)+"]"), p.Point, mutedStyle.Render(p.Description))
	}

	advice := panelStyle.Render(titleStyle.Render("老兵的临终关怀（建议）") + "\n" + suggestionStyle.Render(`"`+r.Suggestion+`"`))

	return lipgloss.JoinVertical(lipgloss.Left,
		summary,
		roastStyle.Render(`"`+r.Roast+`"`),
		panelStyle.Render(strings.TrimRight(issues.String(), "\n")),
		advice,
		mutedStyle.Render(views.ShareText(r, "")),
	)
}

// RenderConfig prints the effective configuration with API keys masked.
func RenderConfig(cfg *config.Config) string {
	r := cfg.Redacted()
	keyStatus := func(key string) string {
		if key == "" {
			return "❌ Not configured"
		}
		return "✅ " + key
	}

	rows := [][2]string{
		{"Listen Address", r.Addr},
		{"LLM Provider", r.LLMProvider},
		{"Max Tokens", fmt.Sprintf("%d", r.MaxTokens)},
		{"Gemini Model", r.GeminiModel},
		{"Gemini API Key", keyStatus(r.GeminiAPIKey)},
		{"OpenAI Model", r.OpenAIModel},
		{"OpenAI Base URL", r.OpenAIBaseURL},
		{"OpenAI API Key", keyStatus(r.OpenAIAPIKey)},
		{"DeepSeek Model", r.DeepSeekModel},
		{"DeepSeek API Key", keyStatus(r.DeepSeekAPIKey)},
		{"Max Upload Bytes", fmt.Sprintf("%d", r.MaxUploadBytes)},
		{"Session TTL", r.SessionTTL.String()},
		{"Loading Interval", r.LoadingInterval.String()},
		{"Debug Mode", fmt.Sprintf("%t", r.Debug)},
		{"Log Level", r.LogLevel},
		{"Log Format", r.LogFormat},
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("📋 Current fupanxia Configuration:"))
	for _, row := range rows {
		fmt.Fprintf(&b, "\n%-18s %s", row[0]+":", row[1])
	}
	return panelStyle.Render(b.String())
}
