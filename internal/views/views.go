// Package views holds the presentation logic shared by the HTML pages and the CLI.
package views

import (
	"fmt"
	"strings"

	"github.com/dyike/fupanxia/models"
)

// Select picks the single view to render for s.
func Select(s models.AppState) models.ViewMode {
	return s.Mode()
}

// UploadDisabled reports whether the upload control must be inert.
func UploadDisabled(s models.AppState) bool {
	return s.IsAnalyzing
}

// Band is the color class of a score.
type Band string

const (
	BandHigh Band = "high"
	BandMid  Band = "mid"
	BandLow  Band = "low"
)

func ScoreBand(score int) Band {
	switch {
	case score > 80:
		return BandHigh
	case score > 50:
		return BandMid
	default:
		return BandLow
	}
}

const (
	ShareTitle  = "复盘侠交易鉴定报告"
	ShareCopied = "已复制！"
)

// ShareText is the summary copied to the clipboard; url is appended on its
// own line when set.
func ShareText(r *models.AnalysisResult, url string) string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "【复盘侠·交易行为鉴定】\n我的交易段位：%s\n得分：%d\n老兵点评：%s\n#股市复盘 #韭菜鉴定", r.Title, r.Score, r.Roast)
	if url != "" {
		b.WriteString("\n")
		b.WriteString(url)
	}
	return b.String()
}

// IssueLabel numbers behavior items from 1.
func IssueLabel(idx int) string {
	return fmt.Sprintf("Issue %d", idx+1)
}
