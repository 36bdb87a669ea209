package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"github.com/dyike/fupanxia/consts"
	"github.com/dyike/fupanxia/internal/intake"
)

// Prompter asks the interactive-mode questions.
type Prompter interface {
	ImagePath() (string, error)
	Provider(current string) (string, error)
	Again() (bool, error)
}

type surveyPrompter struct{}

// ImagePath prompts for a screenshot on disk.
func (surveyPrompter) ImagePath() (string, error) {
	var path string
	prompt := &survey.Input{
		Message: "交易记录截图路径:",
		Help:    "支持成交明细、持仓记录、盈亏分析图 (png, jpg, webp ...)",
	}

	err := survey.AskOne(prompt, &path, survey.WithValidator(func(val interface{}) error {
		return validateImagePath(val.(string))
	}))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(path), nil
}

// Provider lets the user pick the LLM provider, defaulting to current.
func (surveyPrompter) Provider(current string) (string, error) {
	var selected string
	prompt := &survey.Select{
		Message: "选择鉴定引擎:",
		Options: consts.Providers,
		Default: current,
		Description: func(value string, index int) string {
			switch value {
			case consts.ProviderGemini:
				return "结构化输出，推荐"
			case consts.ProviderOpenAI:
				return "多模态对话"
			case consts.ProviderDeepSeek:
				return "纯文本兜底，看不到图"
			}
			return ""
		},
	}

	if err := survey.AskOne(prompt, &selected); err != nil {
		return "", err
	}
	return selected, nil
}

func (surveyPrompter) Again() (bool, error) {
	again := false
	prompt := &survey.Confirm{
		Message: "我不服，再来一发?",
		Default: true,
	}
	err := survey.AskOne(prompt, &again)
	return again, err
}

func validateImagePath(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("路径不能为空")
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("找不到文件: %s", path)
	}
	if info.IsDir() {
		return fmt.Errorf("%s 是目录", path)
	}
	if !intake.IsImage(intake.TypeByPath(path)) {
		return errors.New(intake.NotImageNotice)
	}
	return nil
}
