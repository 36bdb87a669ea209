package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2/terminal"
)

// runInteractive loops: pick image, pick provider, roast, ask again.
func (a *app) runInteractive(ctx context.Context) error {
	fmt.Fprintln(a.out, RenderBanner())
	fmt.Fprintln(a.out)

	for {
		path, err := a.prompter.ImagePath()
		if err != nil {
			return quietInterrupt(err)
		}
		provider, err := a.prompter.Provider(a.cfg.LLMProvider)
		if err != nil {
			return quietInterrupt(err)
		}
		a.cfg.LLMProvider = provider

		if err := a.roastLocal(ctx, path, false); err != nil && !errors.Is(err, errReported) {
			return err
		}

		again, err := a.prompter.Again()
		if err != nil {
			return quietInterrupt(err)
		}
		if !again {
			fmt.Fprintln(a.out, mutedStyle.Render("👋 去复盘吧，别再送钱了。"))
			return nil
		}
	}
}

// quietInterrupt turns Ctrl-C at a prompt into a clean exit.
func quietInterrupt(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return nil
	}
	return err
}
