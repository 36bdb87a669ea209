// Package debug hooks the analysis chains into the Eino visual debugger.
package debug

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/devops"
	"go.uber.org/zap"

	"github.com/dyike/fupanxia/config"
)

// DefaultEinoDebugURL is where the Eino dev server listens unless told otherwise.
const DefaultEinoDebugURL = "http://localhost:52538"

type EinoDebugger struct {
	config *config.Config
	logger *zap.Logger
}

func NewEinoDebugger(cfg *config.Config, logger *zap.Logger) *EinoDebugger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EinoDebugger{config: cfg, logger: logger}
}

// Initialize starts the dev server. It must run before any chain is
// compiled, otherwise those chains are invisible to the debugger.
func (d *EinoDebugger) Initialize(ctx context.Context) error {
	if !d.IsEnabled() {
		return nil
	}

	if err := devops.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize Eino debug plugin: %w", err)
	}
	d.logger.Info("eino debug server started", zap.String("url", d.GetDebugURL()))
	return nil
}

func (d *EinoDebugger) IsEnabled() bool {
	return d.config != nil && d.config.EinoDebug
}

func (d *EinoDebugger) GetDebugURL() string {
	if !d.IsEnabled() {
		return ""
	}
	return DefaultEinoDebugURL
}
