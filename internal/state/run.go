package state

import (
	"context"
	"errors"

	"github.com/dyike/fupanxia/internal/analysis"
	"github.com/dyike/fupanxia/models"
	"go.uber.org/zap"
)

// MsgUnknown is shown for failures that carry no user-facing message.
const MsgUnknown = "未知错误，可能是行情太惨烈导致断网了。"

var errNoResult = errors.New("analyzer returned no result")

// UserMessage reduces any analysis failure to the string stored in AppState.error.
func UserMessage(err error) string {
	var aerr *analysis.Error
	if errors.As(err, &aerr) && aerr.Message != "" {
		return aerr.Message
	}
	return MsgUnknown
}

// Run performs one full attempt: Start, Analyze, Complete. It returns the
// generation used and whether the outcome was applied.
func Run(ctx context.Context, ctrl *Controller, analyzer analysis.Analyzer, image string, logger *zap.Logger) (uint64, bool) {
	gen := ctrl.Start(image)
	return gen, Await(ctx, ctrl, gen, analyzer, image, logger)
}

// Await runs the analysis for an attempt already started with gen and
// applies the outcome. It is meant to run on its own goroutine.
func Await(ctx context.Context, ctrl *Controller, gen uint64, analyzer analysis.Analyzer, image string, logger *zap.Logger) bool {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		result *models.AnalysisResult
		err    error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("analyzer panicked", zap.Any("panic", r))
				err = errors.New("analyzer panicked")
			}
		}()
		result, err = analyzer.Analyze(ctx, image)
	}()

	if err != nil {
		logger.Warn("analysis failed",
			zap.String("provider", analyzer.Name()),
			zap.Uint64("generation", gen),
			zap.Error(err))
	}

	applied := ctrl.Complete(gen, result, err)
	if !applied {
		logger.Info("stale analysis discarded", zap.Uint64("generation", gen))
	}
	return applied
}
