package automation

import (
	"context"
	"log/slog"

	"github.com/sundai/social-agent/internal/observability"
)

// Runner launches automation runs in the background so the triggering HTTP
// request returns immediately.
type Runner struct {
	driver  *Driver
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewRunner creates a Runner. Metrics may be nil.
func NewRunner(driver *Driver, metrics *observability.Metrics, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{driver: driver, metrics: metrics, logger: logger}
}

// Trigger starts one run on a fresh background context and returns
// immediately. Concurrent triggers are not serialized; overlapping runs
// compete for the same chat updates, so callers should trigger once per day.
func (r *Runner) Trigger() {
	go func() {
		ctx := context.Background()

		r.logger.Info("automation run started")

		if err := r.driver.Run(ctx); err != nil {
			r.metrics.RecordRun("failed")
			r.logger.Error("automation run failed", "error", err)

			return
		}

		r.metrics.RecordRun("succeeded")
		r.logger.Info("automation run finished")
	}()
}
