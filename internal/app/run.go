package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/clusterprops/internal/ctxlog"
)

// Run executes the configured number of cycles. The first failing cycle
// stops the run; earlier results have already been published.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")
	defer a.closePublisher()

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(ctx, a.config.HealthcheckPort)
		defer a.stopHealthcheckServer(ctx)
	}

	a.logger.Info("Starting analysis.", "rank", a.analysis.Rank(), "cycles", a.config.Cycles)
	for i := 0; i < a.config.Cycles; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := a.analysis.Calculate(ctx); err != nil {
			return fmt.Errorf("cycle %d failed: %w", i+1, err)
		}
	}
	a.logger.Info("Analysis finished.", "cycles", a.config.Cycles)
	return nil
}
