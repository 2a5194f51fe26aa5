package app

import (
	"context"
	"log/slog"

	"github.com/alanyoungcy/kimchibot/internal/feed"
)

// ScanMode runs exactly one detection cycle and exits. This is the shape a
// scheduled invocation (cron, serverless) uses.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode")

	report, err := deps.Scanner.RunCycle(ctx)
	if err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "scan complete",
		slog.String("cycle_id", report.CycleID),
		slog.Int("evaluated", report.Evaluated),
		slog.Int("triggered", report.Triggered),
	)
	return nil
}

// LoopMode runs detection cycles on the configured interval until shutdown.
func (a *App) LoopMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting loop mode")
	return deps.Scanner.RunLoop(ctx)
}

// MonitorMode streams the reference asset's live premium over venue
// websockets until shutdown. No alerts fire in this mode.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode",
		slog.String("asset", a.cfg.Scan.ReferenceAsset),
	)

	monitor := feed.NewPremiumMonitor(a.cfg.Scan.ReferenceAsset, deps.Rates, a.logger)
	return monitor.Run(ctx)
}
