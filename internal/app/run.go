package app

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc"

	"github.com/vk/starmirror/internal/ctxlog"
	"github.com/vk/starmirror/internal/tui"
)

// Run mirrors the device until ctx ends, the configured duration passes, or
// the user quits the viewer.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if a.config.Duration > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, a.config.Duration)
		defer stop()
	}
	a.logger.Debug("App.Run method started.")
	defer a.closeLog()

	a.healthCheckServer()
	defer a.closeHealthCheckServer()

	var wg conc.WaitGroup
	var viewerErr error
	wg.Go(func() {
		a.logger.Info("🚀 Mirroring device.", "url", a.config.Device.URL)
		if err := a.session.Run(ctx, a.engine); err != nil {
			a.logger.Error("Session stopped.", "error", err)
		}
	})
	if a.config.Interactive {
		wg.Go(func() {
			defer cancel()
			viewerErr = tui.Run(ctx, tui.Options{
				Surface: a.surface,
				Chrome:  a.engine.Chrome(),
				Filter:  a.engine.Filter(),
				Status:  a.session.Status,
			})
		})
	}
	wg.Wait()
	a.engine.Wait()

	if a.files != nil {
		if err := a.files.Close(); err != nil {
			a.logger.Debug("File fetcher close failed.", "error", err)
		}
	}
	if a.config.Snapshot {
		if err := a.surface.Snapshot(a.outW, a.engine.Chrome().Root); err != nil {
			return fmt.Errorf("failed to write snapshot: %w", err)
		}
	}
	a.logger.Info("🏁 Mirror stopped.", "modules", a.model.Len())
	return viewerErr
}
