package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/starmirror/internal/ctxlog"
	"github.com/vk/starmirror/internal/engine"
	"github.com/vk/starmirror/internal/filefetch"
	"github.com/vk/starmirror/internal/prefs"
	"github.com/vk/starmirror/internal/session"
	"github.com/vk/starmirror/internal/sidestore"
	"github.com/vk/starmirror/internal/surface"
	"github.com/vk/starmirror/internal/transport"
	"github.com/vk/starmirror/internal/varmodel"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx      context.Context
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	closeLog func() error

	surface *surface.Surface
	model   *varmodel.Model
	side    *sidestore.Store
	files   *filefetch.Fetcher
	prefs   *prefs.Store
	preview *previewSink
	session *session.Session
	engine  *engine.Engine

	httpServer *http.Server
}

// NewApp is the constructor for the main application. dialer may be nil, in
// which case one is built from the device configuration. Invalid transport
// configuration is a startup error and panics.
func NewApp(outW io.Writer, cfg *Config, dialer transport.Dialer) *App {
	logW, closeLog := logWriter(outW, cfg)
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if dialer == nil {
		d, err := transport.New(transport.Options{Kind: cfg.Device.Transport, URL: cfg.Device.URL})
		if err != nil {
			panic(fmt.Errorf("failed to configure transport: %w", err))
		}
		dialer = d
	}

	a := &App{
		ctx:      ctx,
		outW:     outW,
		logger:   logger,
		config:   cfg,
		closeLog: closeLog,
		surface:  surface.New(),
		model:    varmodel.New(ctx),
		side:     sidestore.New(),
		preview:  &previewSink{},
	}

	a.session = session.New(ctx, session.Options{
		Dialer:         dialer,
		Binary:         a.preview,
		ReconnectDelay: cfg.Device.ReconnectDelay,
		Watchdog:       cfg.Device.WatchdogTimeout,
		ComputeKey:     cfg.Device.ComputeKey,
	})

	opts := engine.Options{
		Renderer: a.surface,
		Model:    a.model,
		Outbox:   a.session.Outbox(),
		Side:     a.side,
	}
	if cfg.Device.FileBaseURL != "" {
		a.files = filefetch.New(cfg.Device.FileBaseURL, filefetch.DefaultTimeout)
		opts.Files = a.files
	}
	if cfg.UI.StateDir != "" {
		p, err := prefs.Open(cfg.UI.StateDir)
		if err != nil {
			logger.Warn("Preferences unavailable, theme and view will not persist.", "error", err)
		} else {
			a.prefs = p
			opts.Prefs = p
			logger.Debug("Preferences opened.", "path", p.BasePath())
		}
	}
	a.engine = engine.New(ctx, opts)
	a.applyUIDefaults()

	logger.Debug("Application assembled.", "url", cfg.Device.URL, "transport", cfg.Device.Transport)
	return a
}

// applyUIDefaults applies the configured theme and view where no persisted
// preference was restored.
func (a *App) applyUIDefaults() {
	filter := a.engine.Filter()
	if filter.Theme() == "" && a.config.UI.Theme != "" {
		filter.ApplyTheme(a.ctx, a.config.UI.Theme)
	}
	if _, saved := filter.SavedView(a.ctx); !saved && a.config.UI.DefaultView != "" {
		filter.ApplyView(a.ctx, a.config.UI.DefaultView)
	}
}

// Surface returns the in-memory surface. This is primarily for testing.
func (a *App) Surface() *surface.Surface { return a.surface }

// Engine returns the engine. This is primarily for testing.
func (a *App) Engine() *engine.Engine { return a.engine }

// Session returns the device session.
func (a *App) Session() *session.Session { return a.session }

// Side returns the side table of payloads the surface does not render.
func (a *App) Side() *sidestore.Store { return a.side }
