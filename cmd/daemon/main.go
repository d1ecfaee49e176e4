package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/genricoloni/musicbar/internal/config"
	"github.com/genricoloni/musicbar/internal/dom"
	"github.com/genricoloni/musicbar/internal/domain"
	"github.com/genricoloni/musicbar/internal/engine"
	"github.com/genricoloni/musicbar/internal/executor"
	"github.com/genricoloni/musicbar/internal/fetcher"
	"github.com/genricoloni/musicbar/internal/monitor"
	"github.com/genricoloni/musicbar/internal/palette"
	"github.com/genricoloni/musicbar/internal/processor"
	"github.com/genricoloni/musicbar/internal/resolver"
	"github.com/genricoloni/musicbar/internal/sampler"
	"github.com/genricoloni/musicbar/internal/sink"
	"github.com/genricoloni/musicbar/internal/surface"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// AppOptions is the dependency graph of the daemon
var AppOptions = fx.Options(
	fx.Provide(
		newLogger,
		config.NewAppConfig,
		func(c *config.AppConfig) domain.Config { return c },
		newFetchers,
		newSelectorTable,
		fx.Annotate(resolver.NewArtworkResolver, fx.As(new(domain.Resolver))),
		newSampler,
		sink.NewState,
		newBackdrop,
		newSink,
		newMprisHost,
		func(h *monitor.MprisHost) domain.HostLocator { return h },
		newEngine,
	),

	// Lifecycle hooks
	fx.Invoke(registerHooks),
)

func main() {
	app := fx.New(
		AppOptions,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	)

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		panic(err)
	}

	// Wait for interrupt signal
	<-ctx.Done()

	if err := app.Stop(context.Background()); err != nil {
		panic(err)
	}
}

// newLogger creates a new zap logger instance
func newLogger() (*zap.Logger, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return logger, nil
}

// fetchers splits artwork downloads from page downloads; they accept
// different content types and sizes
type fetchers struct {
	fx.Out

	Image domain.Fetcher `name:"image"`
	Page  domain.Fetcher `name:"page"`
}

func newFetchers(logger *zap.Logger) fetchers {
	return fetchers{
		Image: fetcher.NewHTTPFetcher(logger),
		Page:  fetcher.NewPageFetcher(logger),
	}
}

func newSelectorTable(logger *zap.Logger, cfg domain.Config) (*dom.Table, error) {
	table, err := dom.LoadTable(cfg.GetSelectorsPath())
	if err != nil {
		return nil, err
	}
	if len(table.Skipped) > 0 {
		logger.Warn("Dropped selectors that failed to compile", zap.Strings("selectors", table.Skipped))
	}
	return table, nil
}

type samplerParams struct {
	fx.In

	Logger  *zap.Logger
	Config  domain.Config
	Fetcher domain.Fetcher `name:"image"`
}

func newSampler(p samplerParams) domain.Sampler {
	return sampler.NewPixelSampler(p.Logger, p.Fetcher, p.Config)
}

type backdropParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Logger    *zap.Logger
	Config    *config.AppConfig
	Fetcher   domain.Fetcher `name:"image"`
}

// newBackdrop builds the wallpaper sink when it is enabled, nil otherwise.
// The wallpaper setter is only probed when the sink is wanted.
func newBackdrop(p backdropParams) (*sink.Backdrop, error) {
	if !p.Config.HasSink(config.SinkBackdrop) {
		return nil, nil
	}

	exec, err := executor.NewExecutor(p.Logger)
	if err != nil {
		return nil, fmt.Errorf("backdrop sink: %w", err)
	}
	res := processor.NewScreenResolution(p.Logger)
	proc := processor.NewBackdropProcessor(p.Logger, res, p.Config)

	b := sink.NewBackdrop(p.Logger, p.Fetcher, proc, exec)
	p.Lifecycle.Append(fx.Hook{
		OnStart: b.Start,
		OnStop:  b.Close,
	})
	return b, nil
}

func newSink(logger *zap.Logger, cfg *config.AppConfig, state *sink.State, backdrop *sink.Backdrop) domain.Sink {
	var sinks sink.Multi
	for _, name := range cfg.GetSinks() {
		switch name {
		case config.SinkCSS:
			sinks = append(sinks, sink.NewCSSFile(logger, cfg.GetOutputDir()))
		case config.SinkState:
			sinks = append(sinks, state)
		case config.SinkBackdrop:
			sinks = append(sinks, backdrop)
		}
	}
	return sinks
}

type hostParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Logger    *zap.Logger
	Config    domain.Config
	Fetcher   domain.Fetcher `name:"page"`
}

// newMprisHost creates the session bus host. It connects on the engine's
// first lookup, so a missing bus does not fail startup.
func newMprisHost(p hostParams) *monitor.MprisHost {
	ttl := p.Config.GetPageTTL()
	host := monitor.NewMprisHost(p.Logger, monitor.NewStdDBusClient, func(locate func() string) domain.Surface {
		return surface.NewDynamicPage(p.Logger, p.Fetcher, locate, ttl)
	})

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return host.Close()
		},
	})
	return host
}

func newEngine(
	lc fx.Lifecycle,
	logger *zap.Logger,
	cfg domain.Config,
	locator domain.HostLocator,
	res domain.Resolver,
	smp domain.Sampler,
	out domain.Sink,
) *engine.Engine {
	e := engine.NewEngine(logger, cfg, locator, res, smp, out)
	lc.Append(fx.Hook{
		OnStart: e.Init,
		OnStop:  e.Stop,
	})
	return e
}

// registerHooks sets up application lifecycle hooks
func registerHooks(lc fx.Lifecycle, logger *zap.Logger, e *engine.Engine, state *sink.State) {
	var stopWatch func()

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			updates, cancel := state.Subscribe()
			stopWatch = cancel
			go logUpdates(logger, updates)

			logger.Info("musicbar daemon started", zap.String("instance", e.ID()))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down")
			if stopWatch != nil {
				stopWatch()
			}
			return nil
		},
	})
}

// logUpdates reports every published state change until updates is closed
func logUpdates(logger *zap.Logger, updates <-chan sink.Snapshot) {
	for snap := range updates {
		accent := "none"
		if snap.Accent != nil {
			accent = palette.Hex(*snap.Accent)
		}
		logger.Debug("Published state",
			zap.Bool("active", snap.Active),
			zap.String("cover", snap.Cover),
			zap.String("accent", accent))
	}
}
