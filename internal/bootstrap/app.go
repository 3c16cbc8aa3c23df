package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"blendguard/internal/core"
	"blendguard/pkg/logging"

	"golang.org/x/sync/errgroup"
)

// App holds the loaded configuration and the root logger
type App struct {
	Cfg    *Config
	Logger core.ILogger
}

// NewApp loads configuration from configPath and initializes logging
func NewApp(configPath string) (*App, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger, err := InitLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	return &App{
		Cfg:    cfg,
		Logger: logger,
	}, nil
}

// Runner is a component that runs until its context is canceled
type Runner interface {
	Run(ctx context.Context) error
}

// Run starts every runner and blocks until SIGINT/SIGTERM or the first runner error
func (a *App) Run(runners ...Runner) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.run(ctx, runners...)
}

func (a *App) run(ctx context.Context, runners ...Runner) error {
	g, ctx := errgroup.WithContext(ctx)

	a.Logger.Info("Starting application", "runners", len(runners))

	for _, r := range runners {
		g.Go(func() error {
			return r.Run(ctx)
		})
	}

	// errgroup cancels the shared context on the first failure, so the
	// remaining runners wind down and Wait reports that first error
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error("Application stopped with error", "error", err)
		return err
	}

	a.Logger.Info("Application shut down gracefully")
	return nil
}

// Sync flushes buffered log entries
func (a *App) Sync() {
	if zl, ok := a.Logger.(*logging.ZapLogger); ok {
		_ = zl.Sync()
	}
}
