package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"blendguard/internal/alert"
	"blendguard/internal/api"
	"blendguard/internal/bootstrap"
	"blendguard/internal/bot"
	"blendguard/internal/deeplink"
	"blendguard/internal/infrastructure/health"
	"blendguard/internal/infrastructure/metrics"
	"blendguard/internal/position"
	"blendguard/internal/protection"
	"blendguard/pkg/concurrency"
	"blendguard/pkg/telemetry"

	"github.com/shopspring/decimal"
)

var (
	// Version information (set via build flags)
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "configs/blendguard.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("blendguard version %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "blendguard: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// Summaries and receipts carry decimals; the frontend expects JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	app, err := bootstrap.NewApp(configPath)
	if err != nil {
		return err
	}
	defer app.Sync()

	cfg := app.Cfg
	logger := app.Logger

	tel, err := telemetry.Setup(telemetry.Options{
		ServiceName:    cfg.App.Name,
		ServiceVersion: version,
		Environment:    cfg.Vault.Network,
		Attributes:     cfg.Telemetry.ResourceAttributes,
		Metrics:        cfg.Telemetry.EnableMetrics,
		StdoutTraces:   cfg.Telemetry.StdoutTraces,
		StdoutLogs:     cfg.Telemetry.StdoutLogs,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(ctx); err != nil {
			logger.Warn("Telemetry shutdown failed", "error", err)
		}
	}()

	logger.Info("Starting BlendGuard backend",
		"version", version,
		"addr", cfg.Addr(),
		"vault", cfg.Vault.ContractID,
		"network", cfg.Vault.Network,
	)

	store, err := protection.NewSQLiteReceiptStore(cfg.Storage.Path, cfg.Storage.WALMode)
	if err != nil {
		return fmt.Errorf("receipt store: %w", err)
	}
	defer store.Close()

	hm := health.NewHealthManager(logger)
	hm.Register("receipt_store", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return store.Ping(ctx)
	})

	pool := concurrency.NewWorkerPool(concurrency.PoolConfig{
		Name:        "alerts",
		MaxWorkers:  cfg.Concurrency.AlertPoolSize,
		MaxCapacity: cfg.Concurrency.AlertPoolBuffer,
		NonBlocking: true,
	}, logger)
	alerts := alert.NewAlertManager(logger, pool)
	defer alerts.Stop()

	var telegram *alert.TelegramChannel
	if token := cfg.Telegram.BotToken.Value(); token != "" {
		telegram = alert.NewTelegramChannel(cfg.Telegram.APIURL, token, cfg.Telegram.ChatID)
		alerts.AddChannel(telegram)
	}
	if webhook := cfg.Slack.WebhookURL.Value(); webhook != "" {
		alerts.AddChannel(alert.NewSlackChannel(webhook))
	}
	if len(alerts.Channels()) == 0 {
		logger.Warn("No alert channels configured, notifications will only be logged")
	}

	// Gauges export only the positions the service tracks, never arbitrary looked-up ids
	for _, s := range position.GetUserPositions("") {
		telemetry.GetGlobalMetrics().TrackPositions(s.ID)
	}

	source := position.NewFixedSource()
	signer := deeplink.NewSigner(cfg.Deeplink.Secret.Value(), cfg.App.FrontendURL)
	vault := protection.NewVault(source, store, protection.VaultInfo{
		ContractID: cfg.Vault.ContractID,
		Version:    cfg.Vault.Version,
		Network:    cfg.Vault.Network,
	}, logger)

	opts := api.Options{
		Addr:              cfg.Addr(),
		Positions:         source,
		Signer:            signer,
		Alerts:            alerts,
		Vault:             vault,
		Health:            hm,
		WebhookSecret:     cfg.Telegram.WebhookSecret.Value(),
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	}
	if telegram != nil {
		opts.Bot = bot.New(source, signer, vault, alerts, telegram, logger)
	}

	runners := []bootstrap.Runner{api.NewServer(opts, logger)}
	if cfg.Telemetry.EnableMetrics {
		runners = append(runners, metrics.NewServer(cfg.Telemetry.MetricsPort, tel.Gatherer(), logger))
	}

	return app.Run(runners...)
}
