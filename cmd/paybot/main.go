package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/m3rciful/paybot/billing"
	"github.com/m3rciful/paybot/core/buildinfo"
	coreconfig "github.com/m3rciful/paybot/core/config"
	"github.com/m3rciful/paybot/core/database"
	"github.com/m3rciful/paybot/core/logger"
	coretelegram "github.com/m3rciful/paybot/core/telegram"
	"github.com/m3rciful/paybot/dialog/engine"
	"github.com/m3rciful/paybot/resolver"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "paybot: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := coreconfig.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(cfg); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		if err := logger.Shutdown(); err != nil {
			fmt.Fprintf(os.Stderr, "paybot: logger shutdown: %v\n", err)
		}
	}()

	logger.L.Info("starting",
		slog.String("event", "startup"),
		slog.String("version", buildinfo.Version),
		slog.String("commit", buildinfo.Commit),
	)

	opts := engine.Options{Config: cfg}

	if cfg.Database.Enabled() {
		if err := database.RunMigrations(cfg.Database); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		store := billing.NewPostgresStore(db)
		opts.Accounts = store
		opts.Receipts = store
	}

	if cfg.Resolver.BaseURL != "" {
		opts.Resolver = resolver.New(cfg.Resolver)
	} else {
		logger.L.Warn("resolver not configured, bill payments disabled",
			slog.String("event", "startup"),
		)
	}

	eng, err := engine.New(opts)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runOpts := coretelegram.RunOptions{
		Config:      cfg,
		Middlewares: coretelegram.DefaultMiddlewares(cfg, coretelegram.FloodNotice),
		Routes:      coretelegram.BuildRoutes(eng),
		OnStart: func(context.Context, coretelegram.Runtime) error {
			eng.Start()
			return nil
		},
		OnStop: func(context.Context, coretelegram.Runtime) error {
			eng.Stop()
			return nil
		},
	}

	return coretelegram.RunTelegram(ctx, runOpts)
}
