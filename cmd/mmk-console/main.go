package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/target/mmk-console/config"
	"github.com/target/mmk-console/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	level := new(slog.LevelVar)
	logger := bootstrap.InitLogger(level)
	if err := run(ctx, logger, level); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger, level *slog.LevelVar) (err error) {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	level.Set(cfg.SlogLevel())
	logStartupInfo(ctx, logger, &cfg)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewApp(ctx, bootstrap.AppDeps{Config: &cfg, Logger: logger})
	if err != nil {
		return fmt.Errorf("build console: %w", err)
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	if err = app.Start(ctx); err != nil {
		return err
	}

	return bootstrap.RunHTTPServer(ctx, bootstrap.HTTPServerConfig{
		Addr:            cfg.HTTP.Addr,
		Handler:         app.Handler,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
		Logger:          logger,
	})
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting mmk console",
		"auth_mode", cfg.Auth.Mode,
		"store_backend", cfg.Store.Backend,
		"store_scope", cfg.Store.Scope,
		"role_hints", cfg.Auth.RoleHints,
		"dev", cfg.IsDev,
	)
}
