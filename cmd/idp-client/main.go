// Command idp-client runs the example host application: the auth handlers
// under APP_AUTH_PATH plus a protected home page and admin page.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/avisitor/idp-client/config"
	"github.com/avisitor/idp-client/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	cfg, err := bootstrap.LoadValidConfig()
	logger := bootstrap.InitLogger(cfg.Log)
	if err != nil {
		logger.ErrorContext(ctx, "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
	if err := run(ctx, logger, &cfg); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logStartupInfo(ctx, logger, cfg)

	stores, err := bootstrap.ConnectStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stores.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close stores failed", "error", cerr)
		}
	}()

	auth, err := bootstrap.BuildAuth(bootstrap.AuthDeps{
		Config: cfg,
		DB:     stores.DB,
		Redis:  stores.Redis,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := auth.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close auth failed", "error", cerr)
		}
	}()

	return bootstrap.RunHTTP(ctx, bootstrap.HTTPServerConfig{
		Addr:            cfg.HTTP.Addr,
		Handler:         auth.Router,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
		Logger:          logger,
	})
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting idp-client",
		"app", cfg.App.Name,
		"base_url", cfg.App.BaseURL,
		"auth_path", cfg.App.AuthPath,
		"external_auth", cfg.Auth.UseExternalAuth,
		"idp_url", cfg.IDP.URL,
		"dev", cfg.IsDev,
	)
}
