package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/richblaalid/chuckbox/internal/app"
	"github.com/richblaalid/chuckbox/internal/config"
	"github.com/richblaalid/chuckbox/internal/transport/web"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

// runServe initializes and starts the HTTP server / Initialise et démarre le serveur HTTP
func runServe(cmd *cobra.Command, _ []string) error {
	cfg, closeLog, err := loadConfig()
	if err != nil {
		return err
	}
	defer closeLog()

	logStartupInfo(cfg)

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := app.NewContainer(ctx, cfg, app.Options{})
	if err != nil {
		return err
	}
	defer container.Close()

	handler, mw := web.NewMux(ctx, web.NewHandler(container), container)
	defer mw.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	slog.Info("shutting down server gracefully")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	container.Mailer.Wait()
	slog.Info("server stopped")
	return nil
}

// logStartupInfo displays startup information / Affiche les informations de démarrage
func logStartupInfo(conf *config.Config) {
	slog.Info("starting chuckbox",
		"version", web.Version,
		"environment", conf.Environment,
		"port", conf.Server.Port,
		"database", conf.Database.Type,
		"square_enabled", conf.Square.Enabled,
	)

	if conf.RateLimiter.Enabled {
		slog.Info("rate limiter enabled",
			"global_rps", conf.RateLimiter.RPS,
			"global_burst", conf.RateLimiter.Burst,
		)
	} else {
		slog.Warn("rate limiter is DISABLED")
	}

	slog.Info("token durations",
		"access_token", conf.Auth.AccessTokenDuration,
		"refresh_token", conf.Auth.RefreshTokenDuration,
	)
}
