package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/richblaalid/chuckbox/internal/app"
	"github.com/richblaalid/chuckbox/internal/config"
	"github.com/richblaalid/chuckbox/internal/logging"
)

// rootCmd runs the server when no subcommand is given
var rootCmd = &cobra.Command{
	Use:   "chuckbox",
	Short: "Scout unit administration server",
	Long: `ChuckBox keeps a Scout unit's roster, ledger and advancement records.

Run without a subcommand to start the HTTP API. Configuration comes from
config.yaml, .env and the environment.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(importBadgesCmd)
	rootCmd.AddCommand(importRosterCmd)
	rootCmd.AddCommand(reqnumCmd)
}

// main is the application entry point / Point d'entrée de l'application
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration and installs the default logger
// Charge la configuration et installe le logger par défaut
func loadConfig() (*config.Config, func() error, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, closeLog := logging.New(cfg.Logging, cfg.IsProduction(), os.Stdout)
	slog.SetDefault(logger)
	return cfg, closeLog, nil
}

// withContainer builds a worker-less container for one-shot commands
// Construit un conteneur sans workers pour les commandes ponctuelles
func withContainer(ctx context.Context, fn func(*app.Container) error) error {
	cfg, closeLog, err := loadConfig()
	if err != nil {
		return err
	}
	defer closeLog()

	container, err := app.NewContainer(ctx, cfg, app.Options{SkipWorkers: true})
	if err != nil {
		return err
	}
	defer container.Close()

	err = fn(container)
	container.Mailer.Wait()
	return err
}
