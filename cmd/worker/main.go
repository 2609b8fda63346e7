// Package main implements the entry point for the augur background worker,
// which consumes the durable job queue and runs plan refreshes, Todoist
// sync and reconcile passes, and inbox compaction.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/augur/internal/config"
	"github.com/phrazzld/augur/internal/platform/logger"
	"github.com/phrazzld/augur/internal/platform/postgres"
)

func main() {
	migrateCmd := flag.String("migrate", "",
		"run a migration command (up, down, status, version) and exit")
	configPath := flag.String("config", "",
		"path to an optional config file; environment variables take precedence")
	flag.Parse()

	if err := run(*migrateCmd, *configPath); err != nil {
		log.Fatalf("worker failed: %v", err)
	}
}

// run wires the application together and blocks until the worker stops.
// Returning instead of exiting keeps the startup path testable.
func run(migrateCmd, configPath string) error {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Worker)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	appLogger.Info("worker starting",
		"log_level", cfg.Worker.LogLevel,
		"max_attempts", cfg.Worker.MaxAttempts)

	db, err := setupWorkerDatabase(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}

	// An explicit migration command runs and exits without starting the
	// worker loop.
	if migrateCmd != "" {
		defer closeDatabase(db, appLogger)
		appLogger.Info("running migration command", "command", migrateCmd)
		return postgres.RunMigrations(db, migrateCmd)
	}

	// Normal startup applies pending migrations before taking any jobs.
	if err := postgres.RunMigrations(db, "up"); err != nil {
		closeDatabase(db, appLogger)
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, cfg, appLogger, db)
	if err != nil {
		closeDatabase(db, appLogger)
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.cleanup()

	err = app.Run(ctx)
	if errors.Is(err, context.Canceled) {
		// A signal-triggered stop is a clean shutdown, not a failure.
		appLogger.Info("worker stopped")
		return nil
	}
	return err
}
