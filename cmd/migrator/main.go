package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/screwyprof/distributor/migrator"
	"github.com/screwyprof/distributor/migrator/config"
	"github.com/screwyprof/distributor/pkg/logger"
	"github.com/screwyprof/distributor/pkg/pgxdb"
)

// These values are overridden at build time using -ldflags
var (
	version = "dev"
	date    = "unknown"
)

func main() {
	_ = godotenv.Load()

	cfg := config.New()

	dir := flag.String("dir", cfg.MigrationsDir, "directory holding the ledger migrations")
	rollback := flag.Int("rollback", cfg.Rollback, "revert this many migrations instead of applying")
	flag.Parse()
	cfg.MigrationsDir, cfg.Rollback = *dir, *rollback

	log := logger.NewFromConfig(logger.Config{
		LogLevel:         cfg.LogLevel,
		LogHumanFriendly: cfg.LogHumanFriendly,
	})
	slog.SetDefault(log)

	log.Info("Starting ledger schema migrator",
		slog.String("migrationsDir", cfg.MigrationsDir),
		slog.String("version", version),
		slog.String("date", date),
	)

	// Create a context that cancels on SIGINT/SIGTERM _or_ when the timeout elapses
	baseCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(baseCtx, cfg.OperationTimeout)
	defer cancel()

	if err := run(ctx, log, cfg); err != nil {
		log.ErrorContext(ctx, "Migration failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, cfg config.Config) error {
	db, err := pgxdb.NewConnection(ctx, cfg.DatabaseURL, pgxdb.WithMinConns(0), pgxdb.WithMaxConns(1))
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Rollback > 0 {
		n, err := migrator.RollbackMigrations(db, cfg.MigrationsDir, cfg.Rollback)
		if err != nil {
			return err
		}
		log.InfoContext(ctx, "Migrations reverted", slog.Int("count", n))
		return nil
	}

	n, err := migrator.ApplyMigrations(db, cfg.MigrationsDir)
	if err != nil {
		return err
	}
	log.InfoContext(ctx, "Migrations applied", slog.Int("count", n))
	return nil
}
