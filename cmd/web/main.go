package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/screwyprof/distributor/pkg/logger"
	"github.com/screwyprof/distributor/pkg/pgxdb"
	"github.com/screwyprof/distributor/web/config"
	"github.com/screwyprof/distributor/web/handler"
	"github.com/screwyprof/distributor/web/store/pgxstore"
)

var (
	version = "dev"
	date    = "unknown"
)

const shutdownTimeout = 30 * time.Second

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := config.New()

	// Initialize logger and set as default
	log := logger.NewFromConfig(logger.Config{
		LogLevel:         cfg.LogLevel,
		LogHumanFriendly: cfg.LogHumanFriendly,
	})
	slog.SetDefault(log)

	// Prepare context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.InfoContext(ctx, "Distribution status API starting",
		slog.String("version", version),
		slog.String("date", date),
	)

	if err := run(ctx, log, cfg); err != nil {
		log.ErrorContext(ctx, "Status API failed", slog.Any("error", err))
		os.Exit(1)
	}

	log.InfoContext(ctx, "Server exited gracefully")
}

func run(ctx context.Context, log *slog.Logger, cfg config.Config) error {
	db, err := pgxdb.NewConnection(ctx, cfg.DatabaseURL, pgxdb.WithMaxConns(cfg.MaxConns))
	if err != nil {
		return err
	}

	// The finder owns the pool from here on
	finder, closeFinder := pgxstore.New(db)
	defer closeFinder()

	mux := http.NewServeMux()
	handler.NewLedgerGetDistributions(finder).AddRoutes(mux)
	handler.NewHealth(db).AddRoutes(mux)

	addr := net.JoinHostPort(cfg.HTTPHost, cfg.HTTPPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           logger.NewMiddleware(log)(mux),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.InfoContext(ctx, "Server started", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.InfoContext(ctx, "Shutting down server...")

	// Give outstanding requests time to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
