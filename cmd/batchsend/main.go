package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/screwyprof/distributor/batchsend"
	"github.com/screwyprof/distributor/cmd/batchsend/config"
	"github.com/screwyprof/distributor/distribution"
	"github.com/screwyprof/distributor/ledger"
	"github.com/screwyprof/distributor/ledger/filestore"
	"github.com/screwyprof/distributor/ledger/pgxstore"
	"github.com/screwyprof/distributor/pkg/chain"
	"github.com/screwyprof/distributor/pkg/logger"
	"github.com/screwyprof/distributor/pkg/metrics"
	"github.com/screwyprof/distributor/pkg/pgxdb"
	"github.com/screwyprof/distributor/pkg/units"
)

func main() {
	// A missing .env file is fine, the environment may already be set
	_ = godotenv.Load()

	// Load configuration
	cfg := config.New()

	file := flag.String("file", cfg.File, "distribution file to send")
	ledgerFile := flag.String("ledger", cfg.LedgerFile, "JSON ledger of completed distributions")
	flag.Parse()
	cfg.File, cfg.LedgerFile = *file, *ledgerFile

	// Initialize logger and set as default
	log := logger.WithRun(logger.NewFromConfig(logger.Config{
		LogLevel:         cfg.LogLevel,
		LogHumanFriendly: cfg.LogHumanFriendly,
	}), uuid.NewString())
	slog.SetDefault(log)

	// Prepare context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, cfg); err != nil {
		log.ErrorContext(ctx, "Batch send failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	dist, err := distribution.Load(cfg.File)
	if err != nil {
		return err
	}

	storage, closeStorage, err := openStorage(ctx, log, cfg)
	if err != nil {
		return err
	}
	defer closeStorage()

	book, err := ledger.Open(ctx, storage)
	if err != nil {
		return err
	}

	var client batchsend.Chain
	mode := batchsend.ModePlan
	if cfg.NeedsChain() {
		chainClient, closeChain, err := dialChain(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeChain()
		client = chainClient

		mode = batchsend.ModeLive
		if cfg.DryRun {
			mode = batchsend.ModeSimulate
		}
	}

	svc := batchsend.NewService(client, book,
		batchsend.WithMode(mode),
		batchsend.WithBatchSize(cfg.BatchSize),
		batchsend.WithSkipLedgerCheck(cfg.SkipLedgerCheck),
	)

	m := metrics.New()
	events, done := svc.Start(ctx, batchsend.RequestFromFile(dist))

	var sendErr error
	closer := setupEventLogging(ctx, events, log, m, func(err error) { sendErr = err })
	<-done
	closer()

	if sendErr == nil && mode == batchsend.ModeLive {
		m.LastSuccess.SetToCurrentTime()
	}
	if cfg.PushgatewayURL != "" {
		if err := m.Push(ctx, cfg.PushgatewayURL, "batchsend"); err != nil {
			log.WarnContext(ctx, "Failed to push metrics", slog.Any("error", err))
		}
	}
	return sendErr
}

// openStorage selects the Postgres ledger when a database URL is set, the JSON file otherwise
func openStorage(ctx context.Context, log *slog.Logger, cfg config.Config) (ledger.Storage, func(), error) {
	if cfg.DatabaseURL == "" {
		log.InfoContext(ctx, "Using file ledger", slog.String("path", cfg.LedgerFile))
		return filestore.New(cfg.LedgerFile), func() {}, nil
	}

	// One load and one save per run
	db, err := pgxdb.NewConnection(ctx, cfg.DatabaseURL, pgxdb.WithMinConns(0), pgxdb.WithMaxConns(2))
	if err != nil {
		return nil, nil, err
	}
	store, storeCloser := pgxstore.New(db)

	log.InfoContext(ctx, "Using database ledger")
	return store, storeCloser, nil
}

func dialChain(ctx context.Context, cfg config.Config) (*chain.Client, func(), error) {
	key, _, err := chain.ParsePrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, nil, err
	}

	backend, err := chain.Dial(ctx, cfg.RPCURL)
	if err != nil {
		return nil, nil, err
	}

	client, err := chain.NewClient(ctx, backend, key, cfg.BatchSender)
	if err != nil {
		backend.Close()
		return nil, nil, err
	}
	return client, backend.Close, nil
}

// setupEventLogging configures event handlers using slog directly
func setupEventLogging(ctx context.Context, events <-chan batchsend.Event, log *slog.Logger, m *metrics.Metrics, onFailure func(error)) func() {
	return batchsend.NewSubscriber(events,
		batchsend.OnSendStarted(func(e batchsend.SendStarted) {
			if e.PreviouslyCompleted != nil {
				log.WarnContext(ctx, "Ledger check skipped for a completed distribution",
					slog.Int64("distributionID", e.DistributionID),
					slog.String("completedAt", e.PreviouslyCompleted.Format(logger.BritishTimeFormat)),
				)
			}
			log.InfoContext(ctx, "Send started",
				slog.Int64("distributionID", e.DistributionID),
				slog.String("mode", e.Mode.String()),
				slog.String("sender", e.Sender.Hex()),
				slog.Int("recipients", e.Recipients),
				slog.Int("batches", e.Batches),
				slog.String("total", units.FormatTokens(e.Total, units.TokenDecimals)),
			)
		}),
		batchsend.OnApprovalRequired(func(e batchsend.ApprovalRequired) {
			log.WarnContext(ctx, "Allowance too low",
				slog.Int("batch", e.Batch),
				slog.String("allowance", units.FormatTokens(e.Allowance, units.TokenDecimals)),
				slog.String("required", units.FormatTokens(e.Required, units.TokenDecimals)),
			)
		}),
		batchsend.OnApprovalConfirmed(func(e batchsend.ApprovalConfirmed) {
			log.InfoContext(ctx, "Approval confirmed",
				slog.Int("batch", e.Batch),
				slog.String("amount", units.FormatTokens(e.Amount, units.TokenDecimals)),
				slog.String("tx", e.TxHash.Hex()),
			)
		}),
		batchsend.OnBatchPlanned(func(e batchsend.BatchPlanned) {
			m.ObserveBatch(metrics.ResultPlanned, e.Batch.Len(), e.Batch.Total)
			log.InfoContext(ctx, "Batch planned",
				slog.Int("batch", e.Batch.Index),
				slog.Int("from", e.Batch.From),
				slog.Int("to", e.Batch.To),
				slog.String("total", units.FormatTokens(e.Batch.Total, units.TokenDecimals)),
			)
		}),
		batchsend.OnBatchSimulated(func(e batchsend.BatchSimulated) {
			m.ObserveBatch(metrics.ResultSimulated, e.Batch.Len(), e.Batch.Total)
			log.InfoContext(ctx, "Batch simulated",
				slog.Int("batch", e.Batch.Index),
				slog.Int("recipients", e.Batch.Len()),
			)
		}),
		batchsend.OnBatchConfirmed(func(e batchsend.BatchConfirmed) {
			m.ObserveBatch(metrics.ResultConfirmed, e.Batch.Len(), e.Batch.Total)
			log.InfoContext(ctx, "Batch confirmed",
				slog.Int("batch", e.Batch.Index),
				slog.Int("recipients", e.Batch.Len()),
				slog.String("total", units.FormatTokens(e.Batch.Total, units.TokenDecimals)),
				slog.String("tx", e.TxHash.Hex()),
			)
		}),
		batchsend.OnSendDone(func(e batchsend.SendDone) {
			log.InfoContext(ctx, "Send completed",
				slog.Int64("distributionID", e.Result.DistributionID),
				slog.String("mode", e.Result.Mode.String()),
				slog.Int("batches", e.Result.Batches),
				slog.Duration("duration", e.Duration),
			)
		}),
		batchsend.OnSendFailed(func(e batchsend.SendFailed) {
			if e.Batch >= 0 {
				m.ObserveBatch(metrics.ResultFailed, 0, nil)
			}
			log.ErrorContext(ctx, "Send aborted, ledger not updated",
				slog.Int64("distributionID", e.DistributionID),
				slog.Int("batch", e.Batch),
			)
			onFailure(e.Err)
		}),
	)
}
