package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
	"golang.org/x/time/rate"

	"github.com/screwyprof/distributor/allocator"
	"github.com/screwyprof/distributor/allocator/source/subgraphsource"
	"github.com/screwyprof/distributor/cmd/allocator/config"
	"github.com/screwyprof/distributor/distribution"
	"github.com/screwyprof/distributor/pkg/blocks"
	"github.com/screwyprof/distributor/pkg/logger"
	"github.com/screwyprof/distributor/pkg/metrics"
	"github.com/screwyprof/distributor/pkg/retry"
	"github.com/screwyprof/distributor/pkg/subgraph"
	"github.com/screwyprof/distributor/pkg/units"
)

func main() {
	// A missing .env file is fine, the environment may already be set
	_ = godotenv.Load()

	// Load configuration
	cfg := config.New()

	output := flag.String("output", cfg.Output, "distribution file to write (must not exist)")
	periodStart := flag.String("period-start", cfg.PeriodStart, "any date (YYYY-MM-DD) in the week to distribute")
	flag.Parse()

	// Initialize logger and set as default
	log := logger.WithRun(logger.NewFromConfig(logger.Config{
		LogLevel:         cfg.LogLevel,
		LogHumanFriendly: cfg.LogHumanFriendly,
	}), uuid.NewString())
	slog.SetDefault(log)

	// Prepare context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, cfg, *output, *periodStart); err != nil {
		log.ErrorContext(ctx, "Allocation failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, cfg config.Config, output, periodStart string) error {
	period, err := allocator.ParsePeriod(periodStart, time.Now())
	if err != nil {
		return err
	}

	minReward, err := units.ParseTokens(cfg.MinReward, units.TokenDecimals)
	if err != nil {
		return err
	}

	// HTTP clients for the indexer and the block lookup
	httpClient := &http.Client{Timeout: cfg.HttpClientTimeout}
	indexer := subgraph.NewClient(httpClient, cfg.SubgraphURL,
		subgraph.WithRateLimit(rate.Limit(cfg.RateLimit), 1),
	)
	blockFinder := blocks.NewClient(httpClient, cfg.BlocksURL, rate.NewLimiter(rate.Limit(cfg.RateLimit), 1), retry.DefaultConfig())

	svc := allocator.NewService(
		subgraphsource.New(indexer, blockFinder, cfg.Chain),
		allocator.WithMinReward(minReward),
	)

	log.InfoContext(ctx, "Computing distribution",
		slog.String("period", period.String()),
		slog.Int64("distributionID", cfg.DistributionID),
		slog.String("chain", cfg.Chain),
		slog.String("minReward", cfg.MinReward),
	)

	result, err := svc.Run(ctx, period)
	if err != nil {
		var recErr *allocator.ReconciliationError
		if errors.As(err, &recErr) {
			log.ErrorContext(ctx, "Market does not reconcile",
				slog.String("market", recErr.Market.Hex()),
				slog.String("balances", units.FormatTokens(recErr.BalancesSum, units.TokenDecimals)),
				slog.String("supply", units.FormatTokens(recErr.Supply, units.TokenDecimals)),
			)
		}
		return err
	}

	m := metrics.New()
	for _, excluded := range result.Excluded {
		m.ObserveExcluded(excluded.Amount)
		log.InfoContext(ctx, "Reward below minimum, excluded",
			slog.String("account", excluded.Account.Hex()),
			slog.String("amount", units.FormatTokens(excluded.Amount, units.TokenDecimals)),
		)
	}

	for _, reward := range result.Rewards {
		log.DebugContext(ctx, "Reward",
			slog.String("account", reward.Account.Hex()),
			slog.String("amount", units.FormatTokens(reward.Amount, units.TokenDecimals)),
		)
	}

	file := result.Distribution(cfg.DistributionID, cfg.Token, cfg.TypeID)
	if err := distribution.Write(output, file); err != nil {
		return err
	}

	log.InfoContext(ctx, "Distribution written",
		slog.String("output", output),
		slog.Int("recipients", file.Len()),
		slog.String("allocated", units.FormatTokens(result.TotalAllocated, units.TokenDecimals)),
		slog.String("included", units.FormatTokens(result.TotalIncluded, units.TokenDecimals)),
		slog.String("excluded", units.FormatTokens(result.TotalExcluded, units.TokenDecimals)),
		slog.String("computedAt", result.ComputedAt.Format(logger.BritishTimeFormat)),
	)

	if cfg.PushgatewayURL != "" {
		if err := m.Push(ctx, cfg.PushgatewayURL, "allocator"); err != nil {
			log.WarnContext(ctx, "Failed to push metrics", slog.Any("error", err))
		}
	}
	return nil
}
