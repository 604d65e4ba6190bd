package allocator

import (
	"context"
	"fmt"
	"math/big"

	"github.com/screwyprof/distributor/pkg/clock"
)

// Option configures Compute and the Service
// ------------------------------------------------
type Option func(*config)

type config struct {
	minReward *big.Int
	tolerance *big.Int
	clock     Clock
}

func newConfig(opts ...Option) config {
	cfg := config{
		minReward: DefaultMinReward,
		tolerance: DefaultTolerance,
		clock:     clock.SystemClock{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithMinReward sets the smallest aggregated reward, in base units, that is paid
func WithMinReward(v *big.Int) Option {
	return func(c *config) { c.minReward = v }
}

// WithTolerance sets the allowed gap, in base units, between a market's balances and its supply
func WithTolerance(v *big.Int) Option {
	return func(c *config) { c.tolerance = v }
}

// WithClock injects a custom Clock (e.g., for testing)
func WithClock(c Clock) Option {
	return func(cfg *config) { cfg.clock = c }
}

// Service fetches inputs from a Source and computes rewards
// ---------------------------------------------------------
type Service struct {
	source Source
	cfg    config
}

// NewService constructs a Service with required dependencies and options
// By default, it uses a real clock, a 0.1 token minimum reward and a 1 token tolerance.
func NewService(source Source, opts ...Option) *Service {
	return &Service{
		source: source,
		cfg:    newConfig(opts...),
	}
}

// Run fetches every input for period, in order, and computes the rewards
func (s *Service) Run(ctx context.Context, period Period) (Result, error) {
	if err := period.Validate(); err != nil {
		return Result{}, err
	}

	input, err := s.fetch(ctx, period)
	if err != nil {
		return Result{}, err
	}

	result, err := compute(input, s.cfg)
	if err != nil {
		return Result{}, err
	}
	result.ComputedAt = s.cfg.clock.Now()
	return result, nil
}

func (s *Service) fetch(ctx context.Context, period Period) (Input, error) {
	input := Input{Period: period}

	var err error
	if input.Stats, err = s.source.Stats(ctx, period); err != nil {
		return Input{}, fmt.Errorf("%w: stats: %w", ErrSourceFailed, err)
	}
	if input.CurrentBalances, err = s.source.CurrentBalances(ctx, period); err != nil {
		return Input{}, fmt.Errorf("%w: current balances: %w", ErrSourceFailed, err)
	}
	if input.Supplies, err = s.source.Supplies(ctx, period); err != nil {
		return Input{}, fmt.Errorf("%w: supplies: %w", ErrSourceFailed, err)
	}
	if input.Allocations, err = s.source.Allocations(ctx, period); err != nil {
		return Input{}, fmt.Errorf("%w: allocations: %w", ErrSourceFailed, err)
	}
	return input, nil
}
