package batchsend

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/screwyprof/distributor/pkg/clock"
)

// Option configures the Service
// ------------------------------------------------
type Option func(*Service)

// WithBatchSize sets the number of recipients per batch
func WithBatchSize(n int) Option {
	return func(s *Service) { s.batchSize = n }
}

// WithMode selects plan, simulate or live sending
func WithMode(m Mode) Option {
	return func(s *Service) { s.mode = m }
}

// WithSkipLedgerCheck allows resending a distribution the ledger marks as completed
func WithSkipLedgerCheck(skip bool) Option {
	return func(s *Service) { s.skipLedgerCheck = skip }
}

// WithClock injects a custom Clock (e.g., for testing)
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// Service submits distributions batch by batch
// --------------------------------------------
type Service struct {
	chain           Chain
	ledger          Ledger
	clock           Clock
	batchSize       int
	mode            Mode
	skipLedgerCheck bool
}

// NewService constructs a Service with required dependencies and options
// ---------------------------------------------------------------------
// By default, it uses a real clock, 150 recipients per batch and plan mode.
// chain may be nil in plan mode.
func NewService(chain Chain, ledger Ledger, opts ...Option) *Service {
	s := &Service{
		chain:     chain,
		ledger:    ledger,
		clock:     clock.SystemClock{},
		batchSize: DefaultBatchSize,
		mode:      ModePlan,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start sends req in the background and returns the events channel and done channel.
// The events channel closes after a final SendDone or SendFailed event.
//
// Example:
//
//	events, done := service.Start(ctx, req)
//	closer := batchsend.NewSubscriber(events, batchsend.OnSendFailed(...))
//	defer closer()
//	<-done
func (s *Service) Start(ctx context.Context, req Request) (<-chan Event, <-chan struct{}) {
	events := make(chan Event, 10)
	done := make(chan struct{})
	go func() {
		defer close(events)
		defer close(done)
		s.run(ctx, req, events)
	}()
	return events, done
}

// Send runs a send to completion and returns its result
func (s *Service) Send(ctx context.Context, req Request) (Result, error) {
	var (
		result Result
		err    error
	)
	events, done := s.Start(ctx, req)
	closer := NewSubscriber(events,
		OnSendDone(func(e SendDone) { result = e.Result }),
		OnSendFailed(func(e SendFailed) { err = e.Err }),
	)
	<-done
	closer()
	return result, err
}

// run executes the ledger check, validation and sequential submission
func (s *Service) run(ctx context.Context, req Request, events chan<- Event) {
	fail := func(batch int, err error) {
		events <- SendFailed{DistributionID: req.DistributionID, Batch: batch, Err: err}
	}

	if s.batchSize <= 0 {
		fail(-1, fmt.Errorf("%w: %d", ErrInvalidBatchSize, s.batchSize))
		return
	}

	var previouslyCompleted *time.Time
	if at, ok := s.ledger.CompletedAt(req.DistributionID); ok {
		if !s.skipLedgerCheck {
			fail(-1, fmt.Errorf("%w: distribution %d completed at %s", ErrAlreadySent, req.DistributionID, at.Format(time.RFC3339)))
			return
		}
		previouslyCompleted = &at
	}

	batches := Partition(req.Amounts, s.batchSize)
	if err := validate(batches); err != nil {
		fail(-1, err)
		return
	}

	start := s.clock.Now()
	total := remaining(batches, 0)

	var sender common.Address
	if s.mode != ModePlan {
		sender = s.chain.Sender()
	}

	events <- SendStarted{
		DistributionID:      req.DistributionID,
		Mode:                s.mode,
		Sender:              sender,
		Recipients:          len(req.Amounts),
		Batches:             len(batches),
		Total:               total,
		StartedAt:           start,
		PreviouslyCompleted: previouslyCompleted,
	}

	result := Result{
		DistributionID: req.DistributionID,
		Mode:           s.mode,
		Batches:        len(batches),
		Recipients:     len(req.Amounts),
		Total:          total,
	}

	typeID := big.NewInt(req.TypeID)
	for _, batch := range batches {
		if err := ctx.Err(); err != nil {
			fail(batch.Index, fmt.Errorf("%w: %w", ErrSubmission, err))
			return
		}

		switch s.mode {
		case ModePlan:
			events <- BatchPlanned{Batch: batch}

		case ModeSimulate:
			funded, err := s.checkAllowance(ctx, req.Token, batches, batch.Index, events)
			if err != nil {
				fail(batch.Index, err)
				return
			}
			if !funded {
				continue
			}
			if err := s.chain.SimulateBatch(ctx, req.Token, batch.Recipients, batch.Amounts, typeID); err != nil {
				fail(batch.Index, fmt.Errorf("%w: batch %d: %w", ErrSubmission, batch.Index, err))
				return
			}
			events <- BatchSimulated{Batch: batch}

		case ModeLive:
			if err := s.ensureAllowance(ctx, req.Token, batches, batch.Index, events); err != nil {
				fail(batch.Index, err)
				return
			}
			hash, err := s.chain.SendBatch(ctx, req.Token, batch.Recipients, batch.Amounts, typeID)
			if err != nil {
				fail(batch.Index, fmt.Errorf("%w: batch %d: %w", ErrSubmission, batch.Index, err))
				return
			}
			result.TxHashes = append(result.TxHashes, hash)
			events <- BatchConfirmed{Batch: batch, TxHash: hash}
		}
	}

	if s.mode == ModeLive {
		completedAt := s.clock.Now()
		// every batch is on-chain, so the record must outlive a late cancellation
		if err := s.ledger.MarkCompleted(context.WithoutCancel(ctx), req.DistributionID, completedAt); err != nil {
			fail(-1, fmt.Errorf("%w: %w", ErrLedgerUpdate, err))
			return
		}
		result.CompletedAt = completedAt
	}

	events <- SendDone{Result: result, Duration: s.clock.Now().Sub(start)}
}

// checkAllowance reports whether the allowance covers the batches from index on,
// emitting ApprovalRequired when it does not
func (s *Service) checkAllowance(ctx context.Context, token common.Address, batches []Batch, index int, events chan<- Event) (bool, error) {
	allowance, err := s.chain.Allowance(ctx, token)
	if err != nil {
		return false, fmt.Errorf("%w: batch %d: %w", ErrSubmission, index, err)
	}

	required := remaining(batches, index)
	if allowance.Cmp(required) >= 0 {
		return true, nil
	}
	events <- ApprovalRequired{Batch: index, Allowance: allowance, Required: required}
	return false, nil
}

// ensureAllowance approves the remaining total when the allowance does not cover it
func (s *Service) ensureAllowance(ctx context.Context, token common.Address, batches []Batch, index int, events chan<- Event) error {
	funded, err := s.checkAllowance(ctx, token, batches, index, events)
	if err != nil || funded {
		return err
	}

	required := remaining(batches, index)
	hash, err := s.chain.Approve(ctx, token, required)
	if err != nil {
		return fmt.Errorf("%w: approve %s: %w", ErrSubmission, required, err)
	}
	events <- ApprovalConfirmed{Batch: index, Amount: required, TxHash: hash}
	return nil
}
