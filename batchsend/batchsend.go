// Package batchsend pays a distribution out through the batch-sender contract.
package batchsend

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/screwyprof/distributor/distribution"
)

// Sentinel errors for failure cases
var (
	ErrAlreadySent        = errors.New("distribution already sent")
	ErrDuplicateRecipient = errors.New("duplicate recipient in batch")
	ErrNoRecipients       = errors.New("distribution has no recipients")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidBatchSize   = errors.New("batch size must be positive")
	ErrSubmission         = errors.New("batch submission failed")
	ErrLedgerUpdate       = errors.New("recording completion failed")
)

// DefaultBatchSize is the number of recipients per sendAndEmit call
const DefaultBatchSize = 150

// Mode selects how far a send goes
type Mode int

const (
	// ModePlan validates and partitions without touching the chain
	ModePlan Mode = iota
	// ModeSimulate reads allowances and simulates each batch with eth_call
	ModeSimulate
	// ModeLive approves, submits and records completion
	ModeLive
)

func (m Mode) String() string {
	switch m {
	case ModePlan:
		return "plan"
	case ModeSimulate:
		return "simulate"
	case ModeLive:
		return "live"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// DuplicateRecipientError reports a recipient listed twice within the batch [From, To)
type DuplicateRecipientError struct {
	From      int
	To        int
	Recipient common.Address
}

func (e *DuplicateRecipientError) Error() string {
	return fmt.Sprintf("%s: %s in batch [%d, %d)", ErrDuplicateRecipient, e.Recipient.Hex(), e.From, e.To)
}

func (e *DuplicateRecipientError) Is(target error) bool {
	return target == ErrDuplicateRecipient
}

// Chain performs the token and batch-sender calls for a single sender
// --------------------------------------------------------------------
type Chain interface {
	Sender() common.Address
	Allowance(ctx context.Context, token common.Address) (*big.Int, error)
	Approve(ctx context.Context, token common.Address, amount *big.Int) (common.Hash, error)
	SendBatch(ctx context.Context, token common.Address, recipients []common.Address, amounts []*big.Int, typeID *big.Int) (common.Hash, error)
	SimulateBatch(ctx context.Context, token common.Address, recipients []common.Address, amounts []*big.Int, typeID *big.Int) error
}

// Ledger records completed distributions
type Ledger interface {
	HasCompleted(id int64) bool
	CompletedAt(id int64) (time.Time, bool)
	MarkCompleted(ctx context.Context, id int64, at time.Time) error
}

// Clock abstracts time for production and testing
// ------------------------------------------------
type Clock interface {
	Now() time.Time
}

// Request is a distribution to pay out, in file order
type Request struct {
	DistributionID int64
	Token          common.Address
	TypeID         int64
	Amounts        []distribution.Amount
}

// RequestFromFile builds a Request from a decoded distribution file
func RequestFromFile(f distribution.File) Request {
	return Request{
		DistributionID: f.ID,
		Token:          f.Token,
		TypeID:         f.TypeID,
		Amounts:        f.Amounts,
	}
}

// Result summarizes a finished send
type Result struct {
	DistributionID int64
	Mode           Mode
	Batches        int
	Recipients     int
	Total          *big.Int
	TxHashes       []common.Hash
	CompletedAt    time.Time
}

// Event represents a send lifecycle event
// ---------------------------------------
type Event any

type SendStarted struct {
	DistributionID int64
	Mode           Mode
	Sender         common.Address
	Recipients     int
	Batches        int
	Total          *big.Int
	StartedAt      time.Time
	// PreviouslyCompleted is set when the ledger check was skipped for a completed distribution
	PreviouslyCompleted *time.Time
}

type ApprovalRequired struct {
	Batch     int
	Allowance *big.Int
	Required  *big.Int
}

type ApprovalConfirmed struct {
	Batch  int
	Amount *big.Int
	TxHash common.Hash
}

type BatchPlanned struct {
	Batch Batch
}

type BatchSimulated struct {
	Batch Batch
}

type BatchConfirmed struct {
	Batch  Batch
	TxHash common.Hash
}

type SendDone struct {
	Result   Result
	Duration time.Duration
}

type SendFailed struct {
	DistributionID int64
	// Batch is the failing batch index, -1 when the send failed before any batch
	Batch int
	Err   error
}
