package batchsend

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/screwyprof/distributor/distribution"
)

// Batch is a contiguous slice [From, To) of a distribution
type Batch struct {
	Index      int
	From       int
	To         int
	Recipients []common.Address
	Amounts    []*big.Int
	Total      *big.Int
}

// Len returns the number of recipients in the batch
func (b Batch) Len() int {
	return len(b.Recipients)
}

// Partition splits amounts into batches of at most size recipients, preserving order.
// Size must be positive.
func Partition(amounts []distribution.Amount, size int) []Batch {
	batches := make([]Batch, 0, (len(amounts)+size-1)/size)
	for from := 0; from < len(amounts); from += size {
		to := min(from+size, len(amounts))

		batch := Batch{
			Index:      len(batches),
			From:       from,
			To:         to,
			Recipients: make([]common.Address, 0, to-from),
			Amounts:    make([]*big.Int, 0, to-from),
			Total:      new(big.Int),
		}
		for _, a := range amounts[from:to] {
			batch.Recipients = append(batch.Recipients, a.Recipient)
			batch.Amounts = append(batch.Amounts, a.Value)
			if a.Value != nil {
				batch.Total.Add(batch.Total, a.Value)
			}
		}
		batches = append(batches, batch)
	}
	return batches
}

// validate checks every batch before anything is sent
func validate(batches []Batch) error {
	if len(batches) == 0 {
		return ErrNoRecipients
	}

	for _, b := range batches {
		seen := make(map[common.Address]struct{}, b.Len())
		for i, recipient := range b.Recipients {
			if _, dup := seen[recipient]; dup {
				return &DuplicateRecipientError{From: b.From, To: b.To, Recipient: recipient}
			}
			seen[recipient] = struct{}{}

			if v := b.Amounts[i]; v == nil || v.Sign() <= 0 {
				return fmt.Errorf("%w: %s has %v", ErrInvalidAmount, recipient.Hex(), v)
			}
		}
	}
	return nil
}

// remaining sums the totals of batches[from:]
func remaining(batches []Batch, from int) *big.Int {
	total := new(big.Int)
	for _, b := range batches[from:] {
		total.Add(total, b.Total)
	}
	return total
}
