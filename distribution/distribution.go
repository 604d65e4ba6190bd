// Package distribution reads and writes distribution files: the immutable hand-off between
// the allocator and the batch submitter.
package distribution

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// JSON field names of a distribution file
const (
	FieldID      = "id"
	FieldToken   = "token"
	FieldAmounts = "amounts"
	FieldTypeID  = "distributionTypeId"
)

// Sentinel errors for distribution files
var (
	ErrInvalidFile = errors.New("invalid distribution file")
	ErrFileExists  = errors.New("distribution file already exists")
)

// FieldError describes which field of a distribution file failed validation
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidFile, e.Field, e.Reason)
}

// Is matches ErrInvalidFile
func (e *FieldError) Is(target error) bool {
	return target == ErrInvalidFile
}

func invalid(field, format string, args ...any) error {
	return &FieldError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Amount is a single payout. Amounts keep the order in which they appear in the file.
type Amount struct {
	Recipient common.Address
	Value     *big.Int
}

// File is a complete distribution
type File struct {
	ID      int64
	Token   common.Address
	Amounts []Amount
	TypeID  int64
}

// Total returns the sum of all amounts
func (f File) Total() *big.Int {
	total := new(big.Int)
	for _, a := range f.Amounts {
		total.Add(total, a.Value)
	}
	return total
}

// Len returns the number of recipients
func (f File) Len() int {
	return len(f.Amounts)
}

// Validate checks the invariants Decode enforces, for files built in code
func (f File) Validate() error {
	if f.ID <= 0 {
		return invalid(FieldID, "must be positive, got %d", f.ID)
	}
	if f.Token == (common.Address{}) {
		return invalid(FieldToken, "must not be the zero address")
	}
	if f.TypeID < 0 {
		return invalid(FieldTypeID, "must not be negative, got %d", f.TypeID)
	}

	for _, a := range f.Amounts {
		if a.Value == nil || a.Value.Sign() < 0 {
			return invalid(FieldAmounts, "amount for %s must not be negative", a.Recipient.Hex())
		}
	}
	return nil
}
