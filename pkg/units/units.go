// Package units converts between human token amounts and base-unit integers.
package units

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// TokenDecimals is the fixed-point precision of the reward token and market tokens.
const TokenDecimals = 18

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrNegativeAmount = errors.New("amount must not be negative")
	ErrFractionalBase = errors.New("amount has more decimals than the token supports")
)

// ParseTokens parses a human amount such as "0.1" into base units with the given decimals.
func ParseTokens(s string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidAmount, s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: %q", ErrNegativeAmount, s)
	}

	shifted := d.Shift(decimals)
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("%w: %q", ErrFractionalBase, s)
	}
	return shifted.BigInt(), nil
}

// ParseBase parses a base-unit decimal integer string such as "1000000000000000000".
func ParseBase(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a base-10 integer", ErrInvalidAmount, s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q", ErrNegativeAmount, s)
	}
	return v, nil
}

// FormatTokens renders base units as a human amount, e.g. 1500000000000000000 -> "1.5".
func FormatTokens(v *big.Int, decimals int32) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -decimals).String()
}

// Sum adds all values, treating nil as zero.
func Sum(values ...*big.Int) *big.Int {
	total := new(big.Int)
	for _, v := range values {
		if v != nil {
			total.Add(total, v)
		}
	}
	return total
}

// MulDivFloor returns floor(a*b/c) for non-negative operands.
func MulDivFloor(a, b, c *big.Int) *big.Int {
	product := new(big.Int).Mul(a, b)
	return product.Quo(product, c)
}
