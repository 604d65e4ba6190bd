// Package allocator computes per-account liquidity incentive rewards for a period.
package allocator

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/screwyprof/distributor/distribution"
	"github.com/screwyprof/distributor/pkg/units"
)

// Sentinel errors for failure cases
var (
	ErrReconciliation = errors.New("market balances do not reconcile with supply")
	ErrOverAllocation = errors.New("rewards exceed the period allocation")
	ErrInvalidPeriod  = errors.New("invalid period")
	ErrSourceFailed   = errors.New("allocation source failed")
)

// Default configuration values
var (
	// DefaultMinReward is 0.1 token
	DefaultMinReward = new(big.Int).Exp(big.NewInt(10), big.NewInt(units.TokenDecimals-1), nil)
	// DefaultTolerance is 1 token
	DefaultTolerance = new(big.Int).Exp(big.NewInt(10), big.NewInt(units.TokenDecimals), nil)
)

// AllocationRecord is an account's market token balance in a market
type AllocationRecord struct {
	Account         common.Address
	Market          common.Address
	WeightedBalance *big.Int
}

// MarketSupply is a market's weighted-average token supply for the period
type MarketSupply struct {
	Market common.Address
	Supply *big.Int
}

// MarketAllocation is the reward budget of a market for the period
type MarketAllocation struct {
	Market       common.Address
	TotalRewards *big.Int
}

// UserReward is the aggregated reward of one account across markets
type UserReward struct {
	Account common.Address
	Amount  *big.Int
}

// Input is everything Compute needs for one period
type Input struct {
	Period Period
	// Stats are weighted-average balances over the period
	Stats []AllocationRecord
	// CurrentBalances cover accounts with no stat record in a market
	CurrentBalances []AllocationRecord
	Supplies        []MarketSupply
	Allocations     []MarketAllocation
}

// Result is a computed distribution
type Result struct {
	Period     Period
	ComputedAt time.Time
	// Rewards are paid, ascending by amount
	Rewards []UserReward
	// Excluded fell below the minimum reward or earned nothing
	Excluded       []UserReward
	TotalAllocated *big.Int
	TotalIncluded  *big.Int
	TotalExcluded  *big.Int
}

// Distribution converts the paid rewards to a distribution file, keeping reward order
func (r Result) Distribution(id int64, token common.Address, typeID int64) distribution.File {
	amounts := make([]distribution.Amount, len(r.Rewards))
	for i, reward := range r.Rewards {
		amounts[i] = distribution.Amount{Recipient: reward.Account, Value: new(big.Int).Set(reward.Amount)}
	}
	return distribution.File{
		ID:      id,
		Token:   token,
		Amounts: amounts,
		TypeID:  typeID,
	}
}

// Source fetches allocation inputs for a period
// ---------------------------------------------
type Source interface {
	Stats(ctx context.Context, period Period) ([]AllocationRecord, error)
	CurrentBalances(ctx context.Context, period Period) ([]AllocationRecord, error)
	Supplies(ctx context.Context, period Period) ([]MarketSupply, error)
	Allocations(ctx context.Context, period Period) ([]MarketAllocation, error)
}

// Clock abstracts time for production and testing
type Clock interface {
	Now() time.Time
}

// ReconciliationError reports a market whose balances do not add up to its supply
type ReconciliationError struct {
	Market      common.Address
	BalancesSum *big.Int
	Supply      *big.Int
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("%s: market %s: balances sum %s, supply %s",
		ErrReconciliation, e.Market.Hex(), e.BalancesSum, e.Supply)
}

// Is matches ErrReconciliation
func (e *ReconciliationError) Is(target error) bool {
	return target == ErrReconciliation
}

// OverAllocationError reports rewards that exceed the period's budget
type OverAllocationError struct {
	Included  *big.Int
	Allocated *big.Int
}

func (e *OverAllocationError) Error() string {
	return fmt.Sprintf("%s: included %s, allocated %s", ErrOverAllocation, e.Included, e.Allocated)
}

// Is matches ErrOverAllocation
func (e *OverAllocationError) Is(target error) bool {
	return target == ErrOverAllocation
}
