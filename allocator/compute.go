package allocator

import (
	"bytes"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/screwyprof/distributor/pkg/units"
)

// marketBalances maps account to balance within one market
type marketBalances map[common.Address]*big.Int

// Compute derives per-account rewards from input. It never touches the network.
//
// Each account's reward in a market is floor(balance * marketRewards / marketSupply); rewards are
// summed across markets and accounts below the minimum reward, or with nothing earned, are excluded.
// Every market seen in the balances or supplies is reconciled, allocated or not.
func Compute(input Input, opts ...Option) (Result, error) {
	cfg := newConfig(opts...)
	return compute(input, cfg)
}

func compute(input Input, cfg config) (Result, error) {
	if err := input.Period.Validate(); err != nil {
		return Result{}, err
	}

	balances := mergeBalances(input.Stats, input.CurrentBalances)
	supplies := indexSupplies(input.Supplies)
	budgets, totalAllocated := indexAllocations(input.Allocations)

	rewards := make(map[common.Address]*big.Int)
	for _, market := range sortedMarkets(budgets, balances, supplies) {
		accounts := balances[market]
		supply := supplies[market]
		if supply == nil {
			supply = new(big.Int)
		}

		sum := new(big.Int)
		for _, b := range accounts {
			sum.Add(sum, b)
		}

		if err := reconcile(market, sum, supply, cfg.tolerance); err != nil {
			return Result{}, err
		}
		budget, ok := budgets[market]
		if !ok || supply.Sign() == 0 {
			continue
		}

		for account, balance := range accounts {
			reward := units.MulDivFloor(balance, budget, supply)
			if total, ok := rewards[account]; ok {
				total.Add(total, reward)
			} else {
				rewards[account] = reward
			}
		}
	}

	result := Result{
		Period:         input.Period,
		TotalAllocated: totalAllocated,
		TotalIncluded:  new(big.Int),
		TotalExcluded:  new(big.Int),
	}
	for account, amount := range rewards {
		reward := UserReward{Account: account, Amount: amount}
		if amount.Sign() == 0 || amount.Cmp(cfg.minReward) < 0 {
			result.Excluded = append(result.Excluded, reward)
			result.TotalExcluded.Add(result.TotalExcluded, amount)
			continue
		}
		result.Rewards = append(result.Rewards, reward)
		result.TotalIncluded.Add(result.TotalIncluded, amount)
	}

	if result.TotalIncluded.Cmp(totalAllocated) > 0 {
		return Result{}, &OverAllocationError{Included: result.TotalIncluded, Allocated: totalAllocated}
	}

	sortRewards(result.Rewards)
	sortRewards(result.Excluded)
	return result, nil
}

// reconcile fails when |sum - supply| exceeds tolerance. A market with no supply only passes when nobody holds it.
func reconcile(market common.Address, sum, supply, tolerance *big.Int) error {
	diff := new(big.Int).Sub(sum, supply)
	fails := diff.Abs(diff).Cmp(tolerance) > 0
	if supply.Sign() == 0 {
		fails = sum.Sign() != 0
	}
	if fails {
		return &ReconciliationError{Market: market, BalancesSum: sum, Supply: new(big.Int).Set(supply)}
	}
	return nil
}

// mergeBalances indexes stats by market and fills in current balances for accounts without a stat
func mergeBalances(stats, current []AllocationRecord) map[common.Address]marketBalances {
	merged := make(map[common.Address]marketBalances)
	add := func(r AllocationRecord) {
		accounts, ok := merged[r.Market]
		if !ok {
			accounts = make(marketBalances)
			merged[r.Market] = accounts
		}
		if existing, ok := accounts[r.Account]; ok {
			existing.Add(existing, r.WeightedBalance)
			return
		}
		accounts[r.Account] = new(big.Int).Set(r.WeightedBalance)
	}

	for _, r := range stats {
		add(r)
	}
	for _, r := range current {
		if _, ok := merged[r.Market][r.Account]; ok {
			continue
		}
		add(r)
	}
	return merged
}

func indexSupplies(supplies []MarketSupply) map[common.Address]*big.Int {
	index := make(map[common.Address]*big.Int, len(supplies))
	for _, s := range supplies {
		index[s.Market] = s.Supply
	}
	return index
}

// indexAllocations sums allocations per market and in total
func indexAllocations(allocations []MarketAllocation) (map[common.Address]*big.Int, *big.Int) {
	index := make(map[common.Address]*big.Int, len(allocations))
	total := new(big.Int)
	for _, a := range allocations {
		total.Add(total, a.TotalRewards)
		if existing, ok := index[a.Market]; ok {
			existing.Add(existing, a.TotalRewards)
			continue
		}
		index[a.Market] = new(big.Int).Set(a.TotalRewards)
	}
	return index, total
}

// sortedMarkets returns every market that is allocated, held or supplied, in address order
func sortedMarkets(budgets map[common.Address]*big.Int, balances map[common.Address]marketBalances, supplies map[common.Address]*big.Int) []common.Address {
	seen := make(map[common.Address]struct{}, len(budgets)+len(balances)+len(supplies))
	for m := range budgets {
		seen[m] = struct{}{}
	}
	for m := range balances {
		seen[m] = struct{}{}
	}
	for m := range supplies {
		seen[m] = struct{}{}
	}

	markets := make([]common.Address, 0, len(seen))
	for m := range seen {
		markets = append(markets, m)
	}
	sort.Slice(markets, func(i, j int) bool {
		return bytes.Compare(markets[i][:], markets[j][:]) < 0
	})
	return markets
}

// sortRewards orders ascending by amount, then by account
func sortRewards(rewards []UserReward) {
	sort.Slice(rewards, func(i, j int) bool {
		if c := rewards[i].Amount.Cmp(rewards[j].Amount); c != 0 {
			return c < 0
		}
		return bytes.Compare(rewards[i].Account[:], rewards[j].Account[:]) < 0
	})
}
