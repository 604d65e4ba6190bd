// Package subgraphsource feeds the allocator from the incentives subgraph.
package subgraphsource

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/screwyprof/distributor/allocator"
	"github.com/screwyprof/distributor/pkg/blocks"
	"github.com/screwyprof/distributor/pkg/subgraph"
	"github.com/screwyprof/distributor/pkg/units"
)

var (
	ErrInvalidRecord = errors.New("invalid subgraph record")
	ErrBlockLookup   = errors.New("block lookup failed")
)

// Client is the subset of the subgraph client the source needs
type Client interface {
	LiquidityProviderIncentivesStats(ctx context.Context, periodStart int64, period string) ([]subgraph.LiquidityProviderIncentivesStat, error)
	MarketIncentivesStats(ctx context.Context, periodStart int64, period string) ([]subgraph.MarketIncentivesStat, error)
	LiquidityProviderInfos(ctx context.Context, block uint64) ([]subgraph.LiquidityProviderInfo, error)
	IncentivesAllocations(ctx context.Context, periodStart int64) ([]subgraph.IncentivesAllocation, error)
}

// BlockFinder resolves timestamps to block heights
type BlockFinder interface {
	BlockByTimestamp(ctx context.Context, chain string, timestamp int64) (blocks.Block, error)
}

// Source implements allocator.Source
type Source struct {
	client Client
	blocks BlockFinder
	chain  string
}

// New creates a source reading chain's subgraph
func New(client Client, finder BlockFinder, chain string) *Source {
	return &Source{client: client, blocks: finder, chain: chain}
}

// Stats returns weighted-average balances for the period
func (s *Source) Stats(ctx context.Context, period allocator.Period) ([]allocator.AllocationRecord, error) {
	stats, err := s.client.LiquidityProviderIncentivesStats(ctx, period.From.Unix(), subgraph.IncentivesPeriod)
	if err != nil {
		return nil, err
	}

	records := make([]allocator.AllocationRecord, len(stats))
	for i, st := range stats {
		if records[i], err = toRecord(st.ID, st.Account, st.MarketAddress, st.WeightedAverageMarketTokensBalance); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// CurrentBalances returns balances at the first block at or after the end of the period
func (s *Source) CurrentBalances(ctx context.Context, period allocator.Period) ([]allocator.AllocationRecord, error) {
	block, err := s.blocks.BlockByTimestamp(ctx, s.chain, period.To.Unix())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBlockLookup, err)
	}

	infos, err := s.client.LiquidityProviderInfos(ctx, block.Height)
	if err != nil {
		return nil, err
	}

	records := make([]allocator.AllocationRecord, len(infos))
	for i, info := range infos {
		if records[i], err = toRecord(info.ID, info.Account, info.MarketAddress, info.TokensBalance); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// Supplies returns weighted-average market token supplies for the period
func (s *Source) Supplies(ctx context.Context, period allocator.Period) ([]allocator.MarketSupply, error) {
	stats, err := s.client.MarketIncentivesStats(ctx, period.From.Unix(), subgraph.IncentivesPeriod)
	if err != nil {
		return nil, err
	}

	supplies := make([]allocator.MarketSupply, len(stats))
	for i, st := range stats {
		market, err := parseAddress(st.ID, "marketAddress", st.MarketAddress)
		if err != nil {
			return nil, err
		}
		supply, err := parseAmount(st.ID, "weightedAverageMarketTokensSupply", st.WeightedAverageMarketTokensSupply)
		if err != nil {
			return nil, err
		}
		supplies[i] = allocator.MarketSupply{Market: market, Supply: supply}
	}
	return supplies, nil
}

// Allocations returns the reward budget per market for the period
func (s *Source) Allocations(ctx context.Context, period allocator.Period) ([]allocator.MarketAllocation, error) {
	items, err := s.client.IncentivesAllocations(ctx, period.From.Unix())
	if err != nil {
		return nil, err
	}

	allocations := make([]allocator.MarketAllocation, len(items))
	for i, item := range items {
		market, err := parseAddress(item.ID, "marketAddress", item.MarketAddress)
		if err != nil {
			return nil, err
		}
		rewards, err := parseAmount(item.ID, "rewardsAmount", item.RewardsAmount)
		if err != nil {
			return nil, err
		}
		allocations[i] = allocator.MarketAllocation{Market: market, TotalRewards: rewards}
	}
	return allocations, nil
}

func toRecord(id, account, market, balance string) (allocator.AllocationRecord, error) {
	acc, err := parseAddress(id, "account", account)
	if err != nil {
		return allocator.AllocationRecord{}, err
	}
	mkt, err := parseAddress(id, "marketAddress", market)
	if err != nil {
		return allocator.AllocationRecord{}, err
	}
	bal, err := parseAmount(id, "balance", balance)
	if err != nil {
		return allocator.AllocationRecord{}, err
	}
	return allocator.AllocationRecord{Account: acc, Market: mkt, WeightedBalance: bal}, nil
}

func parseAddress(id, field, v string) (common.Address, error) {
	if !common.IsHexAddress(v) {
		return common.Address{}, fmt.Errorf("%w: %s: %s %q is not an address", ErrInvalidRecord, id, field, v)
	}
	return common.HexToAddress(v), nil
}

func parseAmount(id, field, v string) (*big.Int, error) {
	amount, err := units.ParseBase(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s: %w", ErrInvalidRecord, id, field, err)
	}
	return amount, nil
}
