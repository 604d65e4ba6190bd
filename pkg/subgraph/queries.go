package subgraph

import (
	"context"
	"fmt"
)

// IncentivesPeriod is the stats aggregation period used by the indexer
const IncentivesPeriod = "1w"

// LiquidityProviderIncentivesStat is a per-account, per-market weighted-average balance for a period
type LiquidityProviderIncentivesStat struct {
	ID                                 string `json:"id"`
	Account                            string `json:"account"`
	MarketAddress                      string `json:"marketAddress"`
	WeightedAverageMarketTokensBalance string `json:"weightedAverageMarketTokensBalance"`
}

// MarketIncentivesStat is a per-market weighted-average token supply for a period
type MarketIncentivesStat struct {
	ID                                string `json:"id"`
	MarketAddress                     string `json:"marketAddress"`
	WeightedAverageMarketTokensSupply string `json:"weightedAverageMarketTokensSupply"`
}

// LiquidityProviderInfo is an account's current market token balance
type LiquidityProviderInfo struct {
	ID            string `json:"id"`
	Account       string `json:"account"`
	MarketAddress string `json:"marketAddress"`
	TokensBalance string `json:"tokensBalance"`
}

// IncentivesAllocation is the reward amount allocated to a market for a period
type IncentivesAllocation struct {
	ID            string `json:"id"`
	MarketAddress string `json:"marketAddress"`
	RewardsAmount string `json:"rewardsAmount"`
}

const lpStatsQuery = `query lpStats($periodStart: Int!, $period: String!, $first: Int!, $lastID: ID!) {
  items: liquidityProviderIncentivesStats(
    first: $first
    orderBy: id
    where: { timestamp: $periodStart, period: $period, id_gt: $lastID }
  ) {
    id
    account
    marketAddress
    weightedAverageMarketTokensBalance
  }
}`

const marketStatsQuery = `query marketStats($periodStart: Int!, $period: String!, $first: Int!, $lastID: ID!) {
  items: marketIncentivesStats(
    first: $first
    orderBy: id
    where: { timestamp: $periodStart, period: $period, id_gt: $lastID }
  ) {
    id
    marketAddress
    weightedAverageMarketTokensSupply
  }
}`

const lpInfosQuery = `query lpInfos($block: Int!, $first: Int!, $lastID: ID!) {
  items: liquidityProviderInfos(
    first: $first
    orderBy: id
    block: { number: $block }
    where: { tokensBalance_gt: 0, id_gt: $lastID }
  ) {
    id
    account
    marketAddress
    tokensBalance
  }
}`

const allocationsQuery = `query allocations($periodStart: Int!, $first: Int!, $lastID: ID!) {
  items: incentivesAllocations(
    first: $first
    orderBy: id
    where: { periodStart: $periodStart, id_gt: $lastID }
  ) {
    id
    marketAddress
    rewardsAmount
  }
}`

// LiquidityProviderIncentivesStats returns every account's weighted-average balance for the period
func (c *Client) LiquidityProviderIncentivesStats(ctx context.Context, periodStart int64, period string) ([]LiquidityProviderIncentivesStat, error) {
	return paginate(ctx, c, lpStatsQuery, map[string]any{
		"periodStart": periodStart,
		"period":      period,
	}, func(s LiquidityProviderIncentivesStat) string { return s.ID })
}

// MarketIncentivesStats returns every market's weighted-average supply for the period
func (c *Client) MarketIncentivesStats(ctx context.Context, periodStart int64, period string) ([]MarketIncentivesStat, error) {
	return paginate(ctx, c, marketStatsQuery, map[string]any{
		"periodStart": periodStart,
		"period":      period,
	}, func(s MarketIncentivesStat) string { return s.ID })
}

// LiquidityProviderInfos returns non-zero market token balances as of the given block
func (c *Client) LiquidityProviderInfos(ctx context.Context, block uint64) ([]LiquidityProviderInfo, error) {
	return paginate(ctx, c, lpInfosQuery, map[string]any{
		"block": block,
	}, func(i LiquidityProviderInfo) string { return i.ID })
}

// IncentivesAllocations returns the per-market reward allocation for the period
func (c *Client) IncentivesAllocations(ctx context.Context, periodStart int64) ([]IncentivesAllocation, error) {
	return paginate(ctx, c, allocationsQuery, map[string]any{
		"periodStart": periodStart,
	}, func(a IncentivesAllocation) string { return a.ID })
}

// paginate walks an id-ordered collection using id_gt cursors until a short page is returned
func paginate[T any](ctx context.Context, c *Client, query string, variables map[string]any, id func(T) string) ([]T, error) {
	var all []T
	lastID := ""

	for {
		vars := make(map[string]any, len(variables)+2)
		for k, v := range variables {
			vars[k] = v
		}
		vars["first"] = c.pageSize
		vars["lastID"] = lastID

		var page struct {
			Items []T `json:"items"`
		}
		if err := c.Query(ctx, query, vars, &page); err != nil {
			return nil, fmt.Errorf("querying page after %q: %w", lastID, err)
		}

		all = append(all, page.Items...)
		if len(page.Items) < c.pageSize {
			return all, nil
		}
		lastID = id(page.Items[len(page.Items)-1])
	}
}
