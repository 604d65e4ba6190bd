package subgraph_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/screwyprof/distributor/pkg/retry"
	"github.com/screwyprof/distributor/pkg/subgraph"
)

func TestClientQueriesLiquidityProviderStats(t *testing.T) {
	t.Parallel()

	t.Run("it follows id cursors until a short page", func(t *testing.T) {
		t.Parallel()

		// Arrange
		pages := [][]subgraph.LiquidityProviderIncentivesStat{
			{lpStat("a", "0x01", "10"), lpStat("b", "0x02", "20")},
			{lpStat("c", "0x03", "30")},
		}
		var seenCursors []string
		server := indexerServingPages(t, pages, &seenCursors)
		defer server.Close()

		client := newTestClient(server.URL, subgraph.WithPageSize(2))

		// Act
		stats, err := client.LiquidityProviderIncentivesStats(t.Context(), 1700000000, subgraph.IncentivesPeriod)

		// Assert
		require.NoError(t, err)
		require.Len(t, stats, 3)
		assert.Equal(t, "30", stats[2].WeightedAverageMarketTokensBalance)
		assert.Equal(t, []string{"", "b"}, seenCursors, "second page should start after the last id of the first")
	})

	t.Run("it surfaces graphql errors", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"errors":[{"message":"Unknown field"}]}`))
		}))
		defer server.Close()

		client := newTestClient(server.URL)

		// Act
		_, err := client.MarketIncentivesStats(t.Context(), 1700000000, subgraph.IncentivesPeriod)

		// Assert
		require.Error(t, err)
		assert.ErrorIs(t, err, subgraph.ErrGraphQL)
		assert.Contains(t, err.Error(), "Unknown field")
	})

	t.Run("it retries transient status codes", func(t *testing.T) {
		t.Parallel()

		// Arrange
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":{"items":[{"id":"m1","marketAddress":"0x01","rewardsAmount":"5"}]}}`))
		}))
		defer server.Close()

		client := newTestClient(server.URL)

		// Act
		allocations, err := client.IncentivesAllocations(t.Context(), 1700000000)

		// Assert
		require.NoError(t, err)
		require.Len(t, allocations, 1)
		assert.Equal(t, "5", allocations[0].RewardsAmount)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("it does not retry client errors", func(t *testing.T) {
		t.Parallel()

		// Arrange
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`bad query`))
		}))
		defer server.Close()

		client := newTestClient(server.URL)

		// Act
		_, err := client.LiquidityProviderInfos(t.Context(), 123)

		// Assert
		var statusErr *subgraph.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusBadRequest, statusErr.Code)
		assert.Equal(t, int32(1), calls.Load())
	})
}

// Test helpers

func newTestClient(url string, opts ...subgraph.Option) *subgraph.Client {
	cfg := retry.DefaultConfig()
	cfg.BaseBackoff = time.Millisecond
	cfg.MaxBackoff = time.Millisecond

	opts = append([]subgraph.Option{
		subgraph.WithRateLimit(rate.Inf, 1),
		subgraph.WithRetry(cfg),
	}, opts...)
	return subgraph.NewClient(http.DefaultClient, url, opts...)
}

func lpStat(id, account, balance string) subgraph.LiquidityProviderIncentivesStat {
	return subgraph.LiquidityProviderIncentivesStat{
		ID:                                 id,
		Account:                            account,
		MarketAddress:                      "0xmarket",
		WeightedAverageMarketTokensBalance: balance,
	}
}

// indexerServingPages serves the given pages in order and records the lastID cursor of each request
func indexerServingPages(t *testing.T, pages [][]subgraph.LiquidityProviderIncentivesStat, cursors *[]string) *httptest.Server {
	t.Helper()

	call := 0
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Variables map[string]any `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		lastID, _ := req.Variables["lastID"].(string)
		*cursors = append(*cursors, lastID)

		var items []subgraph.LiquidityProviderIncentivesStat
		if call < len(pages) {
			items = pages[call]
		}
		call++

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"items": items}})
	}))
}
