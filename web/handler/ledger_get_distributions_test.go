package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/distributor/web/api"
	"github.com/screwyprof/distributor/web/handler"
	"github.com/screwyprof/distributor/web/status"
)

func TestGetDistributions(t *testing.T) {
	t.Parallel()

	t.Run("it returns completed distributions with default pagination", func(t *testing.T) {
		t.Parallel()

		// Arrange
		finder := finderWith(completed(3, "2024-03-18T09:00:00Z"), completed(2, "2024-03-11T09:00:00Z"))
		mux := muxFor(finder)

		// Act
		rec := get(mux, "/distributions")

		// Assert
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[api.DistributionsResponse](t, rec)
		assert.Equal(t, []api.Distribution{
			{DistributionID: 3, CompletedAt: "2024-03-18T09:00:00Z"},
			{DistributionID: 2, CompletedAt: "2024-03-11T09:00:00Z"},
		}, resp.Data)
		assert.Equal(t, uint64(status.DefaultPage), finder.criteria.Page.Uint64())
		assert.Equal(t, uint64(status.DefaultPerPage), finder.criteria.ItemsPerPage())
		assert.Empty(t, rec.Header().Get("Link"))
	})

	t.Run("it links to neighbouring pages", func(t *testing.T) {
		t.Parallel()

		// Arrange
		finder := finderWith(completed(5, "2024-03-18T09:00:00Z"))
		finder.hasMore = true
		mux := muxFor(finder)

		// Act
		rec := get(mux, "/distributions?page=2&per_page=1")

		// Assert
		require.Equal(t, http.StatusOK, rec.Code)
		link := rec.Header().Get("Link")
		assert.Contains(t, link, `page=1&per_page=1>; rel="prev"`)
		assert.Contains(t, link, `page=3&per_page=1>; rel="next"`)
	})

	t.Run("it rejects invalid pagination parameters", func(t *testing.T) {
		t.Parallel()

		for _, query := range []string{"page=0", "page=x", "per_page=0", "per_page=101", "per_page=-1"} {
			// Act
			rec := get(muxFor(finderWith()), "/distributions?"+query)

			// Assert
			assert.Equal(t, http.StatusBadRequest, rec.Code, query)
		}
	})

	t.Run("it hides finder failures", func(t *testing.T) {
		t.Parallel()

		// Arrange
		finder := finderWith()
		finder.err = errors.New("connection refused")

		// Act
		rec := get(muxFor(finder), "/distributions")

		// Assert
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decode[map[string]any](t, rec)
		assert.Equal(t, "Internal Server Error", body["message"])
	})
}

func TestGetDistribution(t *testing.T) {
	t.Parallel()

	t.Run("it returns a completed distribution", func(t *testing.T) {
		t.Parallel()

		// Arrange
		mux := muxFor(finderWith(completed(7, "2024-03-11T12:00:00Z")))

		// Act
		rec := get(mux, "/distributions/7")

		// Assert
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, api.Distribution{DistributionID: 7, CompletedAt: "2024-03-11T12:00:00Z"}, decode[api.Distribution](t, rec))
	})

	t.Run("it returns 404 for a distribution that was never completed", func(t *testing.T) {
		t.Parallel()

		// Act
		rec := get(muxFor(finderWith()), "/distributions/8")

		// Assert
		require.Equal(t, http.StatusNotFound, rec.Code)
		body := decode[map[string]any](t, rec)
		assert.Equal(t, float64(http.StatusNotFound), body["code"])
	})

	t.Run("it rejects malformed ids", func(t *testing.T) {
		t.Parallel()

		for _, id := range []string{"abc", "0", "-1"} {
			// Act
			rec := get(muxFor(finderWith()), "/distributions/"+id)

			// Assert
			assert.Equal(t, http.StatusBadRequest, rec.Code, id)
		}
	})
}

// Test helpers

func completed(id int64, at string) status.Distribution {
	ts, err := time.Parse(time.RFC3339, at)
	if err != nil {
		panic(err)
	}
	return status.Distribution{ID: id, CompletedAt: ts}
}

func muxFor(finder status.DistributionsFinder) *http.ServeMux {
	mux := http.NewServeMux()
	handler.NewLedgerGetDistributions(finder).AddRoutes(mux)
	return mux
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

// Mock implementations

// fakeFinder serves a fixed page and looks single distributions up in it
type fakeFinder struct {
	distributions []status.Distribution
	hasMore       bool
	err           error
	criteria      status.DistributionsCriteria
}

func finderWith(distributions ...status.Distribution) *fakeFinder {
	return &fakeFinder{distributions: distributions}
}

func (f *fakeFinder) FindDistributions(_ context.Context, criteria status.DistributionsCriteria) (*status.DistributionsPage, error) {
	f.criteria = criteria
	if f.err != nil {
		return nil, f.err
	}
	return &status.DistributionsPage{
		Distributions: f.distributions,
		HasMore:       f.hasMore,
		Number:        criteria.Page,
		Size:          criteria.Size,
	}, nil
}

func (f *fakeFinder) FindDistribution(_ context.Context, id int64) (status.Distribution, error) {
	if f.err != nil {
		return status.Distribution{}, f.err
	}
	for _, d := range f.distributions {
		if d.ID == id {
			return d, nil
		}
	}
	return status.Distribution{}, status.ErrNotFound
}

var _ status.DistributionsFinder = (*fakeFinder)(nil)
