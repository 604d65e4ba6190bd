package pgxstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/distributor/web/status"
	"github.com/screwyprof/distributor/web/store/pgxstore"
)

func TestDistributionsQueryBuilder(t *testing.T) {
	t.Parallel()

	t.Run("it requests one extra row on the first page without an offset", func(t *testing.T) {
		t.Parallel()

		// Arrange
		criteria := criteriaFor(t, 1, 50)

		// Act
		query, args := pgxstore.NewDistributionsQuery().ForCriteria(criteria).Build()

		// Assert
		assert.Equal(t, "SELECT distribution_id, completed_at FROM distribution_ledger ORDER BY completed_at DESC, distribution_id DESC LIMIT $1", query)
		assert.Equal(t, []any{uint64(51)}, args)
	})

	t.Run("it skips previous pages", func(t *testing.T) {
		t.Parallel()

		// Arrange
		criteria := criteriaFor(t, 3, 10)

		// Act
		query, args := pgxstore.NewDistributionsQuery().ForCriteria(criteria).Build()

		// Assert
		assert.Contains(t, query, "LIMIT $1 OFFSET $2")
		assert.Equal(t, []any{uint64(11), uint64(20)}, args)
	})

	t.Run("it filters by distribution id", func(t *testing.T) {
		t.Parallel()

		// Act
		query, args := pgxstore.NewDistributionsQuery().ForID(7).Build()

		// Assert
		assert.Equal(t, "SELECT distribution_id, completed_at FROM distribution_ledger WHERE distribution_id = $1", query)
		assert.Equal(t, []any{int64(7)}, args)
	})
}

func criteriaFor(t *testing.T, page, perPage uint64) status.DistributionsCriteria {
	t.Helper()

	criteria, err := status.NewDistributionsCriteria(page, perPage)
	require.NoError(t, err)
	return criteria
}
