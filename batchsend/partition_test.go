package batchsend_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/distributor/batchsend"
)

func TestPartition(t *testing.T) {
	t.Parallel()

	t.Run("it splits 301 recipients into 150, 150 and 1 in order", func(t *testing.T) {
		t.Parallel()

		// Arrange
		amounts := recipients(301)

		// Act
		batches := batchsend.Partition(amounts, 150)

		// Assert
		require.Len(t, batches, 3)
		assert.Equal(t, []int{150, 150, 1}, []int{batches[0].Len(), batches[1].Len(), batches[2].Len()})
		assert.Equal(t, amounts[0].Recipient, batches[0].Recipients[0])
		assert.Equal(t, amounts[150].Recipient, batches[1].Recipients[0])
		assert.Equal(t, amounts[300].Recipient, batches[2].Recipients[0])
		assert.Equal(t, 300, batches[2].From)
		assert.Equal(t, 301, batches[2].To)
		assert.Equal(t, 2, batches[2].Index)
	})

	t.Run("it totals each batch", func(t *testing.T) {
		t.Parallel()

		// Arrange
		amounts := recipients(3)

		// Act
		batches := batchsend.Partition(amounts, 2)

		// Assert
		require.Len(t, batches, 2)
		assert.Equal(t, new(big.Int).Mul(token, big.NewInt(2)), batches[0].Total)
		assert.Equal(t, token, batches[1].Total)
	})

	t.Run("it keeps an exact multiple without a trailing batch", func(t *testing.T) {
		t.Parallel()

		// Act
		batches := batchsend.Partition(recipients(300), 150)

		// Assert
		assert.Len(t, batches, 2)
	})

	t.Run("it returns no batches for no recipients", func(t *testing.T) {
		t.Parallel()

		// Act
		batches := batchsend.Partition(nil, 150)

		// Assert
		assert.Empty(t, batches)
	})
}
