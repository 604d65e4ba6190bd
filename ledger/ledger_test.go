package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/distributor/ledger"
)

func TestLedger(t *testing.T) {
	t.Parallel()

	t.Run("it reports distributions loaded from storage", func(t *testing.T) {
		t.Parallel()

		// Arrange
		storage := storageWith(ledger.Entries{12: 1700000000})

		// Act
		l, err := ledger.Open(t.Context(), storage)

		// Assert
		require.NoError(t, err)
		assert.True(t, l.HasCompleted(12))
		assert.False(t, l.HasCompleted(13))

		at, ok := l.CompletedAt(12)
		require.True(t, ok)
		assert.Equal(t, time.Unix(1700000000, 0).UTC(), at)
	})

	t.Run("it persists the whole mapping when marking completion", func(t *testing.T) {
		t.Parallel()

		// Arrange
		storage := storageWith(ledger.Entries{12: 1700000000})
		l := openLedger(t, storage)
		completedAt := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

		// Act
		err := l.MarkCompleted(t.Context(), 13, completedAt)

		// Assert
		require.NoError(t, err)
		assert.True(t, l.HasCompleted(13))
		assert.Equal(t, ledger.Entries{12: 1700000000, 13: completedAt.Unix()}, storage.saved)
	})

	t.Run("it does not record completion when storage fails", func(t *testing.T) {
		t.Parallel()

		// Arrange
		storage := storageWith(ledger.Entries{})
		storage.saveErr = errors.New("disk full")
		l := openLedger(t, storage)

		// Act
		err := l.MarkCompleted(t.Context(), 13, time.Now())

		// Assert
		require.ErrorIs(t, err, ledger.ErrSaveFailed)
		assert.False(t, l.HasCompleted(13))
		assert.Empty(t, l.Entries())
	})

	t.Run("it fails to open when storage cannot be read", func(t *testing.T) {
		t.Parallel()

		// Arrange
		storage := storageWith(nil)
		storage.loadErr = errors.New("permission denied")

		// Act
		_, err := ledger.Open(t.Context(), storage)

		// Assert
		assert.ErrorIs(t, err, ledger.ErrLoadFailed)
	})

	t.Run("it treats empty storage as an empty ledger", func(t *testing.T) {
		t.Parallel()

		// Act
		l := openLedger(t, storageWith(nil))

		// Assert
		assert.Empty(t, l.Entries())
		assert.False(t, l.HasCompleted(1))
	})

	t.Run("it hands out copies of the entries", func(t *testing.T) {
		t.Parallel()

		// Arrange
		l := openLedger(t, storageWith(ledger.Entries{1: 100}))

		// Act
		entries := l.Entries()
		entries[2] = 200

		// Assert
		assert.False(t, l.HasCompleted(2))
	})
}

// Test helpers

func openLedger(t *testing.T, storage ledger.Storage) *ledger.Ledger {
	t.Helper()
	l, err := ledger.Open(t.Context(), storage)
	require.NoError(t, err)
	return l
}

func storageWith(entries ledger.Entries) *memoryStorage {
	return &memoryStorage{entries: entries}
}

// memoryStorage implements ledger.Storage in memory
type memoryStorage struct {
	entries ledger.Entries
	saved   ledger.Entries
	loadErr error
	saveErr error
}

func (m *memoryStorage) Load(context.Context) (ledger.Entries, error) {
	return m.entries, m.loadErr
}

func (m *memoryStorage) Save(_ context.Context, entries ledger.Entries) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = entries
	return nil
}
