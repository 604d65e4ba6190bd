package migrator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/distributor/ledger"
	"github.com/screwyprof/distributor/migrator"
)

const migrationsDir = "migrations"

func TestRollbackMigrations(t *testing.T) {
	t.Parallel()

	t.Run("it rejects non-positive steps before touching the database", func(t *testing.T) {
		t.Parallel()

		// Act
		n, err := migrator.RollbackMigrations(nil, migrationsDir, 0)

		// Assert
		require.ErrorIs(t, err, migrator.ErrMigrationExecution)
		assert.Zero(t, n)
	})
}

func TestMigratorHashes(t *testing.T) {
	t.Parallel()

	t.Run("it fingerprints seeded databases by their entries", func(t *testing.T) {
		t.Parallel()

		// Arrange
		schema, err := migrator.NewSchemaMigrator(migrationsDir).Hash()
		require.NoError(t, err)

		// Act
		first, err := migrator.NewSeededMigrator(migrationsDir, ledger.Entries{1: 1710147600}).Hash()
		require.NoError(t, err)
		same, err := migrator.NewSeededMigrator(migrationsDir, ledger.Entries{1: 1710147600}).Hash()
		require.NoError(t, err)
		other, err := migrator.NewSeededMigrator(migrationsDir, ledger.Entries{1: 1710752400}).Hash()
		require.NoError(t, err)

		// Assert
		assert.Equal(t, first, same)
		assert.NotEqual(t, first, other)
		assert.NotEqual(t, schema, first)
	})
}
