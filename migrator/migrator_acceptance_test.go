//go:build acceptance

package migrator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/distributor/migrator"
	"github.com/screwyprof/distributor/migrator/migratortest"
)

func TestMigrationsAcceptanceBehavior(t *testing.T) {
	t.Parallel()

	t.Run("it reverts and reapplies the ledger schema", func(t *testing.T) {
		t.Parallel()

		// Arrange
		db := migratortest.CreateLedgerTestDatabase(t, migrationsDir)
		t.Cleanup(db.Close)

		// Act
		reverted, err := migrator.RollbackMigrations(db, migrationsDir, 1)
		require.NoError(t, err)

		var tables int
		err = db.QueryRow(t.Context(), "SELECT count(*) FROM information_schema.tables WHERE table_name = 'distribution_ledger'").Scan(&tables)
		require.NoError(t, err)

		applied, err := migrator.ApplyMigrations(db, migrationsDir)
		require.NoError(t, err)

		// Assert
		assert.Equal(t, 1, reverted)
		assert.Zero(t, tables, "Rollback should drop the ledger table")
		assert.Equal(t, 1, applied)
	})

	t.Run("it applies nothing when the schema is current", func(t *testing.T) {
		t.Parallel()

		// Arrange
		db := migratortest.CreateLedgerTestDatabase(t, migrationsDir)
		t.Cleanup(db.Close)

		// Act
		applied, err := migrator.ApplyMigrations(db, migrationsDir)

		// Assert
		require.NoError(t, err)
		assert.Zero(t, applied)
	})
}
