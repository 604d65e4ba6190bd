package migrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/peterldowns/pgtestdb"
	"github.com/peterldowns/pgtestdb/migrators/sqlmigrator"
	migrate "github.com/rubenv/sql-migrate"

	"github.com/screwyprof/distributor/ledger"
	"github.com/screwyprof/distributor/ledger/pgxstore"
	"github.com/screwyprof/distributor/pkg/pgxdb"
)

// Migration constants
const (
	migrationsTableName = "schema_migrations"
	schemaHashPrefix    = "schema_only_"
	seededHashPrefix    = "seeded_ledger_"
)

// Migration-related errors
var (
	ErrMigrationExecution = errors.New("migration execution failed")
	ErrSeedFailed         = errors.New("ledger seeding failed")
)

// SchemaMigrator applies only database schema migrations
// Used for production and tests that need schema-only setup
type SchemaMigrator struct {
	migrationsDir string
}

// NewSchemaMigrator creates a migrator that applies schema migrations only
func NewSchemaMigrator(migrationsDir string) *SchemaMigrator {
	return &SchemaMigrator{
		migrationsDir: migrationsDir,
	}
}

func (m *SchemaMigrator) Hash() (string, error) {
	baseHash, err := schemaHash(m.migrationsDir)
	if err != nil {
		return "", err
	}
	return schemaHashPrefix + baseHash, nil
}

func (m *SchemaMigrator) Migrate(ctx context.Context, db *sql.DB, conf pgtestdb.Config) error {
	return applyMigrations(db, m.migrationsDir)
}

// SeededMigrator applies schema migrations and seeds completed distributions
// Used for web API tests that need ledger rows to page through
type SeededMigrator struct {
	migrationsDir string
	entries       ledger.Entries
}

// NewSeededMigrator creates a migrator that applies schema + seeds the ledger
func NewSeededMigrator(migrationsDir string, entries ledger.Entries) *SeededMigrator {
	return &SeededMigrator{
		migrationsDir: migrationsDir,
		entries:       entries,
	}
}

func (m *SeededMigrator) Hash() (string, error) {
	baseHash, err := schemaHash(m.migrationsDir)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s_%x", seededHashPrefix, baseHash, entriesHash(m.entries)), nil
}

func (m *SeededMigrator) Migrate(ctx context.Context, db *sql.DB, conf pgtestdb.Config) error {
	if err := applyMigrations(db, m.migrationsDir); err != nil {
		return err
	}
	return m.seedLedger(ctx, conf.URL())
}

// seedLedger writes the seed entries through the production ledger store
func (m *SeededMigrator) seedLedger(ctx context.Context, dbURL string) error {
	slog.InfoContext(ctx, "Seeding ledger", slog.Int("entries", len(m.entries)))

	pool, err := pgxdb.NewConnection(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSeedFailed, err)
	}

	store, storeCloser := pgxstore.New(pool)
	defer storeCloser()

	if err := store.Save(ctx, m.entries); err != nil {
		return fmt.Errorf("%w: %w", ErrSeedFailed, err)
	}
	return nil
}

// ApplyMigrations applies every pending migration and returns how many ran
func ApplyMigrations(pool *pgxpool.Pool, migrationsDir string) (int, error) {
	// Create sql.DB from the pgx pool for sql-migrate
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	return execMigrations(db, migrationsDir, migrate.Up, 0)
}

// RollbackMigrations reverts the latest steps migrations and returns how many were reverted
func RollbackMigrations(pool *pgxpool.Pool, migrationsDir string, steps int) (int, error) {
	if steps <= 0 {
		return 0, fmt.Errorf("%w: rollback steps must be positive, got %d", ErrMigrationExecution, steps)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	return execMigrations(db, migrationsDir, migrate.Down, steps)
}

// applyMigrations brings a test database fully up
func applyMigrations(db *sql.DB, migrationsDir string) error {
	_, err := execMigrations(db, migrationsDir, migrate.Up, 0)
	return err
}

// execMigrations runs up to limit migrations in dir, zero meaning all
func execMigrations(db *sql.DB, migrationsDir string, dir migrate.MigrationDirection, limit int) (int, error) {
	source := &migrate.FileMigrationSource{Dir: migrationsDir}
	migrationSet := &migrate.MigrationSet{TableName: migrationsTableName}

	n, err := migrationSet.ExecMax(db, "postgres", source, dir, limit)
	if err != nil {
		return n, fmt.Errorf("%w: %w", ErrMigrationExecution, err)
	}
	return n, nil
}

func schemaHash(migrationsDir string) (string, error) {
	source := &migrate.FileMigrationSource{Dir: migrationsDir}
	migrationSet := &migrate.MigrationSet{TableName: migrationsTableName}

	baseHash, err := sqlmigrator.New(source, migrationSet).Hash()
	if err != nil {
		return "", fmt.Errorf("failed to calculate migration hash for %s: %w", migrationsDir, err)
	}
	return baseHash, nil
}

// entriesHash fingerprints seed data so different seeds get different template databases
func entriesHash(entries ledger.Entries) uint64 {
	ids := make([]int64, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	h := fnv.New64a()
	for _, id := range ids {
		fmt.Fprintf(h, "%d=%d;", id, entries[id])
	}
	return h.Sum64()
}
