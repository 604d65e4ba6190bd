// Package pgxstore keeps the distribution ledger in PostgreSQL.
package pgxstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/screwyprof/distributor/ledger"
	"github.com/screwyprof/distributor/ledger/pgxstore/dbrow"
)

// Sentinel errors for store operations
var (
	ErrTransactionFailed = errors.New("transaction failed")
	ErrQueryFailed       = errors.New("ledger query failed")
	ErrDeleteFailed      = errors.New("ledger delete failed")
	ErrCopyFailed        = errors.New("bulk copy operation failed")
)

const (
	tableName        = "distribution_ledger"
	selectEntriesSQL = "SELECT distribution_id, completed_at FROM distribution_ledger"
	deleteEntriesSQL = "DELETE FROM distribution_ledger"
)

var columns = []string{"distribution_id", "completed_at"}

// Store implements ledger.Storage using pgx
type Store struct {
	pool *pgxpool.Pool
}

// New creates a new PostgreSQL ledger store with an existing connection pool
// Returns the store and a closer function
func New(pool *pgxpool.Pool) (*Store, func()) {
	store := &Store{pool: pool}
	closer := func() {
		pool.Close()
	}
	return store, closer
}

// Load reads every ledger row
func (s *Store) Load(ctx context.Context) (ledger.Entries, error) {
	rows, err := s.pool.Query(ctx, selectEntriesSQL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[dbrow.Entry])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	return dbrow.ToEntries(records), nil
}

// Save replaces the stored mapping with entries in a single transaction
func (s *Store) Save(ctx context.Context, entries ledger.Entries) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // No-op if commit succeeds

	if _, err = tx.Exec(ctx, deleteEntriesSQL); err != nil {
		return fmt.Errorf("%w: %w", ErrDeleteFailed, err)
	}

	_, err = tx.CopyFrom(
		ctx,
		pgx.Identifier{tableName},
		columns,
		pgx.CopyFromRows(dbrow.EntriesToRows(entries)),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCopyFailed, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}
	return nil
}
