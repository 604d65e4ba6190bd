package pgxstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/screwyprof/distributor/web/status"
	"github.com/screwyprof/distributor/web/store/dbrow"
)

// Sentinel errors for store operations
var (
	ErrQueryFailed = errors.New("distribution query failed")
)

// DistributionsFinder implements ledger querying using pgx
type DistributionsFinder struct {
	pool *pgxpool.Pool
}

// New creates a new PostgreSQL distributions finder with an existing connection pool
// Returns the finder and a closer function
func New(pool *pgxpool.Pool) (*DistributionsFinder, func()) {
	finder := &DistributionsFinder{pool: pool}
	closer := func() {
		pool.Close()
	}
	return finder, closer
}

// FindDistributions returns a page of completed distributions, newest first
// Uses LIMIT n+1 technique for efficient pagination without separate count query
func (f *DistributionsFinder) FindDistributions(ctx context.Context, criteria status.DistributionsCriteria) (*status.DistributionsPage, error) {
	query, args := NewDistributionsQuery().ForCriteria(criteria).Build()

	rows, err := f.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[dbrow.Distribution])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	hasMore := uint64(len(records)) > criteria.ItemsPerPage()
	if hasMore {
		records = records[:criteria.ItemsPerPage()]
	}

	return &status.DistributionsPage{
		Distributions: dbrow.ToDistributions(records),
		HasMore:       hasMore,
		Number:        criteria.Page,
		Size:          criteria.Size,
	}, nil
}

// FindDistribution returns status.ErrNotFound when id has no ledger row
func (f *DistributionsFinder) FindDistribution(ctx context.Context, id int64) (status.Distribution, error) {
	query, args := NewDistributionsQuery().ForID(id).Build()

	rows, err := f.pool.Query(ctx, query, args...)
	if err != nil {
		return status.Distribution{}, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	record, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[dbrow.Distribution])
	if errors.Is(err, pgx.ErrNoRows) {
		return status.Distribution{}, status.ErrNotFound
	}
	if err != nil {
		return status.Distribution{}, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	return record.ToDistribution(), nil
}
