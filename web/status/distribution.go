package status

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for distribution lookups and criteria construction
var (
	ErrNotFound       = errors.New("distribution not found")
	ErrInvalidPerPage = errors.New("invalid per_page")
)

// Distribution is a completed distribution recorded in the ledger
type Distribution struct {
	ID          int64
	CompletedAt time.Time
}

// DistributionsFinder defines the interface for querying completed distributions
type DistributionsFinder interface {
	FindDistributions(ctx context.Context, criteria DistributionsCriteria) (*DistributionsPage, error)
	// FindDistribution returns ErrNotFound when id was never completed
	FindDistribution(ctx context.Context, id int64) (Distribution, error)
}

// DistributionsCriteria specifies a page of completed distributions, newest first
type DistributionsCriteria struct {
	Page Page    // 1-based page number
	Size PerPage // Items per page
}

// ItemsPerPage returns the number of items requested per page
func (c DistributionsCriteria) ItemsPerPage() uint64 {
	return c.Size.Uint64()
}

// ItemsToSkip returns the number of items to skip for pagination
func (c DistributionsCriteria) ItemsToSkip() uint64 {
	return (c.Page.Uint64() - 1) * c.Size.Uint64()
}

// NewDistributionsCriteria creates DistributionsCriteria from uint64 values with validation
func NewDistributionsCriteria(page, perPage uint64) (DistributionsCriteria, error) {
	pp, err := ParsePerPageFromUint64(perPage)
	if err != nil {
		return DistributionsCriteria{}, fmt.Errorf("%w: %w", ErrInvalidPerPage, err)
	}

	return DistributionsCriteria{
		Page: ParsePageFromUint64(page),
		Size: pp,
	}, nil
}
