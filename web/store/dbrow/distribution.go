package dbrow

import (
	"time"

	"github.com/screwyprof/distributor/web/status"
)

// Distribution represents a ledger row as queried from the database
type Distribution struct {
	DistributionID int64 `db:"distribution_id"`
	CompletedAt    int64 `db:"completed_at"` // Unix seconds
}

// ToDistribution converts the row to the status domain model
func (d Distribution) ToDistribution() status.Distribution {
	return status.Distribution{
		ID:          d.DistributionID,
		CompletedAt: time.Unix(d.CompletedAt, 0).UTC(),
	}
}

// ToDistributions converts rows preserving their order
func ToDistributions(rows []Distribution) []status.Distribution {
	out := make([]status.Distribution, len(rows))
	for i, r := range rows {
		out[i] = r.ToDistribution()
	}
	return out
}
