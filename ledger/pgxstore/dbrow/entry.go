package dbrow

import (
	"sort"

	"github.com/screwyprof/distributor/ledger"
)

// Entry represents a ledger row as stored in the database
type Entry struct {
	DistributionID int64 `db:"distribution_id"`
	CompletedAt    int64 `db:"completed_at"`
}

// ToEntries folds rows into the ledger mapping
func ToEntries(rows []Entry) ledger.Entries {
	entries := make(ledger.Entries, len(rows))
	for _, r := range rows {
		entries[r.DistributionID] = r.CompletedAt
	}
	return entries
}

// EntriesToRows converts the ledger mapping to [][]any for pgx.CopyFromRows, ordered by id
func EntriesToRows(entries ledger.Entries) [][]any {
	ids := make([]int64, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	rows := make([][]any, len(ids))
	for i, id := range ids {
		rows[i] = []any{id, entries[id]}
	}
	return rows
}
