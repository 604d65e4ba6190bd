package pgxstore

import (
	"fmt"

	"github.com/screwyprof/distributor/web/status"
)

// SQL queries
const (
	baseDistributionsQuery = "SELECT distribution_id, completed_at FROM distribution_ledger"
)

// DistributionsQueryBuilder provides a domain-specific language for building ledger queries
type DistributionsQueryBuilder struct {
	sql  string
	args []any
}

// NewDistributionsQuery creates a new distributions query builder
func NewDistributionsQuery() *DistributionsQueryBuilder {
	return &DistributionsQueryBuilder{
		sql: baseDistributionsQuery,
	}
}

// ForCriteria applies the page criteria to the query in one fluent call
func (q *DistributionsQueryBuilder) ForCriteria(criteria status.DistributionsCriteria) *DistributionsQueryBuilder {
	return q.
		orderByCompletedDesc().
		paginateWithDetection(criteria)
}

// ForID restricts the query to a single distribution
func (q *DistributionsQueryBuilder) ForID(id int64) *DistributionsQueryBuilder {
	q.addWhereCondition("distribution_id = $%d", id)
	return q
}

// orderByCompletedDesc puts the most recently completed first, ties broken by id
func (q *DistributionsQueryBuilder) orderByCompletedDesc() *DistributionsQueryBuilder {
	q.sql += " ORDER BY completed_at DESC, distribution_id DESC"
	return q
}

// paginateWithDetection adds pagination with "has more" detection using LIMIT n+1
func (q *DistributionsQueryBuilder) paginateWithDetection(criteria status.DistributionsCriteria) *DistributionsQueryBuilder {
	limit := criteria.ItemsPerPage() + 1
	offset := criteria.ItemsToSkip()

	q.addParameter("LIMIT $%d", limit)

	if offset > 0 {
		q.addParameter("OFFSET $%d", offset)
	}

	return q
}

// Build returns the final SQL query and arguments
func (q *DistributionsQueryBuilder) Build() (string, []any) {
	return q.sql, q.args
}

// addWhereCondition adds a WHERE condition, handling AND logic automatically
func (q *DistributionsQueryBuilder) addWhereCondition(sqlClause string, value any) {
	placeholder := q.nextPlaceholder()

	if q.hasWhereClause() {
		q.sql += " AND " + fmt.Sprintf(sqlClause, placeholder)
	} else {
		q.sql += " WHERE " + fmt.Sprintf(sqlClause, placeholder)
	}

	q.args = append(q.args, value)
}

// addParameter adds a SQL clause with a parameter
func (q *DistributionsQueryBuilder) addParameter(sqlClause string, value any) {
	placeholder := q.nextPlaceholder()
	q.sql += " " + fmt.Sprintf(sqlClause, placeholder)
	q.args = append(q.args, value)
}

// hasWhereClause reports whether a WHERE was added; only conditions add args before LIMIT
func (q *DistributionsQueryBuilder) hasWhereClause() bool {
	return len(q.args) > 0
}

// nextPlaceholder returns the next PostgreSQL placeholder ($1, $2, etc.)
func (q *DistributionsQueryBuilder) nextPlaceholder() int {
	return len(q.args) + 1
}
