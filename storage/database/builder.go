package database

import (
	"strings"

	"github.com/akili/shulenet/core"
)

// ListQuery composes the predicates of an admin list view once and derives
// both the count query and the page query from them, so the reported total can
// never disagree with the rows pagination will eventually reveal. Queries use
// `?` placeholders; rebind before executing.
type ListQuery struct {
	table      string
	selectCols string
	joins      []string
	preds      []string
	args       []interface{}
	ordering   string
}

func NewListQuery(table, selectCols string) *ListQuery {
	return &ListQuery{table: table, selectCols: selectCols}
}

// Join adds a JOIN clause. Joins apply to both the count and the page query.
func (q *ListQuery) Join(join string) *ListQuery {
	q.joins = append(q.joins, join)
	return q
}

// Where ANDs in a predicate fragment with its bound arguments.
func (q *ListQuery) Where(frag string, args ...interface{}) *ListQuery {
	q.preds = append(q.preds, frag)
	q.args = append(q.args, args...)
	return q
}

// Search ANDs in an OR of case-insensitive substring matches over the
// allow-listed columns. The term is always a bound parameter.
func (q *ListQuery) Search(term string, cols ...string) *ListQuery {
	if term == "" || len(cols) == 0 {
		return q
	}
	val := "%" + term + "%"
	frags := make([]string, 0, len(cols))
	for _, col := range cols {
		frags = append(frags, col+" ILIKE ?")
		q.args = append(q.args, val)
	}
	q.preds = append(q.preds, "("+strings.Join(frags, " OR ")+")")
	return q
}

func (q *ListQuery) OrderBy(ord core.DBOrdering) *ListQuery {
	q.ordering = ord.String()
	return q
}

func (q *ListQuery) from() string {
	var b strings.Builder
	b.WriteString(" FROM ")
	b.WriteString(q.table)
	for _, join := range q.joins {
		b.WriteString(" ")
		b.WriteString(join)
	}
	return b.String()
}

// WhereClause returns the predicate text shared by the count and page queries.
func (q *ListQuery) WhereClause() string {
	if len(q.preds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(q.preds, " AND ")
}

// CountQuery returns the total count query with its arguments.
func (q *ListQuery) CountQuery() (string, []interface{}) {
	return "SELECT COUNT(*)" + q.from() + q.WhereClause(), q.args
}

// PageQuery returns the page query. It differs from CountQuery only by the
// selected columns, the ordering and the LIMIT/OFFSET tail.
func (q *ListQuery) PageQuery(page core.Page) (string, []interface{}) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(q.selectCols)
	b.WriteString(q.from())
	b.WriteString(q.WhereClause())
	if q.ordering != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(q.ordering)
	}
	b.WriteString(" LIMIT ? OFFSET ?")

	args := make([]interface{}, 0, len(q.args)+2)
	args = append(args, q.args...)
	args = append(args, page.Size, page.Offset())
	return b.String(), args
}

// statusPredicate maps a list status filter to its fixed predicate fragment.
// StatusFilterAll (and anything unknown) adds no predicate.
func statusPredicate(status string) (string, bool) {
	switch status {
	case core.StatusFilterPending:
		return "approved = FALSE", true
	case core.StatusFilterApproved:
		return "approved = TRUE", true
	case core.StatusFilterSuspended:
		return "status = 'suspended'", true
	}
	return "", false
}
