package supa

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// QueryBuilder accumulates PostgREST query parameters for a table read.
// Filters map directly onto PostgREST operators (eq, gt, gte, is.null).
type QueryBuilder struct {
	client  *Client
	table   string
	selects string
	filters url.Values
	order   string
	limit   int
}

// Select sets the column list (PostgREST syntax, embedded relations allowed,
// e.g. "id, sku, products(title)"). Defaults to "*".
func (q *QueryBuilder) Select(columns string) *QueryBuilder {
	q.selects = columns
	return q
}

func (q *QueryBuilder) addFilter(column, expr string) *QueryBuilder {
	if q.filters == nil {
		q.filters = url.Values{}
	}
	q.filters.Add(column, expr)
	return q
}

// Eq filters rows where column equals value.
func (q *QueryBuilder) Eq(column string, value any) *QueryBuilder {
	return q.addFilter(column, fmt.Sprintf("eq.%v", value))
}

// Gt filters rows where column is greater than value.
func (q *QueryBuilder) Gt(column string, value any) *QueryBuilder {
	return q.addFilter(column, fmt.Sprintf("gt.%v", value))
}

// Gte filters rows where column is greater than or equal to value.
func (q *QueryBuilder) Gte(column string, value any) *QueryBuilder {
	return q.addFilter(column, fmt.Sprintf("gte.%v", value))
}

// IsNull filters rows where column is null.
func (q *QueryBuilder) IsNull(column string) *QueryBuilder {
	return q.addFilter(column, "is.null")
}

// OrderDesc orders results by column, newest first.
func (q *QueryBuilder) OrderDesc(column string) *QueryBuilder {
	q.order = column + ".desc"
	return q
}

// Limit caps the number of returned rows.
func (q *QueryBuilder) Limit(n int) *QueryBuilder {
	q.limit = n
	return q
}

func (q *QueryBuilder) path() string {
	params := url.Values{}
	sel := q.selects
	if sel == "" {
		sel = "*"
	}
	params.Set("select", sel)
	for column, exprs := range q.filters {
		for _, expr := range exprs {
			params.Add(column, expr)
		}
	}
	if q.order != "" {
		params.Set("order", q.order)
	}
	if q.limit > 0 {
		params.Set("limit", strconv.Itoa(q.limit))
	}
	return restPrefix + "/" + q.table + "?" + params.Encode()
}

// Execute runs the query and decodes the row list into dest (a pointer to a
// slice).
func (q *QueryBuilder) Execute(ctx context.Context, dest any) error {
	raw, _, err := q.client.do(ctx, http.MethodGet, q.path(), nil, nil)
	if err != nil {
		return fmt.Errorf("query %s: %w", q.table, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("query %s: failed to decode rows: %w", q.table, err)
	}
	return nil
}

// Count runs the query asking for an exact match count instead of rows.
func (q *QueryBuilder) Count(ctx context.Context) (int, error) {
	headers := map[string]string{
		"Prefer": "count=exact",
		"Range":  "0-0",
	}
	_, contentRange, err := q.client.do(ctx, http.MethodGet, q.path(), headers, nil)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", q.table, err)
	}
	n, err := parseExactCount(contentRange)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", q.table, err)
	}
	return n, nil
}
