package models

import (
	"errors"
	"strings"
)

// ErrEmptyQuery is returned by Validate for empty or whitespace-only queries.
// Callers treat it as a no-op (empty result set with a hint), not a failure.
var ErrEmptyQuery = errors.New("query is empty")

// DefaultTopK is the number of results returned when Limit is unset.
const DefaultTopK = 3

// MaxTopK caps the number of results a single query may request.
const MaxTopK = 20

// SearchQuery represents a photo search request.
type SearchQuery struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// Validate trims the query and normalizes the limit.
// Returns ErrEmptyQuery when the trimmed query is empty.
func (q *SearchQuery) Validate() error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return ErrEmptyQuery
	}
	if q.Limit <= 0 {
		q.Limit = DefaultTopK
	}
	if q.Limit > MaxTopK {
		q.Limit = MaxTopK
	}
	return nil
}
