// Package keyword defines the filename keyword index interface.
package keyword

import "context"

// KeywordResult is a single keyword search hit.
type KeywordResult struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// KeywordIndex defines full-text search over photo filenames, used by the
// browse filter. Semantic query ranking does not go through this index.
type KeywordIndex interface {
	// Index adds a photo filename under the given ID, replacing any
	// existing entry.
	Index(ctx context.Context, id string, name string) error
	// Search returns up to limit photos whose filename matches the query,
	// ordered by descending relevance.
	Search(ctx context.Context, query string, limit int) ([]*KeywordResult, error)
	Delete(ctx context.Context, id string) error
	// Clear removes all entries (full re-index).
	Clear(ctx context.Context) error
	Count() (uint64, error)
	Close() error
}
