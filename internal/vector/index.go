// Package vector provides vector index implementations and similarity search.
package vector

import "context"

// VectorIndex defines vector storage and top-k cosine similarity search.
type VectorIndex interface {
	// Upsert adds vectors by ID; re-inserting an existing ID replaces its vector.
	Upsert(ctx context.Context, ids []string, vectors [][]float32) error
	// Search returns at most k results ordered by descending similarity;
	// equal scores are ordered by ascending ID.
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Remove(ctx context.Context, ids []string) error
	// Clear removes all entries (full re-index).
	Clear(ctx context.Context) error
	Size() int
	Close() error
}

// VectorResult is a single vector search hit.
type VectorResult struct {
	ID    string
	Score float64 // Cosine similarity (inner product of normalized vectors).
}
