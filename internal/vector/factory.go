// Package vector provides vector index implementations and a factory for creating them.
package vector

import "fmt"

// IndexType represents the type of vector index to use.
type IndexType string

const (
	// IndexTypeMemory uses in-memory brute-force search. Exact and fast for
	// personal photo sets (<10k vectors); the default.
	IndexTypeMemory IndexType = "memory"
	// IndexTypeQdrant uses a Qdrant collection over gRPC for larger photo
	// sets. Requires a running Qdrant instance.
	IndexTypeQdrant IndexType = "qdrant"
)

// Options holds backend-specific settings passed to NewVectorIndex.
type Options struct {
	// QdrantAddr is the gRPC address of the Qdrant server (qdrant type only).
	QdrantAddr string
	// QdrantCollection is the collection name (qdrant type only).
	QdrantCollection string
}

// NewVectorIndex creates a vector index of the specified type.
// Supported types: "memory" (default), "qdrant".
func NewVectorIndex(indexType string, dimensions int, opts Options) (VectorIndex, error) {
	switch IndexType(indexType) {
	case IndexTypeMemory, "":
		return NewMemoryIndex(dimensions)
	case IndexTypeQdrant:
		return NewQdrantIndex(opts.QdrantAddr, opts.QdrantCollection, dimensions)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: memory, qdrant)", indexType)
	}
}
