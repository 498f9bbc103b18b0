// Package keyword provides Bleve implementation of KeywordIndex.
package keyword

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

// filenameDoc is the indexed representation of a photo filename.
type filenameDoc struct {
	Name string `json:"name"`
}

// BleveIndex implements KeywordIndex using Bleve over photo filenames.
type BleveIndex struct {
	mu    sync.RWMutex
	index bleve.Index
	path  string
}

// NewBleveIndex creates or opens a Bleve index at path.
// An existing index is opened and reused so incremental sync does not
// re-index unchanged photos.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index, path: path}, nil
	}

	index, err := bleve.New(path, newIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index, path: path}, nil
}

func newIndexMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	nameFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so "beach"
	// matches "beach_sunset" exactly rather than through a stemmed form.
	nameFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("name", nameFieldMapping)
	im.AddDocumentMapping("photo", docMapping)
	im.DefaultType = "photo"
	im.DefaultMapping = docMapping

	return im
}

// normalizeName turns filename separators into spaces so the analyzer sees
// individual words: "beach_sunset-2021.jpg" indexes as "beach sunset 2021 jpg".
func normalizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', '.':
			return ' '
		}
		return r
	}, name)
}

// Index adds a photo filename under the given ID.
func (b *BleveIndex) Index(ctx context.Context, id string, name string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.index.Index(id, &filenameDoc{Name: normalizeName(name)})
}

// Search runs a match query over filenames and returns up to limit results.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int) ([]*KeywordResult, error) {
	q := bleve.NewMatchQuery(normalizeName(query))
	q.SetField("name")
	search := bleve.NewSearchRequest(q)
	search.Size = limit
	b.mu.RLock()
	results, err := b.index.Search(search)
	b.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*KeywordResult, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &KeywordResult{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// Delete removes a photo from the index.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.index.Delete(id)
}

// Clear drops the index directory and recreates an empty index.
func (b *BleveIndex) Clear(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.index.Close(); err != nil {
		return fmt.Errorf("failed to close Bleve index: %w", err)
	}
	if err := os.RemoveAll(b.path); err != nil {
		return fmt.Errorf("failed to remove Bleve index: %w", err)
	}
	index, err := bleve.New(b.path, newIndexMapping())
	if err != nil {
		return fmt.Errorf("failed to recreate Bleve index: %w", err)
	}
	b.index = index
	return nil
}

// Count returns the total number of indexed filenames.
func (b *BleveIndex) Count() (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.index.Close()
}
