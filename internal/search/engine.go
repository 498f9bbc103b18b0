// Package search provides the semantic photo search engine.
package search

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hyperjump/smartlens/internal/config"
	"github.com/hyperjump/smartlens/internal/embedding"
	"github.com/hyperjump/smartlens/internal/keyword"
	"github.com/hyperjump/smartlens/internal/models"
	"github.com/hyperjump/smartlens/internal/storage"
	"github.com/hyperjump/smartlens/internal/vector"
)

// Engine answers text queries against the photo index: the query is embedded
// into the same vector space as the photos and ranked by cosine similarity.
type Engine struct {
	storage      storage.Storage
	embedder     embedding.Embedder
	vectorIndex  vector.VectorIndex
	keywordIndex keyword.KeywordIndex
	config       *config.SearchConfig
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(
	store storage.Storage,
	embedder embedding.Embedder,
	vectorIndex vector.VectorIndex,
	keywordIndex keyword.KeywordIndex,
	cfg *config.SearchConfig,
) *Engine {
	return &Engine{
		storage:      store,
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		keywordIndex: keywordIndex,
		config:       cfg,
	}
}

// Search embeds the query text and returns the top-k photos by cosine
// similarity. Returns models.ErrEmptyQuery for empty or whitespace-only
// queries; callers surface it as a hint, not a failure.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	if query.Limit <= 0 && e.config != nil {
		query.Limit = e.config.TopK
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}

	queryEmbedding, err := e.embedder.EmbedText(ctx, query.Query)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	hits, err := e.vectorIndex.Search(ctx, queryEmbedding, query.Limit)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	response := &models.SearchResponse{
		Results: make([]*models.SearchResult, 0, len(hits)),
		Query:   query.Query,
	}
	for _, hit := range hits {
		photo, err := e.storage.GetPhoto(ctx, hit.ID)
		if err != nil {
			// Index and storage can briefly disagree mid-reindex; skip the orphan.
			continue
		}
		if _, err := os.Stat(photo.Path); err != nil {
			// File removed from disk since the last index run.
			continue
		}
		photo.Embedding = nil
		response.Results = append(response.Results, &models.SearchResult{
			Photo:        photo,
			Score:        hit.Score,
			Rank:         len(response.Results) + 1,
			ThumbnailURL: "/photos/" + photo.ID,
		})
	}
	response.Total = len(response.Results)
	response.QueryTime = time.Since(startTime).Milliseconds()
	return response, nil
}

// Browse lists indexed photos. When filter is non-empty the filename keyword
// index narrows the listing; otherwise photos are returned in ID order.
func (e *Engine) Browse(ctx context.Context, filter string, offset, limit int) ([]*models.Photo, error) {
	if limit <= 0 {
		limit = 100
	}
	if filter == "" {
		return e.storage.ListPhotos(ctx, offset, limit)
	}

	hits, err := e.keywordIndex.Search(ctx, filter, offset+limit)
	if err != nil {
		return nil, fmt.Errorf("filename filter failed: %w", err)
	}
	if offset > len(hits) {
		offset = len(hits)
	}
	photos := make([]*models.Photo, 0, len(hits)-offset)
	for _, hit := range hits[offset:] {
		photo, err := e.storage.GetPhoto(ctx, hit.ID)
		if err != nil {
			continue
		}
		photo.Embedding = nil
		photos = append(photos, photo)
	}
	return photos, nil
}

// Photo returns a single indexed photo by ID.
func (e *Engine) Photo(ctx context.Context, id string) (*models.Photo, error) {
	return e.storage.GetPhoto(ctx, id)
}

// IndexedPhotos returns the number of photos in storage.
func (e *Engine) IndexedPhotos(ctx context.Context) (int64, error) {
	return e.storage.CountPhotos(ctx)
}

// VectorIndexSize returns the number of vectors currently searchable.
func (e *Engine) VectorIndexSize() int {
	return e.vectorIndex.Size()
}
