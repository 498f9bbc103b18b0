// Package storage defines the persistence interface for indexed photos.
package storage

import (
	"context"

	"github.com/hyperjump/smartlens/internal/models"
)

// Storage defines photo metadata and embedding persistence operations.
type Storage interface {
	// UpsertPhoto inserts a photo record or replaces the existing record
	// with the same ID.
	UpsertPhoto(ctx context.Context, photo *models.Photo) error
	GetPhoto(ctx context.Context, id string) (*models.Photo, error)
	DeletePhoto(ctx context.Context, id string) error

	// ListPhotos returns photo records ordered by ID, without embeddings.
	ListPhotos(ctx context.Context, offset, limit int) ([]*models.Photo, error)
	// AllPhotos returns every photo record including embeddings, used to
	// rebuild the vector index at startup.
	AllPhotos(ctx context.Context) ([]*models.Photo, error)

	// Clear removes all photo records (full re-index).
	Clear(ctx context.Context) error
	CountPhotos(ctx context.Context) (int64, error)

	Close() error
}
