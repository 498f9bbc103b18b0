// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/smartlens/internal/models"
	"github.com/hyperjump/smartlens/internal/vector"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS photos (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		embedding BLOB NOT NULL,
		width INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0,
		size_bytes INTEGER NOT NULL DEFAULT 0,
		mod_time_ns INTEGER NOT NULL DEFAULT 0,
		indexed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_photos_indexed_at ON photos(indexed_at);
	`
	_, err := db.Exec(schema)
	return err
}

// UpsertPhoto inserts a photo record, replacing any existing record with the same ID.
func (s *SQLiteStorage) UpsertPhoto(ctx context.Context, photo *models.Photo) error {
	photo.IndexedAt = time.Now()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO photos (id, path, embedding, width, height, size_bytes, mod_time_ns, indexed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			path = excluded.path,
			embedding = excluded.embedding,
			width = excluded.width,
			height = excluded.height,
			size_bytes = excluded.size_bytes,
			mod_time_ns = excluded.mod_time_ns,
			indexed_at = excluded.indexed_at`,
		photo.ID, photo.Path, vector.EncodeVector(photo.Embedding),
		photo.Width, photo.Height, photo.SizeBytes, photo.ModTimeNS, photo.IndexedAt,
	)
	return err
}

// GetPhoto returns a photo record by ID including its embedding.
func (s *SQLiteStorage) GetPhoto(ctx context.Context, id string) (*models.Photo, error) {
	var photo models.Photo
	var blob []byte

	err := s.db.QueryRowContext(ctx,
		`SELECT id, path, embedding, width, height, size_bytes, mod_time_ns, indexed_at
		 FROM photos WHERE id = ?`, id,
	).Scan(&photo.ID, &photo.Path, &blob, &photo.Width, &photo.Height,
		&photo.SizeBytes, &photo.ModTimeNS, &photo.IndexedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("photo not found: %s", id)
	}
	if err != nil {
		return nil, err
	}

	photo.Embedding, err = vector.DecodeVector(blob)
	if err != nil {
		return nil, fmt.Errorf("corrupt embedding for photo %s: %w", id, err)
	}
	return &photo, nil
}

// DeletePhoto removes a photo record by ID.
func (s *SQLiteStorage) DeletePhoto(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM photos WHERE id = ?`, id)
	return err
}

// ListPhotos returns photo records ordered by ID with offset and limit.
// Embeddings are not loaded.
func (s *SQLiteStorage) ListPhotos(ctx context.Context, offset, limit int) ([]*models.Photo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, path, width, height, size_bytes, mod_time_ns, indexed_at
		 FROM photos ORDER BY id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var photos []*models.Photo
	for rows.Next() {
		var photo models.Photo
		if err := rows.Scan(&photo.ID, &photo.Path, &photo.Width, &photo.Height,
			&photo.SizeBytes, &photo.ModTimeNS, &photo.IndexedAt); err != nil {
			return nil, err
		}
		photos = append(photos, &photo)
	}
	return photos, rows.Err()
}

// AllPhotos returns every photo record including embeddings.
func (s *SQLiteStorage) AllPhotos(ctx context.Context) ([]*models.Photo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, path, embedding, width, height, size_bytes, mod_time_ns, indexed_at
		 FROM photos ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var photos []*models.Photo
	for rows.Next() {
		var photo models.Photo
		var blob []byte
		if err := rows.Scan(&photo.ID, &photo.Path, &blob, &photo.Width, &photo.Height,
			&photo.SizeBytes, &photo.ModTimeNS, &photo.IndexedAt); err != nil {
			return nil, err
		}
		photo.Embedding, err = vector.DecodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("corrupt embedding for photo %s: %w", photo.ID, err)
		}
		photos = append(photos, &photo)
	}
	return photos, rows.Err()
}

// Clear removes all photo records.
func (s *SQLiteStorage) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM photos`)
	return err
}

// CountPhotos returns the total number of indexed photos.
func (s *SQLiteStorage) CountPhotos(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM photos`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
