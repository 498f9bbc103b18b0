// Package indexer builds and maintains the photo index: embeddings into the
// vector index, filenames into the keyword index, records into storage.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/smartlens/internal/embedding"
	"github.com/hyperjump/smartlens/internal/fileid"
	"github.com/hyperjump/smartlens/internal/keyword"
	"github.com/hyperjump/smartlens/internal/loader"
	"github.com/hyperjump/smartlens/internal/models"
	"github.com/hyperjump/smartlens/internal/storage"
	"github.com/hyperjump/smartlens/internal/vector"
)

// Indexer indexes the photo folder into storage, the vector index, and the
// filename keyword index. Runs are serialized; a reindex request during a
// running index waits for it to finish.
type Indexer struct {
	storage      storage.Storage
	embedder     embedding.Embedder
	vectorIndex  vector.VectorIndex
	keywordIndex keyword.KeywordIndex
	photosDir    string
	logger       *zap.Logger // optional; when set, logs debug events
	mu           sync.Mutex
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output (photo indexed, photo removed, etc.).
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// NewIndexer creates an indexer over photosDir with the given dependencies.
func NewIndexer(
	store storage.Storage,
	embedder embedding.Embedder,
	vectorIndex vector.VectorIndex,
	keywordIndex keyword.KeywordIndex,
	photosDir string,
	opts ...IndexerOption,
) *Indexer {
	idx := &Indexer{
		storage:      store,
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		keywordIndex: keywordIndex,
		photosDir:    photosDir,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IndexFolder scans the photo folder and brings the index up to date:
// new and changed photos are embedded, unchanged photos are skipped by
// size+mtime fingerprint, photos deleted from the folder are removed.
// Per-file decode failures are counted in the report and do not abort
// the run; embedder and storage failures do.
func (idx *Indexer) IndexFolder(ctx context.Context) (*models.IndexReport, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.run(ctx, false)
}

// Reindex clears storage, the vector index, and the keyword index, then
// rebuilds everything from the photo folder.
func (idx *Indexer) Reindex(ctx context.Context) (*models.IndexReport, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.storage.Clear(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear storage: %w", err)
	}
	if err := idx.vectorIndex.Clear(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear vector index: %w", err)
	}
	if err := idx.keywordIndex.Clear(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear keyword index: %w", err)
	}
	return idx.run(ctx, true)
}

func (idx *Indexer) run(ctx context.Context, full bool) (*models.IndexReport, error) {
	report := &models.IndexReport{
		RunID:     uuid.New().String(),
		Folder:    idx.photosDir,
		StartedAt: time.Now(),
	}

	paths, skipped, err := loader.List(idx.photosDir)
	if err != nil && !errors.Is(err, loader.ErrNoImages) {
		return nil, err
	}
	for _, p := range skipped {
		report.Failed++
		report.FailedFiles = append(report.FailedFiles, fileid.PhotoID(p))
	}
	report.Total = len(paths) + len(skipped)

	present := make(map[string]bool, len(paths))
	for _, path := range paths {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		id := fileid.PhotoID(path)
		present[id] = true

		info, statErr := os.Stat(path)
		if statErr != nil {
			report.Failed++
			report.FailedFiles = append(report.FailedFiles, id)
			continue
		}
		if !full && idx.unchanged(ctx, id, path, info) {
			// Keep the filename searchable even if the keyword index
			// was recreated since the photo was stored.
			_ = idx.keywordIndex.Index(ctx, id, id)
			report.Unchanged++
			if idx.logger != nil {
				idx.logger.Debug("indexer skipping unchanged photo", zap.String("id", id))
			}
			continue
		}

		photo, indexErr := idx.indexPhoto(ctx, path)
		if indexErr != nil {
			if isFileError(indexErr) {
				report.Failed++
				report.FailedFiles = append(report.FailedFiles, id)
				if idx.logger != nil {
					idx.logger.Warn("indexer skipping unreadable photo",
						zap.String("id", id), zap.Error(indexErr))
				}
				continue
			}
			return nil, indexErr
		}
		report.Indexed++
		if idx.logger != nil {
			idx.logger.Debug("indexer photo indexed",
				zap.String("id", photo.ID), zap.String("path", photo.Path))
		}
	}

	removed, err := idx.removeStale(ctx, present)
	if err != nil {
		return nil, err
	}
	report.Removed = removed

	report.DurationMS = time.Since(report.StartedAt).Milliseconds()
	return report, nil
}

// unchanged reports whether the stored record for id matches the file's
// current size and mtime fingerprint.
func (idx *Indexer) unchanged(ctx context.Context, id, path string, info os.FileInfo) bool {
	photo, err := idx.storage.GetPhoto(ctx, id)
	if err != nil {
		return false
	}
	return photo.Path == path &&
		fileid.Fingerprint(photo.SizeBytes, photo.ModTimeNS) == fileid.FileFingerprint(info)
}

// fileError wraps per-file read and decode failures so the run can skip the
// file instead of aborting.
type fileError struct{ err error }

func (e *fileError) Error() string { return e.err.Error() }
func (e *fileError) Unwrap() error { return e.err }

func isFileError(err error) bool {
	var fe *fileError
	return errors.As(err, &fe)
}

// IndexPhoto reads, decodes, and embeds a single photo, then writes it to
// storage and both indices. It takes the run lock so watcher events cannot
// interleave with a folder scan or reindex.
func (idx *Indexer) IndexPhoto(ctx context.Context, path string) (*models.Photo, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.indexPhoto(ctx, path)
}

// indexPhoto is IndexPhoto without the run lock, for callers inside a run.
// The vector index is updated before storage so a storage failure never
// leaves a searchable vector without a record.
func (idx *Indexer) indexPhoto(ctx context.Context, path string) (*models.Photo, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, &fileError{fmt.Errorf("stat photo: %w", err)}
	}
	if !info.Mode().IsRegular() {
		return nil, &fileError{fmt.Errorf("not a regular file: %s", absPath)}
	}

	img, err := decodeImage(absPath)
	if err != nil {
		return nil, &fileError{err}
	}

	vec, err := idx.embedder.EmbedImage(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("failed to embed photo %s: %w", absPath, err)
	}

	id := fileid.PhotoID(absPath)
	bounds := img.Bounds()
	photo := &models.Photo{
		ID:        id,
		Path:      absPath,
		Embedding: vec,
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		SizeBytes: info.Size(),
		ModTimeNS: info.ModTime().UnixNano(),
	}

	if err := idx.vectorIndex.Upsert(ctx, []string{id}, [][]float32{vec}); err != nil {
		return nil, fmt.Errorf("failed to index vector: %w", err)
	}
	if err := idx.storage.UpsertPhoto(ctx, photo); err != nil {
		return nil, fmt.Errorf("failed to store photo: %w", err)
	}
	if err := idx.keywordIndex.Index(ctx, id, id); err != nil {
		return nil, fmt.Errorf("failed to index filename: %w", err)
	}
	return photo, nil
}

// RemovePhoto removes a photo from storage and both indices. It takes the
// run lock so watcher events cannot interleave with a folder scan or reindex.
func (idx *Indexer) RemovePhoto(ctx context.Context, id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.removePhoto(ctx, id)
}

func (idx *Indexer) removePhoto(ctx context.Context, id string) error {
	if idx.logger != nil {
		idx.logger.Debug("indexer removing photo", zap.String("id", id))
	}
	if err := idx.vectorIndex.Remove(ctx, []string{id}); err != nil {
		return fmt.Errorf("failed to remove vector: %w", err)
	}
	if err := idx.keywordIndex.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to remove from keyword index: %w", err)
	}
	if err := idx.storage.DeletePhoto(ctx, id); err != nil {
		return fmt.Errorf("failed to remove photo record: %w", err)
	}
	return nil
}

// removeStale drops stored photos whose files are no longer in the folder.
func (idx *Indexer) removeStale(ctx context.Context, present map[string]bool) (int, error) {
	stored, err := idx.storage.ListPhotos(ctx, 0, 1<<31-1)
	if err != nil {
		return 0, fmt.Errorf("failed to list stored photos: %w", err)
	}
	removed := 0
	for _, photo := range stored {
		if present[photo.ID] {
			continue
		}
		if err := idx.removePhoto(ctx, photo.ID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open photo: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode photo %s: %w", path, err)
	}
	return img, nil
}
