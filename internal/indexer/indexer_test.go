package indexer

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/smartlens/internal/embedding"
	"github.com/hyperjump/smartlens/internal/keyword"
	"github.com/hyperjump/smartlens/internal/models"
	"github.com/hyperjump/smartlens/internal/storage"
	"github.com/hyperjump/smartlens/internal/vector"
)

func writePNG(t *testing.T, dir, name string, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, c)
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestIndexer(t *testing.T, photosDir string) (*Indexer, storage.Storage, vector.VectorIndex) {
	t.Helper()
	dataDir := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(dataDir, "photos.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	vectorIndex, err := vector.NewMemoryIndex(128)
	if err != nil {
		t.Fatal(err)
	}
	keywordIndex, err := keyword.NewBleveIndex(filepath.Join(dataDir, "bleve"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { keywordIndex.Close() })

	embedder := embedding.NewMockEmbedder(128)
	idx := NewIndexer(store, embedder, vectorIndex, keywordIndex, photosDir)
	return idx, store, vectorIndex
}

func TestIndexFolder(t *testing.T) {
	photosDir := t.TempDir()
	writePNG(t, photosDir, "red.png", color.RGBA{255, 0, 0, 255})
	writePNG(t, photosDir, "blue.png", color.RGBA{0, 0, 255, 255})

	idx, store, vectorIndex := newTestIndexer(t, photosDir)
	ctx := context.Background()

	report, err := idx.IndexFolder(ctx)
	if err != nil {
		t.Fatalf("IndexFolder failed: %v", err)
	}
	if report.Indexed != 2 || report.Failed != 0 {
		t.Errorf("expected 2 indexed, got %+v", report)
	}
	if vectorIndex.Size() != 2 {
		t.Errorf("expected 2 vectors, got %d", vectorIndex.Size())
	}

	photo, err := store.GetPhoto(ctx, "red.png")
	if err != nil {
		t.Fatalf("GetPhoto failed: %v", err)
	}
	if photo.Width != 32 || photo.Height != 32 {
		t.Errorf("expected 32x32, got %dx%d", photo.Width, photo.Height)
	}
	if len(photo.Embedding) != 128 {
		t.Errorf("expected 128-dim embedding, got %d", len(photo.Embedding))
	}
	if photo.Path != filepath.Join(photosDir, "red.png") {
		t.Errorf("unexpected path %s", photo.Path)
	}
}

func TestIndexFolderSkipsUnchanged(t *testing.T) {
	photosDir := t.TempDir()
	writePNG(t, photosDir, "red.png", color.RGBA{255, 0, 0, 255})

	idx, _, _ := newTestIndexer(t, photosDir)
	ctx := context.Background()

	if _, err := idx.IndexFolder(ctx); err != nil {
		t.Fatalf("first IndexFolder failed: %v", err)
	}
	report, err := idx.IndexFolder(ctx)
	if err != nil {
		t.Fatalf("second IndexFolder failed: %v", err)
	}
	if report.Indexed != 0 || report.Unchanged != 1 {
		t.Errorf("expected 1 unchanged, got %+v", report)
	}
}

func TestIndexFolderReindexesChangedFile(t *testing.T) {
	photosDir := t.TempDir()
	path := writePNG(t, photosDir, "red.png", color.RGBA{255, 0, 0, 255})

	idx, _, _ := newTestIndexer(t, photosDir)
	ctx := context.Background()
	if _, err := idx.IndexFolder(ctx); err != nil {
		t.Fatal(err)
	}

	// Rewrite the file with different content and a newer mtime.
	writePNG(t, photosDir, "red.png", color.RGBA{0, 255, 0, 255})
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	report, err := idx.IndexFolder(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.Indexed != 1 {
		t.Errorf("expected changed file to be re-indexed, got %+v", report)
	}
}

func TestIndexFolderRemovesDeleted(t *testing.T) {
	photosDir := t.TempDir()
	path := writePNG(t, photosDir, "red.png", color.RGBA{255, 0, 0, 255})
	writePNG(t, photosDir, "blue.png", color.RGBA{0, 0, 255, 255})

	idx, store, vectorIndex := newTestIndexer(t, photosDir)
	ctx := context.Background()
	if _, err := idx.IndexFolder(ctx); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	report, err := idx.IndexFolder(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.Removed != 1 {
		t.Errorf("expected 1 removed, got %+v", report)
	}
	if _, err := store.GetPhoto(ctx, "red.png"); err == nil {
		t.Error("deleted photo still in storage")
	}
	if vectorIndex.Size() != 1 {
		t.Errorf("expected 1 vector after removal, got %d", vectorIndex.Size())
	}
}

func TestIndexFolderSkipsCorruptFile(t *testing.T) {
	photosDir := t.TempDir()
	writePNG(t, photosDir, "good.png", color.RGBA{255, 0, 0, 255})
	if err := os.WriteFile(filepath.Join(photosDir, "broken.jpg"), []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}

	idx, _, _ := newTestIndexer(t, photosDir)
	report, err := idx.IndexFolder(context.Background())
	if err != nil {
		t.Fatalf("IndexFolder should not abort on a corrupt file: %v", err)
	}
	if report.Indexed != 1 || report.Failed != 1 {
		t.Errorf("expected 1 indexed and 1 failed, got %+v", report)
	}
	if len(report.FailedFiles) != 1 || report.FailedFiles[0] != "broken.jpg" {
		t.Errorf("expected FailedFiles [broken.jpg], got %v", report.FailedFiles)
	}
}

func TestIndexFolderEmptyFolder(t *testing.T) {
	idx, _, _ := newTestIndexer(t, t.TempDir())
	report, err := idx.IndexFolder(context.Background())
	if err != nil {
		t.Fatalf("IndexFolder on empty folder should not fail: %v", err)
	}
	if report.Total != 0 || report.Indexed != 0 {
		t.Errorf("expected empty report, got %+v", report)
	}
}

func TestIndexFolderIgnoresUnsupportedFiles(t *testing.T) {
	photosDir := t.TempDir()
	writePNG(t, photosDir, "photo.png", color.RGBA{255, 0, 0, 255})
	if err := os.WriteFile(filepath.Join(photosDir, "notes.txt"), []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	idx, _, _ := newTestIndexer(t, photosDir)
	report, err := idx.IndexFolder(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Total != 1 || report.Indexed != 1 {
		t.Errorf("expected only the png to be indexed, got %+v", report)
	}
}

func TestReindexRebuildsFromScratch(t *testing.T) {
	photosDir := t.TempDir()
	writePNG(t, photosDir, "red.png", color.RGBA{255, 0, 0, 255})

	idx, store, vectorIndex := newTestIndexer(t, photosDir)
	ctx := context.Background()
	if _, err := idx.IndexFolder(ctx); err != nil {
		t.Fatal(err)
	}

	// A stale record with no file behind it must not survive a reindex.
	_ = store.UpsertPhoto(ctx, &models.Photo{
		ID:        "orphan.jpg",
		Path:      filepath.Join(photosDir, "orphan.jpg"),
		Embedding: make([]float32, 128),
	})
	report, err := idx.Reindex(ctx)
	if err != nil {
		t.Fatalf("Reindex failed: %v", err)
	}
	if report.Indexed != 1 || report.Unchanged != 0 {
		t.Errorf("expected full rebuild, got %+v", report)
	}
	n, _ := store.CountPhotos(ctx)
	if n != 1 {
		t.Errorf("expected 1 photo after reindex, got %d", n)
	}
	if vectorIndex.Size() != 1 {
		t.Errorf("expected 1 vector after reindex, got %d", vectorIndex.Size())
	}
}

func TestRemovePhoto(t *testing.T) {
	photosDir := t.TempDir()
	writePNG(t, photosDir, "red.png", color.RGBA{255, 0, 0, 255})

	idx, store, vectorIndex := newTestIndexer(t, photosDir)
	ctx := context.Background()
	if _, err := idx.IndexFolder(ctx); err != nil {
		t.Fatal(err)
	}

	if err := idx.RemovePhoto(ctx, "red.png"); err != nil {
		t.Fatalf("RemovePhoto failed: %v", err)
	}
	if _, err := store.GetPhoto(ctx, "red.png"); err == nil {
		t.Error("photo still in storage after remove")
	}
	if vectorIndex.Size() != 0 {
		t.Errorf("expected empty vector index, got %d", vectorIndex.Size())
	}
}

// gateEmbedder blocks image embedding until released so a run can be held
// open while another goroutine races it.
type gateEmbedder struct {
	embedding.Embedder
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gateEmbedder) EmbedImage(ctx context.Context, img image.Image) ([]float32, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return g.Embedder.EmbedImage(ctx, img)
}

func TestWatcherCallbacksWaitForRunningReindex(t *testing.T) {
	photosDir := t.TempDir()
	writePNG(t, photosDir, "red.png", color.RGBA{255, 0, 0, 255})

	dataDir := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(dataDir, "photos.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	vectorIndex, err := vector.NewMemoryIndex(128)
	if err != nil {
		t.Fatal(err)
	}
	keywordIndex, err := keyword.NewBleveIndex(filepath.Join(dataDir, "bleve"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { keywordIndex.Close() })

	gate := &gateEmbedder{
		Embedder: embedding.NewMockEmbedder(128),
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	idx := NewIndexer(store, gate, vectorIndex, keywordIndex, photosDir)
	ctx := context.Background()

	reindexDone := make(chan struct{})
	go func() {
		defer close(reindexDone)
		_, _ = idx.Reindex(ctx)
	}()
	<-gate.entered

	removeDone := make(chan struct{})
	go func() {
		defer close(removeDone)
		_ = idx.RemovePhoto(ctx, "red.png")
	}()

	select {
	case <-removeDone:
		t.Fatal("RemovePhoto completed while a reindex run was in progress")
	case <-time.After(50 * time.Millisecond):
	}

	close(gate.release)
	<-reindexDone
	select {
	case <-removeDone:
	case <-time.After(2 * time.Second):
		t.Fatal("RemovePhoto did not complete after the reindex finished")
	}
}
