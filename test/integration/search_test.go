// Package integration exercises the full pipeline: photo folder -> indexer ->
// storage/vector/keyword -> search engine.
package integration

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/smartlens/internal/config"
	"github.com/hyperjump/smartlens/internal/indexer"
	"github.com/hyperjump/smartlens/internal/keyword"
	"github.com/hyperjump/smartlens/internal/models"
	"github.com/hyperjump/smartlens/internal/search"
	"github.com/hyperjump/smartlens/internal/storage"
	"github.com/hyperjump/smartlens/internal/vector"
)

// colorEmbedder maps images and query phrases into a shared 3-dimensional
// color space, standing in for CLIP: an image embeds as its average RGB, and
// known phrases embed as the color they describe. Cosine ranking then behaves
// like real multimodal search on a miniature scale.
type colorEmbedder struct {
	phrases map[string][]float32
}

func (c *colorEmbedder) EmbedImage(ctx context.Context, img image.Image) ([]float32, error) {
	bounds := img.Bounds()
	var r, g, b, n float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			pr, pg, pb, _ := img.At(x, y).RGBA()
			r += float64(pr >> 8)
			g += float64(pg >> 8)
			b += float64(pb >> 8)
			n++
		}
	}
	return normalize([]float32{float32(r / n), float32(g / n), float32(b / n)}), nil
}

func (c *colorEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.phrases[text]; ok {
		return normalize(v), nil
	}
	return nil, errors.New("phrase not in test vocabulary: " + text)
}

func (c *colorEmbedder) Dimensions() int { return 3 }
func (c *colorEmbedder) Close() error    { return nil }

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := float32(1.0 / math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x * inv
	}
	return out
}

func writeSolidPNG(t *testing.T, dir, name string, c color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 24, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 24; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestIntegration_IndexAndSearch(t *testing.T) {
	photosDir := t.TempDir()
	writeSolidPNG(t, photosDir, "sunset.png", color.RGBA{230, 80, 20, 255})
	writeSolidPNG(t, photosDir, "forest.png", color.RGBA{20, 180, 40, 255})
	writeSolidPNG(t, photosDir, "ocean.png", color.RGBA{10, 60, 220, 255})

	dataDir := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(dataDir, "photos.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	embedder := &colorEmbedder{phrases: map[string][]float32{
		"a warm orange sunset": {230, 80, 20},
		"green forest trees":   {20, 180, 40},
		"deep blue ocean":      {10, 60, 220},
	}}
	defer embedder.Close()

	vecIndex, err := vector.NewMemoryIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	defer vecIndex.Close()

	kwIndex, err := keyword.NewBleveIndex(filepath.Join(dataDir, "bleve"))
	if err != nil {
		t.Fatal(err)
	}
	defer kwIndex.Close()

	idx := indexer.NewIndexer(store, embedder, vecIndex, kwIndex, photosDir)
	ctx := context.Background()
	report, err := idx.IndexFolder(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.Indexed != 3 {
		t.Fatalf("expected 3 photos indexed, got %+v", report)
	}

	engine := search.NewEngine(store, embedder, vecIndex, kwIndex, &config.SearchConfig{TopK: models.DefaultTopK})

	cases := []struct {
		query string
		want  string
	}{
		{"a warm orange sunset", "sunset.png"},
		{"green forest trees", "forest.png"},
		{"deep blue ocean", "ocean.png"},
	}
	for _, tc := range cases {
		resp, err := engine.Search(ctx, &models.SearchQuery{Query: tc.query})
		if err != nil {
			t.Fatalf("Search(%q) failed: %v", tc.query, err)
		}
		if resp.Total != 3 {
			t.Fatalf("Search(%q): expected 3 ranked results, got %d", tc.query, resp.Total)
		}
		if got := resp.Results[0].Photo.ID; got != tc.want {
			t.Errorf("Search(%q): expected %s first, got %s", tc.query, tc.want, got)
		}
		if resp.Results[0].Score <= resp.Results[2].Score {
			t.Errorf("Search(%q): scores not descending", tc.query)
		}
	}
}

func TestIntegration_ReindexAfterFolderChanges(t *testing.T) {
	photosDir := t.TempDir()
	writeSolidPNG(t, photosDir, "sunset.png", color.RGBA{230, 80, 20, 255})

	dataDir := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(dataDir, "photos.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	embedder := &colorEmbedder{phrases: map[string][]float32{
		"a warm orange sunset": {230, 80, 20},
	}}
	vecIndex, err := vector.NewMemoryIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	defer vecIndex.Close()
	kwIndex, err := keyword.NewBleveIndex(filepath.Join(dataDir, "bleve"))
	if err != nil {
		t.Fatal(err)
	}
	defer kwIndex.Close()

	idx := indexer.NewIndexer(store, embedder, vecIndex, kwIndex, photosDir)
	ctx := context.Background()
	if _, err := idx.IndexFolder(ctx); err != nil {
		t.Fatal(err)
	}

	// Add one photo and delete the original, then reindex from scratch.
	writeSolidPNG(t, photosDir, "ocean.png", color.RGBA{10, 60, 220, 255})
	if err := os.Remove(filepath.Join(photosDir, "sunset.png")); err != nil {
		t.Fatal(err)
	}
	report, err := idx.Reindex(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.Indexed != 1 {
		t.Fatalf("expected 1 photo after reindex, got %+v", report)
	}

	n, _ := store.CountPhotos(ctx)
	if n != 1 {
		t.Errorf("expected 1 stored photo, got %d", n)
	}
	if vecIndex.Size() != 1 {
		t.Errorf("expected 1 vector, got %d", vecIndex.Size())
	}
	if _, err := store.GetPhoto(ctx, "sunset.png"); err == nil {
		t.Error("removed photo still present after reindex")
	}
}
