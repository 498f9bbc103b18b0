package embedding

import (
	"context"
	"hash/fnv"
	"image"
	"math"
	"strings"

	"github.com/hyperjump/smartlens/pkg/utils"
)

// MockEmbedder is a deterministic embedder for development and tests. Text is
// embedded as the normalized sum of per-word vectors, so queries sharing words
// land close together; images are embedded from downsampled pixel statistics,
// so the same file always gets the same vector. It makes no claim of semantic
// alignment between the two modalities.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns an embedder producing deterministic embeddings of
// the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 512
	}
	return &MockEmbedder{dimensions: dimensions}
}

// EmbedText returns the normalized sum of hash-seeded word vectors.
func (e *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	emb := make([]float32, e.dimensions)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		seed := hashSeed(word)
		for i := 0; i < e.dimensions; i++ {
			emb[i] += float32(math.Sin(float64(seed) * float64(i+1)))
		}
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedImage returns a vector seeded from a coarse sample of the pixels.
func (e *MockEmbedder) EmbedImage(ctx context.Context, img image.Image) ([]float32, error) {
	seed := pixelSeed(img)
	emb := make([]float32, e.dimensions)
	for i := 0; i < e.dimensions; i++ {
		emb[i] = float32(math.Sin(float64(seed) * float64(i+1)))
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}

func hashSeed(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	// Keep the seed small so sin() stays well-conditioned.
	return h.Sum32()%10000 + 1
}

// pixelSeed samples a fixed 8x8 grid of pixels and hashes their RGB values.
func pixelSeed(img image.Image) uint32 {
	b := img.Bounds()
	h := fnv.New32a()
	buf := make([]byte, 3)
	const grid = 8
	for gy := 0; gy < grid; gy++ {
		for gx := 0; gx < grid; gx++ {
			x := b.Min.X + b.Dx()*gx/grid
			y := b.Min.Y + b.Dy()*gy/grid
			r, g, bl, _ := img.At(x, y).RGBA()
			buf[0] = byte(r >> 8)
			buf[1] = byte(g >> 8)
			buf[2] = byte(bl >> 8)
			_, _ = h.Write(buf)
		}
	}
	return h.Sum32()%10000 + 1
}
