// Package embedding provides multimodal (image and text) embedding via ONNX
// CLIP encoders, plus caching and a deterministic mock.
package embedding

import (
	"context"
	"image"
)

// Embedder maps images and text strings into one shared vector space, so that
// cosine similarity between an image vector and a text vector is meaningful.
// Vectors are unit-normalized.
type Embedder interface {
	EmbedImage(ctx context.Context, img image.Image) ([]float32, error)
	EmbedText(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Close() error
}
