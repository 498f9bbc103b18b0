//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"image"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hyperjump/smartlens/pkg/utils"
)

// CLIPEmbedder runs the CLIP image and text encoders through ONNX Runtime so
// both modalities land in one shared vector space. It requires CGO and the
// onnxruntime shared library; the first call pays the session warm-up cost.
type CLIPEmbedder struct {
	imageSession *ort.AdvancedSession
	textSession  *ort.AdvancedSession
	tokenizer    *BPETokenizer
	cache        *EmbeddingCache

	dimensions    int
	contextLength int

	// Pre-allocated tensors; input data is overwritten per call under the
	// per-session mutex.
	pixelTensor       *ort.Tensor[float32]
	imageOutputTensor *ort.Tensor[float32]
	inputIDsTensor    *ort.Tensor[int64]
	textOutputTensor  *ort.Tensor[float32]

	imageMu sync.Mutex
	textMu  sync.Mutex
}

// NewCLIPEmbedder creates a CLIP embedder from the visual and textual ONNX
// model files and the BPE merges file. A load failure here is fatal to the
// whole pipeline; there is no per-item recovery from a missing model.
func NewCLIPEmbedder(imageModelPath, textModelPath, mergesPath string, dimensions, contextLength, cacheSize int) (*CLIPEmbedder, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}
	tokenizer, err := NewBPETokenizer(mergesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}

	e := &CLIPEmbedder{
		tokenizer:     tokenizer,
		cache:         NewEmbeddingCache(cacheSize),
		dimensions:    dimensions,
		contextLength: contextLength,
	}

	pixels := make([]float32, 3*InputSize*InputSize)
	e.pixelTensor, err = ort.NewTensor(ort.NewShape(1, 3, InputSize, InputSize), pixels)
	if err != nil {
		return nil, fmt.Errorf("failed to create pixel_values tensor: %w", err)
	}
	e.imageOutputTensor, err = ort.NewTensor(ort.NewShape(1, int64(dimensions)), make([]float32, dimensions))
	if err != nil {
		e.destroyTensors()
		return nil, fmt.Errorf("failed to create image output tensor: %w", err)
	}
	e.inputIDsTensor, err = ort.NewTensor(ort.NewShape(1, int64(contextLength)), make([]int64, contextLength))
	if err != nil {
		e.destroyTensors()
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	e.textOutputTensor, err = ort.NewTensor(ort.NewShape(1, int64(dimensions)), make([]float32, dimensions))
	if err != nil {
		e.destroyTensors()
		return nil, fmt.Errorf("failed to create text output tensor: %w", err)
	}

	e.imageSession, err = ort.NewAdvancedSession(
		imageModelPath,
		[]string{"pixel_values"},
		[]string{"image_embeds"},
		[]ort.ArbitraryTensor{e.pixelTensor},
		[]ort.ArbitraryTensor{e.imageOutputTensor},
		nil,
	)
	if err != nil {
		e.destroyTensors()
		return nil, fmt.Errorf("failed to create image encoder session: %w", err)
	}
	e.textSession, err = ort.NewAdvancedSession(
		textModelPath,
		[]string{"input_ids"},
		[]string{"text_embeds"},
		[]ort.ArbitraryTensor{e.inputIDsTensor},
		[]ort.ArbitraryTensor{e.textOutputTensor},
		nil,
	)
	if err != nil {
		_ = e.imageSession.Destroy()
		e.destroyTensors()
		return nil, fmt.Errorf("failed to create text encoder session: %w", err)
	}
	return e, nil
}

// EmbedImage preprocesses img and runs the image encoder.
func (e *CLIPEmbedder) EmbedImage(ctx context.Context, img image.Image) ([]float32, error) {
	pixels := PreprocessImage(img)

	e.imageMu.Lock()
	defer e.imageMu.Unlock()

	copy(e.pixelTensor.GetData(), pixels)
	if err := e.imageSession.Run(); err != nil {
		return nil, fmt.Errorf("image inference failed: %w", err)
	}
	embedding := make([]float32, e.dimensions)
	copy(embedding, e.imageOutputTensor.GetData()[:e.dimensions])
	utils.NormalizeL2(embedding)
	return embedding, nil
}

// EmbedText tokenizes text and runs the text encoder, using the cache when
// the same query was embedded before.
func (e *CLIPEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}

	e.textMu.Lock()
	defer e.textMu.Unlock()

	copy(e.inputIDsTensor.GetData(), e.tokenizer.Tokenize(text, e.contextLength))
	if err := e.textSession.Run(); err != nil {
		return nil, fmt.Errorf("text inference failed: %w", err)
	}
	embedding := make([]float32, e.dimensions)
	copy(embedding, e.textOutputTensor.GetData()[:e.dimensions])
	utils.NormalizeL2(embedding)
	e.cache.Set(text, embedding)
	return embedding, nil
}

// Dimensions returns the embedding dimension.
func (e *CLIPEmbedder) Dimensions() int {
	return e.dimensions
}

// Close destroys the sessions and tensors.
func (e *CLIPEmbedder) Close() error {
	var err error
	if e.imageSession != nil {
		err = e.imageSession.Destroy()
		e.imageSession = nil
	}
	if e.textSession != nil {
		if derr := e.textSession.Destroy(); err == nil {
			err = derr
		}
		e.textSession = nil
	}
	e.destroyTensors()
	return err
}

func (e *CLIPEmbedder) destroyTensors() {
	if e.pixelTensor != nil {
		_ = e.pixelTensor.Destroy()
		e.pixelTensor = nil
	}
	if e.imageOutputTensor != nil {
		_ = e.imageOutputTensor.Destroy()
		e.imageOutputTensor = nil
	}
	if e.inputIDsTensor != nil {
		_ = e.inputIDsTensor.Destroy()
		e.inputIDsTensor = nil
	}
	if e.textOutputTensor != nil {
		_ = e.textOutputTensor.Destroy()
		e.textOutputTensor = nil
	}
}
