//go:build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hyperjump/teachable/internal/vector"
)

// ONNXEmbedder runs an image feature extractor with ONNX Runtime. It requires
// CGO and the onnxruntime shared library. The model must take a single
// [1, 3, S, S] float input and produce a single [1, D] float output.
type ONNXEmbedder struct {
	session    *ort.AdvancedSession
	dimensions int
	inputSize  int
	cache      *FrameCache
	// Pre-allocated tensors for Run(); we update input data and read output.
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	mu           sync.Mutex
}

// NewONNXEmbedder creates an ONNX embedder. InitializeEnvironment is called if not already done.
func NewONNXEmbedder(opts ONNXOptions) (*ONNXEmbedder, error) {
	opts.applyDefaults()
	if opts.Dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive, got %d", opts.Dimensions)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}

	size := int64(opts.InputSize)
	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, size, size))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(opts.Dimensions)))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		opts.ModelPath,
		[]string{opts.InputName},
		[]string{opts.OutputName},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		nil,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXEmbedder{
		session:      session,
		dimensions:   opts.Dimensions,
		inputSize:    opts.InputSize,
		cache:        NewFrameCache(opts.CacheSize),
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// Embed returns the L2-normalized embedding for frame, using the cache when available.
func (e *ONNXEmbedder) Embed(ctx context.Context, frame Frame) ([]float32, error) {
	if len(frame.Pixels) == 0 {
		return nil, ErrNoEmbedding
	}
	if frame.Width != e.inputSize || frame.Height != e.inputSize || len(frame.Pixels) != 3*e.inputSize*e.inputSize {
		return nil, fmt.Errorf("frame %s is %dx%d, model expects %dx%d RGB",
			frame.ID, frame.Width, frame.Height, e.inputSize, e.inputSize)
	}
	key := frame.Key()
	if cached, ok := e.cache.Get(key); ok {
		return cached, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, ErrEmbedderClosed
	}

	copy(e.inputTensor.GetData(), frame.Pixels)
	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	embedding := make([]float32, e.dimensions)
	copy(embedding, e.outputTensor.GetData())

	vector.NormalizeL2InPlace(embedding)
	e.cache.Put(key, embedding)
	return embedding, nil
}

// CacheStats returns the frame cache hit and miss counts.
func (e *ONNXEmbedder) CacheStats() (hits, misses uint64) {
	return e.cache.Stats()
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

// Close destroys the session and tensors once any running Embed returns.
// Later Embed calls fail with ErrEmbedderClosed.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	if e.inputTensor != nil {
		_ = e.inputTensor.Destroy()
		e.inputTensor = nil
	}
	if e.outputTensor != nil {
		_ = e.outputTensor.Destroy()
		e.outputTensor = nil
	}
	return err
}
