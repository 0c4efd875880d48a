package embedding

import (
	"context"

	"github.com/hyperjump/teachable/internal/frameid"
	"github.com/hyperjump/teachable/internal/vector"
)

const defaultMockDimensions = 512

// MockEmbedder stands in for a feature extractor in tests and when no model
// is available. Identical frame contents map to the same unit vector.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns a mock embedder of the given dimension (512 when not positive).
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = defaultMockDimensions
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns a pseudo-random unit vector seeded by the frame content key.
// A frame without pixels has no embedding.
func (e *MockEmbedder) Embed(ctx context.Context, frame Frame) ([]float32, error) {
	if len(frame.Pixels) == 0 {
		return nil, ErrNoEmbedding
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	state := uint64(frameid.Seed(frame.Key()))
	emb := make([]float32, e.dimensions)
	for i := range emb {
		state = splitmix64(state)
		// top 24 bits mapped to [-1, 1)
		emb[i] = float32(state>>40)/float32(1<<23) - 1
	}
	vector.NormalizeL2InPlace(emb)
	return emb, nil
}

// splitmix64 advances a SplitMix64 generator.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *MockEmbedder) Close() error {
	return nil
}
