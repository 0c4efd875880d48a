// Package embedding provides the feature-extractor side of the classifier:
// frames in, embedding vectors out.
package embedding

import (
	"context"
	"errors"

	"github.com/hyperjump/teachable/internal/frameid"
)

// ErrNoEmbedding is returned when an embedder has no vector for a frame
// (for example, the frame is not ready yet).
var ErrNoEmbedding = errors.New("no embedding for frame")

// Frame is a preprocessed image: Pixels holds Channels planes of Height*Width
// values in [0, 1], channel-major (CHW).
type Frame struct {
	ID       string
	Width    int
	Height   int
	Channels int
	Pixels   []float32
}

// Key returns the content key of the frame, used for caching.
func (f Frame) Key() string {
	return frameid.Key(f.Width, f.Height, f.Pixels)
}

// Embedder produces embedding vectors for frames. The length of the returned
// vector is authoritative for the embedding dimension.
type Embedder interface {
	Embed(ctx context.Context, frame Frame) ([]float32, error)
	Dimensions() int
	Close() error
}
