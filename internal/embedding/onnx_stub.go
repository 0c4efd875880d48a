//go:build !cgo

package embedding

import (
	"context"
	"fmt"
)

// ONNXEmbedder is a placeholder in builds without cgo; it cannot be constructed.
type ONNXEmbedder struct{}

// NewONNXEmbedder always fails with ErrONNXUnavailable in builds without cgo.
func NewONNXEmbedder(opts ONNXOptions) (*ONNXEmbedder, error) {
	return nil, fmt.Errorf("%w: cannot load %s", ErrONNXUnavailable, opts.ModelPath)
}

func (e *ONNXEmbedder) Embed(context.Context, Frame) ([]float32, error) {
	return nil, ErrONNXUnavailable
}

func (e *ONNXEmbedder) Dimensions() int { return 0 }

func (e *ONNXEmbedder) Close() error { return nil }
