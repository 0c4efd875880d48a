// Package trainer accumulates normalized embeddings per class and builds heads from them.
package trainer

import "github.com/hyperjump/teachable/internal/vector"

// Accumulator keeps the running sum and sample count of one class.
// A zero count implies an all-zero (or unallocated) sum.
type Accumulator struct {
	sum   []float32
	count uint32
}

// NewAccumulator returns an empty accumulator of dimension dims.
// dims <= 0 leaves the dimension unknown until the first Add.
func NewAccumulator(dims int) *Accumulator {
	a := &Accumulator{}
	if dims > 0 {
		a.sum = make([]float32, dims)
	}
	return a
}

// Add accumulates sample element-wise. Samples are expected to be normalized
// by the caller; no normalization happens here. A fresh accumulator with
// unknown dimension adopts len(sample).
func (a *Accumulator) Add(sample []float32) error {
	if a.sum == nil {
		if len(sample) == 0 {
			return &vector.DimensionMismatchError{Expected: 0, Actual: 0}
		}
		a.sum = make([]float32, len(sample))
	}
	if len(sample) != len(a.sum) {
		return &vector.DimensionMismatchError{Expected: len(a.sum), Actual: len(sample)}
	}
	for i, v := range sample {
		a.sum[i] += v
	}
	a.count++
	return nil
}

// Mean returns sum/count, or false when no samples were added.
func (a *Accumulator) Mean() ([]float32, bool) {
	if a.count == 0 {
		return nil, false
	}
	mean := make([]float32, len(a.sum))
	n := float32(a.count)
	for i, v := range a.sum {
		mean[i] = v / n
	}
	return mean, true
}

// Count returns the number of samples added.
func (a *Accumulator) Count() uint32 {
	return a.count
}

// Dimensions returns the accumulator dimension, 0 if not yet known.
func (a *Accumulator) Dimensions() int {
	return len(a.sum)
}

// Reset clears the accumulator and sets its dimension to dims (<= 0 for unknown).
func (a *Accumulator) Reset(dims int) {
	a.count = 0
	if dims <= 0 {
		a.sum = nil
		return
	}
	a.sum = make([]float32, dims)
}
