package trainer

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/teachable/internal/head"
	"github.com/hyperjump/teachable/internal/vector"
)

// DimensionPolicy decides what AddSample does when an embedding's length
// differs from the dimension already established.
type DimensionPolicy int

const (
	// PolicyReset drops every accumulated sample, keeps the labels, and adopts
	// the new dimension. This is what a feature-extractor swap mid-session needs.
	PolicyReset DimensionPolicy = iota
	// PolicyReject fails the sample with a dimension mismatch.
	PolicyReject
)

// ParseDimensionPolicy maps "reset" (or "") and "reject" to a policy.
func ParseDimensionPolicy(s string) (DimensionPolicy, error) {
	switch s {
	case "", "reset":
		return PolicyReset, nil
	case "reject":
		return PolicyReject, nil
	default:
		return PolicyReset, fmt.Errorf("unknown dimension policy %q (supported: reset, reject)", s)
	}
}

func (p DimensionPolicy) String() string {
	if p == PolicyReject {
		return "reject"
	}
	return "reset"
}

// Trainer owns one Accumulator per class. Class i is labels[i].
// It is not safe for concurrent use.
type Trainer struct {
	labels   []string
	accs     []*Accumulator
	dims     int
	policy   DimensionPolicy
	logger   *zap.Logger
}

// Option configures a Trainer.
type Option func(*Trainer)

// WithLogger sets the logger used for dimension-change events.
func WithLogger(l *zap.Logger) Option {
	return func(t *Trainer) { t.logger = l }
}

// WithDimensionPolicy sets the dimension-change policy (default PolicyReset).
func WithDimensionPolicy(p DimensionPolicy) Option {
	return func(t *Trainer) { t.policy = p }
}

// New creates a trainer for the given class labels, in class-index order.
func New(labels []string, opts ...Option) *Trainer {
	t := &Trainer{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(t)
	}
	for _, l := range labels {
		t.AddClass(l)
	}
	return t
}

// AddClass appends a class and returns its index. Duplicate labels become
// distinct classes.
func (t *Trainer) AddClass(label string) int {
	t.labels = append(t.labels, label)
	t.accs = append(t.accs, NewAccumulator(t.dims))
	return len(t.labels) - 1
}

// AddSample normalizes a copy of embedding and accumulates it into class.
// The first sample fixes the trainer dimension. A later sample of another
// length either resets all classes to the new dimension or is rejected,
// depending on the policy.
func (t *Trainer) AddSample(class int, embedding []float32) error {
	reset, err := t.CheckSample(class, embedding)
	if err != nil {
		return err
	}
	if reset {
		old := t.dims
		t.resetTo(len(embedding))
		t.logger.Warn("embedding dimension changed, training samples reset",
			zap.Int("old_dimensions", old),
			zap.Int("new_dimensions", t.dims),
			zap.Int("classes", len(t.labels)),
		)
	} else if t.dims == 0 {
		t.dims = len(embedding)
	}
	if err := t.accs[class].Add(vector.NormalizeL2Copy(embedding)); err != nil {
		return &TrainError{Op: "add_sample", Class: class, Err: err}
	}
	return nil
}

// CheckSample reports what AddSample would do with embedding without changing
// the trainer: the error AddSample would return, or whether accepting the
// sample resets every class to a new dimension.
func (t *Trainer) CheckSample(class int, embedding []float32) (reset bool, err error) {
	if class < 0 || class >= len(t.accs) {
		return false, &TrainError{Op: "add_sample", Class: class, Err: ErrInvalidClass}
	}
	if len(embedding) == 0 {
		return false, &TrainError{Op: "add_sample", Class: class, Err: ErrEmptySample}
	}
	if t.dims == 0 || len(embedding) == t.dims {
		return false, nil
	}
	if t.policy == PolicyReject {
		return false, &TrainError{Op: "add_sample", Class: class,
			Err: &vector.DimensionMismatchError{Expected: t.dims, Actual: len(embedding)}}
	}
	return true, nil
}

// Finalize builds a centroid head from the current sums. Each class with
// samples gets its L2-normalized mean; a class without samples gets the zero
// vector, which scores 0 against any query. With no classes, or no samples at
// all, the returned head is not usable.
func (t *Trainer) Finalize() *head.Head {
	return head.NewCentroidHead(t.Labels(), t.centroids())
}

// FinalizeLinear builds a linear head with W[d][c] = scale * centroid_c[d],
// so the logits are scaled cosine similarities.
func (t *Trainer) FinalizeLinear(scale float32) *head.Head {
	cents := t.centroids()
	weights := make([][]float32, t.dims)
	for d := range weights {
		row := make([]float32, len(cents))
		for c, cent := range cents {
			row[c] = scale * cent[d]
		}
		weights[d] = row
	}
	return head.NewLinearHead(t.Labels(), weights)
}

func (t *Trainer) centroids() [][]float32 {
	cents := make([][]float32, len(t.accs))
	for i, acc := range t.accs {
		mean, ok := acc.Mean()
		if !ok {
			cents[i] = make([]float32, t.dims)
			continue
		}
		vector.NormalizeL2InPlace(mean)
		cents[i] = mean
	}
	return cents
}

// Labels returns a copy of the class labels in index order.
func (t *Trainer) Labels() []string {
	return append([]string(nil), t.labels...)
}

// Counts returns the per-class sample counts in index order.
func (t *Trainer) Counts() []uint32 {
	counts := make([]uint32, len(t.accs))
	for i, acc := range t.accs {
		counts[i] = acc.Count()
	}
	return counts
}

// NumClasses returns the number of classes.
func (t *Trainer) NumClasses() int {
	return len(t.labels)
}

// Dimensions returns the established embedding dimension, 0 before the first sample.
func (t *Trainer) Dimensions() int {
	return t.dims
}

// Clear drops all samples and forgets the dimension; labels are kept.
func (t *Trainer) Clear() {
	t.resetTo(0)
}

func (t *Trainer) resetTo(dims int) {
	t.dims = dims
	for _, acc := range t.accs {
		acc.Reset(dims)
	}
}
