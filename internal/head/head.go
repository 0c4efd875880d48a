// Package head defines the trained classifier artifact and its persistence format.
package head

import "fmt"

// Kind identifies the scoring head variant.
type Kind string

const (
	// KindCentroid scores by cosine similarity against one unit centroid per class.
	KindCentroid Kind = "centroid"
	// KindLinear scores by softmax over W^T z with W of shape [D][C].
	KindLinear Kind = "linear"
)

// ParseKind returns the Kind for s, defaulting "" to KindCentroid.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindCentroid, "":
		return KindCentroid, nil
	case KindLinear:
		return KindLinear, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Head is the decision artifact installed for inference. Index i of Classes is
// the identity of class i in Centroids and in the columns of Weights.
// A Head is treated as immutable once built; callers replace it wholesale.
type Head struct {
	Kind    Kind
	Classes []string
	// Centroids holds one L2-normalized vector per class (KindCentroid only).
	Centroids [][]float32
	// Weights is the [D][C] matrix (KindLinear only).
	Weights [][]float32
}

// NewCentroidHead builds a centroid head. The slices are retained, not copied.
func NewCentroidHead(classes []string, centroids [][]float32) *Head {
	return &Head{Kind: KindCentroid, Classes: classes, Centroids: centroids}
}

// NewLinearHead builds a linear head. The slices are retained, not copied.
func NewLinearHead(classes []string, weights [][]float32) *Head {
	return &Head{Kind: KindLinear, Classes: classes, Weights: weights}
}

// Validate returns nil when the head is usable, or a *HeadError describing why not:
// classes must be non-empty and the payload shape must match len(Classes).
func (h *Head) Validate() error {
	if h == nil {
		return &HeadError{Reason: "no head"}
	}
	c := len(h.Classes)
	if c == 0 {
		return &HeadError{Reason: "no classes"}
	}
	switch h.Kind {
	case KindCentroid:
		if len(h.Centroids) != c {
			return &HeadError{Reason: fmt.Sprintf("centroid count %d does not match class count %d", len(h.Centroids), c)}
		}
		d := len(h.Centroids[0])
		for i, cent := range h.Centroids {
			if len(cent) == 0 {
				return &HeadError{Reason: fmt.Sprintf("centroid %d is empty", i)}
			}
			if len(cent) != d {
				return &HeadError{Reason: fmt.Sprintf("centroid %d has %d dimensions, want %d", i, len(cent), d)}
			}
		}
	case KindLinear:
		if len(h.Weights) == 0 {
			return &HeadError{Reason: "weight matrix has no rows"}
		}
		for d, row := range h.Weights {
			if len(row) != c {
				return &HeadError{Reason: fmt.Sprintf("weight row %d has %d columns, want %d", d, len(row), c)}
			}
		}
	default:
		return &HeadError{Reason: fmt.Sprintf("unknown head type %q", h.Kind)}
	}
	return nil
}

// Usable reports whether Validate succeeds.
func (h *Head) Usable() bool {
	return h.Validate() == nil
}

// Dimensions returns the embedding dimension D the head expects, or 0 if unknown.
func (h *Head) Dimensions() int {
	if h == nil {
		return 0
	}
	switch h.Kind {
	case KindCentroid:
		if len(h.Centroids) > 0 {
			return len(h.Centroids[0])
		}
	case KindLinear:
		return len(h.Weights)
	}
	return 0
}

// Clone returns a deep copy of h.
func (h *Head) Clone() *Head {
	if h == nil {
		return nil
	}
	return &Head{
		Kind:      h.Kind,
		Classes:   append([]string(nil), h.Classes...),
		Centroids: cloneMatrix(h.Centroids),
		Weights:   cloneMatrix(h.Weights),
	}
}

func cloneMatrix(m [][]float32) [][]float32 {
	if m == nil {
		return nil
	}
	out := make([][]float32, len(m))
	for i, row := range m {
		out[i] = append([]float32(nil), row...)
	}
	return out
}
