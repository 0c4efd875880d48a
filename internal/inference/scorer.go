// Package inference scores embeddings against a head and runs the live
// prediction loop with majority-vote smoothing.
package inference

import (
	"errors"
	"fmt"
	"math"

	"github.com/hyperjump/teachable/internal/head"
	"github.com/hyperjump/teachable/internal/vector"
)

var (
	// ErrEmptyEmbedding is returned when the query embedding has no elements.
	ErrEmptyEmbedding = errors.New("empty embedding")
	// ErrNotRunning is the skip reason for ticks outside the Running state.
	ErrNotRunning = errors.New("inference not running")
)

// Result is the winning class of one scoring pass.
type Result struct {
	Class int
	// Score is the cosine similarity (centroid) or softmax probability (linear).
	Score float32
}

// Scorer scores embeddings against a head. It holds no state between calls.
type Scorer struct {
	// Strict rejects embeddings whose length differs from the head dimension
	// with a *vector.DimensionMismatchError. When false, scoring runs over the
	// shorter of the two lengths.
	Strict bool
}

// DefaultScorer is a strict scorer.
var DefaultScorer = Scorer{Strict: true}

// Score scores embedding with DefaultScorer.
func Score(h *head.Head, embedding []float32) (Result, error) {
	return DefaultScorer.Score(h, embedding)
}

// Score returns the best class for embedding. Exact ties go to the lowest
// class index. The caller's embedding is never modified.
func (s Scorer) Score(h *head.Head, embedding []float32) (Result, error) {
	if err := h.Validate(); err != nil {
		return Result{}, err
	}
	if len(embedding) == 0 {
		return Result{}, ErrEmptyEmbedding
	}
	switch h.Kind {
	case head.KindCentroid:
		return s.scoreCentroid(h, embedding)
	case head.KindLinear:
		return s.scoreLinear(h, embedding)
	default:
		return Result{}, fmt.Errorf("%w: %q", head.ErrUnknownKind, h.Kind)
	}
}

func (s Scorer) scoreCentroid(h *head.Head, embedding []float32) (Result, error) {
	q := vector.NormalizeL2Copy(embedding)
	best := Result{Class: -1}
	for c, cent := range h.Centroids {
		if s.Strict && len(cent) != len(q) {
			return Result{}, &vector.DimensionMismatchError{Expected: len(cent), Actual: len(q)}
		}
		sim := vector.Dot(q, cent)
		if best.Class < 0 || sim > best.Score {
			best = Result{Class: c, Score: sim}
		}
	}
	return best, nil
}

func (s Scorer) scoreLinear(h *head.Head, z []float32) (Result, error) {
	rows := len(h.Weights)
	if s.Strict && rows != len(z) {
		return Result{}, &vector.DimensionMismatchError{Expected: rows, Actual: len(z)}
	}
	n := rows
	if len(z) < n {
		n = len(z)
	}
	numClasses := len(h.Classes)
	logits := make([]float64, numClasses)
	for d := 0; d < n; d++ {
		zd := float64(z[d])
		row := h.Weights[d]
		for c := 0; c < numClasses; c++ {
			logits[c] += float64(row[c]) * zd
		}
	}
	probs := softmax(logits)
	best := Result{Class: 0, Score: float32(probs[0])}
	for c := 1; c < numClasses; c++ {
		if p := float32(probs[c]); p > best.Score {
			best = Result{Class: c, Score: p}
		}
	}
	return best, nil
}

// softmax subtracts the max logit before exponentiating.
func softmax(logits []float64) []float64 {
	max := math.Inf(-1)
	for _, l := range logits {
		if l > max {
			max = l
		}
	}
	out := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		out[i] = math.Exp(l - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
