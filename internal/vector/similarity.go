// Package vector provides normalization and similarity primitives for embeddings.
package vector

import "math"

// normEpsilon is the squared-norm floor below which a vector is treated as zero.
const normEpsilon = 1e-12

// NormalizeL2InPlace scales v to unit L2 norm. The sum of squares is accumulated
// in float64. Vectors whose squared norm is at or below 1e-12 are left unchanged,
// so a zero vector stays zero. Returns false when v was left unchanged.
func NormalizeL2InPlace(v []float32) bool {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum <= normEpsilon {
		return false
	}
	inv := 1.0 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return true
}

// NormalizeL2Copy returns a normalized copy of src; src is not modified.
func NormalizeL2Copy(src []float32) []float32 {
	dst := make([]float32, len(src))
	copy(dst, src)
	NormalizeL2InPlace(dst)
	return dst
}

// Dot returns the inner product of a and b accumulated in float64.
// Only the first min(len(a), len(b)) elements are used: a length mismatch
// truncates instead of failing. Use DotStrict when the lengths must agree.
func Dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot)
}

// DotStrict is Dot with a length check.
func DotStrict(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, &DimensionMismatchError{Expected: len(b), Actual: len(a)}
	}
	return Dot(a, b), nil
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}
