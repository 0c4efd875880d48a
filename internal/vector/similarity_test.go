package vector

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeL2InPlace(t *testing.T) {
	tests := []struct {
		name     string
		in       []float32
		expected []float32
		changed  bool
	}{
		{"Axis", []float32{3, 0, 0}, []float32{1, 0, 0}, true},
		{"Pythagorean", []float32{3, 4}, []float32{0.6, 0.8}, true},
		{"Zero", []float32{0, 0, 0}, []float32{0, 0, 0}, false},
		{"Empty", []float32{}, []float32{}, false},
		{"BelowEpsilon", []float32{1e-7, 0}, []float32{1e-7, 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := append([]float32(nil), tt.in...)
			assert.Equal(t, tt.changed, NormalizeL2InPlace(v))
			require.Len(t, v, len(tt.expected))
			for i := range v {
				assert.InDelta(t, tt.expected[i], v[i], 1e-6)
				assert.False(t, math.IsNaN(float64(v[i])))
			}
		})
	}
}

func TestNormalizeL2InPlace_Idempotent(t *testing.T) {
	v := []float32{0.3, -1.7, 2.2, 0.05}
	NormalizeL2InPlace(v)
	once := append([]float32(nil), v...)
	NormalizeL2InPlace(v)
	for i := range v {
		assert.InDelta(t, once[i], v[i], 1e-6)
	}
	assert.InDelta(t, 1.0, L2Norm(v), 1e-6)
}

func TestNormalizeL2Copy_DoesNotMutate(t *testing.T) {
	src := []float32{0.9, 0.1, 0}
	dst := NormalizeL2Copy(src)
	assert.Equal(t, []float32{0.9, 0.1, 0}, src)
	assert.InDelta(t, 1.0, L2Norm(dst), 1e-6)
}

func TestDot(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{"Simple", []float32{1, 2, 3}, []float32{4, 5, 6}, 32},
		{"Mixed", []float32{1, -1, 2}, []float32{1, 1, -2}, -4},
		{"Empty", []float32{}, []float32{}, 0},
		{"TruncatesLongerA", []float32{1, 2, 3, 100}, []float32{1, 1, 1}, 6},
		{"TruncatesLongerB", []float32{2}, []float32{3, 50}, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Dot(tt.a, tt.b), 1e-5)
		})
	}
}

func TestDotStrict(t *testing.T) {
	got, err := DotStrict([]float32{1, 2}, []float32{3, 4})
	require.NoError(t, err)
	assert.InDelta(t, 11, got, 1e-6)

	_, err = DotStrict([]float32{1, 2, 3}, []float32{3, 4})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
	var dm *DimensionMismatchError
	require.True(t, errors.As(err, &dm))
	assert.Equal(t, 2, dm.Expected)
	assert.Equal(t, 3, dm.Actual)
}

func TestFloat32Blob(t *testing.T) {
	in := []float32{1.5, -0.25, float32(math.Pi), 0}
	out, err := DecodeFloat32s(EncodeFloat32s(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = DecodeFloat32s([]byte{1, 2, 3})
	assert.Error(t, err)
}
