package trainer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/teachable/internal/head"
	"github.com/hyperjump/teachable/internal/vector"
)

func TestAccumulator(t *testing.T) {
	a := NewAccumulator(0)
	_, ok := a.Mean()
	assert.False(t, ok, "empty accumulator has no mean")

	require.NoError(t, a.Add([]float32{1, 0}))
	require.NoError(t, a.Add([]float32{0, 1}))
	assert.Equal(t, 2, a.Dimensions())
	assert.Equal(t, uint32(2), a.Count())

	mean, ok := a.Mean()
	require.True(t, ok)
	assert.InDeltaSlice(t, []float32{0.5, 0.5}, mean, 1e-7)

	err := a.Add([]float32{1, 2, 3})
	assert.ErrorIs(t, err, vector.ErrDimensionMismatch)
	assert.Equal(t, uint32(2), a.Count(), "rejected sample must not count")

	a.Reset(3)
	assert.Equal(t, uint32(0), a.Count())
	assert.Equal(t, 3, a.Dimensions())
}

func TestTrainer_AddClass(t *testing.T) {
	tr := New(nil)
	assert.Equal(t, 0, tr.AddClass("a"))
	assert.Equal(t, 1, tr.AddClass("a"), "duplicate labels are distinct classes")
	assert.Equal(t, []string{"a", "a"}, tr.Labels())
}

func TestTrainer_InvalidClass(t *testing.T) {
	tr := New([]string{"a"})
	for _, idx := range []int{-1, 1, 7} {
		err := tr.AddSample(idx, []float32{1, 0})
		assert.ErrorIs(t, err, ErrInvalidClass)
		var te *TrainError
		require.True(t, errors.As(err, &te))
		assert.Equal(t, idx, te.Class)
	}
	assert.Equal(t, 0, tr.Dimensions(), "failed samples must not fix the dimension")
}

func TestTrainer_EmptySample(t *testing.T) {
	tr := New([]string{"a"})
	assert.ErrorIs(t, tr.AddSample(0, nil), ErrEmptySample)
}

func TestTrainer_TwoClassCentroids(t *testing.T) {
	tr := New([]string{"A", "B"})
	require.NoError(t, tr.AddSample(0, []float32{1, 0, 0}))
	require.NoError(t, tr.AddSample(1, []float32{0, 1, 0}))
	h := tr.Finalize()
	require.NoError(t, h.Validate())
	assert.Equal(t, head.KindCentroid, h.Kind)
	assert.Equal(t, []string{"A", "B"}, h.Classes)
	assert.InDeltaSlice(t, []float32{1, 0, 0}, h.Centroids[0], 1e-7)
	assert.InDeltaSlice(t, []float32{0, 1, 0}, h.Centroids[1], 1e-7)
}

func TestTrainer_MeanOfNormalizedSamples(t *testing.T) {
	samples := [][]float32{{1, 0}, {0, 1}, {1, 1}}
	forward := New([]string{"c"})
	for _, s := range samples {
		require.NoError(t, forward.AddSample(0, s))
	}
	backward := New([]string{"c"})
	for i := len(samples) - 1; i >= 0; i-- {
		require.NoError(t, backward.AddSample(0, samples[i]))
	}

	// Each sample is normalized before averaging, so the magnitude of {1,1} does not dominate.
	want := []float32{1 + 0.70710677, 1 + 0.70710677}
	vector.NormalizeL2InPlace(want)

	f := forward.Finalize().Centroids[0]
	b := backward.Finalize().Centroids[0]
	assert.InDeltaSlice(t, want, f, 1e-6)
	assert.InDeltaSlice(t, f, b, 1e-6, "addition order must not change the centroid")
	assert.InDelta(t, 1.0, vector.L2Norm(f), 1e-6)
}

func TestTrainer_MagnitudeDoesNotWeight(t *testing.T) {
	tr := New([]string{"c"})
	require.NoError(t, tr.AddSample(0, []float32{100, 0}))
	require.NoError(t, tr.AddSample(0, []float32{0, 0.01}))
	c := tr.Finalize().Centroids[0]
	assert.InDelta(t, c[0], c[1], 1e-6)
}

func TestTrainer_ZeroSampleClass(t *testing.T) {
	tr := New([]string{"seen", "unseen"})
	require.NoError(t, tr.AddSample(0, []float32{0, 1, 0}))
	h := tr.Finalize()
	require.True(t, h.Usable())
	assert.Equal(t, []float32{0, 0, 0}, h.Centroids[1])
	assert.Equal(t, []uint32{1, 0}, tr.Counts())
}

func TestTrainer_FinalizeUnusable(t *testing.T) {
	assert.False(t, New(nil).Finalize().Usable(), "no classes")
	assert.False(t, New([]string{"a", "b"}).Finalize().Usable(), "no samples means no dimension")
	assert.False(t, New([]string{"a"}).FinalizeLinear(1).Usable())
}

func TestTrainer_DimensionChangeResets(t *testing.T) {
	tr := New([]string{"a", "b"})

	big := make([]float32, 128)
	big[0] = 1
	require.NoError(t, tr.AddSample(0, big))
	require.NoError(t, tr.AddSample(1, big))
	assert.Equal(t, 128, tr.Dimensions())

	small := make([]float32, 64)
	small[3] = 2
	reset, err := tr.CheckSample(1, small)
	require.NoError(t, err)
	assert.True(t, reset)
	assert.Equal(t, 128, tr.Dimensions(), "CheckSample must not change the trainer")
	assert.Equal(t, []uint32{1, 1}, tr.Counts())

	require.NoError(t, tr.AddSample(1, small))
	assert.Equal(t, 64, tr.Dimensions())
	assert.Equal(t, []string{"a", "b"}, tr.Labels())
	assert.Equal(t, []uint32{0, 1}, tr.Counts())

	h := tr.Finalize()
	require.True(t, h.Usable())
	for _, c := range h.Centroids {
		assert.Len(t, c, 64)
	}
}

func TestTrainer_DimensionChangeRejected(t *testing.T) {
	tr := New([]string{"a"}, WithDimensionPolicy(PolicyReject))
	require.NoError(t, tr.AddSample(0, []float32{1, 0, 0}))
	reset, err := tr.CheckSample(0, []float32{1, 0})
	assert.False(t, reset)
	assert.ErrorIs(t, err, vector.ErrDimensionMismatch)
	err = tr.AddSample(0, []float32{1, 0})
	assert.ErrorIs(t, err, vector.ErrDimensionMismatch)
	assert.Equal(t, 3, tr.Dimensions())
	assert.Equal(t, []uint32{1}, tr.Counts())
}

func TestTrainer_FinalizeLinear(t *testing.T) {
	tr := New([]string{"A", "B", "empty"})
	require.NoError(t, tr.AddSample(0, []float32{2, 0}))
	require.NoError(t, tr.AddSample(1, []float32{0, 3}))
	h := tr.FinalizeLinear(10)
	require.NoError(t, h.Validate())
	assert.Equal(t, head.KindLinear, h.Kind)
	require.Len(t, h.Weights, 2)
	assert.InDeltaSlice(t, []float32{10, 0, 0}, h.Weights[0], 1e-6)
	assert.InDeltaSlice(t, []float32{0, 10, 0}, h.Weights[1], 1e-6)
}

func TestTrainer_Clear(t *testing.T) {
	tr := New([]string{"a"})
	require.NoError(t, tr.AddSample(0, []float32{1, 2}))
	tr.Clear()
	assert.Equal(t, 0, tr.Dimensions())
	assert.Equal(t, []uint32{0}, tr.Counts())
	require.NoError(t, tr.AddSample(0, []float32{1, 2, 3}))
	assert.Equal(t, 3, tr.Dimensions())
}

func TestParseDimensionPolicy(t *testing.T) {
	p, err := ParseDimensionPolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyReset, p)
	p, err = ParseDimensionPolicy("reject")
	require.NoError(t, err)
	assert.Equal(t, PolicyReject, p)
	assert.Equal(t, "reject", p.String())
	_, err = ParseDimensionPolicy("ignore")
	assert.Error(t, err)
}
