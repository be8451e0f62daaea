package ml

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeL2(t *testing.T) {
	v := []float32{3, 4}
	out := NormalizeL2(v)

	assert.InDelta(t, 1.0, L2Norm(out), 1e-6)
	assert.InDelta(t, 0.6, float64(out[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(out[1]), 1e-6)

	// исходный вектор не меняется
	assert.Equal(t, []float32{3, 4}, v)
}

func TestNormalizeL2Zero(t *testing.T) {
	out := NormalizeL2([]float32{0, 0, 0})

	require.Len(t, out, 3)
	for _, x := range out {
		assert.False(t, math.IsNaN(float64(x)))
		assert.False(t, math.IsInf(float64(x), 0))
	}
}

func TestNormalizeRows(t *testing.T) {
	rows := [][]float32{{2, 0}, {0, 5}}
	out := NormalizeRows(rows)

	require.Len(t, out, 2)
	assert.InDelta(t, 1.0, L2Norm(out[0]), 1e-6)
	assert.InDelta(t, 1.0, L2Norm(out[1]), 1e-6)
}

func TestDot(t *testing.T) {
	assert.InDelta(t, 11.0, Dot([]float32{1, 2, 3}, []float32{3, 1, 2}), 1e-9)
	assert.InDelta(t, 0.0, Dot([]float32{1, 0}, []float32{0, 1}), 1e-9)
}

func TestMean(t *testing.T) {
	out := Mean([][]float32{{1, 2}, {3, 4}, {5, 6}})

	require.Len(t, out, 2)
	assert.InDelta(t, 3.0, float64(out[0]), 1e-6)
	assert.InDelta(t, 4.0, float64(out[1]), 1e-6)
}

func TestMeanEmpty(t *testing.T) {
	assert.Nil(t, Mean(nil))
}
