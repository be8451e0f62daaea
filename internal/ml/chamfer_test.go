package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChamferSimilaritySelf(t *testing.T) {
	a := [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

	assert.InDelta(t, 1.0, ChamferSimilarity(a, a), 1e-6)
}

func TestChamferSimilaritySymmetric(t *testing.T) {
	a := [][]float32{{1, 0}, {0.5, 0.5}}
	b := [][]float32{{0, 1}, {1, 1}, {0.2, 0.9}}

	assert.InDelta(t, ChamferSimilarity(a, b), ChamferSimilarity(b, a), 1e-9)
}

func TestChamferSimilarityEmpty(t *testing.T) {
	a := [][]float32{{1, 0}}

	assert.Zero(t, ChamferSimilarity(nil, a))
	assert.Zero(t, ChamferSimilarity(a, nil))
	assert.Zero(t, ChamferSimilarity(nil, nil))
}

func TestChamferSimilarityOrthogonal(t *testing.T) {
	a := [][]float32{{1, 0}}
	b := [][]float32{{0, 1}}

	assert.InDelta(t, 0.0, ChamferSimilarity(a, b), 1e-6)
}

// Частичное пересечение: общий кластер поднимает сходство выше, чем
// у полностью ортогональных профилей, но ниже идентичных.
func TestChamferSimilarityPartialOverlap(t *testing.T) {
	a := [][]float32{{1, 0, 0}, {0, 1, 0}}
	b := [][]float32{{1, 0, 0}, {0, 0, 1}}

	sim := ChamferSimilarity(a, b)
	assert.Greater(t, sim, 0.0)
	assert.Less(t, sim, 1.0)
}

func TestChamferSimilarityScaleInvariant(t *testing.T) {
	a := [][]float32{{1, 2}, {3, 1}}
	scaled := [][]float32{{10, 20}, {30, 10}}
	b := [][]float32{{2, 2}}

	assert.InDelta(t, ChamferSimilarity(a, b), ChamferSimilarity(scaled, b), 1e-6)
}
