package embedder

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCropsShortSignalPadded(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	samples := []float32{1, 2, 3}

	out := crops(samples, 10, rng)
	require.Len(t, out, 1)
	require.Len(t, out[0], 10)

	assert.Equal(t, []float32{1, 2, 3}, out[0][:3])
	for _, s := range out[0][3:] {
		assert.Zero(t, s)
	}
}

func TestCropsExactLength(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	samples := make([]float32, 10)

	out := crops(samples, 10, rng)
	require.Len(t, out, 1)
	assert.Len(t, out[0], 10)
}

// Сигнал чуть длиннее фрагмента: места для второго непересекающегося нет.
func TestCropsNoRoomForSecond(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	samples := make([]float32, 15)

	out := crops(samples, 10, rng)
	assert.Len(t, out, 1)
}

func TestCropsCenterAndRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	samples := make([]float32, 100)
	for i := range samples {
		samples[i] = float32(i)
	}

	out := crops(samples, 10, rng)
	require.Len(t, out, 2)

	// центральный фрагмент начинается с (100-10)/2 = 45
	assert.Equal(t, float32(45), out[0][0])

	// случайный не пересекается с центральным [45, 55)
	randStart := int(out[1][0])
	noOverlap := randStart+10 <= 45 || randStart >= 55
	assert.True(t, noOverlap, "random crop [%d, %d) overlaps center [45, 55)", randStart, randStart+10)
}

// Все варианты зазора слева/справа дают непересекающиеся фрагменты.
func TestCropsNeverOverlap(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for _, total := range []int{21, 25, 30, 40, 100} {
		samples := make([]float32, total)
		for i := range samples {
			samples[i] = float32(i)
		}

		for trial := 0; trial < 50; trial++ {
			out := crops(samples, 10, rng)
			if len(out) < 2 {
				continue
			}

			centerStart := int(out[0][0])
			randStart := int(out[1][0])
			noOverlap := randStart+10 <= centerStart || randStart >= centerStart+10
			assert.True(t, noOverlap, "total %d: random [%d, %d) overlaps center [%d, %d)",
				total, randStart, randStart+10, centerStart, centerStart+10)
		}
	}
}
