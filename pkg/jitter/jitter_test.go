package jitter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDurationBounds(t *testing.T) {
	base := time.Second

	for i := 0; i < 100; i++ {
		got := Duration(base, DefaultJitter)
		assert.GreaterOrEqual(t, got, base)
		assert.LessOrEqual(t, got, base+base/2)
	}
}

func TestDurationZeroJitter(t *testing.T) {
	assert.Equal(t, time.Second, Duration(time.Second, 0))
}

func TestExponentialBackoffGrowth(t *testing.T) {
	base := 100 * time.Millisecond
	max := 10 * time.Second

	// без джиттера рост строго удваивается
	assert.Equal(t, 100*time.Millisecond, ExponentialBackoff(base, max, 0, 0))
	assert.Equal(t, 200*time.Millisecond, ExponentialBackoff(base, max, 1, 0))
	assert.Equal(t, 400*time.Millisecond, ExponentialBackoff(base, max, 2, 0))
}

func TestExponentialBackoffCapped(t *testing.T) {
	base := time.Second
	max := 5 * time.Second

	assert.Equal(t, max, ExponentialBackoff(base, max, 20, 0))
}
