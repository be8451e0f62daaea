package closer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloserLIFOOrder(t *testing.T) {
	c := NewCloser(time.Second)

	var order []int
	for n := 1; n <= 3; n++ {
		c.Add(func(context.Context) error {
			order = append(order, n)
			return nil
		})
	}

	require.NoError(t, c.Close(context.Background()))
	assert.Equal(t, []int{3, 2, 1}, order)
}

func TestCloserCollectsErrors(t *testing.T) {
	c := NewCloser(time.Second)

	c.Add(func(context.Context) error { return nil })
	c.Add(func(context.Context) error { return errors.New("redis connection reset") })

	err := c.Close(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis connection reset")
}

func TestCloserIdempotent(t *testing.T) {
	c := NewCloser(time.Second)

	calls := 0
	c.Add(func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, c.Close(context.Background()))
	require.NoError(t, c.Close(context.Background()))
	assert.Equal(t, 1, calls)
}

// При отмене контекста оставшиеся функции дозакрываются принудительно.
func TestCloserForcedCloseOnTimeout(t *testing.T) {
	c := NewCloser(500 * time.Millisecond)

	slowDone := make(chan struct{})
	c.Add(func(context.Context) error {
		close(slowDone)
		return nil
	})
	c.Add(func(context.Context) error {
		time.Sleep(time.Second)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.Close(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shutdown interrupted")

	select {
	case <-slowDone:
	case <-time.After(2 * time.Second):
		t.Fatal("remaining closer funcs were not forced")
	}
}
