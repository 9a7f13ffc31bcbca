// Package dispatcher contains tests for worker coordination.
package dispatcher

import (
	"context"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMapPreservesInputOrder ensures results line up with their inputs.
func TestMapPreservesInputOrder(t *testing.T) {
	t.Parallel()

	items := []int{5, 1, 4, 2, 3}
	got := Map(context.Background(), New(3), items, func(_ context.Context, n int) int {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return n * 10
	})

	assert.Equal(t, []int{50, 10, 40, 20, 30}, got)
}

// TestMapBoundsConcurrency verifies no more than the pool size run at once.
func TestMapBoundsConcurrency(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	items := make([]int, 20)
	Map(context.Background(), New(2), items, func(_ context.Context, _ int) struct{} {
		cur := inFlight.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return struct{}{}
	})

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Positive(t, peak.Load())
}

// TestMapRunsEveryItem checks the batch is fully drained before returning.
func TestMapRunsEveryItem(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	items := make([]string, 57)
	got := Map(context.Background(), New(8), items, func(_ context.Context, _ string) bool {
		calls.Add(1)
		return true
	})

	require.Len(t, got, 57)
	assert.Equal(t, int32(57), calls.Load())
}

// TestMapEmptyInput returns an empty, non-nil slice.
func TestMapEmptyInput(t *testing.T) {
	t.Parallel()

	got := Map(context.Background(), New(4), nil, func(_ context.Context, s string) string { return s })
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

// TestNewDefaultsToCPUCount covers the zero-size fallback.
func TestNewDefaultsToCPUCount(t *testing.T) {
	t.Parallel()

	assert.Equal(t, runtime.NumCPU(), New(0).Workers())
	assert.Equal(t, 3, New(3).Workers())
}
