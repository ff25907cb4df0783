package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLTTB(t *testing.T) {
	n := 200
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
		ys[i] = math.Sin(float64(i) / 10)
	}

	idx := LTTB(xs, ys, 20)
	require.Len(t, idx, 20)

	assert.Equal(t, 0, idx[0])
	assert.Equal(t, n-1, idx[len(idx)-1])
	for i := 1; i < len(idx); i++ {
		assert.Greater(t, idx[i], idx[i-1], "indices must be strictly increasing")
	}
}

func TestLTTB_SmallInputs(t *testing.T) {
	xs := []float64{0, 1, 2, 3}
	ys := []float64{5, 6, 7, 8}

	t.Run("threshold above length returns all", func(t *testing.T) {
		assert.Equal(t, []int{0, 1, 2, 3}, LTTB(xs, ys, 10))
	})
	t.Run("threshold below three returns all", func(t *testing.T) {
		assert.Equal(t, []int{0, 1, 2, 3}, LTTB(xs, ys, 2))
	})
	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, LTTB(nil, nil, 5))
	})
}

func TestLTTB_KeepsSpike(t *testing.T) {
	n := 100
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	ys[57] = 50 // lone spike in a flat series

	idx := LTTB(xs, ys, 12)
	assert.Contains(t, idx, 57)
}
