package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	tests := []struct {
		name string
		xs   []float64
		want float64
	}{
		{"empty", nil, 0},
		{"single", []float64{4.5}, 4.5},
		{"mixed", []float64{1, 2, 3, 4}, 2.5},
		{"negative", []float64{-2, 2}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Mean(tt.xs), 1e-12)
		})
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name string
		xs   []float64
		want float64
	}{
		{"empty", nil, 0},
		{"odd", []float64{3, 1, 2}, 2},
		{"even", []float64{1, 2, 3, 4}, 2.5},
		{"unsorted even", []float64{4, 1, 3, 2}, 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Median(tt.xs), 1e-12)
		})
	}
}

func TestQuantile(t *testing.T) {
	xs := []float64{1, 2, 3, 4}

	tests := []struct {
		name string
		q    float64
		want float64
	}{
		{"zero", 0, 1},
		{"one", 1, 4},
		{"interpolated quarter", 0.25, 1.75},
		{"half", 0.5, 2.5},
		{"interpolated upper", 0.95, 3.85},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Quantile(xs, tt.q), 1e-12)
		})
	}

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, 0.0, Quantile(nil, 0.5))
	})
	t.Run("input not mutated", func(t *testing.T) {
		unsorted := []float64{3, 1, 2}
		Quantile(unsorted, 0.5)
		assert.Equal(t, []float64{3, 1, 2}, unsorted)
	})
}

func TestVariance(t *testing.T) {
	tests := []struct {
		name string
		xs   []float64
		want float64
	}{
		{"empty", nil, 0},
		{"single", []float64{7}, 0},
		{"sample variance", []float64{1, 2, 3, 4}, 5.0 / 3.0},
		{"constant", []float64{2, 2, 2}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Variance(tt.xs), 1e-12)
		})
	}
}

func TestTrimmedMean(t *testing.T) {
	t.Run("small group falls back to mean", func(t *testing.T) {
		xs := []float64{1, 2, 100}
		assert.InDelta(t, Mean(xs), TrimmedMean(xs, 5), 1e-12)
	})

	t.Run("trims the outlier", func(t *testing.T) {
		xs := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 100}
		// 5th pct = 1.45, 95th pct = 59.05; survivors are 2..9.
		assert.InDelta(t, 5.5, TrimmedMean(xs, 5), 1e-9)
	})

	t.Run("zero trim keeps everything", func(t *testing.T) {
		xs := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
		assert.InDelta(t, 5.5, TrimmedMean(xs, 0), 1e-12)
	})
}

func TestOutlierMean(t *testing.T) {
	t.Run("small group falls back to mean", func(t *testing.T) {
		xs := []float64{1, 2, 3}
		assert.InDelta(t, 2, OutlierMean(xs, 5), 1e-12)
	})

	t.Run("midpoint of tail quantiles", func(t *testing.T) {
		xs := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 100}
		assert.InDelta(t, (1.45+59.05)/2, OutlierMean(xs, 5), 1e-9)
	})
}

func TestSummarize(t *testing.T) {
	t.Run("matches standalone measures", func(t *testing.T) {
		xs := []float64{0.5, -0.2, 1.1, 0.9, -0.4, 0.3, 0.0, 0.7, -1.2, 2.5, 0.1, -0.6}
		m := Summarize(xs, 5)

		assert.InDelta(t, Mean(xs), m.Mean, 1e-12)
		assert.InDelta(t, Median(xs), m.Median, 1e-12)
		assert.InDelta(t, m.Median, m.Mode, 1e-12)
		assert.InDelta(t, Variance(xs), m.Variance, 1e-12)
		assert.InDelta(t, TrimmedMean(xs, 5), m.TrimmedMean, 1e-12)
		assert.InDelta(t, OutlierMean(xs, 5), m.OutlierMean, 1e-12)
	})

	t.Run("empty", func(t *testing.T) {
		m := Summarize(nil, 5)
		assert.Zero(t, m.Mean)
		assert.Zero(t, m.Variance)
	})

	t.Run("small group uses mean for trimmed measures", func(t *testing.T) {
		xs := []float64{1, 2, 6}
		m := Summarize(xs, 5)
		assert.InDelta(t, 3, m.TrimmedMean, 1e-12)
		assert.InDelta(t, 3, m.OutlierMean, 1e-12)
	})
}

func TestSummary(t *testing.T) {
	xs := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	s := Summary(xs)

	assert.InDelta(t, 5, s.Mean, 1e-12)
	assert.InDelta(t, 4.5, s.Median, 1e-12)
	assert.InDelta(t, 2.13808993529939, s.Std, 1e-9)
	assert.InDelta(t, 2, s.Min, 1e-12)
	assert.InDelta(t, 9, s.Max, 1e-12)
}
