package stats

import (
	"fmt"
	"time"

	"github.com/klefe6/almanac/pkg/contracts/domain"
)

// Rolling computes rolling-window metrics over a dated series. Partial
// windows at the start of the series are evaluated as-is (minimum one
// sample), matching how the dashboard charts warm up.
func Rolling(times []time.Time, values []float64, window int, metrics []domain.RollingMetric) ([]domain.RollingSeries, error) {
	if window < 1 {
		return nil, fmt.Errorf("rolling window must be >= 1, got %d", window)
	}
	if len(times) != len(values) {
		return nil, fmt.Errorf("rolling series length mismatch: %d times, %d values", len(times), len(values))
	}
	if len(metrics) == 0 {
		metrics = []domain.RollingMetric{domain.RollingMean, domain.RollingStd, domain.RollingMin, domain.RollingMax}
	}
	for _, m := range metrics {
		if !m.Valid() {
			return nil, fmt.Errorf("unknown rolling metric %q", m)
		}
	}

	out := make([]domain.RollingSeries, 0, len(metrics))
	for _, m := range metrics {
		points := make([]domain.RollingPoint, len(values))
		for i := range values {
			start := i - window + 1
			if start < 0 {
				start = 0
			}
			win := values[start : i+1]
			var v float64
			switch m {
			case domain.RollingMean:
				v = Mean(win)
			case domain.RollingStd:
				v = Std(win)
			case domain.RollingMin:
				v = Min(win)
			case domain.RollingMax:
				v = Max(win)
			case domain.RollingMedian:
				v = Median(win)
			}
			points[i] = domain.RollingPoint{Time: times[i], Value: v}
		}
		out = append(out, domain.RollingSeries{Metric: m, Window: window, Points: points})
	}
	return out, nil
}
