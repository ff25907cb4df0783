// Package stats computes grouped seasonality statistics over OHLCV
// bars: central-tendency measures per hour, minute, weekday and month,
// day-level profiles, intraday volatility curves, rolling metrics and
// correlation matrices.
package stats

import (
	"math"
	"sort"

	"github.com/klefe6/almanac/pkg/contracts/domain"
)

// minTrimSamples is the group size below which the trimmed and outlier
// means fall back to the plain mean. Quantile trimming on tiny groups
// removes most of the signal.
const minTrimSamples = 10

// Mean returns the arithmetic mean of xs, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Variance returns the sample variance of xs (ddof=1). Slices with
// fewer than two values return 0.
func Variance(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	m := Mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return ss / float64(n-1)
}

// Std returns the sample standard deviation of xs.
func Std(xs []float64) float64 {
	return math.Sqrt(Variance(xs))
}

// Min returns the smallest value of xs, or 0 for an empty slice.
func Min(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

// Max returns the largest value of xs, or 0 for an empty slice.
func Max(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

// Quantile returns the q-th quantile of xs using linear interpolation
// between order statistics. q is clamped to [0, 1]; an empty slice
// returns 0.
func Quantile(xs []float64, q float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	return quantileSorted(sorted, q)
}

// quantileSorted is Quantile over an already sorted slice.
func quantileSorted(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}
	h := float64(n-1) * q
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo])
}

// Median returns the 50th percentile of xs.
func Median(xs []float64) float64 {
	return Quantile(xs, 0.5)
}

// TrimmedMean returns the mean of xs restricted to the inclusive
// [trimPct, 100-trimPct] percentile band. Groups smaller than ten
// values, and bands that exclude every value, fall back to the plain
// mean.
func TrimmedMean(xs []float64, trimPct float64) float64 {
	if len(xs) < minTrimSamples {
		return Mean(xs)
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	lo := quantileSorted(sorted, trimPct/100)
	hi := quantileSorted(sorted, 1-trimPct/100)
	var sum float64
	var n int
	for _, x := range xs {
		if x >= lo && x <= hi {
			sum += x
			n++
		}
	}
	if n == 0 {
		return Mean(xs)
	}
	return sum / float64(n)
}

// OutlierMean returns the midpoint of the trimPct and 100-trimPct
// percentiles, a cheap summary of where the tails sit. Groups smaller
// than ten values fall back to the plain mean.
func OutlierMean(xs []float64, trimPct float64) float64 {
	if len(xs) < minTrimSamples {
		return Mean(xs)
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	return (quantileSorted(sorted, trimPct/100) + quantileSorted(sorted, 1-trimPct/100)) / 2
}

// Mode approximates the mode of a continuous series by its median.
// An exact mode over floats is meaningless and expensive.
func Mode(xs []float64) float64 {
	return Median(xs)
}

// Summarize computes all six bucket measures over xs with a single
// sort.
func Summarize(xs []float64, trimPct float64) domain.Measures {
	m := domain.Measures{
		Mean:     Mean(xs),
		Variance: Variance(xs),
	}
	if len(xs) == 0 {
		return m
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	m.Median = quantileSorted(sorted, 0.5)
	m.Mode = m.Median

	if len(xs) < minTrimSamples {
		m.TrimmedMean = m.Mean
		m.OutlierMean = m.Mean
		return m
	}
	lo := quantileSorted(sorted, trimPct/100)
	hi := quantileSorted(sorted, 1-trimPct/100)
	m.OutlierMean = (lo + hi) / 2

	var sum float64
	var n int
	for _, x := range sorted {
		if x >= lo && x <= hi {
			sum += x
			n++
		}
	}
	if n == 0 {
		m.TrimmedMean = m.Mean
	} else {
		m.TrimmedMean = sum / float64(n)
	}
	return m
}

// Summary computes the five-number day-level summary of xs.
func Summary(xs []float64) domain.SummaryStats {
	return domain.SummaryStats{
		Mean:   Mean(xs),
		Median: Median(xs),
		Std:    Std(xs),
		Min:    Min(xs),
		Max:    Max(xs),
	}
}
