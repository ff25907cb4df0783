package stats

import (
	"math"
)

// LTTB selects threshold representative indices from an (x, y) series
// using largest-triangle-three-buckets, the standard downsampler for
// chart payloads. It preserves the first and last point and the visual
// shape of spikes. When threshold is below 3 or not smaller than the
// series, every index is returned.
func LTTB(xs, ys []float64, threshold int) []int {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	if threshold >= n || threshold < 3 {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}

	selected := make([]int, 0, threshold)
	selected = append(selected, 0)

	// Interior points split into threshold-2 buckets.
	bucketSize := float64(n-2) / float64(threshold-2)
	prev := 0
	for i := 0; i < threshold-2; i++ {
		start := int(math.Floor(float64(i)*bucketSize)) + 1
		end := int(math.Floor(float64(i+1)*bucketSize)) + 1
		if end >= n {
			end = n - 1
		}

		// Average of the next bucket anchors the triangle.
		nextStart := end
		nextEnd := int(math.Floor(float64(i+2)*bucketSize)) + 1
		if nextEnd >= n {
			nextEnd = n
		}
		var avgX, avgY float64
		for j := nextStart; j < nextEnd; j++ {
			avgX += xs[j]
			avgY += ys[j]
		}
		cnt := float64(nextEnd - nextStart)
		if cnt > 0 {
			avgX /= cnt
			avgY /= cnt
		}

		best := start
		var bestArea float64 = -1
		for j := start; j < end; j++ {
			area := math.Abs((xs[prev]-avgX)*(ys[j]-ys[prev])-(xs[prev]-xs[j])*(avgY-ys[prev])) / 2
			if area > bestArea {
				bestArea = area
				best = j
			}
		}
		selected = append(selected, best)
		prev = best
	}

	selected = append(selected, n-1)
	return selected
}
