package stats

import (
	"fmt"
	"sort"

	"github.com/klefe6/almanac/pkg/contracts/domain"
)

// VolCurve computes the intraday volatility profile: for every
// time-of-day present in bars, the mean absolute open-to-close return
// and its interquartile band.
func VolCurve(bars []domain.Bar) []domain.VolPoint {
	groups := make(map[int][]float64)
	for _, b := range bars {
		key := b.Time.Hour()*60 + b.Time.Minute()
		v := b.PctChange()
		if v < 0 {
			v = -v
		}
		groups[key] = append(groups[key], v)
	}
	keys := make([]int, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	out := make([]domain.VolPoint, 0, len(keys))
	for _, k := range keys {
		xs := groups[k]
		sorted := append([]float64(nil), xs...)
		sort.Float64s(sorted)
		out = append(out, domain.VolPoint{
			TimeOfDay:  fmt.Sprintf("%02d:%02d", k/60, k%60),
			MeanAbsPct: Mean(xs),
			Q25:        quantileSorted(sorted, 0.25),
			Q75:        quantileSorted(sorted, 0.75),
			Count:      len(xs),
		})
	}
	return out
}
