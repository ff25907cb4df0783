package stats

import (
	"strconv"
	"time"

	"github.com/klefe6/almanac/pkg/contracts/domain"
)

// series is one bucket's accumulated per-bar metrics.
type series struct {
	pct []float64
	rng []float64
}

func (s *series) add(b domain.Bar) {
	s.pct = append(s.pct, b.PctChange())
	s.rng = append(s.rng, b.Range())
}

func (s *series) bucket(label string, trimPct float64) domain.BucketStats {
	return domain.BucketStats{
		Bucket:    label,
		Count:     len(s.pct),
		PctChange: Summarize(s.pct, trimPct),
		Range:     Summarize(s.rng, trimPct),
	}
}

// ByHour groups bars by hour of day and summarizes percent change and
// range per hour. Only hours present in the data appear, in ascending
// order.
func ByHour(bars []domain.Bar, trimPct float64) []domain.BucketStats {
	groups := make(map[int]*series)
	for _, b := range bars {
		key := b.Time.Hour()
		g, ok := groups[key]
		if !ok {
			g = &series{}
			groups[key] = g
		}
		g.add(b)
	}
	out := make([]domain.BucketStats, 0, len(groups))
	for h := 0; h < 24; h++ {
		if g, ok := groups[h]; ok {
			out = append(out, g.bucket(strconv.Itoa(h), trimPct))
		}
	}
	return out
}

// ByMinute summarizes the bars of one hour grouped by minute. An hour
// with no bars yields an empty slice.
func ByMinute(bars []domain.Bar, hour int, trimPct float64) []domain.BucketStats {
	groups := make(map[int]*series)
	for _, b := range bars {
		if b.Time.Hour() != hour {
			continue
		}
		key := b.Time.Minute()
		g, ok := groups[key]
		if !ok {
			g = &series{}
			groups[key] = g
		}
		g.add(b)
	}
	out := make([]domain.BucketStats, 0, len(groups))
	for m := 0; m < 60; m++ {
		if g, ok := groups[m]; ok {
			out = append(out, g.bucket(strconv.Itoa(m), trimPct))
		}
	}
	return out
}

// ByDayOfWeek groups bars by weekday, labeled Monday through Sunday.
func ByDayOfWeek(bars []domain.Bar, trimPct float64) []domain.BucketStats {
	groups := make(map[time.Weekday]*series)
	for _, b := range bars {
		key := b.Time.Weekday()
		g, ok := groups[key]
		if !ok {
			g = &series{}
			groups[key] = g
		}
		g.add(b)
	}
	// Monday-first ordering.
	order := []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
		time.Friday, time.Saturday, time.Sunday,
	}
	out := make([]domain.BucketStats, 0, len(groups))
	for _, d := range order {
		if g, ok := groups[d]; ok {
			out = append(out, g.bucket(d.String(), trimPct))
		}
	}
	return out
}

// ByMonth groups bars by calendar month, labeled January through
// December.
func ByMonth(bars []domain.Bar, trimPct float64) []domain.BucketStats {
	groups := make(map[time.Month]*series)
	for _, b := range bars {
		key := b.Time.Month()
		g, ok := groups[key]
		if !ok {
			g = &series{}
			groups[key] = g
		}
		g.add(b)
	}
	out := make([]domain.BucketStats, 0, len(groups))
	for m := time.January; m <= time.December; m++ {
		if g, ok := groups[m]; ok {
			out = append(out, g.bucket(m.String(), trimPct))
		}
	}
	return out
}
