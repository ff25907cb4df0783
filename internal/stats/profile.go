package stats

import (
	"sort"
	"time"

	"github.com/klefe6/almanac/pkg/contracts/domain"
)

// Profile computes day-level summary statistics over the sessions
// represented in minute. Daily bars supply the session OHLCV; minute
// bars supply the first-hour behavior and the high/low timing. Returns
// nil when no session has both resolutions.
func Profile(minute, daily []domain.Bar) *domain.DayProfile {
	if len(minute) == 0 {
		return nil
	}

	byDate := groupByDate(minute)
	dates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	dailyByDate := make(map[time.Time]domain.Bar, len(daily))
	for _, d := range daily {
		dailyByDate[d.Date()] = d
	}

	var (
		closeOpen, rangePct, highOpen, openLow []float64
		volumes                                []float64
		green, red                             int
	)
	for _, date := range dates {
		d, ok := dailyByDate[date]
		if !ok || d.Open == 0 {
			continue
		}
		closeOpen = append(closeOpen, (d.Close-d.Open)/d.Open*100)
		rangePct = append(rangePct, (d.High-d.Low)/d.Open*100)
		highOpen = append(highOpen, (d.High-d.Open)/d.Open*100)
		openLow = append(openLow, (d.Open-d.Low)/d.Open*100)
		volumes = append(volumes, float64(d.Volume))
		if d.Close > d.Open {
			green++
		} else if d.Close < d.Open {
			red++
		}
	}
	if len(closeOpen) == 0 {
		return nil
	}

	p := &domain.DayProfile{
		Days:         len(dates),
		CloseOpenPct: Summary(closeOpen),
		RangePct:     Summary(rangePct),
		HighOpenPct:  Summary(highOpen),
		OpenLowPct:   Summary(openLow),
		GreenDays:    green,
		RedDays:      red,
		AvgVolume:    Mean(volumes),
		MedianVolume: Median(volumes),
	}
	if p.Days > 0 {
		p.GreenPct = float64(green) / float64(p.Days) * 100
	}

	p.FirstHour = firstHourStats(dates, byDate, dailyByDate)

	hodTimes, lodTimes := extremeTimes(dates, byDate)
	if len(hodTimes) > 0 {
		p.AvgHighTime = Mean(hodTimes) / 60
		p.MedHighTime = Median(hodTimes) / 60
	}
	if len(lodTimes) > 0 {
		p.AvgLowTime = Mean(lodTimes) / 60
		p.MedLowTime = Median(lodTimes) / 60
	}
	return p
}

// firstHourStats summarizes the 09:30-10:29 window against the session
// open. Sessions missing first-hour bars or a usable daily open are
// skipped; nil means no session qualified.
func firstHourStats(dates []time.Time, byDate map[time.Time][]domain.Bar, daily map[time.Time]domain.Bar) *domain.FirstHourStats {
	var highOpen, openLow []float64
	for _, date := range dates {
		d, ok := daily[date]
		if !ok || d.Open == 0 {
			continue
		}
		var (
			high, low float64
			seen      bool
		)
		for _, b := range byDate[date] {
			h, m := b.Time.Hour(), b.Time.Minute()
			if !(h == 9 && m >= 30 || h == 10 && m < 30) {
				continue
			}
			if !seen || b.High > high {
				high = b.High
			}
			if !seen || b.Low < low {
				low = b.Low
			}
			seen = true
		}
		if !seen {
			continue
		}
		highOpen = append(highOpen, (high-d.Open)/d.Open*100)
		openLow = append(openLow, (d.Open-low)/d.Open*100)
	}
	if len(highOpen) == 0 {
		return nil
	}
	return &domain.FirstHourStats{
		Days:        len(highOpen),
		HighOpenPct: Summary(highOpen),
		OpenLowPct:  Summary(openLow),
	}
}

// extremeTimes collects, per session, the minutes since midnight of
// the first bar printing the session high and the session low.
func extremeTimes(dates []time.Time, byDate map[time.Time][]domain.Bar) (hod, lod []float64) {
	for _, date := range dates {
		bars := byDate[date]
		if len(bars) == 0 {
			continue
		}
		hi, lo := 0, 0
		for i, b := range bars[1:] {
			if b.High > bars[hi].High {
				hi = i + 1
			}
			if b.Low < bars[lo].Low {
				lo = i + 1
			}
		}
		ht := bars[hi].Time
		lt := bars[lo].Time
		hod = append(hod, float64(ht.Hour()*60+ht.Minute()))
		lod = append(lod, float64(lt.Hour()*60+lt.Minute()))
	}
	return hod, lod
}

// groupByDate indexes bars by their calendar date.
func groupByDate(bars []domain.Bar) map[time.Time][]domain.Bar {
	byDate := make(map[time.Time][]domain.Bar)
	for _, b := range bars {
		d := b.Date()
		byDate[d] = append(byDate[d], b)
	}
	return byDate
}
