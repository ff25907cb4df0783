// Package filters reduces a product's minute dataset to the trading
// sessions a statistics request selects: weekday and economic-event
// calendars, previous-session outcome and relative-volume conditions,
// extreme trimming, intraday time comparisons and percent-change
// zones.
package filters

import (
	"sort"
	"time"

	"github.com/klefe6/almanac/internal/calendar"
	"github.com/klefe6/almanac/internal/events"
	"github.com/klefe6/almanac/internal/stats"
	"github.com/klefe6/almanac/pkg/contracts/domain"
)

const (
	defaultPctThreshold    = 1.0
	defaultRelVolThreshold = 1.0

	// Extreme trimming drops bars outside this quantile band on both
	// the percent-change and range series.
	trimLowerQuantile = 0.05
	trimUpperQuantile = 0.95
)

// dayMetrics is one session's daily bar with its derived fields.
type dayMetrics struct {
	open      float64
	close     float64
	volume    float64
	volSMA10  float64
	returnPct float64
}

// Engine binds the filter pipeline to its event calendar.
type Engine struct {
	events *events.Calendar
}

// NewEngine builds a filter engine over the given event calendar.
func NewEngine(cal *events.Calendar) *Engine {
	return &Engine{events: cal}
}

// Apply filters minute bars by the day-level conditions of fs. Zone
// filters are applied separately by ApplyZones. The returned result
// reports session counts before and after.
func (e *Engine) Apply(minute, daily []domain.Bar, fs domain.FilterSet) ([]domain.Bar, domain.FilterResult, error) {
	if err := fs.Validate(); err != nil {
		return nil, domain.FilterResult{}, err
	}

	dates := sessionDates(minute)
	result := domain.FilterResult{TotalDays: len(dates)}
	keep := make(map[string]bool, len(dates))
	for _, d := range dates {
		keep[d] = true
	}

	// Previous-session metrics, keyed by the session consuming them.
	var prev map[string]dayMetrics
	if fs.NeedsPrevDay() {
		metrics := prepareDaily(daily)
		prev = make(map[string]dayMetrics, len(dates))
		for _, d := range dates {
			day, err := time.Parse(events.DayFormat, d)
			if err != nil {
				continue
			}
			p := calendar.PreviousTradingDay(day).Format(events.DayFormat)
			if m, ok := metrics[p]; ok {
				prev[d] = m
			} else {
				// No usable previous session, the day cannot satisfy
				// any previous-day condition.
				delete(keep, d)
			}
		}
	}

	e.applyWeekdays(keep, fs)
	e.applyEventDays(keep, fs)
	applyPrevDay(keep, prev, fs, &result)

	filtered := minute[:0:0]
	for _, b := range minute {
		if keep[b.Date().Format(events.DayFormat)] {
			filtered = append(filtered, b)
		}
	}

	if fs.TrimExtremes {
		filtered = trimExtremes(filtered)
	}
	if fs.TimeComparison != nil {
		filtered = applyTimeComparison(filtered, *fs.TimeComparison)
	}

	result.KeptDays = len(sessionDates(filtered))
	return filtered, result, nil
}

func (e *Engine) applyWeekdays(keep map[string]bool, fs domain.FilterSet) {
	if len(fs.Weekdays) == 0 {
		return
	}
	selected := make(map[string]bool, len(fs.Weekdays))
	for _, d := range fs.Weekdays {
		selected[d] = true
	}
	// All five weekdays selected is no restriction at all.
	if len(selected) >= 5 {
		return
	}
	for d := range keep {
		day, err := time.Parse(events.DayFormat, d)
		if err != nil || !selected[day.Weekday().String()] {
			delete(keep, d)
		}
	}
}

func (e *Engine) applyEventDays(keep map[string]bool, fs domain.FilterSet) {
	// Each selected calendar intersects separately, matching how the
	// dashboard stacks event toggles.
	for _, t := range fs.EventDays {
		set := e.events.DaySet(t)
		for d := range keep {
			if _, ok := set[d]; !ok {
				delete(keep, d)
			}
		}
	}

	if fs.FOMCWeek {
		weeks := e.events.FOMCWeekMondays()
		if len(weeks) > 0 {
			for d := range keep {
				day, err := time.Parse(events.DayFormat, d)
				if err != nil {
					delete(keep, d)
					continue
				}
				monday := calendar.WeekStart(day).Format(events.DayFormat)
				if _, ok := weeks[monday]; !ok {
					delete(keep, d)
				}
			}
		}
	}

	if fs.MajorEventDay {
		major := e.events.MajorSet()
		for d := range keep {
			if _, ok := major[d]; !ok {
				delete(keep, d)
			}
		}
	}
}

func applyPrevDay(keep map[string]bool, prev map[string]dayMetrics, fs domain.FilterSet, result *domain.FilterResult) {
	if fs.PrevDayPos && fs.PrevDayNeg {
		result.Warnings = append(result.Warnings,
			"prev_day_pos and prev_day_neg are mutually exclusive; no sessions can match both")
		for d := range keep {
			delete(keep, d)
		}
		return
	}
	if fs.PrevDayPctPos && fs.PrevDayPctNeg {
		result.Warnings = append(result.Warnings,
			"prev_day_pct_pos and prev_day_pct_neg are mutually exclusive at one threshold; no sessions can match both")
		for d := range keep {
			delete(keep, d)
		}
		return
	}

	pctThreshold := fs.PctThreshold
	if pctThreshold == 0 {
		pctThreshold = defaultPctThreshold
	}
	relVolThreshold := fs.RelVolThreshold
	if relVolThreshold == 0 {
		relVolThreshold = defaultRelVolThreshold
	}

	for d := range keep {
		m, ok := prev[d]
		if !ok {
			if fs.NeedsPrevDay() {
				delete(keep, d)
			}
			continue
		}
		switch {
		case fs.PrevDayPos && !(m.close > m.open):
			delete(keep, d)
		case fs.PrevDayNeg && !(m.close < m.open):
			delete(keep, d)
		case fs.PrevDayPctPos && !(m.returnPct >= pctThreshold):
			delete(keep, d)
		case fs.PrevDayPctNeg && !(m.returnPct <= -pctThreshold):
			delete(keep, d)
		case (fs.RelVolAbove || fs.RelVolBelow) && m.volSMA10 == 0:
			delete(keep, d)
		case fs.RelVolAbove && !(m.volume/m.volSMA10 > relVolThreshold):
			delete(keep, d)
		case fs.RelVolBelow && !(m.volume/m.volSMA10 < relVolThreshold):
			delete(keep, d)
		}
	}
}

// prepareDaily derives the per-session metrics consumed by the
// previous-day filters: the trailing ten-session volume average
// (partial windows allowed) and the open-to-close day return.
func prepareDaily(daily []domain.Bar) map[string]dayMetrics {
	bars := append([]domain.Bar(nil), daily...)
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	out := make(map[string]dayMetrics, len(bars))
	var volSum float64
	for i, b := range bars {
		volSum += float64(b.Volume)
		if i >= 10 {
			volSum -= float64(bars[i-10].Volume)
		}
		window := i + 1
		if window > 10 {
			window = 10
		}
		m := dayMetrics{
			open:     b.Open,
			close:    b.Close,
			volume:   float64(b.Volume),
			volSMA10: volSum / float64(window),
		}
		if b.Open != 0 {
			m.returnPct = (b.Close - b.Open) / b.Open * 100
		}
		out[b.Date().Format(events.DayFormat)] = m
	}
	return out
}

// trimExtremes drops bars outside the 5th-95th quantile band of both
// the per-bar percent change and range. When nothing survives the
// band, the input is returned unchanged.
func trimExtremes(bars []domain.Bar) []domain.Bar {
	if len(bars) == 0 {
		return bars
	}
	pct := make([]float64, len(bars))
	rng := make([]float64, len(bars))
	for i, b := range bars {
		pct[i] = b.PctChange()
		rng[i] = b.Range()
	}
	lowPct := stats.Quantile(pct, trimLowerQuantile)
	highPct := stats.Quantile(pct, trimUpperQuantile)
	lowRng := stats.Quantile(rng, trimLowerQuantile)
	highRng := stats.Quantile(rng, trimUpperQuantile)

	trimmed := bars[:0:0]
	for i, b := range bars {
		if pct[i] >= lowPct && pct[i] <= highPct && rng[i] >= lowRng && rng[i] <= highRng {
			trimmed = append(trimmed, b)
		}
	}
	if len(trimmed) == 0 {
		return bars
	}
	return trimmed
}

// applyTimeComparison keeps sessions whose close at time A compares to
// the close at time B as requested. Sessions missing either sample
// are dropped.
func applyTimeComparison(bars []domain.Bar, tc domain.TimeComparison) []domain.Bar {
	priceA := make(map[string]float64)
	priceB := make(map[string]float64)
	for _, b := range bars {
		d := b.Date().Format(events.DayFormat)
		h, m := b.Time.Hour(), b.Time.Minute()
		if h == tc.HourA && m == tc.MinuteA {
			if _, ok := priceA[d]; !ok {
				priceA[d] = b.Close
			}
		}
		if h == tc.HourB && m == tc.MinuteB {
			if _, ok := priceB[d]; !ok {
				priceB[d] = b.Close
			}
		}
	}

	out := bars[:0:0]
	for _, b := range bars {
		d := b.Date().Format(events.DayFormat)
		a, okA := priceA[d]
		bb, okB := priceB[d]
		if !okA || !okB {
			continue
		}
		switch tc.Op {
		case domain.CompareAbove:
			if a > bb {
				out = append(out, b)
			}
		case domain.CompareBelow:
			if a < bb {
				out = append(out, b)
			}
		}
	}
	return out
}

// sessionDates returns the sorted unique calendar dates of bars.
func sessionDates(bars []domain.Bar) []string {
	set := make(map[string]struct{})
	for _, b := range bars {
		set[b.Date().Format(events.DayFormat)] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
