package filters

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/klefe6/almanac/internal/calendar"
	"github.com/klefe6/almanac/internal/events"
	"github.com/klefe6/almanac/pkg/contracts/domain"
)

// maxFailureSamples caps the per-zone failure reasons carried in
// diagnostics.
const maxFailureSamples = 3

// ApplyZones keeps the sessions whose percent change inside every
// enabled zone window lands in that zone's band. Bars are interpreted
// on the New York clock; sessions are attributed with the 05:00
// cutoff, so overnight windows stay with the day they belong to.
func ApplyZones(minute []domain.Bar, specs []domain.ZoneSpec) ([]domain.Bar, *domain.ZoneDiagnostics, error) {
	enabled := make([]domain.ZoneSpec, 0, len(specs))
	for _, s := range specs {
		if !s.Enabled {
			continue
		}
		if err := s.Validate(); err != nil {
			return nil, nil, err
		}
		enabled = append(enabled, s)
	}

	if len(enabled) == 0 {
		n := len(sessionDates(minute))
		return minute, &domain.ZoneDiagnostics{
			TotalDays:     n,
			DaysRemaining: n,
		}, nil
	}

	// Work on New York wall-clock copies sorted by time.
	bars := make([]domain.Bar, len(minute))
	for i, b := range minute {
		b.Time = calendar.InNewYork(b.Time)
		bars[i] = b
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	dayKeys := make([]string, len(bars))
	daySet := make(map[string]time.Time)
	for i, b := range bars {
		session := calendar.SessionDate(b.Time)
		key := session.Format(events.DayFormat)
		dayKeys[i] = key
		daySet[key] = session
	}
	allDays := make([]string, 0, len(daySet))
	for d := range daySet {
		allDays = append(allDays, d)
	}
	sort.Strings(allDays)

	diag := &domain.ZoneDiagnostics{TotalDays: len(allDays)}

	passingAll := make(map[string]bool, len(allDays))
	for _, d := range allDays {
		passingAll[d] = true
	}

	for _, spec := range enabled {
		outcome := domain.ZoneOutcome{Name: spec.Name}
		lo, hi := spec.Band()
		for _, day := range allDays {
			pct, reason, ok := zonePctChange(bars, daySet[day], spec)
			if ok && pct >= lo && pct <= hi {
				outcome.DaysPassing++
				continue
			}
			if ok {
				reason = fmt.Sprintf("out of range: %.2f%% not in [%.2f, %.2f]%%", pct, lo, hi)
			}
			outcome.DaysFailing++
			if len(outcome.FailureReasons) < maxFailureSamples {
				outcome.FailureReasons = append(outcome.FailureReasons, day+": "+reason)
			}
			delete(passingAll, day)
		}
		diag.PerZone = append(diag.PerZone, outcome)
	}

	diag.DaysRemaining = len(passingAll)
	diag.DaysDropped = diag.TotalDays - diag.DaysRemaining
	diag.DaysPassingAll = make([]string, 0, len(passingAll))
	for d := range passingAll {
		diag.DaysPassingAll = append(diag.DaysPassingAll, d)
	}
	sort.Strings(diag.DaysPassingAll)

	out := bars[:0:0]
	for i, b := range bars {
		if passingAll[dayKeys[i]] {
			out = append(out, b)
		}
	}
	return out, diag, nil
}

// zonePctChange computes the open-to-close percent change of the
// spec's window anchored on one session. The boolean reports whether
// a value was computable; otherwise the reason explains the failure.
func zonePctChange(sorted []domain.Bar, session time.Time, spec domain.ZoneSpec) (float64, string, bool) {
	loc := calendar.NewYork()
	start := time.Date(session.Year(), session.Month(), session.Day()+spec.StartDayOffset,
		spec.StartHour, spec.StartMinute, 0, 0, loc)
	end := time.Date(session.Year(), session.Month(), session.Day()+spec.EndDayOffset,
		spec.EndHour, spec.EndMinute, 0, 0, loc)
	// A window ending at or before its start wraps past midnight.
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}

	lo := sort.Search(len(sorted), func(i int) bool { return !sorted[i].Time.Before(start) })
	hi := sort.Search(len(sorted), func(i int) bool { return sorted[i].Time.After(end) }) - 1
	if lo > hi {
		return 0, fmt.Sprintf("no bars in window [%s, %s]",
			start.Format("2006-01-02 15:04"), end.Format("2006-01-02 15:04")), false
	}

	open := sorted[lo].Open
	closePx := sorted[hi].Close
	if open == 0 {
		return 0, "open price is zero", false
	}
	pct := (closePx - open) / open * 100
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return 0, "non-finite % change", false
	}
	return pct, "", true
}

// FormatDiagnostics renders zone diagnostics as log-friendly lines.
func FormatDiagnostics(diag *domain.ZoneDiagnostics, specs []domain.ZoneSpec) []string {
	lines := []string{
		"Zone filter results:",
		fmt.Sprintf("Total days in range: %d", diag.TotalDays),
		fmt.Sprintf("Days remaining: %d", diag.DaysRemaining),
		fmt.Sprintf("Days dropped: %d", diag.DaysDropped),
	}
	if len(diag.PerZone) == 0 {
		lines = append(lines, "(no zone filters enabled)")
		return lines
	}

	byName := make(map[string]domain.ZoneSpec, len(specs))
	for _, s := range specs {
		byName[s.Name] = s
	}

	lines = append(lines, "")
	for _, outcome := range diag.PerZone {
		lines = append(lines, fmt.Sprintf("Filter: %s", outcome.Name))
		if spec, ok := byName[outcome.Name]; ok {
			lo, hi := spec.Band()
			lines = append(lines,
				fmt.Sprintf("  Target: %.2f%% +/- %.2f%% -> [%.2f%%, %.2f%%]",
					spec.TargetPct, spec.TolerancePct, lo, hi),
				fmt.Sprintf("  Window: %d;%02d:%02d to %d;%02d:%02d",
					spec.StartDayOffset, spec.StartHour, spec.StartMinute,
					spec.EndDayOffset, spec.EndHour, spec.EndMinute))
		}
		lines = append(lines,
			fmt.Sprintf("  Days passing: %d / %d", outcome.DaysPassing, diag.TotalDays),
			fmt.Sprintf("  Days failing: %d", outcome.DaysFailing))
		if len(outcome.FailureReasons) > 0 {
			lines = append(lines, "  Sample failures:")
			for _, r := range outcome.FailureReasons {
				lines = append(lines, "    "+r)
			}
		}
		lines = append(lines, "")
	}
	return lines
}
