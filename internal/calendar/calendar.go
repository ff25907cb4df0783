// Package calendar supplies the trading-date arithmetic the filter and
// zone engines share: New York session attribution, Monday week anchors,
// US exchange holidays and holiday-aware previous/next trading day
// stepping.
package calendar

import (
	"sync"
	"time"
	_ "time/tzdata"
)

const dayFormat = "2006-01-02"

var newYork = mustLoadNewYork()

func mustLoadNewYork() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		panic("calendar: America/New_York tzdata unavailable: " + err.Error())
	}
	return loc
}

// NewYork returns the exchange time zone used for session times.
func NewYork() *time.Location {
	return newYork
}

// DateOf truncates t to midnight in t's own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// IsWeekend reports whether d falls on Saturday or Sunday.
func IsWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

var holidayCache = struct {
	sync.RWMutex
	years map[int]map[string]struct{}
}{years: make(map[int]map[string]struct{})}

func holidaysFor(year int) map[string]struct{} {
	holidayCache.RLock()
	set, ok := holidayCache.years[year]
	holidayCache.RUnlock()
	if ok {
		return set
	}

	set = buildHolidays(year)
	holidayCache.Lock()
	holidayCache.years[year] = set
	holidayCache.Unlock()
	return set
}

// buildHolidays returns the observed US futures-exchange holidays whose
// source holiday falls in the given year. Saturday holidays are observed
// the Friday before, Sunday holidays the Monday after.
func buildHolidays(year int) map[string]struct{} {
	days := []time.Time{
		observed(time.Date(year, time.January, 1, 0, 0, 0, 0, newYork)),
		nthWeekday(year, time.January, time.Monday, 3),   // MLK Day
		nthWeekday(year, time.February, time.Monday, 3),  // Presidents' Day
		easterSunday(year).AddDate(0, 0, -2),             // Good Friday
		lastWeekday(year, time.May, time.Monday),         // Memorial Day
		observed(time.Date(year, time.July, 4, 0, 0, 0, 0, newYork)),
		nthWeekday(year, time.September, time.Monday, 1), // Labor Day
		nthWeekday(year, time.November, time.Thursday, 4),
		observed(time.Date(year, time.December, 25, 0, 0, 0, 0, newYork)),
	}
	if year >= 2022 {
		days = append(days, observed(time.Date(year, time.June, 19, 0, 0, 0, 0, newYork)))
	}

	set := make(map[string]struct{}, len(days))
	for _, d := range days {
		set[d.Format(dayFormat)] = struct{}{}
	}
	return set
}

func observed(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	}
	return d
}

func nthWeekday(year int, month time.Month, wd time.Weekday, n int) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, newYork)
	offset := (int(wd) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+(n-1)*7)
}

func lastWeekday(year int, month time.Month, wd time.Weekday) time.Time {
	last := time.Date(year, month+1, 1, 0, 0, 0, 0, newYork).AddDate(0, 0, -1)
	offset := (int(last.Weekday()) - int(wd) + 7) % 7
	return last.AddDate(0, 0, -offset)
}

// easterSunday computes Easter via the anonymous Gregorian algorithm.
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, newYork)
}

// IsHoliday reports whether d is an observed exchange holiday.
func IsHoliday(d time.Time) bool {
	key := DateOf(d).Format(dayFormat)
	if _, ok := holidaysFor(d.Year())[key]; ok {
		return true
	}
	// New Year's Day observed on December 31 belongs to the next year's
	// holiday, so the following year's set is consulted too.
	_, ok := holidaysFor(d.Year() + 1)[key]
	return ok
}

// IsTradingDay reports whether the market is open on d.
func IsTradingDay(d time.Time) bool {
	return !IsWeekend(d) && !IsHoliday(d)
}

// PreviousTradingDay returns the closest trading day strictly before d.
func PreviousTradingDay(d time.Time) time.Time {
	prev := DateOf(d).AddDate(0, 0, -1)
	for !IsTradingDay(prev) {
		prev = prev.AddDate(0, 0, -1)
	}
	return prev
}

// NextTradingDay returns the closest trading day strictly after d.
func NextTradingDay(d time.Time) time.Time {
	next := DateOf(d).AddDate(0, 0, 1)
	for !IsTradingDay(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// TradingDaysBetween counts the trading days in [from, to] inclusive.
// It returns 0 when to precedes from.
func TradingDaysBetween(from, to time.Time) int {
	day := DateOf(from)
	end := DateOf(to)
	n := 0
	for !day.After(end) {
		if IsTradingDay(day) {
			n++
		}
		day = day.AddDate(0, 0, 1)
	}
	return n
}

// WeekStart returns the Monday of the week containing d, at midnight.
func WeekStart(d time.Time) time.Time {
	day := DateOf(d)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// SessionDate attributes a timestamp to its trading session. Bars
// before 05:00 belong to the previous calendar day's session, so an
// overnight session stays attached to the day it started on.
func SessionDate(t time.Time) time.Time {
	if t.Hour() < 5 {
		return DateOf(t.AddDate(0, 0, -1))
	}
	return DateOf(t)
}

// InNewYork rebinds the wall-clock reading of t to the exchange zone.
// Stored bars carry naive exchange timestamps, so the clock fields are
// kept and only the location changes.
func InNewYork(t time.Time) time.Time {
	if t.Location() == newYork {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), newYork)
}
