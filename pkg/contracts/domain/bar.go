package domain

import (
	"time"
)

// Interval identifies the resolution of a stored bar series.
type Interval string

const (
	// IntervalMinute is the one-minute intraday resolution.
	IntervalMinute Interval = "1min"
	// IntervalDaily is the one-bar-per-session resolution.
	IntervalDaily Interval = "daily"
)

// Bar is a single OHLCV bar. Intraday bars carry exchange wall-clock
// timestamps (America/New_York); daily bars carry the session date.
type Bar struct {
	Time   time.Time `json:"time" db:"ts"`
	Open   float64   `json:"open" db:"open"`
	High   float64   `json:"high" db:"high"`
	Low    float64   `json:"low" db:"low"`
	Close  float64   `json:"close" db:"close"`
	Volume int64     `json:"volume" db:"volume"`
}

// PctChange returns the open-to-close percent change of the bar as a
// fraction (0.01 == 1%). Bars with a zero open contribute zero.
func (b Bar) PctChange() float64 {
	if b.Open == 0 {
		return 0
	}
	return (b.Close - b.Open) / b.Open
}

// Range returns the high-to-low extent of the bar in price points.
func (b Bar) Range() float64 {
	return b.High - b.Low
}

// Green reports whether the bar closed above its open.
func (b Bar) Green() bool {
	return b.Close > b.Open
}

// Date returns the bar's calendar date truncated to midnight in the
// bar's own location.
func (b Bar) Date() time.Time {
	y, m, d := b.Time.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, b.Time.Location())
}

// Product describes one futures product held in storage together with
// its coverage at both resolutions.
type Product struct {
	Symbol     string     `json:"symbol" validate:"required,min=1,max=10"`
	MinuteBars int64      `json:"minute_bars"`
	DailyBars  int64      `json:"daily_bars"`
	FirstDay   *time.Time `json:"first_day,omitempty"`
	LastDay    *time.Time `json:"last_day,omitempty"`
}

// HasData reports whether the product has bars at either resolution.
func (p Product) HasData() bool {
	return p.MinuteBars > 0 || p.DailyBars > 0
}
