package domain

import (
	"fmt"
)

// CompareOp is the comparison direction of a time-of-day close filter.
type CompareOp string

const (
	CompareAbove CompareOp = ">"
	CompareBelow CompareOp = "<"
)

// TimeComparison keeps only sessions where the close sampled at time A
// compares to the close sampled at time B in the given direction.
type TimeComparison struct {
	HourA   int       `json:"hour_a" validate:"min=0,max=23"`
	MinuteA int       `json:"minute_a" validate:"min=0,max=59"`
	HourB   int       `json:"hour_b" validate:"min=0,max=23"`
	MinuteB int       `json:"minute_b" validate:"min=0,max=59"`
	Op      CompareOp `json:"op" validate:"required,oneof=> <"`
}

// FilterSet selects which trading sessions of a dataset take part in a
// statistics computation. The zero value keeps every session.
type FilterSet struct {
	// Weekdays keeps only the named weekdays. Empty or all five
	// weekdays means no weekday restriction.
	Weekdays []string `json:"weekdays,omitempty" validate:"omitempty,dive,oneof=Monday Tuesday Wednesday Thursday Friday"`

	// EventDays keeps only sessions falling on a release date of any
	// of the named calendars.
	EventDays []EventType `json:"event_days,omitempty"`

	// FOMCWeek keeps sessions whose Monday-anchored week contains an
	// FOMC decision.
	FOMCWeek bool `json:"fomc_week,omitempty"`

	// MajorEventDay keeps sessions falling on any tracked release
	// date.
	MajorEventDay bool `json:"major_event_day,omitempty"`

	// PrevDayPos / PrevDayNeg keep sessions whose previous trading
	// day closed green / red. Setting both yields an empty result.
	PrevDayPos bool `json:"prev_day_pos,omitempty"`
	PrevDayNeg bool `json:"prev_day_neg,omitempty"`

	// PrevDayPctPos / PrevDayPctNeg keep sessions whose previous
	// trading day moved at least PctThreshold percent up / down.
	PrevDayPctPos bool    `json:"prev_day_pct_pos,omitempty"`
	PrevDayPctNeg bool    `json:"prev_day_pct_neg,omitempty"`
	PctThreshold  float64 `json:"pct_threshold,omitempty" validate:"omitempty,min=0"`

	// RelVolAbove / RelVolBelow compare the previous day's volume to
	// its trailing ten-day average.
	RelVolAbove     bool    `json:"rel_vol_above,omitempty"`
	RelVolBelow     bool    `json:"rel_vol_below,omitempty"`
	RelVolThreshold float64 `json:"rel_vol_threshold,omitempty" validate:"omitempty,min=0"`

	// TrimExtremes drops bars outside the 5th-95th percentile band of
	// both per-bar percent change and range.
	TrimExtremes bool `json:"trim_extremes,omitempty"`

	// TimeComparison keeps sessions by comparing closes at two
	// intraday times.
	TimeComparison *TimeComparison `json:"time_comparison,omitempty"`

	// Zones restricts sessions to those whose windowed percent moves
	// land inside every enabled zone.
	Zones []ZoneSpec `json:"zones,omitempty" validate:"omitempty,dive"`
}

// Empty reports whether the filter set imposes no restriction.
func (f FilterSet) Empty() bool {
	return len(f.Weekdays) == 0 && len(f.EventDays) == 0 && !f.FOMCWeek &&
		!f.MajorEventDay && !f.PrevDayPos && !f.PrevDayNeg &&
		!f.PrevDayPctPos && !f.PrevDayPctNeg && !f.RelVolAbove &&
		!f.RelVolBelow && !f.TrimExtremes && f.TimeComparison == nil &&
		len(f.Zones) == 0
}

// NeedsPrevDay reports whether any selected filter consumes
// previous-trading-day columns.
func (f FilterSet) NeedsPrevDay() bool {
	return f.PrevDayPos || f.PrevDayNeg || f.PrevDayPctPos ||
		f.PrevDayPctNeg || f.RelVolAbove || f.RelVolBelow
}

// Validate checks cross-field consistency not expressible as struct
// tags.
func (f FilterSet) Validate() error {
	if f.TimeComparison != nil {
		tc := f.TimeComparison
		if tc.HourA == tc.HourB && tc.MinuteA == tc.MinuteB {
			return fmt.Errorf("time comparison: times A and B must differ")
		}
	}
	for i := range f.Zones {
		if err := f.Zones[i].Validate(); err != nil {
			return fmt.Errorf("zone %d: %w", i, err)
		}
	}
	return nil
}

// FilterResult describes what a filter application did to the session
// set.
type FilterResult struct {
	TotalDays int      `json:"total_days"`
	KeptDays  int      `json:"kept_days"`
	Warnings  []string `json:"warnings,omitempty"`

	// Zones carries per-zone diagnostics when zone filters ran.
	Zones *ZoneDiagnostics `json:"zones,omitempty"`
}
