package domain

import (
	"encoding/json"
	"fmt"
)

// ZoneSpec describes one percent-change zone: an intraday (possibly
// overnight) window and the band of open-to-close percent moves that a
// session must land in to pass. Day offsets are relative to the
// analysis date, so a window may start on the prior day or end on the
// next one.
type ZoneSpec struct {
	Name         string  `json:"name" validate:"required"`
	TargetPct    float64 `json:"target_pct"`
	TolerancePct float64 `json:"tolerance_pct" validate:"min=0"`

	StartDayOffset int `json:"start_day_offset" validate:"min=-1,max=1"`
	EndDayOffset   int `json:"end_day_offset" validate:"min=-1,max=1"`

	StartHour   int `json:"start_hour" validate:"min=0,max=23"`
	StartMinute int `json:"start_minute" validate:"min=0,max=59"`
	EndHour     int `json:"end_hour" validate:"min=0,max=23"`
	EndMinute   int `json:"end_minute" validate:"min=0,max=59"`

	Enabled bool `json:"enabled"`
}

// UnmarshalJSON fills the regular session window (09:30 to 16:00, same
// day) before decoding, so a spec only has to name the fields it
// changes.
func (z *ZoneSpec) UnmarshalJSON(data []byte) error {
	type plain ZoneSpec
	tmp := plain{
		StartHour:   9,
		StartMinute: 30,
		EndHour:     16,
	}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	*z = ZoneSpec(tmp)
	return nil
}

// Band returns the inclusive [min, max] percent band of the zone.
func (z ZoneSpec) Band() (float64, float64) {
	return z.TargetPct - z.TolerancePct, z.TargetPct + z.TolerancePct
}

// Validate checks that the zone's fields are in range.
func (z ZoneSpec) Validate() error {
	if z.Name == "" {
		return fmt.Errorf("zone name is required")
	}
	if z.TolerancePct < 0 {
		return fmt.Errorf("zone %q: tolerance_pct must be >= 0, got %v", z.Name, z.TolerancePct)
	}
	if z.StartDayOffset < -1 || z.StartDayOffset > 1 {
		return fmt.Errorf("zone %q: start_day_offset must be between -1 and 1, got %d", z.Name, z.StartDayOffset)
	}
	if z.EndDayOffset < -1 || z.EndDayOffset > 1 {
		return fmt.Errorf("zone %q: end_day_offset must be between -1 and 1, got %d", z.Name, z.EndDayOffset)
	}
	if z.StartHour < 0 || z.StartHour > 23 {
		return fmt.Errorf("zone %q: start_hour must be between 0 and 23, got %d", z.Name, z.StartHour)
	}
	if z.EndHour < 0 || z.EndHour > 23 {
		return fmt.Errorf("zone %q: end_hour must be between 0 and 23, got %d", z.Name, z.EndHour)
	}
	if z.StartMinute < 0 || z.StartMinute > 59 {
		return fmt.Errorf("zone %q: start_minute must be between 0 and 59, got %d", z.Name, z.StartMinute)
	}
	if z.EndMinute < 0 || z.EndMinute > 59 {
		return fmt.Errorf("zone %q: end_minute must be between 0 and 59, got %d", z.Name, z.EndMinute)
	}
	return nil
}

// ZoneOutcome is the per-zone tally of passing and failing sessions.
type ZoneOutcome struct {
	Name           string   `json:"name"`
	DaysPassing    int      `json:"days_passing"`
	DaysFailing    int      `json:"days_failing"`
	FailureReasons []string `json:"failure_reasons,omitempty"`
}

// ZoneDiagnostics explains how a set of zone filters reduced the
// session set.
type ZoneDiagnostics struct {
	TotalDays      int           `json:"total_days"`
	DaysRemaining  int           `json:"days_remaining"`
	DaysDropped    int           `json:"days_dropped"`
	PerZone        []ZoneOutcome `json:"per_zone"`
	DaysPassingAll []string      `json:"days_passing_all"`
}
