package domain

import (
	"time"
)

// Grouping selects the bucket key for grouped bar statistics.
type Grouping string

const (
	GroupingHour      Grouping = "hour"
	GroupingMinute    Grouping = "minute"
	GroupingDayOfWeek Grouping = "day_of_week"
	GroupingMonth     Grouping = "month"
)

// Valid reports whether g is one of the supported groupings.
func (g Grouping) Valid() bool {
	switch g {
	case GroupingHour, GroupingMinute, GroupingDayOfWeek, GroupingMonth:
		return true
	}
	return false
}

// Measures holds the six central-tendency and spread measures computed
// for every bucket series.
type Measures struct {
	Mean        float64 `json:"mean"`
	TrimmedMean float64 `json:"trimmed_mean"`
	Median      float64 `json:"median"`
	Mode        float64 `json:"mode"`
	OutlierMean float64 `json:"outlier_mean"`
	Variance    float64 `json:"variance"`
}

// BucketStats is the full measure set for one bucket of a grouped
// computation. PctChange is in fractional units, Range in price points.
type BucketStats struct {
	Bucket    string   `json:"bucket"`
	Count     int      `json:"count"`
	PctChange Measures `json:"pct_change"`
	Range     Measures `json:"range"`
}

// StatsReport is the response payload of a grouped statistics
// computation, including how many session days survived filtering.
type StatsReport struct {
	Product      string        `json:"product"`
	Grouping     Grouping      `json:"grouping"`
	Hour         *int          `json:"hour,omitempty"`
	TrimPct      float64       `json:"trim_pct"`
	From         *time.Time    `json:"from,omitempty"`
	To           *time.Time    `json:"to,omitempty"`
	Buckets      []BucketStats `json:"buckets"`
	TotalDays    int           `json:"total_days"`
	FilteredDays int           `json:"filtered_days"`
	Warnings     []string      `json:"warnings,omitempty"`
	Cached       bool          `json:"cached"`
}

// SummaryStats is the five-number summary used for day-level percent
// series.
type SummaryStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// FirstHourStats summarizes the 09:30-10:29 opening hour across the
// selected days. Both series measure the first-hour extreme against
// the session open, in percent.
type FirstHourStats struct {
	Days        int          `json:"days"`
	HighOpenPct SummaryStats `json:"high_open_pct"`
	OpenLowPct  SummaryStats `json:"open_low_pct"`
}

// DayProfile aggregates day-level behavior over a filtered set of
// sessions. Percent series are in percent units (1.0 == 1%); the
// high/low times are fractional hours since midnight.
type DayProfile struct {
	Product       string          `json:"product"`
	Days          int             `json:"days"`
	CloseOpenPct  SummaryStats    `json:"close_open_pct"`
	RangePct      SummaryStats    `json:"range_pct"`
	HighOpenPct   SummaryStats    `json:"high_open_pct"`
	OpenLowPct    SummaryStats    `json:"open_low_pct"`
	GreenDays     int             `json:"green_days"`
	RedDays       int             `json:"red_days"`
	GreenPct      float64         `json:"green_pct"`
	AvgVolume     float64         `json:"avg_volume"`
	MedianVolume  float64         `json:"median_volume"`
	AvgHighTime   float64         `json:"avg_high_time"`
	MedHighTime   float64         `json:"median_high_time"`
	AvgLowTime    float64         `json:"avg_low_time"`
	MedLowTime    float64         `json:"median_low_time"`
	FirstHour     *FirstHourStats `json:"first_hour,omitempty"`
	Warnings      []string        `json:"warnings,omitempty"`
	Cached        bool            `json:"cached"`
}

// VolPoint is one time-of-day sample of the intraday volatility curve.
// MeanAbsPct and the quartiles are fractional absolute bar returns.
type VolPoint struct {
	TimeOfDay  string  `json:"time_of_day"`
	MeanAbsPct float64 `json:"mean_abs_pct"`
	Q25        float64 `json:"q25"`
	Q75        float64 `json:"q75"`
	Count      int     `json:"count"`
}

// VolCurve is the full intraday volatility profile of a product.
type VolCurve struct {
	Product string     `json:"product"`
	Points  []VolPoint `json:"points"`
	Days    int        `json:"days"`
	Cached  bool       `json:"cached"`
}

// RollingMetric names one supported rolling-window statistic.
type RollingMetric string

const (
	RollingMean   RollingMetric = "mean"
	RollingStd    RollingMetric = "std"
	RollingMin    RollingMetric = "min"
	RollingMax    RollingMetric = "max"
	RollingMedian RollingMetric = "median"
)

// Valid reports whether m names a supported rolling metric.
func (m RollingMetric) Valid() bool {
	switch m {
	case RollingMean, RollingStd, RollingMin, RollingMax, RollingMedian:
		return true
	}
	return false
}

// RollingPoint is one dated sample of a rolling metric series.
type RollingPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// RollingSeries is a single rolling metric computed over daily closes.
type RollingSeries struct {
	Metric RollingMetric  `json:"metric"`
	Window int            `json:"window"`
	Points []RollingPoint `json:"points"`
}

// RollingReport bundles the rolling series requested for a product.
type RollingReport struct {
	Product string          `json:"product"`
	Window  int             `json:"window"`
	Series  []RollingSeries `json:"series"`
	Cached  bool            `json:"cached"`
}

// CorrelationMatrix is a symmetric Pearson correlation matrix over
// daily returns of several products. Values[i][j] pairs Labels[i] with
// Labels[j].
type CorrelationMatrix struct {
	Labels []string    `json:"labels"`
	Values [][]float64 `json:"values"`
	Days   int         `json:"days"`
	Cached bool        `json:"cached"`
}
