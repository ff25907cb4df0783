// Package api contains the API contract definitions for the Almanac
// futures statistics service. Version v1 is the current stable API
// version.
package api

import (
	"github.com/klefe6/almanac/pkg/contracts/domain"
)

// DateRangeRequest bounds a computation to a date window. Both ends
// are optional and inclusive.
type DateRangeRequest struct {
	From string `json:"from,omitempty" query:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `json:"to,omitempty" query:"to" validate:"omitempty,datetime=2006-01-02"`
}

// Stats API Requests

// StatsRequest parameterizes a grouped statistics computation. The
// grouping itself is part of the route.
type StatsRequest struct {
	Product string `json:"product" validate:"required,min=1,max=10"`
	DateRangeRequest

	// TrimPct is the two-sided trim percentage for the trimmed and
	// outlier means. Zero selects the server default.
	TrimPct float64 `json:"trim_pct,omitempty" validate:"omitempty,min=0,max=25"`

	// Hour restricts a minute-of-hour computation to one hour of the
	// session. Required by the minute grouping, ignored elsewhere.
	Hour *int `json:"hour,omitempty" validate:"omitempty,min=0,max=23"`

	// Filters selects the sessions that take part.
	Filters domain.FilterSet `json:"filters,omitempty"`

	// Points caps the number of returned buckets or curve samples by
	// downsampling. Zero returns everything.
	Points int `json:"points,omitempty" validate:"omitempty,min=3,max=10000"`
}

// ProfileRequest parameterizes a filtered day-profile computation.
type ProfileRequest struct {
	Product string `json:"product" validate:"required,min=1,max=10"`
	DateRangeRequest
	Filters domain.FilterSet `json:"filters,omitempty"`
}

// VolCurveRequest parameterizes an intraday volatility curve.
type VolCurveRequest struct {
	Product string `json:"product" validate:"required,min=1,max=10"`
	DateRangeRequest
	Filters domain.FilterSet `json:"filters,omitempty"`
	Points  int              `json:"points,omitempty" validate:"omitempty,min=3,max=10000"`
}

// RollingRequest parameterizes rolling metrics over daily closes.
type RollingRequest struct {
	Product string `json:"product" validate:"required,min=1,max=10"`
	DateRangeRequest
	Window  int      `json:"window" validate:"required,min=1,max=2500"`
	Metrics []string `json:"metrics,omitempty" validate:"omitempty,dive,oneof=mean std min max median"`
	Points  int      `json:"points,omitempty" validate:"omitempty,min=3,max=10000"`
}

// CorrelationRequest parameterizes a cross-product correlation matrix
// over daily returns.
type CorrelationRequest struct {
	Products []string `json:"products" validate:"required,min=2,max=12,dive,min=1,max=10"`
	DateRangeRequest
}

// Warmup API Requests

// WarmupRequest starts a cache precompute job. Empty fields mean all
// products and all groupings.
type WarmupRequest struct {
	Products  []string `json:"products,omitempty" validate:"omitempty,dive,min=1,max=10"`
	Groupings []string `json:"groupings,omitempty" validate:"omitempty,dive,oneof=hour minute day_of_week month"`
	TrimPct   float64  `json:"trim_pct,omitempty" validate:"omitempty,min=0,max=25"`
}
