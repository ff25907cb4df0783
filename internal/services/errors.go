package services

import "errors"

// Dataset errors
var (
	ErrProductNotFound = errors.New("product not found")
	ErrNoData          = errors.New("no data for selection")
)

// Stats errors
var (
	ErrInvalidTimeRange = errors.New("invalid time range")
	ErrInvalidGrouping  = errors.New("invalid grouping")
	ErrHourRequired     = errors.New("hour is required for minute grouping")
	ErrTooFewProducts   = errors.New("correlation needs at least two products")
)

// Event errors
var (
	ErrUnknownEventType = errors.New("unknown event type")
)

// Warmup errors
var (
	ErrJobAlreadyRunning = errors.New("warmup job already running")
	ErrJobNotRunning     = errors.New("no warmup job running")
)

// Export errors
var (
	ErrUnknownFormat = errors.New("unknown export format")
)
