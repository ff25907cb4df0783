package http

import (
	"context"

	"github.com/klefe6/almanac/internal/cache"
	"github.com/klefe6/almanac/internal/events"
	"github.com/klefe6/almanac/internal/services"
	api "github.com/klefe6/almanac/pkg/contracts/api/v1"
	"github.com/klefe6/almanac/pkg/contracts/domain"
)

// StatsService is the statistics surface the stats and cache handlers
// consume.
type StatsService interface {
	HourlyStats(ctx context.Context, req api.StatsRequest) (*domain.StatsReport, error)
	MinuteStats(ctx context.Context, req api.StatsRequest) (*domain.StatsReport, error)
	DayOfWeekStats(ctx context.Context, req api.StatsRequest) (*domain.StatsReport, error)
	MonthlyStats(ctx context.Context, req api.StatsRequest) (*domain.StatsReport, error)
	DayProfile(ctx context.Context, req api.ProfileRequest) (*domain.DayProfile, error)
	VolCurve(ctx context.Context, req api.VolCurveRequest) (*domain.VolCurve, error)
	RollingMetrics(ctx context.Context, req api.RollingRequest) (*domain.RollingReport, error)
	Correlation(ctx context.Context, req api.CorrelationRequest) (*domain.CorrelationMatrix, error)
	ClearCache(ctx context.Context) error
	CacheStats() cache.Stats
}

// ExportService renders grouped statistics reports into download
// formats.
type ExportService interface {
	Export(report *domain.StatsReport, format services.ExportFormat) ([]byte, error)
	Filename(report *domain.StatsReport, format services.ExportFormat) string
}

// ProductService lists products and their data coverage.
type ProductService interface {
	Products(ctx context.Context) ([]domain.Product, error)
	Coverage(ctx context.Context, product string) (domain.Product, error)
}

// EventService serves the event calendars.
type EventService interface {
	Types() []domain.EventType
	Dates(eventType string, yearFrom, yearTo int) ([]string, error)
	FOMCWeeks() []string
	Status() events.Status
}

// WarmupService runs cache precompute jobs.
type WarmupService interface {
	Start(ctx context.Context, req api.WarmupRequest) (string, error)
	Status() services.WarmupState
	Stop() error
}

// HealthService reports process and dependency health.
type HealthService interface {
	Health(ctx context.Context) services.HealthStatus
	Readiness(ctx context.Context) services.HealthStatus
	Liveness(ctx context.Context) services.HealthStatus
	Version() map[string]any
}

// Broadcaster pushes an event to every connected websocket client.
type Broadcaster interface {
	Broadcast(event string, payload any)
}
