package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/klefe6/almanac/internal/cache"
	"github.com/klefe6/almanac/pkg/contracts"
)

// StoreHealth is the slice of storage the readiness probe consumes.
type StoreHealth interface {
	Ping(ctx context.Context) error
}

// HealthStatus is the health endpoint response payload.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]any         `json:"runtime,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is the outcome of one dependency probe.
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

const (
	checkUp   = "up"
	checkDown = "down"
)

// HealthService answers the liveness, readiness and version probes.
type HealthService struct {
	store     StoreHealth
	cache     cache.Cache
	dataDir   string
	startTime time.Time
	logger    *slog.Logger
}

// NewHealthService creates a new health service
func NewHealthService(store StoreHealth, c cache.Cache, dataDir string, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		store:     store,
		cache:     c,
		dataDir:   dataDir,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// Health returns the full health picture: dependency checks plus
// process runtime.
func (s *HealthService) Health(ctx context.Context) HealthStatus {
	status := s.Readiness(ctx)
	if status.Status == "ready" {
		status.Status = "ok"
	} else {
		status.Status = "degraded"
	}
	status.Runtime = s.runtimeInfo()
	return status
}

// Readiness probes every dependency the request path needs.
func (s *HealthService) Readiness(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Checks: map[string]CheckResult{
			"database": s.checkDatabase(ctx),
			"cache":    s.checkCache(ctx),
			"data_dir": s.checkDataDir(),
		},
	}
	for name, check := range status.Checks {
		if check.Status != checkUp {
			status.Status = "not_ready"
			s.logger.WarnContext(ctx, "readiness check failed",
				slog.String("check", name),
				slog.String("message", check.Message),
			)
		}
	}
	return status
}

// Liveness reports that the process is responsive. It probes nothing.
func (s *HealthService) Liveness(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Runtime:   s.runtimeInfo(),
	}
}

// Version returns build and runtime identification.
func (s *HealthService) Version() map[string]any {
	info := contracts.GetVersionInfo()
	return map[string]any{
		"version":        info.Version,
		"api_version":    info.APIVersion,
		"build_time":     info.BuildTime,
		"git_commit":     info.GitCommit,
		"go_version":     info.GoVersion,
		"os":             info.OS,
		"arch":           info.Architecture,
		"uptime_seconds": time.Since(s.startTime).Seconds(),
		"start_time":     s.startTime.Format(time.RFC3339),
	}
}

func (s *HealthService) runtimeInfo() map[string]any {
	return map[string]any{
		"uptime_seconds": time.Since(s.startTime).Seconds(),
		"go_version":     runtime.Version(),
		"goroutines":     runtime.NumGoroutine(),
	}
}

func (s *HealthService) checkDatabase(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		return CheckResult{Status: checkDown, Message: err.Error()}
	}
	return CheckResult{Status: checkUp}
}

// checkCache writes and reads back a probe entry. The cache interface
// has no ping; a roundtrip proves the backend end to end.
func (s *HealthService) checkCache(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	key := fmt.Sprintf("health:probe:%d", time.Now().UnixNano())
	s.cache.Set(ctx, key, []byte("ok"), 10*time.Second)
	if _, ok := s.cache.Get(ctx, key); !ok {
		return CheckResult{Status: checkDown, Message: "probe roundtrip failed"}
	}
	s.cache.Delete(ctx, key)
	return CheckResult{Status: checkUp}
}

func (s *HealthService) checkDataDir() CheckResult {
	if s.dataDir == "" {
		return CheckResult{Status: checkUp, Message: "not configured"}
	}
	info, err := os.Stat(s.dataDir)
	if err != nil {
		return CheckResult{Status: checkDown, Message: err.Error()}
	}
	if !info.IsDir() {
		return CheckResult{Status: checkDown, Message: s.dataDir + " is not a directory"}
	}
	return CheckResult{Status: checkUp}
}
