package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/klefe6/almanac/internal/infrastructure"
	api "github.com/klefe6/almanac/pkg/contracts/api/v1"
	"github.com/klefe6/almanac/pkg/contracts/domain"
)

// StatsWarmer is the slice of the stats pipeline a warmup job drives.
type StatsWarmer interface {
	HourlyStats(ctx context.Context, req api.StatsRequest) (*domain.StatsReport, error)
	MinuteStats(ctx context.Context, req api.StatsRequest) (*domain.StatsReport, error)
	DayOfWeekStats(ctx context.Context, req api.StatsRequest) (*domain.StatsReport, error)
	MonthlyStats(ctx context.Context, req api.StatsRequest) (*domain.StatsReport, error)
}

// ProductLister resolves the product universe when a warmup request
// names no products.
type ProductLister interface {
	Products(ctx context.Context) ([]domain.Product, error)
}

// Broadcaster pushes job events to connected WebSocket clients.
type Broadcaster interface {
	Broadcast(event string, payload any)
}

// Warmup event types.
const (
	EventWarmupProgress = "warmup:progress"
	EventWarmupComplete = "warmup:complete"
	EventWarmupFailed   = "warmup:failed"
)

// WarmupState is the externally visible state of the warmup job.
type WarmupState struct {
	JobID     string     `json:"job_id,omitempty"`
	Running   bool       `json:"running"`
	Total     int        `json:"total"`
	Completed int        `json:"completed"`
	Failed    int        `json:"failed"`
	Current   string     `json:"current,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// warmupTask is one computation the job precomputes.
type warmupTask struct {
	product  string
	grouping domain.Grouping
	hour     int
}

func (t warmupTask) label() string {
	if t.grouping == domain.GroupingMinute {
		return fmt.Sprintf("%s/%s/%02d", t.product, t.grouping, t.hour)
	}
	return fmt.Sprintf("%s/%s", t.product, t.grouping)
}

// WarmupService precomputes the stats cache for a set of products and
// groupings. At most one job runs at a time; progress streams over the
// WebSocket hub and is queryable while the job runs.
type WarmupService struct {
	stats    StatsWarmer
	products ProductLister
	hub      Broadcaster
	metrics  *infrastructure.BusinessMetrics
	logger   *slog.Logger

	mu     sync.Mutex
	state  WarmupState
	cancel context.CancelFunc
}

// NewWarmupService creates a new warmup service
func NewWarmupService(stats StatsWarmer, products ProductLister, hub Broadcaster, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *WarmupService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WarmupService{
		stats:    stats,
		products: products,
		hub:      hub,
		metrics:  metrics,
		logger:   logger.With(slog.String("component", "warmup_service")),
	}
}

// Start launches an asynchronous warmup job and returns its ID. A
// second Start while a job runs returns ErrJobAlreadyRunning.
func (s *WarmupService) Start(ctx context.Context, req api.WarmupRequest) (string, error) {
	products := req.Products
	if len(products) == 0 {
		all, err := s.products.Products(ctx)
		if err != nil {
			return "", fmt.Errorf("resolve products: %w", err)
		}
		for _, p := range all {
			products = append(products, p.Symbol)
		}
	}
	if len(products) == 0 {
		return "", fmt.Errorf("no products to warm: %w", ErrNoData)
	}

	groupings := make([]domain.Grouping, 0, len(req.Groupings))
	for _, g := range req.Groupings {
		groupings = append(groupings, domain.Grouping(g))
	}
	if len(groupings) == 0 {
		groupings = []domain.Grouping{
			domain.GroupingHour, domain.GroupingMinute,
			domain.GroupingDayOfWeek, domain.GroupingMonth,
		}
	}

	tasks := buildWarmupTasks(products, groupings)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Running {
		return "", ErrJobAlreadyRunning
	}

	jobID := uuid.New().String()
	now := time.Now()
	s.state = WarmupState{
		JobID:     jobID,
		Running:   true,
		Total:     len(tasks),
		StartedAt: &now,
	}

	// The job outlives the request that started it.
	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.logger.InfoContext(ctx, "warmup job started",
		slog.String("job_id", jobID),
		slog.Int("products", len(products)),
		slog.Int("tasks", len(tasks)),
	)
	go s.run(runCtx, jobID, req.TrimPct, tasks)

	return jobID, nil
}

// Status returns a snapshot of the current or most recent job.
func (s *WarmupService) Status() WarmupState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stop cancels the running job. ErrJobNotRunning when idle.
func (s *WarmupService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Running || s.cancel == nil {
		return ErrJobNotRunning
	}
	s.cancel()
	return nil
}

func (s *WarmupService) run(ctx context.Context, jobID string, trimPct float64, tasks []warmupTask) {
	var completed, failed int
	for _, task := range tasks {
		if ctx.Err() != nil {
			s.finish(ctx, jobID, completed, failed, ctx.Err())
			return
		}

		s.setCurrent(task.label())
		if err := s.runTask(ctx, trimPct, task); err != nil {
			failed++
			s.setProgress(completed, failed)
			// Products without data are expected in a warm-everything
			// sweep.
			if errors.Is(err, ErrNoData) || errors.Is(err, ErrProductNotFound) {
				s.logger.DebugContext(ctx, "warmup task skipped",
					slog.String("task", task.label()),
					slog.String("reason", err.Error()),
				)
			} else {
				s.logger.WarnContext(ctx, "warmup task failed",
					slog.String("task", task.label()),
					slog.String("error", err.Error()),
				)
			}
		} else {
			completed++
			s.setProgress(completed, failed)
		}

		s.hub.Broadcast(EventWarmupProgress, map[string]any{
			"job_id":    jobID,
			"total":     len(tasks),
			"completed": completed,
			"failed":    failed,
			"current":   task.label(),
		})
	}
	s.finish(ctx, jobID, completed, failed, nil)
}

func (s *WarmupService) runTask(ctx context.Context, trimPct float64, task warmupTask) error {
	req := api.StatsRequest{Product: task.product, TrimPct: trimPct}
	switch task.grouping {
	case domain.GroupingHour:
		_, err := s.stats.HourlyStats(ctx, req)
		return err
	case domain.GroupingMinute:
		hour := task.hour
		req.Hour = &hour
		_, err := s.stats.MinuteStats(ctx, req)
		return err
	case domain.GroupingDayOfWeek:
		_, err := s.stats.DayOfWeekStats(ctx, req)
		return err
	case domain.GroupingMonth:
		_, err := s.stats.MonthlyStats(ctx, req)
		return err
	}
	return fmt.Errorf("%q: %w", task.grouping, ErrInvalidGrouping)
}

func (s *WarmupService) setCurrent(label string) {
	s.mu.Lock()
	s.state.Current = label
	s.mu.Unlock()
}

func (s *WarmupService) setProgress(completed, failed int) {
	s.mu.Lock()
	s.state.Completed = completed
	s.state.Failed = failed
	s.mu.Unlock()
}

func (s *WarmupService) finish(ctx context.Context, jobID string, completed, failed int, cause error) {
	now := time.Now()

	s.mu.Lock()
	s.state.Running = false
	s.state.Current = ""
	s.state.Completed = completed
	s.state.Failed = failed
	s.state.EndedAt = &now
	if cause != nil {
		s.state.Error = "canceled"
	}
	s.cancel = nil
	s.mu.Unlock()

	status := "complete"
	event := EventWarmupComplete
	payload := map[string]any{
		"job_id":    jobID,
		"completed": completed,
		"failed":    failed,
	}
	if cause != nil {
		status = "canceled"
		event = EventWarmupFailed
		payload["error"] = "canceled"
	}

	infrastructure.RecordWarmupRun(ctx, s.metrics, status)
	s.hub.Broadcast(event, payload)
	s.logger.Info("warmup job finished",
		slog.String("job_id", jobID),
		slog.String("status", status),
		slog.Int("completed", completed),
		slog.Int("failed", failed),
	)
}

// buildWarmupTasks expands products x groupings into the task list.
// The minute grouping fans out to one task per hour of the session.
func buildWarmupTasks(products []string, groupings []domain.Grouping) []warmupTask {
	var tasks []warmupTask
	for _, product := range products {
		for _, g := range groupings {
			if g == domain.GroupingMinute {
				for hour := 0; hour < 24; hour++ {
					tasks = append(tasks, warmupTask{product: product, grouping: g, hour: hour})
				}
				continue
			}
			tasks = append(tasks, warmupTask{product: product, grouping: g})
		}
	}
	return tasks
}
