package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/klefe6/almanac/internal/infrastructure"
	"github.com/klefe6/almanac/pkg/contracts/domain"
)

// Unbounded window sentinels. The store filters with closed intervals,
// so zero request bounds widen to these.
var (
	minTime = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	maxTime = time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)
)

// BarSource is the slice of the store the dataset service reads from.
type BarSource interface {
	MinuteBars(ctx context.Context, product string, from, to time.Time) ([]domain.Bar, error)
	MinuteBarsHour(ctx context.Context, product string, from, to time.Time, hour int) ([]domain.Bar, error)
	DailyBars(ctx context.Context, product string, from, to time.Time) ([]domain.Bar, error)
	ProductCoverage(ctx context.Context, product string) (domain.Product, error)
}

// Dataset is one product's bars at both resolutions for a window.
type Dataset struct {
	Product string
	Minute  []domain.Bar
	Daily   []domain.Bar
}

// LoadOptions bounds and shapes a dataset load. From and To are
// inclusive session dates; zero means unbounded. Hour restricts the
// minute fetch to a single hour of the day. DailyOnly skips the minute
// fetch for computations over daily closes.
type LoadOptions struct {
	From      time.Time
	To        time.Time
	Hour      *int
	DailyOnly bool
}

// DatasetService fetches bar data for the computation pipeline.
type DatasetService struct {
	bars    BarSource
	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger
}

// NewDatasetService creates a new dataset service
func NewDatasetService(bars BarSource, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *DatasetService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DatasetService{
		bars:    bars,
		metrics: metrics,
		logger:  logger.With(slog.String("component", "dataset_service")),
	}
}

// Load fetches the minute and daily bars of a product in parallel.
// An empty result distinguishes a product with no stored data at all
// (ErrProductNotFound) from a window or hour that selects nothing
// (ErrNoData).
func (s *DatasetService) Load(ctx context.Context, product string, opts LoadOptions) (*Dataset, error) {
	from, to, err := window(opts.From, opts.To)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{Product: product}

	g, gctx := errgroup.WithContext(ctx)
	if !opts.DailyOnly {
		g.Go(func() error {
			var err error
			if opts.Hour != nil {
				ds.Minute, err = s.bars.MinuteBarsHour(gctx, product, from, to, *opts.Hour)
			} else {
				ds.Minute, err = s.bars.MinuteBars(gctx, product, from, to)
			}
			if err != nil {
				return fmt.Errorf("load minute bars: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		var err error
		ds.Daily, err = s.bars.DailyBars(gctx, product, from, to)
		if err != nil {
			return fmt.Errorf("load daily bars: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(ds.Minute) == 0 && len(ds.Daily) == 0 {
		coverage, err := s.bars.ProductCoverage(ctx, product)
		if err != nil {
			return nil, fmt.Errorf("check coverage: %w", err)
		}
		if !coverage.HasData() {
			return nil, fmt.Errorf("%s: %w", product, ErrProductNotFound)
		}
		return nil, fmt.Errorf("%s: %w", product, ErrNoData)
	}

	if !opts.DailyOnly {
		infrastructure.RecordBarsLoaded(ctx, s.metrics, product, string(domain.IntervalMinute), int64(len(ds.Minute)))
	}
	infrastructure.RecordBarsLoaded(ctx, s.metrics, product, string(domain.IntervalDaily), int64(len(ds.Daily)))

	s.logger.DebugContext(ctx, "dataset loaded",
		slog.String("product", product),
		slog.Int("minute_bars", len(ds.Minute)),
		slog.Int("daily_bars", len(ds.Daily)),
	)
	return ds, nil
}

// window widens zero bounds and extends To to the end of its session
// date so closed-interval store queries cover the whole day.
func window(from, to time.Time) (time.Time, time.Time, error) {
	lo, hi := minTime, maxTime
	if !from.IsZero() {
		lo = from
	}
	if !to.IsZero() {
		hi = to.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	if lo.After(hi) {
		return time.Time{}, time.Time{}, fmt.Errorf("from %s after to %s: %w",
			lo.Format("2006-01-02"), to.Format("2006-01-02"), ErrInvalidTimeRange)
	}
	return lo, hi, nil
}
