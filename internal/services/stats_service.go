package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/klefe6/almanac/internal/cache"
	"github.com/klefe6/almanac/internal/calendar"
	"github.com/klefe6/almanac/internal/filters"
	"github.com/klefe6/almanac/internal/infrastructure"
	"github.com/klefe6/almanac/internal/stats"
	api "github.com/klefe6/almanac/pkg/contracts/api/v1"
	"github.com/klefe6/almanac/pkg/contracts/domain"
)

// StatsOptions tunes the computation pipeline.
type StatsOptions struct {
	// DefaultTrimPct applies when a request leaves trim_pct unset.
	DefaultTrimPct float64
	// CacheTTL bounds how long computed reports are memoized.
	CacheTTL time.Duration
}

// StatsService runs the statistics pipeline: cache check, data load,
// session filtering, computation, optional downsampling, cache fill.
type StatsService struct {
	data    *DatasetService
	filters *filters.Engine
	cache   cache.Cache
	metrics *infrastructure.BusinessMetrics
	tracer  trace.Tracer
	logger  *slog.Logger
	opts    StatsOptions
}

// NewStatsService creates a new stats service
func NewStatsService(data *DatasetService, engine *filters.Engine, c cache.Cache, metrics *infrastructure.BusinessMetrics, logger *slog.Logger, opts StatsOptions) *StatsService {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DefaultTrimPct <= 0 {
		opts.DefaultTrimPct = 5
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = cache.DefaultTTL
	}
	return &StatsService{
		data:    data,
		filters: engine,
		cache:   c,
		metrics: metrics,
		tracer:  otel.Tracer("almanac.stats"),
		logger:  logger.With(slog.String("component", "stats_service")),
		opts:    opts,
	}
}

// HourlyStats groups bars by hour of day.
func (s *StatsService) HourlyStats(ctx context.Context, req api.StatsRequest) (*domain.StatsReport, error) {
	return s.groupedStats(ctx, domain.GroupingHour, req)
}

// MinuteStats groups the bars of one hour by minute. The request's
// Hour field is required.
func (s *StatsService) MinuteStats(ctx context.Context, req api.StatsRequest) (*domain.StatsReport, error) {
	return s.groupedStats(ctx, domain.GroupingMinute, req)
}

// DayOfWeekStats groups bars by weekday.
func (s *StatsService) DayOfWeekStats(ctx context.Context, req api.StatsRequest) (*domain.StatsReport, error) {
	return s.groupedStats(ctx, domain.GroupingDayOfWeek, req)
}

// MonthlyStats groups bars by month.
func (s *StatsService) MonthlyStats(ctx context.Context, req api.StatsRequest) (*domain.StatsReport, error) {
	return s.groupedStats(ctx, domain.GroupingMonth, req)
}

func (s *StatsService) groupedStats(ctx context.Context, grouping domain.Grouping, req api.StatsRequest) (report *domain.StatsReport, err error) {
	ctx, span := s.tracer.Start(ctx, "stats."+string(grouping), trace.WithAttributes(
		attribute.String("product", req.Product),
		attribute.String("grouping", string(grouping)),
	))
	defer span.End()
	start := time.Now()
	defer func() {
		infrastructure.RecordComputation(ctx, s.metrics, string(grouping), time.Since(start), err)
	}()

	if grouping == domain.GroupingMinute && req.Hour == nil {
		return nil, ErrHourRequired
	}

	from, to, err := parseRange(req.DateRangeRequest)
	if err != nil {
		return nil, err
	}

	trim := req.TrimPct
	if trim <= 0 {
		trim = s.opts.DefaultTrimPct
	}

	key := cache.Key("stats:"+string(grouping), req)
	cached := &domain.StatsReport{}
	if s.cacheGet(ctx, string(grouping), key, cached) {
		return cached, nil
	}

	loadOpts := LoadOptions{From: from, To: to}
	if grouping == domain.GroupingMinute && req.Filters.Empty() {
		// Unfiltered minute grouping only ever reads one hour.
		loadOpts.Hour = req.Hour
	}
	ds, err := s.data.Load(ctx, req.Product, loadOpts)
	if err != nil {
		return nil, err
	}

	bars, result, err := s.applyFilters(ctx, ds, req.Filters)
	if err != nil {
		return nil, err
	}

	var buckets []domain.BucketStats
	switch grouping {
	case domain.GroupingHour:
		buckets = stats.ByHour(bars, trim)
	case domain.GroupingMinute:
		buckets = stats.ByMinute(bars, *req.Hour, trim)
	case domain.GroupingDayOfWeek:
		buckets = stats.ByDayOfWeek(bars, trim)
	case domain.GroupingMonth:
		buckets = stats.ByMonth(bars, trim)
	default:
		return nil, fmt.Errorf("%q: %w", grouping, ErrInvalidGrouping)
	}
	buckets = downsampleBuckets(buckets, req.Points)

	report = &domain.StatsReport{
		Product:      req.Product,
		Grouping:     grouping,
		TrimPct:      trim,
		Buckets:      buckets,
		TotalDays:    result.TotalDays,
		FilteredDays: result.KeptDays,
		Warnings:     result.Warnings,
	}
	if grouping == domain.GroupingMinute {
		report.Hour = req.Hour
	}
	if !from.IsZero() {
		report.From = &from
	}
	if !to.IsZero() {
		report.To = &to
	}

	s.cacheSet(ctx, key, report)
	return report, nil
}

// DayProfile computes filtered day-level summary statistics.
func (s *StatsService) DayProfile(ctx context.Context, req api.ProfileRequest) (profile *domain.DayProfile, err error) {
	ctx, span := s.tracer.Start(ctx, "stats.profile", trace.WithAttributes(
		attribute.String("product", req.Product),
	))
	defer span.End()
	start := time.Now()
	defer func() {
		infrastructure.RecordComputation(ctx, s.metrics, "profile", time.Since(start), err)
	}()

	from, to, err := parseRange(req.DateRangeRequest)
	if err != nil {
		return nil, err
	}

	key := cache.Key("stats:profile", req)
	cached := &domain.DayProfile{}
	if s.cacheGet(ctx, "profile", key, cached) {
		return cached, nil
	}

	ds, err := s.data.Load(ctx, req.Product, LoadOptions{From: from, To: to})
	if err != nil {
		return nil, err
	}

	bars, result, err := s.applyFilters(ctx, ds, req.Filters)
	if err != nil {
		return nil, err
	}

	profile = stats.Profile(bars, ds.Daily)
	if profile == nil {
		return nil, fmt.Errorf("%s: %w", req.Product, ErrNoData)
	}
	profile.Product = req.Product
	profile.Warnings = result.Warnings

	s.cacheSet(ctx, key, profile)
	return profile, nil
}

// VolCurve computes the intraday volatility profile.
func (s *StatsService) VolCurve(ctx context.Context, req api.VolCurveRequest) (curve *domain.VolCurve, err error) {
	ctx, span := s.tracer.Start(ctx, "stats.volcurve", trace.WithAttributes(
		attribute.String("product", req.Product),
	))
	defer span.End()
	start := time.Now()
	defer func() {
		infrastructure.RecordComputation(ctx, s.metrics, "volcurve", time.Since(start), err)
	}()

	from, to, err := parseRange(req.DateRangeRequest)
	if err != nil {
		return nil, err
	}

	key := cache.Key("stats:volcurve", req)
	cached := &domain.VolCurve{}
	if s.cacheGet(ctx, "volcurve", key, cached) {
		return cached, nil
	}

	ds, err := s.data.Load(ctx, req.Product, LoadOptions{From: from, To: to})
	if err != nil {
		return nil, err
	}

	bars, result, err := s.applyFilters(ctx, ds, req.Filters)
	if err != nil {
		return nil, err
	}

	points := stats.VolCurve(bars)
	points = downsampleVolPoints(points, req.Points)

	curve = &domain.VolCurve{
		Product: req.Product,
		Points:  points,
		Days:    result.KeptDays,
	}

	s.cacheSet(ctx, key, curve)
	return curve, nil
}

// RollingMetrics computes rolling-window statistics over daily closes.
func (s *StatsService) RollingMetrics(ctx context.Context, req api.RollingRequest) (report *domain.RollingReport, err error) {
	ctx, span := s.tracer.Start(ctx, "stats.rolling", trace.WithAttributes(
		attribute.String("product", req.Product),
		attribute.Int("window", req.Window),
	))
	defer span.End()
	start := time.Now()
	defer func() {
		infrastructure.RecordComputation(ctx, s.metrics, "rolling", time.Since(start), err)
	}()

	from, to, err := parseRange(req.DateRangeRequest)
	if err != nil {
		return nil, err
	}

	key := cache.Key("stats:rolling", req)
	cached := &domain.RollingReport{}
	if s.cacheGet(ctx, "rolling", key, cached) {
		return cached, nil
	}

	ds, err := s.data.Load(ctx, req.Product, LoadOptions{From: from, To: to, DailyOnly: true})
	if err != nil {
		return nil, err
	}

	times := make([]time.Time, len(ds.Daily))
	closes := make([]float64, len(ds.Daily))
	for i, b := range ds.Daily {
		times[i] = b.Time
		closes[i] = b.Close
	}

	metrics := make([]domain.RollingMetric, 0, len(req.Metrics))
	for _, m := range req.Metrics {
		metrics = append(metrics, domain.RollingMetric(m))
	}

	series, err := stats.Rolling(times, closes, req.Window, metrics)
	if err != nil {
		return nil, fmt.Errorf("rolling: %w", err)
	}
	for i := range series {
		series[i].Points = downsampleRollingPoints(series[i].Points, req.Points)
	}

	report = &domain.RollingReport{
		Product: req.Product,
		Window:  req.Window,
		Series:  series,
	}

	s.cacheSet(ctx, key, report)
	return report, nil
}

// Correlation computes a Pearson correlation matrix over the daily
// returns of several products, aligned on their common sessions.
func (s *StatsService) Correlation(ctx context.Context, req api.CorrelationRequest) (matrix *domain.CorrelationMatrix, err error) {
	ctx, span := s.tracer.Start(ctx, "stats.correlation", trace.WithAttributes(
		attribute.StringSlice("products", req.Products),
	))
	defer span.End()
	start := time.Now()
	defer func() {
		infrastructure.RecordComputation(ctx, s.metrics, "correlation", time.Since(start), err)
	}()

	if len(req.Products) < 2 {
		return nil, ErrTooFewProducts
	}

	from, to, err := parseRange(req.DateRangeRequest)
	if err != nil {
		return nil, err
	}

	key := cache.Key("stats:correlation", req)
	cached := &domain.CorrelationMatrix{}
	if s.cacheGet(ctx, "correlation", key, cached) {
		return cached, nil
	}

	// One daily fetch per product, in parallel.
	closesByProduct := make([]map[string]float64, len(req.Products))
	g, gctx := errgroup.WithContext(ctx)
	for i, product := range req.Products {
		i, product := i, product
		g.Go(func() error {
			ds, err := s.data.Load(gctx, product, LoadOptions{From: from, To: to, DailyOnly: true})
			if err != nil {
				return err
			}
			byDay := make(map[string]float64, len(ds.Daily))
			for _, b := range ds.Daily {
				byDay[b.Time.Format("2006-01-02")] = b.Close
			}
			closesByProduct[i] = byDay
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	common := commonDays(closesByProduct)
	if len(common) < 2 {
		return nil, fmt.Errorf("correlation window has %d aligned sessions: %w", len(common), ErrNoData)
	}

	columns := make([][]float64, len(req.Products))
	for i, byDay := range closesByProduct {
		closes := make([]float64, len(common))
		for j, day := range common {
			closes[j] = byDay[day]
		}
		columns[i] = stats.PctReturns(closes)
	}

	values, err := stats.Correlation(columns)
	if err != nil {
		return nil, fmt.Errorf("correlation: %w", err)
	}

	matrix = &domain.CorrelationMatrix{
		Labels: req.Products,
		Values: values,
		Days:   len(common),
	}

	s.cacheSet(ctx, key, matrix)
	return matrix, nil
}

// ClearCache drops every memoized report.
func (s *StatsService) ClearCache(ctx context.Context) error {
	if err := s.cache.Clear(ctx); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	s.logger.InfoContext(ctx, "stats cache cleared")
	return nil
}

// CacheStats reports backend activity counters.
func (s *StatsService) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// applyFilters runs the day filters and then the zone filters,
// recording the filter outcome metrics.
func (s *StatsService) applyFilters(ctx context.Context, ds *Dataset, fs domain.FilterSet) ([]domain.Bar, domain.FilterResult, error) {
	bars, result, err := s.filters.Apply(ds.Minute, ds.Daily, fs)
	if err != nil {
		return nil, domain.FilterResult{}, fmt.Errorf("apply filters: %w", err)
	}

	if len(fs.Zones) > 0 {
		var diag *domain.ZoneDiagnostics
		bars, diag, err = filters.ApplyZones(bars, fs.Zones)
		if err != nil {
			return nil, domain.FilterResult{}, fmt.Errorf("apply zones: %w", err)
		}
		result.Zones = diag
		result.KeptDays = diag.DaysRemaining
	}

	infrastructure.RecordFilterOutcome(ctx, s.metrics, ds.Product, int64(result.KeptDays), int64(result.TotalDays))
	return bars, result, nil
}

func (s *StatsService) cacheGet(ctx context.Context, op, key string, v any) bool {
	payload, ok := s.cache.Get(ctx, key)
	infrastructure.RecordCacheAccess(ctx, s.metrics, op, ok)
	if !ok {
		return false
	}
	if err := json.Unmarshal(payload, v); err != nil {
		s.logger.WarnContext(ctx, "dropping undecodable cache entry",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		s.cache.Delete(ctx, key)
		return false
	}
	markCached(v)
	return true
}

func (s *StatsService) cacheSet(ctx context.Context, key string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		s.logger.WarnContext(ctx, "report not cacheable",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return
	}
	s.cache.Set(ctx, key, payload, s.opts.CacheTTL)
}

// markCached flips the Cached flag on payloads served from cache.
func markCached(v any) {
	switch r := v.(type) {
	case *domain.StatsReport:
		r.Cached = true
	case *domain.DayProfile:
		r.Cached = true
	case *domain.VolCurve:
		r.Cached = true
	case *domain.RollingReport:
		r.Cached = true
	case *domain.CorrelationMatrix:
		r.Cached = true
	}
}

// parseRange converts the request date strings to session-zone times.
func parseRange(r api.DateRangeRequest) (from, to time.Time, err error) {
	loc := calendar.NewYork()
	if r.From != "" {
		from, err = time.ParseInLocation("2006-01-02", r.From, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("from %q: %w", r.From, ErrInvalidTimeRange)
		}
	}
	if r.To != "" {
		to, err = time.ParseInLocation("2006-01-02", r.To, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("to %q: %w", r.To, ErrInvalidTimeRange)
		}
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("from %s after to %s: %w", r.From, r.To, ErrInvalidTimeRange)
	}
	return from, to, nil
}

// commonDays intersects the session dates of every product, sorted.
func commonDays(closesByProduct []map[string]float64) []string {
	if len(closesByProduct) == 0 {
		return nil
	}
	common := make([]string, 0, len(closesByProduct[0]))
	for day := range closesByProduct[0] {
		shared := true
		for _, other := range closesByProduct[1:] {
			if _, ok := other[day]; !ok {
				shared = false
				break
			}
		}
		if shared {
			common = append(common, day)
		}
	}
	sort.Strings(common)
	return common
}

// downsampleBuckets thins a bucket list with LTTB over the mean percent
// change. Bucket lists are small; this only matters for minute series.
func downsampleBuckets(buckets []domain.BucketStats, points int) []domain.BucketStats {
	if points < 3 || points >= len(buckets) {
		return buckets
	}
	xs := make([]float64, len(buckets))
	ys := make([]float64, len(buckets))
	for i, b := range buckets {
		xs[i] = float64(i)
		ys[i] = b.PctChange.Mean
	}
	idx := stats.LTTB(xs, ys, points)
	out := make([]domain.BucketStats, len(idx))
	for i, j := range idx {
		out[i] = buckets[j]
	}
	return out
}

func downsampleVolPoints(points []domain.VolPoint, threshold int) []domain.VolPoint {
	if threshold < 3 || threshold >= len(points) {
		return points
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = float64(i)
		ys[i] = p.MeanAbsPct
	}
	idx := stats.LTTB(xs, ys, threshold)
	out := make([]domain.VolPoint, len(idx))
	for i, j := range idx {
		out[i] = points[j]
	}
	return out
}

func downsampleRollingPoints(points []domain.RollingPoint, threshold int) []domain.RollingPoint {
	if threshold < 3 || threshold >= len(points) {
		return points
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = float64(p.Time.Unix())
		ys[i] = p.Value
	}
	idx := stats.LTTB(xs, ys, threshold)
	out := make([]domain.RollingPoint, len(idx))
	for i, j := range idx {
		out[i] = points[j]
	}
	return out
}
