package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klefe6/almanac/internal/cache"
	"github.com/klefe6/almanac/internal/events"
	"github.com/klefe6/almanac/internal/filters"
	api "github.com/klefe6/almanac/pkg/contracts/api/v1"
	"github.com/klefe6/almanac/pkg/contracts/domain"
)

func newTestStats(t *testing.T, src *fakeBars) *StatsService {
	t.Helper()
	c := cache.NewMemory(0, 0)
	t.Cleanup(func() { c.Close() })

	data := NewDatasetService(src, nil, discardLogger())
	engine := filters.NewEngine(events.NewCalendar(discardLogger()))
	return NewStatsService(data, engine, c, nil, discardLogger(), StatsOptions{})
}

func TestStatsService_HourlyStats(t *testing.T) {
	src := seededBars()
	svc := newTestStats(t, src)

	report, err := svc.HourlyStats(context.Background(), api.StatsRequest{Product: "ES"})
	require.NoError(t, err)

	assert.Equal(t, "ES", report.Product)
	assert.Equal(t, domain.GroupingHour, report.Grouping)
	assert.Equal(t, 5.0, report.TrimPct, "server default trim applies")
	assert.Equal(t, 2, report.TotalDays)
	assert.Equal(t, 2, report.FilteredDays)
	assert.False(t, report.Cached)
	assert.Nil(t, report.Hour)

	require.Len(t, report.Buckets, 2)
	assert.Equal(t, "9", report.Buckets[0].Bucket)
	assert.Equal(t, "10", report.Buckets[1].Bucket)
	assert.Equal(t, 3, report.Buckets[0].Count)
	assert.Equal(t, 2, report.Buckets[1].Count)
}

func TestStatsService_HourlyStats_CacheHit(t *testing.T) {
	src := seededBars()
	svc := newTestStats(t, src)
	req := api.StatsRequest{Product: "ES"}

	first, err := svc.HourlyStats(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := svc.HourlyStats(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Buckets, second.Buckets)
	assert.Equal(t, 1, src.minuteCalls, "cached call must not reload bars")
}

func TestStatsService_HourlyStats_DistinctCacheKeys(t *testing.T) {
	src := seededBars()
	svc := newTestStats(t, src)

	_, err := svc.HourlyStats(context.Background(), api.StatsRequest{Product: "ES"})
	require.NoError(t, err)

	trimmed, err := svc.HourlyStats(context.Background(), api.StatsRequest{Product: "ES", TrimPct: 10})
	require.NoError(t, err)

	assert.False(t, trimmed.Cached, "different parameters must not share a key")
	assert.Equal(t, 2, src.minuteCalls)
}

func TestStatsService_MinuteStats_RequiresHour(t *testing.T) {
	svc := newTestStats(t, seededBars())

	_, err := svc.MinuteStats(context.Background(), api.StatsRequest{Product: "ES"})
	assert.ErrorIs(t, err, ErrHourRequired)
}

func TestStatsService_MinuteStats_HourPushdown(t *testing.T) {
	src := seededBars()
	svc := newTestStats(t, src)

	hour := 9
	report, err := svc.MinuteStats(context.Background(), api.StatsRequest{Product: "ES", Hour: &hour})
	require.NoError(t, err)

	require.NotNil(t, report.Hour)
	assert.Equal(t, 9, *report.Hour)
	assert.Equal(t, 1, src.minuteHourCalls, "unfiltered minute stats read one hour")
	assert.Zero(t, src.minuteCalls)
	require.Len(t, report.Buckets, 2)
	assert.Equal(t, "30", report.Buckets[0].Bucket)
	assert.Equal(t, "31", report.Buckets[1].Bucket)
}

func TestStatsService_MinuteStats_FiltersLoadFullDay(t *testing.T) {
	src := seededBars()
	svc := newTestStats(t, src)

	hour := 9
	req := api.StatsRequest{
		Product: "ES",
		Hour:    &hour,
		Filters: domain.FilterSet{Weekdays: []string{"Monday"}},
	}
	report, err := svc.MinuteStats(context.Background(), req)
	require.NoError(t, err)

	assert.Zero(t, src.minuteHourCalls, "session filters need the whole day")
	assert.Equal(t, 1, src.minuteCalls)
	assert.Equal(t, 1, report.FilteredDays, "2024-03-11 is a Monday")
}

func TestStatsService_GroupedStats_InvalidDate(t *testing.T) {
	svc := newTestStats(t, seededBars())

	req := api.StatsRequest{Product: "ES"}
	req.From = "not-a-date"
	_, err := svc.HourlyStats(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidTimeRange)
}

func TestStatsService_GroupedStats_FromAfterTo(t *testing.T) {
	svc := newTestStats(t, seededBars())

	req := api.StatsRequest{Product: "ES"}
	req.From = "2024-03-12"
	req.To = "2024-03-11"
	_, err := svc.HourlyStats(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidTimeRange)
}

func TestStatsService_DayOfWeekStats(t *testing.T) {
	svc := newTestStats(t, seededBars())

	report, err := svc.DayOfWeekStats(context.Background(), api.StatsRequest{Product: "ES"})
	require.NoError(t, err)

	require.Len(t, report.Buckets, 2)
	assert.Equal(t, "Monday", report.Buckets[0].Bucket)
	assert.Equal(t, "Tuesday", report.Buckets[1].Bucket)
}

func TestStatsService_MonthlyStats(t *testing.T) {
	svc := newTestStats(t, seededBars())

	report, err := svc.MonthlyStats(context.Background(), api.StatsRequest{Product: "ES"})
	require.NoError(t, err)

	require.Len(t, report.Buckets, 1)
	assert.Equal(t, "March", report.Buckets[0].Bucket)
	assert.Equal(t, 5, report.Buckets[0].Count)
}

func TestStatsService_DayProfile(t *testing.T) {
	svc := newTestStats(t, seededBars())

	profile, err := svc.DayProfile(context.Background(), api.ProfileRequest{Product: "ES"})
	require.NoError(t, err)

	assert.Equal(t, "ES", profile.Product)
	assert.Equal(t, 2, profile.Days)
	assert.False(t, profile.Cached)

	cached, err := svc.DayProfile(context.Background(), api.ProfileRequest{Product: "ES"})
	require.NoError(t, err)
	assert.True(t, cached.Cached)
}

func TestStatsService_DayProfile_Unknown(t *testing.T) {
	svc := newTestStats(t, newFakeBars())

	_, err := svc.DayProfile(context.Background(), api.ProfileRequest{Product: "ZZ"})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestStatsService_VolCurve(t *testing.T) {
	svc := newTestStats(t, seededBars())

	curve, err := svc.VolCurve(context.Background(), api.VolCurveRequest{Product: "ES"})
	require.NoError(t, err)

	assert.Equal(t, "ES", curve.Product)
	assert.Equal(t, 2, curve.Days)
	require.NotEmpty(t, curve.Points)
	assert.Equal(t, "09:30", curve.Points[0].TimeOfDay)
}

func TestStatsService_RollingMetrics(t *testing.T) {
	src := seededBars()
	svc := newTestStats(t, src)

	report, err := svc.RollingMetrics(context.Background(), api.RollingRequest{
		Product: "ES",
		Window:  2,
		Metrics: []string{"mean", "max"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Window)
	require.Len(t, report.Series, 2)
	assert.Equal(t, domain.RollingMean, report.Series[0].Metric)
	assert.Equal(t, domain.RollingMax, report.Series[1].Metric)
	assert.Len(t, report.Series[0].Points, 2)
	assert.Zero(t, src.minuteCalls, "rolling metrics only need daily bars")
}

func TestStatsService_Correlation(t *testing.T) {
	src := seededBars()
	// ES rises then falls; NQ falls then rises over the same sessions.
	src.daily["ES"] = append(src.daily["ES"], dailyBar("2024-03-13", 5112, 5100))
	src.daily["NQ"] = []domain.Bar{
		dailyBar("2024-03-11", 18000, 18050),
		dailyBar("2024-03-12", 18060, 18020),
		dailyBar("2024-03-13", 18030, 18100),
		dailyBar("2024-03-14", 18110, 18150),
	}
	src.coverage["NQ"] = domain.Product{Symbol: "NQ", DailyBars: 4}
	svc := newTestStats(t, src)

	matrix, err := svc.Correlation(context.Background(), api.CorrelationRequest{
		Products: []string{"ES", "NQ"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"ES", "NQ"}, matrix.Labels)
	require.Len(t, matrix.Values, 2)
	assert.InDelta(t, 1.0, matrix.Values[0][0], 1e-9)
	assert.InDelta(t, 1.0, matrix.Values[1][1], 1e-9)
	assert.InDelta(t, -1.0, matrix.Values[0][1], 1e-9, "two opposite moves over two returns")
	assert.Equal(t, matrix.Values[0][1], matrix.Values[1][0])
	assert.Equal(t, 3, matrix.Days, "NQ's extra session does not align")
	assert.Zero(t, src.minuteCalls)
}

func TestStatsService_Correlation_TooFewProducts(t *testing.T) {
	svc := newTestStats(t, seededBars())

	_, err := svc.Correlation(context.Background(), api.CorrelationRequest{Products: []string{"ES"}})
	assert.ErrorIs(t, err, ErrTooFewProducts)
}

func TestStatsService_Correlation_NoOverlap(t *testing.T) {
	src := seededBars()
	src.daily["CL"] = []domain.Bar{dailyBar("2023-06-01", 70, 71)}
	src.coverage["CL"] = domain.Product{Symbol: "CL", DailyBars: 1}
	svc := newTestStats(t, src)

	_, err := svc.Correlation(context.Background(), api.CorrelationRequest{Products: []string{"ES", "CL"}})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestStatsService_ClearCache(t *testing.T) {
	src := seededBars()
	svc := newTestStats(t, src)
	req := api.StatsRequest{Product: "ES"}

	_, err := svc.HourlyStats(context.Background(), req)
	require.NoError(t, err)
	require.NoError(t, svc.ClearCache(context.Background()))

	report, err := svc.HourlyStats(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, report.Cached)
	assert.Equal(t, 2, src.minuteCalls, "cleared cache forces a recomputation")
}
