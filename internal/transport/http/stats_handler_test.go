package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klefe6/almanac/internal/cache"
	"github.com/klefe6/almanac/internal/services"
	api "github.com/klefe6/almanac/pkg/contracts/api/v1"
	"github.com/klefe6/almanac/pkg/contracts/domain"
)

// fakeStatsService records the last request per operation and returns
// canned results.
type fakeStatsService struct {
	report  *domain.StatsReport
	profile *domain.DayProfile
	curve   *domain.VolCurve
	rolling *domain.RollingReport
	matrix  *domain.CorrelationMatrix
	err     error

	grouping   domain.Grouping
	statsReq   api.StatsRequest
	profileReq api.ProfileRequest
	curveReq   api.VolCurveRequest
	rollingReq api.RollingRequest
	corrReq    api.CorrelationRequest

	cleared    bool
	clearErr   error
	cacheStats cache.Stats
}

func (f *fakeStatsService) recordStats(g domain.Grouping, req api.StatsRequest) (*domain.StatsReport, error) {
	f.grouping = g
	f.statsReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

func (f *fakeStatsService) HourlyStats(_ context.Context, req api.StatsRequest) (*domain.StatsReport, error) {
	return f.recordStats(domain.GroupingHour, req)
}

func (f *fakeStatsService) MinuteStats(_ context.Context, req api.StatsRequest) (*domain.StatsReport, error) {
	return f.recordStats(domain.GroupingMinute, req)
}

func (f *fakeStatsService) DayOfWeekStats(_ context.Context, req api.StatsRequest) (*domain.StatsReport, error) {
	return f.recordStats(domain.GroupingDayOfWeek, req)
}

func (f *fakeStatsService) MonthlyStats(_ context.Context, req api.StatsRequest) (*domain.StatsReport, error) {
	return f.recordStats(domain.GroupingMonth, req)
}

func (f *fakeStatsService) DayProfile(_ context.Context, req api.ProfileRequest) (*domain.DayProfile, error) {
	f.profileReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

func (f *fakeStatsService) VolCurve(_ context.Context, req api.VolCurveRequest) (*domain.VolCurve, error) {
	f.curveReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.curve, nil
}

func (f *fakeStatsService) RollingMetrics(_ context.Context, req api.RollingRequest) (*domain.RollingReport, error) {
	f.rollingReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.rolling, nil
}

func (f *fakeStatsService) Correlation(_ context.Context, req api.CorrelationRequest) (*domain.CorrelationMatrix, error) {
	f.corrReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.matrix, nil
}

func (f *fakeStatsService) ClearCache(context.Context) error {
	f.cleared = true
	return f.clearErr
}

func (f *fakeStatsService) CacheStats() cache.Stats {
	return f.cacheStats
}

type fakeExportService struct {
	payload []byte
	err     error

	report *domain.StatsReport
	format services.ExportFormat
}

func (f *fakeExportService) Export(report *domain.StatsReport, format services.ExportFormat) ([]byte, error) {
	f.report = report
	f.format = format
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

func (f *fakeExportService) Filename(report *domain.StatsReport, format services.ExportFormat) string {
	return fmt.Sprintf("%s_%s_stats.%s", report.Product, report.Grouping, format)
}

func newStatsRouter(svc *fakeStatsService, exp *fakeExportService) chi.Router {
	deps := newTestDeps()
	if exp == nil {
		exp = &fakeExportService{}
	}
	h := NewStatsHandler(svc, exp, deps.validation, deps.query, deps.logger, deps.errorHandler)
	return h.Routes()
}

func cannedReport(product string, grouping domain.Grouping) *domain.StatsReport {
	return &domain.StatsReport{
		Product:  product,
		Grouping: grouping,
		Buckets: []domain.BucketStats{
			{Bucket: "09:00", Count: 120, PctChange: domain.Measures{Mean: 0.04}},
			{Bucket: "10:00", Count: 120, PctChange: domain.Measures{Mean: -0.01}},
		},
		TotalDays:    120,
		FilteredDays: 120,
	}
}

func TestStatsHandler_GroupedPost(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		grouping domain.Grouping
	}{
		{name: "hourly", path: "/hourly", grouping: domain.GroupingHour},
		{name: "minute", path: "/minute", grouping: domain.GroupingMinute},
		{name: "day of week", path: "/day-of-week", grouping: domain.GroupingDayOfWeek},
		{name: "monthly", path: "/monthly", grouping: domain.GroupingMonth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeStatsService{report: cannedReport("ES", tt.grouping)}
			router := newStatsRouter(svc, nil)

			rec := doJSON(t, router, http.MethodPost, tt.path, map[string]any{
				"product":  "ES",
				"trim_pct": 2.5,
			})

			data := requireSuccess(t, rec).(map[string]any)
			assert.Equal(t, "ES", data["product"])
			assert.Equal(t, string(tt.grouping), data["grouping"])

			assert.Equal(t, tt.grouping, svc.grouping)
			assert.Equal(t, "ES", svc.statsReq.Product)
			assert.InDelta(t, 2.5, svc.statsReq.TrimPct, 1e-9)
		})
	}
}

func TestStatsHandler_PostBodyCarriesFilters(t *testing.T) {
	svc := &fakeStatsService{report: cannedReport("ES", domain.GroupingHour)}
	router := newStatsRouter(svc, nil)

	rec := doJSON(t, router, http.MethodPost, "/hourly", map[string]any{
		"product": "ES",
		"from":    "2020-01-02",
		"to":      "2024-12-31",
		"filters": map[string]any{
			"weekdays":     []string{"Monday", "Friday"},
			"fomc_week":    true,
			"prev_day_pos": true,
		},
	})

	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	assert.Equal(t, "2020-01-02", svc.statsReq.From)
	assert.Equal(t, "2024-12-31", svc.statsReq.To)
	assert.Equal(t, []string{"Monday", "Friday"}, svc.statsReq.Filters.Weekdays)
	assert.True(t, svc.statsReq.Filters.FOMCWeek)
	assert.True(t, svc.statsReq.Filters.PrevDayPos)
}

func TestStatsHandler_PostValidation(t *testing.T) {
	tests := []struct {
		name      string
		body      map[string]any
		errorCode string
	}{
		{
			name:      "missing product",
			body:      map[string]any{"trim_pct": 1.0},
			errorCode: "VALIDATION_FAILED",
		},
		{
			name:      "trim percentage out of range",
			body:      map[string]any{"product": "ES", "trim_pct": 50.0},
			errorCode: "VALIDATION_FAILED",
		},
		{
			name:      "hour out of range",
			body:      map[string]any{"product": "ES", "hour": 24},
			errorCode: "VALIDATION_FAILED",
		},
		{
			name:      "bad date format",
			body:      map[string]any{"product": "ES", "from": "01/02/2020"},
			errorCode: "VALIDATION_FAILED",
		},
		{
			name:      "unknown weekday",
			body:      map[string]any{"product": "ES", "filters": map[string]any{"weekdays": []string{"Caturday"}}},
			errorCode: "VALIDATION_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeStatsService{report: cannedReport("ES", domain.GroupingHour)}
			router := newStatsRouter(svc, nil)

			rec := doJSON(t, router, http.MethodPost, "/hourly", tt.body)

			requireProblem(t, rec, http.StatusBadRequest, tt.errorCode)
			assert.Empty(t, svc.statsReq.Product, "service must not be called")
		})
	}
}

func TestStatsHandler_PostMalformedJSON(t *testing.T) {
	svc := &fakeStatsService{}
	router := newStatsRouter(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/hourly", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	requireProblem(t, rec, http.StatusBadRequest, "INVALID_REQUEST")
}

func TestStatsHandler_PostFilterCrossField(t *testing.T) {
	svc := &fakeStatsService{}
	router := newStatsRouter(svc, nil)

	rec := doJSON(t, router, http.MethodPost, "/hourly", map[string]any{
		"product": "ES",
		"filters": map[string]any{
			"time_comparison": map[string]any{
				"hour_a": 9, "minute_a": 30,
				"hour_b": 9, "minute_b": 30,
				"op": ">",
			},
		},
	})

	body := requireProblem(t, rec, http.StatusBadRequest, "VALIDATION_FAILED")
	details, ok := body["details"].(string)
	require.True(t, ok, "details: %v", body["details"])
	assert.Contains(t, details, "must differ")
}

func TestStatsHandler_GroupedQuery(t *testing.T) {
	svc := &fakeStatsService{report: cannedReport("ES", domain.GroupingMinute)}
	router := newStatsRouter(svc, nil)

	rec := doJSON(t, router, http.MethodGet,
		"/minute?product=es&hour=9&from=2020-01-02&to=2020-12-31&trim_pct=1.5&points=500", nil)

	requireSuccess(t, rec)
	assert.Equal(t, domain.GroupingMinute, svc.grouping)
	assert.Equal(t, "ES", svc.statsReq.Product, "product is uppercased")
	require.NotNil(t, svc.statsReq.Hour)
	assert.Equal(t, 9, *svc.statsReq.Hour)
	assert.Equal(t, "2020-01-02", svc.statsReq.From)
	assert.Equal(t, "2020-12-31", svc.statsReq.To)
	assert.InDelta(t, 1.5, svc.statsReq.TrimPct, 1e-9)
	assert.Equal(t, 500, svc.statsReq.Points)
}

func TestStatsHandler_GroupedQueryDefaults(t *testing.T) {
	svc := &fakeStatsService{report: cannedReport("ES", domain.GroupingHour)}
	router := newStatsRouter(svc, nil)

	rec := doJSON(t, router, http.MethodGet, "/hourly?product=ES", nil)

	requireSuccess(t, rec)
	assert.Nil(t, svc.statsReq.Hour, "hour stays unset when the parameter is absent")
	assert.Zero(t, svc.statsReq.TrimPct)
	assert.Zero(t, svc.statsReq.Points)
}

func TestStatsHandler_QueryValidation(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{name: "missing product", path: "/hourly"},
		{name: "hour above range", path: "/minute?product=ES&hour=24"},
		{name: "hour not a number", path: "/minute?product=ES&hour=nine"},
		{name: "trim percentage above range", path: "/hourly?product=ES&trim_pct=30"},
		{name: "points below range", path: "/hourly?product=ES&points=2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeStatsService{report: cannedReport("ES", domain.GroupingHour)}
			router := newStatsRouter(svc, nil)

			rec := doJSON(t, router, http.MethodGet, tt.path, nil)

			requireProblem(t, rec, http.StatusBadRequest, "VALIDATION_FAILED")
		})
	}
}

func TestStatsHandler_ServiceErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		errorCode string
	}{
		{name: "product not found", err: services.ErrProductNotFound, status: http.StatusNotFound, errorCode: "PRODUCT_NOT_FOUND"},
		{name: "no data", err: services.ErrNoData, status: http.StatusNotFound, errorCode: "NO_DATA"},
		{name: "invalid time range", err: services.ErrInvalidTimeRange, status: http.StatusBadRequest, errorCode: "VALIDATION_FAILED"},
		{name: "hour required", err: services.ErrHourRequired, status: http.StatusBadRequest, errorCode: "VALIDATION_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeStatsService{err: tt.err}
			router := newStatsRouter(svc, nil)

			rec := doJSON(t, router, http.MethodGet, "/hourly?product=ES", nil)

			requireProblem(t, rec, tt.status, tt.errorCode)
		})
	}
}

func TestStatsHandler_ProductNotFoundDetails(t *testing.T) {
	svc := &fakeStatsService{err: services.ErrProductNotFound}
	router := newStatsRouter(svc, nil)

	rec := doJSON(t, router, http.MethodGet, "/hourly?product=ZZ", nil)

	body := requireProblem(t, rec, http.StatusNotFound, "PRODUCT_NOT_FOUND")
	assert.Equal(t, "Product 'ZZ' not found", body["detail"])

	details, ok := body["details"].(map[string]any)
	require.True(t, ok, "details: %v", body["details"])
	assert.Equal(t, "ZZ", details["product"])
}

func TestStatsHandler_UnclassifiedErrorIs500(t *testing.T) {
	svc := &fakeStatsService{err: errors.New("csv offsets corrupted")}
	router := newStatsRouter(svc, nil)

	rec := doJSON(t, router, http.MethodGet, "/hourly?product=ES", nil)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "/errors/internal", body["type"])
}

func TestStatsHandler_Export(t *testing.T) {
	payload := "bucket,count\n09:00,120\n"
	svc := &fakeStatsService{report: cannedReport("ES", domain.GroupingHour)}
	exp := &fakeExportService{payload: []byte(payload)}
	router := newStatsRouter(svc, exp)

	rec := doJSON(t, router, http.MethodGet, "/hourly/export?product=ES&format=csv", nil)

	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="ES_hour_stats.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, strconv.Itoa(len(payload)), rec.Header().Get("Content-Length"))
	assert.Equal(t, payload, rec.Body.String())

	assert.Equal(t, services.FormatCSV, exp.format)
	assert.Equal(t, "ES", exp.report.Product)
}

func TestStatsHandler_ExportXLSX(t *testing.T) {
	svc := &fakeStatsService{report: cannedReport("NQ", domain.GroupingMonth)}
	exp := &fakeExportService{payload: []byte{0x50, 0x4b, 0x03, 0x04}}
	router := newStatsRouter(svc, exp)

	rec := doJSON(t, router, http.MethodGet, "/monthly/export?product=NQ&format=xlsx", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.Equal(t, `attachment; filename="NQ_month_stats.xlsx"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, services.FormatXLSX, exp.format)
}

func TestStatsHandler_ExportBadFormat(t *testing.T) {
	svc := &fakeStatsService{report: cannedReport("ES", domain.GroupingHour)}
	router := newStatsRouter(svc, nil)

	rec := doJSON(t, router, http.MethodGet, "/hourly/export?product=ES&format=pdf", nil)

	requireProblem(t, rec, http.StatusBadRequest, "VALIDATION_FAILED")
	assert.Empty(t, svc.statsReq.Product, "format is checked before any computation")
}

func TestStatsHandler_ExportServiceError(t *testing.T) {
	svc := &fakeStatsService{err: services.ErrNoData}
	router := newStatsRouter(svc, &fakeExportService{payload: []byte("x")})

	rec := doJSON(t, router, http.MethodGet, "/hourly/export?product=ES&format=csv", nil)

	requireProblem(t, rec, http.StatusNotFound, "NO_DATA")
}

func TestStatsHandler_Profile(t *testing.T) {
	svc := &fakeStatsService{profile: &domain.DayProfile{Product: "NQ", Days: 250, GreenDays: 131, RedDays: 119}}
	router := newStatsRouter(svc, nil)

	t.Run("post", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/profile", map[string]any{"product": "NQ"})

		data := requireSuccess(t, rec).(map[string]any)
		assert.Equal(t, "NQ", data["product"])
		assert.Equal(t, float64(250), data["days"])
		assert.Equal(t, "NQ", svc.profileReq.Product)
	})

	t.Run("query uppercases product", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/profile?product=nq&from=2021-01-04", nil)

		requireSuccess(t, rec)
		assert.Equal(t, "NQ", svc.profileReq.Product)
		assert.Equal(t, "2021-01-04", svc.profileReq.From)
	})
}

func TestStatsHandler_VolCurveQuery(t *testing.T) {
	svc := &fakeStatsService{curve: &domain.VolCurve{Product: "ES", Days: 500}}
	router := newStatsRouter(svc, nil)

	rec := doJSON(t, router, http.MethodGet, "/vol-curve?product=ES&points=100", nil)

	requireSuccess(t, rec)
	assert.Equal(t, "ES", svc.curveReq.Product)
	assert.Equal(t, 100, svc.curveReq.Points)
}

func TestStatsHandler_Rolling(t *testing.T) {
	svc := &fakeStatsService{rolling: &domain.RollingReport{Product: "ES", Window: 20}}
	router := newStatsRouter(svc, nil)

	t.Run("post", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/rolling", map[string]any{
			"product": "ES",
			"window":  20,
			"metrics": []string{"mean", "std"},
		})

		data := requireSuccess(t, rec).(map[string]any)
		assert.Equal(t, float64(20), data["window"])
		assert.Equal(t, 20, svc.rollingReq.Window)
		assert.Equal(t, []string{"mean", "std"}, svc.rollingReq.Metrics)
	})

	t.Run("post missing window", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/rolling", map[string]any{"product": "ES"})

		requireProblem(t, rec, http.StatusBadRequest, "VALIDATION_FAILED")
	})

	t.Run("post unknown metric", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/rolling", map[string]any{
			"product": "ES",
			"window":  20,
			"metrics": []string{"kurtosis"},
		})

		requireProblem(t, rec, http.StatusBadRequest, "VALIDATION_FAILED")
	})

	t.Run("query parses metric list", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/rolling?product=ES&window=20&metrics=mean,%20std", nil)

		requireSuccess(t, rec)
		assert.Equal(t, 20, svc.rollingReq.Window)
		assert.Equal(t, []string{"mean", "std"}, svc.rollingReq.Metrics)
	})

	t.Run("query missing window", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/rolling?product=ES", nil)

		body := requireProblem(t, rec, http.StatusBadRequest, "VALIDATION_FAILED")
		details, ok := body["details"].(map[string]any)
		require.True(t, ok, "details: %v", body["details"])
		assert.Equal(t, "window", details["field"])
	})

	t.Run("query unknown metric", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/rolling?product=ES&window=20&metrics=mean,bogus", nil)

		requireProblem(t, rec, http.StatusBadRequest, "VALIDATION_FAILED")
	})
}

func TestStatsHandler_Correlation(t *testing.T) {
	svc := &fakeStatsService{matrix: &domain.CorrelationMatrix{
		Labels: []string{"ES", "NQ"},
		Values: [][]float64{{1, 0.92}, {0.92, 1}},
		Days:   500,
	}}
	router := newStatsRouter(svc, nil)

	t.Run("post", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/correlation", map[string]any{
			"products": []string{"ES", "NQ"},
		})

		data := requireSuccess(t, rec).(map[string]any)
		labels, ok := data["labels"].([]any)
		require.True(t, ok)
		assert.Len(t, labels, 2)
		assert.Equal(t, []string{"ES", "NQ"}, svc.corrReq.Products)
	})

	t.Run("post single product", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/correlation", map[string]any{
			"products": []string{"ES"},
		})

		requireProblem(t, rec, http.StatusBadRequest, "VALIDATION_FAILED")
	})

	t.Run("query parses product list", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/correlation?products=es,%20nq", nil)

		requireSuccess(t, rec)
		assert.Equal(t, []string{"ES", "NQ"}, svc.corrReq.Products)
	})

	t.Run("query single product", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/correlation?products=ES", nil)

		requireProblem(t, rec, http.StatusBadRequest, "VALIDATION_FAILED")
	})

	t.Run("too few with data", func(t *testing.T) {
		failing := &fakeStatsService{err: services.ErrTooFewProducts}
		r := newStatsRouter(failing, nil)

		rec := doJSON(t, r, http.MethodGet, "/correlation?products=ES,NQ", nil)

		requireProblem(t, rec, http.StatusBadRequest, "VALIDATION_FAILED")
	})
}

// interface conformance
var (
	_ StatsService  = (*fakeStatsService)(nil)
	_ ExportService = (*fakeExportService)(nil)
)
