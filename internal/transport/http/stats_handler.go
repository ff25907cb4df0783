package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "github.com/klefe6/almanac/internal/errors"
	"github.com/klefe6/almanac/internal/middleware"
	"github.com/klefe6/almanac/internal/services"
	api "github.com/klefe6/almanac/pkg/contracts/api/v1"
	"github.com/klefe6/almanac/pkg/contracts/domain"
)

// StatsHandler handles the statistics endpoints. Every computation has
// a POST form carrying the full request body (including filter sets)
// and a GET form covering the scalar parameters for quick queries and
// exports.
type StatsHandler struct {
	service      StatsService
	export       ExportService
	validation   *middleware.ValidationMiddleware
	query        *middleware.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(service StatsService, export ExportService, validation *middleware.ValidationMiddleware, query *middleware.QueryParamValidator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *StatsHandler {
	return &StatsHandler{
		service:      service,
		export:       export,
		validation:   validation,
		query:        query,
		logger:       logger.With(slog.String("handler", "stats")),
		errorHandler: errorHandler,
	}
}

// Routes returns the statistics routes
func (h *StatsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Route("/hourly", func(r chi.Router) {
		r.Post("/", h.Hourly)
		r.Get("/", h.HourlyQuery)
		r.Get("/export", h.HourlyExport)
	})
	r.Route("/minute", func(r chi.Router) {
		r.Post("/", h.Minute)
		r.Get("/", h.MinuteQuery)
		r.Get("/export", h.MinuteExport)
	})
	r.Route("/day-of-week", func(r chi.Router) {
		r.Post("/", h.DayOfWeek)
		r.Get("/", h.DayOfWeekQuery)
		r.Get("/export", h.DayOfWeekExport)
	})
	r.Route("/monthly", func(r chi.Router) {
		r.Post("/", h.Monthly)
		r.Get("/", h.MonthlyQuery)
		r.Get("/export", h.MonthlyExport)
	})

	r.Post("/profile", h.Profile)
	r.Get("/profile", h.ProfileQuery)
	r.Post("/vol-curve", h.VolCurve)
	r.Get("/vol-curve", h.VolCurveQuery)
	r.Post("/rolling", h.Rolling)
	r.Get("/rolling", h.RollingQuery)
	r.Post("/correlation", h.Correlation)
	r.Get("/correlation", h.CorrelationQuery)

	return r
}

// Hourly handles POST /api/stats/hourly
func (h *StatsHandler) Hourly(w http.ResponseWriter, r *http.Request) {
	h.grouped(w, r, domain.GroupingHour)
}

// Minute handles POST /api/stats/minute
func (h *StatsHandler) Minute(w http.ResponseWriter, r *http.Request) {
	h.grouped(w, r, domain.GroupingMinute)
}

// DayOfWeek handles POST /api/stats/day-of-week
func (h *StatsHandler) DayOfWeek(w http.ResponseWriter, r *http.Request) {
	h.grouped(w, r, domain.GroupingDayOfWeek)
}

// Monthly handles POST /api/stats/monthly
func (h *StatsHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	h.grouped(w, r, domain.GroupingMonth)
}

// HourlyQuery handles GET /api/stats/hourly
func (h *StatsHandler) HourlyQuery(w http.ResponseWriter, r *http.Request) {
	h.groupedQuery(w, r, domain.GroupingHour)
}

// MinuteQuery handles GET /api/stats/minute
func (h *StatsHandler) MinuteQuery(w http.ResponseWriter, r *http.Request) {
	h.groupedQuery(w, r, domain.GroupingMinute)
}

// DayOfWeekQuery handles GET /api/stats/day-of-week
func (h *StatsHandler) DayOfWeekQuery(w http.ResponseWriter, r *http.Request) {
	h.groupedQuery(w, r, domain.GroupingDayOfWeek)
}

// MonthlyQuery handles GET /api/stats/monthly
func (h *StatsHandler) MonthlyQuery(w http.ResponseWriter, r *http.Request) {
	h.groupedQuery(w, r, domain.GroupingMonth)
}

// HourlyExport handles GET /api/stats/hourly/export
func (h *StatsHandler) HourlyExport(w http.ResponseWriter, r *http.Request) {
	h.groupedExport(w, r, domain.GroupingHour)
}

// MinuteExport handles GET /api/stats/minute/export
func (h *StatsHandler) MinuteExport(w http.ResponseWriter, r *http.Request) {
	h.groupedExport(w, r, domain.GroupingMinute)
}

// DayOfWeekExport handles GET /api/stats/day-of-week/export
func (h *StatsHandler) DayOfWeekExport(w http.ResponseWriter, r *http.Request) {
	h.groupedExport(w, r, domain.GroupingDayOfWeek)
}

// MonthlyExport handles GET /api/stats/monthly/export
func (h *StatsHandler) MonthlyExport(w http.ResponseWriter, r *http.Request) {
	h.groupedExport(w, r, domain.GroupingMonth)
}

func (h *StatsHandler) grouped(w http.ResponseWriter, r *http.Request, grouping domain.Grouping) {
	var req api.StatsRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !h.validFilters(w, r, req.Filters) {
		return
	}
	h.respondGrouped(w, r, grouping, req)
}

func (h *StatsHandler) groupedQuery(w http.ResponseWriter, r *http.Request, grouping domain.Grouping) {
	req, ok := h.statsQuery(w, r)
	if !ok {
		return
	}
	h.respondGrouped(w, r, grouping, req)
}

func (h *StatsHandler) respondGrouped(w http.ResponseWriter, r *http.Request, grouping domain.Grouping, req api.StatsRequest) {
	report, err := h.compute(r.Context(), grouping, req)
	if err != nil {
		h.handleStatsError(w, r, err, req.Product)
		return
	}

	render.JSON(w, r, map[string]any{
		"status": "success",
		"data":   report,
	})
}

// groupedExport computes the report and streams it as a CSV or XLSX
// attachment.
func (h *StatsHandler) groupedExport(w http.ResponseWriter, r *http.Request, grouping domain.Grouping) {
	format, err := services.ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("format", "format must be csv or xlsx"))
		return
	}

	req, ok := h.statsQuery(w, r)
	if !ok {
		return
	}

	report, err := h.compute(r.Context(), grouping, req)
	if err != nil {
		h.handleStatsError(w, r, err, req.Product)
		return
	}

	payload, err := h.export.Export(report, format)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "report exported",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("product", report.Product),
		slog.String("grouping", string(grouping)),
		slog.String("format", string(format)),
		slog.Int("bytes", len(payload)))

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.export.Filename(report, format)))
	w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	w.Write(payload)
}

// compute dispatches a grouped request to the service method for its
// grouping.
func (h *StatsHandler) compute(ctx context.Context, grouping domain.Grouping, req api.StatsRequest) (*domain.StatsReport, error) {
	switch grouping {
	case domain.GroupingHour:
		return h.service.HourlyStats(ctx, req)
	case domain.GroupingMinute:
		return h.service.MinuteStats(ctx, req)
	case domain.GroupingDayOfWeek:
		return h.service.DayOfWeekStats(ctx, req)
	case domain.GroupingMonth:
		return h.service.MonthlyStats(ctx, req)
	default:
		return nil, services.ErrInvalidGrouping
	}
}

// Profile handles POST /api/stats/profile
func (h *StatsHandler) Profile(w http.ResponseWriter, r *http.Request) {
	var req api.ProfileRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !h.validFilters(w, r, req.Filters) {
		return
	}
	h.respondProfile(w, r, req)
}

// ProfileQuery handles GET /api/stats/profile
func (h *StatsHandler) ProfileQuery(w http.ResponseWriter, r *http.Request) {
	product, ok := h.requireProduct(w, r)
	if !ok {
		return
	}
	req := api.ProfileRequest{
		Product:          product,
		DateRangeRequest: dateRangeQuery(r),
	}
	h.respondProfile(w, r, req)
}

func (h *StatsHandler) respondProfile(w http.ResponseWriter, r *http.Request, req api.ProfileRequest) {
	profile, err := h.service.DayProfile(r.Context(), req)
	if err != nil {
		h.handleStatsError(w, r, err, req.Product)
		return
	}

	render.JSON(w, r, map[string]any{
		"status": "success",
		"data":   profile,
	})
}

// VolCurve handles POST /api/stats/vol-curve
func (h *StatsHandler) VolCurve(w http.ResponseWriter, r *http.Request) {
	var req api.VolCurveRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !h.validFilters(w, r, req.Filters) {
		return
	}
	h.respondVolCurve(w, r, req)
}

// VolCurveQuery handles GET /api/stats/vol-curve
func (h *StatsHandler) VolCurveQuery(w http.ResponseWriter, r *http.Request) {
	product, ok := h.requireProduct(w, r)
	if !ok {
		return
	}
	points, ok := h.query.ValidateInt(w, r, "points", 3, 10000, 0)
	if !ok {
		return
	}
	req := api.VolCurveRequest{
		Product:          product,
		DateRangeRequest: dateRangeQuery(r),
		Points:           points,
	}
	h.respondVolCurve(w, r, req)
}

func (h *StatsHandler) respondVolCurve(w http.ResponseWriter, r *http.Request, req api.VolCurveRequest) {
	curve, err := h.service.VolCurve(r.Context(), req)
	if err != nil {
		h.handleStatsError(w, r, err, req.Product)
		return
	}

	render.JSON(w, r, map[string]any{
		"status": "success",
		"data":   curve,
	})
}

// Rolling handles POST /api/stats/rolling
func (h *StatsHandler) Rolling(w http.ResponseWriter, r *http.Request) {
	var req api.RollingRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respondRolling(w, r, req)
}

// RollingQuery handles GET /api/stats/rolling. Metrics travel as a
// comma-separated list, e.g. metrics=mean,std.
func (h *StatsHandler) RollingQuery(w http.ResponseWriter, r *http.Request) {
	product, ok := h.requireProduct(w, r)
	if !ok {
		return
	}
	window, ok := h.query.ValidateInt(w, r, "window", 1, 2500, 0)
	if !ok {
		return
	}
	if window == 0 {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("window", "window is required"))
		return
	}
	points, ok := h.query.ValidateInt(w, r, "points", 3, 10000, 0)
	if !ok {
		return
	}

	var metrics []string
	if raw := r.URL.Query().Get("metrics"); raw != "" {
		for _, m := range strings.Split(raw, ",") {
			m = strings.TrimSpace(m)
			if !domain.RollingMetric(m).Valid() {
				h.errorHandler.HandleError(w, r, apierrors.ErrValidation("metrics",
					fmt.Sprintf("unknown metric %q, must be one of: mean, std, min, max, median", m)))
				return
			}
			metrics = append(metrics, m)
		}
	}

	req := api.RollingRequest{
		Product:          product,
		DateRangeRequest: dateRangeQuery(r),
		Window:           window,
		Metrics:          metrics,
		Points:           points,
	}
	h.respondRolling(w, r, req)
}

func (h *StatsHandler) respondRolling(w http.ResponseWriter, r *http.Request, req api.RollingRequest) {
	report, err := h.service.RollingMetrics(r.Context(), req)
	if err != nil {
		h.handleStatsError(w, r, err, req.Product)
		return
	}

	render.JSON(w, r, map[string]any{
		"status": "success",
		"data":   report,
	})
}

// Correlation handles POST /api/stats/correlation
func (h *StatsHandler) Correlation(w http.ResponseWriter, r *http.Request) {
	var req api.CorrelationRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respondCorrelation(w, r, req)
}

// CorrelationQuery handles GET /api/stats/correlation. Products travel
// as a comma-separated list, e.g. products=ES,NQ,CL.
func (h *StatsHandler) CorrelationQuery(w http.ResponseWriter, r *http.Request) {
	var products []string
	for _, p := range strings.Split(r.URL.Query().Get("products"), ",") {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			products = append(products, p)
		}
	}
	if len(products) < 2 {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("products", "at least two products are required"))
		return
	}

	req := api.CorrelationRequest{
		Products:         products,
		DateRangeRequest: dateRangeQuery(r),
	}
	h.respondCorrelation(w, r, req)
}

func (h *StatsHandler) respondCorrelation(w http.ResponseWriter, r *http.Request, req api.CorrelationRequest) {
	matrix, err := h.service.Correlation(r.Context(), req)
	if err != nil {
		h.handleStatsError(w, r, err, strings.Join(req.Products, ","))
		return
	}

	render.JSON(w, r, map[string]any{
		"status": "success",
		"data":   matrix,
	})
}

// decode reads a JSON body into v and applies struct-tag validation. A
// false return means the error response has already been written.
func (h *StatsHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return false
	}
	if err := h.validation.ValidateStruct(v); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return false
	}
	return true
}

// validFilters applies the cross-field filter checks that struct tags
// cannot express.
func (h *StatsHandler) validFilters(w http.ResponseWriter, r *http.Request, fs domain.FilterSet) bool {
	if err := fs.Validate(); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusBadRequest,
			"VALIDATION_FAILED",
			"Request validation failed",
			err.Error(),
		))
		return false
	}
	return true
}

// statsQuery builds a grouped StatsRequest from query parameters.
// Filter sets only travel in POST bodies; the query form covers the
// scalar knobs.
func (h *StatsHandler) statsQuery(w http.ResponseWriter, r *http.Request) (api.StatsRequest, bool) {
	var req api.StatsRequest

	product, ok := h.requireProduct(w, r)
	if !ok {
		return req, false
	}
	req.Product = product
	req.DateRangeRequest = dateRangeQuery(r)

	trimPct, ok := h.query.ValidateFloat(w, r, "trim_pct", 0, 25, 0)
	if !ok {
		return req, false
	}
	req.TrimPct = trimPct

	points, ok := h.query.ValidateInt(w, r, "points", 3, 10000, 0)
	if !ok {
		return req, false
	}
	req.Points = points

	if r.URL.Query().Get("hour") != "" {
		hour, ok := h.query.ValidateInt(w, r, "hour", 0, 23, 0)
		if !ok {
			return req, false
		}
		req.Hour = &hour
	}

	return req, true
}

// requireProduct reads the product query parameter, uppercased.
func (h *StatsHandler) requireProduct(w http.ResponseWriter, r *http.Request) (string, bool) {
	product := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("product")))
	if product == "" {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("product", "product is required"))
		return "", false
	}
	return product, true
}

func dateRangeQuery(r *http.Request) api.DateRangeRequest {
	return api.DateRangeRequest{
		From: r.URL.Query().Get("from"),
		To:   r.URL.Query().Get("to"),
	}
}

// handleStatsError maps statistics service sentinels onto API errors.
func (h *StatsHandler) handleStatsError(w http.ResponseWriter, r *http.Request, err error, product string) {
	switch {
	case errors.Is(err, services.ErrInvalidTimeRange):
		h.errorHandler.HandleError(w, r, apierrors.New(
			http.StatusBadRequest, "VALIDATION_FAILED", err.Error()))

	case errors.Is(err, services.ErrHourRequired):
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation(
			"hour", "hour is required for the minute grouping"))

	case errors.Is(err, services.ErrTooFewProducts):
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation(
			"products", "at least two products are required"))

	case errors.Is(err, services.ErrInvalidGrouping):
		h.errorHandler.HandleError(w, r, apierrors.New(
			http.StatusBadRequest, "VALIDATION_FAILED", err.Error()))

	case errors.Is(err, services.ErrProductNotFound):
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusNotFound,
			"PRODUCT_NOT_FOUND",
			fmt.Sprintf("Product '%s' not found", product),
			map[string]any{"product": product},
		))

	case errors.Is(err, services.ErrNoData):
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusNotFound,
			"NO_DATA",
			"No data for the requested selection",
			map[string]any{"product": product},
		))

	default:
		h.errorHandler.HandleError(w, r, err)
	}
}
