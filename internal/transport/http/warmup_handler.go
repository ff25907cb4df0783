package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "github.com/klefe6/almanac/internal/errors"
	"github.com/klefe6/almanac/internal/middleware"
	"github.com/klefe6/almanac/internal/services"
	api "github.com/klefe6/almanac/pkg/contracts/api/v1"
)

// WarmupHandler controls the cache precompute job
type WarmupHandler struct {
	service      WarmupService
	validation   *middleware.ValidationMiddleware
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewWarmupHandler creates a new warmup handler
func NewWarmupHandler(service WarmupService, validation *middleware.ValidationMiddleware, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *WarmupHandler {
	return &WarmupHandler{
		service:      service,
		validation:   validation,
		logger:       logger.With(slog.String("handler", "warmup")),
		errorHandler: errorHandler,
	}
}

// Routes returns the warmup routes
func (h *WarmupHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/", h.Start)
	r.Get("/status", h.Status)
	r.Delete("/", h.Stop)

	return r
}

// Start handles POST /api/warmup. The job runs in the background;
// progress is pushed over the websocket and polled via /status.
func (h *WarmupHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req api.WarmupRequest
	if r.ContentLength != 0 {
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
			return
		}
		if err := h.validation.ValidateStruct(&req); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
	}

	jobID, err := h.service.Start(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrJobAlreadyRunning):
			h.errorHandler.HandleError(w, r, apierrors.New(
				http.StatusConflict,
				"JOB_ALREADY_RUNNING",
				"A warmup job is already running",
			))
		case errors.Is(err, services.ErrNoData):
			h.errorHandler.HandleError(w, r, apierrors.New(
				http.StatusNotFound,
				"NO_DATA",
				"No products available to warm up",
			))
		default:
			h.errorHandler.HandleError(w, r, err)
		}
		return
	}

	h.logger.InfoContext(r.Context(), "warmup job started",
		slog.String("job_id", jobID),
		slog.String("request_id", middleware.GetReqID(r.Context())))

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]any{
		"status": "success",
		"data":   map[string]any{"job_id": jobID},
	})
}

// Status handles GET /api/warmup/status
func (h *WarmupHandler) Status(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"status": "success",
		"data":   h.service.Status(),
	})
}

// Stop handles DELETE /api/warmup
func (h *WarmupHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Stop(); err != nil {
		if errors.Is(err, services.ErrJobNotRunning) {
			h.errorHandler.HandleError(w, r, apierrors.New(
				http.StatusNotFound,
				"JOB_NOT_RUNNING",
				"No warmup job is running",
			))
			return
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "warmup job canceled",
		slog.String("request_id", middleware.GetReqID(r.Context())))

	render.JSON(w, r, map[string]any{
		"status": "success",
		"data":   map[string]any{"canceled": true},
	})
}
