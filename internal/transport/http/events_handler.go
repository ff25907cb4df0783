package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "github.com/klefe6/almanac/internal/errors"
	"github.com/klefe6/almanac/internal/services"
)

// EventsHandler serves the economic event calendars
type EventsHandler struct {
	service      EventService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(service EventService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *EventsHandler {
	return &EventsHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "events")),
		errorHandler: errorHandler,
	}
}

// Routes returns the event calendar routes
func (h *EventsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/types", h.Types)
	r.Get("/status", h.Status)
	r.Get("/fomc/weeks", h.FOMCWeeks)
	r.Get("/{type}/dates", h.Dates)

	return r
}

// Types handles GET /api/events/types
func (h *EventsHandler) Types(w http.ResponseWriter, r *http.Request) {
	types := h.service.Types()
	render.JSON(w, r, map[string]any{
		"status": "success",
		"data":   types,
		"count":  len(types),
	})
}

// Dates handles GET /api/events/{type}/dates. The optional year_from
// and year_to parameters bound the result by calendar year.
func (h *EventsHandler) Dates(w http.ResponseWriter, r *http.Request) {
	eventType := chi.URLParam(r, "type")

	yearFrom, ok := h.yearParam(w, r, "year_from")
	if !ok {
		return
	}
	yearTo, ok := h.yearParam(w, r, "year_to")
	if !ok {
		return
	}

	dates, err := h.service.Dates(eventType, yearFrom, yearTo)
	if err != nil {
		if errors.Is(err, services.ErrUnknownEventType) {
			h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusNotFound,
				"UNKNOWN_EVENT_TYPE",
				fmt.Sprintf("Unknown event type '%s'", eventType),
				map[string]any{"type": eventType},
			))
			return
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]any{
		"status": "success",
		"data":   dates,
		"count":  len(dates),
		"type":   eventType,
	})
}

// FOMCWeeks handles GET /api/events/fomc/weeks
func (h *EventsHandler) FOMCWeeks(w http.ResponseWriter, r *http.Request) {
	weeks := h.service.FOMCWeeks()
	render.JSON(w, r, map[string]any{
		"status": "success",
		"data":   weeks,
		"count":  len(weeks),
	})
}

// Status handles GET /api/events/status
func (h *EventsHandler) Status(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"status": "success",
		"data":   h.service.Status(),
	})
}

// yearParam reads an optional four-digit year parameter. Zero means
// unbounded.
func (h *EventsHandler) yearParam(w http.ResponseWriter, r *http.Request, param string) (int, bool) {
	value := r.URL.Query().Get(param)
	if value == "" {
		return 0, true
	}

	t, err := time.Parse("2006", value)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation(param,
			fmt.Sprintf("%s must be a four-digit year", param)))
		return 0, false
	}
	return t.Year(), true
}
