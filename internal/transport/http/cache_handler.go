package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "github.com/klefe6/almanac/internal/errors"
	"github.com/klefe6/almanac/internal/middleware"
	"github.com/klefe6/almanac/internal/websocket"
)

// CacheHandler exposes the cache admin endpoints
type CacheHandler struct {
	service      StatsService
	hub          Broadcaster
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewCacheHandler creates a new cache admin handler
func NewCacheHandler(service StatsService, hub Broadcaster, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *CacheHandler {
	return &CacheHandler{
		service:      service,
		hub:          hub,
		logger:       logger.With(slog.String("handler", "cache")),
		errorHandler: errorHandler,
	}
}

// Routes returns the cache admin routes
func (h *CacheHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.Stats)
	r.Delete("/", h.Clear)

	return r
}

// Stats handles GET /api/cache
func (h *CacheHandler) Stats(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"status": "success",
		"data":   h.service.CacheStats(),
	})
}

// Clear handles DELETE /api/cache. Connected clients are notified so
// they can refetch.
func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearCache(r.Context()); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to clear cache",
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetReqID(r.Context())))
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if h.hub != nil {
		h.hub.Broadcast(websocket.EventCacheCleared, nil)
	}

	h.logger.InfoContext(r.Context(), "cache cleared",
		slog.String("request_id", middleware.GetReqID(r.Context())))

	render.JSON(w, r, map[string]any{
		"status": "success",
		"data":   map[string]any{"cleared": true},
	})
}
