package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "github.com/klefe6/almanac/internal/errors"
	"github.com/klefe6/almanac/internal/middleware"
	"github.com/klefe6/almanac/internal/services"
)

// ProductsHandler handles product catalog requests
type ProductsHandler struct {
	service      ProductService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewProductsHandler creates a new products handler
func NewProductsHandler(service ProductService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ProductsHandler {
	return &ProductsHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "products")),
		errorHandler: errorHandler,
	}
}

// Routes returns the product routes
func (h *ProductsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.List)
	r.Get("/{symbol}/coverage", h.Coverage)

	return r
}

// List handles GET /api/products
func (h *ProductsHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.Products(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list products",
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetReqID(r.Context())))
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]any{
		"status": "success",
		"data":   products,
		"count":  len(products),
	})
}

// Coverage handles GET /api/products/{symbol}/coverage
func (h *ProductsHandler) Coverage(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))

	coverage, err := h.service.Coverage(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusNotFound,
				"PRODUCT_NOT_FOUND",
				fmt.Sprintf("Product '%s' not found", symbol),
				map[string]any{"product": symbol},
			))
			return
		}

		h.logger.ErrorContext(r.Context(), "failed to read coverage",
			slog.String("error", err.Error()),
			slog.String("product", symbol),
			slog.String("request_id", middleware.GetReqID(r.Context())))
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]any{
		"status": "success",
		"data":   coverage,
	})
}
