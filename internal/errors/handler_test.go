package errors

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHandler(t *testing.T) *ErrorHandler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewErrorHandler(logger, false)
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandleError_APIError(t *testing.T) {
	h := testHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/products/ZZ", nil)
	rec := httptest.NewRecorder()

	h.HandleError(rec, req, NewWithDetails(http.StatusNotFound, "PRODUCT_NOT_FOUND", "product ZZ not found", "ZZ"))

	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeProblem(t, rec)
	assert.Equal(t, "/errors/product/not-found", body["type"])
	assert.Equal(t, "product ZZ not found", body["detail"])
	assert.Equal(t, "/api/products/ZZ", body["instance"])
	assert.Equal(t, "PRODUCT_NOT_FOUND", body["error_code"])
	assert.Contains(t, body, "trace_id")
}

func TestHandleError_CauseNotLeaked(t *testing.T) {
	h := testHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/stats/hourly", nil)
	rec := httptest.NewRecorder()

	err := NewWithError(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "stats computation failed",
		assert.AnError)
	h.HandleError(rec, req, err)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeProblem(t, rec)
	assert.Equal(t, "stats computation failed", body["detail"])
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}

func TestHandleError_ContextDeadline(t *testing.T) {
	h := testHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/stats/minute", nil)
	rec := httptest.NewRecorder()

	h.HandleError(rec, req, context.DeadlineExceeded)

	require.Equal(t, http.StatusGatewayTimeout, rec.Code)
	body := decodeProblem(t, rec)
	assert.Equal(t, "/errors/timeout", body["type"])
}

func TestHandleError_ValidationDetails(t *testing.T) {
	h := testHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/api/export/csv", nil)
	rec := httptest.NewRecorder()

	h.HandleError(rec, req, NewValidationErrors([]ValidationError{
		{Field: "product", Message: "is required"},
	}))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeProblem(t, rec)
	assert.Equal(t, "/errors/validation", body["type"])
	assert.Contains(t, body, "details")
}

func TestHandleError_UnclassifiedFallbacks(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"unclassified error", assert.AnError, http.StatusInternalServerError, "/errors/internal"},
		{"job conflict message", errFromString("warmup job already running"), http.StatusConflict, "/errors/job/already-running"},
	}

	h := testHandler(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			rec := httptest.NewRecorder()

			h.HandleError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeProblem(t, rec)
			assert.Equal(t, tt.wantType, body["type"])
		})
	}
}

func TestHandlePanic(t *testing.T) {
	h := testHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	rec := httptest.NewRecorder()
	h.HandlePanic(rec, req, "boom")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeProblem(t, rec)
	assert.Equal(t, "/errors/internal", body["type"])
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestHandlePanic_IncludeStackExposesPanic(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewErrorHandler(logger, true)

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	rec := httptest.NewRecorder()
	h.HandlePanic(rec, req, "boom")

	body := decodeProblem(t, rec)
	assert.Equal(t, "boom", body["panic"])
	assert.Contains(t, body, "stack")
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	h := testHandler(t)

	t.Run("not found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/nope", nil)
		rec := httptest.NewRecorder()
		h.NotFound(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		body := decodeProblem(t, rec)
		assert.Equal(t, "/errors/not-found", body["type"])
	})

	t.Run("method not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/products", nil)
		rec := httptest.NewRecorder()
		h.MethodNotAllowed(rec, req)

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		body := decodeProblem(t, rec)
		assert.Contains(t, body["detail"], "DELETE")
	})
}

type stringError string

func (e stringError) Error() string { return string(e) }

func errFromString(s string) error { return stringError(s) }
