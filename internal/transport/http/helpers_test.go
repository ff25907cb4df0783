package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	apierrors "github.com/klefe6/almanac/internal/errors"
	"github.com/klefe6/almanac/internal/middleware"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testDeps bundles the shared handler dependencies the tests wire up.
type testDeps struct {
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	validation   *middleware.ValidationMiddleware
	query        *middleware.QueryParamValidator
}

func newTestDeps() testDeps {
	logger := discardLogger()
	eh := apierrors.NewErrorHandler(logger, false)
	return testDeps{
		logger:       logger,
		errorHandler: eh,
		validation:   middleware.NewValidationMiddleware(logger, eh),
		query:        middleware.NewQueryParamValidator(logger, eh),
	}
}

// doJSON runs one request through the router. A non-nil body is sent as
// JSON.
func doJSON(t *testing.T, router chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// decodeBody unmarshals the response body into a generic map. Works for
// both success envelopes and problem documents.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

// requireProblem asserts a problem+json response with the given HTTP
// status and error code, and returns the decoded document.
func requireProblem(t *testing.T, rec *httptest.ResponseRecorder, status int, errorCode string) map[string]any {
	t.Helper()

	require.Equal(t, status, rec.Code, "body: %s", rec.Body.String())
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	body := decodeBody(t, rec)
	require.Equal(t, errorCode, body["error_code"])
	return body
}

// requireSuccess asserts a 2xx success envelope and returns its data
// member.
func requireSuccess(t *testing.T, rec *httptest.ResponseRecorder) any {
	t.Helper()

	require.GreaterOrEqual(t, rec.Code, http.StatusOK, "body: %s", rec.Body.String())
	require.Less(t, rec.Code, http.StatusMultipleChoices, "body: %s", rec.Body.String())

	body := decodeBody(t, rec)
	require.Equal(t, "success", body["status"])
	return body["data"]
}
