package lookups

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partsdesk/partsdesk/internal/platform/httpx"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	handler := NewHandler(slog.Default(), NewService(newMemoryRepo(), nil, nil))
	r := chi.NewRouter()
	handler.MountRoutes(r)
	return r
}

func TestHandlerCreateThenFetch(t *testing.T) {
	router := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/companies/", strings.NewReader(`{"name":"minda"}`)))
	require.Equal(t, http.StatusCreated, rr.Code)
	var created Entry
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&created))
	assert.Equal(t, "Minda", created.Name)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/companies/1", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestHandlerErrorBody(t *testing.T) {
	router := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/categories/99", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)

	var body httpx.ErrorBody
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "Failed to fetch category", body.Message)
	assert.Contains(t, body.Error, "not found")

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/categories/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
