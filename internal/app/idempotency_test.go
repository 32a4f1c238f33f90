package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/partsdesk/partsdesk/internal/shared"
)

type memoryKeys struct {
	claimed  map[string]bool
	released int
	claimErr error
}

func (m *memoryKeys) CheckAndInsert(_ context.Context, key, module string) error {
	if m.claimErr != nil {
		return m.claimErr
	}
	if m.claimed[module+key] {
		return shared.ErrIdempotencyConflict
	}
	m.claimed[module+key] = true
	return nil
}

func (m *memoryKeys) Delete(_ context.Context, key, module string) error {
	delete(m.claimed, module+key)
	m.released++
	return nil
}

func post(h http.Handler, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`))
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIdempotencyRejectsReplay(t *testing.T) {
	keys := &memoryKeys{claimed: map[string]bool{}}
	calls := 0
	h := Idempotency(keys, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	assert.Equal(t, http.StatusCreated, post(h, "/api/sales", "k1").Code)
	replay := post(h, "/api/sales", "k1")
	assert.Equal(t, http.StatusConflict, replay.Code)
	assert.Contains(t, replay.Body.String(), "Request already processed")
	assert.Equal(t, http.StatusCreated, post(h, "/api/purchases", "k1").Code)
	assert.Equal(t, http.StatusCreated, post(h, "/api/sales", "").Code)
	assert.Equal(t, http.StatusCreated, post(h, "/api/sales", "").Code)
	assert.Equal(t, 4, calls)
}

func TestIdempotencyStoreFailureIsNotReplay(t *testing.T) {
	keys := &memoryKeys{claimed: map[string]bool{}, claimErr: errors.New("idempotency: claim key: connection refused")}
	calls := 0
	h := Idempotency(keys, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	rec := post(h, "/api/sales", "k3")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to check idempotency key")
	assert.NotContains(t, rec.Body.String(), "Request already processed")
	assert.Zero(t, calls)
}

func TestIdempotencyReleasesFailedRequest(t *testing.T) {
	keys := &memoryKeys{claimed: map[string]bool{}}
	status := http.StatusBadRequest
	h := Idempotency(keys, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	assert.Equal(t, http.StatusBadRequest, post(h, "/api/sales", "k2").Code)
	assert.Equal(t, 1, keys.released)

	status = http.StatusCreated
	assert.Equal(t, http.StatusCreated, post(h, "/api/sales", "k2").Code)
}

func TestIdempotencyIgnoresReads(t *testing.T) {
	keys := &memoryKeys{claimed: map[string]bool{}}
	h := Idempotency(keys, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	for range 2 {
		req := httptest.NewRequest(http.MethodGet, "/api/sales", nil)
		req.Header.Set(IdempotencyHeader, "k3")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Empty(t, keys.claimed)
}
