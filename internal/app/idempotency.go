package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/partsdesk/partsdesk/internal/platform/httpx"
	"github.com/partsdesk/partsdesk/internal/shared"
)

// IdempotencyHeader carries the client-chosen retry key for POST requests.
const IdempotencyHeader = "Idempotency-Key"

// IdempotencyStore claims and releases request keys.
type IdempotencyStore interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

// Idempotency rejects a replayed POST carrying an already used key with 409.
// Requests without the header pass through. A key whose request fails is
// released so the client can retry with it.
func Idempotency(store IdempotencyStore, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyHeader)
			if r.Method != http.MethodPost || key == "" || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			module := r.URL.Path
			if err := store.CheckAndInsert(r.Context(), key, module); err != nil {
				if errors.Is(err, shared.ErrIdempotencyConflict) {
					httpx.RespondError(w, "Request already processed", err)
					return
				}
				logger.Error("claim idempotency key", slog.String("path", module), slog.Any("error", err))
				httpx.RespondError(w, "Failed to check idempotency key", err)
				return
			}
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			if ww.Status() >= http.StatusBadRequest {
				if err := store.Delete(context.WithoutCancel(r.Context()), key, module); err != nil {
					logger.Warn("release idempotency key", slog.String("path", module), slog.Any("error", err))
				}
			}
		})
	}
}
