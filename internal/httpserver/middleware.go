package httpserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"lv-ledger/internal/apperr"
	"lv-ledger/internal/auth"
	"lv-ledger/internal/httputil"
	"lv-ledger/internal/metrics"
	"lv-ledger/internal/types"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

type ctxKey string

const identityKey ctxKey = "identity"

const requestIDHeader = "X-Request-ID"

// WithAuth resolves the bearer token to an Identity. The account is read on
// every request, so role changes and deletions take effect immediately.
func WithAuth(svc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			parts := strings.SplitN(authz, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], auth.TokenType) || strings.TrimSpace(parts[1]) == "" {
				w.Header().Set("WWW-Authenticate", "Bearer")
				httputil.WriteError(w, r, apperr.Unauthorized("missing bearer token"))
				return
			}
			id, err := svc.Authenticate(r.Context(), strings.TrimSpace(parts[1]))
			if err != nil {
				w.Header().Set("WWW-Authenticate", "Bearer")
				httputil.WriteError(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func IdentityFrom(r *http.Request) (auth.Identity, bool) {
	id, ok := r.Context().Value(identityKey).(auth.Identity)
	return id, ok
}

// RequireRole must run after WithAuth.
func RequireRole(svc *auth.Service, role types.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r)
			if !ok {
				httputil.WriteError(w, r, apperr.Unauthorized("unauthorized"))
				return
			}
			if !svc.Authorize(id, role) {
				httputil.WriteError(w, r, apperr.Forbidden(string(role)+" role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type identifiedFunc func(w http.ResponseWriter, r *http.Request, id auth.Identity)

func identified(fn identifiedFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r)
		if !ok {
			httputil.WriteError(w, r, apperr.Unauthorized("unauthorized"))
			return
		}
		fn(w, r, id)
	}
}

// RequestLogger logs one line per request and records its latency under the
// matched route pattern.
func RequestLogger(log *zap.Logger, m *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := r.Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = ulid.Make().String()
			}
			w.Header().Set(requestIDHeader, reqID)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ctx := httputil.WithErrorSlot(r.Context())
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rctx := chi.RouteContext(ctx); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			elapsed := time.Since(start)
			m.ObserveHTTP(r.Method, route, status, elapsed)

			fields := []zap.Field{
				zap.String("request_id", reqID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", route),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", elapsed),
			}
			if err := httputil.RecordedError(ctx); err != nil {
				log.Error("request failed", append(fields, zap.Error(err))...)
				return
			}
			log.Info("request", fields...)
		})
	}
}
