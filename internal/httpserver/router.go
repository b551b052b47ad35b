package httpserver

import (
	"net/http"

	"lv-ledger/internal/accounts"
	"lv-ledger/internal/auth"
	"lv-ledger/internal/health"
	"lv-ledger/internal/ledger"
	"lv-ledger/internal/metrics"
	"lv-ledger/internal/ratelimit"
	"lv-ledger/internal/settings"
	"lv-ledger/internal/trades"
	"lv-ledger/internal/types"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type RouterDeps struct {
	AuthHandler     *auth.Handler
	AccountsHandler *accounts.Handler
	TradesHandler   *trades.Handler
	LedgerHandler   *ledger.Handler
	SettingsHandler *settings.Handler
	AuthService     *auth.Service
	EventsWSHandler http.Handler
	Limiter         ratelimit.Limiter
	Metrics         *metrics.Collector
	HealthHandler   *health.Handler
	Logger          *zap.Logger
}

func NewRouter(d RouterDeps) http.Handler {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	r := chi.NewRouter()

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				origin = "*"
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Use(RequestLogger(log, d.Metrics))
	r.Use(SecurityHeaders)
	r.Use(RateLimit(d.Limiter, log))

	if d.HealthHandler != nil {
		r.Get("/health", d.HealthHandler.Ready)
		r.Get("/health/live", d.HealthHandler.Live)
	}
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", d.AccountsHandler.Register)
			r.Post("/token", d.AuthHandler.Token)
			r.With(WithAuth(d.AuthService)).Get("/me", identified(d.AuthHandler.Me))
		})
		r.Get("/app-settings", d.SettingsHandler.Get)
		if d.EventsWSHandler != nil {
			r.Get("/ws", d.EventsWSHandler.ServeHTTP)
		}

		r.Group(func(r chi.Router) {
			r.Use(WithAuth(d.AuthService))
			r.Post("/trades", identified(d.TradesHandler.Place))
			r.Get("/trades", identified(d.TradesHandler.ListOwn))
			r.Put("/trades/{id}/close", identified(d.LedgerHandler.Close))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(WithAuth(d.AuthService))
			r.Use(RequireRole(d.AuthService, types.RoleAdmin))
			r.Post("/users", d.AccountsHandler.Create)
			r.Get("/users", d.AccountsHandler.List)
			r.Put("/users/{id}", identified(d.LedgerHandler.AdjustAccount))
			r.Get("/trades", d.TradesHandler.ListAll)
			r.Put("/trades/{id}/outcome", identified(d.LedgerHandler.ForceOutcome))
			r.Post("/trades/{id}/settle", identified(d.LedgerHandler.Settle))
			r.Post("/app-settings", d.SettingsHandler.Upsert)
		})
	})
	return r
}
