package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lv-ledger/internal/accounts"
	"lv-ledger/internal/auth"
	"lv-ledger/internal/config"
	"lv-ledger/internal/cronrunner"
	"lv-ledger/internal/db"
	"lv-ledger/internal/events"
	"lv-ledger/internal/health"
	"lv-ledger/internal/httpserver"
	"lv-ledger/internal/journal"
	"lv-ledger/internal/ledger"
	"lv-ledger/internal/logger"
	"lv-ledger/internal/metrics"
	"lv-ledger/internal/ratelimit"
	"lv-ledger/internal/settings"
	"lv-ledger/internal/trades"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const visitorIdle = 3 * time.Minute

func main() {
	startedAt := time.Now()
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal(err)
	}
	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zl.Sync() }()

	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := db.OpenStore(ctx, cfg)
	if err != nil {
		zl.Fatal("open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer st.Close()

	m := metrics.New()
	bus := events.NewBus()
	engineOpts := []ledger.Option{ledger.WithMetrics(m), ledger.WithPublisher(bus)}
	if cfg.Journal.Path != "" {
		j, err := journal.NewSQLite(cfg.Journal.Path)
		if err != nil {
			zl.Fatal("open journal", zap.String("path", cfg.Journal.Path), zap.Error(err))
		}
		defer j.Close()
		engineOpts = append(engineOpts, ledger.WithJournal(j))
	}
	engine := ledger.NewEngine(st, zl.Named("ledger"), engineOpts...)

	accountSvc := accounts.NewService(st, zl.Named("accounts"), accounts.WithCodeAttempts(cfg.LoginCode.Attempts))
	if cfg.BootstrapAdmin() {
		acct, created, err := accountSvc.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password)
		if err != nil {
			zl.Fatal("bootstrap admin", zap.Error(err))
		}
		zl.Info("admin account ready", zap.Int64("account_id", acct.ID), zap.Bool("created", created))
	}
	authSvc := auth.NewService(st, cfg.JWT.Issuer, []byte(cfg.JWT.Secret), cfg.JWT.TTL)
	tradeSvc := trades.NewService(st, zl.Named("trades"), trades.WithMetrics(m), trades.WithPublisher(bus))
	settingsSvc := settings.NewService(st, zl.Named("settings"))

	cron := cronrunner.New(zl.Named("cron"), ctx)
	limiter, err := newLimiter(ctx, cfg, zl, cron)
	if err != nil {
		zl.Fatal("rate limiter", zap.Error(err))
	}
	if c, ok := limiter.(io.Closer); ok {
		defer c.Close()
	}

	router := httpserver.NewRouter(httpserver.RouterDeps{
		AuthHandler:     auth.NewHandler(authSvc),
		AccountsHandler: accounts.NewHandler(accountSvc),
		TradesHandler:   trades.NewHandler(tradeSvc),
		LedgerHandler:   ledger.NewHandler(engine),
		SettingsHandler: settings.NewHandler(settingsSvc),
		AuthService:     authSvc,
		EventsWSHandler: httpserver.NewEventsWSHandler(bus, authSvc, cfg.WS.Origin, zl.Named("ws")),
		Limiter:         limiter,
		Metrics:         m,
		HealthHandler:   health.NewHandler(st, cfg.Store.Driver, startedAt),
		Logger:          zl.Named("http"),
	})
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	cron.Start()
	defer cron.Stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zl.Info("server listening",
		zap.String("addr", cfg.HTTP.Addr),
		zap.String("store", cfg.Store.Driver),
		zap.String("rate_limit", cfg.RateLimit.Backend),
		zap.Bool("journal", cfg.Journal.Path != ""),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zl.Fatal("listen", zap.Error(err))
	}
	zl.Info("server stopped")
}

// newLimiter builds the configured backend. The in-memory bucket is pruned on
// the cron schedule; Redis keys expire on their own.
func newLimiter(ctx context.Context, cfg config.Config, zl *zap.Logger, cron *cronrunner.Runner) (ratelimit.Limiter, error) {
	if cfg.RateLimit.Backend == config.RateLimitRedis {
		rl := ratelimit.NewRedis(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := rl.Ping(pingCtx); err != nil {
			zl.Warn("redis unreachable at startup, requests pass until it recovers", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		return rl, nil
	}
	mem := ratelimit.NewMemory(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	_, err := cron.Add("prune-visitors", cfg.Cron.PruneSpec, func(context.Context) {
		if n := mem.Prune(visitorIdle); n > 0 {
			zl.Debug("pruned rate limit visitors", zap.Int("removed", n))
		}
	})
	if err != nil {
		return nil, err
	}
	return mem, nil
}
