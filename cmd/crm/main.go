package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"github.com/boddenberg/agency-crm-go/internal/config"
	"github.com/boddenberg/agency-crm-go/internal/domain"
	"github.com/boddenberg/agency-crm-go/internal/format"
	"github.com/boddenberg/agency-crm-go/internal/handler"
	"github.com/boddenberg/agency-crm-go/internal/infra/cache"
	"github.com/boddenberg/agency-crm-go/internal/infra/memstore"
	"github.com/boddenberg/agency-crm-go/internal/infra/notify"
	"github.com/boddenberg/agency-crm-go/internal/infra/observability"
	"github.com/boddenberg/agency-crm-go/internal/infra/resilience"
	"github.com/boddenberg/agency-crm-go/internal/infra/supabase"
	"github.com/boddenberg/agency-crm-go/internal/jobs"
	"github.com/boddenberg/agency-crm-go/internal/port"
	"github.com/boddenberg/agency-crm-go/internal/service"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()
	credsPath := config.CredentialsPath()
	saved, err := config.LoadCredentials(credsPath)
	source := cfg.Apply(saved)

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()
	if err != nil {
		logger.Warn("ignoring unreadable credentials file", zap.String("path", credsPath), zap.Error(err))
	}

	loc := format.Location(cfg.Timezone)
	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("timezone", loc.String()),
		zap.Bool("use_supabase", cfg.UseSupabase),
		zap.String("credentials_source", source),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("write_timeout", cfg.WriteTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.String("resync_schedule", cfg.ResyncSchedule),
	)

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(cfg.OTLPEndpoint, "agency-crm")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdownTracer(context.Background())

	// --- Error reporting ---
	sentryClient, err := observability.NewSentryClient(cfg.SentryDSN, cfg.Environment, cfg.Release)
	if err != nil {
		logger.Warn("sentry disabled", zap.Error(err))
	}
	reporter := observability.NewSentryReporter(sentryClient, logger)
	defer reporter.Flush(2 * time.Second)

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
		WriteTimeout:   cfg.WriteTimeout,
	}
	cb := resilience.NewCircuitBreaker("supabase", logger)
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	newStore := func(url, key string) port.RecordStore {
		if !cfg.UseSupabase {
			logger.Warn("USE_SUPABASE=false: data lives in memory and is lost on restart")
			return memstore.New()
		}
		logger.Info("using Supabase as data backend", zap.String("supabase_url", url))
		return supabase.NewClient(httpClient, url, key, cb, resilienceCfg, logger)
	}

	// --- Auth ---
	authSvc := service.NewAuthService(cfg.OwnerPasswordHash, cfg.JWTSecret, cfg.JWTAccessTTL, logger)
	if !authSvc.Enabled() {
		logger.Warn("auth disabled: set OWNER_PASSWORD_HASH and JWT_SECRET to require login")
	}

	// --- Board notifications ---
	checks := map[string]port.Pinger{}
	var publisher *notify.RedisPublisher
	if cfg.RedisURL != "" {
		publisher, err = notify.NewRedisPublisher(cfg.RedisURL, cfg.BoardChannel, logger)
		if err != nil {
			logger.Warn("board notifications disabled", zap.Error(err))
		} else {
			checks["redis"] = publisher
			defer publisher.Close()
		}
	}

	// --- Setup ---
	configured := source != "" || !cfg.UseSupabase
	setupSvc := service.NewSetupService(
		domain.SetupStatus{Configured: configured, Source: source, URL: cfg.SupabaseURL},
		func(ctx context.Context, url, key string) error {
			return supabase.NewClient(httpClient, url, key, resilience.NewCircuitBreaker("supabase-setup", logger), resilienceCfg, logger).Ping(ctx)
		},
		func(url, key string) error {
			return config.SaveCredentials(credsPath, config.Credentials{URL: url, Key: key})
		},
		logger,
	)

	deps := handler.Deps{
		Auth:    authSvc,
		Setup:   setupSvc,
		Metrics: metrics,
		Checks:  checks,
		Logger:  logger,
	}
	router := handler.NewSwappable(handler.NewRouter(deps))
	if !configured {
		logger.Warn("store not configured: waiting for POST /v1/setup", zap.Strings("missing", cfg.MissingStore()))
	}

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// --- Workspace (after setup when needed) ---
	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()

	scheduler := jobs.NewScheduler(loc, logger)
	wsReady := make(chan *service.Workspace, 1)
	go func() {
		select {
		case <-setupSvc.Ready():
		case <-runCtx.Done():
			return
		}
		url, key := cfg.SupabaseURL, cfg.SupabaseKey
		if u, k := setupSvc.Credentials(); u != "" {
			url, key = u, k
		}

		dashCache := cache.New[*domain.DashboardSummary](cfg.CacheTTL)
		wsDeps := service.WorkspaceDeps{
			Store:      newStore(url, key),
			Reporter:   reporter,
			Cache:      dashCache,
			Metrics:    metrics,
			Resilience: resilienceCfg,
			Location:   loc,
			Logger:     logger,
		}
		if publisher != nil {
			wsDeps.Publisher = publisher
		}
		ws := service.NewWorkspace(wsDeps)

		loadCtx, cancel := context.WithTimeout(runCtx, 30*time.Second)
		if err := ws.Load(loadCtx); err != nil {
			logger.Error("initial load failed, serving empty state until the next resync", zap.Error(err))
		}
		cancel()

		if cfg.ResyncSchedule != "" {
			if err := scheduler.ScheduleResync(cfg.ResyncSchedule, ws, 30*time.Second); err != nil {
				logger.Error("resync not scheduled", zap.Error(err))
			}
		}
		scheduler.Start()

		if publisher != nil {
			go func() {
				err := publisher.Subscribe(runCtx, func(evt domain.BoardEvent) {
					if evt.Origin == ws.Origin() {
						return
					}
					logger.Debug("board changed elsewhere, reloading", zap.String("kind", evt.Kind), zap.String("lead_id", evt.LeadID))
					ctx, cancel := context.WithTimeout(runCtx, 30*time.Second)
					defer cancel()
					_ = ws.Load(ctx)
				})
				if err != nil && runCtx.Err() == nil {
					logger.Warn("board subscription ended", zap.Error(err))
				}
			}()
		}

		deps.Workspace = ws
		router.Swap(handler.NewRouter(deps))
		logger.Info("workspace ready", zap.Uint64("revision", ws.Revision()))
		wsReady <- ws
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}
	stopRun()
	scheduler.Stop(ctx)

	select {
	case ws := <-wsReady:
		if err := ws.Flush(ctx); err != nil {
			logger.Warn("background writes still pending at exit", zap.Error(err))
		}
	default:
	}

	logger.Info("server stopped")
}
