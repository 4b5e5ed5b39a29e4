package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/bandungair/udara/internal/adapter/groq"
	udarahttp "github.com/bandungair/udara/internal/adapter/http"
	"github.com/bandungair/udara/internal/adapter/otel"
	"github.com/bandungair/udara/internal/adapter/postgres"
	"github.com/bandungair/udara/internal/adapter/ristretto"
	"github.com/bandungair/udara/internal/adapter/sheets"
	"github.com/bandungair/udara/internal/config"
	"github.com/bandungair/udara/internal/logger"
	"github.com/bandungair/udara/internal/middleware"
	"github.com/bandungair/udara/internal/resilience"
	"github.com/bandungair/udara/internal/service"
	"github.com/bandungair/udara/internal/sheetcache"
)

const version = "1.0.0"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := logger.New(cfg.Logging)
	slog.SetDefault(log)

	log.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"cache_ttl", cfg.Sheets.CacheTTL,
		"telemetry", cfg.Telemetry.Enabled,
	)

	ctx := context.Background()

	// --- Telemetry ---
	shutdownOtel, err := otel.Setup(ctx, cfg.Telemetry, cfg.Logging.Service, version)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOtel(shutdownCtx); err != nil {
			log.Error("telemetry shutdown", "error", err)
		}
	}()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	log.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	log.Info("migrations applied")

	store := postgres.NewStore(pool)

	tipsCache, err := ristretto.New(cfg.Cache.TipsMaxSizeMB)
	if err != nil {
		return fmt.Errorf("tips cache: %w", err)
	}
	defer tipsCache.Close()

	// --- Upstreams ---
	sheetsClient := sheets.NewClient(cfg.Sheets.BaseURL, cfg.Sheets.APIKey, cfg.Sheets.FetchTimeout)
	sheetStore := sheetcache.NewStore()
	orchestrator := sheetcache.New(sheetStore, sheetsClient, cfg.Sheets.CacheTTL, log,
		sheetcache.WithMetrics(metrics))

	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	llm := groq.NewClient(cfg.Groq.BaseURL, cfg.Groq.APIKey, cfg.Groq.Model, cfg.Groq.MaxTokens, cfg.Groq.Timeout)
	llm.SetBreaker(breaker)

	// --- Services ---
	authSvc := service.NewAuthService(store, &cfg.Auth)
	recommendSvc := service.NewRecommendService(llm, orchestrator, authSvc.HealthKey(), metrics, log)
	dashboardSvc := service.NewDashboardService(orchestrator)
	tipsSvc := service.NewTipsService(llm, tipsCache, cfg.Cache.TipsTTL, metrics, log)

	// --- HTTP ---
	handlers := udarahttp.NewHandlers(cfg, log, authSvc, recommendSvc, dashboardSvc, tipsSvc,
		store, orchestrator, sheetStore, breaker, pool, version)

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			limiter.Cleanup(10 * time.Minute)
		}
	}()

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(udarahttp.CORS(cfg.Server.CORSOrigin))
	r.Use(udarahttp.SecurityHeaders)
	r.Use(udarahttp.Logger(log))
	r.Use(otel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(limiter.Handler)
	r.Use(middleware.Auth(authSvc))

	handlers.MountRoutes(r)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
		}
	}()

	<-done
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
