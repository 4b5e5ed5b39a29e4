// Package http wires the REST API surface of the Udara backend.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/bandungair/udara/internal/config"
	"github.com/bandungair/udara/internal/port/database"
	"github.com/bandungair/udara/internal/resilience"
	"github.com/bandungair/udara/internal/service"
	"github.com/bandungair/udara/internal/sheetcache"
)

// Pinger reports database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers bundles dependencies for all HTTP handlers.
type Handlers struct {
	cfg       *config.Config
	log       *slog.Logger
	auth      *service.AuthService
	recommend *service.RecommendService
	dashboard *service.DashboardService
	tips      *service.TipsService
	store     database.Store
	cache     *sheetcache.Orchestrator
	sheets    *sheetcache.Store
	breaker   *resilience.Breaker
	db        Pinger
	version   string
	startedAt time.Time
}

// NewHandlers creates the handler set with its dependencies.
func NewHandlers(
	cfg *config.Config,
	log *slog.Logger,
	auth *service.AuthService,
	recommend *service.RecommendService,
	dashboard *service.DashboardService,
	tips *service.TipsService,
	store database.Store,
	cache *sheetcache.Orchestrator,
	sheets *sheetcache.Store,
	breaker *resilience.Breaker,
	db Pinger,
	version string,
) *Handlers {
	return &Handlers{
		cfg:       cfg,
		log:       log,
		auth:      auth,
		recommend: recommend,
		dashboard: dashboard,
		tips:      tips,
		store:     store,
		cache:     cache,
		sheets:    sheets,
		breaker:   breaker,
		db:        db,
		version:   version,
		startedAt: time.Now(),
	}
}

// sheetKey resolves the worksheet to read, falling back to the configured
// default spreadsheet when the request does not name one.
func (h *Handlers) sheetKey(spreadsheetID, worksheet string) (sheetcache.Key, bool) {
	if spreadsheetID == "" {
		spreadsheetID = h.cfg.Sheets.DefaultSheetID
	}
	if worksheet == "" {
		worksheet = h.cfg.Sheets.DefaultWorksheet
	}
	if spreadsheetID == "" {
		return sheetcache.Key{}, false
	}
	return sheetcache.Key{SpreadsheetID: spreadsheetID, Worksheet: worksheet}, true
}

// Health reports service status including database connectivity and the
// LLM circuit breaker state.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	overall := "ok"
	dbStatus := "ok"
	status := http.StatusOK
	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			overall = "degraded"
			dbStatus = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, status, map[string]any{
		"status":         overall,
		"version":        h.version,
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
		"database":       dbStatus,
		"llm_breaker":    h.breaker.State(),
	})
}
