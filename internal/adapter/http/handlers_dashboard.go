package http

import (
	"errors"
	"net/http"

	"github.com/bandungair/udara/internal/domain/reading"
	"github.com/bandungair/udara/internal/service"
)

// Heatmap handles GET /api/v1/dashboard/heatmap.
func (h *Handlers) Heatmap(w http.ResponseWriter, r *http.Request) {
	key, ok := h.sheetKey(r.URL.Query().Get("spreadsheet_id"), r.URL.Query().Get("worksheet_name"))
	if !ok {
		writeError(w, http.StatusBadRequest, "spreadsheet_id is required")
		return
	}

	points, err := h.dashboard.Heatmap(r.Context(), key, queryBool(r, "force_refresh"))
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

// Table handles GET /api/v1/dashboard/table with offset/limit pagination.
func (h *Handlers) Table(w http.ResponseWriter, r *http.Request) {
	key, ok := h.sheetKey(r.URL.Query().Get("spreadsheet_id"), r.URL.Query().Get("worksheet_name"))
	if !ok {
		writeError(w, http.StatusBadRequest, "spreadsheet_id is required")
		return
	}

	page, err := h.dashboard.Table(r.Context(), key,
		queryInt(r, "offset", 0), queryInt(r, "limit", 50), queryBool(r, "force_refresh"))
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// DashboardStats handles GET /api/v1/dashboard/stats.
func (h *Handlers) DashboardStats(w http.ResponseWriter, r *http.Request) {
	key, ok := h.sheetKey(r.URL.Query().Get("spreadsheet_id"), r.URL.Query().Get("worksheet_name"))
	if !ok {
		writeError(w, http.StatusBadRequest, "spreadsheet_id is required")
		return
	}

	stats, err := h.dashboard.Stats(r.Context(), key, queryBool(r, "force_refresh"))
	if err != nil {
		if errors.Is(err, reading.ErrNoRows) {
			writeError(w, http.StatusNotFound, "worksheet has no data rows")
			return
		}
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// PublicDashboard handles GET /api/v1/dashboard/public, serving heatmap
// points from the configured default worksheet without authentication so the
// city map can render for anonymous visitors.
func (h *Handlers) PublicDashboard(w http.ResponseWriter, r *http.Request) {
	key, ok := h.sheetKey("", "")
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no default worksheet configured")
		return
	}

	points, err := h.dashboard.Heatmap(r.Context(), key, false)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"points": points,
		"total":  len(points),
	})
}

// Tips handles POST /api/v1/dashboard/tips, generating cached health tips
// for a heatmap point. The endpoint is public so the map works unauthenticated.
func (h *Handlers) Tips(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[service.TipsRequest](w, r)
	if !ok {
		return
	}

	tips, err := h.tips.Generate(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "tips generation failed")
		return
	}
	writeJSON(w, http.StatusOK, tips)
}
