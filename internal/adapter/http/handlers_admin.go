package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bandungair/udara/internal/middleware"
)

// AdminDashboard handles GET /api/v1/admin/dashboard with operational stats.
func (h *Handlers) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	total, admins, err := h.store.CountUsers(r.Context())
	if err != nil {
		writeDomainError(w, err, "stats unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"users": map[string]int{
			"total":  total,
			"admins": admins,
		},
		"cache": map[string]any{
			"worksheets": h.sheets.Len(),
		},
		"llm_breaker": h.breaker.State(),
		"version":     h.version,
	})
}

// ListUsers handles GET /api/v1/admin/users.
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		writeDomainError(w, err, "users unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"users": users,
		"total": len(users),
	})
}

// DeleteUser handles DELETE /api/v1/admin/users/{id}.
func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if claims := middleware.UserFromContext(r.Context()); claims != nil && claims.ID == id {
		writeError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}
	if err := h.store.DeleteUser(r.Context(), id); err != nil {
		writeDomainError(w, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

// ClearCache handles POST /api/v1/admin/cache/clear, dropping all cached
// worksheet data so the next reads hit the upstream.
func (h *Handlers) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.cache.Clear()
	writeJSON(w, http.StatusOK, map[string]string{"message": "worksheet cache cleared"})
}

// RefreshSheet handles POST /api/v1/admin/cache/refresh, forcing a fetch of
// the given worksheet regardless of freshness.
func (h *Handlers) RefreshSheet(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[sheetsRequest](w, r)
	if !ok {
		return
	}
	key, ok := h.sheetKey(req.SpreadsheetID, req.WorksheetName)
	if !ok {
		writeError(w, http.StatusBadRequest, "spreadsheet_id is required")
		return
	}

	rows, err := h.cache.ReadThrough(r.Context(), key, true)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "worksheet refreshed",
		"rows":    len(rows),
	})
}
