package http

import (
	"errors"
	"net/http"

	"github.com/bandungair/udara/internal/adapter/csvfile"
	"github.com/bandungair/udara/internal/domain"
	"github.com/bandungair/udara/internal/domain/reading"
	"github.com/bandungair/udara/internal/domain/user"
	"github.com/bandungair/udara/internal/middleware"
)

type weatherDataRequest struct {
	PM25        *float64 `json:"pm25"`
	PM10        *float64 `json:"pm10"`
	O3          *float64 `json:"o3"`
	NO2         *float64 `json:"no2"`
	SO2         *float64 `json:"so2"`
	CO          *float64 `json:"co"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	Location    string   `json:"location"`
	Timestamp   string   `json:"timestamp"`
}

// RecommendFromData handles POST /api/v1/weather/recommendation, generating
// a recommendation from sensor values supplied in the request body.
func (h *Handlers) RecommendFromData(w http.ResponseWriter, r *http.Request) {
	u, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	req, ok := readJSON[weatherDataRequest](w, r)
	if !ok {
		return
	}

	obs := reading.Observation{
		PM25:        req.PM25,
		PM10:        req.PM10,
		O3:          req.O3,
		NO2:         req.NO2,
		SO2:         req.SO2,
		CO:          req.CO,
		Temperature: req.Temperature,
		Humidity:    req.Humidity,
		Location:    req.Location,
		Timestamp:   req.Timestamp,
	}
	if obs.Location == "" {
		obs.Location = reading.DefaultLocation
	}
	if !obs.Valid() {
		writeError(w, http.StatusBadRequest, "pm25 and pm10 are required")
		return
	}

	rec, err := h.recommend.FromObservation(r.Context(), u, obs)
	if err != nil {
		writeDomainError(w, err, "recommendation failed")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type sheetsRequest struct {
	SpreadsheetID string `json:"spreadsheet_id"`
	WorksheetName string `json:"worksheet_name"`
	ForceRefresh  bool   `json:"force_refresh"`
}

// RecommendFromSheets handles POST /api/v1/weather/from-google-sheets,
// reading the latest sensor row through the worksheet cache.
func (h *Handlers) RecommendFromSheets(w http.ResponseWriter, r *http.Request) {
	u, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	req, ok := readJSON[sheetsRequest](w, r)
	if !ok {
		return
	}
	key, ok := h.sheetKey(req.SpreadsheetID, req.WorksheetName)
	if !ok {
		writeError(w, http.StatusBadRequest, "spreadsheet_id is required")
		return
	}

	rec, err := h.recommend.FromSheets(r.Context(), u, key.SpreadsheetID, key.Worksheet, req.ForceRefresh)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) || errors.Is(err, reading.ErrNoRows) {
			writeError(w, http.StatusUnprocessableEntity, "worksheet has no usable sensor rows")
			return
		}
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

const maxCSVUploadSize = 5 << 20 // 5 MB

// RecommendFromCSV handles POST /api/v1/weather/from-csv with a multipart
// "file" field holding exported sensor data.
func (h *Handlers) RecommendFromCSV(w http.ResponseWriter, r *http.Request) {
	u, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxCSVUploadSize)
	if err := r.ParseMultipartForm(maxCSVUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	rows, err := csvfile.Read(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid CSV: "+err.Error())
		return
	}

	rec, err := h.recommend.FromRecords(r.Context(), u, rows)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) || errors.Is(err, reading.ErrNoRows) {
			writeError(w, http.StatusUnprocessableEntity, "CSV has no usable sensor rows")
			return
		}
		writeDomainError(w, err, "recommendation failed")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// WeatherHealth handles GET /api/v1/weather/health, a public probe for the
// recommendation pipeline.
func (h *Handlers) WeatherHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"llm_breaker": h.breaker.State(),
		"cached_keys": h.sheets.Len(),
	})
}

// requireUser loads the full stored profile of the authenticated user so
// recommendations can use health and sensitivity data absent from the token.
func (h *Handlers) requireUser(w http.ResponseWriter, r *http.Request) (*user.User, bool) {
	claims := middleware.UserFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	u, err := h.store.GetUser(r.Context(), claims.ID)
	if err != nil {
		writeDomainError(w, err, "user not found")
		return nil, false
	}
	return u, true
}
