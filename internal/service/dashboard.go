package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bandungair/udara/internal/domain/reading"
	"github.com/bandungair/udara/internal/sheetcache"
)

// Risk level thresholds for a numeric risk score in [0, 1].
const (
	riskHighThreshold     = 0.7
	riskModerateThreshold = 0.4
)

// Marker colors per risk level.
const (
	colorHigh     = "#e53935"
	colorModerate = "#fb8c00"
	colorLow      = "#43a047"
)

// HeatmapPoint is one map marker built from a sensor row.
type HeatmapPoint struct {
	ID         int      `json:"id"`
	Location   string   `json:"location"`
	Lat        *float64 `json:"lat"`
	Lng        *float64 `json:"lng"`
	PM25       *float64 `json:"pm2_5"`
	PM10       *float64 `json:"pm10"`
	AirQuality string   `json:"air_quality,omitempty"`
	RiskScore  *float64 `json:"risk_score,omitempty"`
	RiskLevel  string   `json:"risk_level"`
	Color      string   `json:"color"`
	DeviceID   string   `json:"device_id,omitempty"`
}

// TablePage is a paginated slice of raw records.
type TablePage struct {
	Rows   []reading.Record `json:"rows"`
	Total  int              `json:"total"`
	Offset int              `json:"offset"`
	Limit  int              `json:"limit"`
}

// Stats summarizes the latest observation of a worksheet.
type Stats struct {
	Latest   reading.Observation `json:"latest"`
	RowCount int                 `json:"row_count"`
}

// DashboardService builds the heatmap, table, and statistics views from
// cached worksheet rows.
type DashboardService struct {
	cache *sheetcache.Orchestrator
}

// NewDashboardService creates a DashboardService.
func NewDashboardService(cache *sheetcache.Orchestrator) *DashboardService {
	return &DashboardService{cache: cache}
}

// Heatmap returns one point per data row. Rows without coordinates still
// appear so the caller can list them; the frontend skips unmappable points.
func (s *DashboardService) Heatmap(ctx context.Context, key sheetcache.Key, forceRefresh bool) ([]HeatmapPoint, error) {
	rows, err := s.cache.ReadThrough(ctx, key, forceRefresh)
	if err != nil {
		return nil, fmt.Errorf("read worksheet: %w", err)
	}

	points := make([]HeatmapPoint, 0, len(rows))
	for i, row := range rows {
		obs := reading.Normalize(row)
		score := numericField(row, reading.VariantsRiskScore, 1.0)

		p := HeatmapPoint{
			ID:         i + 1,
			Location:   obs.Location,
			Lat:        numericField(row, reading.VariantsLatitude, 90),
			Lng:        numericField(row, reading.VariantsLongitude, 180),
			PM25:       obs.PM25,
			PM10:       obs.PM10,
			AirQuality: obs.AirQuality,
			RiskScore:  score,
			DeviceID:   obs.DeviceID,
		}
		p.RiskLevel = riskLevel(score, obs.AirQuality)
		p.Color = riskColor(p.RiskLevel)
		points = append(points, p)
	}
	return points, nil
}

// Table returns a page of raw records for tabular display. A limit of zero
// or less defaults to 50; negative offsets clamp to zero.
func (s *DashboardService) Table(ctx context.Context, key sheetcache.Key, offset, limit int, forceRefresh bool) (*TablePage, error) {
	rows, err := s.cache.ReadThrough(ctx, key, forceRefresh)
	if err != nil {
		return nil, fmt.Errorf("read worksheet: %w", err)
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	page := &TablePage{
		Rows:   []reading.Record{},
		Total:  len(rows),
		Offset: offset,
		Limit:  limit,
	}
	if offset < len(rows) {
		end := offset + limit
		if end > len(rows) {
			end = len(rows)
		}
		page.Rows = rows[offset:end]
	}
	return page, nil
}

// Stats returns the latest normalized observation and the row count.
func (s *DashboardService) Stats(ctx context.Context, key sheetcache.Key, forceRefresh bool) (*Stats, error) {
	rows, err := s.cache.ReadThrough(ctx, key, forceRefresh)
	if err != nil {
		return nil, fmt.Errorf("read worksheet: %w", err)
	}

	latest, err := reading.Latest(rows)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Latest:   reading.Normalize(latest),
		RowCount: len(rows),
	}, nil
}

// riskLevel derives the level from the numeric score when present; the
// textual air-quality label is only a fallback guess.
func riskLevel(score *float64, airQuality string) string {
	if score != nil {
		switch {
		case *score >= riskHighThreshold:
			return "high"
		case *score >= riskModerateThreshold:
			return "moderate"
		default:
			return "low"
		}
	}

	switch label := strings.ToLower(airQuality); {
	case strings.Contains(label, "unhealthy"), strings.Contains(label, "poor"),
		strings.Contains(label, "buruk"), strings.Contains(label, "bahaya"):
		return "high"
	case strings.Contains(label, "moderate"), strings.Contains(label, "sedang"):
		return "moderate"
	case strings.Contains(label, "good"), strings.Contains(label, "baik"):
		return "low"
	default:
		return "moderate"
	}
}

func riskColor(level string) string {
	switch level {
	case "high":
		return colorHigh
	case "moderate":
		return colorModerate
	default:
		return colorLow
	}
}

func numericField(r reading.Record, variants []string, expectedMax float64) *float64 {
	v := reading.Extract(r, variants, nil)
	f, ok := reading.CoerceNumeric(v, expectedMax)
	if !ok {
		return nil
	}
	return &f
}
