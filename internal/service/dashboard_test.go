package service

import (
	"context"
	"testing"
	"time"

	"github.com/bandungair/udara/internal/domain/reading"
	"github.com/bandungair/udara/internal/sheetcache"
)

func newDashboardService(rows []reading.Record) *DashboardService {
	orch := sheetcache.New(sheetcache.NewStore(), &staticSource{rows: rows}, 30*time.Second, discardLogger())
	return NewDashboardService(orch)
}

var dashKey = sheetcache.Key{SpreadsheetID: "sheet-1", Worksheet: "Sheet1"}

func TestHeatmapPoints(t *testing.T) {
	rows := []reading.Record{
		sensorRow("PM2.5", "90,5", "PM10", "120", "Lat", "-6,914", "Lng", "107,609",
			"Location", "Dago", "Risk score", "0,82", "Device ID", "bdg-01"),
		sensorRow("PM2.5", "20", "PM10", "35", "Lat", "-6,95", "Lng", "107,65",
			"Location", "Buahbatu", "Risk score", "0,15"),
	}
	svc := newDashboardService(rows)

	points, err := svc.Heatmap(context.Background(), dashKey, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 2 {
		t.Fatalf("len(points) = %d, want 2", len(points))
	}

	p := points[0]
	if p.ID != 1 || p.Location != "Dago" || p.DeviceID != "bdg-01" {
		t.Errorf("point = %+v", p)
	}
	if p.Lat == nil || *p.Lat != -6.914 {
		t.Errorf("lat = %v", p.Lat)
	}
	if p.RiskLevel != "high" || p.Color != colorHigh {
		t.Errorf("risk = %q color = %q", p.RiskLevel, p.Color)
	}
	if points[1].RiskLevel != "low" || points[1].Color != colorLow {
		t.Errorf("second point risk = %q color = %q", points[1].RiskLevel, points[1].Color)
	}
}

func TestRiskLevelScoreOverridesLabel(t *testing.T) {
	// The textual label says good, but the numeric score wins.
	rows := []reading.Record{
		sensorRow("PM2.5", "90", "PM10", "120", "Status", "Baik", "Risk score", "0,75"),
	}
	svc := newDashboardService(rows)

	points, err := svc.Heatmap(context.Background(), dashKey, false)
	if err != nil {
		t.Fatal(err)
	}
	if points[0].RiskLevel != "high" {
		t.Errorf("risk = %q, want score to override the label", points[0].RiskLevel)
	}
}

func TestRiskLevelThresholds(t *testing.T) {
	score := func(v float64) *float64 { return &v }
	cases := []struct {
		score *float64
		label string
		want  string
	}{
		{score(0.7), "", "high"},
		{score(0.69), "", "moderate"},
		{score(0.4), "", "moderate"},
		{score(0.39), "", "low"},
		{nil, "Tidak Sehat (buruk)", "high"},
		{nil, "Sedang", "moderate"},
		{nil, "Baik", "low"},
		{nil, "", "moderate"},
	}
	for _, tc := range cases {
		if got := riskLevel(tc.score, tc.label); got != tc.want {
			t.Errorf("riskLevel(%v, %q) = %q, want %q", tc.score, tc.label, got, tc.want)
		}
	}
}

func TestTablePagination(t *testing.T) {
	var rows []reading.Record
	for i := 0; i < 7; i++ {
		rows = append(rows, sensorRow("PM2.5", "10"))
	}
	svc := newDashboardService(rows)
	ctx := context.Background()

	page, err := svc.Table(ctx, dashKey, 0, 3, false)
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 7 || len(page.Rows) != 3 {
		t.Errorf("total = %d rows = %d", page.Total, len(page.Rows))
	}

	page, err = svc.Table(ctx, dashKey, 6, 3, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Rows) != 1 {
		t.Errorf("tail page rows = %d, want 1", len(page.Rows))
	}

	page, err = svc.Table(ctx, dashKey, 100, 3, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Rows) != 0 {
		t.Errorf("out-of-range page rows = %d, want 0", len(page.Rows))
	}

	// Defaults kick in for nonsense parameters.
	page, err = svc.Table(ctx, dashKey, -5, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	if page.Offset != 0 || page.Limit != 50 {
		t.Errorf("offset = %d limit = %d", page.Offset, page.Limit)
	}
}

func TestStats(t *testing.T) {
	rows := []reading.Record{
		sensorRow("PM2.5", "20", "PM10", "35"),
		sensorRow("PM2.5", "56,82", "PM10", "70", "Location", "Dago"),
	}
	svc := newDashboardService(rows)

	stats, err := svc.Stats(context.Background(), dashKey, false)
	if err != nil {
		t.Fatal(err)
	}
	if stats.RowCount != 2 {
		t.Errorf("row count = %d", stats.RowCount)
	}
	if stats.Latest.PM25 == nil || *stats.Latest.PM25 != 56.82 {
		t.Errorf("latest pm25 = %v", stats.Latest.PM25)
	}
	if stats.Latest.Location != "Dago" {
		t.Errorf("location = %q", stats.Latest.Location)
	}
}

func TestStatsEmptySheet(t *testing.T) {
	svc := newDashboardService(nil)
	if _, err := svc.Stats(context.Background(), dashKey, false); err == nil {
		t.Error("expected error for empty sheet")
	}
}
