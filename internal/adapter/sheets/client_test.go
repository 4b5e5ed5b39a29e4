package sheets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bandungair/udara/internal/port/rowsource"
)

func TestFetchParsesRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Path; got != "/v4/spreadsheets/sheet-1/values/Sheet1" {
			t.Errorf("path = %q", got)
		}
		if got := r.URL.Query().Get("key"); got != "test-key" {
			t.Errorf("key = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"range": "Sheet1!A1:C3",
			"values": [
				[" PM2.5 ", "PM10", "Location"],
				["56,82", 40.1, "Bandung"],
				["33"]
			]
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", 5*time.Second)
	records, err := c.Fetch(context.Background(), "sheet-1", "Sheet1")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}

	if v, _ := records[0].Value("PM2.5"); v != "56,82" {
		t.Errorf("PM2.5 = %v, want header trimmed and value kept", v)
	}
	if v, _ := records[0].Value("PM10"); v != 40.1 {
		t.Errorf("PM10 = %v, want 40.1", v)
	}

	// Short rows are padded so every record has the full header.
	if v, ok := records[1].Value("Location"); !ok || v != "" {
		t.Errorf("short row Location = %v (%v), want empty string", v, ok)
	}
}

func TestFetchHeaderOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"values": [["PM2.5", "PM10"]]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", 5*time.Second)
	records, err := c.Fetch(context.Background(), "s", "w")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("len(records) = %d, want 0", len(records))
	}
}

func TestFetchRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"code": 429, "message": "Quota exceeded for quota metric 'Read requests'", "status": "RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", 5*time.Second)
	_, err := c.Fetch(context.Background(), "s", "w")
	if err == nil {
		t.Fatal("expected error")
	}
	if !rowsource.IsRateLimited(err) {
		t.Errorf("err = %v, want rate-limit classification", err)
	}
}

func TestFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": {"code": 403, "message": "The caller does not have permission", "status": "PERMISSION_DENIED"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", 5*time.Second)
	_, err := c.Fetch(context.Background(), "s", "w")
	if err == nil {
		t.Fatal("expected error")
	}
	if rowsource.IsRateLimited(err) {
		t.Errorf("403 must not be classified as rate limiting: %v", err)
	}
}
