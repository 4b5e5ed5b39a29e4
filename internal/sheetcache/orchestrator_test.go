package sheetcache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/bandungair/udara/internal/domain/reading"
	"github.com/bandungair/udara/internal/port/rowsource"
)

type fakeSource struct {
	mu    sync.Mutex
	rows  []reading.Record
	err   error
	calls int
	gate  chan struct{}
}

func (f *fakeSource) Fetch(_ context.Context, _, _ string) ([]reading.Record, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.rows, f.err
}

func (f *fakeSource) set(rows []reading.Record, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows, f.err = rows, err
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOrchestrator(src *fakeSource) (*Orchestrator, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	o := New(NewStore(), src, 30*time.Second, testLogger(), WithClock(clock.Now))
	return o, clock
}

var testKey = Key{SpreadsheetID: "sheet-1", Worksheet: "Sheet1"}

func firstValue(t *testing.T, rows []reading.Record) string {
	t.Helper()
	if len(rows) == 0 {
		t.Fatal("no rows")
	}
	v, ok := rows[0].Value("PM2.5")
	if !ok {
		t.Fatal("missing PM2.5 column")
	}
	return v.(string)
}

func TestFreshHitSkipsFetch(t *testing.T) {
	src := &fakeSource{rows: rowsOf("41")}
	o, clock := newTestOrchestrator(src)
	ctx := context.Background()

	if _, err := o.ReadThrough(ctx, testKey, false); err != nil {
		t.Fatalf("first read: %v", err)
	}
	clock.Advance(29 * time.Second)
	rows, err := o.ReadThrough(ctx, testKey, false)
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if got := src.callCount(); got != 1 {
		t.Errorf("fetch calls = %d, want 1", got)
	}
	if firstValue(t, rows) != "41" {
		t.Errorf("got %q, want cached rows", firstValue(t, rows))
	}
}

func TestStaleEntryRefetches(t *testing.T) {
	src := &fakeSource{rows: rowsOf("41")}
	o, clock := newTestOrchestrator(src)
	ctx := context.Background()

	if _, err := o.ReadThrough(ctx, testKey, false); err != nil {
		t.Fatal(err)
	}
	src.set(rowsOf("55"), nil)
	clock.Advance(31 * time.Second)

	rows, err := o.ReadThrough(ctx, testKey, false)
	if err != nil {
		t.Fatal(err)
	}
	if got := src.callCount(); got != 2 {
		t.Errorf("fetch calls = %d, want 2", got)
	}
	if firstValue(t, rows) != "55" {
		t.Errorf("got %q, want refetched rows", firstValue(t, rows))
	}
}

func TestRateLimitServesStale(t *testing.T) {
	src := &fakeSource{rows: rowsOf("41")}
	o, clock := newTestOrchestrator(src)
	ctx := context.Background()

	if _, err := o.ReadThrough(ctx, testKey, false); err != nil {
		t.Fatal(err)
	}
	clock.Advance(31 * time.Second)
	src.set(nil, &rowsource.RateLimitError{Err: errors.New("googleapi: Error 429: Quota exceeded")})

	rows, err := o.ReadThrough(ctx, testKey, false)
	if err != nil {
		t.Fatalf("expected stale fallback, got %v", err)
	}
	if firstValue(t, rows) != "41" {
		t.Errorf("got %q, want stale rows", firstValue(t, rows))
	}
}

func TestFallbackDoesNotExtendFreshness(t *testing.T) {
	src := &fakeSource{rows: rowsOf("41")}
	o, clock := newTestOrchestrator(src)
	ctx := context.Background()

	if _, err := o.ReadThrough(ctx, testKey, false); err != nil {
		t.Fatal(err)
	}
	clock.Advance(31 * time.Second)
	src.set(nil, &rowsource.RateLimitError{Err: errors.New("429")})
	if _, err := o.ReadThrough(ctx, testKey, false); err != nil {
		t.Fatal(err)
	}

	// The entry is still stale, so the next read must hit the upstream again.
	if _, err := o.ReadThrough(ctx, testKey, false); err != nil {
		t.Fatal(err)
	}
	if got := src.callCount(); got != 3 {
		t.Errorf("fetch calls = %d, want 3", got)
	}
}

func TestNonRateLimitErrorPropagates(t *testing.T) {
	src := &fakeSource{rows: rowsOf("41")}
	o, clock := newTestOrchestrator(src)
	ctx := context.Background()

	if _, err := o.ReadThrough(ctx, testKey, false); err != nil {
		t.Fatal(err)
	}
	clock.Advance(31 * time.Second)
	wantErr := errors.New("googleapi: Error 403: forbidden")
	src.set(nil, wantErr)

	if _, err := o.ReadThrough(ctx, testKey, false); !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v even with stale rows available", err, wantErr)
	}
}

func TestRateLimitWithEmptyCachePropagates(t *testing.T) {
	src := &fakeSource{err: &rowsource.RateLimitError{Err: errors.New("Quota exceeded")}}
	o, _ := newTestOrchestrator(src)

	if _, err := o.ReadThrough(context.Background(), testKey, false); err == nil {
		t.Error("expected error when rate limited with nothing cached")
	}
}

func TestForceRefreshAlwaysFetches(t *testing.T) {
	src := &fakeSource{rows: rowsOf("41")}
	o, _ := newTestOrchestrator(src)
	ctx := context.Background()

	if _, err := o.ReadThrough(ctx, testKey, false); err != nil {
		t.Fatal(err)
	}
	src.set(rowsOf("55"), nil)

	// Entry is still fresh, force must fetch anyway and overwrite.
	rows, err := o.ReadThrough(ctx, testKey, true)
	if err != nil {
		t.Fatal(err)
	}
	if got := src.callCount(); got != 2 {
		t.Errorf("fetch calls = %d, want 2", got)
	}
	if firstValue(t, rows) != "55" {
		t.Errorf("got %q, want refetched rows", firstValue(t, rows))
	}

	// And the overwrite is now served as a fresh hit.
	rows, err = o.ReadThrough(ctx, testKey, false)
	if err != nil {
		t.Fatal(err)
	}
	if got := src.callCount(); got != 2 {
		t.Errorf("fetch calls = %d, want 2", got)
	}
	if firstValue(t, rows) != "55" {
		t.Errorf("got %q, want overwritten rows", firstValue(t, rows))
	}
}

func TestConcurrentReadsShareFetch(t *testing.T) {
	src := &fakeSource{rows: rowsOf("41"), gate: make(chan struct{})}
	o, _ := newTestOrchestrator(src)

	const readers = 8
	var wg sync.WaitGroup
	errs := make(chan error, readers)
	for range readers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.ReadThrough(context.Background(), testKey, false)
			errs <- err
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(src.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}
	if got := src.callCount(); got != 1 {
		t.Errorf("fetch calls = %d, want 1 shared fetch", got)
	}
}
