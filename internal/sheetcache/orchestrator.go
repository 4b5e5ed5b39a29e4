package sheetcache

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bandungair/udara/internal/adapter/otel"
	"github.com/bandungair/udara/internal/domain/reading"
	"github.com/bandungair/udara/internal/port/rowsource"
)

// Orchestrator reads worksheet rows through the store. Fresh entries are
// served without touching the upstream; misses, stale entries, and forced
// refreshes fetch. When the upstream rate-limits and a previous entry exists,
// the old rows are served instead of the error. The entry's fetch time is
// only ever advanced by a successful fetch.
type Orchestrator struct {
	store   *Store
	source  rowsource.Source
	ttl     time.Duration
	now     func() time.Time
	metrics *otel.Metrics
	log     *slog.Logger
	group   singleflight.Group
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithMetrics attaches metric instruments.
func WithMetrics(m *otel.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func New(store *Store, source rowsource.Source, ttl time.Duration, log *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:  store,
		source: source,
		ttl:    ttl,
		now:    time.Now,
		log:    log,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ReadThrough returns the rows for key. With forceRefresh the freshness check
// is skipped and the upstream is always called. Concurrent non-forced readers
// of the same key share a single fetch.
func (o *Orchestrator) ReadThrough(ctx context.Context, key Key, forceRefresh bool) ([]reading.Record, error) {
	if forceRefresh {
		o.metrics.AddCacheMiss(ctx)
		return o.refresh(ctx, key)
	}

	if e, ok := o.store.Get(key); ok && e.Fresh(o.now(), o.ttl) {
		o.metrics.AddCacheHit(ctx)
		return e.Rows, nil
	}
	o.metrics.AddCacheMiss(ctx)

	v, err, _ := o.group.Do(key.String(), func() (any, error) {
		// A fetch that completed while this caller queued may have made the
		// entry fresh again.
		if e, ok := o.store.Get(key); ok && e.Fresh(o.now(), o.ttl) {
			return e.Rows, nil
		}
		return o.refresh(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return v.([]reading.Record), nil
}

// Clear drops all cached entries.
func (o *Orchestrator) Clear() {
	o.store.Clear()
}

func (o *Orchestrator) refresh(ctx context.Context, key Key) ([]reading.Record, error) {
	start := o.now()
	rows, err := o.source.Fetch(ctx, key.SpreadsheetID, key.Worksheet)
	o.metrics.RecordFetchDuration(ctx, time.Since(start).Seconds())
	if err != nil {
		o.metrics.AddFetchError(ctx)
		if rowsource.IsRateLimited(err) {
			if e, ok := o.store.Get(key); ok {
				o.metrics.AddStaleFallback(ctx)
				o.log.WarnContext(ctx, "upstream rate limited, serving stale rows",
					"key", key.String(),
					"age", o.now().Sub(e.FetchedAt).String(),
					"error", err)
				return e.Rows, nil
			}
		}
		o.log.ErrorContext(ctx, "worksheet fetch failed", "key", key.String(), "error", err)
		return nil, err
	}
	o.store.Put(key, rows, o.now())
	o.log.DebugContext(ctx, "worksheet fetched", "key", key.String(), "rows", len(rows))
	return rows, nil
}
