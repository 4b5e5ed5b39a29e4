package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "udara"

// Metrics holds all Udara metric instruments. A nil *Metrics is valid and
// records nothing, so wiring telemetry stays optional.
type Metrics struct {
	CacheHits      metric.Int64Counter
	CacheMisses    metric.Int64Counter
	StaleFallbacks metric.Int64Counter
	FetchErrors    metric.Int64Counter
	LLMRequests    metric.Int64Counter
	LLMFailures    metric.Int64Counter
	FetchDuration  metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.CacheHits, err = meter.Int64Counter("udara.sheetcache.hits",
		metric.WithDescription("Fresh cache hits served without an upstream call"))
	if err != nil {
		return nil, err
	}

	m.CacheMisses, err = meter.Int64Counter("udara.sheetcache.misses",
		metric.WithDescription("Cache misses, stale entries, and forced refreshes"))
	if err != nil {
		return nil, err
	}

	m.StaleFallbacks, err = meter.Int64Counter("udara.sheetcache.stale_fallbacks",
		metric.WithDescription("Stale rows served because the upstream rate-limited"))
	if err != nil {
		return nil, err
	}

	m.FetchErrors, err = meter.Int64Counter("udara.sheets.fetch_errors",
		metric.WithDescription("Upstream fetch failures"))
	if err != nil {
		return nil, err
	}

	m.LLMRequests, err = meter.Int64Counter("udara.llm.requests",
		metric.WithDescription("LLM completion requests"))
	if err != nil {
		return nil, err
	}

	m.LLMFailures, err = meter.Int64Counter("udara.llm.failures",
		metric.WithDescription("LLM completion failures, including parse fallbacks"))
	if err != nil {
		return nil, err
	}

	m.FetchDuration, err = meter.Float64Histogram("udara.sheets.fetch_duration_seconds",
		metric.WithDescription("Upstream fetch duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// AddCacheHit records a fresh cache hit.
func (m *Metrics) AddCacheHit(ctx context.Context) {
	if m != nil && m.CacheHits != nil {
		m.CacheHits.Add(ctx, 1)
	}
}

// AddCacheMiss records a miss, stale entry, or forced refresh.
func (m *Metrics) AddCacheMiss(ctx context.Context) {
	if m != nil && m.CacheMisses != nil {
		m.CacheMisses.Add(ctx, 1)
	}
}

// AddStaleFallback records a stale-rows fallback.
func (m *Metrics) AddStaleFallback(ctx context.Context) {
	if m != nil && m.StaleFallbacks != nil {
		m.StaleFallbacks.Add(ctx, 1)
	}
}

// AddFetchError records an upstream fetch failure.
func (m *Metrics) AddFetchError(ctx context.Context) {
	if m != nil && m.FetchErrors != nil {
		m.FetchErrors.Add(ctx, 1)
	}
}

// AddLLMRequest records an LLM completion request.
func (m *Metrics) AddLLMRequest(ctx context.Context) {
	if m != nil && m.LLMRequests != nil {
		m.LLMRequests.Add(ctx, 1)
	}
}

// AddLLMFailure records an LLM failure.
func (m *Metrics) AddLLMFailure(ctx context.Context) {
	if m != nil && m.LLMFailures != nil {
		m.LLMFailures.Add(ctx, 1)
	}
}

// RecordFetchDuration records an upstream fetch duration.
func (m *Metrics) RecordFetchDuration(ctx context.Context, seconds float64) {
	if m != nil && m.FetchDuration != nil {
		m.FetchDuration.Record(ctx, seconds)
	}
}
