// Package datadog implements a Datadog backend for the internal/metrics
// package.
//
// The backend buffers samples in memory, submits them on a periodic
// Flush() ticker, and flushes one final time on Close(). Short pipeline
// runs therefore still get a tail submission, and long runs get a time
// series instead of a single spike at exit.
//
// Concurrency model:
//   - pipeline goroutines call IncCounter/ObserveHistogram at any time
//   - Flush snapshots and resets buffers under a mutex, then submits
//     out of lock
//   - the flush loop calls Flush() periodically; Close() stops the loop
package datadog

import (
	"context"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"retaildw/internal/metrics"
)

// Options controls Datadog backend configuration.
type Options struct {
	// JobName becomes tag "job:<name>" on every metric. Defaults to
	// "retaildw".
	JobName string

	// Tags are extra Datadog tags (e.g. []string{"env:prod"}).
	Tags []string

	// FlushEvery controls how often buffered metrics are submitted.
	// Defaults to 60 seconds.
	FlushEvery time.Duration

	// Unexported test seams. Production code never sets them; tests use
	// them to avoid real network submission and nondeterministic clocks.
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter metricsSubmitter
}

// metricsSubmitter is the minimal slice of the Datadog SDK the backend
// needs, so tests can substitute a fake instead of doing real HTTP.
type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// Backend implements metrics.Backend for Datadog.
type Backend struct {
	api metricsSubmitter
	ctx context.Context

	flushEvery time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}

	baseTags []string

	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker

	mu sync.Mutex

	stageCounts     map[string]float64 // stage\x00status -> count
	rowCounts       map[string]float64 // table -> rows
	checkCounts     map[string]float64 // stage\x00status -> count
	durationSamples map[string][]float64
}

func resolveEnvTag() string {
	if v := strings.TrimSpace(os.Getenv("ENV")); v != "" {
		return "env:" + v
	}
	if v := strings.TrimSpace(os.Getenv("DD_ENV")); v != "" {
		return "env:" + v
	}
	return "env:unknown"
}

// NewBackend constructs a Datadog backend using the official client.
// Credentials come from the standard DD_API_KEY/DD_APP_KEY environment;
// network errors surface from Flush(), not construction.
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	job := opts.JobName
	if job == "" {
		job = "retaildw"
	}

	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 60 * time.Second
	}

	baseTags := make([]string, 0, 2+len(opts.Tags))
	baseTags = append(baseTags, resolveEnvTag(), "job:"+job)
	baseTags = append(baseTags, opts.Tags...)

	nowFn := opts.now
	if nowFn == nil {
		nowFn = time.Now
	}
	newTicker := opts.newTicker
	if newTicker == nil {
		newTicker = time.NewTicker
	}

	submitter := opts.submitter
	if submitter == nil {
		cfg := dd.NewConfiguration()
		client := dd.NewAPIClient(cfg)
		submitter = datadogV2.NewMetricsApi(client)
	}

	b := &Backend{
		api:        submitter,
		ctx:        dd.NewDefaultContext(parent),
		flushEvery: flushEvery,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),

		baseTags: baseTags,

		now:       nowFn,
		newTicker: newTicker,

		stageCounts:     make(map[string]float64),
		rowCounts:       make(map[string]float64),
		checkCounts:     make(map[string]float64),
		durationSamples: make(map[string][]float64),
	}

	go b.loop()
	return b, nil
}

func (b *Backend) loop() {
	defer close(b.doneCh)

	t := b.newTicker(b.flushEvery)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			_ = b.Flush()
		case <-b.stopCh:
			return
		}
	}
}

// Close stops the background flush loop and performs one final Flush().
// Close once; a second call panics on the closed stop channel.
func (b *Backend) Close() error {
	close(b.stopCh)
	<-b.doneCh
	return b.Flush()
}

// IncCounter implements metrics.Backend. Unknown metric names are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch name {
	case metrics.StageTotal:
		b.stageCounts[pairKey(labels["stage"], labels["status"])] += delta

	case metrics.RowsTotal:
		tbl := labels["table"]
		if tbl == "" {
			return
		}
		b.rowCounts[tbl] += delta

	case metrics.ChecksTotal:
		b.checkCounts[pairKey(labels["stage"], labels["status"])] += delta
	}
}

// ObserveHistogram implements metrics.Backend. Unknown metric names are
// ignored.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if value < 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if name == metrics.StageDurationSeconds {
		k := pairKey(labels["stage"], labels["status"])
		b.durationSamples[k] = append(b.durationSamples[k], value)
	}
}

// snapshot is the detached buffer state used to build one flush payload.
// Flush resets buffers under the lock and submits out of lock.
type snapshot struct {
	stageCounts     map[string]float64
	rowCounts       map[string]float64
	checkCounts     map[string]float64
	durationSamples map[string][]float64
}

func (b *Backend) snapshotAndReset() snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := snapshot{
		stageCounts:     b.stageCounts,
		rowCounts:       b.rowCounts,
		checkCounts:     b.checkCounts,
		durationSamples: b.durationSamples,
	}

	b.stageCounts = make(map[string]float64)
	b.rowCounts = make(map[string]float64)
	b.checkCounts = make(map[string]float64)
	b.durationSamples = make(map[string][]float64)

	return s
}

func (s snapshot) isEmpty() bool {
	return len(s.stageCounts) == 0 &&
		len(s.rowCounts) == 0 &&
		len(s.checkCounts) == 0 &&
		len(s.durationSamples) == 0
}

// Flush submits buffered metrics to Datadog and resets local buffers.
// Buffers reset even when submission fails, so a Datadog outage never
// blocks the pipeline or grows memory without bound.
func (b *Backend) Flush() error {
	snap := b.snapshotAndReset()
	if snap.isEmpty() {
		return nil
	}

	payload := datadogV2.MetricPayload{Series: b.buildSeries(snap, b.now().Unix())}
	_, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	return err
}

// buildSeries constructs the Datadog series for a snapshot at a fixed
// timestamp. Pure: no locks, no network, no clocks.
func (b *Backend) buildSeries(s snapshot, nowUnix int64) []datadogV2.MetricSeries {
	series := make([]datadogV2.MetricSeries, 0, len(s.stageCounts)+len(s.rowCounts)+len(s.checkCounts)+8)

	for k, v := range s.stageCounts {
		if v == 0 {
			continue
		}
		stage, status := splitPairKey(k)
		tags := withTags(b.baseTags, "stage:"+stage, "status:"+status)
		series = append(series, countSeries("retaildw.stage.total", v, tags, nowUnix))
	}

	for tbl, v := range s.rowCounts {
		if v == 0 {
			continue
		}
		tags := withTags(b.baseTags, "table:"+tbl)
		series = append(series, countSeries("retaildw.rows.total", v, tags, nowUnix))
	}

	for k, v := range s.checkCounts {
		if v == 0 {
			continue
		}
		stage, status := splitPairKey(k)
		tags := withTags(b.baseTags, "stage:"+stage, "status:"+status)
		series = append(series, countSeries("retaildw.checks.total", v, tags, nowUnix))
	}

	for k, samples := range s.durationSamples {
		if len(samples) == 0 {
			continue
		}
		cp := append([]float64(nil), samples...)
		sort.Float64s(cp)

		stage, status := splitPairKey(k)
		tags := withTags(b.baseTags, "stage:"+stage, "status:"+status)
		const prefix = "retaildw.stage.duration_seconds"
		series = append(series,
			gaugeSeries(prefix+".p50", percentileNearestRank(cp, 0.50), tags, nowUnix),
			gaugeSeries(prefix+".p90", percentileNearestRank(cp, 0.90), tags, nowUnix),
			gaugeSeries(prefix+".p99", percentileNearestRank(cp, 0.99), tags, nowUnix),
			gaugeSeries(prefix+".max", cp[len(cp)-1], tags, nowUnix),
			gaugeSeries(prefix+".samples", float64(len(cp)), tags, nowUnix),
		)
	}

	return series
}

func countSeries(metric string, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   datadogV2.METRICINTAKETYPE_COUNT.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

func gaugeSeries(metric string, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   datadogV2.METRICINTAKETYPE_GAUGE.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

func pairKey(a, b string) string {
	return a + "\x00" + b
}

func splitPairKey(k string) (a, b string) {
	parts := strings.SplitN(k, "\x00", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return k, "unknown"
}

func withTags(base []string, extras ...string) []string {
	out := make([]string, 0, len(base)+len(extras))
	out = append(out, base...)
	out = append(out, extras...)
	return out
}

func percentileNearestRank(s []float64, p float64) float64 {
	n := len(s)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return s[0]
	}
	if p >= 1 {
		return s[n-1]
	}
	idx := int(p*float64(n-1) + 0.5)
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return s[idx]
}

var _ metrics.Backend = (*Backend)(nil)

// ParseTagsCSV parses comma-separated tags like "env:prod,service:dw".
func ParseTagsCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
