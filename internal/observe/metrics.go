// Package observe provides application-wide observability primitives for
// VoxHire: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all VoxHire metrics.
const meterName = "github.com/voxhire/voxhire"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Vendor calls ---

	// VendorCallDuration tracks wall time of vendor calls through the
	// resilience layer, retries included. Use with attributes:
	//   attribute.String("target", ...), attribute.String("outcome", ...)
	VendorCallDuration metric.Float64Histogram

	// VendorCalls counts vendor calls by target and outcome ("ok",
	// "exhausted", "open", "non_retryable").
	VendorCalls metric.Int64Counter

	// --- Pipeline latency histograms ---

	// QuestionGenDuration tracks how long the question batch takes, from
	// the generation request until questions are committed.
	QuestionGenDuration metric.Float64Histogram

	// AvatarClipDuration tracks the per-question avatar pipeline: TTS,
	// render, poll, and upload. Use with attribute:
	//   attribute.String("source", "cache"|"rendered")
	AvatarClipDuration metric.Float64Histogram

	// VideoGenerationDuration tracks the whole per-interview avatar fan-out,
	// from the questions-created event until the interview opens.
	VideoGenerationDuration metric.Float64Histogram

	// --- Counters ---

	// InterviewsStarted counts interviews created by users.
	InterviewsStarted metric.Int64Counter

	// InterviewsFinished counts interviews reaching a terminal state. Use
	// with attribute: attribute.String("status", "COMPLETED"|"FAILED")
	InterviewsFinished metric.Int64Counter

	// CacheLookups counts media cache probes. Use with attributes:
	//   attribute.String("cache", "tts"|"avatar"), attribute.String("outcome", "hit"|"miss")
	CacheLookups metric.Int64Counter

	// SweeperRescues counts interviews the recovery sweeper moved out of a
	// stuck state. Use with attribute:
	//   attribute.String("rule", "video_timeout"|"processing_timeout")
	SweeperRescues metric.Int64Counter

	// --- Gauges ---

	// BreakerOpen tracks how many circuit breakers are currently open.
	// Use with attribute: attribute.String("target", ...)
	BreakerOpen metric.Int64UpDownCounter

	// ProgressSubscribers tracks live progress-stream subscriptions.
	ProgressSubscribers metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) for vendor
// API round trips.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// pipelineBuckets defines histogram bucket boundaries (in seconds) for the
// media pipelines, which poll slow render jobs and routinely run for minutes.
var pipelineBuckets = []float64{
	0.5, 1, 2.5, 5, 10, 30, 60, 120, 180, 300, 600,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Vendor calls.
	if met.VendorCallDuration, err = m.Float64Histogram("voxhire.vendor.call.duration",
		metric.WithDescription("Wall time of vendor calls through the resilience layer, by target and outcome."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.VendorCalls, err = m.Int64Counter("voxhire.vendor.calls",
		metric.WithDescription("Total vendor calls by target and outcome."),
	); err != nil {
		return nil, err
	}

	// Pipeline histograms.
	if met.QuestionGenDuration, err = m.Float64Histogram("voxhire.questiongen.duration",
		metric.WithDescription("Latency of question batch generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AvatarClipDuration, err = m.Float64Histogram("voxhire.avatar.clip.duration",
		metric.WithDescription("Per-question avatar clip latency by source (cache or rendered)."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(pipelineBuckets...),
	); err != nil {
		return nil, err
	}
	if met.VideoGenerationDuration, err = m.Float64Histogram("voxhire.video_generation.duration",
		metric.WithDescription("Per-interview avatar fan-out latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(pipelineBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.InterviewsStarted, err = m.Int64Counter("voxhire.interviews.started",
		metric.WithDescription("Total interviews created."),
	); err != nil {
		return nil, err
	}
	if met.InterviewsFinished, err = m.Int64Counter("voxhire.interviews.finished",
		metric.WithDescription("Total interviews reaching a terminal status."),
	); err != nil {
		return nil, err
	}
	if met.CacheLookups, err = m.Int64Counter("voxhire.cache.lookups",
		metric.WithDescription("Media cache probes by cache and outcome."),
	); err != nil {
		return nil, err
	}
	if met.SweeperRescues, err = m.Int64Counter("voxhire.sweeper.rescues",
		metric.WithDescription("Interviews the recovery sweeper moved out of a stuck state, by rule."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.BreakerOpen, err = m.Int64UpDownCounter("voxhire.breaker.open",
		metric.WithDescription("Circuit breakers currently open, by target."),
	); err != nil {
		return nil, err
	}
	if met.ProgressSubscribers, err = m.Int64UpDownCounter("voxhire.progress.subscribers",
		metric.WithDescription("Live progress-stream subscriptions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("voxhire.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordVendorCall records one vendor call outcome with its duration. Its
// signature matches the resilience executor's OnOutcome hook so it can be
// wired directly.
func (m *Metrics) RecordVendorCall(target, outcome string, elapsed time.Duration) {
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("target", target),
		attribute.String("outcome", outcome),
	)
	m.VendorCalls.Add(ctx, 1, attrs)
	m.VendorCallDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordCacheLookup records a media cache probe.
func (m *Metrics) RecordCacheLookup(ctx context.Context, cache string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.CacheLookups.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("cache", cache),
			attribute.String("outcome", outcome),
		),
	)
}

// RecordSweeperRescue records one rescued interview.
func (m *Metrics) RecordSweeperRescue(ctx context.Context, rule string) {
	m.SweeperRescues.Add(ctx, 1,
		metric.WithAttributes(attribute.String("rule", rule)),
	)
}

// RecordInterviewFinished records an interview reaching a terminal status.
func (m *Metrics) RecordInterviewFinished(ctx context.Context, status string) {
	m.InterviewsFinished.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}
