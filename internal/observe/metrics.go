// Package observe provides application-wide observability primitives for
// Sonoxa: OpenTelemetry metrics, distributed tracing, structured logging,
// and a stage wrapper that ties them together around pipeline runs.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via a standard /metrics endpoint when the pipeline is embedded in
// a long-running service. A package-level default [Metrics] instance
// ([DefaultMetrics]) is provided for convenience; tests should use
// [NewMetrics] with a custom [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Sonoxa metrics.
const meterName = "github.com/MrWong99/sonoxa"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// EncodeDuration tracks per-packet feature extraction latency.
	EncodeDuration metric.Float64Histogram

	// DecodeDuration tracks per-record waveform synthesis latency.
	DecodeDuration metric.Float64Histogram

	// FileDuration tracks end-to-end latency of a whole encode or decode
	// run. Use with attribute:
	//   attribute.String("stage", ...)
	FileDuration metric.Float64Histogram

	// --- Counters ---

	// PacketsEncoded counts encoded audio packets. Use with attribute:
	//   attribute.String("codec", ...)
	PacketsEncoded metric.Int64Counter

	// FramesDecoded counts decoded feature records. Use with attributes:
	//   attribute.String("codec", ...), attribute.String("outcome", ...)
	FramesDecoded metric.Int64Counter

	// LossesInjected counts feature records dropped by the channel
	// simulator before reaching the decoder.
	LossesInjected metric.Int64Counter

	// --- Error counters ---

	// PipelineErrors counts failed pipeline runs. Use with attribute:
	//   attribute.String("stage", ...)
	PipelineErrors metric.Int64Counter

	// --- Gauges ---

	// ActivePipelines tracks the number of in-flight encode or decode runs.
	ActivePipelines metric.Int64UpDownCounter
}

// packetLatencyBuckets defines histogram bucket boundaries (in seconds) for
// per-packet codec work, which completes well below real time.
var packetLatencyBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1,
}

// fileLatencyBuckets defines histogram bucket boundaries (in seconds) for
// whole-file pipeline runs.
var fileLatencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.EncodeDuration, err = m.Float64Histogram("sonoxa.encode.duration",
		metric.WithDescription("Latency of per-packet feature extraction."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(packetLatencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.DecodeDuration, err = m.Float64Histogram("sonoxa.decode.duration",
		metric.WithDescription("Latency of per-record waveform synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(packetLatencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.FileDuration, err = m.Float64Histogram("sonoxa.file.duration",
		metric.WithDescription("End-to-end latency of a pipeline run by stage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(fileLatencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.PacketsEncoded, err = m.Int64Counter("sonoxa.packets.encoded",
		metric.WithDescription("Total encoded audio packets by codec."),
	); err != nil {
		return nil, err
	}
	if met.FramesDecoded, err = m.Int64Counter("sonoxa.frames.decoded",
		metric.WithDescription("Total decoded feature records by codec and outcome."),
	); err != nil {
		return nil, err
	}
	if met.LossesInjected, err = m.Int64Counter("sonoxa.losses.injected",
		metric.WithDescription("Total feature records dropped by the channel simulator."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.PipelineErrors, err = m.Int64Counter("sonoxa.pipeline.errors",
		metric.WithDescription("Total failed pipeline runs by stage."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActivePipelines, err = m.Int64UpDownCounter("sonoxa.active_pipelines",
		metric.WithDescription("Number of in-flight encode or decode runs."),
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

// RecordPacketEncoded is a convenience method that records an encoded-packet
// counter increment with the standard attribute set.
func (m *Metrics) RecordPacketEncoded(ctx context.Context, codec string) {
	m.PacketsEncoded.Add(ctx, 1,
		metric.WithAttributes(attribute.String("codec", codec)),
	)
}

// RecordFrameDecoded is a convenience method that records a decoded-record
// counter increment. The outcome is "decoded" for records synthesised from
// received features and "concealed" for records reconstructed after a loss.
func (m *Metrics) RecordFrameDecoded(ctx context.Context, codec, outcome string) {
	m.FramesDecoded.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("codec", codec),
			attribute.String("outcome", outcome),
		),
	)
}

// RecordLossInjected is a convenience method that records a dropped-record
// counter increment.
func (m *Metrics) RecordLossInjected(ctx context.Context) {
	m.LossesInjected.Add(ctx, 1)
}

// RecordPipelineError is a convenience method that records a pipeline error
// counter increment.
func (m *Metrics) RecordPipelineError(ctx context.Context, stage string) {
	m.PipelineErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}
