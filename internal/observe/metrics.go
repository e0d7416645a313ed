// Package observe provides application-wide observability primitives for
// voxprep: OpenTelemetry metrics, structured logging setup, and the
// Prometheus exporter bridge that exposes metrics over /metrics.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A package-level
// default [Metrics] instance ([DefaultMetrics]) is provided for convenience;
// tests should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all voxprep metrics.
const meterName = "github.com/voxprep/voxprep"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Upstream media counters ---

	// AudioChunksSent counts microphone chunks submitted to the channel.
	AudioChunksSent metric.Int64Counter

	// VideoFramesSent counts camera frames submitted to the channel.
	VideoFramesSent metric.Int64Counter

	// VideoFramesDropped counts sampler ticks that produced no frame. Use
	// with attribute:
	//   attribute.String("reason", ...)
	VideoFramesDropped metric.Int64Counter

	// --- Downstream playback ---

	// AudioScheduled counts model audio payloads handed to the playback
	// scheduler.
	AudioScheduled metric.Int64Counter

	// ScheduledSeconds tracks the duration of each scheduled payload.
	ScheduledSeconds metric.Float64Histogram

	// --- Conversation counters ---

	// TurnsCompleted counts completed model turns.
	TurnsCompleted metric.Int64Counter

	// Interruptions counts barge-in events.
	Interruptions metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live interview sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// payloadBuckets defines histogram bucket boundaries (in seconds) sized for
// the sub-second audio payloads the live channel streams.
var payloadBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Counters.
	if met.AudioChunksSent, err = m.Int64Counter("voxprep.audio.chunks_sent",
		metric.WithDescription("Total microphone chunks sent to the live channel."),
	); err != nil {
		return nil, err
	}
	if met.VideoFramesSent, err = m.Int64Counter("voxprep.video.frames_sent",
		metric.WithDescription("Total camera frames sent to the live channel."),
	); err != nil {
		return nil, err
	}
	if met.VideoFramesDropped, err = m.Int64Counter("voxprep.video.frames_dropped",
		metric.WithDescription("Total sampler ticks skipped because no frame was available, by reason."),
	); err != nil {
		return nil, err
	}
	if met.AudioScheduled, err = m.Int64Counter("voxprep.playback.payloads",
		metric.WithDescription("Total model audio payloads scheduled for playback."),
	); err != nil {
		return nil, err
	}
	if met.TurnsCompleted, err = m.Int64Counter("voxprep.turns.completed",
		metric.WithDescription("Total completed model turns."),
	); err != nil {
		return nil, err
	}
	if met.Interruptions, err = m.Int64Counter("voxprep.turns.interrupted",
		metric.WithDescription("Total barge-in interruptions."),
	); err != nil {
		return nil, err
	}

	// Histograms.
	if met.ScheduledSeconds, err = m.Float64Histogram("voxprep.playback.payload.duration",
		metric.WithDescription("Duration of each scheduled audio payload."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(payloadBuckets...),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("voxprep.active_sessions",
		metric.WithDescription("Number of live interview sessions."),
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

// RecordFrameDropped records one skipped sampler tick with its reason.
func (m *Metrics) RecordFrameDropped(ctx context.Context, reason string) {
	m.VideoFramesDropped.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}

// RecordScheduled records one scheduled playback payload and its duration.
func (m *Metrics) RecordScheduled(ctx context.Context, seconds float64) {
	m.AudioScheduled.Add(ctx, 1)
	m.ScheduledSeconds.Record(ctx, seconds)
}
