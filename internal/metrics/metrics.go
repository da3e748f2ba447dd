// Package metrics exposes nodwatch's OpenTelemetry instruments.
//
// Instruments are created from a [metric.MeterProvider] so tests can attach a
// ManualReader. In production [InitProvider] installs a Prometheus exporter and
// the registry is scraped through /metrics. A nil *Metrics records nothing.
package metrics

import (
	"context"
	"time"

	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/ayusman/nodwatch"

// Metrics holds the instruments recorded by the engine, app and plugin layers.
type Metrics struct {
	// Ticks counts consumer ticks.
	Ticks metric.Int64Counter

	// Samples counts sensor samples accepted by the engine.
	Samples metric.Int64Counter

	// Gestures counts fired gestures. Attribute: kind.
	Gestures metric.Int64Counter

	// WindowClears counts debounce clears. Attribute: axis.
	WindowClears metric.Int64Counter

	// Listening is 1 while the engine is listening.
	Listening metric.Int64UpDownCounter

	// ClassifyDuration tracks the time spent classifying both windows in one tick.
	ClassifyDuration metric.Float64Histogram

	// PluginRuns counts plugin executions. Attributes: plugin, status.
	PluginRuns metric.Int64Counter
}

var classifyBuckets = []float64{
	0.00001, 0.000025, 0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.005,
}

// New creates the instruments on mp.
func New(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Ticks, err = m.Int64Counter("nodwatch.engine.ticks",
		metric.WithDescription("Consumer ticks executed by the gesture engine."),
	); err != nil {
		return nil, err
	}
	if met.Samples, err = m.Int64Counter("nodwatch.engine.samples",
		metric.WithDescription("Orientation samples received from the sensor."),
	); err != nil {
		return nil, err
	}
	if met.Gestures, err = m.Int64Counter("nodwatch.gestures",
		metric.WithDescription("Gestures delivered to the listener by kind."),
	); err != nil {
		return nil, err
	}
	if met.WindowClears, err = m.Int64Counter("nodwatch.engine.window_clears",
		metric.WithDescription("Window clears after a gesture fired, by axis."),
	); err != nil {
		return nil, err
	}
	if met.Listening, err = m.Int64UpDownCounter("nodwatch.engine.listening",
		metric.WithDescription("1 while the engine is listening."),
	); err != nil {
		return nil, err
	}
	if met.ClassifyDuration, err = m.Float64Histogram("nodwatch.engine.classify.duration",
		metric.WithDescription("Time spent classifying both windows in one tick."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(classifyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PluginRuns, err = m.Int64Counter("nodwatch.plugin.runs",
		metric.WithDescription("Plugin executions by plugin and status."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// Tick records one consumer tick and its classification time.
func (m *Metrics) Tick(d time.Duration) {
	if m == nil {
		return
	}
	ctx := context.Background()
	m.Ticks.Add(ctx, 1)
	m.ClassifyDuration.Record(ctx, d.Seconds())
}

// Sample records one accepted sensor sample.
func (m *Metrics) Sample() {
	if m == nil {
		return
	}
	m.Samples.Add(context.Background(), 1)
}

// Gesture records a fired gesture.
func (m *Metrics) Gesture(kind string) {
	if m == nil {
		return
	}
	m.Gestures.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// WindowCleared records a debounce clear of the given axis window.
func (m *Metrics) WindowCleared(axis string) {
	if m == nil {
		return
	}
	m.WindowClears.Add(context.Background(), 1, metric.WithAttributes(attribute.String("axis", axis)))
}

// SetListening moves the listening gauge up or down.
func (m *Metrics) SetListening(on bool) {
	if m == nil {
		return
	}
	delta := int64(-1)
	if on {
		delta = 1
	}
	m.Listening.Add(context.Background(), delta)
}

// PluginRun records a plugin execution outcome.
func (m *Metrics) PluginRun(plugin string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.PluginRuns.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("plugin", plugin),
		attribute.String("status", status),
	))
}

// InitProvider installs a global MeterProvider backed by the Prometheus exporter,
// which registers with the default Prometheus registry. The returned function
// flushes and shuts the provider down.
func InitProvider() (*sdkmetric.MeterProvider, func(context.Context) error, error) {
	exp, err := promexporter.New()
	if err != nil {
		return nil, nil, err
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp))
	otel.SetMeterProvider(mp)
	return mp, mp.Shutdown, nil
}
