// Package observe holds the OpenTelemetry metric instruments for mudra.
//
// Instruments are created from a [metric.MeterProvider]; [InitProvider]
// installs one backed by a Prometheus exporter so the server can serve them
// on /metrics. Tests should build their own provider with a ManualReader and
// pass it to [NewMetrics].
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/ayusman/mudra"

// Tick kinds recorded on the ticks counter.
const (
	TickPresent = "present"
	TickAbsent  = "absent"
)

// Metrics holds every instrument the application records.
type Metrics struct {
	// Ticks counts engine ticks. Attribute: kind (present|absent).
	Ticks metric.Int64Counter

	// LettersAppended counts confirmed letters.
	LettersAppended metric.Int64Counter

	// LettersDeleted counts confirmed and manual deletions.
	LettersDeleted metric.Int64Counter

	// WordsCommitted counts non-empty committed words.
	WordsCommitted metric.Int64Counter

	// WordsCorrected counts committed words changed by the corrector.
	WordsCorrected metric.Int64Counter

	// PluginErrors counts failed plugin invocations. Attribute: plugin.
	PluginErrors metric.Int64Counter

	// CorrectDuration tracks word correction latency.
	CorrectDuration metric.Float64Histogram

	// HTTPRequestDuration tracks API latency. Attributes: method, route, status.
	HTTPRequestDuration metric.Float64Histogram
}

// correctBuckets are in seconds. A dictionary scan takes microseconds.
var correctBuckets = []float64{
	0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05,
}

// NewMetrics creates every instrument from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Ticks, err = m.Int64Counter("mudra.ticks",
		metric.WithDescription("Engine ticks by whether a hand was present."),
	); err != nil {
		return nil, err
	}
	if met.LettersAppended, err = m.Int64Counter("mudra.letters.appended",
		metric.WithDescription("Letters appended to the word buffer."),
	); err != nil {
		return nil, err
	}
	if met.LettersDeleted, err = m.Int64Counter("mudra.letters.deleted",
		metric.WithDescription("Letters removed from the word buffer."),
	); err != nil {
		return nil, err
	}
	if met.WordsCommitted, err = m.Int64Counter("mudra.words.committed",
		metric.WithDescription("Words committed."),
	); err != nil {
		return nil, err
	}
	if met.WordsCorrected, err = m.Int64Counter("mudra.words.corrected",
		metric.WithDescription("Committed words changed by autocorrect."),
	); err != nil {
		return nil, err
	}
	if met.PluginErrors, err = m.Int64Counter("mudra.plugin.errors",
		metric.WithDescription("Failed plugin invocations by plugin."),
	); err != nil {
		return nil, err
	}
	if met.CorrectDuration, err = m.Float64Histogram("mudra.correct.duration",
		metric.WithDescription("Latency of dictionary correction."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(correctBuckets...),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("mudra.http.request.duration",
		metric.WithDescription("Latency of HTTP requests."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns a shared instance built from the global meter
// provider on first use.
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

// RecordTick counts one tick of the given kind.
func (m *Metrics) RecordTick(ctx context.Context, kind string) {
	m.Ticks.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordPluginError counts one failed plugin call.
func (m *Metrics) RecordPluginError(ctx context.Context, plugin string) {
	m.PluginErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("plugin", plugin)))
}
