package observability

import (
	"context"
	"fmt"
	"sort"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// MetricTotal is one instrument summed over all of its attribute sets.
type MetricTotal struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// LocalMetrics is an in-process SDK meter provider read on demand. The CLI installs it
// with --metrics since there is no host process to own a provider.
type LocalMetrics struct {
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
}

// NewLocalMetrics creates a provider with a manual reader.
func NewLocalMetrics() *LocalMetrics {
	reader := sdkmetric.NewManualReader()
	return &LocalMetrics{
		reader:   reader,
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
	}
}

// Recorder returns a MetricsRecorder whose instruments belong to this provider.
func (l *LocalMetrics) Recorder() (MetricsRecorder, error) {
	m, err := newOtelMetrics(l.provider.Meter(meterName))
	if err != nil {
		return nil, fmt.Errorf("creating local instruments: %w", err)
	}
	return m, nil
}

// Totals collects every instrument and returns its total, sorted by name.
// Counters report their sum; histograms report the sum of recorded values.
func (l *LocalMetrics) Totals(ctx context.Context) ([]MetricTotal, error) {
	var rm metricdata.ResourceMetrics
	if err := l.reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("collecting metrics: %w", err)
	}
	var totals []MetricTotal
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			t := MetricTotal{Name: m.Name}
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					t.Value += float64(dp.Value)
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					t.Value += dp.Sum
				}
			default:
				continue
			}
			totals = append(totals, t)
		}
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Name < totals[j].Name })
	return totals, nil
}

// Shutdown flushes and stops the provider.
func (l *LocalMetrics) Shutdown(ctx context.Context) error {
	return l.provider.Shutdown(ctx)
}
