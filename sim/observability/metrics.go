// Package observability records simulation metrics through OpenTelemetry.
// Use NewMetricsRecorder() for OTel metrics against the host's global provider,
// LocalMetrics for an in-process provider, or NoopMetrics{} when disabled.
package observability

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records epidemic simulation metrics.
type MetricsRecorder interface {
	// RecordTick records one compartmental step of a population.
	RecordTick(ctx context.Context, population string)

	// RecordRuleFired records the execution of an event rule.
	RecordRuleFired(ctx context.Context, population, rule string)

	// RecordConditionError records a condition that could not be evaluated.
	RecordConditionError(ctx context.Context, population, rule string)

	// RecordInfection records one agent-to-agent transmission.
	RecordInfection(ctx context.Context)

	// RecordRebirth records an agent replaced after reaching its lifespan.
	RecordRebirth(ctx context.Context)

	// RecordRun records a finished simulation run with its wall-clock duration.
	RecordRun(ctx context.Context, model string, duration time.Duration)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	ticks           metric.Int64Counter
	rulesFired      metric.Int64Counter
	conditionErrors metric.Int64Counter
	infections      metric.Int64Counter
	rebirths        metric.Int64Counter
	runs            metric.Int64Counter
	runLatency      metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics(otel.Meter(meterName))
	})
	return defaultMetrics, defaultMetricsErr
}

const meterName = "episim"

func newOtelMetrics(meter metric.Meter) (*otelMetrics, error) {
	ticks, err := meter.Int64Counter("episim.population.ticks",
		metric.WithDescription("Number of compartmental steps"),
	)
	if err != nil {
		return nil, err
	}

	rulesFired, err := meter.Int64Counter("episim.rule.fired",
		metric.WithDescription("Number of event rule executions"),
	)
	if err != nil {
		return nil, err
	}

	conditionErrors, err := meter.Int64Counter("episim.rule.condition_errors",
		metric.WithDescription("Number of conditions that could not be evaluated"),
	)
	if err != nil {
		return nil, err
	}

	infections, err := meter.Int64Counter("episim.agents.infections",
		metric.WithDescription("Number of agent-to-agent transmissions"),
	)
	if err != nil {
		return nil, err
	}

	rebirths, err := meter.Int64Counter("episim.agents.rebirths",
		metric.WithDescription("Number of agents replaced at the end of their lifespan"),
	)
	if err != nil {
		return nil, err
	}

	runs, err := meter.Int64Counter("episim.runs",
		metric.WithDescription("Number of finished simulation runs"),
	)
	if err != nil {
		return nil, err
	}

	runLatency, err := meter.Float64Histogram("episim.run.latency_ms",
		metric.WithDescription("Wall-clock duration of a simulation run in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		ticks:           ticks,
		rulesFired:      rulesFired,
		conditionErrors: conditionErrors,
		infections:      infections,
		rebirths:        rebirths,
		runs:            runs,
		runLatency:      runLatency,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder backed by the global OTel meter provider.
// If metrics initialization fails, returns a no-op recorder.
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		logrus.Warnf("metrics initialization failed, using no-op recorder: %v", err)
		return NoopMetrics{}
	}
	return m
}

func (m *otelMetrics) RecordTick(ctx context.Context, population string) {
	m.ticks.Add(ctx, 1, metric.WithAttributes(attribute.String("population", population)))
}

func (m *otelMetrics) RecordRuleFired(ctx context.Context, population, rule string) {
	m.rulesFired.Add(ctx, 1, metric.WithAttributes(
		attribute.String("population", population),
		attribute.String("rule", rule),
	))
}

func (m *otelMetrics) RecordConditionError(ctx context.Context, population, rule string) {
	m.conditionErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("population", population),
		attribute.String("rule", rule),
	))
}

func (m *otelMetrics) RecordInfection(ctx context.Context) {
	m.infections.Add(ctx, 1)
}

func (m *otelMetrics) RecordRebirth(ctx context.Context) {
	m.rebirths.Add(ctx, 1)
}

func (m *otelMetrics) RecordRun(ctx context.Context, model string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("model", model))
	m.runs.Add(ctx, 1, attrs)
	m.runLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// NoopMetrics is a MetricsRecorder that does nothing.
type NoopMetrics struct{}

// Compile-time interface check.
var _ MetricsRecorder = NoopMetrics{}

func (NoopMetrics) RecordTick(context.Context, string)                   {}
func (NoopMetrics) RecordRuleFired(context.Context, string, string)      {}
func (NoopMetrics) RecordConditionError(context.Context, string, string) {}
func (NoopMetrics) RecordInfection(context.Context)                      {}
func (NoopMetrics) RecordRebirth(context.Context)                        {}
func (NoopMetrics) RecordRun(context.Context, string, time.Duration)     {}
