// Package telemetry wires OpenTelemetry metrics for every core component
// (C1-C9): admission allow/deny counts, queue depth, circuit state,
// provider request duration/cost, scheduler assignment latency, consensus
// decision counts, and swarm worker health. A manual reader is used by
// default — no OTLP exporter is wired, since this spec does not define an
// external collector endpoint contract.
package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

const scopeName = "github.com/swarmruntime/core"

// Instruments holds every metric instrument emitted by the runtime.
type Instruments struct {
	Meter metric.Meter

	AdmissionAllowed metric.Int64Counter
	AdmissionDenied  metric.Int64Counter

	QueueDepth    metric.Int64Gauge
	CircuitState  metric.Int64Gauge // 0 closed, 1 half_open, 2 open

	ProviderRequestDuration metric.Float64Histogram
	ProviderCost            metric.Float64Histogram

	SchedulerAssignLatency metric.Float64Histogram

	ConsensusDecisions metric.Int64Counter

	SwarmWorkerHealth metric.Float64Gauge
}

// New creates a MeterProvider backed by a ManualReader (no background
// export loop, no network collector) and every Instruments counter/
// histogram/gauge this runtime records.
func New() (*Instruments, *sdkmetric.ManualReader, error) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter(scopeName)

	inst, err := newInstruments(meter)
	if err != nil {
		return nil, nil, err
	}
	return inst, reader, nil
}

func newInstruments(meter metric.Meter) (*Instruments, error) {
	var errs []error
	must := func(name string, err error) {
		if err != nil {
			errs = append(errs, err)
		}
		_ = name
	}

	admissionAllowed, err := meter.Int64Counter("admission.allowed",
		metric.WithDescription("Admission decisions that allowed the request"),
		metric.WithUnit("{request}"))
	must("admission.allowed", err)

	admissionDenied, err := meter.Int64Counter("admission.denied",
		metric.WithDescription("Admission decisions that denied the request"),
		metric.WithUnit("{request}"))
	must("admission.denied", err)

	queueDepth, err := meter.Int64Gauge("queue.depth",
		metric.WithDescription("Current backpressure queue depth"),
		metric.WithUnit("{task}"))
	must("queue.depth", err)

	circuitState, err := meter.Int64Gauge("circuit_breaker.state",
		metric.WithDescription("Circuit breaker state: 0 closed, 1 half_open, 2 open"))
	must("circuit_breaker.state", err)

	providerRequestDuration, err := meter.Float64Histogram("provider.request.duration",
		metric.WithDescription("Provider request duration"),
		metric.WithUnit("ms"))
	must("provider.request.duration", err)

	providerCost, err := meter.Float64Histogram("provider.request.cost",
		metric.WithDescription("Provider request cost"),
		metric.WithUnit("USD"))
	must("provider.request.cost", err)

	schedulerAssignLatency, err := meter.Float64Histogram("scheduler.assign.latency",
		metric.WithDescription("Time from task ready to agent assignment"),
		metric.WithUnit("ms"))
	must("scheduler.assign.latency", err)

	consensusDecisions, err := meter.Int64Counter("consensus.decisions",
		metric.WithDescription("Consensus decisions tallied, by kind and outcome"),
		metric.WithUnit("{decision}"))
	must("consensus.decisions", err)

	swarmWorkerHealth, err := meter.Float64Gauge("swarm.worker.health",
		metric.WithDescription("Per-worker health score in [0,1]"))
	must("swarm.worker.health", err)

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return &Instruments{
		Meter:                   meter,
		AdmissionAllowed:        admissionAllowed,
		AdmissionDenied:         admissionDenied,
		QueueDepth:              queueDepth,
		CircuitState:            circuitState,
		ProviderRequestDuration: providerRequestDuration,
		ProviderCost:            providerCost,
		SchedulerAssignLatency:  schedulerAssignLatency,
		ConsensusDecisions:      consensusDecisions,
		SwarmWorkerHealth:       swarmWorkerHealth,
	}, nil
}

// Collect forces the manual reader to produce a snapshot, for tests and
// for any future pull-based inspection endpoint.
func Collect(ctx context.Context, reader *sdkmetric.ManualReader) (*metricdata.ResourceMetrics, error) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}
	return &rm, nil
}
