package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

// CircuitStateValue maps a circuit breaker state name to the integer
// recorded on CircuitState (0 closed, 1 half_open, 2 open).
func CircuitStateValue(state string) int64 {
	switch state {
	case "half_open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}

// RecordAdmission increments AdmissionAllowed or AdmissionDenied for one
// admission decision, dimensioned by provider and (for denials) reason.
func (i *Instruments) RecordAdmission(ctx context.Context, provider string, allowed bool, reason string) {
	if allowed {
		i.AdmissionAllowed.Add(ctx, 1, metric.WithAttributes(AttrProvider.String(provider)))
		return
	}
	i.AdmissionDenied.Add(ctx, 1, metric.WithAttributes(AttrProvider.String(provider), AttrReason.String(reason)))
}

// RecordProviderRequest records one provider call's duration and cost.
func (i *Instruments) RecordProviderRequest(ctx context.Context, provider string, durationMs, costUSD float64) {
	attrs := metric.WithAttributes(AttrProvider.String(provider))
	i.ProviderRequestDuration.Record(ctx, durationMs, attrs)
	i.ProviderCost.Record(ctx, costUSD, attrs)
}

// RecordCircuitState records provider's current circuit breaker state.
func (i *Instruments) RecordCircuitState(ctx context.Context, provider, state string) {
	i.CircuitState.Record(ctx, CircuitStateValue(state), metric.WithAttributes(AttrProvider.String(provider)))
}

// RecordConsensusDecision increments ConsensusDecisions for one tallied
// decision, dimensioned by kind and outcome.
func (i *Instruments) RecordConsensusDecision(ctx context.Context, kind string, consensusReached bool) {
	outcome := "no_consensus"
	if consensusReached {
		outcome = "consensus"
	}
	i.ConsensusDecisions.Add(ctx, 1, metric.WithAttributes(AttrKind.String(kind), AttrOutcome.String(outcome)))
}

// RecordWorkerHealth records workerID's current health score.
func (i *Instruments) RecordWorkerHealth(ctx context.Context, workerID string, score float64) {
	i.SwarmWorkerHealth.Record(ctx, score, metric.WithAttributes(AttrWorker.String(workerID)))
}
