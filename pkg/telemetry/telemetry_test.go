package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_CreatesAllInstruments(t *testing.T) {
	inst, reader, err := New()
	require.NoError(t, err)
	require.NotNil(t, inst)
	require.NotNil(t, reader)
}

func TestRecordAdmission_CollectsAllowedAndDeniedCounts(t *testing.T) {
	inst, reader, err := New()
	require.NoError(t, err)

	ctx := context.Background()
	inst.RecordAdmission(ctx, "openai-gpt4o", true, "")
	inst.RecordAdmission(ctx, "openai-gpt4o", false, "rate_limited")

	rm, err := Collect(ctx, reader)
	require.NoError(t, err)
	assert.NotEmpty(t, rm.ScopeMetrics)

	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	assert.True(t, names["admission.allowed"])
	assert.True(t, names["admission.denied"])
}

func TestCircuitStateValue(t *testing.T) {
	assert.Equal(t, int64(0), CircuitStateValue("closed"))
	assert.Equal(t, int64(1), CircuitStateValue("half_open"))
	assert.Equal(t, int64(2), CircuitStateValue("open"))
}

func TestRecordWorkerHealth_CollectsGauge(t *testing.T) {
	inst, reader, err := New()
	require.NoError(t, err)

	ctx := context.Background()
	inst.RecordWorkerHealth(ctx, "w1", 0.8)

	rm, err := Collect(ctx, reader)
	require.NoError(t, err)

	found := false
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == "swarm.worker.health" {
				found = true
			}
		}
	}
	assert.True(t, found)
}
