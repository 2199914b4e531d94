package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseValidConfig() *Config {
	return &Config{
		Swarm:     DefaultSwarmConfig(),
		Admission: DefaultAdmissionConfig(),
		Queue:     DefaultQueueConfig(),
		Router:    DefaultRouterConfig(),
		Task:      DefaultTaskConfig(),
		Providers: NewProviderRegistry(map[string]*ProviderConfig{
			"openai-gpt4o": {Type: ProviderTypeOpenAICompat, Model: "gpt-4o"},
		}),
	}
}

func TestValidator_ValidConfigPasses(t *testing.T) {
	require.NoError(t, NewValidator(baseValidConfig()).ValidateAll())
}

func TestValidator_RejectsInsufficientWorkersForFaultTolerance(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Swarm.MaxWorkers = 3
	cfg.Swarm.FaultTolerance = 1 // needs >= 4
	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fault_tolerance")
}

func TestValidator_RejectsUnknownTopology(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Swarm.Topology = "star"
	assert.Error(t, NewValidator(cfg).ValidateAll())
}

func TestValidator_RejectsUnknownDegradationMode(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Admission.DegradationMode = "retry"
	assert.Error(t, NewValidator(cfg).ValidateAll())
}

func TestValidator_RejectsFallbackChainReferencingUnknownProvider(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Router.FallbackChain = []string{"openai-gpt4o", "does-not-exist"}
	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does-not-exist")
}

func TestValidator_RejectsBadQueueSizing(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Queue.MaxSize = 0
	assert.Error(t, NewValidator(cfg).ValidateAll())
}
