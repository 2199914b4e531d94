package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_StatsAndGetProvider(t *testing.T) {
	cfg := &Config{
		Providers: NewProviderRegistry(map[string]*ProviderConfig{
			"p1": {Type: ProviderTypeOpenAICompat, Model: "gpt-4o"},
			"p2": {Type: ProviderTypeAnthropicCompat, Model: "claude-sonnet-4-5"},
		}),
	}

	assert.Equal(t, 2, cfg.Stats().Providers)

	p, err := cfg.GetProvider("p1")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", p.Model)

	_, err = cfg.GetProvider("missing")
	assert.ErrorIs(t, err, ErrProviderNotFound)
}
