package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeProviders_UserOverridesBuiltin(t *testing.T) {
	builtin := map[string]ProviderConfig{
		"openai-gpt4o": {Type: ProviderTypeOpenAICompat, Model: "gpt-4o", APIKeyEnv: "OPENAI_API_KEY"},
	}
	user := map[string]ProviderConfig{
		"openai-gpt4o": {Type: ProviderTypeOpenAICompat, Model: "gpt-4o-mini", APIKeyEnv: "OPENAI_API_KEY"},
		"custom":       {Type: ProviderTypeAnthropicCompat, Model: "claude-opus", APIKeyEnv: "ANTHROPIC_API_KEY"},
	}

	merged := mergeProviders(builtin, user)
	require.Len(t, merged, 2)
	assert.Equal(t, "gpt-4o-mini", merged["openai-gpt4o"].Model)
	assert.Equal(t, "claude-opus", merged["custom"].Model)
}

func TestMergeProviders_BuiltinSurvivesWithoutOverride(t *testing.T) {
	builtin := map[string]ProviderConfig{
		"anthropic-sonnet": {Type: ProviderTypeAnthropicCompat, Model: "claude-sonnet-4-5"},
	}
	merged := mergeProviders(builtin, nil)
	require.Len(t, merged, 1)
	assert.Equal(t, "claude-sonnet-4-5", merged["anthropic-sonnet"].Model)
}
