package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBuiltinConfig_IsSingletonAndPopulated(t *testing.T) {
	b1 := GetBuiltinConfig()
	b2 := GetBuiltinConfig()
	assert.Same(t, b1, b2)

	require.NotEmpty(t, b1.Providers)
	require.Contains(t, b1.Providers, "openai-gpt4o")
	require.Contains(t, b1.Providers, "anthropic-sonnet")
}

func TestBuiltinPatternGroups_ReferenceExistingPatterns(t *testing.T) {
	b := GetBuiltinConfig()
	for group, names := range b.PatternGroups {
		for _, name := range names {
			_, ok := b.MaskingPatterns[name]
			assert.True(t, ok, "pattern group %q references unknown pattern %q", group, name)
		}
	}
}
