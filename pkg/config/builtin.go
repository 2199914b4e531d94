package config

import (
	"sync"
)

// BuiltinConfig holds built-in configuration data: default provider
// templates and the masking pattern/group catalog shared with pkg/masking.
type BuiltinConfig struct {
	Providers       map[string]ProviderConfig
	MaskingPatterns map[string]MaskingPattern
	PatternGroups   map[string][]string
}

// MaskingPattern defines a regex-based masking pattern, shared between
// config (as a built-in catalog) and pkg/masking (as the applied rule).
type MaskingPattern struct {
	Pattern     string `yaml:"pattern" validate:"required"`
	Replacement string `yaml:"replacement" validate:"required"`
	Description string `yaml:"description,omitempty"`
}

var (
	builtinConfig     *BuiltinConfig
	builtinConfigOnce sync.Once
)

// GetBuiltinConfig returns the singleton built-in configuration (thread-safe, lazy-initialized).
func GetBuiltinConfig() *BuiltinConfig {
	builtinConfigOnce.Do(initBuiltinConfig)
	return builtinConfig
}

func initBuiltinConfig() {
	builtinConfig = &BuiltinConfig{
		Providers:       initBuiltinProviders(),
		MaskingPatterns: initBuiltinMaskingPatterns(),
		PatternGroups:   initBuiltinPatternGroups(),
	}
}

func initBuiltinProviders() map[string]ProviderConfig {
	return map[string]ProviderConfig{
		"openai-gpt4o": {
			Type:             ProviderTypeOpenAICompat,
			Model:            "gpt-4o",
			APIKeyEnv:        "OPENAI_API_KEY",
			InputPricePer1K:  0.0025,
			OutputPricePer1K: 0.01,
			MaxContextTokens: 128_000,
		},
		"anthropic-sonnet": {
			Type:             ProviderTypeAnthropicCompat,
			Model:            "claude-sonnet-4-5",
			APIKeyEnv:        "ANTHROPIC_API_KEY",
			InputPricePer1K:  0.003,
			OutputPricePer1K: 0.015,
			MaxContextTokens: 200_000,
		},
	}
}

func initBuiltinMaskingPatterns() map[string]MaskingPattern {
	return map[string]MaskingPattern{
		"api_key": {
			Pattern:     `(?i)(?:api[_-]?key|apikey|key)["\']?\s*[:=]\s*["\']?([A-Za-z0-9_\-]{20,})["\']?`,
			Replacement: `"api_key": "[MASKED_API_KEY]"`,
			Description: "API keys",
		},
		"password": {
			Pattern:     `(?i)(?:password|pwd|pass)["\']?\s*[:=]\s*["\']?([^"\'\s\n]{6,})["\']?`,
			Replacement: `"password": "[MASKED_PASSWORD]"`,
			Description: "Passwords",
		},
		"token": {
			Pattern:     `(?i)(?:token|bearer|jwt)["\']?\s*[:=]\s*["\']?([A-Za-z0-9_\-\.]{20,})["\']?`,
			Replacement: `"token": "[MASKED_TOKEN]"`,
			Description: "Access tokens",
		},
		"bearer_header": {
			Pattern:     `(?i)bearer\s+[A-Za-z0-9_\-\.]{20,}`,
			Replacement: `Bearer [MASKED_TOKEN]`,
			Description: "HTTP Authorization: Bearer headers",
		},
		"connection_string": {
			Pattern:     `(?i)[a-z][a-z0-9+.-]*://[^:@/\s]+:[^@/\s]+@[^\s]+`,
			Replacement: `[MASKED_CONNECTION_STRING]`,
			Description: "URLs carrying embedded credentials",
		},
		"private_key": {
			Pattern:     `(?s)-----BEGIN [A-Z ]*PRIVATE KEY-----.*?-----END [A-Z ]*PRIVATE KEY-----`,
			Replacement: `[MASKED_PRIVATE_KEY]`,
			Description: "PEM-encoded private keys",
		},
		"aws_access_key": {
			Pattern:     `(?i)(?:aws[_-]?access[_-]?key[_-]?id)["\']?\s*[:=]\s*["\']?(AKIA[A-Z0-9]{16})["\']?`,
			Replacement: `"aws_access_key_id": "[MASKED_AWS_KEY]"`,
			Description: "AWS access keys",
		},
		"github_token": {
			Pattern:     `(?i)gh[ps]_[A-Za-z0-9_]{36,255}`,
			Replacement: `[MASKED_GITHUB_TOKEN]`,
			Description: "GitHub tokens",
		},
		"slack_token": {
			Pattern:     `(?i)xox[baprs]-[A-Za-z0-9-]{10,72}`,
			Replacement: `[MASKED_SLACK_TOKEN]`,
			Description: "Slack tokens",
		},
	}
}

// initBuiltinPatternGroups returns predefined groups of masking patterns
// applied together (spend-log entries, event payloads, log fields).
func initBuiltinPatternGroups() map[string][]string {
	return map[string][]string{
		"basic":    {"api_key", "password"},
		"secrets":  {"api_key", "password", "token", "bearer_header", "private_key"},
		"security": {"api_key", "password", "token", "bearer_header", "connection_string", "private_key"},
		"cloud":    {"aws_access_key", "github_token", "slack_token"},
		"all": {
			"api_key", "password", "token", "bearer_header", "connection_string",
			"private_key", "aws_access_key", "github_token", "slack_token",
		},
	}
}
