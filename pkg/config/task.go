package config

// TaskConfig holds task execution defaults (spec.md §6:
// `task.defaultMaxRetries`, `task.defaultTimeoutMs`).
type TaskConfig struct {
	DefaultMaxRetries int `yaml:"default_max_retries"`
	DefaultTimeoutMs  int `yaml:"default_timeout_ms"`
}

// DefaultTaskConfig returns the built-in task defaults.
func DefaultTaskConfig() *TaskConfig {
	return &TaskConfig{
		DefaultMaxRetries: 3,
		DefaultTimeoutMs:  300_000,
	}
}
