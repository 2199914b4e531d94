package config

import "time"

// RetentionConfig controls the archival sweep's retention window (A9).
type RetentionConfig struct {
	// TaskRetentionDays is how long a terminal task stays in the hot
	// repository before archival.go moves it out.
	TaskRetentionDays int `yaml:"task_retention_days"`

	// SpendLogRetentionDays bounds how long spend-log rows are kept.
	SpendLogRetentionDays int `yaml:"spend_log_retention_days"`

	// ConsensusLogRetentionDays bounds how long consensus-log rows are kept.
	ConsensusLogRetentionDays int `yaml:"consensus_log_retention_days"`

	// CleanupInterval is how often the archival cron sweep runs.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		TaskRetentionDays:         30,
		SpendLogRetentionDays:     90,
		ConsensusLogRetentionDays: 90,
		CleanupInterval:           1 * time.Hour,
	}
}
