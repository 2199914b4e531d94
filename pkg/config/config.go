package config

// Config is the umbrella configuration object produced by Initialize
// and threaded through the runtime: every core component (C1-C9) and
// ambient component (A1-A9) reads its settings from one of its fields.
type Config struct {
	configDir string

	Swarm     *SwarmConfig
	Admission *AdmissionConfig
	Queue     *QueueConfig
	Router    *RouterConfig
	Task      *TaskConfig
	Retention *RetentionConfig
	API       *APIConfig
	Notify    *NotifyConfig

	Providers *ProviderRegistry
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// ConfigStats summarizes loaded configuration for startup logging.
type ConfigStats struct {
	Providers int
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() ConfigStats {
	return ConfigStats{Providers: c.Providers.Len()}
}

// GetProvider retrieves a provider configuration by id.
func (c *Config) GetProvider(id string) (*ProviderConfig, error) {
	return c.Providers.Get(id)
}
