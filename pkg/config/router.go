package config

// CacheConfig configures the provider router's response cache
// (`router.cache.*`).
type CacheConfig struct {
	Enabled     bool             `yaml:"enabled"`
	TTLMs       int              `yaml:"ttl_ms"`
	MaxEntries  int              `yaml:"max_entries"`
	KeyStrategy CacheKeyStrategy `yaml:"key_strategy"`
}

// RouterConfig configures C5, the provider router.
type RouterConfig struct {
	Cache        CacheConfig `yaml:"cache"`
	FallbackChain []string   `yaml:"fallback_chain"`
}

// DefaultRouterConfig returns the built-in router defaults.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		Cache: CacheConfig{
			Enabled:     true,
			TTLMs:       60_000,
			MaxEntries:  10_000,
			KeyStrategy: CacheKeyStrategyExact,
		},
	}
}
