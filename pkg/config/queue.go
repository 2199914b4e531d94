package config

// RetryConfig is the backpressure queue's retry profile
// (`queue.retry.*`).
type RetryConfig struct {
	MaxRetries        int     `yaml:"max_retries"`
	InitialBackoffMs  int     `yaml:"initial_backoff_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
}

// CircuitBreakerConfig is the breaker's tuning (`queue.circuit_breaker.*`).
type CircuitBreakerConfig struct {
	FailureThreshold  int `yaml:"failure_threshold"`
	SuccessThreshold  int `yaml:"success_threshold"`
	OpenTimeoutMs     int `yaml:"open_timeout_ms"`
}

// QueueConfig configures C4, the backpressure queue.
type QueueConfig struct {
	MaxSize           int                  `yaml:"max_size"`
	DefaultTimeoutMs  int                  `yaml:"default_timeout_ms"`
	Retry             RetryConfig          `yaml:"retry"`
	CircuitBreaker    CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// DefaultQueueConfig returns the built-in queue defaults.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		MaxSize:          1000,
		DefaultTimeoutMs: 30_000,
		Retry: RetryConfig{
			MaxRetries:        3,
			InitialBackoffMs:  100,
			BackoffMultiplier: 2.0,
		},
		CircuitBreaker: CircuitBreakerConfig{
			FailureThreshold: 5,
			SuccessThreshold: 2,
			OpenTimeoutMs:    30_000,
		},
	}
}
