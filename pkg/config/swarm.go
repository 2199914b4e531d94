package config

// SwarmConfig configures the queen/worker coordination layer (C9),
// per spec.md §6's `swarm.*` options.
type SwarmConfig struct {
	Topology Topology `yaml:"topology"`

	// MaxWorkers upper-bounds registered workers.
	MaxWorkers int `yaml:"max_workers"`

	// FaultTolerance is f: the number of byzantine workers the swarm's
	// consensus rounds must tolerate. Requires MaxWorkers >= 3f+1,
	// checked by validator.go.
	FaultTolerance int `yaml:"fault_tolerance"`

	HeartbeatIntervalMs int `yaml:"heartbeat_interval_ms"`
	WorkerTimeoutMs     int `yaml:"worker_timeout_ms"`
	ElectionTimeoutMs   int `yaml:"election_timeout_ms"`
	ConsensusTimeoutMs  int `yaml:"consensus_timeout_ms"`
}

// DefaultSwarmConfig returns the built-in swarm defaults.
func DefaultSwarmConfig() *SwarmConfig {
	return &SwarmConfig{
		Topology:            TopologyHierarchical,
		MaxWorkers:          16,
		FaultTolerance:      1,
		HeartbeatIntervalMs: 5_000,
		WorkerTimeoutMs:     30_000,
		ElectionTimeoutMs:   300,
		ConsensusTimeoutMs:  10_000,
	}
}
