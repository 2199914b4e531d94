package config

// ProviderCapsConfig is one provider's admission caps (spec.md §6:
// `admission.<provider>.rpm|tpm|concurrent|costPerMinute|costPerHour|costPerDay`).
type ProviderCapsConfig struct {
	RPM           int     `yaml:"rpm,omitempty"`
	TPM           int     `yaml:"tpm,omitempty"`
	Concurrent    int     `yaml:"concurrent,omitempty"`
	CostPerMinute float64 `yaml:"cost_per_minute,omitempty"`
	CostPerHour   float64 `yaml:"cost_per_hour,omitempty"`
	CostPerDay    float64 `yaml:"cost_per_day,omitempty"`
}

// GlobalCapsConfig is the system-wide admission cap (`admission.global.*`).
type GlobalCapsConfig struct {
	RPM        int     `yaml:"rpm,omitempty"`
	Concurrent int     `yaml:"concurrent,omitempty"`
	CostPerDay float64 `yaml:"cost_per_day,omitempty"`
}

// AdmissionConfig configures C3, the admission controller.
type AdmissionConfig struct {
	Providers       map[string]ProviderCapsConfig `yaml:"providers,omitempty"`
	Global          GlobalCapsConfig              `yaml:"global"`
	DegradationMode DegradationMode               `yaml:"degradation_mode"`
}

// DefaultAdmissionConfig returns the built-in admission defaults: no
// per-provider caps, a generous global cap, and queue-on-overflow.
func DefaultAdmissionConfig() *AdmissionConfig {
	return &AdmissionConfig{
		Providers: make(map[string]ProviderCapsConfig),
		Global: GlobalCapsConfig{
			RPM:        6000,
			Concurrent: 200,
			CostPerDay: 1000,
		},
		DegradationMode: DegradationQueue,
	}
}
