package config

// APIConfig configures A3's HTTP surface.
type APIConfig struct {
	ListenAddr       string   `yaml:"listen_addr"`
	AllowedWSOrigins []string `yaml:"allowed_ws_origins"`
}

// DefaultAPIConfig returns the built-in API defaults.
func DefaultAPIConfig() *APIConfig {
	return &APIConfig{ListenAddr: ":8080"}
}

// NotifyConfig configures A5's Slack sink.
type NotifyConfig struct {
	Enabled  bool   `yaml:"enabled"`
	TokenEnv string `yaml:"token_env,omitempty"`
	Channel  string `yaml:"channel,omitempty"`
}

// DefaultNotifyConfig returns the built-in notify defaults (disabled).
func DefaultNotifyConfig() *NotifyConfig {
	return &NotifyConfig{Enabled: false, TokenEnv: "SLACK_BOT_TOKEN"}
}
