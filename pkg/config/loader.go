package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// SwarmdYAMLConfig represents the complete swarmd.yaml file structure.
type SwarmdYAMLConfig struct {
	Swarm     *SwarmConfig     `yaml:"swarm"`
	Admission *AdmissionConfig `yaml:"admission"`
	Queue     *QueueConfig     `yaml:"queue"`
	Router    *RouterConfig    `yaml:"router"`
	Task      *TaskConfig      `yaml:"task"`
	Retention *RetentionConfig `yaml:"retention"`
	API       *APIConfig       `yaml:"api"`
	Notify    *NotifyConfig    `yaml:"notify"`
}

// ProvidersYAMLConfig represents the complete providers.yaml file structure.
type ProvidersYAMLConfig struct {
	Providers map[string]ProviderConfig `yaml:"providers"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load YAML files from configDir
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge built-in + user-defined provider configurations
//  5. Merge user-provided section configs on top of built-in defaults
//  6. Build typed registries
//  7. Validate all configuration (including cross-references)
//  8. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("configuration initialized", "providers", stats.Providers)

	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	swarmdYAML, err := loader.loadSwarmdYAML()
	if err != nil {
		return nil, NewLoadError("swarmd.yaml", err)
	}

	userProviders, err := loader.loadProvidersYAML()
	if err != nil {
		return nil, NewLoadError("providers.yaml", err)
	}

	builtin := GetBuiltinConfig()
	providers := mergeProviders(builtin.Providers, userProviders)
	providerRegistry := NewProviderRegistry(providers)

	swarmCfg := DefaultSwarmConfig()
	if swarmdYAML.Swarm != nil {
		if err := mergo.Merge(swarmCfg, swarmdYAML.Swarm, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge swarm config: %w", err)
		}
	}

	admissionCfg := DefaultAdmissionConfig()
	if swarmdYAML.Admission != nil {
		if err := mergo.Merge(admissionCfg, swarmdYAML.Admission, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge admission config: %w", err)
		}
	}

	queueCfg := DefaultQueueConfig()
	if swarmdYAML.Queue != nil {
		if err := mergo.Merge(queueCfg, swarmdYAML.Queue, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge queue config: %w", err)
		}
	}

	routerCfg := DefaultRouterConfig()
	if swarmdYAML.Router != nil {
		if err := mergo.Merge(routerCfg, swarmdYAML.Router, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge router config: %w", err)
		}
	}

	taskCfg := DefaultTaskConfig()
	if swarmdYAML.Task != nil {
		if err := mergo.Merge(taskCfg, swarmdYAML.Task, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge task config: %w", err)
		}
	}

	retentionCfg := DefaultRetentionConfig()
	if swarmdYAML.Retention != nil {
		if err := mergo.Merge(retentionCfg, swarmdYAML.Retention, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge retention config: %w", err)
		}
	}

	apiCfg := DefaultAPIConfig()
	if swarmdYAML.API != nil {
		if err := mergo.Merge(apiCfg, swarmdYAML.API, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge api config: %w", err)
		}
	}

	notifyCfg := DefaultNotifyConfig()
	if swarmdYAML.Notify != nil {
		if err := mergo.Merge(notifyCfg, swarmdYAML.Notify, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge notify config: %w", err)
		}
	}

	return &Config{
		configDir: configDir,
		Swarm:     swarmCfg,
		Admission: admissionCfg,
		Queue:     queueCfg,
		Router:    routerCfg,
		Task:      taskCfg,
		Retention: retentionCfg,
		API:       apiCfg,
		Notify:    notifyCfg,
		Providers: providerRegistry,
	}, nil
}

func validate(cfg *Config) error {
	return NewValidator(cfg).ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	// Expand environment variables before parsing; on parse/execution
	// errors ExpandEnv passes the original bytes through so the YAML
	// parser (not this step) reports the clearer error.
	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadSwarmdYAML() (*SwarmdYAMLConfig, error) {
	var cfg SwarmdYAMLConfig
	if err := l.loadYAML("swarmd.yaml", &cfg); err != nil {
		if isNotFound(err) {
			return &SwarmdYAMLConfig{}, nil
		}
		return nil, err
	}
	return &cfg, nil
}

func (l *configLoader) loadProvidersYAML() (map[string]ProviderConfig, error) {
	var cfg ProvidersYAMLConfig
	cfg.Providers = make(map[string]ProviderConfig)
	if err := l.loadYAML("providers.yaml", &cfg); err != nil {
		if isNotFound(err) {
			return cfg.Providers, nil
		}
		return nil, err
	}
	return cfg.Providers, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrConfigNotFound)
}
