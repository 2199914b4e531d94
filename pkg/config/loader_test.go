package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFiles(t *testing.T, swarmdYAML, providersYAML string) string {
	t.Helper()
	dir := t.TempDir()
	if swarmdYAML != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "swarmd.yaml"), []byte(swarmdYAML), 0o644))
	}
	if providersYAML != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "providers.yaml"), []byte(providersYAML), 0o644))
	}
	return dir
}

func TestInitialize_LoadsDefaultsWhenFilesAbsent(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, TopologyHierarchical, cfg.Swarm.Topology)
	assert.True(t, cfg.Providers.Len() >= 2) // built-in providers survive
}

func TestInitialize_UserYAMLOverridesDefaults(t *testing.T) {
	dir := writeConfigFiles(t, `
swarm:
  topology: mesh
  max_workers: 10
  fault_tolerance: 3
admission:
  degradation_mode: reject
`, `
providers:
  my-provider:
    type: openai-compat
    model: gpt-4o-mini
    api_key_env: MY_KEY
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, Topology("mesh"), cfg.Swarm.Topology)
	assert.Equal(t, 10, cfg.Swarm.MaxWorkers)
	assert.Equal(t, DegradationReject, cfg.Admission.DegradationMode)
	assert.True(t, cfg.Providers.Has("my-provider"))
	p, err := cfg.Providers.Get("my-provider")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", p.Model)
}

func TestInitialize_InvalidCrossReferenceFailsValidation(t *testing.T) {
	dir := writeConfigFiles(t, `
router:
  fallback_chain: ["ghost-provider"]
`, "")

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
}

func TestInitialize_SwarmFaultToleranceViolationFails(t *testing.T) {
	dir := writeConfigFiles(t, `
swarm:
  max_workers: 3
  fault_tolerance: 2
`, "")

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
}

func TestInitialize_EnvVarExpansionInProvidersYAML(t *testing.T) {
	os.Setenv("SWARMD_TEST_MODEL", "gpt-4o-test")
	defer os.Unsetenv("SWARMD_TEST_MODEL")

	dir := writeConfigFiles(t, "", `
providers:
  expanded:
    type: openai-compat
    model: ${SWARMD_TEST_MODEL}
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	p, err := cfg.Providers.Get("expanded")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-test", p.Model)
}
