package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "models", cfg.Model.RegistryDir)
	assert.Equal(t, "coefficients", cfg.Model.ReasonStrategy)
	assert.False(t, cfg.Model.RequireApproval)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
environment: staging
server:
  address: ":9090"
model:
  version: v2.0.0
  requireApproval: true
decision:
  approveThreshold: 0.72
  reviewThreshold: 0.58
`)
	require.NoError(t, os.WriteFile(path, data, 0600))

	t.Setenv("ALTCREDIT_MODEL_VERSION", "v2.1.0")
	t.Setenv("ALTCREDIT_API_KEY", "secret")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "v2.1.0", cfg.Model.Version, "env should win over file")
	assert.True(t, cfg.Model.RequireApproval)
	assert.Equal(t, "secret", cfg.API.Key)
	assert.InDelta(t, 0.72, cfg.Decision.ApproveThreshold, 1e-9)
}

func TestLoadRejectsInvertedThresholds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
decision:
  approveThreshold: 0.5
  reviewThreshold: 0.6
`), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
