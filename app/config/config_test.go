package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope", "config.yaml"))
	require.Error(t, err) // explicit file must exist

	cfg, err = Load("")
	require.NoError(t, err)

	assert.Equal(t, "rocksteady", cfg.Agent.CentralHostname)
	assert.Equal(t, 60, cfg.Agent.HeartbeatIntervalSec)
	assert.Equal(t, 5, cfg.Central.HeartbeatTimeoutMin)
	assert.Equal(t, 15, cfg.Central.StaleThresholdMin)
	assert.Equal(t, 7, cfg.Central.MetricsRetentionDays)
	assert.Equal(t, 30, cfg.Central.EventsRetentionDays)
}

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
agent:
  central_url: http://rocksteady:8470
  heartbeat_interval_sec: 30
central:
  heartbeat_timeout_min: 10
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://rocksteady:8470", cfg.Agent.CentralURL)
	assert.Equal(t, 30, cfg.Agent.HeartbeatIntervalSec)
	assert.Equal(t, 10, cfg.Central.HeartbeatTimeoutMin)
	// Untouched keys keep their defaults.
	assert.Equal(t, 7, cfg.Central.MetricsRetentionDays)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agent:\n  port: 9000\n"), 0o644))

	t.Setenv("HOMEFLEET_AGENT_PORT", "9100")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Agent.Port)
}

func TestValidateRejectsBadIntervals(t *testing.T) {
	cfg := Default()
	cfg.Agent.HeartbeatIntervalSec = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Central.MetricsRetentionDays = -1
	assert.Error(t, cfg.Validate())
}
