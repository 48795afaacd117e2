package agent

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"homefleet/app/config"
)

func testAgentConfig(t *testing.T) *config.AgentConfig {
	t.Helper()
	dataDir := t.TempDir()
	return &config.AgentConfig{
		DataDir:                 dataDir,
		ModulesDir:              filepath.Join(dataDir, "modules"),
		CentralURL:              "http://central.invalid:8470",
		Port:                    8471,
		HeartbeatIntervalSec:    30,
		RegistrationIntervalMin: 30,
		RequestTimeoutSec:       5,
	}
}

func TestBootstrapContinuesWithoutOfflineBuffer(t *testing.T) {
	cfg := testAgentConfig(t)
	// A directory squatting on the database path makes the sqlite open fail.
	require.NoError(t, os.Mkdir(filepath.Join(cfg.DataDir, "buffer.db"), 0o755))

	a, err := Bootstrap(cfg, zerolog.Nop())
	require.NoError(t, err, "a broken buffer must not abort startup")
	require.Nil(t, a.buffer)
	require.NotNil(t, a.heartbeat, "heartbeating continues without a buffer")
	require.NotNil(t, a.registration)
}

func TestBootstrapOpensOfflineBuffer(t *testing.T) {
	cfg := testAgentConfig(t)

	a, err := Bootstrap(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, a.buffer)
	require.NoError(t, a.buffer.Close())
}
