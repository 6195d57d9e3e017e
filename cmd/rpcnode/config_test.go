package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadNodeConfigMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := loadNodeConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, defaultNodeConfig(), cfg)
}

func TestLoadNodeConfigOverlaysYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr: \":9999\"\nmax_active_subscriptions: 5\n"), 0o644))

	cfg, err := loadNodeConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, 5, cfg.MaxActiveSubscriptions)
	// Unset fields keep their defaults.
	assert.Equal(t, defaultNodeConfig().QueueCapacityBytes, cfg.QueueCapacityBytes)
}

func TestPubsubConfigTranslation(t *testing.T) {
	cfg := defaultNodeConfig()
	pc := cfg.pubsubConfig()
	assert.Equal(t, cfg.MaxActiveSubscriptions, pc.MaxActiveSubscriptions)
	assert.Equal(t, cfg.QueueCapacityItems, pc.QueueCapacityItems)
	assert.Equal(t, cfg.QueueCapacityBytes, pc.QueueCapacityBytes)
	assert.Equal(t, cfg.IngestCapacity, pc.IngestCapacity)
}
