package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gorecycler/recycler"
)

func writeTOML(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "recycler.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_decodesFields(t *testing.T) {
	path := writeTOML(t, `
max_capacity_per_thread = 1024
shared_capacity_factor = 4
ratio = 16
link_capacity = 32
max_delayed_queues_per_owner = 8
auto_sized_capacity = true
log_level = "warn"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.MaxCapacityPerThread)
	assert.Equal(t, 4, cfg.SharedCapacityFactor)
	assert.Equal(t, 16, cfg.Ratio)
	assert.Equal(t, 32, cfg.LinkCapacity)
	assert.Equal(t, 8, cfg.MaxDelayedQueuesPerOwner)
	assert.True(t, cfg.AutoSizedCapacity)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestConfig_OptionsSkipsZeroFields(t *testing.T) {
	var cfg Config
	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Empty(t, opts)
}

func TestConfig_OptionsRejectsUnknownLogLevel(t *testing.T) {
	cfg := Config{LogLevel: "verbose"}
	_, err := cfg.Options()
	assert.Error(t, err)
}

func TestConfig_OptionsAppliesExtra(t *testing.T) {
	cfg := Config{Ratio: 4}
	extra := recycler.WithLinkCapacity(64)
	opts, err := cfg.Options(extra)
	require.NoError(t, err)
	assert.Len(t, opts, 2)
}

func TestLoad_missingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
