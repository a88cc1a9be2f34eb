package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, "plugins", cfg.PluginDir)
	assert.Equal(t, uint64(1), cfg.Difficulty)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cyclemine.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"plugin_dir": "/opt/plugins",
		"plugin_name": "cuckoo_simple_30.so",
		"parameters": {"NUM_THREADS": 4},
		"difficulty": 10,
		"api_addr": ":8080",
		"log_level": "debug"
	}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/plugins", cfg.PluginDir)
	assert.Equal(t, "cuckoo_simple_30.so", cfg.PluginName)
	assert.Equal(t, uint32(4), cfg.Parameters["NUM_THREADS"])
	assert.Equal(t, uint64(10), cfg.Difficulty)
	assert.Equal(t, ":8080", cfg.APIAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cyclemine.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"plugin_dir": "/from/file", "difficulty": 5}`), 0o644))

	t.Setenv("CYCLEMINE_PLUGIN_DIR", "/from/env")
	t.Setenv("CYCLEMINE_DIFFICULTY", "99")
	t.Setenv("CYCLEMINE_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.PluginDir)
	assert.Equal(t, uint64(99), cfg.Difficulty)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestResolvedPluginPath(t *testing.T) {
	cfg := &Config{PluginDir: "/opt/plugins", PluginName: "lean.so"}
	path, err := cfg.ResolvedPluginPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/opt/plugins", "lean.so"), path)

	cfg.PluginPath = "/direct/path.so"
	path, err = cfg.ResolvedPluginPath()
	require.NoError(t, err)
	assert.Equal(t, "/direct/path.so", path)

	_, err = (&Config{}).ResolvedPluginPath()
	assert.Error(t, err)
}
