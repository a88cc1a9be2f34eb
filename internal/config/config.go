// Package config loads the host configuration from a JSON file, with
// environment variable overrides (CYCLEMINE_*) applied on top.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config is the full host configuration.
type Config struct {
	// PluginDir is the directory scanned for solver libraries.
	PluginDir string `json:"plugin_dir"`

	// PluginName selects a plugin inside PluginDir by file name. Either
	// PluginName or PluginPath must be set to mine.
	PluginName string `json:"plugin_name"`

	// PluginPath, when set, overrides PluginDir/PluginName with a full
	// library path.
	PluginPath string `json:"plugin_path"`

	// Parameters are applied to the plugin in full or not at all.
	Parameters map[string]uint32 `json:"parameters,omitempty"`

	// Difficulty is the target an accepted solution must meet.
	Difficulty uint64 `json:"difficulty"`

	// APIAddr is the listen address of the status API. Empty disables it.
	APIAddr string `json:"api_addr"`

	// LogLevel sets the zap level (debug, info, warn, error).
	LogLevel string `json:"log_level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		PluginDir:  "plugins",
		Parameters: map[string]uint32{},
		Difficulty: 1,
		LogLevel:   "info",
	}
}

// Load reads the JSON config at path (skipped when path is empty or the file
// does not exist) and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// fall through to env overrides
		default:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CYCLEMINE_PLUGIN_DIR"); v != "" {
		cfg.PluginDir = v
	}
	if v := os.Getenv("CYCLEMINE_PLUGIN_NAME"); v != "" {
		cfg.PluginName = v
	}
	if v := os.Getenv("CYCLEMINE_PLUGIN_PATH"); v != "" {
		cfg.PluginPath = v
	}
	if v := os.Getenv("CYCLEMINE_DIFFICULTY"); v != "" {
		if d, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Difficulty = d
		}
	}
	if v := os.Getenv("CYCLEMINE_API_ADDR"); v != "" {
		cfg.APIAddr = v
	}
	if v := os.Getenv("CYCLEMINE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// ResolvedPluginPath returns the library path to load, or an error when the
// configuration does not name one.
func (c *Config) ResolvedPluginPath() (string, error) {
	if c.PluginPath != "" {
		return c.PluginPath, nil
	}
	if c.PluginName == "" {
		return "", fmt.Errorf("config names no plugin: set plugin_path or plugin_name")
	}
	return filepath.Join(c.PluginDir, c.PluginName), nil
}
