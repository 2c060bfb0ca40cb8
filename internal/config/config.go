// Package config provides configuration management for claudescope.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/goccy/go-json"
)

// Defaults.
const (
	DefaultPort = 37890
)

// Config holds the viewer configuration. Values come from Default(),
// overlaid by ~/.claudescope/settings.json, overlaid by CLAUDESCOPE_* env
// variables.
type Config struct {
	// Port the HTTP server listens on (localhost only).
	Port int `json:"CLAUDESCOPE_PORT"`
	// DataRoot is the directory of project session directories.
	DataRoot string `json:"CLAUDESCOPE_DATA_DIR"`
	// ProjectMapPath is the assistant host's configuration file carrying
	// the project-path mapping.
	ProjectMapPath string `json:"CLAUDESCOPE_PROJECT_MAP"`
	// MemoryFilePath is checked by the insights config-file score.
	MemoryFilePath string `json:"CLAUDESCOPE_MEMORY_FILE"`
	// RulesPath optionally overrides the compiled-in segmentation rules
	// with a YAML rule table.
	RulesPath string `json:"CLAUDESCOPE_RULES"`
	// CachePath is the sqlite file backing the AI summary cache.
	CachePath string `json:"CLAUDESCOPE_CACHE"`
	// Watch enables the data-root watcher feeding dashboard refresh events.
	Watch bool `json:"CLAUDESCOPE_WATCH"`
}

// DataDir returns the claudescope data directory (~/.claudescope).
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".claudescope")
}

// SettingsPath returns the settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), "settings.json")
}

// EnsureDataDir creates the data directory if missing.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0o750)
}

// Default returns the default configuration.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		Port:           DefaultPort,
		DataRoot:       filepath.Join(home, ".claude", "projects"),
		ProjectMapPath: filepath.Join(home, ".claude.json"),
		MemoryFilePath: filepath.Join(home, ".claude", "CLAUDE.md"),
		CachePath:      filepath.Join(DataDir(), "summaries.db"),
		Watch:          true,
	}
}

// Load builds the effective configuration. A missing or malformed settings
// file degrades to defaults; it is never an error.
func Load() (*Config, error) {
	cfg := Default()

	if data, err := os.ReadFile(SettingsPath()); err == nil {
		// Invalid JSON leaves the defaults untouched.
		_ = json.Unmarshal(data, cfg)
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CLAUDESCOPE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.Port = port
		}
	}
	if v := os.Getenv("CLAUDESCOPE_DATA_DIR"); v != "" {
		cfg.DataRoot = v
	}
	if v := os.Getenv("CLAUDESCOPE_PROJECT_MAP"); v != "" {
		cfg.ProjectMapPath = v
	}
	if v := os.Getenv("CLAUDESCOPE_MEMORY_FILE"); v != "" {
		cfg.MemoryFilePath = v
	}
	if v := os.Getenv("CLAUDESCOPE_RULES"); v != "" {
		cfg.RulesPath = v
	}
	if v := os.Getenv("CLAUDESCOPE_CACHE"); v != "" {
		cfg.CachePath = v
	}
	if v := os.Getenv("CLAUDESCOPE_WATCH"); v != "" {
		cfg.Watch = v != "0" && v != "false"
	}
}

var (
	global     *Config
	globalOnce sync.Once
)

// Get returns the process-wide configuration, loading it once.
func Get() *Config {
	globalOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			cfg = Default()
		}
		global = cfg
	})
	return global
}
