// Package config loads usdlive settings from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the workspace directory.
const FileName = "usdlive.yaml"

// Config holds all usdlive settings.
type Config struct {
	Workspace WorkspaceConfig `yaml:"workspace"`
	Compose   ComposeConfig   `yaml:"compose"`
	Preview   PreviewConfig   `yaml:"preview"`
	Script    ScriptConfig    `yaml:"script"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// WorkspaceConfig configures the scene file store.
type WorkspaceConfig struct {
	Dir      string `yaml:"dir"`      // empty means in-memory
	Debounce string `yaml:"debounce"` // watcher debounce, e.g. "200ms"
}

// ComposeConfig configures reference resolution.
type ComposeConfig struct {
	MaxReferenceDepth int `yaml:"max_reference_depth"`
}

// PreviewConfig configures tessellation.
type PreviewConfig struct {
	Kernel    string  `yaml:"kernel"` // sdfx, or manifold in binaries built with -tags=manifold
	MeshCells int     `yaml:"mesh_cells"`
	Time      float64 `yaml:"time"` // default time code
}

// ScriptConfig configures the script engine.
type ScriptConfig struct {
	Timeout string `yaml:"timeout"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	File   string `yaml:"file"`   // optional extra output path
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Workspace: WorkspaceConfig{
			Debounce: "200ms",
		},
		Compose: ComposeConfig{
			MaxReferenceDepth: 32,
		},
		Preview: PreviewConfig{
			Kernel:    "sdfx",
			MeshCells: 64,
		},
		Script: ScriptConfig{
			Timeout: "5s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies USDLIVE_* environment variables.
func (c *Config) applyEnvOverrides() error {
	if dir := os.Getenv("USDLIVE_WORKSPACE"); dir != "" {
		c.Workspace.Dir = dir
	}
	if level := os.Getenv("USDLIVE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if cells := os.Getenv("USDLIVE_MESH_CELLS"); cells != "" {
		n, err := strconv.Atoi(cells)
		if err != nil {
			return fmt.Errorf("USDLIVE_MESH_CELLS: %w", err)
		}
		c.Preview.MeshCells = n
	}
	return nil
}

// Validate checks that every setting is usable.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.DebounceDuration(); err != nil {
		errs = append(errs, fmt.Errorf("workspace.debounce: %w", err))
	}
	if _, err := c.ScriptTimeout(); err != nil {
		errs = append(errs, fmt.Errorf("script.timeout: %w", err))
	}
	if c.Compose.MaxReferenceDepth < 1 {
		errs = append(errs, fmt.Errorf("compose.max_reference_depth must be at least 1, got %d", c.Compose.MaxReferenceDepth))
	}
	if c.Preview.MeshCells < 8 {
		errs = append(errs, fmt.Errorf("preview.mesh_cells must be at least 8, got %d", c.Preview.MeshCells))
	}
	switch c.Preview.Kernel {
	case "sdfx", "manifold":
	default:
		errs = append(errs, fmt.Errorf("preview.kernel must be sdfx or manifold, got %q", c.Preview.Kernel))
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// DebounceDuration parses Workspace.Debounce.
func (c *Config) DebounceDuration() (time.Duration, error) {
	return positiveDuration(c.Workspace.Debounce)
}

// ScriptTimeout parses Script.Timeout.
func (c *Config) ScriptTimeout() (time.Duration, error) {
	return positiveDuration(c.Script.Timeout)
}

func positiveDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", s)
	}
	return d, nil
}
