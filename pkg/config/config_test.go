package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	d, err := cfg.DebounceDuration()
	require.NoError(t, err)
	assert.Equal(t, 200*time.Millisecond, d)

	timeout, err := cfg.ScriptTimeout()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, timeout)

	assert.Equal(t, 32, cfg.Compose.MaxReferenceDepth)
	assert.Equal(t, 64, cfg.Preview.MeshCells)
	assert.Equal(t, "sdfx", cfg.Preview.Kernel)
	assert.Empty(t, cfg.Workspace.Dir)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(`
workspace:
  dir: /tmp/scenes
preview:
  mesh_cells: 32
logging:
  level: debug
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/scenes", cfg.Workspace.Dir)
	assert.Equal(t, 32, cfg.Preview.MeshCells)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Untouched sections keep their defaults.
	assert.Equal(t, "200ms", cfg.Workspace.Debounce)
	assert.Equal(t, "5s", cfg.Script.Timeout)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("workspace: [unclosed"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)
	cfg := Default()
	cfg.Workspace.Dir = "/data/scenes"
	cfg.Preview.Time = 12

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("workspace and level", func(t *testing.T) {
		t.Setenv("USDLIVE_WORKSPACE", "/env/scenes")
		t.Setenv("USDLIVE_LOG_LEVEL", "warn")
		t.Setenv("USDLIVE_MESH_CELLS", "")

		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "/env/scenes", cfg.Workspace.Dir)
		assert.Equal(t, "warn", cfg.Logging.Level)
	})

	t.Run("mesh cells", func(t *testing.T) {
		t.Setenv("USDLIVE_MESH_CELLS", "128")

		cfg := Default()
		require.NoError(t, cfg.applyEnvOverrides())
		assert.Equal(t, 128, cfg.Preview.MeshCells)
	})

	t.Run("mesh cells not a number", func(t *testing.T) {
		t.Setenv("USDLIVE_MESH_CELLS", "lots")

		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "USDLIVE_MESH_CELLS")
	})

	t.Run("env beats file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), FileName)
		require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: error\n"), 0644))
		t.Setenv("USDLIVE_LOG_LEVEL", "debug")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad debounce", func(c *Config) { c.Workspace.Debounce = "soon" }, "workspace.debounce"},
		{"negative timeout", func(c *Config) { c.Script.Timeout = "-1s" }, "script.timeout"},
		{"zero depth", func(c *Config) { c.Compose.MaxReferenceDepth = 0 }, "max_reference_depth"},
		{"tiny mesh", func(c *Config) { c.Preview.MeshCells = 2 }, "mesh_cells"},
		{"unknown kernel", func(c *Config) { c.Preview.Kernel = "cgal" }, "preview.kernel"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Compose.MaxReferenceDepth = 0
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_reference_depth")
	assert.Contains(t, err.Error(), "logging.format")
}
