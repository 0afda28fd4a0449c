package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name          string
		content       string
		validate      func(*testing.T, *Config)
		expectedError bool
	}{
		{
			name: "NewFile_Defaults",
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 1.0, cfg.Analysis.BufferRadius.Km())
				assert.Equal(t, 1000, cfg.Analysis.PopulationThreshold)
				assert.Len(t, cfg.Layers, 10)
				assert.Len(t, cfg.Fires, 3)
				assert.Equal(t, "gestion", cfg.Mode)
			},
		},
		{
			name:    "ExistingFile_Override",
			content: "mode: ciudadania\nanalysis:\n  buffer_radius: 2km\n  population_threshold: 500\n",
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "ciudadania", cfg.Mode)
				assert.Equal(t, 2.0, cfg.Analysis.BufferRadius.Km())
				assert.Equal(t, 500, cfg.Analysis.PopulationThreshold)
				assert.Equal(t, "n_per", cfg.Analysis.PopulationField, "unset keys keep defaults")
			},
		},
		{
			name:          "InvalidYAML",
			content:       "analysis: [",
			expectedError: true,
		},
		{
			name:          "InvalidClassification",
			content:       "layers:\n  - id: x\n    name: X\n    classification: high\n    source: {kind: geojson, path: x.geojson}\n",
			expectedError: true,
		},
		{
			name:          "InvalidMode",
			content:       "mode: turista\n",
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "opintel.yaml")
			if tt.content != "" {
				require.NoError(t, os.WriteFile(configPath, []byte(tt.content), 0o644))
			}

			cfg, err := Load(configPath)
			if tt.expectedError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validate(t, cfg)

			_, statErr := os.Stat(configPath)
			assert.NoError(t, statErr, "config file should exist after Load")
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("OPINTEL_DATA_DIR=/srv/capas\n"), 0o644))
	t.Setenv("OPINTEL_ADDRESS", "0.0.0.0:9000")
	t.Setenv("OPINTEL_MODE", "CIUDADANIA")

	// godotenv sets variables with os.Setenv; make sure the test cleans up.
	t.Cleanup(func() { os.Unsetenv("OPINTEL_DATA_DIR") })

	cfg, err := Load(filepath.Join(dir, "opintel.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Address)
	assert.Equal(t, "ciudadania", cfg.Mode)
	assert.Equal(t, "/srv/capas", cfg.DataDir)

	t.Setenv("OPINTEL_MODE", " Gestión ")
	cfg, err = Load(filepath.Join(dir, "opintel.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "gestión", cfg.Mode)
}

func TestValidate(t *testing.T) {
	src := SourceConfig{Kind: "geojson", Path: "a.geojson"}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"empty name", func(c *Config) { c.Layers[1].Name = "" }, "Name"},
		{"duplicate id", func(c *Config) { c.Layers[2].ID = c.Layers[1].ID }, "unique"},
		{"two weighted", func(c *Config) { c.Layers[1].Weighted = true }, "weighted"},
		{"bad kind", func(c *Config) { c.Layers[1].Source.Kind = "kml" }, "Kind"},
		{"sqlite without table", func(c *Config) {
			c.Layers = append(c.Layers, LayerConfig{ID: "x", Name: "X", Classification: "warning", Source: SourceConfig{Kind: "sqlite", Path: "x.db"}})
		}, "Table"},
		{"sqlite bad table", func(c *Config) {
			c.Layers = append(c.Layers, LayerConfig{ID: "x", Name: "X", Classification: "warning", Source: SourceConfig{Kind: "sqlite", Path: "x.db", Table: "x; DROP"}})
		}, "sqlident"},
		{"sqlite ok", func(c *Config) {
			c.Layers = append(c.Layers, LayerConfig{ID: "x", Name: "X", Classification: "warning", Source: SourceConfig{Kind: "sqlite", Path: "x.db", Table: "hydrants"}})
		}, ""},
		{"unknown mode", func(c *Config) { c.Mode = "admin" }, "Mode"},
		{"accented management mode", func(c *Config) { c.Mode = "gestión" }, ""},
		{"accented citizen mode", func(c *Config) { c.Mode = "ciudadanía" }, ""},
		{"zero radius", func(c *Config) { c.Analysis.BufferRadius = 0 }, "BufferRadius"},
		{"duplicate fire year", func(c *Config) { c.Fires = append(c.Fires, FireConfig{Year: 2023, Source: src}) }, "unique"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), "error %q should mention %q", err, tt.wantErr)
		})
	}
}

func TestResolvePath(t *testing.T) {
	cfg := &Config{DataDir: "data"}
	assert.Equal(t, filepath.Join("data", "a.js"), cfg.ResolvePath("a.js"))
	assert.Equal(t, "/abs/a.js", cfg.ResolvePath("/abs/a.js"))
	assert.Equal(t, "", cfg.ResolvePath(""))
}

func TestGenerateDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "opintel.yaml")
	require.NoError(t, GenerateDefault(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "buffer_radius: 1km")
	assert.Contains(t, content, "# Options: gestion")
	assert.Contains(t, content, "id: substations")

	// Existing file is left alone.
	require.NoError(t, os.WriteFile(path, []byte("mode: gestion\n"), 0o644))
	require.NoError(t, GenerateDefault(path))
	data, _ = os.ReadFile(path)
	assert.Equal(t, "mode: gestion\n", string(data))
}
