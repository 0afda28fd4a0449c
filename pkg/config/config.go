package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
	Mode     string         `yaml:"mode" validate:"omitempty,oneof=gestion gestión ciudadania ciudadanía management citizen"`
	DataDir  string         `yaml:"data_dir"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Layers   []LayerConfig  `yaml:"layers" validate:"unique=ID,dive"`
	Fires    []FireConfig   `yaml:"fires" validate:"unique=Year,dive"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address         string   `yaml:"address"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// AnalysisConfig holds the tunables of the impact analysis.
type AnalysisConfig struct {
	BufferRadius        Distance `yaml:"buffer_radius" validate:"gt=0"`
	PopulationThreshold int      `yaml:"population_threshold" validate:"gte=0"`
	PowerLayer          string   `yaml:"power_layer"`
	PopulationField     string   `yaml:"population_field" validate:"required"`
	HouseholdField      string   `yaml:"household_field" validate:"required"`
	QuadSegs            int      `yaml:"quad_segs" validate:"gte=0"`
}

// SourceConfig declares where a layer's features come from.
type SourceConfig struct {
	Kind  string `yaml:"kind" validate:"required,oneof=geojson shapefile sqlite"`
	Path  string `yaml:"path" validate:"required"`
	Table string `yaml:"table,omitempty" validate:"required_if=Kind sqlite,sqlident"`
}

// LayerConfig declares one exposure layer of the catalog.
type LayerConfig struct {
	ID             string       `yaml:"id" validate:"required"`
	Name           string       `yaml:"name" validate:"required"`
	Classification string       `yaml:"classification" validate:"required,oneof=critical warning"`
	Weighted       bool         `yaml:"weighted,omitempty"`
	Source         SourceConfig `yaml:"source"`
}

// FireConfig declares a selectable fire-affected layer.
type FireConfig struct {
	Year   int          `yaml:"year" validate:"gt=0"`
	Source SourceConfig `yaml:"source"`
}

// Default analysis tunables.
const (
	DefaultBufferRadius        = Distance(1000)
	DefaultPopulationThreshold = 1000
	DefaultPowerLayer          = "substations"
)

// DefaultConfig returns the default configuration, mirroring the layers of the
// regional fire map.
func DefaultConfig() *Config {
	js := func(name string) SourceConfig {
		return SourceConfig{Kind: "geojson", Path: name + ".js"}
	}

	return &Config{
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
		},
		Server: ServerConfig{
			Address:         "localhost:8040",
			ReadTimeout:     Duration(15 * time.Second),
			WriteTimeout:    Duration(15 * time.Second),
			ShutdownTimeout: Duration(5 * time.Second),
		},
		Mode:    "gestion",
		DataDir: "./data",
		Analysis: AnalysisConfig{
			BufferRadius:        DefaultBufferRadius,
			PopulationThreshold: DefaultPopulationThreshold,
			PowerLayer:          DefaultPowerLayer,
			PopulationField:     "n_per",
			HouseholdField:      "n_hog",
		},
		Layers: []LayerConfig{
			{ID: "population", Name: "Entidades 2024", Classification: "warning", Weighted: true, Source: js("Entidades_2024_8")},
			{ID: "schools", Name: "Escuelas", Classification: "critical", Source: js("Escuelas_14")},
			{ID: "substations", Name: "Subestaciones Eléc.", Classification: "critical", Source: js("Subestacioneselectricas_18")},
			{ID: "water", Name: "APR (Agua)", Classification: "warning", Source: js("AguaPotable_15")},
			{ID: "roads", Name: "Red Vial (Tramos)", Classification: "warning", Source: js("Red_vial_10")},
			{ID: "gas_pipeline", Name: "Gasoducto", Classification: "critical", Source: js("Gasoducto_11")},
			{ID: "oil_pipeline", Name: "Oleoducto", Classification: "critical", Source: js("Oleoducto_12")},
			{ID: "power_lines", Name: "Líneas Eléctricas", Classification: "critical", Source: js("LneadeTransmisinelectrica_13")},
			{ID: "cell_antennas", Name: "Antenas Celular", Classification: "warning", Source: js("Antenasdecelular_16")},
			{ID: "fuel_storage", Name: "Alm. Combustibles", Classification: "critical", Source: js("AlmacenamientodeCombustibles_17")},
		},
		Fires: []FireConfig{
			{Year: 2026, Source: js("Area_quemada_2026_3")},
			{Year: 2023, Source: js("Area_incendiada2023_5")},
			{Year: 2017, Source: js("Area_incendiada_2017_7")},
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// A .env file next to the config is loaded first; OPINTEL_* variables override the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := loadDotEnv(filepath.Join(dir, ".env")); err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides selected settings from the environment. Existing process
// variables win over .env entries because godotenv never overwrites them.
func applyEnv(cfg *Config) {
	if v := os.Getenv("OPINTEL_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("OPINTEL_MODE"); v != "" {
		cfg.Mode = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("OPINTEL_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("OPINTEL_LOG_LEVEL"); v != "" {
		cfg.Log.Server.Level = v
	}
}

// ResolvePath returns p joined to the data directory unless it is absolute.
func (c *Config) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) || c.DataDir == "" {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Operational Intelligence Configuration
# --------------------------------------
# Supported Units:
#   Duration: ns, us, ms, s, m, h, d (day), w (week)
#   Distance: m (meters), km (kilometers), nm (nautical miles)

`)
	data = append(header, data...)

	reMode := regexp.MustCompile(`(?m)^mode:`)
	data = reMode.ReplaceAll(data, []byte("# Options: gestion (management), ciudadania (citizen)\nmode:"))

	reKind := regexp.MustCompile(`(?m)^layers:`)
	data = reKind.ReplaceAll(data, []byte("# Source kinds: geojson, shapefile, sqlite. Classifications: critical, warning.\nlayers:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return Save(path, DefaultConfig())
}
