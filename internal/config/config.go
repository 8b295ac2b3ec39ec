package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Default values for configuration fields.
const (
	DefaultConfigFile      = "cmsmigrate.yml"
	DefaultMigrationsDir   = "./migrations"
	DefaultTargetPGVersion = 14
	DefaultFormat          = "text"
)

// Config holds the application configuration loaded from file, environment, and flags.
type Config struct {
	DatabaseURL     string
	MigrationsDir   string
	TargetPGVersion int
	Format          string
}

// yamlConfig is the raw YAML file representation.
type yamlConfig struct {
	DatabaseURL     string `yaml:"database_url"`
	MigrationsDir   string `yaml:"migrations_dir"`
	TargetPGVersion int    `yaml:"target_pg_version"`
	Format          string `yaml:"format"`
}

// New returns a Config populated with default values.
func New() *Config {
	return &Config{
		MigrationsDir:   DefaultMigrationsDir,
		TargetPGVersion: DefaultTargetPGVersion,
		Format:          DefaultFormat,
	}
}

// Load reads a YAML configuration file and returns a Config.
// If allowMissing is true and the file does not exist, defaults are returned.
func Load(path string, allowMissing bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && allowMissing {
			return New(), nil
		}

		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var raw yamlConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return fromYAML(&raw), nil
}

// fromYAML converts the raw YAML representation to a Config with defaults applied.
func fromYAML(raw *yamlConfig) *Config {
	cfg := New()

	if raw.DatabaseURL != "" {
		cfg.DatabaseURL = raw.DatabaseURL
	}

	if raw.MigrationsDir != "" {
		cfg.MigrationsDir = raw.MigrationsDir
	}

	if raw.TargetPGVersion != 0 {
		cfg.TargetPGVersion = raw.TargetPGVersion
	}

	if raw.Format != "" {
		cfg.Format = raw.Format
	}

	return cfg
}

// MergeEnv overrides config fields from CMSMIGRATE_* environment variables.
func MergeEnv(cfg *Config) {
	if v := os.Getenv("CMSMIGRATE_DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}

	if v := os.Getenv("CMSMIGRATE_MIGRATIONS_DIR"); v != "" {
		cfg.MigrationsDir = v
	}

	if v := os.Getenv("CMSMIGRATE_TARGET_PG_VERSION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TargetPGVersion = n
		}
	}
}
