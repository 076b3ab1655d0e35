// Package config loads the YAML settings file and the repository list
// used by batch scans.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings holds the operator-tunable knobs. Zero values are replaced
// with defaults on load so a partial file is fine.
type Settings struct {
	// DefaultRegistry is prepended to references without a registry host.
	DefaultRegistry string `yaml:"defaultRegistry"`
	// DBType selects the store backend, "sqlite" or "postgres".
	DBType string `yaml:"dbType"`
	// DBPath is the SQLite database file path.
	DBPath string `yaml:"dbPath"`
	// ScanTimeout bounds a single image scan end to end.
	ScanTimeout time.Duration `yaml:"scanTimeout"`
	// ToolTimeout bounds one external tool invocation.
	ToolTimeout time.Duration `yaml:"toolTimeout"`
	// SizeThresholds splits images into size categories.
	SizeThresholds SizeThresholds `yaml:"sizeThresholds"`
	// Postgres connection parameters, used when DBType is "postgres".
	Postgres PostgresSettings `yaml:"postgres"`
}

// SizeThresholds are absolute byte boundaries between size categories.
// Images below MinimalMax are minimal, below BalancedMax balanced,
// everything else full.
type SizeThresholds struct {
	MinimalMax  int64 `yaml:"minimalMax"`
	BalancedMax int64 `yaml:"balancedMax"`
}

// PostgresSettings holds the PostgreSQL connection parameters.
type PostgresSettings struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

// DefaultSettings returns the settings used when no file is given.
func DefaultSettings() Settings {
	return Settings{
		DefaultRegistry: "docker.io",
		DBType:          "sqlite",
		DBPath:          "basescout.db",
		ScanTimeout:     10 * time.Minute,
		ToolTimeout:     5 * time.Minute,
		SizeThresholds: SizeThresholds{
			MinimalMax:  100 << 20,
			BalancedMax: 300 << 20,
		},
		Postgres: PostgresSettings{
			Host: "localhost",
			Port: "5432",
		},
	}
}

// LoadSettings reads and decodes a YAML settings file, filling unset
// fields from the defaults.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		return settings, fmt.Errorf("failed to read settings file: %w", err)
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("failed to parse settings file: %w", err)
	}
	if err := settings.validate(); err != nil {
		return settings, err
	}
	return settings, nil
}

func (s Settings) validate() error {
	if s.DBType != "sqlite" && s.DBType != "postgres" {
		return fmt.Errorf("invalid dbType %q, expected sqlite or postgres", s.DBType)
	}
	if s.SizeThresholds.MinimalMax <= 0 || s.SizeThresholds.BalancedMax <= s.SizeThresholds.MinimalMax {
		return fmt.Errorf("size thresholds must satisfy 0 < minimalMax < balancedMax")
	}
	if s.ScanTimeout <= 0 || s.ToolTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}
