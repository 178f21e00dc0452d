// Package config provides configuration loading from YAML files.
package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Library LibraryConfig `yaml:"library"`
	Player  PlayerConfig  `yaml:"player"`
	Vault   VaultConfig   `yaml:"vault"`
	Log     LogConfig     `yaml:"log"`
}

// LibraryConfig represents library and persistence configuration.
type LibraryConfig struct {
	DataDir   string `yaml:"data_dir" default:"data"`
	Namespace string `yaml:"namespace" default:"thedrop"`
	ImportDir string `yaml:"import_dir"`
}

// PlayerConfig represents playback configuration.
type PlayerConfig struct {
	Volume float64 `yaml:"volume" default:"0.85" validate:"gte=0"`
	Rate   float64 `yaml:"rate" default:"1" validate:"gt=0"`
}

// VaultConfig represents the remote storage collaborator configuration.
// Settings are collaborator-specific and decoded by the vault client.
type VaultConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Output string `yaml:"output" default:"stdout"`
	Level  string `yaml:"level" default:"info"`
	File   string `yaml:"file"`
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults so the player runs without any configuration. Environment
// variables take precedence over file values for credentials.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	case os.IsNotExist(err):
		// defaults only
	default:
		return nil, errors.Wrap(err, "failed to read config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("VAULT_ENDPOINT"); v != "" {
		c.ensureVaultSettings()["endpoint"] = v
	}
	if v := os.Getenv("VAULT_ACCESS_KEY"); v != "" {
		c.ensureVaultSettings()["access_key"] = v
	}
	if v := os.Getenv("VAULT_SECRET_KEY"); v != "" {
		c.ensureVaultSettings()["secret_key"] = v
	}
}

func (c *Config) ensureVaultSettings() map[string]any {
	if c.Vault.Settings == nil {
		c.Vault.Settings = make(map[string]any)
	}
	return c.Vault.Settings
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if c.Vault.Enabled && len(c.Vault.Settings) == 0 {
		return errors.New("vault is enabled but has no settings")
	}

	return nil
}
