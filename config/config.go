// Package config loads and validates the launchpadd configuration from JSON
// under the node home, with an embedded default used on first run.
package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	configSubdir   = "config"
	configFileName = "launchpadd_config.json"

	dirPermissions  = 0o750
	filePermissions = 0o600
)

//go:embed default_config.json
var defaultConfigJSON []byte

// Default returns the embedded default configuration.
func Default() (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(defaultConfigJSON, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse embedded default config: %w", err)
	}
	return &cfg, nil
}

// Load reads <basePath>/config/launchpadd_config.json. A missing file is not
// an error: the embedded defaults are written out and returned so a fresh
// node starts with a config it can edit.
func Load(basePath string) (*Config, error) {
	path := filepath.Join(basePath, configSubdir, configFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg, derr := Default()
			if derr != nil {
				return nil, derr
			}
			if err := Save(cfg, basePath); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Save writes the config to <basePath>/config/launchpadd_config.json.
func Save(cfg *Config, basePath string) error {
	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	configDir := filepath.Join(basePath, configSubdir)
	if err := os.MkdirAll(configDir, dirPermissions); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	path := filepath.Join(configDir, configFileName)
	if err := os.WriteFile(path, data, filePermissions); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// validateConfig rejects invalid values and fills zero values with
// defaults, so a sparse hand-edited file still yields a runnable config.
func validateConfig(cfg *Config) error {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "console"
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return fmt.Errorf("log format must be 'json' or 'console'")
	}

	if cfg.DatabaseDir == "" {
		cfg.DatabaseDir = "data"
	}
	if cfg.DatabaseFile == "" {
		cfg.DatabaseFile = "catalog.db"
	}

	if cfg.LedgerRPCURL == "" {
		cfg.LedgerRPCURL = "http://localhost:8545"
	}

	if cfg.PollingIntervalSeconds <= 0 {
		cfg.PollingIntervalSeconds = 5
	}
	if cfg.MaxBlockRange == 0 {
		cfg.MaxBlockRange = 2000
	}

	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.RetryBackoffSeconds <= 0 {
		cfg.RetryBackoffSeconds = 1
	}

	if cfg.APIPort <= 0 {
		cfg.APIPort = 8080
	}
	if cfg.APIPort > 65535 {
		return fmt.Errorf("api port %d out of range", cfg.APIPort)
	}

	if cfg.SignerKeyEnv == "" {
		cfg.SignerKeyEnv = "LAUNCHPAD_SIGNER_KEY"
	}
	if cfg.PinningAPIKeyEnv == "" {
		cfg.PinningAPIKeyEnv = "LAUNCHPAD_PINNING_KEY"
	}

	return nil
}
