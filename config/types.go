package config

import "time"

// Config is the launchpadd configuration, stored as JSON under
// <home>/config/launchpadd_config.json.
type Config struct {
	// Logging
	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"` // "json" or "console"

	// Catalog database
	DatabaseDir  string `json:"database_dir"`
	DatabaseFile string `json:"database_file"`

	// Ledger
	LedgerRPCURL     string `json:"ledger_rpc_url"`
	LaunchpadAddress string `json:"launchpad_address"`
	// SignerKeyEnv names the environment variable holding the hex signing
	// key; the key itself never lives in the config file.
	SignerKeyEnv string `json:"signer_key_env"`

	// Reconciler
	StartBlock             uint64 `json:"start_block"`
	PollingIntervalSeconds int    `json:"polling_interval_seconds"`
	MaxBlockRange          uint64 `json:"max_block_range"`
	ConfirmationDepth      uint64 `json:"confirmation_depth"`
	// SeedCollections pre-registers collection addresses in the catalog.
	// Seeding is a bootstrap convenience; unknown collections are still
	// discovered lazily from events.
	SeedCollections []string `json:"seed_collections"`

	// Retry policy for transient external failures
	MaxRetries          int `json:"max_retries"`
	RetryBackoffSeconds int `json:"retry_backoff_seconds"`

	// Catalog API
	APIPort int `json:"api_port"`

	// Metadata pinning
	PinningEndpoint  string `json:"pinning_endpoint"`
	PinningAPIKeyEnv string `json:"pinning_api_key_env"`
}

// PollingInterval returns the reconciler tick interval.
func (c *Config) PollingInterval() time.Duration {
	return time.Duration(c.PollingIntervalSeconds) * time.Second
}

// RetryBackoff returns the initial backoff delay for retries.
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffSeconds) * time.Second
}
