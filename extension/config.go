package extension

import "time"

// Config holds the streamledger extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.streamledger" or "streamledger" keys).
type Config struct {
	// CustodyAddress is the account that holds streamed funds
	// (default: streamledger.DefaultCustodyAddress).
	CustodyAddress string `json:"custody_address" mapstructure:"custody_address" yaml:"custody_address"`

	// Retention is "keep" or "erase" and decides what happens to cancelled
	// stream records (default: "keep").
	Retention string `json:"retention" mapstructure:"retention" yaml:"retention"`

	// NotifyBuffer is the capacity of the notification queue (default: 1024).
	NotifyBuffer int `json:"notify_buffer" mapstructure:"notify_buffer" yaml:"notify_buffer"`

	// PluginTimeout bounds each plugin hook call (default: 5s).
	PluginTimeout time.Duration `json:"plugin_timeout" mapstructure:"plugin_timeout" yaml:"plugin_timeout"`

	// Driver selects the store backend built around a grove.DB passed with
	// WithGroveDB: "sqlite", "postgres" or "mongo".
	Driver string `json:"driver" mapstructure:"driver" yaml:"driver"`

	// Metrics registers the Prometheus metrics plugin.
	Metrics bool `json:"metrics" mapstructure:"metrics" yaml:"metrics"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Retention:     "keep",
		NotifyBuffer:  1024,
		PluginTimeout: 5 * time.Second,
	}
}
