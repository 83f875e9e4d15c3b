package extension

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/streamledger"
	"github.com/xraph/streamledger/plugin"
	"github.com/xraph/streamledger/store"
)

// Option configures the streamledger Forge extension.
type Option func(*Extension)

// WithStore sets the store for the ledger engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithGroveDB builds the store from db using the backend named by
// Config.Driver. A store set with WithStore takes precedence.
func WithGroveDB(db *grove.DB) Option {
	return func(e *Extension) {
		e.groveDB = db
	}
}

// WithLedgerOption passes a streamledger.Option through to the underlying engine.
func WithLedgerOption(opt streamledger.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, streamledger.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithCustodyAddress sets the account that holds streamed funds.
func WithCustodyAddress(addr string) Option {
	return func(e *Extension) { e.config.CustodyAddress = addr }
}

// WithRetention sets the retention policy ("keep" or "erase").
func WithRetention(r string) Option {
	return func(e *Extension) { e.config.Retention = r }
}

// WithNotifyBuffer sets the notification queue capacity.
func WithNotifyBuffer(n int) Option {
	return func(e *Extension) { e.config.NotifyBuffer = n }
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.PluginTimeout = d }
}

// WithDriver names the grove backend used with WithGroveDB.
func WithDriver(driver string) Option {
	return func(e *Extension) { e.config.Driver = driver }
}

// WithMetrics registers the Prometheus metrics plugin.
func WithMetrics() Option {
	return func(e *Extension) { e.config.Metrics = true }
}
