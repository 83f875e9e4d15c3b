// Package extension provides the Forge extension adapter for streamledger.
//
// It implements the forge.Extension interface to integrate the streaming
// ledger into a Forge application with DI registration and lifecycle
// management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.streamledger" or
// "streamledger" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/streamledger"
	"github.com/xraph/streamledger/observability"
	"github.com/xraph/streamledger/store"
	"github.com/xraph/streamledger/store/memory"
	"github.com/xraph/streamledger/store/mongo"
	"github.com/xraph/streamledger/store/postgres"
	"github.com/xraph/streamledger/store/sqlite"
	"github.com/xraph/streamledger/types"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "streamledger"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Continuous token streaming ledger"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the streaming ledger as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *streamledger.Ledger
	store      store.Store
	groveDB    *grove.DB
	ledgerOpts []streamledger.Option
}

// New creates a new streamledger Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Ledger instance.
// This is nil until Register is called.
func (e *Extension) Engine() *streamledger.Ledger { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the ledger engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	s, err := e.resolveStore()
	if err != nil {
		return err
	}
	e.store = s

	opts, err := e.buildLedgerOpts()
	if err != nil {
		return err
	}

	e.engine = streamledger.New(e.store, opts...)

	return vessel.Provide(fapp.Container(), func() (*streamledger.Ledger, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("streamledger: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("streamledger: store not initialized")
	}
	return e.store.Ping(ctx)
}

// resolveStore picks the programmatic store, then a grove backend, then memory.
func (e *Extension) resolveStore() (store.Store, error) {
	if e.store != nil {
		return e.store, nil
	}
	if e.groveDB == nil {
		return memory.New(), nil
	}
	return storeFor(e.config.Driver, e.groveDB)
}

func storeFor(driver string, db *grove.DB) (store.Store, error) {
	switch driver {
	case "sqlite":
		return sqlite.New(db), nil
	case "postgres", "pg":
		return postgres.New(db), nil
	case "mongo", "mongodb":
		return mongo.New(db), nil
	default:
		return nil, fmt.Errorf("streamledger: unknown store driver %q", driver)
	}
}

// buildLedgerOpts constructs streamledger.Option values from the resolved config.
func (e *Extension) buildLedgerOpts() ([]streamledger.Option, error) {
	opts := make([]streamledger.Option, 0, len(e.ledgerOpts)+5)

	retention, err := streamledger.ParseRetention(e.config.Retention)
	if err != nil {
		return nil, err
	}
	opts = append(opts,
		streamledger.WithRetention(retention),
		streamledger.WithNotifyBuffer(e.config.NotifyBuffer),
		streamledger.WithPluginTimeout(e.config.PluginTimeout),
	)

	if e.config.CustodyAddress != "" {
		opts = append(opts, streamledger.WithCustodyAddress(types.Address(e.config.CustodyAddress)))
	}

	if e.config.Metrics {
		factory := observability.NewPrometheusFactory(nil)
		opts = append(opts, streamledger.WithPlugin(observability.NewMetricsExtension(factory)))
	}

	// Append any pass-through ledger options.
	opts = append(opts, e.ledgerOpts...)

	return opts, nil
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("streamledger: configuration is required but not found in config files; " +
				"ensure 'extensions.streamledger' or 'streamledger' key exists in your config")
		}
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("streamledger: configuration loaded",
		forge.F("custody_address", e.config.CustodyAddress),
		forge.F("retention", e.config.Retention),
		forge.F("notify_buffer", e.config.NotifyBuffer),
		forge.F("plugin_timeout", e.config.PluginTimeout),
		forge.F("driver", e.config.Driver),
		forge.F("metrics", e.config.Metrics),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	for _, key := range []string{"extensions.streamledger", "streamledger"} {
		if !cm.IsSet(key) {
			continue
		}
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("streamledger: loaded config from file",
				forge.F("key", key),
			)
			return cfg, true
		}
		e.Logger().Warn("streamledger: failed to bind config",
			forge.F("key", key),
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Retention == "" {
		cfg.Retention = defaults.Retention
	}
	if cfg.NotifyBuffer == 0 {
		cfg.NotifyBuffer = defaults.NotifyBuffer
	}
	if cfg.PluginTimeout == 0 {
		cfg.PluginTimeout = defaults.PluginTimeout
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.Metrics {
		yamlConfig.Metrics = true
	}
	if yamlConfig.CustodyAddress == "" {
		yamlConfig.CustodyAddress = programmaticConfig.CustodyAddress
	}
	if yamlConfig.Retention == "" {
		yamlConfig.Retention = programmaticConfig.Retention
	}
	if yamlConfig.Driver == "" {
		yamlConfig.Driver = programmaticConfig.Driver
	}
	if yamlConfig.NotifyBuffer == 0 {
		yamlConfig.NotifyBuffer = programmaticConfig.NotifyBuffer
	}
	if yamlConfig.PluginTimeout == 0 {
		yamlConfig.PluginTimeout = programmaticConfig.PluginTimeout
	}

	return mergeWithDefaults(yamlConfig)
}
