package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds streamledgerd configuration. Environment variables set the
// baseline and command line flags override them.
type Config struct {
	HTTPAddr        string        `env:"STREAMLEDGER_HTTP_ADDR" envDefault:"localhost:8080"`
	ShutdownTimeout time.Duration `env:"STREAMLEDGER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	LogLevel        string        `env:"STREAMLEDGER_LOG_LEVEL" envDefault:"info"`

	JWTIssuer string `env:"STREAMLEDGER_JWT_ISSUER" envDefault:"streamledger"`
	JWTKey    string `env:"STREAMLEDGER_JWT_KEY"`

	CustodyAddress string        `env:"STREAMLEDGER_CUSTODY_ADDRESS"`
	Retention      string        `env:"STREAMLEDGER_RETENTION" envDefault:"keep"`
	NotifyBuffer   int           `env:"STREAMLEDGER_NOTIFY_BUFFER" envDefault:"1024"`
	PluginTimeout  time.Duration `env:"STREAMLEDGER_PLUGIN_TIMEOUT" envDefault:"5s"`

	RateLimit float64 `env:"STREAMLEDGER_RATE_LIMIT" envDefault:"50"`
	RateBurst int     `env:"STREAMLEDGER_RATE_BURST" envDefault:"100"`

	Sandbox bool `env:"STREAMLEDGER_SANDBOX" envDefault:"false"`
	// Faucet entries are address:asset:amount and are minted into the
	// sandbox book at startup.
	Faucet []string `env:"STREAMLEDGER_SANDBOX_FAUCET" envSeparator:","`
}

// EnvLookup returns the value for a key when present.
type EnvLookup func(string) (string, bool)

// ParseConfig reads the environment through lookup and then applies flags.
func ParseConfig(fs *flag.FlagSet, args []string, lookup EnvLookup) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ(lookup)}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "Graceful shutdown timeout")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.JWTIssuer, "jwt-issuer", cfg.JWTIssuer, "Issuer expected on caller proofs")
	fs.StringVar(&cfg.CustodyAddress, "custody-address", cfg.CustodyAddress, "Address holding escrowed funds")
	fs.StringVar(&cfg.Retention, "retention", cfg.Retention, "Closed stream retention (keep, erase)")
	fs.IntVar(&cfg.NotifyBuffer, "notify-buffer", cfg.NotifyBuffer, "Plugin notification queue size")
	fs.DurationVar(&cfg.PluginTimeout, "plugin-timeout", cfg.PluginTimeout, "Per-hook plugin timeout")
	fs.Float64Var(&cfg.RateLimit, "rate-limit", cfg.RateLimit, "Requests per second per client, 0 disables")
	fs.IntVar(&cfg.RateBurst, "rate-burst", cfg.RateBurst, "Rate limiter burst")
	fs.BoolVar(&cfg.Sandbox, "sandbox", cfg.Sandbox, "Serve a sandbox ledger alongside production")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return errors.New("http addr is required")
	}
	if c.RateLimit < 0 || c.RateBurst < 0 {
		return errors.New("rate limit and burst must not be negative")
	}
	if c.NotifyBuffer < 0 {
		return errors.New("notify buffer must not be negative")
	}
	return nil
}

// Level maps LogLevel to a slog level, defaulting to info.
func (c Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// environ materialises the variables env needs. A nil lookup reads the
// process environment.
func environ(lookup EnvLookup) map[string]string {
	if lookup == nil {
		return env.ToMap(os.Environ())
	}
	out := make(map[string]string)
	for _, key := range []string{
		"STREAMLEDGER_HTTP_ADDR",
		"STREAMLEDGER_SHUTDOWN_TIMEOUT",
		"STREAMLEDGER_LOG_LEVEL",
		"STREAMLEDGER_JWT_ISSUER",
		"STREAMLEDGER_JWT_KEY",
		"STREAMLEDGER_CUSTODY_ADDRESS",
		"STREAMLEDGER_RETENTION",
		"STREAMLEDGER_NOTIFY_BUFFER",
		"STREAMLEDGER_PLUGIN_TIMEOUT",
		"STREAMLEDGER_RATE_LIMIT",
		"STREAMLEDGER_RATE_BURST",
		"STREAMLEDGER_SANDBOX",
		"STREAMLEDGER_SANDBOX_FAUCET",
	} {
		if value, ok := lookup(key); ok {
			out[key] = strings.TrimSpace(value)
		}
	}
	return out
}
