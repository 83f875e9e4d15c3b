package main

import (
	"flag"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/streamledger/custody"
	"github.com/xraph/streamledger/types"
)

func lookupFrom(m map[string]string) EnvLookup {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("streamledgerd", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil, lookupFrom(nil))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != "localhost:8080" {
		t.Fatalf("expected default http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.Retention != "keep" {
		t.Fatalf("expected keep retention, got %q", cfg.Retention)
	}
	if cfg.NotifyBuffer != 1024 {
		t.Fatalf("expected notify buffer 1024, got %d", cfg.NotifyBuffer)
	}
	if cfg.PluginTimeout != 5*time.Second {
		t.Fatalf("expected plugin timeout 5s, got %v", cfg.PluginTimeout)
	}
	if cfg.Sandbox {
		t.Fatal("expected sandbox disabled by default")
	}
	if cfg.Level() != slog.LevelInfo {
		t.Fatalf("expected info level, got %v", cfg.Level())
	}
}

func TestParseConfigEnv(t *testing.T) {
	fs := flag.NewFlagSet("streamledgerd", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil, lookupFrom(map[string]string{
		"STREAMLEDGER_HTTP_ADDR":      " :9090 ",
		"STREAMLEDGER_LOG_LEVEL":      "debug",
		"STREAMLEDGER_SANDBOX":        "true",
		"STREAMLEDGER_SANDBOX_FAUCET": "alice:XLM:100,bob:USDC:5",
		"STREAMLEDGER_RATE_LIMIT":     "2.5",
	}))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("expected env http addr, got %q", cfg.HTTPAddr)
	}
	if !cfg.Sandbox {
		t.Fatal("expected sandbox enabled")
	}
	if len(cfg.Faucet) != 2 || cfg.Faucet[1] != "bob:USDC:5" {
		t.Fatalf("unexpected faucet %v", cfg.Faucet)
	}
	if cfg.RateLimit != 2.5 {
		t.Fatalf("expected rate 2.5, got %v", cfg.RateLimit)
	}
	if cfg.Level() != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v", cfg.Level())
	}
}

func TestParseConfigFlagsOverrideEnv(t *testing.T) {
	fs := flag.NewFlagSet("streamledgerd", flag.ContinueOnError)
	args := []string{"-http-addr", "flag-http", "-retention", "erase", "-sandbox"}
	cfg, err := ParseConfig(fs, args, lookupFrom(map[string]string{
		"STREAMLEDGER_HTTP_ADDR": "env-http",
		"STREAMLEDGER_RETENTION": "keep",
	}))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != "flag-http" {
		t.Fatalf("expected flag http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.Retention != "erase" {
		t.Fatalf("expected flag retention, got %q", cfg.Retention)
	}
	if !cfg.Sandbox {
		t.Fatal("expected sandbox from flag")
	}
}

func TestParseConfigRejectsBadValues(t *testing.T) {
	cases := map[string]map[string]string{
		"bad duration":    {"STREAMLEDGER_PLUGIN_TIMEOUT": "soon"},
		"negative rate":   {"STREAMLEDGER_RATE_LIMIT": "-1"},
		"negative buffer": {"STREAMLEDGER_NOTIFY_BUFFER": "-3"},
	}
	for name, envs := range cases {
		t.Run(name, func(t *testing.T) {
			fs := flag.NewFlagSet("streamledgerd", flag.ContinueOnError)
			fs.SetOutput(io.Discard)
			if _, err := ParseConfig(fs, nil, lookupFrom(envs)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLevelFallsBackToInfo(t *testing.T) {
	if got := (Config{LogLevel: "loud"}).Level(); got != slog.LevelInfo {
		t.Fatalf("expected info, got %v", got)
	}
}

func TestFund(t *testing.T) {
	book := custody.NewBook()
	if err := fund(book, []string{"alice:XLM:100", " bob:USDC:7 "}); err != nil {
		t.Fatalf("fund: %v", err)
	}
	if got := book.Balance("alice", "XLM"); got.Cmp(types.NewAmount(100)) != 0 {
		t.Fatalf("expected alice 100, got %s", got)
	}
	if got := book.Balance("bob", "USDC"); got.Cmp(types.NewAmount(7)) != 0 {
		t.Fatalf("expected bob 7, got %s", got)
	}

	for _, bad := range []string{"alice:XLM", "alice:XLM:lots", "alice:XLM:0"} {
		if err := fund(custody.NewBook(), []string{bad}); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestBuildLedger(t *testing.T) {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := Config{Retention: "erase", NotifyBuffer: 8, PluginTimeout: time.Second, CustodyAddress: "vault"}

	l, err := buildLedger(cfg, quiet, nil, gate(cfg, quiet), custody.NewBook())
	if err != nil {
		t.Fatalf("build ledger: %v", err)
	}
	if l.CustodyAddress() != "vault" {
		t.Fatalf("expected custody vault, got %s", l.CustodyAddress())
	}

	cfg.Retention = "forever"
	if _, err := buildLedger(cfg, quiet, nil, nil, custody.NewBook()); err == nil {
		t.Fatal("expected retention error")
	}
}
