// Command streamledgerd serves a streaming payment ledger over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/xraph/streamledger"
	"github.com/xraph/streamledger/api"
	"github.com/xraph/streamledger/auth"
	"github.com/xraph/streamledger/custody"
	"github.com/xraph/streamledger/store/memory"
	"github.com/xraph/streamledger/types"
)

const readHeaderTimeout = 10 * time.Second

func main() {
	cfg, err := ParseConfig(flag.CommandLine, os.Args[1:], func(key string) (string, bool) {
		value, ok := os.LookupEnv(key)
		return value, ok
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "streamledgerd: %v\n", err)
		os.Exit(2)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("streamledgerd exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config, logger *slog.Logger) error {
	hub := api.NewHub(api.WithHubLogger(logger))

	prod, err := buildLedger(cfg, logger, hub, gate(cfg, logger), custody.NewBook())
	if err != nil {
		return err
	}
	if err := prod.Start(ctx); err != nil {
		return fmt.Errorf("start ledger: %w", err)
	}
	defer func() { _ = prod.Stop() }()

	opts := []api.Option{
		api.WithLogger(logger),
		api.WithHub(hub),
		api.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
	}

	if cfg.Sandbox {
		book := custody.NewBook()
		if err := fund(book, cfg.Faucet); err != nil {
			return err
		}
		open := auth.AuthenticatorFunc(func(context.Context, types.Address, auth.Call) error { return nil })
		sandbox, err := buildLedger(cfg, logger.With("environment", "sandbox"), nil, open, book)
		if err != nil {
			return err
		}
		if err := sandbox.Start(ctx); err != nil {
			return fmt.Errorf("start sandbox ledger: %w", err)
		}
		defer func() { _ = sandbox.Stop() }()
		opts = append(opts, api.WithSandbox(sandbox))
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.New(prod, opts...).Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr, "sandbox", cfg.Sandbox)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	return nil
}

func buildLedger(cfg Config, logger *slog.Logger, hub *api.Hub, a auth.Authenticator, t custody.Transferer) (*streamledger.Ledger, error) {
	retention, err := streamledger.ParseRetention(cfg.Retention)
	if err != nil {
		return nil, err
	}

	opts := []streamledger.Option{
		streamledger.WithLogger(logger),
		streamledger.WithTransferer(t),
		streamledger.WithRetention(retention),
		streamledger.WithNotifyBuffer(cfg.NotifyBuffer),
		streamledger.WithPluginTimeout(cfg.PluginTimeout),
	}
	if cfg.CustodyAddress != "" {
		opts = append(opts, streamledger.WithCustodyAddress(types.Address(cfg.CustodyAddress)))
	}
	if a != nil {
		opts = append(opts, streamledger.WithAuthenticator(a))
	}
	if hub != nil {
		opts = append(opts, streamledger.WithPlugin(hub))
	}
	return streamledger.New(memory.New(), opts...), nil
}

// gate returns the production authenticator. Without a key every
// authenticated call is refused.
func gate(cfg Config, logger *slog.Logger) auth.Authenticator {
	if cfg.JWTKey == "" {
		logger.Warn("no jwt key configured, authenticated calls will be rejected")
		return nil
	}
	g, err := auth.NewJWTGate(auth.JWTConfig{Issuer: cfg.JWTIssuer, Key: []byte(cfg.JWTKey)})
	if err != nil {
		logger.Warn("jwt gate disabled", "error", err)
		return nil
	}
	return g
}

// fund mints each address:asset:amount entry into book.
func fund(book *custody.Book, entries []string) error {
	for _, entry := range entries {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 3 {
			return fmt.Errorf("faucet entry %q: want address:asset:amount", entry)
		}
		amount, err := types.ParseAmount(parts[2])
		if err != nil {
			return fmt.Errorf("faucet entry %q: %w", entry, err)
		}
		if err := book.Mint(types.Address(parts[0]), types.Asset(parts[1]), amount); err != nil {
			return fmt.Errorf("faucet entry %q: %w", entry, err)
		}
	}
	return nil
}
