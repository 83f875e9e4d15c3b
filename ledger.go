package streamledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/streamledger/auth"
	"github.com/xraph/streamledger/clock"
	"github.com/xraph/streamledger/custody"
	"github.com/xraph/streamledger/event"
	"github.com/xraph/streamledger/plugin"
	"github.com/xraph/streamledger/store"
	"github.com/xraph/streamledger/types"
)

// DefaultCustodyAddress is the account that holds streamed funds unless
// WithCustodyAddress says otherwise.
const DefaultCustodyAddress types.Address = "streamledger:custody"

// Retention controls what happens to a stream record once it is cancelled.
type Retention int

const (
	// RetentionKeep keeps the inactive record; GetStream returns it.
	RetentionKeep Retention = iota
	// RetentionErase deletes the record; GetStream returns ErrStreamNotFound.
	RetentionErase
)

func (r Retention) String() string {
	if r == RetentionErase {
		return "erase"
	}
	return "keep"
}

// ParseRetention parses "keep" or "erase".
func ParseRetention(s string) (Retention, error) {
	switch s {
	case "", "keep":
		return RetentionKeep, nil
	case "erase":
		return RetentionErase, nil
	default:
		return RetentionKeep, ValidationError{Field: "retention", Message: fmt.Sprintf("unknown value %q", s)}
	}
}

// Ledger is the streaming payment engine.
type Ledger struct {
	store      store.Store
	plugins    *plugin.Registry
	logger     *slog.Logger
	auth       auth.Authenticator
	transferer custody.Transferer
	clock      clock.Clock
	custody    types.Address
	retention  Retention

	locks stripedLock
	govMu sync.Mutex

	// Notification worker
	events   chan *event.Envelope
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a new Ledger instance.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:      s,
		plugins:    plugin.NewRegistry(),
		logger:     slog.Default(),
		auth:       denyAll,
		transferer: custody.NewBook(),
		clock:      clock.NewSystem(),
		custody:    DefaultCustodyAddress,
		events:     make(chan *event.Envelope, 1024),
		stopChan:   make(chan struct{}),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

var denyAll = auth.AuthenticatorFunc(func(context.Context, types.Address, auth.Call) error {
	return fmt.Errorf("%w: no authenticator configured", auth.ErrUnauthenticated)
})

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithAuthenticator sets the authorization gate. Without one every
// authenticated operation is refused.
func WithAuthenticator(a auth.Authenticator) Option {
	return func(l *Ledger) {
		l.auth = a
	}
}

// WithTransferer sets the token transfer backend.
func WithTransferer(t custody.Transferer) Option {
	return func(l *Ledger) {
		l.transferer = t
	}
}

// WithClock sets the time source.
func WithClock(c clock.Clock) Option {
	return func(l *Ledger) {
		l.clock = c
	}
}

// WithCustodyAddress sets the account that holds streamed funds.
func WithCustodyAddress(addr types.Address) Option {
	return func(l *Ledger) {
		l.custody = addr
	}
}

// WithRetention sets what happens to cancelled stream records.
func WithRetention(r Retention) Option {
	return func(l *Ledger) {
		l.retention = r
	}
}

// WithNotifyBuffer sets the notification queue capacity.
func WithNotifyBuffer(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.events = make(chan *event.Envelope, n)
		}
	}
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		l.plugins.WithTimeout(d)
	}
}

// Start migrates the store, initializes plugins, starts the notification
// worker and finishes any cancellation left half-settled by a previous run.
func (l *Ledger) Start(ctx context.Context) error {
	if err := l.store.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
	}

	l.plugins.EmitInit(ctx, l)

	l.wg.Add(1)
	go l.notifyWorker(context.WithoutCancel(ctx))

	resumed, err := l.ResumeSettlements(ctx)
	if err != nil {
		l.logger.Error("resume settlements failed", "error", err)
	}

	l.logger.Info("streamledger started",
		"custody", l.custody,
		"retention", l.retention.String(),
		"notify_buffer", cap(l.events),
		"plugins", l.plugins.Count(),
		"resumed_settlements", resumed,
	)

	return nil
}

// Stop drains pending notifications, shuts plugins down and closes the store.
func (l *Ledger) Stop() error {
	l.stopOnce.Do(func() { close(l.stopChan) })
	l.wg.Wait()

	ctx := context.Background()
	l.plugins.EmitShutdown(ctx)

	l.logger.Info("streamledger stopped")

	return l.store.Close()
}

// Store returns the underlying store.
func (l *Ledger) Store() store.Store { return l.store }

// Plugins returns the plugin registry.
func (l *Ledger) Plugins() *plugin.Registry { return l.plugins }

// CustodyAddress returns the account holding streamed funds.
func (l *Ledger) CustodyAddress() types.Address { return l.custody }

// Now returns the ledger clock's current time.
func (l *Ledger) Now() uint64 { return l.clock.Now() }

func (l *Ledger) authenticate(ctx context.Context, identity types.Address, call auth.Call) error {
	if err := l.auth.Authenticate(ctx, identity, call); err != nil {
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return nil
}

func (l *Ledger) transfer(ctx context.Context, t custody.Transfer) error {
	if err := l.transferer.Transfer(ctx, t); err != nil {
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	return nil
}
