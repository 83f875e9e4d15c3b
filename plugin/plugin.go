// Package plugin lets host code observe the ledger. Plugins implement any
// subset of the hook interfaces below; the Registry discovers them once at
// registration time. Hooks run after the state change has been persisted and
// cannot affect the outcome of the operation.
package plugin

import (
	"context"

	"github.com/xraph/streamledger/event"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the ledger starts. l is the *streamledger.Ledger.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l any) error
}

// OnShutdown is called when the ledger stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Stream hooks
// ──────────────────────────────────────────────────

// OnStreamCreated is called after a stream is funded and recorded.
type OnStreamCreated interface {
	Plugin
	OnStreamCreated(ctx context.Context, e *event.StreamCreated) error
}

// OnStreamToppedUp is called after a deposit increase.
type OnStreamToppedUp interface {
	Plugin
	OnStreamToppedUp(ctx context.Context, e *event.StreamToppedUp) error
}

// OnTokensWithdrawn is called after the recipient claims funds.
type OnTokensWithdrawn interface {
	Plugin
	OnTokensWithdrawn(ctx context.Context, e *event.TokensWithdrawn) error
}

// OnStreamCancelled is called once a cancellation has settled.
type OnStreamCancelled interface {
	Plugin
	OnStreamCancelled(ctx context.Context, e *event.StreamCancelled) error
}

// OnSettlementFailed is called when a cancellation payout leg fails and the
// settlement is left journaled for a later retry.
type OnSettlementFailed interface {
	Plugin
	OnSettlementFailed(ctx context.Context, streamID uint64, leg string, err error) error
}

// ──────────────────────────────────────────────────
// Governance hooks
// ──────────────────────────────────────────────────

// OnEmergencyStopToggled is called after the emergency flag changes.
type OnEmergencyStopToggled interface {
	Plugin
	OnEmergencyStopToggled(ctx context.Context, e *event.EmergencyStopToggled) error
}

// ──────────────────────────────────────────────────
// Catch-all
// ──────────────────────────────────────────────────

// OnEvent receives every notification envelope, whatever its topic.
type OnEvent interface {
	Plugin
	OnEvent(ctx context.Context, env *event.Envelope) error
}
