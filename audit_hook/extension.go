// Package audithook bridges streamledger events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import any
// audit backend directly. Callers inject a RecorderFunc adapter at wiring
// time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/xraph/streamledger/event"
	"github.com/xraph/streamledger/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                 = (*Extension)(nil)
	_ plugin.OnStreamCreated        = (*Extension)(nil)
	_ plugin.OnStreamToppedUp       = (*Extension)(nil)
	_ plugin.OnTokensWithdrawn      = (*Extension)(nil)
	_ plugin.OnStreamCancelled      = (*Extension)(nil)
	_ plugin.OnSettlementFailed     = (*Extension)(nil)
	_ plugin.OnEmergencyStopToggled = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges ledger events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Stream hooks
// ──────────────────────────────────────────────────

// OnStreamCreated implements plugin.OnStreamCreated.
func (e *Extension) OnStreamCreated(ctx context.Context, ev *event.StreamCreated) error {
	return e.record(ctx, ActionStreamCreated, SeverityInfo, OutcomeSuccess,
		ResourceStream, streamRef(ev.StreamID), CategoryStream, nil,
		"sender", ev.Sender.String(),
		"recipient", ev.Recipient.String(),
		"asset", ev.Asset.String(),
		"amount", ev.Amount.String(),
		"duration", ev.Duration,
	)
}

// OnStreamToppedUp implements plugin.OnStreamToppedUp.
func (e *Extension) OnStreamToppedUp(ctx context.Context, ev *event.StreamToppedUp) error {
	return e.record(ctx, ActionStreamToppedUp, SeverityInfo, OutcomeSuccess,
		ResourceStream, streamRef(ev.StreamID), CategoryPayment, nil,
		"sender", ev.Sender.String(),
		"amount", ev.Amount.String(),
		"new_deposited_amount", ev.NewDeposited.String(),
	)
}

// OnTokensWithdrawn implements plugin.OnTokensWithdrawn.
func (e *Extension) OnTokensWithdrawn(ctx context.Context, ev *event.TokensWithdrawn) error {
	return e.record(ctx, ActionTokensWithdrawn, SeverityInfo, OutcomeSuccess,
		ResourceStream, streamRef(ev.StreamID), CategoryPayment, nil,
		"recipient", ev.Recipient.String(),
		"amount", ev.Amount.String(),
		"timestamp", ev.Timestamp,
	)
}

// OnStreamCancelled implements plugin.OnStreamCancelled.
func (e *Extension) OnStreamCancelled(ctx context.Context, ev *event.StreamCancelled) error {
	return e.record(ctx, ActionStreamCancelled, SeverityInfo, OutcomeSuccess,
		ResourceStream, streamRef(ev.StreamID), CategoryStream, nil,
		"sender", ev.Sender.String(),
		"recipient", ev.Recipient.String(),
		"vested", ev.Vested.String(),
		"remainder", ev.Remainder.String(),
		"amount_withdrawn", ev.AmountWithdrawn.String(),
	)
}

// OnSettlementFailed implements plugin.OnSettlementFailed.
func (e *Extension) OnSettlementFailed(ctx context.Context, streamID uint64, leg string, err error) error {
	return e.record(ctx, ActionSettlementFailed, SeverityCritical, OutcomePartial,
		ResourceSettlement, streamRef(streamID), CategoryPayment, err,
		"leg", leg,
	)
}

// ──────────────────────────────────────────────────
// Governance hooks
// ──────────────────────────────────────────────────

// OnEmergencyStopToggled implements plugin.OnEmergencyStopToggled.
func (e *Extension) OnEmergencyStopToggled(ctx context.Context, ev *event.EmergencyStopToggled) error {
	action, severity := ActionEmergencyStopDisabled, SeverityInfo
	if ev.Enabled {
		action, severity = ActionEmergencyStopEnabled, SeverityWarning
	}
	return e.record(ctx, action, severity, OutcomeSuccess,
		ResourceGovernance, "", CategoryGovernance, nil,
		"admin", ev.Admin.String(),
		"timestamp", ev.Timestamp,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

func streamRef(streamID uint64) string {
	return strconv.FormatUint(streamID, 10)
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
