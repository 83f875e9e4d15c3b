// Package observability provides a metrics extension for streamledger that
// records lifecycle event counts through a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/streamledger/event"
	"github.com/xraph/streamledger/plugin"
	"github.com/xraph/streamledger/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                 = (*MetricsExtension)(nil)
	_ plugin.OnInit                 = (*MetricsExtension)(nil)
	_ plugin.OnStreamCreated        = (*MetricsExtension)(nil)
	_ plugin.OnStreamToppedUp       = (*MetricsExtension)(nil)
	_ plugin.OnTokensWithdrawn      = (*MetricsExtension)(nil)
	_ plugin.OnStreamCancelled      = (*MetricsExtension)(nil)
	_ plugin.OnSettlementFailed     = (*MetricsExtension)(nil)
	_ plugin.OnEmergencyStopToggled = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a ledger plugin to track stream activity.
type MetricsExtension struct {
	factory MetricFactory

	// Stream metrics
	StreamCreated   Counter
	StreamToppedUp  Counter
	StreamCancelled Counter
	StreamDuration  Histogram

	// Payment metrics
	TokensWithdrawn   Counter
	WithdrawAmount    Histogram
	CancelFullyVested Counter

	// Settlement metrics
	SettlementFailed Counter

	// Governance metrics
	EmergencyStopEnabled  Counter
	EmergencyStopDisabled Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		StreamCreated:   factory.Counter("streamledger.stream.created"),
		StreamToppedUp:  factory.Counter("streamledger.stream.topped_up"),
		StreamCancelled: factory.Counter("streamledger.stream.cancelled"),
		StreamDuration:  factory.Histogram("streamledger.stream.duration_seconds"),

		TokensWithdrawn:   factory.Counter("streamledger.withdraw.count"),
		WithdrawAmount:    factory.Histogram("streamledger.withdraw.amount"),
		CancelFullyVested: factory.Counter("streamledger.cancel.fully_vested"),

		SettlementFailed: factory.Counter("streamledger.settlement.failed"),

		EmergencyStopEnabled:  factory.Counter("streamledger.emergency_stop.enabled"),
		EmergencyStopDisabled: factory.Counter("streamledger.emergency_stop.disabled"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// ──────────────────────────────────────────────────
// Stream hooks
// ──────────────────────────────────────────────────

// OnStreamCreated implements plugin.OnStreamCreated.
func (m *MetricsExtension) OnStreamCreated(_ context.Context, e *event.StreamCreated) error {
	m.StreamCreated.Inc()
	m.StreamDuration.Observe(float64(e.Duration))
	return nil
}

// OnStreamToppedUp implements plugin.OnStreamToppedUp.
func (m *MetricsExtension) OnStreamToppedUp(_ context.Context, _ *event.StreamToppedUp) error {
	m.StreamToppedUp.Inc()
	return nil
}

// OnTokensWithdrawn implements plugin.OnTokensWithdrawn.
func (m *MetricsExtension) OnTokensWithdrawn(_ context.Context, e *event.TokensWithdrawn) error {
	m.TokensWithdrawn.Inc()
	m.WithdrawAmount.Observe(approx(e.Amount))
	return nil
}

// OnStreamCancelled implements plugin.OnStreamCancelled.
func (m *MetricsExtension) OnStreamCancelled(_ context.Context, e *event.StreamCancelled) error {
	m.StreamCancelled.Inc()
	if e.Remainder.IsZero() {
		m.CancelFullyVested.Inc()
	}
	return nil
}

// OnSettlementFailed implements plugin.OnSettlementFailed.
func (m *MetricsExtension) OnSettlementFailed(_ context.Context, _ uint64, _ string, _ error) error {
	m.SettlementFailed.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Governance hooks
// ──────────────────────────────────────────────────

// OnEmergencyStopToggled implements plugin.OnEmergencyStopToggled.
func (m *MetricsExtension) OnEmergencyStopToggled(_ context.Context, e *event.EmergencyStopToggled) error {
	if e.Enabled {
		m.EmergencyStopEnabled.Inc()
	} else {
		m.EmergencyStopDisabled.Inc()
	}
	return nil
}

// approx converts an amount to float64 for histogram buckets. Precision loss
// above 2^53 is acceptable there.
func approx(a types.Amount) float64 {
	f, _ := a.Big().Float64()
	return f
}
