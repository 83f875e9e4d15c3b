package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xraph/streamledger/event"
	"github.com/xraph/streamledger/types"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not registered", name)
	return 0
}

func TestMetricsExtensionCountsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsExtension(NewPrometheusFactory(reg))
	ctx := context.Background()

	_ = m.OnStreamCreated(ctx, &event.StreamCreated{StreamID: 1, Duration: 100})
	_ = m.OnStreamCreated(ctx, &event.StreamCreated{StreamID: 2, Duration: 50})
	_ = m.OnTokensWithdrawn(ctx, &event.TokensWithdrawn{StreamID: 1, Amount: types.NewAmount(40)})
	_ = m.OnStreamCancelled(ctx, &event.StreamCancelled{StreamID: 1, Remainder: types.Zero()})
	_ = m.OnStreamCancelled(ctx, &event.StreamCancelled{StreamID: 2, Remainder: types.NewAmount(5)})
	_ = m.OnSettlementFailed(ctx, 2, "remainder", errors.New("boom"))
	_ = m.OnEmergencyStopToggled(ctx, &event.EmergencyStopToggled{Enabled: true})

	tests := []struct {
		name string
		want float64
	}{
		{"streamledger_stream_created_total", 2},
		{"streamledger_withdraw_count_total", 1},
		{"streamledger_stream_cancelled_total", 2},
		{"streamledger_cancel_fully_vested_total", 1},
		{"streamledger_settlement_failed_total", 1},
		{"streamledger_emergency_stop_enabled_total", 1},
		{"streamledger_emergency_stop_disabled_total", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := counterValue(t, reg, tt.name); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPrometheusFactoryReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := NewPrometheusFactory(reg)
	b := NewPrometheusFactory(reg)

	a.Counter("streamledger.x").Inc()
	b.Counter("streamledger.x").Inc()
	a.Counter("streamledger.x").Add(2)

	if got := counterValue(t, reg, "streamledger_x_total"); got != 4 {
		t.Errorf("got %v, want 4", got)
	}
}
