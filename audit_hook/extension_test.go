package audithook

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/streamledger/event"
	"github.com/xraph/streamledger/types"
)

type captured struct {
	events []*AuditEvent
}

func (c *captured) Record(_ context.Context, e *AuditEvent) error {
	c.events = append(c.events, e)
	return nil
}

func TestRecordsStreamCreated(t *testing.T) {
	rec := &captured{}
	ext := New(rec)

	err := ext.OnStreamCreated(context.Background(), &event.StreamCreated{
		StreamID:  4,
		Sender:    "alice",
		Recipient: "bob",
		Asset:     "XLM",
		Amount:    types.NewAmount(1000),
		Duration:  100,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.events) != 1 {
		t.Fatalf("got %d events", len(rec.events))
	}
	got := rec.events[0]
	if got.Action != ActionStreamCreated || got.ResourceID != "4" || got.Outcome != OutcomeSuccess {
		t.Errorf("unexpected event: %+v", got)
	}
	if got.Metadata["amount"] != "1000" {
		t.Errorf("amount = %v", got.Metadata["amount"])
	}
}

func TestSettlementFailureIsCritical(t *testing.T) {
	rec := &captured{}
	ext := New(rec)

	if err := ext.OnSettlementFailed(context.Background(), 9, "vested", errors.New("rail down")); err != nil {
		t.Fatal(err)
	}
	got := rec.events[0]
	if got.Severity != SeverityCritical || got.Reason != "rail down" || got.Metadata["leg"] != "vested" {
		t.Errorf("unexpected event: %+v", got)
	}
}

func TestEmergencyStopActions(t *testing.T) {
	rec := &captured{}
	ext := New(rec)
	ctx := context.Background()

	_ = ext.OnEmergencyStopToggled(ctx, &event.EmergencyStopToggled{Admin: "root", Enabled: true})
	_ = ext.OnEmergencyStopToggled(ctx, &event.EmergencyStopToggled{Admin: "root", Enabled: false})

	if len(rec.events) != 2 {
		t.Fatalf("got %d events", len(rec.events))
	}
	if rec.events[0].Action != ActionEmergencyStopEnabled || rec.events[0].Severity != SeverityWarning {
		t.Errorf("enable: %+v", rec.events[0])
	}
	if rec.events[1].Action != ActionEmergencyStopDisabled {
		t.Errorf("disable: %+v", rec.events[1])
	}
}

func TestActionFilters(t *testing.T) {
	ctx := context.Background()
	withdrawn := &event.TokensWithdrawn{StreamID: 1, Amount: types.NewAmount(5)}

	rec := &captured{}
	ext := New(rec, WithEnabledActions(ActionStreamCancelled))
	_ = ext.OnTokensWithdrawn(ctx, withdrawn)
	if len(rec.events) != 0 {
		t.Errorf("disabled action recorded: %+v", rec.events)
	}

	rec = &captured{}
	ext = New(rec, WithDisabledActions(ActionTokensWithdrawn))
	_ = ext.OnTokensWithdrawn(ctx, withdrawn)
	_ = ext.OnStreamCancelled(ctx, &event.StreamCancelled{StreamID: 1})
	if len(rec.events) != 1 || rec.events[0].Action != ActionStreamCancelled {
		t.Errorf("unexpected events: %+v", rec.events)
	}
}

func TestRecorderErrorIsSwallowed(t *testing.T) {
	ext := New(RecorderFunc(func(context.Context, *AuditEvent) error {
		return errors.New("backend offline")
	}))
	if err := ext.OnStreamToppedUp(context.Background(), &event.StreamToppedUp{StreamID: 2}); err != nil {
		t.Errorf("hook returned %v", err)
	}
}
