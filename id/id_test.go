package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/streamledger/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"EventID", id.NewEventID, "evt_"},
		{"TransferID", id.NewTransferID, "xfer_"},
		{"SettlementID", id.NewSettlementID, "stl_"},
		{"RequestID", id.NewRequestID, "req_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"EventID", id.NewEventID, id.ParseEventID},
		{"TransferID", id.NewTransferID, id.ParseTransferID},
		{"SettlementID", id.NewSettlementID, id.ParseSettlementID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	xfer := id.NewTransferID().String()
	if _, err := id.ParseEventID(xfer); err == nil {
		t.Error("expected error parsing a transfer id as an event id")
	}
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{"", "not-a-typeid", "evt_"} {
		if _, err := id.Parse(in); err == nil {
			t.Errorf("Parse(%q): expected error", in)
		}
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero ID should be nil")
	}
	if i.String() != "" {
		t.Errorf("nil String() = %q", i.String())
	}
	v, err := i.Value()
	if err != nil || v != nil {
		t.Errorf("nil Value() = %v, %v", v, err)
	}
}

func TestTextRoundTrip(t *testing.T) {
	original := id.NewEventID()
	b, err := original.MarshalText()
	if err != nil {
		t.Fatal(err)
	}

	var decoded id.ID
	if err := decoded.UnmarshalText(b); err != nil {
		t.Fatal(err)
	}
	if decoded.String() != original.String() {
		t.Errorf("got %q, want %q", decoded.String(), original.String())
	}
}

func TestScan(t *testing.T) {
	original := id.NewTransferID()

	var fromString id.ID
	if err := fromString.Scan(original.String()); err != nil {
		t.Fatal(err)
	}
	if fromString.String() != original.String() {
		t.Errorf("string scan mismatch")
	}

	var fromNil id.ID
	if err := fromNil.Scan(nil); err != nil || !fromNil.IsNil() {
		t.Errorf("nil scan: %v", err)
	}

	var bad id.ID
	if err := bad.Scan(42); err == nil {
		t.Error("expected error scanning int")
	}
}
