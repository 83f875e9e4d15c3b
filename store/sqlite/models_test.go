package sqlite

import (
	"testing"

	"github.com/xraph/streamledger/store/storetest"
	"github.com/xraph/streamledger/stream"
	"github.com/xraph/streamledger/types"
)

func TestStreamModelRoundTrip(t *testing.T) {
	s := storetest.Sample(7, "alice", "bob")
	s.WithdrawnAmount = types.NewAmount(250)
	s.Settlement = stream.NewSettlement(stream.Split{
		Vested:    types.NewAmount(600),
		Remainder: types.NewAmount(400),
	}, 700)

	m, err := toStreamModel(s)
	if err != nil {
		t.Fatal(err)
	}
	if m.DepositedAmount != "1000" || m.ID != 7 {
		t.Errorf("unexpected model: %+v", m)
	}

	got, err := fromStreamModel(m)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != s.ID || got.Sender != s.Sender || got.Recipient != s.Recipient {
		t.Errorf("identity mismatch: %+v", got)
	}
	if !got.WithdrawnAmount.Equal(s.WithdrawnAmount) || !got.DepositedAmount.Equal(s.DepositedAmount) {
		t.Errorf("amounts mismatch: %+v", got)
	}
	if got.Settlement == nil || got.Settlement.ID.String() != s.Settlement.ID.String() {
		t.Fatalf("settlement lost: %+v", got.Settlement)
	}
	if !got.Settlement.Vested.Equal(types.NewAmount(600)) || got.Settlement.At != 700 {
		t.Errorf("settlement mismatch: %+v", got.Settlement)
	}
}

func TestStreamModelWithoutSettlement(t *testing.T) {
	m, err := toStreamModel(storetest.Sample(1, "alice", "bob"))
	if err != nil {
		t.Fatal(err)
	}
	if m.Settlement != nil {
		t.Errorf("settlement = %s, want NULL", m.Settlement)
	}

	got, err := fromStreamModel(m)
	if err != nil {
		t.Fatal(err)
	}
	if got.Settlement != nil {
		t.Errorf("unexpected settlement: %+v", got.Settlement)
	}
}

func TestStreamModelRejectsCorruptAmount(t *testing.T) {
	m, err := toStreamModel(storetest.Sample(1, "alice", "bob"))
	if err != nil {
		t.Fatal(err)
	}
	m.DepositedAmount = "lots"
	if _, err := fromStreamModel(m); err == nil {
		t.Error("expected error for corrupt amount")
	}
}

func TestStreamModelWithdrawal(t *testing.T) {
	s := storetest.Sample(2, "alice", "bob")
	s.Withdrawal = &stream.Withdrawal{Amount: types.NewAmount(1000), Reference: "stream/2/withdraw/0", At: 90}

	m, err := toStreamModel(s)
	if err != nil {
		t.Fatal(err)
	}
	if m.Withdrawal == nil || m.Settlement != nil {
		t.Fatalf("unexpected journal columns: withdrawal=%s settlement=%s", m.Withdrawal, m.Settlement)
	}

	got, err := fromStreamModel(m)
	if err != nil {
		t.Fatal(err)
	}
	if got.Withdrawal == nil || !got.Withdrawal.Amount.Equal(types.NewAmount(1000)) || got.Withdrawal.Reference != "stream/2/withdraw/0" {
		t.Fatalf("withdrawal lost: %+v", got.Withdrawal)
	}

	m.Withdrawal = []byte("{")
	if _, err := fromStreamModel(m); err == nil {
		t.Error("expected error for corrupt withdrawal")
	}
}
