package custody

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/streamledger/types"
)

const xlm types.Asset = "XLM"

func TestBookTransfer(t *testing.T) {
	ctx := context.Background()
	b := NewBook()
	if err := b.Mint("alice", xlm, types.NewAmount(100)); err != nil {
		t.Fatal(err)
	}

	err := b.Transfer(ctx, Transfer{From: "alice", To: "bob", Asset: xlm, Amount: types.NewAmount(60)})
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	if got := b.Balance("alice", xlm); got.String() != "40" {
		t.Errorf("alice = %s, want 40", got)
	}
	if got := b.Balance("bob", xlm); got.String() != "60" {
		t.Errorf("bob = %s, want 60", got)
	}

	receipts := b.Receipts()
	if len(receipts) != 1 {
		t.Fatalf("receipts = %d", len(receipts))
	}
	if receipts[0].ID.IsNil() {
		t.Error("receipt should carry an id")
	}
}

func TestBookInsufficientFunds(t *testing.T) {
	b := NewBook()
	_ = b.Mint("alice", xlm, types.NewAmount(10))

	err := b.Transfer(context.Background(), Transfer{From: "alice", To: "bob", Asset: xlm, Amount: types.NewAmount(11)})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	if got := b.Balance("alice", xlm); got.String() != "10" {
		t.Errorf("failed transfer moved funds: %s", got)
	}
}

func TestBookRejectsMalformed(t *testing.T) {
	b := NewBook()
	tests := []struct {
		name string
		tr   Transfer
	}{
		{"zero amount", Transfer{From: "a", To: "b", Asset: xlm}},
		{"negative amount", Transfer{From: "a", To: "b", Asset: xlm, Amount: types.NewAmount(-1)}},
		{"missing from", Transfer{To: "b", Asset: xlm, Amount: types.NewAmount(1)}},
		{"missing asset", Transfer{From: "a", To: "b", Amount: types.NewAmount(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := b.Transfer(context.Background(), tt.tr); !errors.Is(err, ErrInvalidTransfer) {
				t.Errorf("err = %v, want ErrInvalidTransfer", err)
			}
		})
	}
}

func TestBookReferenceDeduplication(t *testing.T) {
	ctx := context.Background()
	b := NewBook()
	_ = b.Mint("vault", xlm, types.NewAmount(100))

	tr := Transfer{From: "vault", To: "bob", Asset: xlm, Amount: types.NewAmount(30), Reference: "stream/1/vested"}
	for range 3 {
		if err := b.Transfer(ctx, tr); err != nil {
			t.Fatal(err)
		}
	}

	if got := b.Balance("bob", xlm); got.String() != "30" {
		t.Errorf("bob = %s, want 30", got)
	}
	if len(b.Receipts()) != 1 {
		t.Errorf("receipts = %d, want 1", len(b.Receipts()))
	}
}

func TestBookIntercept(t *testing.T) {
	b := NewBook()
	_ = b.Mint("alice", xlm, types.NewAmount(5))

	boom := errors.New("boom")
	b.Intercept(func(Transfer) error { return boom })

	err := b.Transfer(context.Background(), Transfer{From: "alice", To: "bob", Asset: xlm, Amount: types.NewAmount(1)})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}

	b.Intercept(nil)
	if err := b.Transfer(context.Background(), Transfer{From: "alice", To: "bob", Asset: xlm, Amount: types.NewAmount(1)}); err != nil {
		t.Fatalf("after removing intercept: %v", err)
	}
}
