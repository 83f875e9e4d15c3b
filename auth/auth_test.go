package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/streamledger/types"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func TestStatic(t *testing.T) {
	ctx := context.Background()
	s := NewStatic("alice")

	if err := s.Authenticate(ctx, "alice", Call{Operation: OpCreateStream}); err != nil {
		t.Errorf("alice: %v", err)
	}
	if err := s.Authenticate(ctx, "bob", Call{Operation: OpCreateStream}); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("bob: err = %v", err)
	}

	s.Allow("bob")
	s.Revoke("alice")
	if err := s.Authenticate(ctx, "bob", Call{}); err != nil {
		t.Errorf("bob after Allow: %v", err)
	}
	if err := s.Authenticate(ctx, "alice", Call{}); err == nil {
		t.Error("alice after Revoke should fail")
	}
}

func TestProofContext(t *testing.T) {
	if _, ok := ProofFrom(context.Background()); ok {
		t.Error("empty context should carry no proof")
	}
	ctx := WithProof(context.Background(), "tok")
	if p, ok := ProofFrom(ctx); !ok || p != "tok" {
		t.Errorf("ProofFrom = %q, %v", p, ok)
	}
}

func TestNewJWTGateValidation(t *testing.T) {
	if _, err := NewJWTGate(JWTConfig{Issuer: "x", Key: []byte("short")}); err == nil {
		t.Error("expected short key error")
	}
	if _, err := NewJWTGate(JWTConfig{Key: testKey}); err == nil {
		t.Error("expected missing issuer error")
	}
}

func TestJWTGate(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	gate, err := NewJWTGate(JWTConfig{Issuer: "streamledger", Key: testKey, Now: func() time.Time { return now }})
	if err != nil {
		t.Fatal(err)
	}

	withdraw7 := Call{Operation: OpWithdraw, StreamID: 7}
	tok, err := gate.Issue("bob", withdraw7, time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	other, err := NewJWTGate(JWTConfig{Issuer: "streamledger", Key: []byte("ffffffffffffffffffffffffffffffff")})
	if err != nil {
		t.Fatal(err)
	}
	forged, _ := other.Issue("bob", withdraw7, time.Minute)
	expired, _ := gate.Issue("bob", withdraw7, -time.Second)
	anyStream, _ := gate.Issue("bob", Call{Operation: OpWithdraw}, time.Minute)

	tests := []struct {
		name     string
		proof    string
		identity types.Address
		call     Call
		wantErr  error
	}{
		{"valid", tok, "bob", withdraw7, nil},
		{"wildcard stream", anyStream, "bob", Call{Operation: OpWithdraw, StreamID: 99}, nil},
		{"no proof", "", "bob", withdraw7, ErrMissingProof},
		{"wrong subject", tok, "mallory", withdraw7, ErrUnauthenticated},
		{"wrong operation", tok, "bob", Call{Operation: OpCancelStream, StreamID: 7}, ErrUnauthenticated},
		{"wrong stream", tok, "bob", Call{Operation: OpWithdraw, StreamID: 8}, ErrUnauthenticated},
		{"bad signature", forged, "bob", withdraw7, ErrUnauthenticated},
		{"expired", expired, "bob", withdraw7, ErrUnauthenticated},
		{"garbage", "not.a.jwt", "bob", withdraw7, ErrUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.proof != "" {
				ctx = WithProof(ctx, tt.proof)
			}
			err := gate.Authenticate(ctx, tt.identity, tt.call)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
