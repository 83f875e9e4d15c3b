// Package auth decides whether a caller may act as a given identity.
//
// The ledger calls Authenticate exactly once per authorizing identity before
// it reads or writes anything for the operation. How the caller proves the
// identity (a signed token, a session, a test fixture) is up to the
// Authenticator; proofs travel through the context.
package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/xraph/streamledger/types"
)

var (
	// ErrUnauthenticated is returned when the caller cannot prove the identity.
	ErrUnauthenticated = errors.New("auth: unauthenticated")

	// ErrMissingProof is returned when no proof was attached to the context.
	ErrMissingProof = errors.New("auth: missing proof")
)

// Operation names the ledger operation being authorized.
type Operation string

// Operations the ledger authorizes.
const (
	OpCreateStream     Operation = "create_stream"
	OpTopUpStream      Operation = "top_up_stream"
	OpWithdraw         Operation = "withdraw"
	OpCancelStream     Operation = "cancel_stream"
	OpSetEmergencyMode Operation = "set_emergency_mode"
)

// Call describes what the identity is being authorized for. StreamID is zero
// for operations that do not target an existing stream.
type Call struct {
	Operation Operation `json:"op"`
	StreamID  uint64    `json:"stream_id,omitempty"`
}

// Authenticator verifies that the current caller may act as identity for call.
type Authenticator interface {
	Authenticate(ctx context.Context, identity types.Address, call Call) error
}

// AuthenticatorFunc adapts a function to the Authenticator interface.
type AuthenticatorFunc func(ctx context.Context, identity types.Address, call Call) error

// Authenticate implements Authenticator.
func (f AuthenticatorFunc) Authenticate(ctx context.Context, identity types.Address, call Call) error {
	return f(ctx, identity, call)
}

// AllowAll accepts every caller. Only for embedded use where the host has
// already authenticated the request.
var AllowAll Authenticator = AuthenticatorFunc(func(context.Context, types.Address, Call) error { return nil })

type proofKey struct{}

// WithProof attaches a caller proof (for example a bearer token) to ctx.
func WithProof(ctx context.Context, proof string) context.Context {
	return context.WithValue(ctx, proofKey{}, proof)
}

// ProofFrom returns the proof attached to ctx, if any.
func ProofFrom(ctx context.Context) (string, bool) {
	p, ok := ctx.Value(proofKey{}).(string)
	return p, ok && p != ""
}

// Static authorizes a fixed set of identities, independent of proof.
type Static struct {
	mu      sync.RWMutex
	allowed map[types.Address]struct{}
}

// NewStatic returns a Static gate allowing ids.
func NewStatic(ids ...types.Address) *Static {
	s := &Static{allowed: make(map[types.Address]struct{}, len(ids))}
	for _, a := range ids {
		s.allowed[a] = struct{}{}
	}
	return s
}

// Allow adds ids to the allowed set.
func (s *Static) Allow(ids ...types.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range ids {
		s.allowed[a] = struct{}{}
	}
}

// Revoke removes ids from the allowed set.
func (s *Static) Revoke(ids ...types.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range ids {
		delete(s.allowed, a)
	}
}

// Authenticate implements Authenticator.
func (s *Static) Authenticate(_ context.Context, identity types.Address, _ Call) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.allowed[identity]; !ok {
		return ErrUnauthenticated
	}
	return nil
}
