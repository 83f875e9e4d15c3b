package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/xraph/streamledger/types"
)

// callClaims is the token body. A token is scoped to one operation and,
// when StreamID is non-zero, to one stream.
type callClaims struct {
	jwt.RegisteredClaims
	Operation string `json:"op"`
	StreamID  uint64 `json:"sid,omitempty"`
}

// JWTConfig configures a JWTGate.
type JWTConfig struct {
	Issuer string
	Key    []byte
	Now    func() time.Time
}

// JWTGate authenticates callers with HS256 tokens whose subject is the
// identity being asserted.
type JWTGate struct {
	cfg JWTConfig
}

// NewJWTGate returns a gate for cfg.
func NewJWTGate(cfg JWTConfig) (*JWTGate, error) {
	if len(cfg.Key) < 32 {
		return nil, errors.New("auth: jwt key must be at least 32 bytes")
	}
	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, errors.New("auth: jwt issuer is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &JWTGate{cfg: cfg}, nil
}

// Issue signs a proof letting identity perform call for ttl. A call with a
// zero StreamID yields a token valid for that operation on any stream.
func (g *JWTGate) Issue(identity types.Address, call Call, ttl time.Duration) (string, error) {
	now := g.cfg.Now().UTC()
	claims := callClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    g.cfg.Issuer,
			Subject:   string(identity),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Operation: string(call.Operation),
		StreamID:  call.StreamID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.cfg.Key)
}

// Authenticate implements Authenticator using the proof attached with WithProof.
func (g *JWTGate) Authenticate(ctx context.Context, identity types.Address, call Call) error {
	token, ok := ProofFrom(ctx)
	if !ok {
		return ErrMissingProof
	}

	var parsed callClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return g.cfg.Key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	if parsed.Issuer != g.cfg.Issuer {
		return fmt.Errorf("%w: issuer mismatch", ErrUnauthenticated)
	}
	if parsed.ExpiresAt == nil {
		return fmt.Errorf("%w: exp is required", ErrUnauthenticated)
	}
	now := g.cfg.Now().UTC()
	if !parsed.ExpiresAt.Time.After(now) {
		return fmt.Errorf("%w: token expired", ErrUnauthenticated)
	}
	if parsed.NotBefore != nil && now.Before(parsed.NotBefore.Time) {
		return fmt.Errorf("%w: token not active yet", ErrUnauthenticated)
	}
	if parsed.Subject == "" || parsed.Subject != string(identity) {
		return fmt.Errorf("%w: subject mismatch", ErrUnauthenticated)
	}
	if parsed.Operation != string(call.Operation) {
		return fmt.Errorf("%w: operation mismatch", ErrUnauthenticated)
	}
	if parsed.StreamID != 0 && parsed.StreamID != call.StreamID {
		return fmt.Errorf("%w: stream mismatch", ErrUnauthenticated)
	}
	return nil
}
