// Package custody defines how the ledger moves tokens between accounts.
//
// The ledger never holds balances itself. It asks a Transferer to move
// funds into its custody account when a stream is funded and out of it when
// a stream pays out.
package custody

import (
	"context"
	"errors"

	"github.com/xraph/streamledger/types"
)

var (
	// ErrInsufficientFunds is returned when the source account cannot cover a transfer.
	ErrInsufficientFunds = errors.New("custody: insufficient funds")

	// ErrInvalidTransfer is returned for malformed transfer requests.
	ErrInvalidTransfer = errors.New("custody: invalid transfer")
)

// Transfer describes a single token movement.
type Transfer struct {
	From   types.Address `json:"from"`
	To     types.Address `json:"to"`
	Asset  types.Asset   `json:"asset"`
	Amount types.Amount  `json:"amount"`

	// Reference is a deterministic key for payouts that may be retried
	// (for example "stream/7/vested"). Empty for transfers that are never
	// retried.
	Reference string `json:"reference,omitempty"`
}

// Transferer moves tokens. Implementations must be safe for concurrent use.
// A nil error means the full amount moved.
//
// A transfer whose non-empty Reference was already applied must succeed
// without moving funds again. The ledger re-sends journaled payouts under
// their original reference after a failure.
type Transferer interface {
	Transfer(ctx context.Context, t Transfer) error
}

// TransfererFunc adapts a function to the Transferer interface.
type TransfererFunc func(ctx context.Context, t Transfer) error

// Transfer implements Transferer.
func (f TransfererFunc) Transfer(ctx context.Context, t Transfer) error { return f(ctx, t) }
