package custody

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xraph/streamledger/id"
	"github.com/xraph/streamledger/types"
)

// Receipt records a completed transfer.
type Receipt struct {
	ID       id.TransferID `json:"id"`
	Transfer Transfer      `json:"transfer"`
	At       time.Time     `json:"at"`
}

type account struct {
	addr  types.Address
	asset types.Asset
}

// Book is an in-memory balance book. It backs the daemon and the tests.
type Book struct {
	mu        sync.Mutex
	balances  map[account]types.Amount
	receipts  []Receipt
	refs      map[string]struct{}
	intercept func(Transfer) error
}

// NewBook returns an empty Book.
func NewBook() *Book {
	return &Book{
		balances: make(map[account]types.Amount),
		refs:     make(map[string]struct{}),
	}
}

// Mint credits amount of asset to addr out of thin air.
func (b *Book) Mint(addr types.Address, asset types.Asset, amount types.Amount) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: mint amount must be positive", ErrInvalidTransfer)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	k := account{addr, asset}
	next, err := b.balances[k].Add(amount)
	if err != nil {
		return err
	}
	b.balances[k] = next
	return nil
}

// Balance returns the balance of asset held by addr.
func (b *Book) Balance(addr types.Address, asset types.Asset) types.Amount {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[account{addr, asset}]
}

// Intercept installs fn to run before every transfer. A non-nil return
// aborts the transfer with that error. Pass nil to remove it.
func (b *Book) Intercept(fn func(Transfer) error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.intercept = fn
}

// Transfer implements Transferer. A transfer whose Reference has already
// been applied succeeds without moving funds again.
func (b *Book) Transfer(ctx context.Context, t Transfer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.From.IsZero() || t.To.IsZero() || t.Asset.IsZero() {
		return fmt.Errorf("%w: missing party or asset", ErrInvalidTransfer)
	}
	if !t.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidTransfer)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.intercept != nil {
		if err := b.intercept(t); err != nil {
			return err
		}
	}

	if t.Reference != "" {
		if _, done := b.refs[t.Reference]; done {
			return nil
		}
	}

	from := account{t.From, t.Asset}
	to := account{t.To, t.Asset}

	src := b.balances[from]
	if src.LessThan(t.Amount) {
		return fmt.Errorf("%w: %s holds %s %s, needs %s", ErrInsufficientFunds, t.From, src, t.Asset, t.Amount)
	}

	debited, err := src.Sub(t.Amount)
	if err != nil {
		return err
	}
	credited, err := b.balances[to].Add(t.Amount)
	if err != nil {
		return err
	}

	b.balances[from] = debited
	b.balances[to] = credited
	if t.Reference != "" {
		b.refs[t.Reference] = struct{}{}
	}
	b.receipts = append(b.receipts, Receipt{
		ID:       id.NewTransferID(),
		Transfer: t,
		At:       time.Now().UTC(),
	})
	return nil
}

// Receipts returns a copy of every applied transfer in order.
func (b *Book) Receipts() []Receipt {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Receipt, len(b.receipts))
	copy(out, b.receipts)
	return out
}
