package streamledger

import (
	"context"
	"sort"

	"github.com/xraph/streamledger/stream"
	"github.com/xraph/streamledger/types"
)

// AssetSummary aggregates one party's streams in a single asset.
type AssetSummary struct {
	Asset types.Asset `json:"asset"`

	// As sender
	TotalSent      types.Amount `json:"total_sent"`
	ValueLocked    types.Amount `json:"value_locked"`
	ActiveOutgoing int          `json:"active_outgoing"`

	// As recipient
	TotalReceived  types.Amount `json:"total_received"`
	Claimable      types.Amount `json:"claimable"`
	ActiveIncoming int          `json:"active_incoming"`
}

// Summary is a current-state dashboard for one party.
type Summary struct {
	Party         types.Address  `json:"party"`
	ActiveStreams int            `json:"active_streams"`
	Assets        []AssetSummary `json:"assets"`
}

// Summary aggregates every stream involving party, per asset. Amounts are
// never summed across assets.
func (l *Ledger) Summary(ctx context.Context, party types.Address) (*Summary, error) {
	if party.IsZero() {
		return nil, ValidationError{Field: "party", Message: "must not be empty"}
	}

	streams, err := l.store.ListStreams(ctx, stream.ListOpts{Party: party})
	if err != nil {
		return nil, err
	}

	byAsset := make(map[types.Asset]*AssetSummary)
	out := &Summary{Party: party}

	for _, s := range streams {
		a, ok := byAsset[s.Asset]
		if !ok {
			a = &AssetSummary{Asset: s.Asset}
			byAsset[s.Asset] = a
		}
		if s.IsActive {
			out.ActiveStreams++
		}

		if s.Sender == party {
			paidOut, err := s.DepositedAmount.Sub(s.RefundedAmount)
			if err != nil {
				return nil, err
			}
			if a.TotalSent, err = a.TotalSent.Add(paidOut); err != nil {
				return nil, err
			}
			if s.IsActive {
				a.ActiveOutgoing++
				if a.ValueLocked, err = a.ValueLocked.Add(s.Balance()); err != nil {
					return nil, err
				}
			}
		}

		if s.Recipient == party {
			if a.TotalReceived, err = a.TotalReceived.Add(s.WithdrawnAmount); err != nil {
				return nil, err
			}
			if s.IsActive {
				a.ActiveIncoming++
				if a.Claimable, err = a.Claimable.Add(s.Claimable()); err != nil {
					return nil, err
				}
			}
		}
	}

	for _, a := range byAsset {
		out.Assets = append(out.Assets, *a)
	}
	sort.Slice(out.Assets, func(i, j int) bool { return out.Assets[i].Asset < out.Assets[j].Asset })

	return out, nil
}
