package stream

import (
	"github.com/xraph/streamledger/id"
	"github.com/xraph/streamledger/types"
)

// Split is the outcome of cancelling a stream at a point in time.
type Split struct {
	Elapsed     uint64       `json:"elapsed"`
	Vested      types.Amount `json:"vested"`
	Remainder   types.Amount `json:"remainder"`
	FullyVested bool         `json:"fully_vested"`
}

// Settlement journals a cancellation while its two payouts are in flight.
type Settlement struct {
	ID            id.SettlementID `json:"id"`
	Vested        types.Amount    `json:"vested"`
	Remainder     types.Amount    `json:"remainder"`
	VestedPaid    bool            `json:"vested_paid"`
	RemainderPaid bool            `json:"remainder_paid"`
	At            uint64          `json:"at"`
}

// Withdrawal journals a payout to the recipient from just before the
// transfer until the record is updated. Reference is the transfer reference
// so a retry cannot pay twice.
type Withdrawal struct {
	Amount    types.Amount `json:"amount"`
	Reference string       `json:"reference"`
	At        uint64       `json:"at"`
}

// NewSettlement journals split taken at time at.
func NewSettlement(split Split, at uint64) *Settlement {
	return &Settlement{
		ID:            id.NewSettlementID(),
		Vested:        split.Vested,
		Remainder:     split.Remainder,
		VestedPaid:    !split.Vested.IsPositive(),
		RemainderPaid: !split.Remainder.IsPositive(),
		At:            at,
	}
}

// Done reports whether both legs are paid.
func (st *Settlement) Done() bool {
	return st.VestedPaid && st.RemainderPaid
}

// Split returns the journaled amounts as a Split.
func (st *Settlement) Split(s *Stream) Split {
	elapsed := uint64(0)
	if st.At > s.StartTime {
		elapsed = st.At - s.StartTime
	}
	return Split{
		Elapsed:     elapsed,
		Vested:      st.Vested,
		Remainder:   st.Remainder,
		FullyVested: elapsed >= s.Duration,
	}
}

// Vested returns how much of the deposit has vested at time now. The whole
// deposit vests linearly over Duration; an amount vested at elapsed seconds
// is floor(deposited * elapsed / duration), computed without overflow.
func Vested(s *Stream, now uint64) (types.Amount, uint64, error) {
	elapsed := uint64(0)
	if now > s.StartTime {
		elapsed = now - s.StartTime
	}
	if s.Duration == 0 || elapsed >= s.Duration {
		return s.DepositedAmount, elapsed, nil
	}
	v, err := s.DepositedAmount.MulDiv(elapsed, s.Duration)
	return v, elapsed, err
}

// ComputeSplit returns the cancellation split of s at time now:
//
//	vested    = max(0, vested_raw - withdrawn)
//	remainder = max(0, deposited - withdrawn - vested)
func ComputeSplit(s *Stream, now uint64) (Split, error) {
	raw, elapsed, err := Vested(s, now)
	if err != nil {
		return Split{}, err
	}

	vested, err := raw.SubFloor(s.WithdrawnAmount)
	if err != nil {
		return Split{}, err
	}

	left, err := s.DepositedAmount.Sub(s.WithdrawnAmount)
	if err != nil {
		return Split{}, err
	}
	remainder, err := left.SubFloor(vested)
	if err != nil {
		return Split{}, err
	}

	return Split{
		Elapsed:     elapsed,
		Vested:      vested,
		Remainder:   remainder,
		FullyVested: elapsed >= s.Duration,
	}, nil
}
