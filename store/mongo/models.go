package mongo

import (
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/streamledger/id"
	"github.com/xraph/streamledger/stream"
	"github.com/xraph/streamledger/types"
)

// ==================== Stream models ====================

type streamModel struct {
	grove.BaseModel `grove:"table:streamledger_streams"`

	ID              int64            `grove:"id,pk"            bson:"_id"`
	Sender          string           `grove:"sender"           bson:"sender"`
	Recipient       string           `grove:"recipient"        bson:"recipient"`
	Asset           string           `grove:"asset"            bson:"asset"`
	RatePerSecond   string           `grove:"rate_per_second"  bson:"rate_per_second"`
	DepositedAmount string           `grove:"deposited_amount" bson:"deposited_amount"`
	WithdrawnAmount string           `grove:"withdrawn_amount" bson:"withdrawn_amount"`
	RefundedAmount  string           `grove:"refunded_amount"  bson:"refunded_amount"`
	Duration        int64            `grove:"duration"         bson:"duration"`
	StartTime       int64            `grove:"start_time"       bson:"start_time"`
	LastUpdateTime  int64            `grove:"last_update_time" bson:"last_update_time"`
	IsActive        bool             `grove:"is_active"        bson:"is_active"`
	Cancelled       bool             `grove:"cancelled"        bson:"cancelled"`
	Settlement      *settlementModel `grove:"settlement"       bson:"settlement,omitempty"`
	Withdrawal      *withdrawalModel `grove:"withdrawal"       bson:"withdrawal,omitempty"`
	CreatedAt       time.Time        `grove:"created_at"       bson:"created_at"`
	UpdatedAt       time.Time        `grove:"updated_at"       bson:"updated_at"`
}

type settlementModel struct {
	ID            string `bson:"id"`
	Vested        string `bson:"vested"`
	Remainder     string `bson:"remainder"`
	VestedPaid    bool   `bson:"vested_paid"`
	RemainderPaid bool   `bson:"remainder_paid"`
	At            int64  `bson:"at"`
}

type withdrawalModel struct {
	Amount    string `bson:"amount"`
	Reference string `bson:"reference"`
	At        int64  `bson:"at"`
}

func toStreamModel(s *stream.Stream) *streamModel {
	m := &streamModel{
		ID:              int64(s.ID), //nolint:gosec // stream ids are sequential from 1
		Sender:          string(s.Sender),
		Recipient:       string(s.Recipient),
		Asset:           string(s.Asset),
		RatePerSecond:   s.RatePerSecond.String(),
		DepositedAmount: s.DepositedAmount.String(),
		WithdrawnAmount: s.WithdrawnAmount.String(),
		RefundedAmount:  s.RefundedAmount.String(),
		Duration:        int64(s.Duration),       //nolint:gosec // bounded by clock range
		StartTime:       int64(s.StartTime),      //nolint:gosec // bounded by clock range
		LastUpdateTime:  int64(s.LastUpdateTime), //nolint:gosec // bounded by clock range
		IsActive:        s.IsActive,
		Cancelled:       s.Cancelled,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
	if st := s.Settlement; st != nil {
		m.Settlement = &settlementModel{
			ID:            st.ID.String(),
			Vested:        st.Vested.String(),
			Remainder:     st.Remainder.String(),
			VestedPaid:    st.VestedPaid,
			RemainderPaid: st.RemainderPaid,
			At:            int64(st.At), //nolint:gosec // bounded by clock range
		}
	}
	if w := s.Withdrawal; w != nil {
		m.Withdrawal = &withdrawalModel{
			Amount:    w.Amount.String(),
			Reference: w.Reference,
			At:        int64(w.At), //nolint:gosec // bounded by clock range
		}
	}
	return m
}

func fromStreamModel(m *streamModel) (*stream.Stream, error) {
	amounts, err := parseAmounts(m.RatePerSecond, m.DepositedAmount, m.WithdrawnAmount, m.RefundedAmount)
	if err != nil {
		return nil, fmt.Errorf("streamledger/mongo: stream %d: %w", m.ID, err)
	}

	s := &stream.Stream{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:              uint64(m.ID), //nolint:gosec // stored from a uint64
		Sender:          types.Address(m.Sender),
		Recipient:       types.Address(m.Recipient),
		Asset:           types.Asset(m.Asset),
		RatePerSecond:   amounts[0],
		DepositedAmount: amounts[1],
		WithdrawnAmount: amounts[2],
		RefundedAmount:  amounts[3],
		Duration:        uint64(m.Duration),       //nolint:gosec // stored from a uint64
		StartTime:       uint64(m.StartTime),      //nolint:gosec // stored from a uint64
		LastUpdateTime:  uint64(m.LastUpdateTime), //nolint:gosec // stored from a uint64
		IsActive:        m.IsActive,
		Cancelled:       m.Cancelled,
	}

	if sm := m.Settlement; sm != nil {
		sid, err := id.ParseSettlementID(sm.ID)
		if err != nil {
			return nil, fmt.Errorf("streamledger/mongo: stream %d settlement: %w", m.ID, err)
		}
		legs, err := parseAmounts(sm.Vested, sm.Remainder)
		if err != nil {
			return nil, fmt.Errorf("streamledger/mongo: stream %d settlement: %w", m.ID, err)
		}
		s.Settlement = &stream.Settlement{
			ID:            sid,
			Vested:        legs[0],
			Remainder:     legs[1],
			VestedPaid:    sm.VestedPaid,
			RemainderPaid: sm.RemainderPaid,
			At:            uint64(sm.At), //nolint:gosec // stored from a uint64
		}
	}

	if wm := m.Withdrawal; wm != nil {
		amount, err := types.ParseAmount(wm.Amount)
		if err != nil {
			return nil, fmt.Errorf("streamledger/mongo: stream %d withdrawal: %w", m.ID, err)
		}
		s.Withdrawal = &stream.Withdrawal{
			Amount:    amount,
			Reference: wm.Reference,
			At:        uint64(wm.At), //nolint:gosec // stored from a uint64
		}
	}
	return s, nil
}

func parseAmounts(raw ...string) ([]types.Amount, error) {
	out := make([]types.Amount, len(raw))
	for i, r := range raw {
		a, err := types.ParseAmount(r)
		if err != nil {
			return nil, err
		}
		out[i] = a
	}
	return out, nil
}

// ==================== State models ====================

type stateModel struct {
	grove.BaseModel `grove:"table:streamledger_state"`

	Key       string    `grove:"key,pk"     bson:"_id"`
	Value     string    `grove:"value"      bson:"value"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
}

type counterModel struct {
	Name  string `bson:"_id"`
	Value int64  `bson:"value"`
}
