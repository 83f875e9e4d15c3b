package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/streamledger/stream"
	"github.com/xraph/streamledger/types"
)

type streamModel struct {
	grove.BaseModel `grove:"table:streamledger_streams"`

	ID              int64           `grove:"id,pk"`
	Sender          string          `grove:"sender"`
	Recipient       string          `grove:"recipient"`
	Asset           string          `grove:"asset"`
	RatePerSecond   string          `grove:"rate_per_second"`
	DepositedAmount string          `grove:"deposited_amount"`
	WithdrawnAmount string          `grove:"withdrawn_amount"`
	RefundedAmount  string          `grove:"refunded_amount"`
	Duration        int64           `grove:"duration"`
	StartTime       int64           `grove:"start_time"`
	LastUpdateTime  int64           `grove:"last_update_time"`
	IsActive        bool            `grove:"is_active"`
	Cancelled       bool            `grove:"cancelled"`
	Settlement      []byte          `grove:"settlement,type:jsonb"`
	Withdrawal      []byte          `grove:"withdrawal,type:jsonb"`
	CreatedAt       time.Time       `grove:"created_at"`
	UpdatedAt       time.Time       `grove:"updated_at"`
}

func toStreamModel(s *stream.Stream) (*streamModel, error) {
	var settlement []byte
	if s.Settlement != nil {
		raw, err := json.Marshal(s.Settlement)
		if err != nil {
			return nil, fmt.Errorf("streamledger/postgres: encode settlement: %w", err)
		}
		settlement = raw
	}
	var withdrawal []byte
	if s.Withdrawal != nil {
		raw, err := json.Marshal(s.Withdrawal)
		if err != nil {
			return nil, fmt.Errorf("streamledger/postgres: encode withdrawal: %w", err)
		}
		withdrawal = raw
	}

	return &streamModel{
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
		Settlement:      settlement,
		Withdrawal:      withdrawal,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}, nil
}

func fromStreamModel(m *streamModel) (*stream.Stream, error) {
	amounts := make([]types.Amount, 4)
	for i, raw := range []string{m.RatePerSecond, m.DepositedAmount, m.WithdrawnAmount, m.RefundedAmount} {
		a, err := types.ParseAmount(raw)
		if err != nil {
			return nil, fmt.Errorf("streamledger/postgres: stream %d: %w", m.ID, err)
		}
		amounts[i] = a
	}

	var settlement *stream.Settlement
	if err := decodeJournal(m.Settlement, &settlement); err != nil {
		return nil, fmt.Errorf("streamledger/postgres: stream %d settlement: %w", m.ID, err)
	}
	var withdrawal *stream.Withdrawal
	if err := decodeJournal(m.Withdrawal, &withdrawal); err != nil {
		return nil, fmt.Errorf("streamledger/postgres: stream %d withdrawal: %w", m.ID, err)
	}

	return &stream.Stream{
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
		Settlement:      settlement,
		Withdrawal:      withdrawal,
	}, nil
}

// decodeJournal unmarshals a nullable JSON column into *dst, leaving it nil
// for NULL.
func decodeJournal[T any](raw []byte, dst **T) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	v := new(T)
	if err := json.Unmarshal(raw, v); err != nil {
		return err
	}
	*dst = v
	return nil
}

type stateModel struct {
	grove.BaseModel `grove:"table:streamledger_state"`

	Key       string    `grove:"key,pk"`
	Value     string    `grove:"value"`
	UpdatedAt time.Time `grove:"updated_at"`
}
