// Package stream defines the stream record and its vesting arithmetic.
package stream

import (
	"github.com/xraph/streamledger/types"
)

// Status is the derived lifecycle state of a stream.
type Status string

const (
	StatusActive    Status = "active"
	StatusSettling  Status = "settling"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Stream is the persistent record of one payment stream.
type Stream struct {
	types.Entity

	ID              uint64        `json:"id"`
	Sender          types.Address `json:"sender"`
	Recipient       types.Address `json:"recipient"`
	Asset           types.Asset   `json:"asset"`
	RatePerSecond   types.Amount  `json:"rate_per_second"`
	DepositedAmount types.Amount  `json:"deposited_amount"`
	WithdrawnAmount types.Amount  `json:"withdrawn_amount"`
	RefundedAmount  types.Amount  `json:"refunded_amount"`
	Duration        uint64        `json:"duration"`
	StartTime       uint64        `json:"start_time"`
	LastUpdateTime  uint64        `json:"last_update_time"`
	IsActive        bool          `json:"is_active"`
	Cancelled       bool          `json:"cancelled"`

	// Settlement is non-nil while a cancellation is being paid out.
	Settlement *Settlement `json:"settlement,omitempty"`

	// Withdrawal is non-nil while a withdrawal payout is unrecorded.
	Withdrawal *Withdrawal `json:"withdrawal,omitempty"`
}

// Pending reports whether a payout journal is open on the record.
func (s *Stream) Pending() bool {
	return s.Settlement != nil || s.Withdrawal != nil
}

// Status derives the lifecycle state.
func (s *Stream) Status() Status {
	switch {
	case s.Pending():
		return StatusSettling
	case s.IsActive:
		return StatusActive
	case s.Cancelled:
		return StatusCancelled
	default:
		return StatusCompleted
	}
}

// Balance returns what the custody account still holds for this stream.
func (s *Stream) Balance() types.Amount {
	out, err := s.DepositedAmount.Sub(s.WithdrawnAmount)
	if err != nil {
		return types.Zero()
	}
	out, err = out.Sub(s.RefundedAmount)
	if err != nil {
		return types.Zero()
	}
	return out.ClampZero()
}

// Claimable returns what the recipient may withdraw right now.
func (s *Stream) Claimable() types.Amount {
	if !s.IsActive || s.Pending() {
		return types.Zero()
	}
	out, err := s.DepositedAmount.SubFloor(s.WithdrawnAmount)
	if err != nil {
		return types.Zero()
	}
	return out
}

// EndTime returns the nominal end of the vesting schedule.
func (s *Stream) EndTime() uint64 {
	return s.StartTime + s.Duration
}

// Involves reports whether addr is the sender or the recipient.
func (s *Stream) Involves(addr types.Address) bool {
	return s.Sender == addr || s.Recipient == addr
}

// Clone returns a deep copy.
func (s *Stream) Clone() *Stream {
	if s == nil {
		return nil
	}
	c := *s
	if s.Settlement != nil {
		st := *s.Settlement
		c.Settlement = &st
	}
	if s.Withdrawal != nil {
		w := *s.Withdrawal
		c.Withdrawal = &w
	}
	return &c
}

// Role selects which side of a stream a listing matches on.
type Role string

const (
	RoleAny       Role = ""
	RoleSender    Role = "sender"
	RoleRecipient Role = "recipient"
)

// ListOpts filters stream listings.
type ListOpts struct {
	Party      types.Address `json:"party,omitempty"`
	Role       Role          `json:"role,omitempty"`
	Asset      types.Asset   `json:"asset,omitempty"`
	ActiveOnly bool          `json:"active_only,omitempty"`
	Settling   bool          `json:"settling,omitempty"`
	Limit      int           `json:"limit,omitempty"`
	Offset     int           `json:"offset,omitempty"`
}

// Matches reports whether s passes every filter except paging.
func (o ListOpts) Matches(s *Stream) bool {
	if o.Party != "" {
		switch o.Role {
		case RoleSender:
			if s.Sender != o.Party {
				return false
			}
		case RoleRecipient:
			if s.Recipient != o.Party {
				return false
			}
		default:
			if !s.Involves(o.Party) {
				return false
			}
		}
	}
	if o.Asset != "" && s.Asset != o.Asset {
		return false
	}
	if o.ActiveOnly && !s.IsActive {
		return false
	}
	if o.Settling && !s.Pending() {
		return false
	}
	return true
}
