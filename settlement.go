package streamledger

import (
	"context"
	"fmt"

	"github.com/xraph/streamledger/auth"
	"github.com/xraph/streamledger/custody"
	"github.com/xraph/streamledger/event"
	"github.com/xraph/streamledger/stream"
	"github.com/xraph/streamledger/types"
)

// Settlement legs, as reported to OnSettlementFailed hooks.
const (
	LegVested    = "vested"
	LegRemainder = "remainder"
)

// CancelStream ends an active stream early. The recipient is paid what has
// vested and not yet been withdrawn; the sender gets the rest back.
//
// The split is journaled on the record before any payout. If the first
// payout fails the journal is discarded and nothing changes. If a later step
// fails the journal stays, top-ups and withdrawals are refused with
// ErrSettlementPending, and calling CancelStream again (or
// ResumeSettlements) finishes the payouts using the journaled amounts.
func (l *Ledger) CancelStream(ctx context.Context, sender types.Address, streamID uint64) (stream.Split, error) {
	if err := l.authenticate(ctx, sender, auth.Call{Operation: auth.OpCancelStream, StreamID: streamID}); err != nil {
		return stream.Split{}, err
	}

	unlock := l.locks.lock(streamID)
	defer unlock()

	s, err := l.store.GetStream(ctx, streamID)
	if err != nil {
		return stream.Split{}, err
	}
	if s.Sender != sender {
		return stream.Split{}, ErrUnauthorized
	}
	if s.Withdrawal != nil {
		if _, err := l.payWithdrawal(ctx, s, false); err != nil {
			return stream.Split{}, err
		}
	}
	if !s.IsActive {
		return stream.Split{}, ErrStreamInactive
	}

	if s.Settlement == nil {
		now := l.clock.Now()
		split, err := stream.ComputeSplit(s, now)
		if err != nil {
			return stream.Split{}, err
		}
		s.Settlement = stream.NewSettlement(split, now)
		if err := l.store.PutStream(ctx, s); err != nil {
			return stream.Split{}, fmt.Errorf("persist stream %d: %w", streamID, err)
		}

		l.logger.Debug("settlement journaled",
			"stream_id", streamID,
			"settlement_id", s.Settlement.ID.String(),
			"vested", split.Vested.String(),
			"remainder", split.Remainder.String(),
		)
	}

	return l.settle(ctx, s)
}

// Preview returns the split a cancellation would produce right now, or the
// journaled split when a cancellation is already in flight.
func (l *Ledger) Preview(ctx context.Context, streamID uint64) (stream.Split, error) {
	s, err := l.store.GetStream(ctx, streamID)
	if err != nil {
		return stream.Split{}, err
	}
	if !s.IsActive {
		return stream.Split{}, ErrStreamInactive
	}
	if s.Settlement != nil {
		return s.Settlement.Split(s), nil
	}
	return stream.ComputeSplit(s, l.clock.Now())
}

// ResumeSettlements finishes every journaled cancellation and records every
// journaled withdrawal. It returns how many settled; failures are collected
// and the rest are still attempted.
func (l *Ledger) ResumeSettlements(ctx context.Context) (int, error) {
	pending, err := l.store.ListStreams(ctx, stream.ListOpts{Settling: true})
	if err != nil {
		return 0, err
	}

	var (
		errs    MultiError
		settled int
	)
	for _, p := range pending {
		if err := l.resume(ctx, p.ID); err != nil {
			errs.Add(fmt.Errorf("stream %d: %w", p.ID, err))
			continue
		}
		settled++
	}

	if settled > 0 {
		l.logger.Info("settlements resumed", "count", settled, "failed", len(errs.Errors))
	}

	return settled, errs.ErrorOrNil()
}

func (l *Ledger) resume(ctx context.Context, streamID uint64) error {
	unlock := l.locks.lock(streamID)
	defer unlock()

	s, err := l.store.GetStream(ctx, streamID)
	if err != nil {
		return err
	}
	if s.Withdrawal != nil {
		if _, err := l.payWithdrawal(ctx, s, false); err != nil {
			return err
		}
	}
	if s.Settlement == nil {
		return nil
	}
	_, err = l.settle(ctx, s)
	return err
}

// settle pays the outstanding legs of s's journal and then closes the
// stream. The caller holds the stream lock.
func (l *Ledger) settle(ctx context.Context, s *stream.Stream) (stream.Split, error) {
	j := s.Settlement
	split := j.Split(s)

	if !j.VestedPaid {
		if err := l.payLeg(ctx, s, LegVested, s.Recipient, j.Vested); err != nil {
			return stream.Split{}, err
		}
		j.VestedPaid = true
		l.checkpoint(ctx, s)
	}

	if !j.RemainderPaid {
		if err := l.payLeg(ctx, s, LegRemainder, s.Sender, j.Remainder); err != nil {
			return stream.Split{}, err
		}
		j.RemainderPaid = true
		l.checkpoint(ctx, s)
	}

	if err := l.finish(ctx, s); err != nil {
		return stream.Split{}, fmt.Errorf("%w: %w", ErrSettlementPending, err)
	}

	return split, nil
}

// payLeg transfers one payout. When nothing has moved yet for this journal
// a failure discards the journal; otherwise the journal is kept for retry.
func (l *Ledger) payLeg(ctx context.Context, s *stream.Stream, leg string, to types.Address, amount types.Amount) error {
	j := s.Settlement
	untouched := j.VestedPaid == !j.Vested.IsPositive() && j.RemainderPaid == !j.Remainder.IsPositive()

	err := l.transfer(ctx, custody.Transfer{
		From:      l.custody,
		To:        to,
		Asset:     s.Asset,
		Amount:    amount,
		Reference: settlementReference(s.ID, leg),
	})
	if err == nil {
		return nil
	}

	if untouched {
		s.Settlement = nil
		if perr := l.store.PutStream(ctx, s); perr != nil {
			l.logger.Error("settlement rollback failed",
				"stream_id", s.ID,
				"error", perr,
			)
			s.Settlement = j
			return fmt.Errorf("%w: %w", ErrSettlementPending, err)
		}
		l.logger.Warn("cancellation aborted, first payout failed",
			"stream_id", s.ID,
			"leg", leg,
			"error", err,
		)
		return err
	}

	l.logger.Error("settlement leg failed",
		"stream_id", s.ID,
		"settlement_id", j.ID.String(),
		"leg", leg,
		"amount", amount.String(),
		"error", err,
	)
	l.plugins.EmitSettlementFailed(ctx, s.ID, leg, err)

	return fmt.Errorf("%w: %w", ErrSettlementPending, err)
}

// checkpoint persists journal progress. A failed write is only logged: the
// next attempt re-sends the leg with the same reference.
func (l *Ledger) checkpoint(ctx context.Context, s *stream.Stream) {
	s.Touch()
	if err := l.store.PutStream(ctx, s); err != nil {
		l.logger.Warn("settlement checkpoint failed",
			"stream_id", s.ID,
			"error", err,
		)
	}
}

func (l *Ledger) finish(ctx context.Context, s *stream.Stream) error {
	j := s.Settlement
	now := l.clock.Now()

	withdrawn, err := s.WithdrawnAmount.Add(j.Vested)
	if err != nil {
		return err
	}
	refunded, err := s.RefundedAmount.Add(j.Remainder)
	if err != nil {
		return err
	}

	prev := *s
	s.WithdrawnAmount = withdrawn
	s.RefundedAmount = refunded
	s.IsActive = false
	s.Cancelled = true
	s.LastUpdateTime = now
	s.Settlement = nil
	s.Touch()

	if l.retention == RetentionErase {
		err = l.store.RemoveStream(ctx, s.ID)
	} else {
		err = l.store.PutStream(ctx, s)
	}
	if err != nil {
		*s = prev
		return err
	}

	l.logger.Debug("stream cancelled",
		"stream_id", s.ID,
		"vested", j.Vested.String(),
		"remainder", j.Remainder.String(),
		"retention", l.retention.String(),
	)

	l.emit(&event.StreamCancelled{
		StreamID:        s.ID,
		Sender:          s.Sender,
		Recipient:       s.Recipient,
		AmountWithdrawn: withdrawn,
		Vested:          j.Vested,
		Remainder:       j.Remainder,
		Timestamp:       now,
	})

	return nil
}

func settlementReference(streamID uint64, leg string) string {
	return fmt.Sprintf("stream/%d/%s", streamID, leg)
}
