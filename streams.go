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

// CreateStream moves amount of asset from sender into custody and opens a
// stream that vests it to recipient over duration seconds. It returns the
// new stream id.
func (l *Ledger) CreateStream(
	ctx context.Context,
	sender, recipient types.Address,
	asset types.Asset,
	amount types.Amount,
	duration uint64,
) (uint64, error) {
	if err := l.authenticate(ctx, sender, auth.Call{Operation: auth.OpCreateStream}); err != nil {
		return 0, err
	}
	if err := l.checkEmergency(ctx); err != nil {
		return 0, err
	}
	if !amount.IsPositive() || duration == 0 {
		return 0, ErrInvalidAmount
	}
	if err := validateParties(sender, recipient, asset); err != nil {
		return 0, err
	}

	rate, err := amount.Quo(duration)
	if err != nil {
		return 0, err
	}

	if err := l.transfer(ctx, custody.Transfer{
		From:   sender,
		To:     l.custody,
		Asset:  asset,
		Amount: amount,
	}); err != nil {
		return 0, err
	}

	streamID, err := l.store.NextStreamID(ctx)
	if err != nil {
		l.refund(ctx, sender, asset, amount, "allocate stream id", err)
		return 0, fmt.Errorf("allocate stream id: %w", err)
	}

	now := l.clock.Now()
	s := &stream.Stream{
		Entity:          types.NewEntity(),
		ID:              streamID,
		Sender:          sender,
		Recipient:       recipient,
		Asset:           asset,
		RatePerSecond:   rate,
		DepositedAmount: amount,
		WithdrawnAmount: types.Zero(),
		RefundedAmount:  types.Zero(),
		Duration:        duration,
		StartTime:       now,
		LastUpdateTime:  now,
		IsActive:        true,
	}

	if err := l.store.PutStream(ctx, s); err != nil {
		l.refund(ctx, sender, asset, amount, "persist stream", err)
		return 0, fmt.Errorf("persist stream %d: %w", streamID, err)
	}

	l.logger.Debug("stream created",
		"stream_id", streamID,
		"sender", sender,
		"recipient", recipient,
		"asset", asset,
		"amount", amount.String(),
		"duration", duration,
	)

	l.emit(&event.StreamCreated{
		StreamID:      streamID,
		Sender:        sender,
		Recipient:     recipient,
		RatePerSecond: rate,
		Asset:         asset,
		Amount:        amount,
		Duration:      duration,
		StartTime:     now,
	})

	return streamID, nil
}

// TopUpStream adds amount to an active stream's deposit. The rate is not
// recomputed.
func (l *Ledger) TopUpStream(ctx context.Context, sender types.Address, streamID uint64, amount types.Amount) error {
	if err := l.authenticate(ctx, sender, auth.Call{Operation: auth.OpTopUpStream, StreamID: streamID}); err != nil {
		return err
	}
	if err := l.checkEmergency(ctx); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	unlock := l.locks.lock(streamID)
	defer unlock()

	s, err := l.store.GetStream(ctx, streamID)
	if err != nil {
		return err
	}
	if s.Sender != sender {
		return ErrUnauthorized
	}
	if !s.IsActive {
		return ErrStreamInactive
	}
	if s.Pending() {
		return ErrSettlementPending
	}

	deposited, err := s.DepositedAmount.Add(amount)
	if err != nil {
		return err
	}

	if err := l.transfer(ctx, custody.Transfer{
		From:   sender,
		To:     l.custody,
		Asset:  s.Asset,
		Amount: amount,
	}); err != nil {
		return err
	}

	s.DepositedAmount = deposited
	s.LastUpdateTime = l.clock.Now()
	s.Touch()

	if err := l.store.PutStream(ctx, s); err != nil {
		l.refund(ctx, sender, s.Asset, amount, "persist top-up", err)
		return fmt.Errorf("persist stream %d: %w", streamID, err)
	}

	l.logger.Debug("stream topped up",
		"stream_id", streamID,
		"amount", amount.String(),
		"deposited", deposited.String(),
	)

	l.emit(&event.StreamToppedUp{
		StreamID:     streamID,
		Sender:       s.Sender,
		Recipient:    s.Recipient,
		Amount:       amount,
		NewDeposited: deposited,
	})

	return nil
}

// Withdraw pays the recipient everything deposited and not yet withdrawn,
// and returns the amount paid. The stream becomes inactive once fully
// withdrawn.
//
// The payout is journaled on the record before the transfer. If the
// transfer fails the journal is discarded. If the record cannot be updated
// afterwards the journal stays, the call fails with ErrSettlementPending and
// the next Withdraw (or ResumeSettlements) records the payout, re-sending the
// transfer under the same reference.
func (l *Ledger) Withdraw(ctx context.Context, recipient types.Address, streamID uint64) (types.Amount, error) {
	if err := l.authenticate(ctx, recipient, auth.Call{Operation: auth.OpWithdraw, StreamID: streamID}); err != nil {
		return types.Zero(), err
	}

	unlock := l.locks.lock(streamID)
	defer unlock()

	s, err := l.store.GetStream(ctx, streamID)
	if err != nil {
		return types.Zero(), err
	}
	if s.Recipient != recipient {
		return types.Zero(), ErrUnauthorized
	}
	if !s.IsActive {
		return types.Zero(), ErrStreamInactive
	}
	if s.Settlement != nil {
		return types.Zero(), ErrSettlementPending
	}
	if s.Withdrawal != nil {
		return l.payWithdrawal(ctx, s, false)
	}

	claimable, err := s.DepositedAmount.Sub(s.WithdrawnAmount)
	if err != nil {
		return types.Zero(), err
	}
	if !claimable.IsPositive() {
		return types.Zero(), ErrInvalidAmount
	}

	s.Withdrawal = &stream.Withdrawal{
		Amount:    claimable,
		Reference: withdrawReference(streamID, s.WithdrawnAmount),
		At:        l.clock.Now(),
	}
	if err := l.store.PutStream(ctx, s); err != nil {
		return types.Zero(), fmt.Errorf("persist stream %d: %w", streamID, err)
	}

	return l.payWithdrawal(ctx, s, true)
}

// payWithdrawal sends the journaled payout and records it. fresh is true
// when the journal was opened by this call, in which case a failed transfer
// discards it. The caller holds the stream lock.
func (l *Ledger) payWithdrawal(ctx context.Context, s *stream.Stream, fresh bool) (types.Amount, error) {
	w := s.Withdrawal

	err := l.transfer(ctx, custody.Transfer{
		From:      l.custody,
		To:        s.Recipient,
		Asset:     s.Asset,
		Amount:    w.Amount,
		Reference: w.Reference,
	})
	if err != nil {
		if fresh {
			s.Withdrawal = nil
			perr := l.store.PutStream(ctx, s)
			if perr == nil {
				return types.Zero(), err
			}
			l.logger.Error("withdrawal rollback failed",
				"stream_id", s.ID,
				"error", perr,
			)
			s.Withdrawal = w
		}
		l.logger.Error("withdrawal payout failed",
			"stream_id", s.ID,
			"amount", w.Amount.String(),
			"reference", w.Reference,
			"error", err,
		)
		return types.Zero(), fmt.Errorf("%w: %w", ErrSettlementPending, err)
	}

	withdrawn, err := s.WithdrawnAmount.Add(w.Amount)
	if err != nil {
		return types.Zero(), err
	}

	now := l.clock.Now()
	prev := *s
	s.WithdrawnAmount = withdrawn
	s.LastUpdateTime = now
	if !s.WithdrawnAmount.LessThan(s.DepositedAmount) {
		s.IsActive = false
	}
	s.Withdrawal = nil
	s.Touch()

	if err := l.store.PutStream(ctx, s); err != nil {
		*s = prev
		l.logger.Error("withdrawal paid but not recorded",
			"stream_id", s.ID,
			"amount", w.Amount.String(),
			"reference", w.Reference,
			"error", err,
		)
		return types.Zero(), fmt.Errorf("%w: persist stream %d: %w", ErrSettlementPending, s.ID, err)
	}

	l.logger.Debug("tokens withdrawn",
		"stream_id", s.ID,
		"amount", w.Amount.String(),
		"active", s.IsActive,
	)

	l.emit(&event.TokensWithdrawn{
		StreamID:  s.ID,
		Sender:    s.Sender,
		Recipient: s.Recipient,
		Amount:    w.Amount,
		Timestamp: now,
	})

	return w.Amount, nil
}

// GetStream returns the stream record.
func (l *Ledger) GetStream(ctx context.Context, streamID uint64) (*stream.Stream, error) {
	return l.store.GetStream(ctx, streamID)
}

// ListStreams returns stream records matching opts.
func (l *Ledger) ListStreams(ctx context.Context, opts stream.ListOpts) ([]*stream.Stream, error) {
	return l.store.ListStreams(ctx, opts)
}

// Claimable returns what the recipient could withdraw right now.
func (l *Ledger) Claimable(ctx context.Context, streamID uint64) (types.Amount, error) {
	s, err := l.store.GetStream(ctx, streamID)
	if err != nil {
		return types.Zero(), err
	}
	return s.Claimable(), nil
}

func validateParties(sender, recipient types.Address, asset types.Asset) error {
	var errs MultiError
	if sender.IsZero() {
		errs.Add(ValidationError{Field: "sender", Message: "must not be empty"})
	}
	if recipient.IsZero() {
		errs.Add(ValidationError{Field: "recipient", Message: "must not be empty"})
	}
	if asset.IsZero() {
		errs.Add(ValidationError{Field: "asset", Message: "must not be empty"})
	}
	return errs.ErrorOrNil()
}

func withdrawReference(streamID uint64, withdrawnBefore types.Amount) string {
	return fmt.Sprintf("stream/%d/withdraw/%s", streamID, withdrawnBefore)
}

// refund returns funds taken into custody when the record that should have
// accounted for them could not be written.
func (l *Ledger) refund(ctx context.Context, to types.Address, asset types.Asset, amount types.Amount, step string, cause error) {
	l.logger.Error("ledger write failed after funding, refunding",
		"step", step,
		"to", to,
		"amount", amount.String(),
		"error", cause,
	)
	if err := l.transfer(ctx, custody.Transfer{
		From:   l.custody,
		To:     to,
		Asset:  asset,
		Amount: amount,
	}); err != nil {
		l.logger.Error("refund failed", "to", to, "amount", amount.String(), "error", err)
	}
}
