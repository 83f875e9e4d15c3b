package streamledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xraph/streamledger"
	"github.com/xraph/streamledger/event"
	"github.com/xraph/streamledger/store/memory"
	"github.com/xraph/streamledger/stream"
	"github.com/xraph/streamledger/types"
)

var errDiskFull = errors.New("disk full")

// flakyStore fails PutStream for records matching failWhen.
type flakyStore struct {
	*memory.Store

	mu       sync.Mutex
	failWhen func(*stream.Stream) bool
}

func (s *flakyStore) failOn(fn func(*stream.Stream) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWhen = fn
}

func (s *flakyStore) PutStream(ctx context.Context, st *stream.Stream) error {
	s.mu.Lock()
	fn := s.failWhen
	s.mu.Unlock()
	if fn != nil && fn(st) {
		return errDiskFull
	}
	return s.Store.PutStream(ctx, st)
}

// recordingPayout matches the write that books a paid withdrawal.
func recordingPayout(st *stream.Stream) bool {
	return st.Withdrawal == nil && st.WithdrawnAmount.IsPositive()
}

func newFlakyFixture(t *testing.T) (*fixture, *flakyStore) {
	t.Helper()
	fs := &flakyStore{Store: memory.New()}
	return newFixtureOn(t, fs), fs
}

func TestWithdrawUnrecordedPayoutIsJournaled(t *testing.T) {
	f, fs := newFlakyFixture(t)
	ctx := context.Background()
	id := f.create(t, 1000, 1000)

	fs.failOn(recordingPayout)
	_, err := f.l.Withdraw(ctx, "bob", id)
	require.ErrorIs(t, err, streamledger.ErrSettlementPending)
	require.ErrorIs(t, err, errDiskFull)
	require.Contains(t, err.Error(), "persist stream 1")
	require.Equal(t, "1000", f.balance("bob"))
	require.Equal(t, "0", f.custodyBalance())

	s, err := f.l.GetStream(ctx, id)
	require.NoError(t, err)
	require.True(t, s.IsActive)
	require.NotNil(t, s.Withdrawal)
	require.Equal(t, "1000", s.Withdrawal.Amount.String())
	require.Equal(t, stream.StatusSettling, s.Status())
	require.True(t, s.Claimable().IsZero())

	require.ErrorIs(t, f.l.TopUpStream(ctx, "alice", id, types.NewAmount(1)), streamledger.ErrSettlementPending)

	fs.failOn(nil)
	paid, err := f.l.Withdraw(ctx, "bob", id)
	require.NoError(t, err)
	require.Equal(t, "1000", paid.String())
	require.Equal(t, "1000", f.balance("bob"), "journaled payout is never sent twice")

	s, err = f.l.GetStream(ctx, id)
	require.NoError(t, err)
	require.False(t, s.IsActive)
	require.Nil(t, s.Withdrawal)
	require.Equal(t, "1000", s.WithdrawnAmount.String())
	f.requireConserved(t)

	f.waitTopics(t, event.TopicStreamCreated, event.TopicTokensWithdrawn)
}

func TestResumeSettlementsRecordsWithdrawals(t *testing.T) {
	f, fs := newFlakyFixture(t)
	ctx := context.Background()
	id := f.create(t, 1000, 1000)

	fs.failOn(recordingPayout)
	_, err := f.l.Withdraw(ctx, "bob", id)
	require.ErrorIs(t, err, streamledger.ErrSettlementPending)

	pending, err := f.l.ListStreams(ctx, stream.ListOpts{Settling: true})
	require.NoError(t, err)
	require.Len(t, pending, 1)

	fs.failOn(nil)
	n, err := f.l.ResumeSettlements(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	s, err := f.l.GetStream(ctx, id)
	require.NoError(t, err)
	require.Equal(t, stream.StatusCompleted, s.Status())
	require.Equal(t, "1000", f.balance("bob"))
	f.requireConserved(t)
}

func TestCancelRecordsPendingWithdrawalFirst(t *testing.T) {
	f, fs := newFlakyFixture(t)
	ctx := context.Background()
	id := f.create(t, 1000, 1000)
	require.NoError(t, f.l.TopUpStream(ctx, "alice", id, types.NewAmount(1000)))
	f.clock.Set(500)

	fs.failOn(recordingPayout)
	_, err := f.l.Withdraw(ctx, "bob", id)
	require.ErrorIs(t, err, streamledger.ErrSettlementPending)
	fs.failOn(nil)

	_, err = f.l.CancelStream(ctx, "alice", id)
	require.ErrorIs(t, err, streamledger.ErrStreamInactive)

	s, err := f.l.GetStream(ctx, id)
	require.NoError(t, err)
	require.Nil(t, s.Withdrawal)
	require.Equal(t, "2000", s.WithdrawnAmount.String())
	require.Equal(t, "2000", f.balance("bob"))
	f.requireConserved(t)
}

func TestWithdrawJournalWriteFailureMovesNothing(t *testing.T) {
	f, fs := newFlakyFixture(t)
	ctx := context.Background()
	id := f.create(t, 1000, 1000)

	fs.failOn(func(st *stream.Stream) bool { return st.Withdrawal != nil })
	_, err := f.l.Withdraw(ctx, "bob", id)
	require.ErrorIs(t, err, errDiskFull)
	require.NotErrorIs(t, err, streamledger.ErrSettlementPending)
	require.Equal(t, "0", f.balance("bob"))
	require.Equal(t, "1000", f.custodyBalance())

	s, err := f.l.GetStream(ctx, id)
	require.NoError(t, err)
	require.Nil(t, s.Withdrawal)
	require.Equal(t, stream.StatusActive, s.Status())
}

func TestWithdrawTransferFailureDiscardsJournal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.create(t, 1000, 1000)

	f.book.Intercept(failReference("/withdraw/0"))
	_, err := f.l.Withdraw(ctx, "bob", id)
	require.ErrorIs(t, err, streamledger.ErrTransferFailed)
	require.NotErrorIs(t, err, streamledger.ErrSettlementPending)

	s, err := f.l.GetStream(ctx, id)
	require.NoError(t, err)
	require.Nil(t, s.Withdrawal)
	require.True(t, s.IsActive)
	require.Equal(t, "1000", f.custodyBalance())

	f.book.Intercept(nil)
	paid, err := f.l.Withdraw(ctx, "bob", id)
	require.NoError(t, err)
	require.Equal(t, "1000", paid.String())
	f.requireConserved(t)
}

func TestStoreErrorsCarryContext(t *testing.T) {
	f, fs := newFlakyFixture(t)
	ctx := context.Background()
	id := f.create(t, 1000, 1000)

	fs.failOn(func(*stream.Stream) bool { return true })

	err := f.l.TopUpStream(ctx, "alice", id, types.NewAmount(10))
	require.ErrorIs(t, err, errDiskFull)
	require.Contains(t, err.Error(), "persist stream 1")

	_, err = f.l.CancelStream(ctx, "alice", id)
	require.ErrorIs(t, err, errDiskFull)
	require.Contains(t, err.Error(), "persist stream 1")

	_, err = f.l.CreateStream(ctx, "alice", "bob", xlm, types.NewAmount(10), 10)
	require.ErrorIs(t, err, errDiskFull)
	require.Contains(t, err.Error(), "persist stream 2")

	require.Equal(t, "1000", f.custodyBalance(), "failed writes are refunded")
}
