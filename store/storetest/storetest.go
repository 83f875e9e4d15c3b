// Package storetest is a conformance suite every store.Store backend runs
// from its own tests.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xraph/streamledger"
	"github.com/xraph/streamledger/store"
	"github.com/xraph/streamledger/stream"
	"github.com/xraph/streamledger/types"
)

// Factory returns a fresh, migrated, empty store.
type Factory func(t *testing.T) store.Store

// Run exercises every Store method against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("StreamRoundTrip", func(t *testing.T) { testStreamRoundTrip(t, newStore(t)) })
	t.Run("StreamNotFound", func(t *testing.T) { testStreamNotFound(t, newStore(t)) })
	t.Run("PutReplaces", func(t *testing.T) { testPutReplaces(t, newStore(t)) })
	t.Run("WithdrawalJournal", func(t *testing.T) { testWithdrawalJournal(t, newStore(t)) })
	t.Run("RemoveStream", func(t *testing.T) { testRemoveStream(t, newStore(t)) })
	t.Run("ListStreams", func(t *testing.T) { testListStreams(t, newStore(t)) })
	t.Run("CounterSequential", func(t *testing.T) { testCounterSequential(t, newStore(t)) })
	t.Run("CounterConcurrent", func(t *testing.T) { testCounterConcurrent(t, newStore(t)) })
	t.Run("Admin", func(t *testing.T) { testAdmin(t, newStore(t)) })
	t.Run("AdminConcurrent", func(t *testing.T) { testAdminConcurrent(t, newStore(t)) })
	t.Run("EmergencyStop", func(t *testing.T) { testEmergencyStop(t, newStore(t)) })
}

// Sample returns a populated active stream record.
func Sample(streamID uint64, sender, recipient types.Address) *stream.Stream {
	return &stream.Stream{
		Entity:          types.NewEntity(),
		ID:              streamID,
		Sender:          sender,
		Recipient:       recipient,
		Asset:           "XLM",
		RatePerSecond:   types.NewAmount(1),
		DepositedAmount: types.NewAmount(1000),
		WithdrawnAmount: types.Zero(),
		Duration:        1000,
		StartTime:       100,
		LastUpdateTime:  100,
		IsActive:        true,
	}
}

func testStreamRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	want := Sample(1, "alice", "bob")
	want.DepositedAmount = types.MustParseAmount("170141183460469231731687303715884105727")
	want.Settlement = stream.NewSettlement(stream.Split{
		Vested:    types.NewAmount(300),
		Remainder: types.NewAmount(700),
	}, 400)
	want.Settlement.VestedPaid = true

	require.NoError(t, s.PutStream(ctx, want))

	got, err := s.GetStream(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, want.ID, got.ID)
	require.Equal(t, want.Sender, got.Sender)
	require.Equal(t, want.Recipient, got.Recipient)
	require.Equal(t, want.Asset, got.Asset)
	require.True(t, want.DepositedAmount.Equal(got.DepositedAmount), "deposited %s", got.DepositedAmount)
	require.True(t, want.RatePerSecond.Equal(got.RatePerSecond))
	require.True(t, got.WithdrawnAmount.IsZero())
	require.Equal(t, want.Duration, got.Duration)
	require.Equal(t, want.StartTime, got.StartTime)
	require.Equal(t, want.LastUpdateTime, got.LastUpdateTime)
	require.True(t, got.IsActive)
	require.NotNil(t, got.Settlement)
	require.True(t, got.Settlement.VestedPaid)
	require.False(t, got.Settlement.RemainderPaid)
	require.Equal(t, "700", got.Settlement.Remainder.String())
	require.Equal(t, want.Settlement.ID.String(), got.Settlement.ID.String())
}

func testStreamNotFound(t *testing.T, s store.Store) {
	_, err := s.GetStream(context.Background(), 42)
	require.ErrorIs(t, err, streamledger.ErrStreamNotFound)
}

func testPutReplaces(t *testing.T, s store.Store) {
	ctx := context.Background()
	st := Sample(3, "alice", "bob")
	require.NoError(t, s.PutStream(ctx, st))

	st.WithdrawnAmount = types.NewAmount(1000)
	st.IsActive = false
	st.LastUpdateTime = 900
	require.NoError(t, s.PutStream(ctx, st))

	got, err := s.GetStream(ctx, 3)
	require.NoError(t, err)
	require.False(t, got.IsActive)
	require.Equal(t, "1000", got.WithdrawnAmount.String())
	require.Equal(t, uint64(900), got.LastUpdateTime)
	require.Nil(t, got.Settlement)
}

func testWithdrawalJournal(t *testing.T, s store.Store) {
	ctx := context.Background()
	st := Sample(4, "alice", "bob")
	st.Withdrawal = &stream.Withdrawal{
		Amount:    types.NewAmount(1000),
		Reference: "stream/4/withdraw/0",
		At:        250,
	}
	require.NoError(t, s.PutStream(ctx, st))
	require.NoError(t, s.PutStream(ctx, Sample(6, "alice", "bob")))

	got, err := s.GetStream(ctx, 4)
	require.NoError(t, err)
	require.NotNil(t, got.Withdrawal)
	require.Equal(t, "1000", got.Withdrawal.Amount.String())
	require.Equal(t, "stream/4/withdraw/0", got.Withdrawal.Reference)
	require.Equal(t, uint64(250), got.Withdrawal.At)

	pending, err := s.ListStreams(ctx, stream.ListOpts{Party: "alice", Settling: true})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, uint64(4), pending[0].ID)

	st.Withdrawal = nil
	st.WithdrawnAmount = types.NewAmount(1000)
	require.NoError(t, s.PutStream(ctx, st))

	got, err = s.GetStream(ctx, 4)
	require.NoError(t, err)
	require.Nil(t, got.Withdrawal)

	pending, err = s.ListStreams(ctx, stream.ListOpts{Settling: true})
	require.NoError(t, err)
	require.Empty(t, pending)
}

func testRemoveStream(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.PutStream(ctx, Sample(5, "alice", "bob")))
	require.NoError(t, s.RemoveStream(ctx, 5))

	_, err := s.GetStream(ctx, 5)
	require.ErrorIs(t, err, streamledger.ErrStreamNotFound)

	require.NoError(t, s.RemoveStream(ctx, 5), "removing twice is not an error")
}

func testListStreams(t *testing.T, s store.Store) {
	ctx := context.Background()
	for i, pair := range [][2]types.Address{
		{"alice", "bob"}, {"alice", "carol"}, {"bob", "alice"}, {"dave", "erin"},
	} {
		require.NoError(t, s.PutStream(ctx, Sample(uint64(i+1), pair[0], pair[1])))
	}
	inactive := Sample(5, "alice", "erin")
	inactive.IsActive = false
	require.NoError(t, s.PutStream(ctx, inactive))

	ids := func(list []*stream.Stream) []uint64 {
		out := make([]uint64, len(list))
		for i, st := range list {
			out[i] = st.ID
		}
		return out
	}

	all, err := s.ListStreams(ctx, stream.ListOpts{})
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2, 3, 4, 5}, ids(all))

	alice, err := s.ListStreams(ctx, stream.ListOpts{Party: "alice"})
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2, 3, 5}, ids(alice))

	sent, err := s.ListStreams(ctx, stream.ListOpts{Party: "alice", Role: stream.RoleSender, ActiveOnly: true})
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2}, ids(sent))

	received, err := s.ListStreams(ctx, stream.ListOpts{Party: "alice", Role: stream.RoleRecipient})
	require.NoError(t, err)
	require.Equal(t, []uint64{3}, ids(received))

	page, err := s.ListStreams(ctx, stream.ListOpts{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Equal(t, []uint64{2, 3}, ids(page))
}

func testCounterSequential(t *testing.T, s store.Store) {
	ctx := context.Background()
	for want := uint64(1); want <= 5; want++ {
		got, err := s.NextStreamID(ctx)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func testCounterConcurrent(t *testing.T, s store.Store) {
	ctx := context.Background()
	const n = 32

	var (
		mu   sync.Mutex
		seen = make(map[uint64]bool, n)
		wg   sync.WaitGroup
	)
	errs := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := s.NextStreamID(ctx)
			if err != nil {
				errs <- err
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[got] {
				errs <- errors.New("duplicate stream id")
			}
			seen[got] = true
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.Len(t, seen, n)
	for i := uint64(1); i <= n; i++ {
		require.True(t, seen[i], "missing id %d", i)
	}
}

func testAdmin(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, ok, err := s.GetAdmin(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.InitAdmin(ctx, "root"))
	require.ErrorIs(t, s.InitAdmin(ctx, "mallory"), streamledger.ErrAlreadyInitialized)

	admin, ok, err := s.GetAdmin(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, types.Address("root"), admin)
}

func testAdminConcurrent(t *testing.T, s store.Store) {
	ctx := context.Background()
	const n = 16

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.InitAdmin(ctx, types.Address("admin-"+string(rune('a'+i))))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, wins)
}

func testEmergencyStop(t *testing.T, s store.Store) {
	ctx := context.Background()

	on, err := s.GetEmergencyStop(ctx)
	require.NoError(t, err)
	require.False(t, on)

	require.NoError(t, s.SetEmergencyStop(ctx, true))
	on, err = s.GetEmergencyStop(ctx)
	require.NoError(t, err)
	require.True(t, on)

	require.NoError(t, s.SetEmergencyStop(ctx, false))
	on, err = s.GetEmergencyStop(ctx)
	require.NoError(t, err)
	require.False(t, on)
}
