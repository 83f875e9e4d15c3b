package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xraph/streamledger"
	"github.com/xraph/streamledger/store"
	"github.com/xraph/streamledger/store/memory"
	"github.com/xraph/streamledger/store/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return memory.New() })
}

func TestReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	st := storetest.Sample(1, "alice", "bob")
	require.NoError(t, s.PutStream(ctx, st))
	st.Recipient = "mallory"

	got, err := s.GetStream(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "bob", string(got.Recipient))

	got.IsActive = false
	again, err := s.GetStream(ctx, 1)
	require.NoError(t, err)
	require.True(t, again.IsActive)
}

func TestClosed(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.Close())

	require.ErrorIs(t, s.Ping(ctx), streamledger.ErrStoreClosed)
	_, err := s.NextStreamID(ctx)
	require.ErrorIs(t, err, streamledger.ErrStoreClosed)
	require.ErrorIs(t, s.PutStream(ctx, storetest.Sample(1, "a", "b")), streamledger.ErrStoreClosed)
}
