package sqlite_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"

	"github.com/xraph/streamledger/store"
	"github.com/xraph/streamledger/store/sqlite"
	"github.com/xraph/streamledger/store/storetest"
)

var dbSeq atomic.Int64

// newStore opens a private in-memory database and migrates it.
func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	ctx := context.Background()

	drv := sqlitedriver.New()
	dsn := fmt.Sprintf("file:streamledger%d?mode=memory&cache=shared", dbSeq.Add(1))
	require.NoError(t, drv.Open(ctx, dsn))

	db, err := grove.Open(drv)
	require.NoError(t, err)

	s := sqlite.New(db)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(ctx))
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return newStore(t) })
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Ping(context.Background()))
}
