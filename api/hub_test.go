package api

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/xraph/streamledger/auth"
	"github.com/xraph/streamledger/event"
	"github.com/xraph/streamledger/types"
)

func dialHub(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHubDeliversLedgerEvents(t *testing.T) {
	hub := NewHub(WithHubLogger(quiet))
	l, _, _ := newLedger(t, auth.NewStatic("alice"), hub)
	srv := httptest.NewServer(New(l, WithLogger(quiet), WithHub(hub)).Handler())
	t.Cleanup(srv.Close)

	conn := dialHub(t, srv, "/v1/events")
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	_, err := l.CreateStream(context.Background(), "alice", "bob", "XLM", types.NewAmount(100), 10)
	require.NoError(t, err)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env struct {
		Topic    event.Topic `json:"topic"`
		StreamID uint64      `json:"stream_id"`
	}
	require.NoError(t, conn.ReadJSON(&env))
	require.Equal(t, event.TopicStreamCreated, env.Topic)
	require.Equal(t, uint64(1), env.StreamID)
}

func TestHubPartyFilter(t *testing.T) {
	hub := NewHub(WithHubLogger(quiet))
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	conn := dialHub(t, srv, "/?party=carol")
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	ctx := context.Background()
	require.NoError(t, hub.OnEvent(ctx, event.New(&event.StreamCreated{StreamID: 1, Sender: "alice", Recipient: "bob"})))
	require.NoError(t, hub.OnEvent(ctx, event.New(&event.StreamCreated{StreamID: 2, Sender: "alice", Recipient: "carol"})))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env struct {
		StreamID uint64 `json:"stream_id"`
	}
	require.NoError(t, conn.ReadJSON(&env))
	require.Equal(t, uint64(2), env.StreamID)
}

func TestHubUnsubscribesOnClose(t *testing.T) {
	hub := NewHub(WithHubLogger(quiet))
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	conn := dialHub(t, srv, "/")
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}
