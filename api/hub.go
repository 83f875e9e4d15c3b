package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xraph/streamledger/event"
	"github.com/xraph/streamledger/plugin"
	"github.com/xraph/streamledger/types"
)

// compile-time interface check
var _ plugin.OnEvent = (*Hub)(nil)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// Hub fans ledger notifications out to websocket subscribers. Register it
// on the ledger as a plugin and mount it with WithHub.
//
// A subscriber may pass ?party=<address> to receive only events that concern
// that address. Governance events reach every subscriber. A subscriber that
// cannot keep up loses events rather than slowing the ledger down.
type Hub struct {
	logger *slog.Logger
	buffer int

	mu      sync.RWMutex
	clients map[*subscriber]struct{}
}

type subscriber struct {
	party types.Address
	send  chan []byte
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithHubLogger sets the hub logger.
func WithHubLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) { h.logger = logger }
}

// WithHubBuffer sets the per-subscriber queue size.
func WithHubBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// NewHub returns an empty hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		logger:  slog.Default(),
		buffer:  64,
		clients: make(map[*subscriber]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name implements plugin.Plugin.
func (h *Hub) Name() string { return "api-event-hub" }

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// OnEvent implements plugin.OnEvent.
func (h *Hub) OnEvent(_ context.Context, env *event.Envelope) error {
	msg, err := json.Marshal(env)
	if err != nil {
		return err
	}
	parties := env.Parties()

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.clients {
		if sub.party != "" && parties != nil && !slices.Contains(parties, sub.party) {
			continue
		}
		select {
		case sub.send <- msg:
		default:
			h.logger.Warn("api: subscriber queue full, dropping event",
				"event_id", env.ID.String(),
				"topic", env.Topic,
			)
		}
	}
	return nil
}

func (h *Hub) add(sub *subscriber) {
	h.mu.Lock()
	h.clients[sub] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	delete(h.clients, sub)
	h.mu.Unlock()
}

// ServeHTTP upgrades the connection and streams events until the client
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := &subscriber{
		party: types.Address(r.URL.Query().Get("party")),
		send:  make(chan []byte, h.buffer),
	}
	h.add(sub)
	defer h.remove(sub)

	// The read loop only watches for close frames and pongs.
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-sub.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
