// Package event defines the notifications the ledger emits after each
// successful state change.
package event

import (
	"time"

	"github.com/xraph/streamledger/id"
	"github.com/xraph/streamledger/types"
)

// Topic names a notification kind.
type Topic string

// Topics emitted by the ledger.
const (
	TopicStreamCreated        Topic = "stream_created"
	TopicStreamToppedUp       Topic = "stream_topped_up"
	TopicTokensWithdrawn      Topic = "tokens_withdrawn"
	TopicStreamCancelled      Topic = "stream_cancelled"
	TopicEmergencyStopToggled Topic = "emergency_stop_toggled"
)

// StreamCreated is emitted once per new stream.
type StreamCreated struct {
	StreamID      uint64        `json:"stream_id"`
	Sender        types.Address `json:"sender"`
	Recipient     types.Address `json:"recipient"`
	RatePerSecond types.Amount  `json:"rate_per_second"`
	Asset         types.Asset   `json:"asset"`
	Amount        types.Amount  `json:"amount"`
	Duration      uint64        `json:"duration"`
	StartTime     uint64        `json:"start_time"`
}

// StreamToppedUp is emitted after a deposit increase.
type StreamToppedUp struct {
	StreamID     uint64        `json:"stream_id"`
	Sender       types.Address `json:"sender"`
	Recipient    types.Address `json:"recipient"`
	Amount       types.Amount  `json:"amount"`
	NewDeposited types.Amount  `json:"new_deposited_amount"`
}

// TokensWithdrawn is emitted after the recipient claims funds.
type TokensWithdrawn struct {
	StreamID  uint64        `json:"stream_id"`
	Sender    types.Address `json:"sender"`
	Recipient types.Address `json:"recipient"`
	Amount    types.Amount  `json:"amount"`
	Timestamp uint64        `json:"timestamp"`
}

// StreamCancelled is emitted once a cancellation has fully settled.
type StreamCancelled struct {
	StreamID        uint64        `json:"stream_id"`
	Sender          types.Address `json:"sender"`
	Recipient       types.Address `json:"recipient"`
	AmountWithdrawn types.Amount  `json:"amount_withdrawn"`
	Vested          types.Amount  `json:"vested"`
	Remainder       types.Amount  `json:"remainder"`
	Timestamp       uint64        `json:"timestamp"`
}

// EmergencyStopToggled is emitted when the administrator flips the flag.
type EmergencyStopToggled struct {
	Admin     types.Address `json:"admin"`
	Enabled   bool          `json:"enabled"`
	Timestamp uint64        `json:"timestamp"`
}

// Envelope wraps a payload with routing metadata. Payload is one of the
// pointer types above.
type Envelope struct {
	ID        id.EventID `json:"id"`
	Topic     Topic      `json:"topic"`
	StreamID  uint64     `json:"stream_id,omitempty"`
	Payload   any        `json:"payload"`
	EmittedAt time.Time  `json:"emitted_at"`
}

// New wraps payload in an envelope, inferring topic and stream id.
func New(payload any) *Envelope {
	env := &Envelope{
		ID:        id.NewEventID(),
		Payload:   payload,
		EmittedAt: time.Now().UTC(),
	}
	switch p := payload.(type) {
	case *StreamCreated:
		env.Topic, env.StreamID = TopicStreamCreated, p.StreamID
	case *StreamToppedUp:
		env.Topic, env.StreamID = TopicStreamToppedUp, p.StreamID
	case *TokensWithdrawn:
		env.Topic, env.StreamID = TopicTokensWithdrawn, p.StreamID
	case *StreamCancelled:
		env.Topic, env.StreamID = TopicStreamCancelled, p.StreamID
	case *EmergencyStopToggled:
		env.Topic = TopicEmergencyStopToggled
	}
	return env
}

// Parties returns the addresses a notification concerns. Governance events
// concern nobody in particular and return nil.
func (e *Envelope) Parties() []types.Address {
	switch p := e.Payload.(type) {
	case *StreamCreated:
		return []types.Address{p.Sender, p.Recipient}
	case *StreamToppedUp:
		return []types.Address{p.Sender, p.Recipient}
	case *TokensWithdrawn:
		return []types.Address{p.Sender, p.Recipient}
	case *StreamCancelled:
		return []types.Address{p.Sender, p.Recipient}
	default:
		return nil
	}
}
