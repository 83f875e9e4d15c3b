package store

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind tags the record a Key addresses.
type Kind uint8

const (
	KindStream Kind = iota + 1
	KindStreamCounter
	KindAdmin
	KindEmergencyStop
)

func (k Kind) String() string {
	switch k {
	case KindStream:
		return "stream"
	case KindStreamCounter:
		return "stream_counter"
	case KindAdmin:
		return "admin"
	case KindEmergencyStop:
		return "emergency_stop"
	default:
		return "unknown"
	}
}

// Key addresses one record. StreamID is only meaningful for KindStream.
type Key struct {
	Kind     Kind
	StreamID uint64
}

// Singleton keys.
var (
	CounterKey       = Key{Kind: KindStreamCounter}
	AdminKey         = Key{Kind: KindAdmin}
	EmergencyStopKey = Key{Kind: KindEmergencyStop}
)

// StreamKey returns the key of stream id.
func StreamKey(id uint64) Key {
	return Key{Kind: KindStream, StreamID: id}
}

// String renders the key as "stream/7", "stream_counter", "admin" or
// "emergency_stop". Backends use it as the primary key of state rows.
func (k Key) String() string {
	if k.Kind == KindStream {
		return "stream/" + strconv.FormatUint(k.StreamID, 10)
	}
	return k.Kind.String()
}

// ParseKey is the inverse of Key.String.
func ParseKey(s string) (Key, error) {
	switch s {
	case "stream_counter":
		return CounterKey, nil
	case "admin":
		return AdminKey, nil
	case "emergency_stop":
		return EmergencyStopKey, nil
	}

	rest, ok := strings.CutPrefix(s, "stream/")
	if !ok {
		return Key{}, fmt.Errorf("store: unknown key %q", s)
	}
	id, err := strconv.ParseUint(rest, 10, 64)
	if err != nil || id == 0 {
		return Key{}, fmt.Errorf("store: bad stream key %q", s)
	}
	return StreamKey(id), nil
}

// Page applies offset and limit to n results and returns the slice bounds.
// A zero limit means no limit.
func Page(n, offset, limit int) (lo, hi int) {
	if offset < 0 {
		offset = 0
	}
	if offset > n {
		offset = n
	}
	hi = n
	if limit > 0 && offset+limit < n {
		hi = offset + limit
	}
	return offset, hi
}
