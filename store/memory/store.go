// Package memory is an in-process Store backed by maps. Every record is
// copied on the way in and on the way out, so callers never share state
// with the store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/xraph/streamledger"
	"github.com/xraph/streamledger/store"
	"github.com/xraph/streamledger/stream"
	"github.com/xraph/streamledger/types"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store is an in-memory ledger store.
type Store struct {
	mu     sync.RWMutex
	data   map[store.Key]any
	closed bool
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		data: make(map[store.Key]any),
	}
}

func (s *Store) fetch(k store.Key) (any, bool) {
	v, ok := s.data[k]
	return v, ok
}

func (s *Store) persist(k store.Key, v any) {
	s.data[k] = v
}

func (s *Store) remove(k store.Key) {
	delete(s.data, k)
}

func (s *Store) readable() error {
	if s.closed {
		return streamledger.ErrStoreClosed
	}
	return nil
}

// ──────────────────────────────────────────────────
// Streams
// ──────────────────────────────────────────────────

func (s *Store) GetStream(_ context.Context, streamID uint64) (*stream.Stream, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.readable(); err != nil {
		return nil, err
	}
	v, ok := s.fetch(store.StreamKey(streamID))
	if !ok {
		return nil, fmt.Errorf("%w: %d", streamledger.ErrStreamNotFound, streamID)
	}
	return v.(*stream.Stream).Clone(), nil
}

func (s *Store) PutStream(_ context.Context, st *stream.Stream) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.readable(); err != nil {
		return err
	}
	s.persist(store.StreamKey(st.ID), st.Clone())
	return nil
}

func (s *Store) RemoveStream(_ context.Context, streamID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.readable(); err != nil {
		return err
	}
	s.remove(store.StreamKey(streamID))
	return nil
}

func (s *Store) ListStreams(_ context.Context, opts stream.ListOpts) ([]*stream.Stream, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.readable(); err != nil {
		return nil, err
	}

	var out []*stream.Stream
	for k, v := range s.data {
		if k.Kind != store.KindStream {
			continue
		}
		st := v.(*stream.Stream)
		if opts.Matches(st) {
			out = append(out, st.Clone())
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	lo, hi := store.Page(len(out), opts.Offset, opts.Limit)
	return out[lo:hi], nil
}

func (s *Store) NextStreamID(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.readable(); err != nil {
		return 0, err
	}
	var n uint64
	if v, ok := s.fetch(store.CounterKey); ok {
		n = v.(uint64)
	}
	n++
	s.persist(store.CounterKey, n)
	return n, nil
}

// ──────────────────────────────────────────────────
// Governance
// ──────────────────────────────────────────────────

func (s *Store) GetAdmin(_ context.Context) (types.Address, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.readable(); err != nil {
		return "", false, err
	}
	v, ok := s.fetch(store.AdminKey)
	if !ok {
		return "", false, nil
	}
	return v.(types.Address), true, nil
}

func (s *Store) InitAdmin(_ context.Context, admin types.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.readable(); err != nil {
		return err
	}
	if _, ok := s.fetch(store.AdminKey); ok {
		return streamledger.ErrAlreadyInitialized
	}
	s.persist(store.AdminKey, admin)
	return nil
}

func (s *Store) GetEmergencyStop(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.readable(); err != nil {
		return false, err
	}
	v, ok := s.fetch(store.EmergencyStopKey)
	if !ok {
		return false, nil
	}
	return v.(bool), nil
}

func (s *Store) SetEmergencyStop(_ context.Context, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.readable(); err != nil {
		return err
	}
	s.persist(store.EmergencyStopKey, enabled)
	return nil
}

// ──────────────────────────────────────────────────
// Core
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping reports ErrStoreClosed after Close.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readable()
}

// Close marks the store closed. Later calls return ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
