// Package store defines the persistence contract for the streaming ledger.
//
// A Store holds four kinds of record, addressed by the tagged Key type:
// one record per stream, the stream counter, the administrator address and
// the emergency flag. Backends live in the subpackages (memory, sqlite,
// postgres, mongo) and all return the root package's sentinel errors.
package store

import (
	"context"

	"github.com/xraph/streamledger/stream"
	"github.com/xraph/streamledger/types"
)

// Store is the unified storage interface for ledger state.
type Store interface {
	// GetStream returns the stream record, or an error wrapping
	// ErrStreamNotFound.
	GetStream(ctx context.Context, streamID uint64) (*stream.Stream, error)

	// PutStream creates or replaces the stream record.
	PutStream(ctx context.Context, s *stream.Stream) error

	// RemoveStream erases the stream record. Removing a missing record is
	// not an error.
	RemoveStream(ctx context.Context, streamID uint64) error

	// ListStreams returns records matching opts ordered by ascending id.
	ListStreams(ctx context.Context, opts stream.ListOpts) ([]*stream.Stream, error)

	// NextStreamID atomically increments the stream counter and returns
	// the new value. The first id is 1.
	NextStreamID(ctx context.Context) (uint64, error)

	// GetAdmin returns the administrator, and false if none is set.
	GetAdmin(ctx context.Context) (types.Address, bool, error)

	// InitAdmin records the administrator unless one already exists, in
	// which case it returns ErrAlreadyInitialized. The check and the write
	// are a single atomic step.
	InitAdmin(ctx context.Context, admin types.Address) error

	// GetEmergencyStop returns the emergency flag; false when never set.
	GetEmergencyStop(ctx context.Context) (bool, error)

	// SetEmergencyStop persists the emergency flag.
	SetEmergencyStop(ctx context.Context, enabled bool) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
