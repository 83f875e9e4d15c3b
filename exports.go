package streamledger

import (
	"github.com/xraph/streamledger/stream"
	"github.com/xraph/streamledger/types"
)

// Re-export common types so callers rarely need the types package.

// Amount is re-exported from the types package.
type Amount = types.Amount

// Address is re-exported from the types package.
type Address = types.Address

// Asset is re-exported from the types package.
type Asset = types.Asset

// Stream is re-exported from the stream package.
type Stream = stream.Stream

// Split is re-exported from the stream package.
type Split = stream.Split

// Re-export Amount constructors
var (
	NewAmount       = types.NewAmount
	ParseAmount     = types.ParseAmount
	MustParseAmount = types.MustParseAmount
)
