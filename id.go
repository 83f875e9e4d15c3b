package streamledger

import "github.com/xraph/streamledger/id"

// ID is the TypeID used for events, transfer receipts and settlements.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
