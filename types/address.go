package types

import "strings"

// Address is an opaque account identity. Two addresses are the same account
// exactly when their strings are equal.
type Address string

// IsZero reports whether the address is empty.
func (a Address) IsZero() bool { return strings.TrimSpace(string(a)) == "" }

func (a Address) String() string { return string(a) }

// Asset is an opaque token identifier.
type Asset string

// IsZero reports whether the asset is empty.
func (a Asset) IsZero() bool { return strings.TrimSpace(string(a)) == "" }

func (a Asset) String() string { return string(a) }
