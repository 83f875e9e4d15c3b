// Package types provides the value types shared across streamledger.
package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

var (
	// ErrAmountOverflow is returned when a result leaves the signed 128-bit range.
	ErrAmountOverflow = errors.New("types: amount overflows int128")

	// ErrDivideByZero is returned by MulDiv and Quo for a zero divisor.
	ErrDivideByZero = errors.New("types: division by zero")
)

// Amount is a signed 128-bit token quantity in the asset's smallest unit.
//
// The value lives in a 256-bit two's-complement word so that the product of
// any Amount and a 64-bit time value is exact. Every constructor and
// arithmetic method re-checks the int128 range. The zero value is 0.
type Amount struct {
	v uint256.Int
}

var (
	minusOne = *new(uint256.Int).Not(new(uint256.Int))
)

// NewAmount returns n as an Amount.
func NewAmount(n int64) Amount {
	var a Amount
	if n < 0 {
		a.v.SetUint64(uint64(-n))
		a.v.Neg(&a.v)
		return a
	}
	a.v.SetUint64(uint64(n))
	return a
}

// AmountFromUint64 returns n as an Amount.
func AmountFromUint64(n uint64) Amount {
	var a Amount
	a.v.SetUint64(n)
	return a
}

// Zero returns the zero amount.
func Zero() Amount { return Amount{} }

// ParseAmount parses a base-10 integer with an optional leading sign.
func ParseAmount(s string) (Amount, error) {
	raw := strings.TrimSpace(s)
	neg := false
	switch {
	case strings.HasPrefix(raw, "-"):
		neg, raw = true, raw[1:]
	case strings.HasPrefix(raw, "+"):
		raw = raw[1:]
	}
	if raw == "" || raw[0] == '+' || raw[0] == '-' {
		return Amount{}, fmt.Errorf("types: parse amount %q: empty digits", s)
	}

	u, err := uint256.FromDecimal(raw)
	if err != nil {
		return Amount{}, fmt.Errorf("types: parse amount %q: %w", s, err)
	}

	a := Amount{v: *u}
	if neg {
		a.v.Neg(&a.v)
	}
	if !a.valid() {
		return Amount{}, fmt.Errorf("types: parse amount %q: %w", s, ErrAmountOverflow)
	}
	return a, nil
}

// MustParseAmount is like ParseAmount but panics on error.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// valid reports whether the word sign-extends from bit 127.
func (a Amount) valid() bool {
	var hi uint256.Int
	hi.SRsh(&a.v, 127)
	return hi.IsZero() || hi.Eq(&minusOne)
}

func (a Amount) checked() (Amount, error) {
	if !a.valid() {
		return Amount{}, ErrAmountOverflow
	}
	return a, nil
}

// Add returns a + b.
func (a Amount) Add(b Amount) (Amount, error) {
	var r Amount
	r.v.Add(&a.v, &b.v)
	return r.checked()
}

// Sub returns a - b.
func (a Amount) Sub(b Amount) (Amount, error) {
	var r Amount
	r.v.Sub(&a.v, &b.v)
	return r.checked()
}

// SubFloor returns max(0, a - b).
func (a Amount) SubFloor(b Amount) (Amount, error) {
	r, err := a.Sub(b)
	if err != nil {
		return Amount{}, err
	}
	return r.ClampZero(), nil
}

// MulDiv returns a * num / den, truncated toward zero. The intermediate
// product is exact.
func (a Amount) MulDiv(num, den uint64) (Amount, error) {
	if den == 0 {
		return Amount{}, ErrDivideByZero
	}

	var abs uint256.Int
	abs.Abs(&a.v)

	var n, d uint256.Int
	n.SetUint64(num)
	d.SetUint64(den)

	var r Amount
	r.v.Mul(&abs, &n)
	r.v.Div(&r.v, &d)
	if a.IsNegative() {
		r.v.Neg(&r.v)
	}
	return r.checked()
}

// Quo returns a / d, truncated toward zero.
func (a Amount) Quo(d uint64) (Amount, error) {
	return a.MulDiv(1, d)
}

// Sign returns -1, 0 or +1.
func (a Amount) Sign() int { return a.v.Sign() }

// IsZero reports whether a == 0.
func (a Amount) IsZero() bool { return a.v.IsZero() }

// IsPositive reports whether a > 0.
func (a Amount) IsPositive() bool { return a.v.Sign() > 0 }

// IsNegative reports whether a < 0.
func (a Amount) IsNegative() bool { return a.v.Sign() < 0 }

// Cmp compares a and b as signed integers.
func (a Amount) Cmp(b Amount) int {
	switch {
	case a.v.Slt(&b.v):
		return -1
	case a.v.Sgt(&b.v):
		return 1
	default:
		return 0
	}
}

// Equal reports whether a == b.
func (a Amount) Equal(b Amount) bool { return a.v.Eq(&b.v) }

// LessThan reports whether a < b.
func (a Amount) LessThan(b Amount) bool { return a.Cmp(b) < 0 }

// GreaterThan reports whether a > b.
func (a Amount) GreaterThan(b Amount) bool { return a.Cmp(b) > 0 }

// Min returns the smaller of a and b.
func (a Amount) Min(b Amount) Amount {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func (a Amount) Max(b Amount) Amount {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

// ClampZero returns max(0, a).
func (a Amount) ClampZero() Amount {
	if a.IsNegative() {
		return Amount{}
	}
	return a
}

// Uint64 returns a as a uint64 and whether it fit.
func (a Amount) Uint64() (uint64, bool) {
	if a.IsNegative() || !a.v.IsUint64() {
		return 0, false
	}
	return a.v.Uint64(), true
}

// Big returns a as a *big.Int.
func (a Amount) Big() *big.Int {
	if a.IsNegative() {
		var abs uint256.Int
		abs.Abs(&a.v)
		return new(big.Int).Neg(abs.ToBig())
	}
	return a.v.ToBig()
}

// String returns the base-10 representation.
func (a Amount) String() string {
	if a.IsNegative() {
		var abs uint256.Int
		abs.Abs(&a.v)
		return "-" + abs.Dec()
	}
	return a.v.Dec()
}

// MarshalText implements encoding.TextMarshaler.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Amount) UnmarshalText(data []byte) error {
	parsed, err := ParseAmount(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalJSON encodes the amount as a quoted decimal string so that values
// beyond 2^53 survive JavaScript clients.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts a quoted decimal string or a bare JSON integer.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		s = string(data)
	}
	return a.UnmarshalText([]byte(s))
}

// Value implements driver.Valuer. Amounts are stored as decimal text.
func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

// Scan implements sql.Scanner.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = Amount{}
		return nil
	case string:
		return a.UnmarshalText([]byte(v))
	case []byte:
		return a.UnmarshalText(v)
	case int64:
		*a = NewAmount(v)
		return nil
	default:
		return fmt.Errorf("types: cannot scan %T into Amount", src)
	}
}
