package types

import (
	"encoding/json"
	"errors"
	"testing"
)

const (
	maxInt128 = "170141183460469231731687303715884105727"
	minInt128 = "-170141183460469231731687303715884105728"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr error
	}{
		{"0", "0", nil},
		{"1000", "1000", nil},
		{"-42", "-42", nil},
		{"+7", "7", nil},
		{" 15 ", "15", nil},
		{maxInt128, maxInt128, nil},
		{minInt128, minInt128, nil},
		{"170141183460469231731687303715884105728", "", ErrAmountOverflow},
		{"-170141183460469231731687303715884105729", "", ErrAmountOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseAmountRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "-", "+", "abc", "1.5", "--3"} {
		if _, err := ParseAmount(in); err == nil {
			t.Errorf("ParseAmount(%q): expected error", in)
		}
	}
}

func TestAmountArithmetic(t *testing.T) {
	a := NewAmount(1000)
	b := NewAmount(250)

	sum, err := a.Add(b)
	if err != nil || sum.String() != "1250" {
		t.Errorf("Add = %s, %v", sum, err)
	}

	diff, err := b.Sub(a)
	if err != nil || diff.String() != "-750" {
		t.Errorf("Sub = %s, %v", diff, err)
	}

	floor, err := b.SubFloor(a)
	if err != nil || !floor.IsZero() {
		t.Errorf("SubFloor = %s, %v", floor, err)
	}
}

func TestAmountOverflow(t *testing.T) {
	hi := MustParseAmount(maxInt128)
	if _, err := hi.Add(NewAmount(1)); !errors.Is(err, ErrAmountOverflow) {
		t.Errorf("max+1: err = %v", err)
	}

	lo := MustParseAmount(minInt128)
	if _, err := lo.Sub(NewAmount(1)); !errors.Is(err, ErrAmountOverflow) {
		t.Errorf("min-1: err = %v", err)
	}
}

func TestAmountMulDiv(t *testing.T) {
	tests := []struct {
		name     string
		a        Amount
		num, den uint64
		want     string
	}{
		{"half", NewAmount(1000), 500, 1000, "500"},
		{"floor", NewAmount(10), 1, 3, "3"},
		{"negative truncates toward zero", NewAmount(-10), 1, 3, "-3"},
		{"wide intermediate", MustParseAmount(maxInt128), 1 << 63, 1 << 63, maxInt128},
		{"zero", NewAmount(0), 99, 7, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.a.MulDiv(tt.num, tt.den)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}

	if _, err := NewAmount(1).Quo(0); !errors.Is(err, ErrDivideByZero) {
		t.Errorf("Quo(0): err = %v", err)
	}
}

func TestAmountComparison(t *testing.T) {
	neg := NewAmount(-5)
	pos := NewAmount(5)

	if !neg.LessThan(pos) || pos.LessThan(neg) {
		t.Error("signed ordering broken")
	}
	if !pos.GreaterThan(neg) {
		t.Error("GreaterThan broken")
	}
	if neg.Cmp(NewAmount(-5)) != 0 || !neg.Equal(NewAmount(-5)) {
		t.Error("equality broken")
	}
	if !neg.Min(pos).Equal(neg) || !neg.Max(pos).Equal(pos) {
		t.Error("Min/Max broken")
	}
	if !neg.ClampZero().IsZero() || !pos.ClampZero().Equal(pos) {
		t.Error("ClampZero broken")
	}
	if !neg.IsNegative() || !pos.IsPositive() || !Zero().IsZero() {
		t.Error("sign predicates broken")
	}
}

func TestAmountJSON(t *testing.T) {
	type wrapper struct {
		A Amount `json:"a"`
	}

	b, err := json.Marshal(wrapper{A: MustParseAmount(maxInt128)})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"a":"`+maxInt128+`"}` {
		t.Errorf("got %s", b)
	}

	var w wrapper
	if err := json.Unmarshal([]byte(`{"a":1234}`), &w); err != nil {
		t.Fatal(err)
	}
	if w.A.String() != "1234" {
		t.Errorf("bare number: got %s", w.A)
	}
}

func TestAmountScan(t *testing.T) {
	var a Amount
	if err := a.Scan("987"); err != nil || a.String() != "987" {
		t.Errorf("string scan: %s, %v", a, err)
	}
	if err := a.Scan([]byte("-3")); err != nil || a.String() != "-3" {
		t.Errorf("bytes scan: %s, %v", a, err)
	}
	if err := a.Scan(int64(11)); err != nil || a.String() != "11" {
		t.Errorf("int scan: %s, %v", a, err)
	}
	if err := a.Scan(3.5); err == nil {
		t.Error("expected error scanning float")
	}

	v, err := NewAmount(-8).Value()
	if err != nil || v != "-8" {
		t.Errorf("Value = %v, %v", v, err)
	}
}

func TestAmountUint64(t *testing.T) {
	if n, ok := NewAmount(77).Uint64(); !ok || n != 77 {
		t.Errorf("Uint64 = %d, %v", n, ok)
	}
	if _, ok := NewAmount(-1).Uint64(); ok {
		t.Error("negative should not fit")
	}
	if NewAmount(-9).Big().String() != "-9" {
		t.Error("Big broken")
	}
}
