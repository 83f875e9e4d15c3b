package store

import "testing"

func TestKeyRoundTrip(t *testing.T) {
	keys := []Key{StreamKey(1), StreamKey(18446744073709551615), CounterKey, AdminKey, EmergencyStopKey}
	for _, k := range keys {
		t.Run(k.String(), func(t *testing.T) {
			got, err := ParseKey(k.String())
			if err != nil {
				t.Fatalf("ParseKey: %v", err)
			}
			if got != k {
				t.Errorf("got %+v, want %+v", got, k)
			}
		})
	}
}

func TestParseKeyErrors(t *testing.T) {
	for _, s := range []string{"", "stream/", "stream/0", "stream/x", "streams/1", "admins"} {
		if _, err := ParseKey(s); err == nil {
			t.Errorf("ParseKey(%q): expected error", s)
		}
	}
}

func TestKeysAreDistinct(t *testing.T) {
	seen := map[Key]bool{}
	for _, k := range []Key{StreamKey(1), StreamKey(2), CounterKey, AdminKey, EmergencyStopKey} {
		if seen[k] {
			t.Fatalf("duplicate key %s", k)
		}
		seen[k] = true
	}
}

func TestPage(t *testing.T) {
	tests := []struct {
		n, offset, limit int
		lo, hi           int
	}{
		{10, 0, 0, 0, 10},
		{10, 2, 3, 2, 5},
		{10, 8, 5, 8, 10},
		{10, 20, 5, 10, 10},
		{10, -1, 2, 0, 2},
	}
	for _, tt := range tests {
		lo, hi := Page(tt.n, tt.offset, tt.limit)
		if lo != tt.lo || hi != tt.hi {
			t.Errorf("Page(%d,%d,%d) = %d,%d want %d,%d", tt.n, tt.offset, tt.limit, lo, hi, tt.lo, tt.hi)
		}
	}
}
