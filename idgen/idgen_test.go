package idgen

import (
	"strings"
	"testing"
)

func TestUUIDv7Unique(t *testing.T) {
	gen := UUIDv7()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := gen()
		if len(id) != 36 {
			t.Fatalf("unexpected UUID length: %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate ID: %q", id)
		}
		seen[id] = true
	}
}

func TestNanoID(t *testing.T) {
	gen := NanoID(12)
	id := gen()
	if len(id) != 12 {
		t.Fatalf("len = %d, want 12", len(id))
	}
	for _, r := range id {
		if !strings.ContainsRune("0123456789abcdefghijklmnopqrstuvwxyz", r) {
			t.Fatalf("unexpected rune %q in %q", r, id)
		}
	}
}

func TestPrefixed(t *testing.T) {
	gen := Prefixed("scn_", NanoID(8))
	id := gen()
	if !strings.HasPrefix(id, "scn_") {
		t.Fatalf("missing prefix: %q", id)
	}
	if len(id) != 4+8 {
		t.Fatalf("len = %d, want 12", len(id))
	}
}
