package frameid

import (
	"strings"
	"testing"
)

func TestKey(t *testing.T) {
	px := []float32{0.1, 0.2, 0.3, 0.4}
	id1 := Key(2, 2, px)
	id2 := Key(2, 2, append([]float32(nil), px...))
	if id1 != id2 {
		t.Errorf("same contents should give same key: %q vs %q", id1, id2)
	}
	if !strings.HasPrefix(id1, prefix) {
		t.Errorf("key should have prefix %q: got %q", prefix, id1)
	}
	if len(id1) != len(prefix)+64 {
		t.Errorf("unexpected key length %d", len(id1))
	}
}

func TestKey_differentContents(t *testing.T) {
	a := Key(2, 2, []float32{0, 0, 0, 1})
	b := Key(2, 2, []float32{0, 0, 1, 0})
	if a == b {
		t.Errorf("different pixels should give different keys: %q", a)
	}
	if Key(4, 1, []float32{0, 0, 0, 1}) == a {
		t.Error("different shapes should give different keys")
	}
}

func TestSeed(t *testing.T) {
	if Seed("frame:abc") != Seed("frame:abc") {
		t.Error("seed should be deterministic")
	}
	if Seed("frame:abc") < 0 {
		t.Error("seed should be non-negative")
	}
}
