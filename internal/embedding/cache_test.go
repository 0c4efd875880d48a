package embedding

import (
	"testing"
)

func TestFrameCache_LRUEviction(t *testing.T) {
	c := NewFrameCache(2)
	if v, ok := c.Get("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Put("a", []float32{1, 2, 3})
	c.Put("b", []float32{4, 5})
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a")
	}
	c.Put("c", []float32{6}) // b is least recently used
	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("expected %s to remain", k)
		}
	}
	if c.Len() != 2 {
		t.Errorf("Len=%d, want 2", c.Len())
	}

	hits, misses := c.Stats()
	if hits != 3 || misses != 2 {
		t.Errorf("Stats: hits=%d misses=%d, want 3 and 2", hits, misses)
	}
}

func TestFrameCache_StoresCopies(t *testing.T) {
	c := NewFrameCache(4)
	in := []float32{3, 4}
	c.Put("a", in)
	in[0] = 100

	got, _ := c.Get("a")
	if got[0] != 3 {
		t.Fatalf("Put must copy, got %v", got)
	}
	got[1] = 100
	again, _ := c.Get("a")
	if again[1] != 4 {
		t.Errorf("Get must copy, got %v", again)
	}

	c.Put("a", []float32{7})
	if v, _ := c.Get("a"); len(v) != 1 || v[0] != 7 {
		t.Errorf("Put should overwrite existing key, got %v", v)
	}
}

func TestFrameCache_Disabled(t *testing.T) {
	off := NewFrameCache(0)
	off.Put("a", []float32{1})
	if _, ok := off.Get("a"); ok {
		t.Error("zero-capacity cache should not store entries")
	}
}
