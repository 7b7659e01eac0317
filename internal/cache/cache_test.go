package cache

import (
	"path/filepath"
	"testing"
)

type sample struct {
	Category string `json:"category"`
}

func TestPutGetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classification_cache.json")
	c := Open(path)

	fp := Fingerprint("https://example.com/a", "AI & Strategy")
	if _, ok := lookup(c, fp); ok {
		t.Fatalf("expected miss before put")
	}

	c.Put(fp, sample{Category: "ai_strategy"})

	var got sample
	if !c.Get(fp, &got) {
		t.Fatalf("expected hit after put")
	}
	if got.Category != "ai_strategy" {
		t.Errorf("got %+v", got)
	}
}

func TestPersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rerank_cache.json")
	fp := Fingerprint("a", "b")

	c1 := Open(path)
	c1.Put(fp, sample{Category: "luxury_consumer"})

	c2 := Open(path)
	var got sample
	if !c2.Get(fp, &got) {
		t.Fatalf("expected cached value to persist to a fresh File instance")
	}
	if got.Category != "luxury_consumer" {
		t.Errorf("got %+v", got)
	}
}

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint("x", "y")
	b := Fingerprint("x", "y")
	c := Fingerprint("xy", "")
	if a != b {
		t.Errorf("expected same inputs to fingerprint identically")
	}
	if a == c {
		t.Errorf("expected length-prefixed encoding to avoid concatenation collisions")
	}
}

func lookup(c *File, fp string) (sample, bool) {
	var s sample
	ok := c.Get(fp, &s)
	return s, ok
}
