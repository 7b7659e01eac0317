package articles

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"briefly/internal/core"
)

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadCanonicalOnly(t *testing.T) {
	dir := t.TempDir()
	corpus := filepath.Join(dir, "articles.json")
	writeJSON(t, corpus, []core.Article{
		{URL: "https://example.com/a", Title: "A", PublishedAt: time.Now()},
	})

	s := New(corpus, filepath.Join(dir, "weeks"))
	got, err := s.Load("2026-W05")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Title != "A" {
		t.Fatalf("got %+v", got)
	}
}

func TestLoadOverlayReplacesAndAppends(t *testing.T) {
	dir := t.TempDir()
	corpus := filepath.Join(dir, "articles.json")
	writeJSON(t, corpus, []core.Article{
		{URL: "https://example.com/a", Title: "Original"},
		{URL: "https://example.com/b", Title: "Untouched"},
	})
	weeksDir := filepath.Join(dir, "weeks")
	writeJSON(t, filepath.Join(weeksDir, "2026-W05", "discoveryArticles.json"), []core.Article{
		{URL: "https://example.com/a", Title: "Replaced"},
		{URL: "https://example.com/c", Title: "New"},
	})

	s := New(corpus, weeksDir)
	got, err := s.Load("2026-W05")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 articles, got %d: %+v", len(got), got)
	}
	var titleA string
	var foundC, replacedIsDiscovery bool
	for _, a := range got {
		if a.URL == "https://example.com/a" {
			titleA = a.Title
			replacedIsDiscovery = a.IsDiscovery
		}
		if a.URL == "https://example.com/c" {
			foundC = true
		}
	}
	if titleA != "Replaced" {
		t.Errorf("title A = %q, want Replaced", titleA)
	}
	if !replacedIsDiscovery {
		t.Errorf("replaced article should be marked IsDiscovery")
	}
	if !foundC {
		t.Errorf("expected new article C to be appended")
	}
}

func TestLoadNoOverlayFile(t *testing.T) {
	dir := t.TempDir()
	corpus := filepath.Join(dir, "articles.json")
	writeJSON(t, corpus, []core.Article{{URL: "https://example.com/a"}})

	s := New(corpus, filepath.Join(dir, "weeks"))
	got, err := s.Load("2026-W09")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %+v", got)
	}
}
