package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"briefly/internal/cache"
	"briefly/internal/classify"
	"briefly/internal/core"
	"briefly/internal/narrative"
	"briefly/internal/rerank"
)

func writeCorpus(t *testing.T, path string, arts []core.Article) {
	t.Helper()
	data, err := json.Marshal(arts)
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

func TestBuildHappyPathNoLLM(t *testing.T) {
	dir := t.TempDir()
	corpus := filepath.Join(dir, "articles.json")

	now := time.Date(2026, 1, 27, 12, 0, 0, 0, time.UTC) // within 2026-W05

	writeCorpus(t, corpus, []core.Article{
		{URL: "https://jckonline.com/1", Title: "Diamond market heats up", Source: "jckonline.com", PublishedAt: now},
		{URL: "https://techcrunch.com/1", Title: "New AI strategy chatgpt rollout", Source: "techcrunch.com", PublishedAt: now},
	})

	stats := &core.RunStats{}
	opts := Options{
		Week:         "2026-W05",
		Location:     time.UTC,
		ArticlesPath: corpus,
		WeeksDir:     filepath.Join(dir, "weeks"),
		OutputDir:    filepath.Join(dir, "out"),
		Classifier:   classify.New(nil, cache.Open(filepath.Join(dir, "classification_cache.json")), stats),
		Reranker:     rerank.New(nil, cache.Open(filepath.Join(dir, "rerank_cache.json")), stats),
		Narrative: narrative.New(nil,
			cache.Open(filepath.Join(dir, "themes_cache.json")),
			cache.Open(filepath.Join(dir, "intro_cache.json")),
			stats),
	}

	digest, err := Build(context.Background(), opts)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if digest.Week != "2026-W05" {
		t.Errorf("week = %q", digest.Week)
	}
	if len(digest.Sections) != len(core.Categories) {
		t.Fatalf("expected %d sections, got %d", len(core.Categories), len(digest.Sections))
	}

	var jewelleryCount, aiCount int
	for _, s := range digest.Sections {
		switch s.Category {
		case core.JewelleryIndustry:
			jewelleryCount = len(s.Selections)
		case core.AIAndStrategy:
			aiCount = len(s.Selections)
		}
	}
	if jewelleryCount == 0 {
		t.Errorf("expected the diamond article to land in Jewellery Industry")
	}
	if aiCount == 0 {
		t.Errorf("expected the AI article to land in AI & Strategy")
	}

	if digest.Totals.Overall != digest.Totals.ByCategory[string(core.JewelleryIndustry)]+digest.Totals.ByCategory[string(core.AIAndStrategy)] {
		t.Errorf("expected totals.overall to sum the per-category totals, got %+v", digest.Totals)
	}
	if digest.Totals.ByCategory[string(core.JewelleryIndustry)] == 0 {
		t.Errorf("expected a non-zero eligible total for Jewellery Industry, got %+v", digest.Totals)
	}
	if digest.TZ == "" {
		t.Errorf("expected digest.TZ to be populated")
	}

	artifactPath := filepath.Join(dir, "out", "digests", "2026-W05.json")
	if _, err := os.Stat(artifactPath); err != nil {
		t.Errorf("expected digest artifact to be written: %v", err)
	}
}

func TestBuildInvalidWeekLabelIsFatal(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		Week:         "not-a-week",
		Location:     time.UTC,
		ArticlesPath: filepath.Join(dir, "articles.json"),
		WeeksDir:     filepath.Join(dir, "weeks"),
		OutputDir:    filepath.Join(dir, "out"),
	}
	if _, err := Build(context.Background(), opts); err == nil {
		t.Fatal("expected an error for an invalid week label")
	}
}

func TestBuildMissingCorpusIsFatal(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		Week:         "2026-W05",
		Location:     time.UTC,
		ArticlesPath: filepath.Join(dir, "missing.json"),
		WeeksDir:     filepath.Join(dir, "weeks"),
		OutputDir:    filepath.Join(dir, "out"),
	}
	if _, err := Build(context.Background(), opts); err == nil {
		t.Fatal("expected an error for a missing corpus file")
	}
}
