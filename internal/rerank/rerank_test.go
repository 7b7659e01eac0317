package rerank

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"briefly/internal/cache"
	"briefly/internal/core"
)

func arts(n int, source string) []core.Article {
	out := make([]core.Article, n)
	for i := range out {
		out[i] = core.Article{URL: fmt.Sprintf("https://x.com/%s/%d", source, i), Source: source}
	}
	return out
}

type fakeLLM struct {
	result []RankedItem
	err    error
	calls  int
}

func (f *fakeLLM) RerankArticles(ctx context.Context, category string, candidates []core.Article, limit int) ([]RankedItem, error) {
	f.calls++
	return f.result, f.err
}

func newTestCache(t *testing.T) *cache.File {
	t.Helper()
	return cache.Open(filepath.Join(t.TempDir(), "rerank_cache.json"))
}

func TestRerankUsesValidLLMResult(t *testing.T) {
	candidates := []core.Article{
		{URL: "https://a.com/1", Source: "a"},
		{URL: "https://b.com/1", Source: "b"},
	}
	llm := &fakeLLM{result: []RankedItem{
		{URL: "https://b.com/1", Rank: 1, Why: "more relevant", Confidence: 0.9},
		{URL: "https://a.com/1", Rank: 2, Why: "background", Confidence: 0.7},
	}}
	r := New(llm, newTestCache(t), &core.RunStats{})

	sel := r.Rerank(context.Background(), "2026-W05", core.AIAndStrategy, candidates, 2)
	if len(sel) != 2 || sel[0].Article.URL != "https://b.com/1" || sel[0].RerankWhy != "more relevant" {
		t.Fatalf("got %+v", sel)
	}
}

func TestRerankFallsBackOnLLMError(t *testing.T) {
	candidates := []core.Article{{URL: "https://a.com/1", Source: "a"}}
	llm := &fakeLLM{err: errors.New("rate limited")}
	r := New(llm, newTestCache(t), &core.RunStats{})

	sel := r.Rerank(context.Background(), "2026-W05", core.AIAndStrategy, candidates, 1)
	if len(sel) != 1 || !sel[0].Fallback {
		t.Fatalf("got %+v", sel)
	}
}

func TestRerankFallsBackOnStructurallyInvalidResult(t *testing.T) {
	candidates := []core.Article{
		{URL: "https://a.com/1", Source: "a"},
		{URL: "https://b.com/1", Source: "b"},
	}
	// Duplicate rank 1 is structurally invalid.
	llm := &fakeLLM{result: []RankedItem{
		{URL: "https://a.com/1", Rank: 1},
		{URL: "https://b.com/1", Rank: 1},
	}}
	r := New(llm, newTestCache(t), &core.RunStats{})

	sel := r.Rerank(context.Background(), "2026-W05", core.AIAndStrategy, candidates, 2)
	if len(sel) != 2 || !sel[0].Fallback {
		t.Fatalf("expected fallback due to invalid structure, got %+v", sel)
	}
}

func TestDiversityFallbackCapsPerSource(t *testing.T) {
	candidates := append(arts(3, "a"), arts(1, "b")...)
	sel := diversityFallback(candidates, 3)
	if len(sel) != 3 {
		t.Fatalf("expected 3 selections, got %d", len(sel))
	}
	counts := map[string]int{}
	for _, s := range sel {
		counts[s.Article.Source]++
	}
	if counts["a"] != 2 || counts["b"] != 1 {
		t.Errorf("expected cap of 2 per source with the other source filling the last slot, got %+v", counts)
	}
}

func TestDiversityFallbackRelaxesWhenSingleSourceOnly(t *testing.T) {
	candidates := arts(4, "only")
	sel := diversityFallback(candidates, 3)
	if len(sel) != 3 {
		t.Fatalf("expected mustFill to reach 3 selections even from one source, got %d", len(sel))
	}
}

func TestRerankCacheKeyIsPerWeek(t *testing.T) {
	candidates := []core.Article{
		{URL: "https://a.com/1", Source: "a"},
		{URL: "https://b.com/1", Source: "b"},
	}
	c := newTestCache(t)
	llm := &fakeLLM{result: []RankedItem{
		{URL: "https://b.com/1", Rank: 1, Why: "more relevant", Confidence: 0.9},
		{URL: "https://a.com/1", Rank: 2, Why: "background", Confidence: 0.7},
	}}
	r := New(llm, c, &core.RunStats{})

	r.Rerank(context.Background(), "2026-W05", core.AIAndStrategy, candidates, 2)
	if llm.calls != 1 {
		t.Fatalf("expected one LLM call to populate the cache, got %d", llm.calls)
	}

	r.Rerank(context.Background(), "2026-W06", core.AIAndStrategy, candidates, 2)
	if llm.calls != 2 {
		t.Fatalf("expected a different week to miss the prior week's cache entry, got %d calls", llm.calls)
	}
}

func TestRerankNoCandidates(t *testing.T) {
	r := New(nil, newTestCache(t), &core.RunStats{})
	sel := r.Rerank(context.Background(), "2026-W05", core.AIAndStrategy, nil, 5)
	if sel != nil {
		t.Fatalf("expected nil selection for empty candidates, got %+v", sel)
	}
}
