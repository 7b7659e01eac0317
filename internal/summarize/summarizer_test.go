package summarize

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"briefly/internal/cache"
	"briefly/internal/core"
)

type fakeLLM struct {
	summary string
	err     error
	calls   int
}

func (f *fakeLLM) SummarizeArticle(ctx context.Context, category string, article core.Article) (string, error) {
	f.calls++
	return f.summary, f.err
}

func newTestCache(t *testing.T) *cache.File {
	t.Helper()
	return cache.Open(filepath.Join(t.TempDir(), "summary_cache.json"))
}

func TestSummarizeAllFillsEverySelection(t *testing.T) {
	llm := &fakeLLM{summary: "A crisp gloss."}
	s := New(llm, newTestCache(t), &core.RunStats{})

	sections := []core.CategorySection{
		{Category: core.AIAndStrategy, Selections: []core.Selection{
			{Article: core.Article{URL: "https://a.com/1", Title: "A"}},
			{Article: core.Article{URL: "https://a.com/2", Title: "B"}},
		}},
	}

	if err := s.SummarizeAll(context.Background(), sections); err != nil {
		t.Fatal(err)
	}
	for _, sel := range sections[0].Selections {
		if sel.Summary != "A crisp gloss." {
			t.Errorf("got %q", sel.Summary)
		}
	}
}

func TestSummarizeFallsBackOnError(t *testing.T) {
	llm := &fakeLLM{err: errors.New("down")}
	s := New(llm, newTestCache(t), &core.RunStats{})

	sections := []core.CategorySection{
		{Category: core.AIAndStrategy, Selections: []core.Selection{
			{Article: core.Article{URL: "https://a.com/1", Title: "Fallback Title", Excerpt: "An excerpt."}},
		}},
	}
	if err := s.SummarizeAll(context.Background(), sections); err != nil {
		t.Fatal(err)
	}
	if sections[0].Selections[0].Summary != "An excerpt." {
		t.Errorf("got %q", sections[0].Selections[0].Summary)
	}
}

func TestSummarizeUsesCache(t *testing.T) {
	llm := &fakeLLM{summary: "Cached gloss."}
	c := newTestCache(t)
	s := New(llm, c, &core.RunStats{})

	sections := []core.CategorySection{
		{Category: core.AIAndStrategy, Selections: []core.Selection{
			{Article: core.Article{URL: "https://a.com/1", Title: "A"}},
		}},
	}
	_ = s.SummarizeAll(context.Background(), sections)
	sections[0].Selections[0].Summary = ""
	_ = s.SummarizeAll(context.Background(), sections)

	if llm.calls != 1 {
		t.Errorf("expected cache to avoid second LLM call, got %d calls", llm.calls)
	}
}
