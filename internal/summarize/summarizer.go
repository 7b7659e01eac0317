// Package summarize generates the one-to-two sentence gloss shown next to
// each selected article in the digest, grounded on the teacher's
// Summarizer (options struct, retry settings) generalized to a
// category-aware short gloss instead of a multi-paragraph, format-aware
// summary.
package summarize

import (
	"context"

	"golang.org/x/sync/errgroup"

	"briefly/internal/cache"
	"briefly/internal/core"
	"briefly/internal/logger"
)

// MaxConcurrency bounds the number of simultaneous outbound summarization
// calls across all four categories' selections.
const MaxConcurrency = 4

// LLM is the subset of the Gemini client the summarizer needs.
type LLM interface {
	SummarizeArticle(ctx context.Context, category string, article core.Article) (string, error)
}

// Summarizer produces a short gloss for each selected article.
type Summarizer struct {
	LLM   LLM
	Cache *cache.File
	Stats *core.RunStats
}

func New(llm LLM, cacheFile *cache.File, stats *core.RunStats) *Summarizer {
	return &Summarizer{LLM: llm, Cache: cacheFile, Stats: stats}
}

// SummarizeAll fills in Summary for every Selection in sections, fanning
// out across a bounded worker pool. A per-article failure degrades to the
// article's excerpt (or, without one, its title) rather than failing the
// whole digest.
func (s *Summarizer) SummarizeAll(ctx context.Context, sections []core.CategorySection) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxConcurrency)

	for si := range sections {
		for ri := range sections[si].Selections {
			si, ri := si, ri
			g.Go(func() error {
				sel := &sections[si].Selections[ri]
				sel.Summary = s.summarizeOne(ctx, sections[si].Category, sel.Article)
				return nil
			})
		}
	}
	return g.Wait()
}

func (s *Summarizer) summarizeOne(ctx context.Context, category core.Category, a core.Article) string {
	fp := cache.Fingerprint(string(category), a.NormalizedURL())

	if s.Cache != nil {
		var cached string
		if s.Cache.Get(fp, &cached) {
			s.bump(func(r *core.RunStats) { r.CacheHits++ })
			return cached
		}
		s.bump(func(r *core.RunStats) { r.CacheMisses++ })
	}

	summary := s.generate(ctx, category, a)
	if s.Cache != nil {
		s.Cache.Put(fp, summary)
	}
	return summary
}

func (s *Summarizer) generate(ctx context.Context, category core.Category, a core.Article) string {
	if s.LLM == nil {
		s.bump(func(r *core.RunStats) { r.FallbackInvocations++ })
		return fallbackGloss(a)
	}

	summary, err := s.LLM.SummarizeArticle(ctx, string(category), a)
	if err != nil || summary == "" {
		if err != nil {
			logger.Warn("summarize: LLM call failed, using fallback gloss", "url", a.URL, "error", err.Error())
		}
		s.bump(func(r *core.RunStats) { r.LLMFailures++ })
		s.bump(func(r *core.RunStats) { r.FallbackInvocations++ })
		return fallbackGloss(a)
	}
	s.bump(func(r *core.RunStats) { r.LLMSuccesses++ })
	return summary
}

func fallbackGloss(a core.Article) string {
	if a.Excerpt != "" {
		return a.Excerpt
	}
	return a.Title + "."
}

func (s *Summarizer) bump(f func(*core.RunStats)) {
	if s.Stats != nil {
		f(s.Stats)
	}
}
