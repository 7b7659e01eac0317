// Package rerank orders a category's eligible articles into the digest's
// final per-category selection. An LLM call supplies an explainable
// ranking (why each article was chosen, and the model's confidence);
// a pure diversity-capped fallback takes over whenever the LLM is
// unavailable, errors, or returns a structurally invalid result. This
// mirrors the teacher's narrative/classifier pattern of a structured-output
// LLM call backstopped by a deterministic, always-succeeds path.
package rerank

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"briefly/internal/cache"
	"briefly/internal/core"
	"briefly/internal/logger"
)

// MaxPerSource is the diversity cap applied by the deterministic fallback:
// no more than this many selections may share a source, unless relaxing
// the cap is required to fill every remaining slot (the "mustFill" path).
const MaxPerSource = 2

// RankedItem is one LLM-produced ranking decision for a single article.
type RankedItem struct {
	URL        string  `json:"url"`
	Rank       int     `json:"rank"`
	Why        string  `json:"why"`
	Confidence float64 `json:"confidence"`
}

// LLM is the subset of the Gemini client the reranker needs.
type LLM interface {
	RerankArticles(ctx context.Context, category string, candidates []core.Article, limit int) ([]RankedItem, error)
}

// Reranker produces a category's final ordered Selection list.
type Reranker struct {
	LLM   LLM
	Cache *cache.File
	Stats *core.RunStats
}

// New returns a Reranker. llm may be nil, in which case Rerank always uses
// the deterministic diversity fallback.
func New(llm LLM, cacheFile *cache.File, stats *core.RunStats) *Reranker {
	return &Reranker{LLM: llm, Cache: cacheFile, Stats: stats}
}

// Rerank orders candidates (already gate-eligible) for category within
// weekLabel's build, returning at most limit Selections. Candidates are
// sorted by URL before hashing and before LLM submission, so the same
// input set always produces the same fingerprint and the same candidate
// ordering regardless of upstream order.
func (r *Reranker) Rerank(ctx context.Context, weekLabel string, category core.Category, candidates []core.Article, limit int) []core.Selection {
	sorted := make([]core.Article, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].URL < sorted[j].URL })

	if len(sorted) == 0 {
		return nil
	}

	fp := fingerprint(weekLabel, category, sorted, limit)

	if r.Cache != nil {
		var cached []RankedItem
		if r.Cache.Get(fp, &cached) {
			r.bump(func(s *core.RunStats) { s.CacheHits++ })
			if sel, ok := applyRanking(sorted, cached, limit); ok {
				return sel
			}
		} else {
			r.bump(func(s *core.RunStats) { s.CacheMisses++ })
		}
	}

	if r.LLM != nil {
		ranked, err := r.LLM.RerankArticles(ctx, string(category), sorted, limit)
		if err != nil {
			logger.Warn("rerank: LLM call failed, using diversity fallback", "category", category, "error", err.Error())
			r.bump(func(s *core.RunStats) { s.LLMFailures++ })
		} else if sel, ok := applyRanking(sorted, ranked, limit); ok {
			r.bump(func(s *core.RunStats) { s.LLMSuccesses++ })
			if r.Cache != nil {
				r.Cache.Put(fp, ranked)
			}
			return sel
		} else {
			logger.Warn("rerank: LLM result failed structural validation, using diversity fallback", "category", category)
		}
	}

	r.bump(func(s *core.RunStats) { s.FallbackInvocations++ })
	return diversityFallback(sorted, limit)
}

// applyRanking validates ranked against the structural invariants (exact
// count, no duplicate ids/URLs, sequential ranks covering 1..n) and, if
// valid, converts it into ordered Selections over candidates.
func applyRanking(candidates []core.Article, ranked []RankedItem, limit int) ([]core.Selection, bool) {
	want := limit
	if want > len(candidates) {
		want = len(candidates)
	}
	if len(ranked) != want {
		return nil, false
	}

	byURL := make(map[string]core.Article, len(candidates))
	for _, a := range candidates {
		byURL[a.URL] = a
	}

	seenURL := make(map[string]bool, len(ranked))
	seenRank := make(map[int]bool, len(ranked))
	for _, item := range ranked {
		if seenURL[item.URL] || seenRank[item.Rank] {
			return nil, false
		}
		if item.Rank < 1 || item.Rank > want {
			return nil, false
		}
		if _, ok := byURL[item.URL]; !ok {
			return nil, false
		}
		seenURL[item.URL] = true
		seenRank[item.Rank] = true
	}

	ordered := make([]RankedItem, len(ranked))
	copy(ordered, ranked)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Rank < ordered[j].Rank })

	sel := make([]core.Selection, 0, len(ordered))
	for _, item := range ordered {
		sel = append(sel, core.Selection{
			Article:          byURL[item.URL],
			Rank:             item.Rank,
			RerankWhy:        item.Why,
			RerankConfidence: item.Confidence,
		})
	}
	return sel, true
}

// diversityFallback deterministically fills up to limit slots by walking
// candidates (already URL-sorted) and capping selections per source at
// MaxPerSource, relaxing the cap only as needed to fill the remaining slots.
func diversityFallback(candidates []core.Article, limit int) []core.Selection {
	if limit > len(candidates) {
		limit = len(candidates)
	}

	perSource := make(map[string]int)
	var selected []core.Article
	var deferred []core.Article

	for _, a := range candidates {
		if len(selected) >= limit {
			break
		}
		src := strings.ToLower(a.Source)
		if perSource[src] < MaxPerSource {
			selected = append(selected, a)
			perSource[src]++
		} else {
			deferred = append(deferred, a)
		}
	}

	// mustFill: if the capped pass didn't reach limit, relax the cap and
	// take the remaining candidates in order until slots are filled.
	for _, a := range deferred {
		if len(selected) >= limit {
			break
		}
		selected = append(selected, a)
	}

	sel := make([]core.Selection, 0, len(selected))
	for i, a := range selected {
		sel = append(sel, core.Selection{
			Article:  a,
			Rank:     i + 1,
			Fallback: true,
		})
	}
	return sel
}

// snippetFingerprintLen is the snippet truncation length spec.md §4.5's
// rerank cache key mandates: (url, title, date, truncated-snippet-≤350-chars)
// tuples, combined with week_label and category.
const snippetFingerprintLen = 350

// fingerprint builds the rerank cache key from weekLabel, category, limit,
// and a (url, title, date, truncated-snippet) tuple per candidate, so that
// two weeks sharing an overlapping candidate set never collide on the same
// cached selection.
func fingerprint(weekLabel string, category core.Category, sorted []core.Article, limit int) string {
	parts := make([]string, 0, len(sorted)*4+3)
	parts = append(parts, weekLabel, string(category), fmt.Sprintf("limit=%d", limit))
	for _, a := range sorted {
		snippet := a.Excerpt
		if len(snippet) > snippetFingerprintLen {
			snippet = snippet[:snippetFingerprintLen]
		}
		date := ""
		if !a.PublishedAt.IsZero() {
			date = a.PublishedAt.UTC().Format("2006-01-02")
		}
		parts = append(parts, a.URL, a.Title, date, snippet)
	}
	return cache.Fingerprint(parts...)
}

func (r *Reranker) bump(f func(*core.RunStats)) {
	if r.Stats != nil {
		f(r.Stats)
	}
}
