// Package classify assigns each article to exactly one of the four digest
// categories. It is a two-stage process: a content-addressed cache lookup,
// then (unless disabled) an LLM call guarded by a confidence threshold,
// falling back to a deterministic keyword/source rule classifier whenever
// the LLM is unavailable, errors, or returns low confidence. This mirrors
// the teacher's categorization.Service: LLM-first with a rule-based
// fallback path that is never allowed to fail.
package classify

import (
	"context"
	"os"

	"briefly/internal/cache"
	"briefly/internal/core"
	"briefly/internal/logger"
)

// MinLLMConfidence is the guardrail below which an LLM verdict is discarded
// in favor of the rule classifier, matching the teacher's
// categorization confidence-threshold convention.
const MinLLMConfidence = 0.55

// FewRuleMatchesThreshold is the rule-classifier match count below which a
// present categoryHint is preferred over the rule verdict, per spec.md
// §4.3 point 3.
const FewRuleMatchesThreshold = 2

// minFallbackConfidence and maxFallbackConfidence bound the confidence
// assigned when the rule classifier stands in for a failed LLM call,
// per spec.md §4.3 point 4.
const (
	minFallbackConfidence = 0.2
	maxFallbackConfidence = 0.4
)

// LLM is the subset of the Gemini client the classifier needs. Defined here
// (rather than imported from internal/llm) to keep the classifier
// independently testable with a fake.
type LLM interface {
	ClassifyArticle(ctx context.Context, title, excerpt, source, categoryHint string) (category string, confidence float64, err error)
}

// Classifier resolves a Classification for one article at a time.
type Classifier struct {
	LLM     LLM
	Cache   *cache.File
	DryRun  bool
	Stats   *core.RunStats
}

// New returns a Classifier. llm may be nil, in which case every call uses
// the rule-based fallback; this is also the behavior when CLASSIFIER_DRY_RUN
// is set, generalizing the teacher's "missing API key degrades clearly"
// convention into an explicit opt-in for tests and CI.
func New(llm LLM, cacheFile *cache.File, stats *core.RunStats) *Classifier {
	return &Classifier{
		LLM:    llm,
		Cache:  cacheFile,
		DryRun: os.Getenv("CLASSIFIER_DRY_RUN") == "1",
		Stats:  stats,
	}
}

// Classify returns the Classification for a, consulting the cache first,
// then the LLM (unless disabled), then the rule classifier as a guaranteed
// fallback.
func (c *Classifier) Classify(ctx context.Context, a core.Article) core.Classification {
	fp := cache.Fingerprint(a.NormalizedURL(), a.Title)

	if c.Cache != nil {
		var cached core.Classification
		if c.Cache.Get(fp, &cached) {
			c.bump(func(s *core.RunStats) { s.CacheHits++ })
			cached.Source = "cache"
			cached.FromCache = true
			return cached
		}
		c.bump(func(s *core.RunStats) { s.CacheMisses++ })
	}

	result := c.classifyUncached(ctx, a)

	if c.Cache != nil {
		c.Cache.Put(fp, result)
	}
	return result
}

func (c *Classifier) classifyUncached(ctx context.Context, a core.Article) core.Classification {
	if !c.DryRun && c.LLM != nil {
		catStr, confidence, err := c.LLM.ClassifyArticle(ctx, a.Title, a.Excerpt, a.Source, string(a.CategoryHint))
		if err != nil {
			logger.Warn("classify: LLM call failed, falling back to rule classifier", "url", a.URL, "error", err.Error())
			c.bump(func(s *core.RunStats) { s.LLMFailures++ })
			return c.ruleFallback(a, minFallbackConfidence, maxFallbackConfidence)
		}

		cat := core.Category(catStr)
		if cat.Valid() && confidence >= MinLLMConfidence {
			c.bump(func(s *core.RunStats) { s.LLMSuccesses++ })
			return core.Classification{Category: cat, Confidence: confidence, Source: "llm"}
		}
		logger.Debug("classify: LLM confidence below guardrail, using rule classifier",
			"url", a.URL, "category", catStr, "confidence", confidence)
		c.bump(func(s *core.RunStats) { s.FallbackInvocations++ })
		return c.guardrailFallback(a)
	}

	c.bump(func(s *core.RunStats) { s.FallbackInvocations++ })
	cat, confidence, _ := classifyRuleBased(a)
	return core.Classification{Category: cat, Confidence: confidence, Source: "rule", FromFallback: true}
}

// guardrailFallback handles spec.md §4.3 point 3: the LLM responded but
// below MinLLMConfidence, so the rule classifier's verdict is used
// instead. When a categoryHint is present and the rule classifier's own
// keyword match is weak, the hint is preferred over the rule category.
func (c *Classifier) guardrailFallback(a core.Article) core.Classification {
	cat, confidence, matches := classifyRuleBased(a)
	if a.CategoryHint.Valid() && matches < FewRuleMatchesThreshold {
		cat = a.CategoryHint
	}
	return core.Classification{Category: cat, Confidence: confidence, Source: "rule", FromFallback: true}
}

// ruleFallback handles spec.md §4.3 point 4: the LLM call itself errored,
// so the rule classifier stands in with a confidence clamped to
// [minConf, maxConf], proportional to its own match strength.
func (c *Classifier) ruleFallback(a core.Article, minConf, maxConf float64) core.Classification {
	cat, _, matches := classifyRuleBased(a)
	if a.CategoryHint.Valid() && matches < FewRuleMatchesThreshold {
		cat = a.CategoryHint
	}
	confidence := minConf + 0.05*float64(matches)
	if confidence > maxConf {
		confidence = maxConf
	}
	return core.Classification{Category: cat, Confidence: confidence, Source: "rule", FromFallback: true}
}

func (c *Classifier) bump(f func(*core.RunStats)) {
	if c.Stats != nil {
		f(c.Stats)
	}
}
