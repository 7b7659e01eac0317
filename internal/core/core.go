// Package core defines the domain model shared across the digest-build
// pipeline: the article corpus, the week window, and the digest artifact
// the pipeline produces.
package core

import (
	"strings"
	"time"
)

// Category is a closed set of the four digest sections. It is always one
// of the constants below, never a free-form string.
type Category string

const (
	AIAndStrategy       Category = "ai_strategy"
	EcommerceRetailTech Category = "ecommerce_retail_tech"
	LuxuryAndConsumer   Category = "luxury_consumer"
	JewelleryIndustry   Category = "jewellery_industry"
)

// Categories lists all four categories in canonical display order.
var Categories = []Category{
	AIAndStrategy,
	EcommerceRetailTech,
	LuxuryAndConsumer,
	JewelleryIndustry,
}

// DisplayName returns the human-facing section title for a category.
func (c Category) DisplayName() string {
	switch c {
	case AIAndStrategy:
		return "AI & Strategy"
	case EcommerceRetailTech:
		return "Ecommerce & Retail Tech"
	case LuxuryAndConsumer:
		return "Luxury & Consumer"
	case JewelleryIndustry:
		return "Jewellery Industry"
	default:
		return string(c)
	}
}

// Valid reports whether c is one of the four known categories.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

// Article is one item from the read-only corpus, possibly overlaid by a
// discovery-origin record for the week being built.
type Article struct {
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	Source        string    `json:"source"`
	PublishedAt   time.Time `json:"publishedAt"`
	DiscoveredAt  time.Time `json:"discoveredAt,omitempty"`
	Body          string    `json:"body,omitempty"`
	Excerpt       string    `json:"excerpt,omitempty"`
	IsDiscovery   bool      `json:"isDiscovery,omitempty"`
	PolicyContext []string  `json:"policyContext,omitempty"`

	// CategoryHint is an optional upstream-supplied category guess carried
	// into the classifier prompt; the rule classifier's confidence
	// guardrail path prefers it when its own keyword match is weak.
	CategoryHint Category `json:"categoryHint,omitempty"`

	// RelevanceScore is a diagnostic field carried through from the corpus;
	// neither the gate nor the reranker sets or reads it, and it is never a
	// substitute for the reranker's explainability fields.
	RelevanceScore float64 `json:"relevanceScore,omitempty"`
}

// NormalizedURL returns a lower-cased, fragment-stripped, trailing-slash
// trimmed form of the article's URL, used for overlay and duplicate matching.
func (a Article) NormalizedURL() string {
	u := strings.ToLower(strings.TrimSpace(a.URL))
	if i := strings.IndexByte(u, '#'); i >= 0 {
		u = u[:i]
	}
	return strings.TrimRight(u, "/")
}

// WeekWindow is the resolved [Start, End] range for one ISO week label,
// e.g. "2026-W05", in a configured location.
type WeekWindow struct {
	Label string
	Start time.Time // Monday 00:00:00 local
	End   time.Time // Sunday 23:59:59.999999999 local
}

// Contains reports whether t falls within the window, inclusive of both ends.
func (w WeekWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Classification is the classifier's verdict for one article.
type Classification struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
	Source     string   `json:"source"` // "cache", "llm", "rule", or "assumed" (pipeline with no classifier)
	Reason     string   `json:"reason,omitempty"`

	// FromCache and FromFallback are provenance flags: FromCache marks a
	// row returned verbatim from the classification cache; FromFallback
	// marks a verdict produced by the deterministic rule classifier after
	// an LLM failure or low-confidence result, rather than by a
	// successful LLM call.
	FromCache    bool `json:"fromCache,omitempty"`
	FromFallback bool `json:"fromFallback,omitempty"`
}

// GateRejectReason enumerates why an article failed eligibility.
type GateRejectReason string

const (
	RejectNone        GateRejectReason = ""
	RejectOutOfWindow GateRejectReason = "out_of_window"
	RejectDuplicate   GateRejectReason = "duplicate_title"
	RejectControversy GateRejectReason = "controversy"
)

// Gate is the eligibility verdict for one article within a category.
type Gate struct {
	Eligible   bool             `json:"eligible"`
	Reason     GateRejectReason `json:"reason,omitempty"`
	Sponsored  bool             `json:"sponsored,omitempty"`
	SoftWindow bool             `json:"softWindow,omitempty"`

	// ControversialSuspected marks an article that tripped a controversy
	// marker group but also reads as retail/ecommerce coverage: it stays
	// eligible, flagged for the reranker's diagnostic context rather than
	// dropped outright.
	ControversialSuspected bool `json:"controversialSuspected,omitempty"`
}

// Selection is one reranked, explainable slot in a category's final list.
type Selection struct {
	Article          Article `json:"article"`
	Rank             int     `json:"rank"`
	RerankWhy        string  `json:"rerankWhy,omitempty"`
	RerankConfidence float64 `json:"rerankConfidence,omitempty"`
	Summary          string  `json:"summary,omitempty"`
	Fallback         bool    `json:"fallback,omitempty"`
}

// CategorySection is one category's rendered content within the digest.
type CategorySection struct {
	Category Category `json:"category"`
	Theme    string   `json:"theme,omitempty"`
	Intro    string   `json:"intro,omitempty"`

	// Total is eligible_count(c): how many gate-eligible articles the
	// category had before capping to Selections, matching spec.md §3's
	// topics[c].total.
	Total      int         `json:"total"`
	Selections []Selection `json:"selections"`
}

// CoverImage is the digest's generated banner artifact.
type CoverImage struct {
	Path     string   `json:"path,omitempty"`
	Prompt   string   `json:"prompt,omitempty"`
	Style    string   `json:"style,omitempty"`
	Alt      string   `json:"alt,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
	Fallback bool     `json:"fallback,omitempty"`
}

// RunStats carries per-run diagnostic counters logged at the end of a build.
type RunStats struct {
	CacheHits           int            `json:"cacheHits"`
	CacheMisses         int            `json:"cacheMisses"`
	LLMSuccesses        int            `json:"llmSuccesses"`
	LLMFailures         int            `json:"llmFailures"`
	FallbackInvocations int            `json:"fallbackInvocations"`
	GateRejections      map[string]int `json:"gateRejections,omitempty"`
}

// Totals carries the overall and per-category eligible-article counts for
// a digest, matching spec.md §3's "totals (overall + per category)".
type Totals struct {
	Overall    int            `json:"overall"`
	ByCategory map[string]int `json:"byCategory"`
}

// Digest is the single immutable artifact produced for one week.
type Digest struct {
	Week        string    `json:"week"`
	TZ          string    `json:"tz,omitempty"`
	Start       time.Time `json:"start,omitempty"`
	End         time.Time `json:"end,omitempty"`
	GeneratedAt time.Time `json:"generatedAt"`

	Sections []CategorySection `json:"sections"`
	Totals   Totals            `json:"totals"`

	KeyThemes          []string `json:"keyThemes,omitempty"`
	OneSentenceSummary string   `json:"oneSentenceSummary,omitempty"`
	IntroParagraph     string   `json:"introParagraph,omitempty"`

	Cover           CoverImage `json:"cover"`
	BuildDurationMS int64      `json:"buildDurationMs,omitempty"`
	RunStats        RunStats   `json:"runStats,omitempty"`
	ArchiveID       int64      `json:"archiveId,omitempty"`
}
