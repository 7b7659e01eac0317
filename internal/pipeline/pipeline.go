// Package pipeline composes the time window resolver, article store,
// classifier, gate, reranker, narrative generator, scene director, image
// renderer, and summarizer into the single build operation that produces
// one week's Digest, generalized from the teacher's pipeline.Pipeline
// driver composing its own stage interfaces in dependency order.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"briefly/internal/articles"
	"briefly/internal/cache"
	"briefly/internal/classify"
	"briefly/internal/core"
	"briefly/internal/gate"
	"briefly/internal/logger"
	"briefly/internal/narrative"
	"briefly/internal/rerank"
	"briefly/internal/summarize"
	"briefly/internal/visual"
	"briefly/internal/window"
)

// DefaultSelectionsPerCategory is how many articles the reranker keeps per
// category section when Options.SelectionsPerCategory is unset.
const DefaultSelectionsPerCategory = 7

// Options configures one Build invocation, mapping directly onto the CLI
// flags and environment variables of the driver.
type Options struct {
	Week     string
	Location *time.Location

	// SelectionsPerCategory overrides DefaultSelectionsPerCategory, normally
	// sourced from config.Pipeline.SelectionsPerCategory.
	SelectionsPerCategory int

	ArticlesPath string
	WeeksDir     string
	CacheDir     string
	OutputDir    string

	PolicyAllowlist []string

	RegenCover  bool
	RegenThemes bool
	RegenIntro  bool
	CoverStyle  string

	Classifier *classify.Classifier
	Reranker   *rerank.Reranker
	Narrative  *narrative.Generator
	Scene      *visual.SceneDirector
	Renderer   *visual.ImageRenderer
	Summarizer *summarize.Summarizer
}

// Build runs the full digest-build pipeline for opts.Week and returns the
// resulting Digest. Fatal errors (bad week label, unreadable corpus,
// unwritable output dir) abort the build; every other failure degrades to
// a local fallback and is recorded in the returned Digest's RunStats.
func Build(ctx context.Context, opts Options) (*core.Digest, error) {
	start := time.Now()
	stats := &core.RunStats{GateRejections: map[string]int{}}

	win, err := window.Resolve(opts.Week, opts.Location)
	if err != nil {
		return nil, fmt.Errorf("pipeline: resolving week window: %w", err)
	}

	store := articles.New(opts.ArticlesPath, opts.WeeksDir)
	all, err := store.Load(opts.Week)
	if err != nil {
		return nil, fmt.Errorf("pipeline: loading article corpus: %w", err)
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("pipeline: output directory not writable: %w", err)
	}

	perCategory := opts.SelectionsPerCategory
	if perCategory <= 0 {
		perCategory = DefaultSelectionsPerCategory
	}

	sections := make([]core.CategorySection, 0, len(core.Categories))

	for _, category := range core.Categories {
		sel := buildSection(ctx, opts, win, all, category, perCategory, stats)
		sections = append(sections, sel)
	}

	if opts.Summarizer != nil {
		if err := opts.Summarizer.SummarizeAll(ctx, sections); err != nil {
			logger.Warn("pipeline: summarization fan-out returned an error", "error", err.Error())
		}
	}

	cover := buildCover(ctx, opts, sections, stats)

	totals := core.Totals{ByCategory: make(map[string]int, len(sections))}
	for _, s := range sections {
		totals.ByCategory[string(s.Category)] = s.Total
		totals.Overall += s.Total
	}

	keyThemes, oneSentenceSummary := narrative.DigestThemes(sections)

	digest := &core.Digest{
		Week:               opts.Week,
		TZ:                 win.Start.Location().String(),
		Start:              win.Start,
		End:                win.End,
		GeneratedAt:        time.Now(),
		Sections:           sections,
		Totals:             totals,
		KeyThemes:          keyThemes,
		OneSentenceSummary: oneSentenceSummary,
		IntroParagraph:     narrative.DigestIntro(sections),
		Cover:              cover,
		BuildDurationMS:    time.Since(start).Milliseconds(),
		RunStats:           *stats,
	}

	if err := writeDigest(opts.OutputDir, digest); err != nil {
		return nil, fmt.Errorf("pipeline: writing digest artifact: %w", err)
	}

	logger.Info("pipeline: digest build complete",
		"week", opts.Week,
		"durationMs", digest.BuildDurationMS,
		"cacheHits", stats.CacheHits,
		"cacheMisses", stats.CacheMisses,
		"llmSuccesses", stats.LLMSuccesses,
		"llmFailures", stats.LLMFailures,
		"fallbackInvocations", stats.FallbackInvocations,
		"gateRejections", stats.GateRejections,
	)

	return digest, nil
}

func buildSection(ctx context.Context, opts Options, win core.WeekWindow, all []core.Article, category core.Category, limit int, stats *core.RunStats) core.CategorySection {
	seenTitles := make(map[string]bool)
	var eligible []core.Article

	for _, a := range all {
		classification := core.Classification{Category: category, Confidence: 1, Source: "assumed"}
		if opts.Classifier != nil {
			classification = opts.Classifier.Classify(ctx, a)
		}
		if classification.Category != category {
			continue
		}

		g := gate.Evaluate(a, win, seenTitles, opts.PolicyAllowlist)
		if !g.Eligible {
			stats.GateRejections[string(g.Reason)]++
			continue
		}
		seenTitles[normalizedTitleKey(a)] = true
		eligible = append(eligible, a)
	}

	var selections []core.Selection
	if opts.Reranker != nil {
		selections = opts.Reranker.Rerank(ctx, opts.Week, category, eligible, limit)
	}

	section := core.CategorySection{Category: category, Total: len(eligible), Selections: selections}

	if opts.Narrative != nil {
		section.Theme = opts.Narrative.Theme(ctx, opts.Week, category, selections)
		section.Intro = opts.Narrative.Intro(ctx, opts.Week, category, section.Theme, selections)
	}

	return section
}

// normalizedTitleKey returns the lower-cased, punctuation-collapsed title
// form that gate.Evaluate looks up in seenTitles.
func normalizedTitleKey(a core.Article) string {
	var b strings.Builder
	lastWasSpace := true
	for _, r := range strings.ToLower(a.Title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastWasSpace = false
		} else if !lastWasSpace {
			b.WriteRune(' ')
			lastWasSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

func buildCover(ctx context.Context, opts Options, sections []core.CategorySection, stats *core.RunStats) core.CoverImage {
	if opts.Scene == nil || opts.Renderer == nil {
		return core.CoverImage{Fallback: true}
	}

	// The cover draws its homepage anchor articles from Ecommerce_Retail_Tech
	// and Jewellery_Industry only: the first 1-2 selections of each,
	// capped at four total, per the cover pipeline's fixed two-category
	// scope.
	var theme string
	anchor := core.EcommerceRetailTech
	var selections []core.Selection
	for _, s := range sections {
		if s.Category != core.EcommerceRetailTech && s.Category != core.JewelleryIndustry {
			continue
		}
		if theme == "" {
			theme = s.Theme
		}
		n := len(s.Selections)
		if n > 2 {
			n = 2
		}
		selections = append(selections, s.Selections[:n]...)
	}
	if len(selections) > 4 {
		selections = selections[:4]
	}

	direction := opts.Scene.Direct(ctx, anchor, theme, selections)
	if opts.CoverStyle != "" {
		direction.Style = opts.CoverStyle
	}
	return opts.Renderer.Render(ctx, opts.Week, anchor, direction)
}

func writeDigest(outputDir string, digest *core.Digest) error {
	path := filepath.Join(outputDir, "digests", digest.Week+".json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	data, err := json.MarshalIndent(digest, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
