// Package narrative generates each category section's theme label and
// intro paragraph. Both follow the same generate -> validate -> retry-once
// -> accept-best-effort policy, generalized from the teacher's
// narrative.Generator.RefineDigestWithCritique loop: a single refinement
// pass with a stricter reminder, never more, and the best available result
// is always returned rather than failing the section.
package narrative

import (
	"context"
	"strings"

	"briefly/internal/cache"
	"briefly/internal/core"
	"briefly/internal/logger"
)

const (
	maxIntroWords = 80
	// maxIntroSentences matches spec.md §4.6/§8's testable property: intro
	// paragraphs are at most 3 sentences.
	maxIntroSentences = 3
)

// LLM is the subset of the Gemini client the narrative generator needs.
type LLM interface {
	GenerateTheme(ctx context.Context, category string, selections []core.Selection, reminder string) (string, error)
	GenerateIntro(ctx context.Context, category string, theme string, selections []core.Selection, reminder string) (string, error)
}

// Generator produces theme labels and intros for category sections.
type Generator struct {
	LLM         LLM
	ThemeCache  *cache.File
	IntroCache  *cache.File
	Stats       *core.RunStats
}

func New(llm LLM, themeCache, introCache *cache.File, stats *core.RunStats) *Generator {
	return &Generator{LLM: llm, ThemeCache: themeCache, IntroCache: introCache, Stats: stats}
}

// Theme returns a short theme label for category's selections within
// weekLabel's build. If the LLM is unavailable or errors it returns the
// category's display name; if both attempts fail validation it returns the
// non-empty retry (or original) output as-is, unvalidated.
func (g *Generator) Theme(ctx context.Context, weekLabel string, category core.Category, selections []core.Selection) string {
	fp := selectionFingerprint(weekLabel, string(category)+":theme", selections)

	if g.ThemeCache != nil {
		var cached string
		if g.ThemeCache.Get(fp, &cached) {
			g.bump(func(s *core.RunStats) { s.CacheHits++ })
			return cached
		}
		g.bump(func(s *core.RunStats) { s.CacheMisses++ })
	}

	theme := g.generateTheme(ctx, category, selections)
	if g.ThemeCache != nil {
		g.ThemeCache.Put(fp, theme)
	}
	return theme
}

func (g *Generator) generateTheme(ctx context.Context, category core.Category, selections []core.Selection) string {
	if g.LLM == nil {
		g.bump(func(s *core.RunStats) { s.FallbackInvocations++ })
		return category.DisplayName()
	}

	theme, err := g.LLM.GenerateTheme(ctx, string(category), selections, "")
	if err == nil {
		if verr := validateTheme(theme); verr == nil {
			g.bump(func(s *core.RunStats) { s.LLMSuccesses++ })
			return theme
		}
		logger.Debug("narrative: theme failed validation, retrying once", "category", category, "error", err)
		retried, rerr := g.LLM.GenerateTheme(ctx, string(category), selections,
			"Your previous answer was invalid: keep it under 6 words and avoid vague filler phrases.")
		if rerr == nil && validateTheme(retried) == nil {
			g.bump(func(s *core.RunStats) { s.LLMSuccesses++ })
			return retried
		}
		// Accept best effort: prefer the retry if non-empty, else the original.
		g.bump(func(s *core.RunStats) { s.FallbackInvocations++ })
		if retried != "" {
			return retried
		}
		if theme != "" {
			return theme
		}
		return category.DisplayName()
	}

	logger.Warn("narrative: theme generation failed, using category name", "category", category, "error", err.Error())
	g.bump(func(s *core.RunStats) { s.LLMFailures++ })
	return category.DisplayName()
}

// Intro returns the intro paragraph for category given its theme and
// selections within weekLabel's build, or a deterministic fallback built
// from the selection titles.
func (g *Generator) Intro(ctx context.Context, weekLabel string, category core.Category, theme string, selections []core.Selection) string {
	fp := selectionFingerprint(weekLabel, string(category)+":intro:"+theme, selections)

	if g.IntroCache != nil {
		var cached string
		if g.IntroCache.Get(fp, &cached) {
			g.bump(func(s *core.RunStats) { s.CacheHits++ })
			return cached
		}
		g.bump(func(s *core.RunStats) { s.CacheMisses++ })
	}

	intro := g.generateIntro(ctx, category, theme, selections)
	if g.IntroCache != nil {
		g.IntroCache.Put(fp, intro)
	}
	return intro
}

func (g *Generator) generateIntro(ctx context.Context, category core.Category, theme string, selections []core.Selection) string {
	if g.LLM == nil {
		g.bump(func(s *core.RunStats) { s.FallbackInvocations++ })
		return fallbackIntro(category, selections)
	}

	intro, err := g.LLM.GenerateIntro(ctx, string(category), theme, selections, "")
	if err != nil {
		logger.Warn("narrative: intro generation failed, using fallback", "category", category, "error", err.Error())
		g.bump(func(s *core.RunStats) { s.LLMFailures++ })
		return fallbackIntro(category, selections)
	}

	if verr := validateIntro(intro, maxIntroWords, maxIntroSentences); verr == nil {
		g.bump(func(s *core.RunStats) { s.LLMSuccesses++ })
		return intro
	}

	logger.Debug("narrative: intro failed validation, retrying once", "category", category)
	retried, rerr := g.LLM.GenerateIntro(ctx, string(category), theme, selections,
		"Your previous answer was invalid: stay under the word and sentence budget and avoid vague filler phrases.")

	g.bump(func(s *core.RunStats) { s.FallbackInvocations++ })
	if rerr == nil && validateIntro(retried, maxIntroWords, maxIntroSentences) == nil {
		return retried
	}
	// Accept best effort: truncate whichever candidate we have to the budget
	// rather than discarding the LLM's content entirely.
	candidate := intro
	if retried != "" {
		candidate = retried
	}
	if candidate == "" {
		return fallbackIntro(category, selections)
	}
	return truncateToSentence(candidate, maxIntroWords)
}

func fallbackIntro(category core.Category, selections []core.Selection) string {
	if len(selections) == 0 {
		return "No eligible stories were found for " + category.DisplayName() + " this week."
	}
	return "This week in " + category.DisplayName() + ": " + selections[0].Article.Title + "."
}

// maxKeyThemes caps the digest-level key_themes list at spec.md §4.6's
// upper bound.
const maxKeyThemes = 5

// maxSummaryWords is the one_sentence_summary word budget of spec.md §4.6
// and §8's testable property.
const maxSummaryWords = 22

// DigestThemes derives the digest-level key_themes[] and
// one_sentence_summary from each category's theme label, per spec.md
// §4.6's themes(digest) -> (key_themes[], one_sentence_summary) contract.
// No further LLM call or validation happens here: labels are used as
// Theme returned them, which includes best-effort labels that failed
// validateTheme. A category whose theme is its bare display name (the
// no-LLM and LLM-error fallback) contributes nothing distinctive and is
// skipped.
func DigestThemes(sections []core.CategorySection) ([]string, string) {
	var themes []string
	for _, s := range sections {
		if s.Theme == "" || s.Theme == s.Category.DisplayName() {
			continue
		}
		if !containsString(themes, s.Theme) {
			themes = append(themes, s.Theme)
		}
	}
	if len(themes) > maxKeyThemes {
		themes = themes[:maxKeyThemes]
	}
	return themes, digestSummary(themes)
}

// digestSummary builds a <=22-word summary listing every theme (so it
// names two or more only when two or more themes exist), truncating to
// the word budget if the theme list runs long, in which case trailing
// themes are cut.
func digestSummary(themes []string) string {
	if len(themes) == 0 {
		return ""
	}
	summary := "This week spans " + strings.Join(themes, ", ") + "."
	if wordCount(summary) > maxSummaryWords {
		summary = truncateToSentence(summary, maxSummaryWords)
	}
	return summary
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// DigestIntro builds the digest-level intro_paragraph from up to
// maxIntroSentences categories' already-validated intros, each
// contributing its leading sentence, per spec.md §4.6's
// intro(digest) -> intro_paragraph contract and its sentence budget.
func DigestIntro(sections []core.CategorySection) string {
	var sentences []string
	for _, s := range sections {
		if s.Intro == "" {
			continue
		}
		sentences = append(sentences, firstSentence(s.Intro))
		if len(sentences) == maxIntroSentences {
			break
		}
	}
	return strings.Join(sentences, " ")
}

func firstSentence(text string) string {
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			return text[:i+1]
		}
	}
	return text
}

// selectionFingerprint builds the theme/intro cache key from weekLabel, a
// discriminator prefix (category plus theme/intro and, for intros, the
// generated theme text), and the selected URLs, per spec.md §3's
// (week_label, selected_urls_fingerprint, version) key shape.
func selectionFingerprint(weekLabel, prefix string, selections []core.Selection) string {
	parts := []string{weekLabel, prefix}
	for _, s := range selections {
		parts = append(parts, s.Article.URL)
	}
	return cache.Fingerprint(parts...)
}

func (g *Generator) bump(f func(*core.RunStats)) {
	if g.Stats != nil {
		f(g.Stats)
	}
}
