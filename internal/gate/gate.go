// Package gate decides per-article, per-category eligibility: whether an
// article falls in the build window (directly, or via the discovery
// overlay's softer window), whether it duplicates another article's title,
// whether it reads as sponsored content, and whether it trips the
// controversy filter. Every check is a pure function of its inputs so it
// can be tested in isolation, following the teacher's quality-gate
// convention of small, independently verifiable checks.
package gate

import (
	"strings"
	"time"
	"unicode"

	"briefly/internal/core"
)

// DiscoveryGuardrailWindow is how far before the week's start a discovery
// article's reference date (published_at, or discovered_at absent that) may
// reach before the article is rejected outright, regardless of any soft
// window or fallback match.
const DiscoveryGuardrailWindow = 30 * 24 * time.Hour

// discoverySoftSlack is the published_at soft-window slack on either side of
// the strict week window for discovery-origin articles.
const discoverySoftSlack = 24 * time.Hour

var sponsoredMarkers = []string{
	"sponsored", "partner content", "paid post", "press release",
	"in partnership with", "advertisement",
}

// controversyGroups are matched independently; a single term from any one
// group is enough to trip the filter, unless a policy-context allowlist
// term appears in the article's title.
var controversyGroups = [][]string{
	{"war", "invasion", "military strike", "conflict zone", "casualties", "airstrike"},
	{"abortion", "gun control", "immigration crackdown", "culture war", "transgender rights", "critical race theory"},
	{"election", "ballot", "voter fraud", "candidate", "polling", "campaign trail"},
}

// retailContextMarkers are terms whose co-occurrence with a controversy
// marker downgrades a hard rejection to a controversial_suspected flag:
// the article still reads as retail/ecommerce coverage, not pure
// controversy, so it stays eligible for the reranker to weigh.
var retailContextMarkers = []string{
	"retail", "retailer", "ecommerce", "e-commerce", "storefront",
	"shopping", "merchandising", "consumer brand", "supply chain",
}

// Evaluate returns the Gate verdict for a within window, given an index of
// normalized titles already selected for the category (for duplicate
// detection) and the policy allowlist of contexts that override the
// controversy filter.
func Evaluate(a core.Article, w core.WeekWindow, seenTitles map[string]bool, policyAllowlist []string) core.Gate {
	inWindow, soft := inWindow(a, w)
	if !inWindow {
		return core.Gate{Eligible: false, Reason: core.RejectOutOfWindow}
	}

	normTitle := normalizeTitle(a.Title)
	if seenTitles != nil && seenTitles[normTitle] {
		return core.Gate{Eligible: false, Reason: core.RejectDuplicate, SoftWindow: soft}
	}

	sponsored := isSponsored(a)

	if isControversial(a) && !allowedByPolicy(a, policyAllowlist) {
		if hasRetailContext(a) {
			return core.Gate{Eligible: true, Sponsored: sponsored, SoftWindow: soft, ControversialSuspected: true}
		}
		return core.Gate{Eligible: false, Reason: core.RejectControversy, Sponsored: sponsored, SoftWindow: soft}
	}

	return core.Gate{Eligible: true, Sponsored: sponsored, SoftWindow: soft}
}

// inWindow reports whether a belongs in w. Non-discovery articles must fall
// within the strict [Start, End] window on published_at. Discovery articles
// get a one-day soft slack on published_at and, failing that, fall back to a
// strict-window check on discovered_at — but are rejected outright if their
// reference date is more than DiscoveryGuardrailWindow before the week's
// start.
func inWindow(a core.Article, w core.WeekWindow) (ok bool, soft bool) {
	if !a.IsDiscovery {
		return w.Contains(a.PublishedAt), false
	}

	reference := a.PublishedAt
	if reference.IsZero() {
		reference = a.DiscoveredAt
	}
	if !reference.IsZero() && reference.Before(w.Start.Add(-DiscoveryGuardrailWindow)) {
		return false, false
	}

	if !a.PublishedAt.IsZero() {
		softStart := w.Start.Add(-discoverySoftSlack)
		softEnd := w.End.Add(discoverySoftSlack)
		if !a.PublishedAt.Before(softStart) && !a.PublishedAt.After(softEnd) {
			return true, true
		}
	}
	if !a.DiscoveredAt.IsZero() && w.Contains(a.DiscoveredAt) {
		return true, true
	}
	return false, false
}

func normalizeTitle(title string) string {
	var b strings.Builder
	lastWasSpace := true
	for _, r := range strings.ToLower(title) {
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

func isSponsored(a core.Article) bool {
	text := strings.ToLower(a.Title + " " + a.Excerpt)
	for _, m := range sponsoredMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

func isControversial(a core.Article) bool {
	text := strings.ToLower(a.Title + " " + a.Excerpt + " " + a.Body)
	for _, group := range controversyGroups {
		for _, term := range group {
			if strings.Contains(text, term) {
				return true
			}
		}
	}
	return false
}

// hasRetailContext reports whether a reads as retail/ecommerce coverage,
// per the retailContextMarkers list, which downgrades a controversy hit to
// a controversial_suspected flag instead of a hard rejection.
func hasRetailContext(a core.Article) bool {
	text := strings.ToLower(a.Title + " " + a.Excerpt + " " + a.Body)
	for _, m := range retailContextMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// allowedByPolicy reports whether the article's title mentions one of the
// policy-context allowlist terms (e.g. "AI Act", "tariff", "GDPR",
// "antitrust"), in which case a controversy-group match is overridden
// because the article is read as policy coverage rather than controversy.
func allowedByPolicy(a core.Article, allowlist []string) bool {
	title := strings.ToLower(a.Title)
	for _, term := range allowlist {
		if term == "" {
			continue
		}
		if strings.Contains(title, strings.ToLower(term)) {
			return true
		}
	}
	return false
}
