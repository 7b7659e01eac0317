package gate

import (
	"testing"
	"time"

	"briefly/internal/core"
)

func testWindow(t *testing.T) core.WeekWindow {
	t.Helper()
	start := time.Date(2026, 1, 26, 0, 0, 0, 0, time.UTC)
	return core.WeekWindow{Label: "2026-W05", Start: start, End: start.AddDate(0, 0, 7).Add(-time.Nanosecond)}
}

func TestEvaluateOutOfWindow(t *testing.T) {
	w := testWindow(t)
	a := core.Article{Title: "Old news", PublishedAt: w.Start.AddDate(0, 0, -10)}
	got := Evaluate(a, w, nil, nil)
	if got.Eligible || got.Reason != core.RejectOutOfWindow {
		t.Fatalf("got %+v", got)
	}
}

func TestEvaluateDiscoverySoftWindow(t *testing.T) {
	w := testWindow(t)
	a := core.Article{
		Title:        "Discovered late",
		PublishedAt:  w.Start.AddDate(0, 0, -30),
		IsDiscovery:  true,
		DiscoveredAt: w.End.Add(-10 * time.Hour),
	}
	got := Evaluate(a, w, nil, nil)
	if !got.Eligible || !got.SoftWindow {
		t.Fatalf("got %+v", got)
	}
}

func TestEvaluateDiscoveryBeyondSlackRejected(t *testing.T) {
	w := testWindow(t)
	a := core.Article{
		Title:        "Too late",
		PublishedAt:  w.Start.AddDate(0, 0, -30),
		IsDiscovery:  true,
		DiscoveredAt: w.End.Add(72 * time.Hour),
	}
	got := Evaluate(a, w, nil, nil)
	if got.Eligible {
		t.Fatalf("expected rejection beyond soft window slack, got %+v", got)
	}
}

func TestEvaluateDuplicateTitle(t *testing.T) {
	w := testWindow(t)
	a := core.Article{Title: "Big Launch Today!", PublishedAt: w.Start.Add(time.Hour)}
	seen := map[string]bool{"big launch today": true}
	got := Evaluate(a, w, seen, nil)
	if got.Eligible || got.Reason != core.RejectDuplicate {
		t.Fatalf("got %+v", got)
	}
}

func TestEvaluateSponsoredIsNonBlocking(t *testing.T) {
	w := testWindow(t)
	a := core.Article{Title: "Great new thing", Excerpt: "This is a sponsored post", PublishedAt: w.Start.Add(time.Hour)}
	got := Evaluate(a, w, nil, nil)
	if !got.Eligible || !got.Sponsored {
		t.Fatalf("got %+v", got)
	}
}

func TestEvaluateControversyRejected(t *testing.T) {
	w := testWindow(t)
	a := core.Article{
		Title:       "Election polling surprises voters",
		PublishedAt: w.Start.Add(time.Hour),
	}
	got := Evaluate(a, w, nil, nil)
	if got.Eligible || got.Reason != core.RejectControversy {
		t.Fatalf("got %+v", got)
	}
}

func TestEvaluateControversyAllowedByPolicy(t *testing.T) {
	w := testWindow(t)
	// EU AI Act tightens retail compliance amid election-year scrutiny:
	// trips the election controversy group, but the "AI Act" allowlist
	// term reads it as policy coverage rather than controversy.
	a := core.Article{
		Title:       "EU AI Act tightens retail compliance amid election-year scrutiny",
		PublishedAt: w.Start.Add(time.Hour),
	}
	got := Evaluate(a, w, nil, []string{"AI Act"})
	if !got.Eligible {
		t.Fatalf("expected policy allowlist to override controversy rejection, got %+v", got)
	}
}

func TestEvaluateControversySuspectedWithRetailContext(t *testing.T) {
	w := testWindow(t)
	a := core.Article{
		Title:       "Election-year spending boosts retail sales",
		PublishedAt: w.Start.Add(time.Hour),
	}
	got := Evaluate(a, w, nil, nil)
	if !got.Eligible || !got.ControversialSuspected {
		t.Fatalf("expected retail-context co-occurrence to flag as suspected but stay eligible, got %+v", got)
	}
}

func TestEvaluateNoControversyMarkerIsEligible(t *testing.T) {
	w := testWindow(t)
	a := core.Article{Title: "Regulator reviews new filing", PublishedAt: w.Start.Add(time.Hour)}
	got := Evaluate(a, w, nil, nil)
	if !got.Eligible {
		t.Fatalf("expected an article with no controversy marker to stay eligible, got %+v", got)
	}
}
