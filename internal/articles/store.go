// Package articles adapts the flat-file read-only corpus (plus an optional
// per-week discovery overlay) into the core.Article slice the rest of the
// digest-build pipeline consumes.
package articles

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"briefly/internal/core"
)

// Store reads the canonical article corpus and, when present, a per-week
// discovery overlay, producing a single merged article set.
type Store struct {
	CorpusPath string
	WeeksDir   string
}

// New returns a Store rooted at corpusPath (the canonical JSON array file)
// and weeksDir (the directory holding weeks/{label}/discoveryArticles.json).
func New(corpusPath, weeksDir string) *Store {
	return &Store{CorpusPath: corpusPath, WeeksDir: weeksDir}
}

// Load reads the canonical corpus and overlays any discovery articles for
// week. Overlay items replace canonical items sharing a normalized URL and
// are otherwise appended. No window or eligibility filtering happens here.
func (s *Store) Load(week string) ([]core.Article, error) {
	canonical, err := readArticleFile(s.CorpusPath)
	if err != nil {
		return nil, fmt.Errorf("articles: reading corpus %s: %w", s.CorpusPath, err)
	}

	byURL := make(map[string]int, len(canonical))
	for i, a := range canonical {
		byURL[a.NormalizedURL()] = i
	}

	overlayPath := filepath.Join(s.WeeksDir, week, "discoveryArticles.json")
	overlay, err := readArticleFile(overlayPath)
	if err != nil {
		if os.IsNotExist(err) {
			return canonical, nil
		}
		return nil, fmt.Errorf("articles: reading discovery overlay %s: %w", overlayPath, err)
	}

	for _, a := range overlay {
		a.IsDiscovery = true
		if i, ok := byURL[a.NormalizedURL()]; ok {
			canonical[i] = a
			continue
		}
		canonical = append(canonical, a)
	}

	return canonical, nil
}

func readArticleFile(path string) ([]core.Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []core.Article
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("articles: parsing %s: %w", path, err)
	}
	return out, nil
}
