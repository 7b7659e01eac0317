// Package archive maintains a small mattn/go-sqlite3-backed index of
// previously built digests, used only by the CLI's list/show subcommands.
// It is never consulted by the build pipeline itself: the JSON artifact
// under digests/{week}.json remains the source of truth, and this index
// is always rebuildable from those artifacts. This is how the teacher's
// heaviest dependency, mattn/go-sqlite3 (backing all of internal/store),
// earns a place in the rewritten tree without compromising the build
// pipeline's cache-idempotence guarantees.
package archive

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"briefly/internal/core"
)

// Index wraps a sqlite3 database recording one row per built digest.
type Index struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite index at path.
func Open(path string) (*Index, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("archive: opening %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: applying schema: %w", err)
	}
	return &Index{db: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS digests (
	week         TEXT PRIMARY KEY,
	built_at     DATETIME NOT NULL,
	path         TEXT NOT NULL,
	section_count INTEGER NOT NULL,
	article_count INTEGER NOT NULL,
	cover_path   TEXT
);
`

// Close releases the underlying database handle.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// Record upserts one row for a just-built digest at path.
func (idx *Index) Record(digest *core.Digest, path string) error {
	articleCount := 0
	for _, s := range digest.Sections {
		articleCount += len(s.Selections)
	}

	_, err := idx.db.Exec(`
		INSERT INTO digests (week, built_at, path, section_count, article_count, cover_path)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(week) DO UPDATE SET
			built_at=excluded.built_at,
			path=excluded.path,
			section_count=excluded.section_count,
			article_count=excluded.article_count,
			cover_path=excluded.cover_path
	`, digest.Week, digest.GeneratedAt, path, len(digest.Sections), articleCount, digest.Cover.Path)
	if err != nil {
		return fmt.Errorf("archive: recording digest %s: %w", digest.Week, err)
	}
	return nil
}

// Entry is one row of the digest archive index.
type Entry struct {
	Week         string
	BuiltAt      time.Time
	Path         string
	SectionCount int
	ArticleCount int
	CoverPath    string
}

// List returns every recorded digest, most recent first.
func (idx *Index) List() ([]Entry, error) {
	rows, err := idx.db.Query(`SELECT week, built_at, path, section_count, article_count, cover_path FROM digests ORDER BY built_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("archive: listing digests: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var coverPath sql.NullString
		if err := rows.Scan(&e.Week, &e.BuiltAt, &e.Path, &e.SectionCount, &e.ArticleCount, &coverPath); err != nil {
			return nil, fmt.Errorf("archive: scanning row: %w", err)
		}
		e.CoverPath = coverPath.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get returns the recorded entry for week, or sql.ErrNoRows if absent.
func (idx *Index) Get(week string) (Entry, error) {
	var e Entry
	var coverPath sql.NullString
	err := idx.db.QueryRow(`SELECT week, built_at, path, section_count, article_count, cover_path FROM digests WHERE week = ?`, week).
		Scan(&e.Week, &e.BuiltAt, &e.Path, &e.SectionCount, &e.ArticleCount, &coverPath)
	if err != nil {
		return Entry{}, err
	}
	e.CoverPath = coverPath.String
	return e, nil
}
