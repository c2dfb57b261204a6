// Package catalog maintains a local SQLite index of score files: one row
// per file with its title, composer, shape (parts, measures) and content
// fingerprint, so a collection can be scanned once and queried cheaply.
//
// Build modes:
//   - Default (CGO_ENABLED=0): Uses pure Go modernc.org/sqlite
//   - CGO mode (CGO_ENABLED=1 -tags cgo_sqlite): Uses mattn/go-sqlite3
//
// The driver name is "sqlite" or "sqlite3" depending on the implementation.
// Use Open() instead of sql.Open() to ensure the correct driver is used.
package catalog

import (
	"context"
	"database/sql"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/scorekit/scorekit/core/errors"
	"github.com/scorekit/scorekit/core/fingerprint"
	"github.com/scorekit/scorekit/core/score"
	"github.com/scorekit/scorekit/fileio"
	"github.com/scorekit/scorekit/internal/logging"
)

// DriverName returns the SQL driver name in use.
func DriverName() string {
	return driverName
}

// DriverType returns a string identifying the underlying implementation.
// Returns "cgo" for mattn/go-sqlite3, "purego" for modernc.org/sqlite.
func DriverType() string {
	return driverType
}

// IsCGO returns true if the CGO implementation is being used.
func IsCGO() bool {
	return driverType == "cgo"
}

const schema = `
CREATE TABLE IF NOT EXISTS scores (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	path       TEXT NOT NULL UNIQUE,
	title      TEXT NOT NULL DEFAULT '',
	composer   TEXT NOT NULL DEFAULT '',
	format     TEXT NOT NULL DEFAULT '',
	parts      INTEGER NOT NULL DEFAULT 0,
	measures   INTEGER NOT NULL DEFAULT 0,
	sha256     TEXT NOT NULL,
	blake3     TEXT NOT NULL,
	scanned_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scores_sha256 ON scores(sha256);
CREATE INDEX IF NOT EXISTS idx_scores_title ON scores(title);
`

// Entry is one indexed score file.
type Entry struct {
	ID        int64     `json:"id"`
	Path      string    `json:"path"`
	Title     string    `json:"title,omitempty"`
	Composer  string    `json:"composer,omitempty"`
	Format    string    `json:"format,omitempty"`
	Parts     int       `json:"parts"`
	Measures  int       `json:"measures"`
	SHA256    string    `json:"sha256"`
	BLAKE3    string    `json:"blake3"`
	ScannedAt time.Time `json:"scanned_at"`
}

// Catalog is an open catalog database.
type Catalog struct {
	db *sql.DB
}

// Open opens (creating if necessary) a catalog database at path and
// ensures the schema exists.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, errors.NewIO("open catalog", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.NewIO("initialize catalog", path, err)
	}
	return &Catalog{db: db}, nil
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Add indexes one score under the given file path, replacing any existing
// row for that path.
func (c *Catalog) Add(ctx context.Context, path string, s *score.Score) (*Entry, error) {
	fp, err := fingerprint.Compute(s)
	if err != nil {
		return nil, err
	}
	e := &Entry{
		Path:      path,
		Title:     s.Title,
		Composer:  composerOf(s),
		Format:    string(fileio.DetectFormat(path)),
		Parts:     len(s.Parts),
		Measures:  measureCount(s),
		SHA256:    fp.SHA256,
		BLAKE3:    fp.BLAKE3,
		ScannedAt: time.Now().UTC().Truncate(time.Second),
	}
	res, err := c.db.ExecContext(ctx, `
		INSERT INTO scores (path, title, composer, format, parts, measures, sha256, blake3, scanned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title = excluded.title,
			composer = excluded.composer,
			format = excluded.format,
			parts = excluded.parts,
			measures = excluded.measures,
			sha256 = excluded.sha256,
			blake3 = excluded.blake3,
			scanned_at = excluded.scanned_at`,
		e.Path, e.Title, e.Composer, e.Format, e.Parts, e.Measures,
		e.SHA256, e.BLAKE3, e.ScannedAt.Format(time.RFC3339))
	if err != nil {
		return nil, errors.NewIO("index score", path, err)
	}
	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}
	return e, nil
}

// Remove deletes the row for a file path. Removing an unindexed path is
// not an error.
func (c *Catalog) Remove(ctx context.Context, path string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM scores WHERE path = ?`, path)
	if err != nil {
		return errors.NewIO("remove from catalog", path, err)
	}
	return nil
}

// ScanResult summarizes one directory scan.
type ScanResult struct {
	Indexed int `json:"indexed"`
	Skipped int `json:"skipped"`
}

// ScanDir walks a directory tree and indexes every readable score file.
// Files whose extension is not a recognized score format, and files that
// fail to parse, are counted as skipped rather than aborting the scan.
func (c *Catalog) ScanDir(ctx context.Context, dir string) (ScanResult, error) {
	var result ScanResult
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		switch fileio.DetectFormat(path) {
		case fileio.FormatMusicXML, fileio.FormatMXL, fileio.FormatABC:
		default:
			return nil
		}
		s, err := fileio.ReadScore(path)
		if err != nil {
			logging.CatalogEvent("skip", path, "error", err.Error())
			result.Skipped++
			return nil
		}
		if _, err := c.Add(ctx, path, s); err != nil {
			return err
		}
		logging.CatalogEvent("index", path, "title", s.Title)
		result.Indexed++
		return nil
	})
	if err != nil {
		return result, errors.NewIO("scan directory", dir, err)
	}
	return result, nil
}

// List returns all entries ordered by path.
func (c *Catalog) List(ctx context.Context) ([]Entry, error) {
	return c.query(ctx, `ORDER BY path`)
}

// FindByTitle returns entries whose title contains the query string,
// case-insensitively.
func (c *Catalog) FindByTitle(ctx context.Context, q string) ([]Entry, error) {
	return c.query(ctx, `WHERE title LIKE ? COLLATE NOCASE ORDER BY path`, "%"+q+"%")
}

// FindByFingerprint returns the entries whose content SHA-256 matches
// exactly. Several paths can share one fingerprint (duplicate files).
func (c *Catalog) FindByFingerprint(ctx context.Context, sha256 string) ([]Entry, error) {
	entries, err := c.query(ctx, `WHERE sha256 = ? ORDER BY path`, sha256)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.NewNotFound("catalog entry", sha256)
	}
	return entries, nil
}

// Get returns the entry for an exact file path.
func (c *Catalog) Get(ctx context.Context, path string) (*Entry, error) {
	entries, err := c.query(ctx, `WHERE path = ?`, path)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.NewNotFound("catalog entry", path)
	}
	return &entries[0], nil
}

func (c *Catalog) query(ctx context.Context, clause string, args ...any) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, path, title, composer, format, parts, measures, sha256, blake3, scanned_at
		FROM scores `+clause, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query catalog")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var scanned string
		if err := rows.Scan(&e.ID, &e.Path, &e.Title, &e.Composer, &e.Format,
			&e.Parts, &e.Measures, &e.SHA256, &e.BLAKE3, &scanned); err != nil {
			return nil, errors.Wrap(err, "scan catalog row")
		}
		if t, err := time.Parse(time.RFC3339, scanned); err == nil {
			e.ScannedAt = t
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate catalog rows")
	}
	return entries, nil
}

func composerOf(s *score.Score) string {
	for _, cr := range s.Creators {
		if cr.Type == "composer" {
			return cr.Name
		}
	}
	if len(s.Creators) > 0 {
		return s.Creators[0].Name
	}
	return ""
}

// measureCount reports the longest part's measure count; parts normally
// agree, but a malformed file should still index.
func measureCount(s *score.Score) int {
	max := 0
	for _, p := range s.Parts {
		if len(p.Measures) > max {
			max = len(p.Measures)
		}
	}
	return max
}
