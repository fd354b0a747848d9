package fulltext

import (
	"fmt"
	"path"
	"strings"

	"github.com/starford/muninn/internal/models"
)

// Hit is one content search result.
type Hit struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Upsert replaces the mirrored body and outgoing links of a file.
// Files without extracted content are mirrored with an empty body so that
// path matches still work.
func (db *DB) Upsert(f models.IndexedFile) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("fulltext: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	body := ""
	if f.Content != nil {
		body = *f.Content
	}
	tags := strings.Join(f.Tags, " ")

	_, err = tx.Exec(`
		INSERT INTO files (path, title, tags, body)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title = excluded.title,
			tags  = excluded.tags,
			body  = excluded.body
	`, f.Path, f.Title, tags, body)
	if err != nil {
		return fmt.Errorf("fulltext: upsert file: %w", err)
	}

	if err := ftsUpsert(tx, f.Path, f.Title, body, tags); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM links WHERE source = ?`, f.Path); err != nil {
		return fmt.Errorf("fulltext: clear links: %w", err)
	}
	if len(f.Links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, target, raw) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("fulltext: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, raw := range f.Links {
			if _, err := stmt.Exec(f.Path, LinkTarget(raw), raw); err != nil {
				return fmt.Errorf("fulltext: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// Delete removes a file and its outgoing links.
func (db *DB) Delete(p string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("fulltext: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsDelete(tx, p); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM links WHERE source = ?`, p); err != nil {
		return fmt.Errorf("fulltext: delete links: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM files WHERE path = ?`, p); err != nil {
		return fmt.Errorf("fulltext: delete file: %w", err)
	}
	return tx.Commit()
}

// Reset drops every mirrored row. Called when the index is rebuilt.
func (db *DB) Reset() error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("fulltext: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsReset(tx); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM links`); err != nil {
		return fmt.Errorf("fulltext: reset links: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM files`); err != nil {
		return fmt.Errorf("fulltext: reset files: %w", err)
	}
	return tx.Commit()
}

// Count returns the number of mirrored files.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM files`).Scan(&n); err != nil {
		return 0, fmt.Errorf("fulltext: count: %w", err)
	}
	return n, nil
}

// Backlinks returns the paths of files linking to the file at p. A link
// matches when its target equals the path, the path without extension, or
// the bare note name.
func (db *DB) Backlinks(p string) ([]string, error) {
	stem := strings.TrimSuffix(p, path.Ext(p))
	base := path.Base(stem)
	rows, err := db.conn.Query(`
		SELECT DISTINCT source FROM links
		WHERE target IN (?, ?, ?) AND source != ?
		ORDER BY source
	`, p, stem, base, p)
	if err != nil {
		return nil, fmt.Errorf("fulltext: backlinks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// LinkTarget strips the alias and heading suffixes of a raw wikilink.
func LinkTarget(raw string) string {
	t := raw
	if i := strings.Index(t, "|"); i >= 0 {
		t = t[:i]
	}
	if i := strings.Index(t, "#"); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}
