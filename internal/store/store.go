// Package store keeps a searchable copy of every loaded site's navigation
// entries in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dgallion1/doxnav/internal/navtree"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	site       TEXT    NOT NULL,
	seq        INTEGER NOT NULL,
	title      TEXT    NOT NULL,
	url        TEXT    NOT NULL,
	breadcrumb TEXT    NOT NULL,
	depth      INTEGER NOT NULL,
	external   INTEGER NOT NULL,
	PRIMARY KEY (site, seq)
);
CREATE INDEX IF NOT EXISTS entries_title ON entries (site, title);
`

// Entry is one tree node flattened for search.
type Entry struct {
	Seq        int    `json:"seq"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Breadcrumb string `json:"breadcrumb"`
	Depth      int    `json:"depth"`
	External   bool   `json:"external"`
}

// Entries flattens an expanded tree in depth-first order.
func Entries(nodes []*navtree.Node) []Entry {
	var out []Entry
	navtree.Walk(nodes, func(v navtree.Visit) error {
		out = append(out, Entry{
			Seq:        len(out),
			Title:      v.Node.Title,
			URL:        v.Node.URL(),
			Breadcrumb: v.Trail(),
			Depth:      v.Depth(),
			External:   v.Node.IsExternal(),
		})
		return nil
	})
	return out
}

type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index db: %w", err)
	}
	// one connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set synchronous: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Replace swaps the stored entries of site for entries in one transaction.
func (s *Store) Replace(ctx context.Context, site string, entries []Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE site = ?", site); err != nil {
		return fmt.Errorf("clear %s: %w", site, err)
	}
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO entries (site, seq, title, url, breadcrumb, depth, external) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, site, e.Seq, e.Title, e.URL, e.Breadcrumb, e.Depth, e.External); err != nil {
			return fmt.Errorf("insert %q: %w", e.Title, err)
		}
	}
	return tx.Commit()
}

// Remove deletes every entry of site.
func (s *Store) Remove(ctx context.Context, site string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE site = ?", site); err != nil {
		return fmt.Errorf("remove %s: %w", site, err)
	}
	return nil
}

// Search returns entries of site whose title contains q, case-insensitively
// for ASCII. Exact title matches come first, then tree order.
func (s *Store) Search(ctx context.Context, site, q string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, title, url, breadcrumb, depth, external
		FROM entries
		WHERE site = ? AND title LIKE ? ESCAPE '\'
		ORDER BY (lower(title) = lower(?)) DESC, seq
		LIMIT ?`,
		site, "%"+escapeLike(q)+"%", q, limit)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", site, err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Seq, &e.Title, &e.URL, &e.Breadcrumb, &e.Depth, &e.External); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Count returns the number of entries stored for site.
func (s *Store) Count(ctx context.Context, site string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM entries WHERE site = ?", site).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", site, err)
	}
	return n, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
