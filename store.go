package pubnotion

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/eringen/pubnotion/content"
)

// Store is a SQLite snapshot of the last content fetched successfully. It is
// read when the content source is unavailable.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and creates the schema.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
		PRAGMA mmap_size=268435456;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS posts (
    slug TEXT PRIMARY KEY,
    position INTEGER NOT NULL,
    summary TEXT NOT NULL,
    body TEXT,
    fetched_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    fetched_at TEXT NOT NULL
);
`)
	return err
}

// ReplacePosts swaps the stored listing for posts, keeping their order.
// Bodies already stored for slugs that are still listed are kept.
func (s *Store) ReplacePosts(ctx context.Context, posts []content.Post) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `CREATE TEMP TABLE IF NOT EXISTS keep (slug TEXT PRIMARY KEY)`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM keep`); err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for i, p := range posts {
		p.Body = nil
		summary, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode post %s: %w", p.Slug, err)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO posts (slug, position, summary, fetched_at) VALUES (?, ?, ?, ?)
ON CONFLICT(slug) DO UPDATE SET position = excluded.position, summary = excluded.summary, fetched_at = excluded.fetched_at`,
			p.Slug, i, string(summary), now); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO keep (slug) VALUES (?)`, p.Slug); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE slug NOT IN (SELECT slug FROM keep)`); err != nil {
		return err
	}
	return tx.Commit()
}

// ListPosts returns the stored listing in its original order, without bodies.
func (s *Store) ListPosts(ctx context.Context) ([]content.Post, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT summary FROM posts ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []content.Post
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var p content.Post
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("decode stored post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// SavePost stores a fully loaded post, body included.
func (s *Store) SavePost(ctx context.Context, p content.Post) error {
	body, err := json.Marshal(p.Body)
	if err != nil {
		return fmt.Errorf("encode body %s: %w", p.Slug, err)
	}
	summaryPost := p
	summaryPost.Body = nil
	summary, err := json.Marshal(summaryPost)
	if err != nil {
		return fmt.Errorf("encode post %s: %w", p.Slug, err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO posts (slug, position, summary, body, fetched_at)
VALUES (?, (SELECT COALESCE(MAX(position), -1) + 1 FROM posts), ?, ?, ?)
ON CONFLICT(slug) DO UPDATE SET summary = excluded.summary, body = excluded.body, fetched_at = excluded.fetched_at`,
		p.Slug, string(summary), string(body), time.Now().UTC().Format(time.RFC3339))
	return err
}

// GetPost returns a stored post with its body. It returns ErrNotFound when
// the slug is unknown or its body was never stored.
func (s *Store) GetPost(ctx context.Context, slug string) (content.Post, error) {
	var summary string
	var body sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT summary, body FROM posts WHERE slug = ?`, slug).Scan(&summary, &body)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !body.Valid) {
		return content.Post{}, ErrNotFound
	}
	if err != nil {
		return content.Post{}, err
	}
	var p content.Post
	if err := json.Unmarshal([]byte(summary), &p); err != nil {
		return content.Post{}, fmt.Errorf("decode stored post: %w", err)
	}
	if err := json.Unmarshal([]byte(body.String), &p.Body); err != nil {
		return content.Post{}, fmt.Errorf("decode stored body: %w", err)
	}
	return p, nil
}

// SaveSiteConfig stores the resolved site configuration.
func (s *Store) SaveSiteConfig(ctx context.Context, cfg content.SiteConfig) error {
	return s.saveSetting(ctx, keySiteConfig, cfg)
}

// LoadSiteConfig returns the stored site configuration or ErrNotFound.
func (s *Store) LoadSiteConfig(ctx context.Context) (content.SiteConfig, error) {
	var cfg content.SiteConfig
	err := s.loadSetting(ctx, keySiteConfig, &cfg)
	return cfg, err
}

// SaveAbout stores the about page.
func (s *Store) SaveAbout(ctx context.Context, about content.AboutPage) error {
	return s.saveSetting(ctx, keyAbout, about)
}

// LoadAbout returns the stored about page or ErrNotFound.
func (s *Store) LoadAbout(ctx context.Context) (content.AboutPage, error) {
	var about content.AboutPage
	err := s.loadSetting(ctx, keyAbout, &about)
	return about, err
}

func (s *Store) saveSetting(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO settings (key, value, fetched_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, fetched_at = excluded.fetched_at`,
		key, string(raw), time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *Store) loadSetting(ctx context.Context, key string, dst any) error {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
