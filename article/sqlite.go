package article

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var _ Repository = (*SQLiteStore)(nil)

// SQLiteStore keeps articles in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the SQLite database at path, ensures the
// data directory exists, and creates the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets the public site read while the back-office writes; writers
	// wait on busy instead of failing.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &SQLiteStore{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS articles (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    slug TEXT NOT NULL UNIQUE,
    content TEXT NOT NULL,
    excerpt TEXT NOT NULL DEFAULT '',
    author TEXT NOT NULL,
    author_email TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    keywords TEXT NOT NULL DEFAULT '[]',
    cover_image TEXT NOT NULL DEFAULT '',
    images TEXT NOT NULL DEFAULT '[]',
    reading_time INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'draft',
    published_at TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_articles_status_published ON articles(status, published_at);
CREATE INDEX IF NOT EXISTS idx_articles_updated ON articles(updated_at);
`)
	return err
}

const sqliteColumns = `id, title, slug, content, excerpt, author, author_email, category, keywords, cover_image, images, reading_time, status, published_at, created_at, updated_at`

// List returns articles matching f.
func (s *SQLiteStore) List(ctx context.Context, f Filter) ([]Article, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	q := `SELECT ` + sqliteColumns + ` FROM articles`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	if f.Order == OrderUpdated {
		q += " ORDER BY updated_at DESC"
	} else {
		q += " ORDER BY published_at IS NULL, published_at DESC, created_at DESC"
	}
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Article
	for rows.Next() {
		a, err := scanSQLite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Get returns an article by id regardless of status.
func (s *SQLiteStore) Get(ctx context.Context, id string) (Article, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM articles WHERE id = ?`, id)
	return scanSQLiteRow(row)
}

// GetBySlug returns an article by slug regardless of status.
func (s *SQLiteStore) GetBySlug(ctx context.Context, slug string) (Article, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM articles WHERE slug = ?`, slug)
	return scanSQLiteRow(row)
}

// Create inserts a new article.
func (s *SQLiteStore) Create(ctx context.Context, a *Article) error {
	kw, imgs, err := encodeLists(a)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO articles (`+sqliteColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Title, a.Slug, a.Content, a.Excerpt, a.Author, a.AuthorEmail, a.Category, kw, a.CoverImage, imgs,
		a.ReadingTime, string(a.Status), formatNullTime(a.PublishedAt), formatTime(a.CreatedAt), formatTime(a.UpdatedAt))
	return mapSQLiteErr(err)
}

// Update overwrites every mutable column of an existing article.
func (s *SQLiteStore) Update(ctx context.Context, a *Article) error {
	kw, imgs, err := encodeLists(a)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE articles SET title = ?, slug = ?, content = ?, excerpt = ?, author = ?, author_email = ?,
		category = ?, keywords = ?, cover_image = ?, images = ?, reading_time = ?, status = ?, published_at = ?, updated_at = ?
		WHERE id = ?`,
		a.Title, a.Slug, a.Content, a.Excerpt, a.Author, a.AuthorEmail, a.Category, kw, a.CoverImage, imgs,
		a.ReadingTime, string(a.Status), formatNullTime(a.PublishedAt), formatTime(a.UpdatedAt), a.ID)
	if err != nil {
		return mapSQLiteErr(err)
	}
	return requireAffected(res)
}

// Delete removes an article by id.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// SlugExists reports whether slug is used by an article other than excludeID.
func (s *SQLiteStore) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM articles WHERE slug = ? AND id <> ?`, slug, excludeID).Scan(&n)
	return n > 0, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRow(row *sql.Row) (Article, error) {
	a, err := scanSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Article{}, ErrNotFound
	}
	return a, err
}

func scanSQLite(sc scanner) (Article, error) {
	var (
		a                Article
		status, kw, imgs string
		published        sql.NullString
		created, updated string
	)
	if err := sc.Scan(&a.ID, &a.Title, &a.Slug, &a.Content, &a.Excerpt, &a.Author, &a.AuthorEmail, &a.Category,
		&kw, &a.CoverImage, &imgs, &a.ReadingTime, &status, &published, &created, &updated); err != nil {
		return Article{}, err
	}
	a.Status = Status(status)
	if err := json.Unmarshal([]byte(kw), &a.Keywords); err != nil {
		return Article{}, fmt.Errorf("decode keywords of %s: %w", a.ID, err)
	}
	if err := json.Unmarshal([]byte(imgs), &a.Images); err != nil {
		return Article{}, fmt.Errorf("decode images of %s: %w", a.ID, err)
	}
	a.CreatedAt = parseTime(created)
	a.UpdatedAt = parseTime(updated)
	if published.Valid && published.String != "" {
		t := parseTime(published.String)
		a.PublishedAt = &t
	}
	return a, nil
}

func encodeLists(a *Article) (string, string, error) {
	kw := a.Keywords
	if kw == nil {
		kw = []string{}
	}
	imgs := a.Images
	if imgs == nil {
		imgs = []string{}
	}
	kb, err := json.Marshal(kw)
	if err != nil {
		return "", "", err
	}
	ib, err := json.Marshal(imgs)
	if err != nil {
		return "", "", err
	}
	return string(kb), string(ib), nil
}

// timeLayout is fixed width so text comparison orders like time.
const timeLayout = "2006-01-02T15:04:05.000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func mapSQLiteErr(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(strings.ToLower(err.Error()), "unique constraint failed: articles.slug") {
		return ErrSlugTaken
	}
	return err
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
