package article

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

var _ Repository = (*PostgresStore)(nil)

// PostgresStore keeps articles in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn and verifies the connection.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Migrate applies pending schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()

	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return fmt.Errorf("migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, r := range results {
		logger.Info("migration applied", slog.String("source", r.Source.Path), slog.Duration("took", r.Duration))
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const pgColumns = `id::text, title, slug, content, excerpt, author, author_email, category, keywords, cover_image, images, reading_time, status, published_at, created_at, updated_at`

// List returns articles matching f.
func (s *PostgresStore) List(ctx context.Context, f Filter) ([]Article, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	q := `SELECT ` + pgColumns + ` FROM articles`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	if f.Order == OrderUpdated {
		q += " ORDER BY updated_at DESC"
	} else {
		q += " ORDER BY published_at DESC NULLS LAST, created_at DESC"
	}
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Article
	for rows.Next() {
		a, err := scanPG(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Get returns an article by id regardless of status.
func (s *PostgresStore) Get(ctx context.Context, id string) (Article, error) {
	a, err := scanPG(s.pool.QueryRow(ctx, `SELECT `+pgColumns+` FROM articles WHERE id::text = $1`, id))
	return a, mapPGErr(err)
}

// GetBySlug returns an article by slug regardless of status.
func (s *PostgresStore) GetBySlug(ctx context.Context, slug string) (Article, error) {
	a, err := scanPG(s.pool.QueryRow(ctx, `SELECT `+pgColumns+` FROM articles WHERE slug = $1`, slug))
	return a, mapPGErr(err)
}

// Create inserts a new article.
func (s *PostgresStore) Create(ctx context.Context, a *Article) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO articles (id, title, slug, content, excerpt, author, author_email, category, keywords,
		cover_image, images, reading_time, status, published_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		a.ID, a.Title, a.Slug, a.Content, a.Excerpt, a.Author, a.AuthorEmail, a.Category, nonNil(a.Keywords),
		a.CoverImage, nonNil(a.Images), a.ReadingTime, string(a.Status), a.PublishedAt, a.CreatedAt, a.UpdatedAt)
	return mapPGErr(err)
}

// Update overwrites every mutable column of an existing article.
func (s *PostgresStore) Update(ctx context.Context, a *Article) error {
	tag, err := s.pool.Exec(ctx, `UPDATE articles SET title = $2, slug = $3, content = $4, excerpt = $5, author = $6,
		author_email = $7, category = $8, keywords = $9, cover_image = $10, images = $11, reading_time = $12,
		status = $13, published_at = $14, updated_at = $15
		WHERE id::text = $1`,
		a.ID, a.Title, a.Slug, a.Content, a.Excerpt, a.Author, a.AuthorEmail, a.Category, nonNil(a.Keywords),
		a.CoverImage, nonNil(a.Images), a.ReadingTime, string(a.Status), a.PublishedAt, a.UpdatedAt)
	if err != nil {
		return mapPGErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an article by id.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM articles WHERE id::text = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SlugExists reports whether slug is used by an article other than excludeID.
func (s *PostgresStore) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM articles WHERE slug = $1 AND id::text <> $2)`, slug, excludeID).Scan(&exists)
	return exists, err
}

func scanPG(row pgx.Row) (Article, error) {
	var (
		a      Article
		status string
	)
	err := row.Scan(&a.ID, &a.Title, &a.Slug, &a.Content, &a.Excerpt, &a.Author, &a.AuthorEmail, &a.Category,
		&a.Keywords, &a.CoverImage, &a.Images, &a.ReadingTime, &status, &a.PublishedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Article{}, err
	}
	a.Status = Status(status)
	return a, nil
}

func mapPGErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrSlugTaken
	}
	return err
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
