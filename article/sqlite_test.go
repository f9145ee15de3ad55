package article

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "articles.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestArticle(title string, status Status, at time.Time) *Article {
	a := &Article{
		Title:    title,
		Slug:     Slugify(title),
		Content:  "<p>Isi artikel " + title + "</p>",
		Excerpt:  "Ringkasan " + title,
		Author:   "Admin",
		Keywords: []string{"go", "web"},
		Images:   []string{"/media/article-images/1-a.jpg"},
		Status:   status,
	}
	a.Prepare(at)
	return a
}

func TestSQLiteCreateAndGet(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	a := newTestArticle("Panduan ERP", StatusPublished, now)
	require.NoError(t, s.Create(ctx, a))

	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Title, got.Title)
	assert.Equal(t, "panduan-erp", got.Slug)
	assert.Equal(t, []string{"go", "web"}, got.Keywords)
	assert.Equal(t, []string{"/media/article-images/1-a.jpg"}, got.Images)
	assert.Equal(t, StatusPublished, got.Status)
	require.NotNil(t, got.PublishedAt)
	assert.True(t, got.PublishedAt.Equal(now))
	assert.True(t, got.CreatedAt.Equal(now))

	bySlug, err := s.GetBySlug(ctx, "panduan-erp")
	require.NoError(t, err)
	assert.Equal(t, a.ID, bySlug.ID)
}

func TestSQLiteGetMissing(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetBySlug(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteListPublishedOrder(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	older := newTestArticle("Older", StatusPublished, base)
	newer := newTestArticle("Newer", StatusPublished, base.Add(24*time.Hour))
	draft := newTestArticle("Draft", StatusDraft, base.Add(48*time.Hour))
	for _, a := range []*Article{older, draft, newer} {
		require.NoError(t, s.Create(ctx, a))
	}

	published, err := s.List(ctx, Filter{Status: StatusPublished})
	require.NoError(t, err)
	require.Len(t, published, 2)
	assert.Equal(t, "Newer", published[0].Title)
	assert.Equal(t, "Older", published[1].Title)

	all, err := s.List(ctx, Filter{Order: OrderUpdated})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Draft", all[0].Title)

	limited, err := s.List(ctx, Filter{Order: OrderUpdated, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLiteUpdate(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	a := newTestArticle("Draft Pertama", StatusDraft, now)
	require.NoError(t, s.Create(ctx, a))

	a.Title = "Sudah Terbit"
	a.Status = StatusPublished
	a.Prepare(now.Add(time.Hour))
	require.NoError(t, s.Update(ctx, a))

	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sudah Terbit", got.Title)
	assert.True(t, got.Published())
	require.NotNil(t, got.PublishedAt)
	assert.True(t, got.UpdatedAt.Equal(now.Add(time.Hour)))

	missing := *a
	missing.ID = "missing"
	assert.ErrorIs(t, s.Update(ctx, &missing), ErrNotFound)
}

func TestSQLiteDuplicateSlug(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newTestArticle("Same", StatusDraft, time.Now())))
	err := s.Create(ctx, newTestArticle("Same", StatusDraft, time.Now()))
	assert.ErrorIs(t, err, ErrSlugTaken)
}

func TestSQLiteDelete(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	a := newTestArticle("Hapus", StatusDraft, time.Now())
	require.NoError(t, s.Create(ctx, a))
	require.NoError(t, s.Delete(ctx, a.ID))
	_, err := s.Get(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, a.ID), ErrNotFound)
}

func TestUniqueSlug(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	first := newTestArticle("Berita", StatusDraft, time.Now())
	require.NoError(t, s.Create(ctx, first))

	slug, err := UniqueSlug(ctx, s, "berita", "")
	require.NoError(t, err)
	assert.Equal(t, "berita-2", slug)

	second := newTestArticle("Berita", StatusDraft, time.Now())
	second.Slug = slug
	require.NoError(t, s.Create(ctx, second))

	slug, err = UniqueSlug(ctx, s, "berita", "")
	require.NoError(t, err)
	assert.Equal(t, "berita-3", slug)

	// an article keeps its own slug on edit
	slug, err = UniqueSlug(ctx, s, "berita", first.ID)
	require.NoError(t, err)
	assert.Equal(t, "berita", slug)
}
