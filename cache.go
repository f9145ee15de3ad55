package antlia

import (
	"context"
	"sync"
	"time"

	"github.com/antlia/antlia/article"
)

// ArticleCache is an in-memory cache of published articles with TTL.
type ArticleCache struct {
	mu       sync.RWMutex
	articles []article.Article
	fetched  time.Time
	ttl      time.Duration
	repo     article.Repository
}

// NewArticleCache creates an ArticleCache backed by repo.
func NewArticleCache(repo article.Repository, ttl time.Duration) *ArticleCache {
	return &ArticleCache{repo: repo, ttl: ttl}
}

func (c *ArticleCache) valid() bool {
	return c.articles != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *ArticleCache) Invalidate() {
	c.mu.Lock()
	c.articles = nil
	c.mu.Unlock()
}

func (c *ArticleCache) load(ctx context.Context) error {
	if c.valid() {
		return nil
	}
	list, err := c.repo.List(ctx, article.Filter{Status: article.StatusPublished, Order: article.OrderPublished})
	if err != nil {
		return err
	}
	if list == nil {
		list = []article.Article{}
	}
	c.articles = list
	c.fetched = time.Now()
	return nil
}

// ensureLoaded returns the cached articles after ensuring the cache is fresh.
// It tries a read lock first; only takes a write lock if a reload is needed.
func (c *ArticleCache) ensureLoaded(ctx context.Context) ([]article.Article, error) {
	c.mu.RLock()
	if c.valid() {
		list := c.articles
		c.mu.RUnlock()
		return list, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(ctx); err != nil {
		return nil, err
	}
	return c.articles, nil
}

// List returns published articles, newest first, matching query over
// title, excerpt and keywords.
func (c *ArticleCache) List(ctx context.Context, query string) ([]article.Article, error) {
	list, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	if query == "" {
		return list, nil
	}
	var filtered []article.Article
	for _, a := range list {
		if a.Matches(query) {
			filtered = append(filtered, a)
		}
	}
	return filtered, nil
}

// Latest returns at most n published articles.
func (c *ArticleCache) Latest(ctx context.Context, n int) ([]article.Article, error) {
	list, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	return list[:min(n, len(list))], nil
}

// Get returns a single published article by slug from the cache.
func (c *ArticleCache) Get(ctx context.Context, slug string) (article.Article, error) {
	list, err := c.ensureLoaded(ctx)
	if err != nil {
		return article.Article{}, err
	}
	for _, a := range list {
		if a.Slug == slug {
			return a, nil
		}
	}
	return article.Article{}, article.ErrNotFound
}
