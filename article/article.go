// Package article holds the article content type, its persistence
// backends and the helpers the back-office uses to prepare articles for
// storage.
package article

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Status is the publication state of an article.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// ParseStatus maps a form value onto a Status, defaulting to draft.
func ParseStatus(s string) Status {
	if Status(strings.ToLower(strings.TrimSpace(s))) == StatusPublished {
		return StatusPublished
	}
	return StatusDraft
}

var (
	ErrNotFound  = errors.New("article: not found")
	ErrSlugTaken = errors.New("article: slug already in use")
	ErrInvalid   = errors.New("article: invalid article")
)

// Article is a rich-text post authored in the back-office.
type Article struct {
	ID          string
	Title       string
	Slug        string
	Content     string // sanitized HTML
	Excerpt     string
	Author      string
	AuthorEmail string
	Category    string
	Keywords    []string
	CoverImage  string
	Images      []string
	ReadingTime int // minutes, 0 when unknown
	Status      Status
	PublishedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Published reports whether the article is publicly visible.
func (a Article) Published() bool {
	return a.Status == StatusPublished
}

// Link is the public path of the article.
func (a Article) Link() string {
	return "/artikel/" + a.Slug + "/"
}

// Date returns the publish date (or creation date for drafts) as YYYY-MM-DD.
func (a Article) Date() string {
	if a.PublishedAt != nil {
		return a.PublishedAt.Format("2006-01-02")
	}
	return a.CreatedAt.Format("2006-01-02")
}

// Matches reports whether the article matches a free-text query over title,
// excerpt and keywords. An empty query matches everything.
func (a Article) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(a.Title), q) || strings.Contains(strings.ToLower(a.Excerpt), q) {
		return true
	}
	for _, k := range a.Keywords {
		if strings.Contains(strings.ToLower(k), q) {
			return true
		}
	}
	return false
}

// Order selects the sort column of a listing.
type Order int

const (
	// OrderPublished sorts by published_at descending (public listings).
	OrderPublished Order = iota
	// OrderUpdated sorts by updated_at descending (back-office listings).
	OrderUpdated
)

// Filter narrows a List call. The zero value lists every article by
// publish date.
type Filter struct {
	Status Status // empty means any status
	Order  Order
	Limit  int // 0 means no limit
}

// Repository is implemented by every article backend.
type Repository interface {
	List(ctx context.Context, f Filter) ([]Article, error)
	Get(ctx context.Context, id string) (Article, error)
	GetBySlug(ctx context.Context, slug string) (Article, error)
	Create(ctx context.Context, a *Article) error
	Update(ctx context.Context, a *Article) error
	Delete(ctx context.Context, id string) error
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	Close() error
}

const (
	maxTitleLen   = 200
	maxExcerptLen = 500
	wordsPerMin   = 200
)

// Validate checks the required fields of a.
func (a *Article) Validate() error {
	switch {
	case strings.TrimSpace(a.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalid)
	case utf8.RuneCountInString(a.Title) > maxTitleLen:
		return fmt.Errorf("%w: title exceeds %d characters", ErrInvalid, maxTitleLen)
	case strings.TrimSpace(a.Slug) == "":
		return fmt.Errorf("%w: slug is required", ErrInvalid)
	case strings.TrimSpace(a.Content) == "":
		return fmt.Errorf("%w: content is required", ErrInvalid)
	case strings.TrimSpace(a.Author) == "":
		return fmt.Errorf("%w: author is required", ErrInvalid)
	case utf8.RuneCountInString(a.Excerpt) > maxExcerptLen:
		return fmt.Errorf("%w: excerpt exceeds %d characters", ErrInvalid, maxExcerptLen)
	}
	return nil
}

// Prepare fills derived fields before a write: id, timestamps and the
// published_at stamp on the first transition to published.
func (a *Article) Prepare(now time.Time) {
	now = now.UTC()
	if a.ID == "" {
		a.ID = uuid.NewString()
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	if a.Status == "" {
		a.Status = StatusDraft
	}
	if a.Status == StatusPublished && a.PublishedAt == nil {
		a.PublishedAt = &now
	}
	if a.ReadingTime == 0 {
		a.ReadingTime = EstimateReadingTime(a.Content)
	}
	a.Keywords = normalizeKeywords(a.Keywords)
}

// EstimateReadingTime returns the reading time in whole minutes of an HTML
// body, rounded up, at 200 words per minute.
func EstimateReadingTime(html string) int {
	words := len(strings.Fields(StripTags(html)))
	if words == 0 {
		return 0
	}
	return (words + wordsPerMin - 1) / wordsPerMin
}

// ParseKeywords splits a comma separated keyword field.
func ParseKeywords(s string) []string {
	return normalizeKeywords(strings.Split(s, ","))
}

func normalizeKeywords(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, k := range in {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		key := strings.ToLower(k)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, k)
	}
	return out
}

// Stats summarises the article collection for the back-office dashboard.
type Stats struct {
	Total              int
	Published          int
	Drafts             int
	UniqueAuthors      int
	PublishedThisMonth int
	Recent             []Article
}

const recentCount = 5

// ComputeStats derives dashboard statistics from every stored article.
func ComputeStats(all []Article, now time.Time) Stats {
	st := Stats{Total: len(all)}
	authors := make(map[string]struct{})
	for _, a := range all {
		if a.Published() {
			st.Published++
			if a.PublishedAt != nil && a.PublishedAt.Year() == now.Year() && a.PublishedAt.Month() == now.Month() {
				st.PublishedThisMonth++
			}
		} else {
			st.Drafts++
		}
		if name := strings.TrimSpace(a.Author); name != "" {
			authors[strings.ToLower(name)] = struct{}{}
		}
	}
	st.UniqueAuthors = len(authors)

	recent := make([]Article, len(all))
	copy(recent, all)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].UpdatedAt.After(recent[j].UpdatedAt)
	})
	if len(recent) > recentCount {
		recent = recent[:recentCount]
	}
	st.Recent = recent
	return st
}
