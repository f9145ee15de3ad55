package article

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello-world"},
		{"  Transformasi Digital  UMKM ", "transformasi-digital-umkm"},
		{"Apa itu ERP?", "apa-itu-erp"},
		{"Café & Crème", "cafe-creme"},
		{"snake_case stays", "snake_case-stays"},
		{"already-hyphenated title", "already-hyphenated-title"},
		{"!!!", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, StatusPublished, ParseStatus("published"))
	assert.Equal(t, StatusPublished, ParseStatus(" Published "))
	assert.Equal(t, StatusDraft, ParseStatus("draft"))
	assert.Equal(t, StatusDraft, ParseStatus("archived"))
	assert.Equal(t, StatusDraft, ParseStatus(""))
}

func TestArticleMatches(t *testing.T) {
	a := Article{
		Title:    "Mengenal Sistem ERP",
		Excerpt:  "Panduan singkat untuk pemilik usaha",
		Keywords: []string{"erp", "Inventory"},
	}
	assert.True(t, a.Matches(""))
	assert.True(t, a.Matches("sistem"))
	assert.True(t, a.Matches("PEMILIK"))
	assert.True(t, a.Matches("inventory"))
	assert.False(t, a.Matches("payroll"))
}

func TestValidate(t *testing.T) {
	valid := Article{Title: "T", Slug: "t", Content: "<p>x</p>", Author: "Admin"}
	require.NoError(t, valid.Validate())

	missingTitle := valid
	missingTitle.Title = " "
	assert.ErrorIs(t, missingTitle.Validate(), ErrInvalid)

	missingAuthor := valid
	missingAuthor.Author = ""
	assert.ErrorIs(t, missingAuthor.Validate(), ErrInvalid)

	longTitle := valid
	longTitle.Title = strings.Repeat("a", maxTitleLen+1)
	assert.ErrorIs(t, longTitle.Validate(), ErrInvalid)
}

func TestPrepareStampsPublishOnce(t *testing.T) {
	now := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	a := Article{Title: "T", Content: "<p>satu dua tiga</p>", Status: StatusPublished}
	a.Prepare(now)

	require.NotEmpty(t, a.ID)
	assert.Equal(t, now, a.CreatedAt)
	assert.Equal(t, now, a.UpdatedAt)
	require.NotNil(t, a.PublishedAt)
	assert.Equal(t, now, *a.PublishedAt)
	assert.Equal(t, 1, a.ReadingTime)

	later := now.Add(48 * time.Hour)
	a.Prepare(later)
	assert.Equal(t, now, a.CreatedAt, "created_at must not move on update")
	assert.Equal(t, later, a.UpdatedAt)
	assert.Equal(t, now, *a.PublishedAt, "published_at must not move on update")
}

func TestPrepareDraftHasNoPublishDate(t *testing.T) {
	a := Article{Title: "T", Content: "x"}
	a.Prepare(time.Now())
	assert.Equal(t, StatusDraft, a.Status)
	assert.Nil(t, a.PublishedAt)
}

func TestEstimateReadingTime(t *testing.T) {
	assert.Equal(t, 0, EstimateReadingTime(""))
	assert.Equal(t, 1, EstimateReadingTime("<p>hello</p>"))
	body := "<p>" + strings.Repeat("kata ", 401) + "</p>"
	assert.Equal(t, 3, EstimateReadingTime(body))
}

func TestParseKeywords(t *testing.T) {
	got := ParseKeywords(" erp, CRM ,, erp , Cloud")
	assert.Equal(t, []string{"erp", "CRM", "Cloud"}, got)
	assert.Nil(t, ParseKeywords(" , "))
}

func TestSanitizeHTML(t *testing.T) {
	in := `<p onclick="x()">Hi <strong>there</strong><script>alert(1)</script></p><a href="https://example.com">l</a>`
	out := SanitizeHTML(in)
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "onclick")
	assert.Contains(t, out, "<strong>there</strong>")
	assert.Contains(t, out, `href="https://example.com"`)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "pendek", Summarize("<p>pendek</p>", 20))
	assert.Equal(t, "satu dua…", Summarize("<p>satu dua tiga empat</p>", 12))
}

func TestComputeStats(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	thisMonth := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	lastMonth := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)

	var all []Article
	for i := 0; i < 7; i++ {
		all = append(all, Article{
			ID:        string(rune('a' + i)),
			Author:    []string{"Budi", "budi ", "Sari"}[i%3],
			Status:    StatusDraft,
			UpdatedAt: now.Add(time.Duration(i) * time.Hour),
		})
	}
	all[0].Status, all[0].PublishedAt = StatusPublished, &thisMonth
	all[1].Status, all[1].PublishedAt = StatusPublished, &lastMonth
	all[2].Status, all[2].PublishedAt = StatusPublished, &thisMonth

	st := ComputeStats(all, now)
	assert.Equal(t, 7, st.Total)
	assert.Equal(t, 3, st.Published)
	assert.Equal(t, 4, st.Drafts)
	assert.Equal(t, 2, st.UniqueAuthors)
	assert.Equal(t, 2, st.PublishedThisMonth)
	require.Len(t, st.Recent, 5)
	assert.Equal(t, "g", st.Recent[0].ID)
	assert.Equal(t, "c", st.Recent[4].ID)
}

func TestComputeStatsEmpty(t *testing.T) {
	st := ComputeStats(nil, time.Now())
	assert.Zero(t, st.Total)
	assert.Empty(t, st.Recent)
}
