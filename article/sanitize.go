package article

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	ugcOnce   sync.Once
	ugcPolicy *bluemonday.Policy

	stripPolicy = bluemonday.StrictPolicy()
)

func policy() *bluemonday.Policy {
	ugcOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		p.AllowAttrs("class").OnElements("p", "span", "pre", "code", "blockquote", "img", "figure")
		p.AllowStyles("text-align").MatchingEnum("left", "right", "center", "justify").OnElements("p", "h1", "h2", "h3")
		p.RequireNoFollowOnLinks(true)
		p.AddTargetBlankToFullyQualifiedLinks(true)
		ugcPolicy = p
	})
	return ugcPolicy
}

// SanitizeHTML strips scripts, event handlers and other unsafe markup from
// editor output while keeping formatting, links and images.
func SanitizeHTML(s string) string {
	return policy().Sanitize(s)
}

// StripTags returns the text content of an HTML fragment.
func StripTags(s string) string {
	return strings.TrimSpace(html.UnescapeString(stripPolicy.Sanitize(s)))
}

// Summarize returns an excerpt of at most n runes from an HTML body,
// cut at a word boundary.
func Summarize(body string, n int) string {
	text := strings.Join(strings.Fields(StripTags(body)), " ")
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	cut := string(r[:n])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut + "…"
}
