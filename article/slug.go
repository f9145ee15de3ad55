package article

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slugify derives a URL slug from a title: diacritics folded to ASCII,
// lowercased, characters other than letters, digits, underscores and
// whitespace dropped, whitespace runs replaced by a single hyphen.
func Slugify(title string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), title)
	if err != nil {
		folded = title
	}
	folded = strings.ToLower(strings.TrimSpace(folded))

	var b strings.Builder
	space := false
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			if space && b.Len() > 0 {
				b.WriteByte('-')
			}
			space = false
			b.WriteRune(r)
		case unicode.IsSpace(r), r == '-':
			space = true
		}
	}
	return b.String()
}

const maxSlugAttempts = 100

// UniqueSlug returns base, or base suffixed with -2, -3, ... when base is
// already held by an article other than excludeID.
func UniqueSlug(ctx context.Context, repo Repository, base, excludeID string) (string, error) {
	candidate := base
	for i := 2; i <= maxSlugAttempts+1; i++ {
		taken, err := repo.SlugExists(ctx, candidate, excludeID)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", fmt.Errorf("%w: %s", ErrSlugTaken, base)
}
