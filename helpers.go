package antlia

import (
	"encoding/json"
	"net/url"
	"path"
	"strings"

	"github.com/antlia/antlia/article"
	"github.com/antlia/antlia/site"
)

// BuildURL joins a base URL with path segments, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// RelatedArticles returns up to limit published articles sharing the
// category or a keyword with current.
func RelatedArticles(current article.Article, list []article.Article, limit int) []article.Article {
	keywords := make(map[string]struct{}, len(current.Keywords))
	for _, k := range current.Keywords {
		keywords[strings.ToLower(k)] = struct{}{}
	}
	var related []article.Article
	for _, a := range list {
		if a.ID == current.ID {
			continue
		}
		if len(related) == limit {
			break
		}
		if current.Category != "" && strings.EqualFold(a.Category, current.Category) {
			related = append(related, a)
			continue
		}
		for _, k := range a.Keywords {
			if _, ok := keywords[strings.ToLower(k)]; ok {
				related = append(related, a)
				break
			}
		}
	}
	return related
}

// OrganizationJsonLD returns a JSON-LD string for the Organization schema.
func OrganizationJsonLD(cfg SiteConfig, catalog *site.Catalog) string {
	data := map[string]any{
		"@context":    "https://schema.org",
		"@type":       "Organization",
		"name":        cfg.Name,
		"url":         BuildURL(cfg.URL),
		"description": cfg.Description,
	}
	if catalog != nil {
		if catalog.Company.LegalName != "" {
			data["legalName"] = catalog.Company.LegalName
		}
		if len(catalog.Company.Phones) > 0 {
			data["telephone"] = catalog.Company.Phones[0].Number
		}
		if len(catalog.Company.Emails) > 0 {
			data["email"] = catalog.Company.Emails[0].Address
		}
		if len(catalog.Company.Address) > 0 {
			data["address"] = strings.Join(catalog.Company.Address, ", ")
		}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// ArticleJsonLD returns a JSON-LD string for the Article schema.
func ArticleJsonLD(a article.Article, cfg SiteConfig) string {
	articleURL := BuildURL(cfg.URL, "artikel", a.Slug)
	data := map[string]any{
		"@context":      "https://schema.org",
		"@type":         "Article",
		"headline":      a.Title,
		"description":   a.Excerpt,
		"datePublished": a.Date(),
		"dateModified":  a.UpdatedAt.Format("2006-01-02"),
		"url":           articleURL,
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   articleURL,
		},
		"publisher": map[string]string{
			"@type": "Organization",
			"name":  cfg.Name,
		},
	}
	if a.Author != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  a.Author,
		}
	}
	if a.CoverImage != "" {
		data["image"] = a.CoverImage
	}
	if len(a.Keywords) > 0 {
		data["keywords"] = strings.Join(a.Keywords, ", ")
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}
