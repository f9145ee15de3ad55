package antlia

import (
	"strings"

	"github.com/antlia/antlia/article"
	"github.com/antlia/antlia/contact"
	"github.com/antlia/antlia/site"
)

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string
	JSONLD      string
}

// Flash is a one-shot back-office notification.
type Flash struct {
	Kind    string // "success" or "error"
	Message string
}

// Page is the context shared by every rendered page.
type Page struct {
	Meta     PageMeta
	Path     string
	Site     *site.Catalog
	CSRF     string
	Admin    bool
	Flashes  []Flash
	WhatsApp string // chat link of the contact number
}

// Active reports whether the navigation entry at path is the current page.
func (p Page) Active(path string) bool {
	if path == "/" {
		return p.Path == "/"
	}
	return p.Path == path || strings.HasPrefix(p.Path, strings.TrimSuffix(path, "/")+"/")
}

// ContactForm is the contact page state: the submitted message and the
// validation error, if any.
type ContactForm struct {
	Message contact.Message
	Error   string
}

// ArticleForm is the back-office editor state.
type ArticleForm struct {
	Article  article.Article
	Keywords string
	Error    string
	IsNew    bool
}

// Action is the form target of the editor.
func (f ArticleForm) Action() string {
	if f.IsNew {
		return "/admin/articles/"
	}
	return "/admin/articles/" + f.Article.ID + "/"
}
