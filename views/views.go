// Package views is the default template set of the site. Pages are
// html/template files embedded in the binary and exposed to the App as
// templ components.
package views

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/a-h/templ"

	"github.com/antlia/antlia"
	"github.com/antlia/antlia/analytics"
	"github.com/antlia/antlia/article"
	"github.com/antlia/antlia/report"
	"github.com/antlia/antlia/site"
)

//go:embed templates/*.html
var files embed.FS

// shared holds the layout and the partials every page can use.
var shared = []string{"templates/layout.html", "templates/partials.html"}

// pageData is the template data of a full page. Only the fields a page
// needs are set.
type pageData struct {
	antlia.Page
	Latest    []article.Article
	Service   site.Offering
	Contact   antlia.ContactForm
	Articles  []article.Article
	Query     string
	Article   article.Article
	Related   []article.Article
	ShowError bool
	Stats     article.Stats
	Form      antlia.ArticleForm
	Snapshot  *report.Snapshot
}

type cardData struct {
	Type     analytics.ReportType
	Snapshot *report.Snapshot
}

type listData struct {
	Articles []article.Article
	Query    string
}

// Set is a parsed template set.
type Set struct {
	pages    map[string]*template.Template
	partials *template.Template
}

// Parse reads the layout, partials and pages from fsys.
func Parse(fsys fs.FS) (*Set, error) {
	base, err := template.New("").Funcs(funcs).ParseFS(fsys, shared...)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	names, err := fs.Glob(fsys, "templates/*.html")
	if err != nil {
		return nil, err
	}
	s := &Set{pages: make(map[string]*template.Template), partials: base}
	for _, name := range names {
		if name == shared[0] || name == shared[1] {
			continue
		}
		t, err := template.Must(base.Clone()).ParseFS(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		s.pages[strings.TrimSuffix(path.Base(name), ".html")] = t
	}
	return s, nil
}

// MustParse parses the embedded templates and panics on error.
func MustParse() *Set {
	s, err := Parse(files)
	if err != nil {
		panic(err)
	}
	return s
}

// page renders the named page inside the layout.
func (s *Set) page(name string, data pageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t, ok := s.pages[name]
		if !ok {
			return fmt.Errorf("views: unknown page %q", name)
		}
		return t.ExecuteTemplate(w, "layout", data)
	})
}

// fragment renders a partial without the layout.
func (s *Set) fragment(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return s.partials.ExecuteTemplate(w, name, data)
	})
}

// Views returns the ViewFuncs backed by s.
func (s *Set) Views() antlia.ViewFuncs {
	return antlia.ViewFuncs{
		Home: func(p antlia.Page, latest []article.Article) templ.Component {
			return s.page("home", pageData{Page: p, Latest: latest})
		},
		ProductsServices: func(p antlia.Page) templ.Component {
			return s.page("products", pageData{Page: p})
		},
		Service: func(p antlia.Page, svc site.Offering) templ.Component {
			return s.page("service", pageData{Page: p, Service: svc})
		},
		Solutions: func(p antlia.Page) templ.Component {
			return s.page("solutions", pageData{Page: p})
		},
		Clients: func(p antlia.Page) templ.Component {
			return s.page("clients", pageData{Page: p})
		},
		About: func(p antlia.Page) templ.Component {
			return s.page("about", pageData{Page: p})
		},
		Contact: func(p antlia.Page, form antlia.ContactForm) templ.Component {
			return s.page("contact", pageData{Page: p, Contact: form})
		},
		Articles: func(p antlia.Page, list []article.Article, query string) templ.Component {
			return s.page("articles", pageData{Page: p, Articles: list, Query: query})
		},
		ArticleList: func(list []article.Article, query string) templ.Component {
			return s.fragment("article-list", listData{Articles: list, Query: query})
		},
		Article: func(p antlia.Page, a article.Article, related []article.Article) templ.Component {
			return s.page("article", pageData{Page: p, Article: a, Related: related})
		},
		AdminLogin: func(p antlia.Page, showError bool) templ.Component {
			return s.page("admin_login", pageData{Page: p, ShowError: showError})
		},
		AdminDashboard: func(p antlia.Page, stats article.Stats) templ.Component {
			return s.page("admin_dashboard", pageData{Page: p, Stats: stats})
		},
		AdminArticles: func(p antlia.Page, list []article.Article) templ.Component {
			return s.page("admin_articles", pageData{Page: p, Articles: list})
		},
		AdminArticleForm: func(p antlia.Page, form antlia.ArticleForm) templ.Component {
			return s.page("admin_form", pageData{Page: p, Form: form})
		},
		AdminAnalytics: func(p antlia.Page, snap *report.Snapshot) templ.Component {
			return s.page("admin_analytics", pageData{Page: p, Snapshot: snap})
		},
		AnalyticsCard: func(t analytics.ReportType, snap *report.Snapshot) templ.Component {
			return s.fragment("analytics-card", cardData{Type: t, Snapshot: snap})
		},
		NotFound: func(p antlia.Page) templ.Component {
			return s.page("not_found", pageData{Page: p})
		},
		ServerError: func(p antlia.Page) templ.Component {
			return s.page("server_error", pageData{Page: p})
		},
	}
}

// Default returns the ViewFuncs of the embedded templates.
func Default() antlia.ViewFuncs {
	return MustParse().Views()
}
