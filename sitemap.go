package antlia

import (
	"encoding/xml"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/antlia/antlia/article"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

func (a *App) renderSitemap(c echo.Context, list []article.Article) error {
	base := a.Config.URL
	var urls []sitemapURL
	for _, p := range a.Catalog.Pages() {
		urls = append(urls, sitemapURL{Loc: BuildURL(base, p)})
	}
	for _, art := range list {
		urls = append(urls, sitemapURL{
			Loc:     BuildURL(base, "artikel", art.Slug),
			LastMod: art.UpdatedAt.Format("2006-01-02"),
		})
	}
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(sitemap)
}
