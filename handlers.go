package antlia

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/antlia/antlia/article"
	"github.com/antlia/antlia/site"
)

const (
	homeArticles    = 3
	relatedArticles = 3
)

func (a *App) handleHome(c echo.Context) error {
	latest, err := a.Cache.Latest(c.Request().Context(), homeArticles)
	if err != nil {
		return err
	}
	return Render(c, a.Views.Home(a.page(c, "", ""), latest))
}

func (a *App) handleProductsServices(c echo.Context) error {
	return Render(c, a.Views.ProductsServices(a.page(c, "Produk & Layanan", "")))
}

func (a *App) handleService(c echo.Context) error {
	svc, err := a.Catalog.Service(c.Param("slug"))
	if errors.Is(err, site.ErrUnknownService) {
		return a.notFound(c)
	}
	if err != nil {
		return err
	}
	return Render(c, a.Views.Service(a.page(c, svc.Name, svc.Summary), svc))
}

func (a *App) handleSolutions(c echo.Context) error {
	return Render(c, a.Views.Solutions(a.page(c, "Solusi", a.Catalog.Solutions.Intro)))
}

func (a *App) handleClients(c echo.Context) error {
	return Render(c, a.Views.Clients(a.page(c, "Klien", "")))
}

func (a *App) handleAbout(c echo.Context) error {
	return Render(c, a.Views.About(a.page(c, "Tentang Kami", a.Catalog.About.Vision)))
}

func (a *App) handleArticles(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	list, err := a.Cache.List(c.Request().Context(), query)
	if err != nil {
		return err
	}
	if c.Request().Header.Get("HX-Request") == "true" {
		return Render(c, a.Views.ArticleList(list, query))
	}
	return Render(c, a.Views.Articles(a.page(c, "Artikel", ""), list, query))
}

func (a *App) handleArticle(c echo.Context) error {
	ctx := c.Request().Context()
	art, err := a.Cache.Get(ctx, c.Param("slug"))
	if errors.Is(err, article.ErrNotFound) {
		return a.notFound(c)
	}
	if err != nil {
		return err
	}
	list, err := a.Cache.List(ctx, "")
	if err != nil {
		return err
	}
	p := a.page(c, art.Title, art.Excerpt)
	p.Meta.OGType = "article"
	p.Meta.Image = art.CoverImage
	p.Meta.JSONLD = ArticleJsonLD(art, a.Config)
	return Render(c, a.Views.Article(p, art, RelatedArticles(art, list, relatedArticles)))
}

func (a *App) handleSitemap(c echo.Context) error {
	list, err := a.Cache.List(c.Request().Context(), "")
	if err != nil {
		return err
	}
	return a.renderSitemap(c, list)
}

func (a *App) handleFeed(c echo.Context) error {
	list, err := a.Cache.List(c.Request().Context(), "")
	if err != nil {
		return err
	}
	return a.renderRSS(c, list)
}

func (a *App) handleRobots(c echo.Context) error {
	body := "User-agent: *\nAllow: /\nDisallow: /admin/\nDisallow: /api/\n\nSitemap: " + a.Config.URL + "/sitemap.xml\n"
	return c.String(http.StatusOK, body)
}

func (a *App) notFound(c echo.Context) error {
	return RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.page(c, "Halaman tidak ditemukan", "")))
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	if ok && he.Code == http.StatusNotFound {
		_ = a.notFound(c)
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		_ = RenderStatus(c, code, a.Views.ServerError(a.page(c, "Terjadi kesalahan", "")))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
