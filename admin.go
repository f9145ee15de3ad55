package antlia

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/antlia/antlia/article"
)

const excerptLength = 160

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return Render(c, a.Views.AdminLogin(a.page(c, "Masuk", ""), false))
	}
	all, err := a.Articles.List(c.Request().Context(), article.Filter{Order: article.OrderUpdated})
	if err != nil {
		return err
	}
	stats := article.ComputeStats(all, time.Now())
	return Render(c, a.Views.AdminDashboard(a.adminPage(c, "Dasbor"), stats))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Terlalu banyak percobaan masuk. Coba lagi nanti.")
	}
	if checkPassword(a.Config.AdminPassword, c.FormValue("password")) {
		if err := setAdminSession(c); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	a.loginLimiter.Record(ip)
	return RenderStatus(c, http.StatusUnauthorized, a.Views.AdminLogin(a.page(c, "Masuk", ""), true))
}

// checkPassword compares given against the configured password, which is
// either a bcrypt hash or plain text.
func checkPassword(configured, given string) bool {
	if isBcryptHash(configured) {
		return bcrypt.CompareHashAndPassword([]byte(configured), []byte(given)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(given), []byte(configured)) == 1
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) handleAdminArticles(c echo.Context) error {
	list, err := a.Articles.List(c.Request().Context(), article.Filter{Order: article.OrderUpdated})
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminArticles(a.adminPage(c, "Artikel"), list))
}

func (a *App) handleAdminNewArticle(c echo.Context) error {
	form := ArticleForm{IsNew: true, Article: article.Article{Status: article.StatusDraft}}
	return Render(c, a.Views.AdminArticleForm(a.adminPage(c, "Artikel baru"), form))
}

func (a *App) handleAdminEditArticle(c echo.Context) error {
	art, err := a.Articles.Get(c.Request().Context(), c.Param("id"))
	if errors.Is(err, article.ErrNotFound) {
		return a.notFound(c)
	}
	if err != nil {
		return err
	}
	form := ArticleForm{Article: art, Keywords: strings.Join(art.Keywords, ", ")}
	return Render(c, a.Views.AdminArticleForm(a.adminPage(c, "Ubah artikel"), form))
}

func (a *App) handleAdminCreateArticle(c echo.Context) error {
	art := article.Article{}
	bindArticle(c, &art)
	return a.saveArticle(c, &art, true)
}

func (a *App) handleAdminUpdateArticle(c echo.Context) error {
	ctx := c.Request().Context()
	art, err := a.Articles.Get(ctx, c.Param("id"))
	if errors.Is(err, article.ErrNotFound) {
		return a.notFound(c)
	}
	if err != nil {
		return err
	}
	bindArticle(c, &art)
	return a.saveArticle(c, &art, false)
}

// bindArticle copies the editor form into art.
func bindArticle(c echo.Context, art *article.Article) {
	art.Title = strings.TrimSpace(c.FormValue("title"))
	art.Slug = article.Slugify(strings.TrimSpace(c.FormValue("slug")))
	art.Content = article.SanitizeHTML(c.FormValue("content"))
	art.Excerpt = strings.TrimSpace(c.FormValue("excerpt"))
	art.Author = strings.TrimSpace(c.FormValue("author"))
	art.AuthorEmail = strings.TrimSpace(c.FormValue("author_email"))
	art.Category = strings.TrimSpace(c.FormValue("category"))
	art.Keywords = article.ParseKeywords(c.FormValue("keywords"))
	art.CoverImage = strings.TrimSpace(c.FormValue("cover_image"))
	art.Status = article.ParseStatus(c.FormValue("status"))
	art.ReadingTime = 0
	if c.Request().Form != nil {
		art.Images = article.ParseKeywords(strings.Join(c.Request().Form["images"], ","))
	}
}

// saveArticle derives the slug and excerpt, validates and writes art. A
// failed write re-renders the editor with the error and a flash.
func (a *App) saveArticle(c echo.Context, art *article.Article, isNew bool) error {
	ctx := c.Request().Context()
	if art.Slug == "" {
		art.Slug = article.Slugify(art.Title)
	}
	if art.Excerpt == "" {
		art.Excerpt = article.Summarize(art.Content, excerptLength)
	}

	fail := func(err error) error {
		c.Logger().Warnf("save article %q: %v", art.Title, err)
		form := ArticleForm{Article: *art, Keywords: strings.Join(art.Keywords, ", "), Error: err.Error(), IsNew: isNew}
		p := a.adminPage(c, "Artikel")
		p.Flashes = append(p.Flashes, Flash{Kind: "error", Message: "Gagal menyimpan artikel: " + err.Error()})
		return RenderStatus(c, http.StatusUnprocessableEntity, a.Views.AdminArticleForm(p, form))
	}

	if art.Slug != "" {
		slug, err := article.UniqueSlug(ctx, a.Articles, art.Slug, art.ID)
		if err != nil {
			return fail(err)
		}
		art.Slug = slug
	}
	if err := art.Validate(); err != nil {
		return fail(err)
	}
	art.Prepare(time.Now())

	var err error
	if isNew {
		err = a.Articles.Create(ctx, art)
	} else {
		err = a.Articles.Update(ctx, art)
	}
	if err != nil {
		return fail(err)
	}
	a.Cache.Invalidate()

	msg := "Artikel disimpan."
	if isNew {
		msg = "Artikel dibuat."
	}
	if err := addFlash(c, "success", msg); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/articles/")
}

func (a *App) handleAdminDeleteArticle(c echo.Context) error {
	err := a.Articles.Delete(c.Request().Context(), c.Param("id"))
	switch {
	case errors.Is(err, article.ErrNotFound):
		err = addFlash(c, "error", "Artikel tidak ditemukan.")
	case err != nil:
		c.Logger().Warnf("delete article %s: %v", c.Param("id"), err)
		err = addFlash(c, "error", "Gagal menghapus artikel: "+err.Error())
	default:
		a.Cache.Invalidate()
		err = addFlash(c, "success", "Artikel dihapus.")
	}
	if err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/articles/")
}
