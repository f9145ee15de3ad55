// Package antlia is the ANTLIA company website: marketing pages driven by a
// content catalog, an article back-office, page-view analytics and the
// analytics dashboard, served with Echo and templ.
//
// Templates are supplied through the ViewFuncs struct; the App owns the
// handler logic, middleware and storage wiring.
package antlia

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/antlia/antlia/analytics"
	"github.com/antlia/antlia/article"
	"github.com/antlia/antlia/contact"
	"github.com/antlia/antlia/media"
	"github.com/antlia/antlia/ratelimit"
	"github.com/antlia/antlia/report"
	"github.com/antlia/antlia/site"
	"github.com/antlia/antlia/tracker"
)

// ViewFuncs holds the components the App renders. Every page receives the
// shared Page context.
type ViewFuncs struct {
	Home             func(p Page, latest []article.Article) templ.Component
	ProductsServices func(p Page) templ.Component
	Service          func(p Page, svc site.Offering) templ.Component
	Solutions        func(p Page) templ.Component
	Clients          func(p Page) templ.Component
	About            func(p Page) templ.Component
	Contact          func(p Page, form ContactForm) templ.Component
	Articles         func(p Page, list []article.Article, query string) templ.Component
	ArticleList      func(list []article.Article, query string) templ.Component
	Article          func(p Page, a article.Article, related []article.Article) templ.Component

	AdminLogin       func(p Page, showError bool) templ.Component
	AdminDashboard   func(p Page, stats article.Stats) templ.Component
	AdminArticles    func(p Page, list []article.Article) templ.Component
	AdminArticleForm func(p Page, form ArticleForm) templ.Component
	AdminAnalytics   func(p Page, snap *report.Snapshot) templ.Component
	AnalyticsCard    func(t analytics.ReportType, snap *report.Snapshot) templ.Component

	NotFound    func(p Page) templ.Component
	ServerError func(p Page) templ.Component
}

// App wires the content catalog, stores, cache, handlers, middleware and
// views together.
type App struct {
	Config    SiteConfig
	Echo      *echo.Echo
	Views     ViewFuncs
	Catalog   *site.Catalog
	Articles  article.Repository
	Cache     *ArticleCache
	Tracker   *tracker.Tracker
	Dashboard *report.Dashboard

	logger         *slog.Logger
	loginLimiter   *ratelimit.Limiter
	contactLimiter *ratelimit.Limiter
	events         analytics.EventStore
	collector      *analytics.Handler
	reportAuth     *analytics.TokenAuth
	mediaStore     media.Storage
	uploader       *media.Uploader
	closers        []func() error
	customRoutes   []func(*App)
	staticDir      string
	ready          bool
}

// New creates an App with the given configuration and views.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.ApplyDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		Views:     views,
		staticDir: "public",
	}

	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}

	return a
}

// Setup opens the stores and registers middleware and routes. Start calls
// it when it has not run yet.
func (a *App) Setup(ctx context.Context) error {
	if a.ready {
		return nil
	}
	if err := a.Config.Validate(); err != nil {
		return fmt.Errorf("antlia: %w", err)
	}

	if a.Catalog == nil {
		catalog, err := site.Load(a.Config.ContentFile)
		if err != nil {
			return fmt.Errorf("antlia: %w", err)
		}
		a.Catalog = catalog
	}

	if err := a.openStores(ctx); err != nil {
		a.Close()
		return fmt.Errorf("antlia: %w", err)
	}

	a.Cache = NewArticleCache(a.Articles, a.Config.ArticleCacheTTL)
	a.loginLimiter = ratelimit.New(5, time.Minute)
	a.contactLimiter = ratelimit.New(10, time.Minute)
	a.closers = append(a.closers, closeFunc(a.loginLimiter.Stop), closeFunc(a.contactLimiter.Stop))

	if err := a.setupAnalytics(ctx); err != nil {
		a.Close()
		return fmt.Errorf("antlia: %w", err)
	}

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}

	a.ready = true
	return nil
}

// Start sets the App up and serves until the server is shut down.
func (a *App) Start() error {
	if err := a.Setup(context.Background()); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server gracefully and drains queued page-view
// writes.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Echo.Shutdown(ctx)
	if a.Tracker != nil {
		a.Tracker.Close()
	}
	return err
}

func (a *App) setupRoutes() {
	e := a.Echo

	a.registerAssets()
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)

	// Marketing pages
	e.GET("/", a.handleHome)
	e.GET("/produk-layanan/", a.handleProductsServices)
	e.GET("/layanan/:slug/", a.handleService)
	e.GET("/solusi/", a.handleSolutions)
	e.GET("/klien/", a.handleClients)
	e.GET("/tentang-kami/", a.handleAbout)
	e.GET("/kontak/", a.handleContact)
	e.POST("/kontak/", a.handleContactSubmit)
	e.GET("/kontak/qr.png", a.handleContactQR)

	// Articles
	e.GET("/artikel/", a.handleArticles)
	e.GET("/artikel/:slug/", a.handleArticle)

	// Back-office
	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", handleAdminLogout)

	admin := e.Group("/admin", requireAdmin)
	admin.GET("/articles/", a.handleAdminArticles)
	admin.GET("/articles/new/", a.handleAdminNewArticle)
	admin.POST("/articles/", a.handleAdminCreateArticle)
	admin.GET("/articles/:id/", a.handleAdminEditArticle)
	admin.POST("/articles/:id/", a.handleAdminUpdateArticle)
	admin.POST("/articles/:id/delete/", a.handleAdminDeleteArticle)
	admin.DELETE("/articles/:id/", a.handleAdminDeleteArticle)
	admin.POST("/media/", a.handleMediaUpload)
	admin.DELETE("/media/*", a.handleMediaDelete)

	if a.Dashboard != nil {
		admin.GET("/analytics/", a.handleAnalyticsDashboard)
		admin.GET("/analytics/cards/:type", a.handleAnalyticsCard)
		admin.GET("/analytics/export.pdf", a.handleAnalyticsPDF)
		admin.GET("/analytics/export.md", a.handleAnalyticsMarkdown)
	}

	if a.collector != nil {
		a.collector.RegisterRoutes(e, analyticsPath, analytics.RequireReader(a.reportAuth, IsAdmin))
	}
}

// Close releases stores and background workers in reverse order of
// creation. Call it when the app is shutting down.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func closeFunc(fn func()) func() error {
	return func() error {
		fn()
		return nil
	}
}

// WhatsAppLink is the bare chat link of the configured number.
func (a *App) WhatsAppLink() string {
	return contact.ChatLink(a.Config.WhatsAppNumber)
}
