package antlia_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antlia/antlia"
	"github.com/antlia/antlia/tracker"
	"github.com/antlia/antlia/views"
)

const adminPassword = "rahasia"

type testClient struct {
	t    *testing.T
	app  *antlia.App
	srv  *httptest.Server
	http *http.Client
}

func newTestApp(t *testing.T, mutate ...func(*antlia.SiteConfig)) *testClient {
	t.Helper()
	dir := t.TempDir()
	cfg := antlia.SiteConfig{
		URL:                   "http://example.test",
		AdminPassword:         adminPassword,
		SessionSecret:         "test-session-secret-0123456789",
		DatabasePath:          filepath.Join(dir, "antlia.db"),
		AnalyticsEnabled:      true,
		AnalyticsDatabasePath: filepath.Join(dir, "analytics.db"),
		MediaDir:              filepath.Join(dir, "media"),
	}
	for _, fn := range mutate {
		fn(&cfg)
	}

	app := antlia.New(cfg, views.Default(), antlia.WithStaticDir(filepath.Join(dir, "public")))
	require.NoError(t, app.Setup(context.Background()))

	srv := httptest.NewServer(app.Echo)
	t.Cleanup(func() {
		srv.Close()
		require.NoError(t, app.Close())
	})

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testClient{
		t:   t,
		app: app,
		srv: srv,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *testClient) do(req *http.Request) (*http.Response, string) {
	c.t.Helper()
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, string(body)
}

func (c *testClient) get(path string) (*http.Response, string) {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodGet, c.srv.URL+path, nil)
	require.NoError(c.t, err)
	return c.do(req)
}

// csrf returns the token cookie, fetching a page first when none is set.
func (c *testClient) csrf() string {
	c.t.Helper()
	u, _ := url.Parse(c.srv.URL)
	for range 2 {
		for _, ck := range c.http.Jar.Cookies(u) {
			if ck.Name == "_csrf" {
				return ck.Value
			}
		}
		c.get("/admin/")
	}
	c.t.Fatal("no csrf cookie")
	return ""
}

func (c *testClient) postForm(path string, form url.Values) (*http.Response, string) {
	c.t.Helper()
	form.Set("_csrf", c.csrf())
	req, err := http.NewRequest(http.MethodPost, c.srv.URL+path, strings.NewReader(form.Encode()))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *testClient) login() {
	c.t.Helper()
	resp, _ := c.postForm("/admin/login/", url.Values{"password": {adminPassword}})
	require.Equal(c.t, http.StatusSeeOther, resp.StatusCode)
}

func TestMarketingPages(t *testing.T) {
	c := newTestApp(t)

	for _, path := range []string{"/", "/produk-layanan/", "/layanan/it-consulting/", "/solusi/", "/klien/", "/tentang-kami/", "/kontak/", "/artikel/"} {
		resp, body := c.get(path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Contains(t, body, "ANTLIA", path)
	}

	resp, body := c.get("/layanan/tidak-ada/")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "tidak ditemukan")
}

func TestTrailingSlashRedirect(t *testing.T) {
	c := newTestApp(t)

	resp, _ := c.get("/produk-layanan")
	assert.Equal(t, http.StatusMovedPermanently, resp.StatusCode)
	assert.Equal(t, "/produk-layanan/", resp.Header.Get("Location"))
}

func TestSecurityHeaders(t *testing.T) {
	c := newTestApp(t)

	resp, _ := c.get("/")
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Contains(t, resp.Header.Get("Content-Security-Policy"), "https://wa.me")
	assert.Equal(t, "private, no-cache", resp.Header.Get("Cache-Control"))
}

func TestTrackedPagesAreRevalidated(t *testing.T) {
	c := newTestApp(t)

	req, err := http.NewRequest(http.MethodGet, c.srv.URL+"/klien/", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/html")
	resp, _ := c.do(req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "private, no-cache", resp.Header.Get("Cache-Control"))

	var tracked bool
	for _, ck := range resp.Cookies() {
		if ck.Name == tracker.CookieSessionName {
			tracked = true
		}
	}
	assert.True(t, tracked, "page response must carry the visit cookie")

	resp, _ = c.get("/sitemap.xml")
	assert.Equal(t, "public, max-age=86400", resp.Header.Get("Cache-Control"))
}

func TestRevisitCountsAsPageView(t *testing.T) {
	c := newTestApp(t)

	for _, path := range []string{"/solusi/", "/klien/", "/solusi/"} {
		resp, _ := c.get(path)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		require.Equal(t, "private, no-cache", resp.Header.Get("Cache-Control"), path)
	}
	c.app.Tracker.Wait()

	c.login()
	resp, body := c.get("/api/analytics?type=pageViews")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `{"pageUrl":"/solusi/","count":2}`)
	assert.Contains(t, body, `{"pageUrl":"/klien/","count":1}`)
}

func TestContactRedirectsToWhatsApp(t *testing.T) {
	c := newTestApp(t)

	resp, body := c.get("/kontak/?layanan=IT%20Consulting")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `value="IT Consulting"`)

	resp, _ = c.postForm("/kontak/", url.Values{
		"name":    {"Budi"},
		"email":   {"budi@contoh.id"},
		"phone":   {"0812345678"},
		"subject": {"IT Consulting"},
		"message": {"Halo, kami butuh konsultasi."},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	loc := resp.Header.Get("Location")
	assert.True(t, strings.HasPrefix(loc, "https://wa.me/6285846612211?text="), loc)
	assert.Contains(t, loc, "Budi")
}

func TestContactRejectsInvalidForm(t *testing.T) {
	c := newTestApp(t)

	resp, body := c.postForm("/kontak/", url.Values{"name": {"Budi"}, "email": {"bukan-email"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, `value="Budi"`)
}

func TestContactRequiresCSRF(t *testing.T) {
	c := newTestApp(t)

	req, err := http.NewRequest(http.MethodPost, c.srv.URL+"/kontak/", strings.NewReader("name=Budi"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, body := c.do(req)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Forbidden", body)
}

func TestContactQRCode(t *testing.T) {
	c := newTestApp(t)

	resp, body := c.get("/kontak/qr.png")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	_, err := png.Decode(strings.NewReader(body))
	assert.NoError(t, err)
}

func TestRobotsAndSitemap(t *testing.T) {
	c := newTestApp(t)

	resp, body := c.get("/robots.txt")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Disallow: /admin/")
	assert.Contains(t, body, "Sitemap: http://example.test/sitemap.xml")

	resp, body = c.get("/sitemap.xml")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "<loc>http://example.test/kontak/</loc>")
	assert.Contains(t, body, "<loc>http://example.test/layanan/it-consulting/</loc>")
}

func TestAdminRequiresLogin(t *testing.T) {
	c := newTestApp(t)

	resp, _ := c.get("/admin/articles/")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/", resp.Header.Get("Location"))

	resp, body := c.postForm("/admin/login/", url.Values{"password": {"salah"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "Kata sandi salah.")

	c.login()
	resp, _ = c.get("/admin/articles/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = c.postForm("/admin/logout/", url.Values{})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp, _ = c.get("/admin/articles/")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestLoginRateLimited(t *testing.T) {
	c := newTestApp(t)

	for range 5 {
		resp, _ := c.postForm("/admin/login/", url.Values{"password": {"salah"}})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	resp, _ := c.postForm("/admin/login/", url.Values{"password": {adminPassword}})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestArticleLifecycle(t *testing.T) {
	c := newTestApp(t)
	c.login()

	form := url.Values{
		"title":    {"Strategi Cloud 2024"},
		"content":  {`<p>Isi <script>alert(1)</script><strong>penting</strong></p>`},
		"author":   {"Rina"},
		"category": {"Cloud"},
		"keywords": {"cloud, aws"},
		"status":   {"published"},
	}
	resp, _ := c.postForm("/admin/articles/", form)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/articles/", resp.Header.Get("Location"))

	resp, body := c.get("/admin/articles/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Strategi Cloud 2024")

	resp, body = c.get("/artikel/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `href="/artikel/strategi-cloud-2024/"`)

	resp, body = c.get("/artikel/strategi-cloud-2024/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "<strong>penting</strong>")
	assert.NotContains(t, body, "alert(1)")

	_, body = c.get("/feed.xml")
	assert.Contains(t, body, "<title>Strategi Cloud 2024</title>")
	_, body = c.get("/sitemap.xml")
	assert.Contains(t, body, "http://example.test/artikel/strategi-cloud-2024/")

	// A second article with the same title gets a distinct slug.
	resp, _ = c.postForm("/admin/articles/", form)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	second, err := c.app.Articles.GetBySlug(context.Background(), "strategi-cloud-2024-2")
	require.NoError(t, err)

	resp, _ = c.postForm("/admin/articles/"+second.ID+"/delete/", url.Values{})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp, _ = c.get("/artikel/strategi-cloud-2024-2/")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestArticleFormRejectsMissingFields(t *testing.T) {
	c := newTestApp(t)
	c.login()

	resp, body := c.postForm("/admin/articles/", url.Values{"title": {"Tanpa Isi"}, "author": {"Rina"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Tanpa Isi")
}

func TestArticleSearchFragment(t *testing.T) {
	c := newTestApp(t)

	req, err := http.NewRequest(http.MethodGet, c.srv.URL+"/artikel/?q=kosong", nil)
	require.NoError(t, err)
	req.Header.Set("HX-Request", "true")
	resp, body := c.do(req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, body, "<html")
	assert.Contains(t, body, "Tidak ada artikel untuk")
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestMediaUpload(t *testing.T) {
	c := newTestApp(t)
	c.login()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "logo.png")
	require.NoError(t, err)
	_, err = part.Write(testPNG(t))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, c.srv.URL+"/admin/media/", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-CSRF-Token", c.csrf())
	resp, out := c.do(req)
	require.Equal(t, http.StatusCreated, resp.StatusCode, out)

	var img struct {
		Key string `json:"key"`
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &img))
	require.True(t, strings.HasPrefix(img.URL, "/media/"), img.URL)

	resp, _ = c.get(img.URL)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, err = http.NewRequest(http.MethodDelete, c.srv.URL+"/admin/media/"+img.Key, nil)
	require.NoError(t, err)
	req.Header.Set("X-CSRF-Token", c.csrf())
	resp, _ = c.do(req)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestAnalyticsCollectAndReport(t *testing.T) {
	c := newTestApp(t)

	resp, _ := c.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = c.get("/klien/")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, c.srv.URL+"/api/analytics",
		strings.NewReader(`{"sessionId":"remote-1","pageUrl":"/solusi","browser":"Firefox"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Country-Code", "ID")
	resp, body := c.do(req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)

	c.app.Tracker.Wait()

	resp, _ = c.get("/api/analytics?type=pageViews")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	c.login()
	resp, body = c.get("/api/analytics?type=pageViews")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"pageUrl":"/"`)
	assert.Contains(t, body, `"pageUrl":"/klien/"`)
	assert.Contains(t, body, `"pageUrl":"/solusi"`)

	resp, body = c.get("/api/analytics?type=totalVisitors")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"data":{"totalVisitors":2}}`, body)

	resp, _ = c.get("/api/analytics?type=bogus")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnalyticsDashboard(t *testing.T) {
	c := newTestApp(t)
	c.get("/")
	c.app.Tracker.Wait()
	c.login()

	resp, body := c.get("/admin/analytics/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `data-fragment="/admin/analytics/cards/pageViews"`)

	resp, body = c.get("/admin/analytics/cards/totalVisitors")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `data-state="loaded"`)
	assert.NotContains(t, body, "<html")

	resp, _ = c.get("/admin/analytics/cards/bogus")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = c.get("/admin/analytics/export.pdf")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(body, "%PDF"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")

	resp, body = c.get("/admin/analytics/export.md")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "# ")
}

func TestAnalyticsDisabled(t *testing.T) {
	c := newTestApp(t, func(cfg *antlia.SiteConfig) { cfg.AnalyticsEnabled = false })

	assert.Nil(t, c.app.Tracker)
	assert.Nil(t, c.app.Dashboard)

	c.login()
	resp, _ := c.get("/admin/analytics/")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = c.get("/api/analytics?type=pageViews")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEmbeddedAssets(t *testing.T) {
	c := newTestApp(t)

	resp, body := c.get("/public/antlia/app.js")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "data-fragment")
	assert.Equal(t, "public, max-age=31536000, immutable", resp.Header.Get("Cache-Control"))
}
