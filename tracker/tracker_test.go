package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antlia/antlia/analytics"
)

const firefoxUA = "Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0"

type recordingSender struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (s *recordingSender) Send(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func (s *recordingSender) sent() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

type brokenStorage struct{}

func (brokenStorage) Get(string) (string, error) { return "", errors.New("quota exceeded") }
func (brokenStorage) Set(string, string) error   { return errors.New("quota exceeded") }
func (brokenStorage) Delete(string) error        { return errors.New("quota exceeded") }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProviderStableWithinSession(t *testing.T) {
	p := NewProvider(quietLogger())
	st := NewMemoryStorage()

	first := p.GetOrCreate(st)
	require.NotEmpty(t, first)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, p.GetOrCreate(st))
	}
}

func TestProviderNewTokenAfterClear(t *testing.T) {
	p := NewProvider(quietLogger())
	st := NewMemoryStorage()

	first := p.GetOrCreate(st)
	require.NoError(t, p.Clear(st))
	second := p.GetOrCreate(st)
	assert.NotEqual(t, first, second)
}

func TestProviderDistinctSessions(t *testing.T) {
	p := NewProvider(quietLogger())
	assert.NotEqual(t, p.GetOrCreate(NewMemoryStorage()), p.GetOrCreate(NewMemoryStorage()))
}

func TestProviderInit(t *testing.T) {
	p := NewProvider(quietLogger())
	st := NewMemoryStorage()
	p.Init(st)
	id, err := st.Get(SessionIDKey)
	require.NoError(t, err)
	assert.Len(t, id, 36)
}

func TestProviderStorageFailureReturnsFreshToken(t *testing.T) {
	p := NewProvider(quietLogger())
	a := p.GetOrCreate(brokenStorage{})
	b := p.GetOrCreate(brokenStorage{})
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestNavigateOncePerPath(t *testing.T) {
	sender := &recordingSender{}
	tr := New(sender, WithLogger(quietLogger()))
	st := NewMemoryStorage()
	ctx := context.Background()

	assert.True(t, tr.Navigate(ctx, st, "/", firefoxUA, "ID"))
	assert.False(t, tr.Navigate(ctx, st, "/", firefoxUA, "ID"), "re-render of the same path must not fire")
	assert.True(t, tr.Navigate(ctx, st, "/artikel/", firefoxUA, "ID"))
	assert.True(t, tr.Navigate(ctx, st, "/", firefoxUA, "ID"), "returning to an earlier path is a new navigation")
	tr.Wait()

	events := sender.sent()
	require.Len(t, events, 3)
	for _, ev := range events {
		assert.Equal(t, analytics.Firefox, ev.Browser)
		assert.Equal(t, events[0].SessionID, ev.SessionID)
	}
}

func TestNavigateScenario(t *testing.T) {
	sender := &recordingSender{}
	p := NewProvider(quietLogger())
	p.newID = func() string { return "abc-123" }
	tr := New(sender, WithProvider(p), WithLogger(quietLogger()))
	st := NewMemoryStorage()

	for _, path := range []string{"/", "/produk-layanan", "/kontak"} {
		require.True(t, tr.Navigate(context.Background(), st, path, firefoxUA, ""))
	}
	tr.Wait()

	events := sender.sent()
	require.Len(t, events, 3)
	assert.Equal(t, []string{"/", "/produk-layanan", "/kontak"}, []string{events[0].PageURL, events[1].PageURL, events[2].PageURL})
	for _, ev := range events {
		assert.Equal(t, "abc-123", ev.SessionID)
		assert.Equal(t, analytics.Firefox, ev.Browser)
	}
}

func TestNavigateDeliveryFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	sender := &recordingSender{err: errors.New("network down")}
	tr := New(sender, WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	assert.NotPanics(t, func() {
		tr.Navigate(context.Background(), NewMemoryStorage(), "/kontak", firefoxUA, "")
	})
	tr.Wait()
	assert.Contains(t, buf.String(), "page view delivery failed")
	assert.Contains(t, buf.String(), "network down")
}

type blockingSender struct {
	release chan struct{}
	started chan struct{}
	count   atomic.Int32
}

func (s *blockingSender) Send(ctx context.Context, _ Event) error {
	if s.started != nil {
		select {
		case s.started <- struct{}{}:
		default:
		}
	}
	<-s.release
	s.count.Add(1)
	return nil
}

func TestNavigateDoesNotBlockCaller(t *testing.T) {
	sender := &blockingSender{release: make(chan struct{})}
	tr := New(sender, WithLogger(quietLogger()))

	done := make(chan struct{})
	go func() {
		tr.Navigate(context.Background(), NewMemoryStorage(), "/", firefoxUA, "")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Navigate blocked on delivery")
	}
	close(sender.release)
	tr.Wait()
}

func TestNavigateKeepsOrderUnderLoad(t *testing.T) {
	sender := &recordingSender{}
	tr := New(sender, WithLogger(quietLogger()))
	defer tr.Close()
	st := NewMemoryStorage()

	var want []string
	for i := range 100 {
		path := fmt.Sprintf("/artikel/%d", i)
		want = append(want, path)
		require.True(t, tr.Navigate(context.Background(), st, path, firefoxUA, ""))
	}
	tr.Wait()

	var got []string
	for _, ev := range sender.sent() {
		got = append(got, ev.PageURL)
	}
	assert.Equal(t, want, got)
}

func TestNavigateDropsWhenQueueFull(t *testing.T) {
	var buf bytes.Buffer
	sender := &blockingSender{release: make(chan struct{}), started: make(chan struct{}, 1)}
	tr := New(sender, WithQueueSize(1), WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	st := NewMemoryStorage()
	ctx := context.Background()

	require.True(t, tr.Navigate(ctx, st, "/", firefoxUA, ""))
	<-sender.started
	require.True(t, tr.Navigate(ctx, st, "/solusi", firefoxUA, ""), "one event fits in the queue")
	assert.False(t, tr.Navigate(ctx, st, "/kontak", firefoxUA, ""), "a full queue drops the event")
	assert.Contains(t, buf.String(), "page view queue full")

	close(sender.release)
	tr.Wait()
	assert.Equal(t, int32(2), sender.count.Load())
	tr.Close()
}

func TestCloseDrainsAndRejects(t *testing.T) {
	sender := &recordingSender{}
	tr := New(sender, WithLogger(quietLogger()))
	st := NewMemoryStorage()

	require.True(t, tr.Navigate(context.Background(), st, "/", firefoxUA, ""))
	require.True(t, tr.Navigate(context.Background(), st, "/klien", firefoxUA, ""))
	tr.Close()
	assert.Len(t, sender.sent(), 2)

	assert.False(t, tr.Navigate(context.Background(), st, "/kontak", firefoxUA, ""))
	assert.NotPanics(t, tr.Close)
	assert.Len(t, sender.sent(), 2)
}

func TestHTTPSenderPostsJSON(t *testing.T) {
	var (
		got     analytics.EventRequest
		country string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		country = r.Header.Get("X-Country-Code")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	s := NewHTTPSender(srv.URL, nil)
	err := s.Send(context.Background(), Event{SessionID: "abc-123", PageURL: "/kontak", Browser: analytics.Chrome, Country: "ID"})
	require.NoError(t, err)
	assert.Equal(t, analytics.EventRequest{SessionID: "abc-123", PageURL: "/kontak", Browser: "Chrome"}, got)
	assert.Equal(t, "ID", country)
}

func TestHTTPSenderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewHTTPSender(srv.URL, nil).Send(context.Background(), Event{SessionID: "a", PageURL: "/"})
	assert.Error(t, err)
}

func TestStoreSenderRecords(t *testing.T) {
	store, err := analytics.NewSQLiteStore(filepath.Join(t.TempDir(), "a.db"))
	require.NoError(t, err)
	defer store.Close()

	s := NewStoreSender(store)
	require.NoError(t, s.Send(context.Background(), Event{SessionID: "a", PageURL: "/", Browser: analytics.Safari}))

	countries, err := store.VisitorsByCountry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []analytics.CountryCount{{Country: analytics.UnknownCountry, Count: 1}}, countries)
}

func newMiddlewareServer(tr *Tracker) *echo.Echo {
	e := echo.New()
	e.Use(session.Middleware(sessions.NewCookieStore([]byte("test-secret"))))
	e.Use(Middleware(tr, MiddlewareConfig{
		Storage: func(c echo.Context) Storage { return NewCookieStorage(c, false) },
	}))
	ok := func(c echo.Context) error { return c.HTML(http.StatusOK, "<p>ok</p>") }
	e.GET("/", ok)
	e.GET("/kontak", ok)
	e.POST("/kontak", ok)
	return e
}

func TestMiddlewareTracksNavigationsWithCookie(t *testing.T) {
	sender := &recordingSender{}
	tr := New(sender, WithLogger(quietLogger()))
	e := newMiddlewareServer(tr)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", firefoxUA)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	var sessionCookie *http.Cookie
	for _, ck := range cookies {
		if ck.Name == CookieSessionName {
			sessionCookie = ck
		}
	}
	require.NotNil(t, sessionCookie)
	assert.True(t, sessionCookie.Expires.IsZero(), "tracking cookie must last only for the browser session")
	assert.Zero(t, sessionCookie.MaxAge)

	req = httptest.NewRequest(http.MethodGet, "/kontak", nil)
	req.Header.Set("User-Agent", firefoxUA)
	req.AddCookie(sessionCookie)
	e.ServeHTTP(httptest.NewRecorder(), req)

	tr.Wait()
	events := sender.sent()
	require.Len(t, events, 2)
	assert.Equal(t, events[0].SessionID, events[1].SessionID)
	assert.Equal(t, "/", events[0].PageURL)
	assert.Equal(t, "/kontak", events[1].PageURL)
}

func TestMiddlewareSkipsNonNavigations(t *testing.T) {
	sender := &recordingSender{}
	tr := New(sender, WithLogger(quietLogger()))
	e := newMiddlewareServer(tr)

	post := httptest.NewRequest(http.MethodPost, "/kontak", nil)
	e.ServeHTTP(httptest.NewRecorder(), post)

	bot := httptest.NewRequest(http.MethodGet, "/", nil)
	bot.Header.Set("User-Agent", "Googlebot/2.1")
	e.ServeHTTP(httptest.NewRecorder(), bot)

	dnt := httptest.NewRequest(http.MethodGet, "/", nil)
	dnt.Header.Set("DNT", "1")
	e.ServeHTTP(httptest.NewRecorder(), dnt)

	jsonReq := httptest.NewRequest(http.MethodGet, "/", nil)
	jsonReq.Header.Set("Accept", "application/json")
	e.ServeHTTP(httptest.NewRecorder(), jsonReq)

	tr.Wait()
	assert.Empty(t, sender.sent())
}
