// Package tracker assigns each browsing session an identifier and reports
// one page-view event per page navigation to the analytics endpoint.
package tracker

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

// Storage keys.
const (
	SessionIDKey = "analytics_session_id"
	lastPathKey  = "analytics_last_path"
)

// Storage is session-scoped key/value storage that lives exactly as long as
// one browsing session. Get returns "" for a missing key.
type Storage interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// MemoryStorage is an in-process Storage.
type MemoryStorage struct {
	mu   sync.Mutex
	vals map[string]string
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{vals: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vals[key], nil
}

func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	m.vals[key] = value
	m.mu.Unlock()
	return nil
}

func (m *MemoryStorage) Delete(key string) error {
	m.mu.Lock()
	delete(m.vals, key)
	m.mu.Unlock()
	return nil
}

// CookieSessionName is the cookie that carries the tracking session.
const CookieSessionName = "antlia_visit"

// CookieStorage keeps values in a signed browser-session cookie. The cookie
// has no expiry, so it ends when the browser session ends.
type CookieStorage struct {
	c      echo.Context
	secure bool
}

// NewCookieStorage binds a CookieStorage to the request in c. The session
// middleware from echo-contrib must be installed.
func NewCookieStorage(c echo.Context, secure bool) *CookieStorage {
	return &CookieStorage{c: c, secure: secure}
}

func (s *CookieStorage) session() (*sessions.Session, error) {
	sess, err := session.Get(CookieSessionName, s.c)
	if err != nil {
		return nil, err
	}
	sess.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   0,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
	return sess, nil
}

func (s *CookieStorage) Get(key string) (string, error) {
	sess, err := s.session()
	if err != nil {
		return "", err
	}
	v, _ := sess.Values[key].(string)
	return v, nil
}

func (s *CookieStorage) Set(key, value string) error {
	sess, err := s.session()
	if err != nil {
		return err
	}
	sess.Values[key] = value
	return sess.Save(s.c.Request(), s.c.Response())
}

func (s *CookieStorage) Delete(key string) error {
	sess, err := s.session()
	if err != nil {
		return err
	}
	delete(sess.Values, key)
	return sess.Save(s.c.Request(), s.c.Response())
}

// Provider hands out the per-session visitor token.
type Provider struct {
	newID  func() string
	logger *slog.Logger
}

// NewProvider returns a Provider generating random UUIDv4 tokens.
func NewProvider(logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{newID: uuid.NewString, logger: logger}
}

// GetOrCreate returns the session token held by st, creating and storing a
// new one on first use. When st cannot be read or written a fresh token is
// returned; such a session is over-counted rather than failing.
func (p *Provider) GetOrCreate(st Storage) string {
	id, err := st.Get(SessionIDKey)
	if err != nil {
		p.logger.Warn("session storage read failed", slog.Any("error", err))
		return p.newID()
	}
	if id != "" {
		return id
	}
	id = p.newID()
	if err := st.Set(SessionIDKey, id); err != nil {
		p.logger.Warn("session storage write failed", slog.Any("error", err))
	}
	return id
}

// Init ensures st holds a session token.
func (p *Provider) Init(st Storage) {
	p.GetOrCreate(st)
}

// Clear ends the session; the next GetOrCreate issues a new token.
func (p *Provider) Clear(st Storage) error {
	return errors.Join(st.Delete(SessionIDKey), st.Delete(lastPathKey))
}
