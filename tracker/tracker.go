package tracker

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/antlia/antlia/analytics"
)

// DefaultQueueSize is the number of page views buffered ahead of delivery.
const DefaultQueueSize = 256

// Tracker turns page navigations into page-view events.
type Tracker struct {
	provider  *Provider
	sender    Sender
	logger    *slog.Logger
	queueSize int

	queue  chan queued
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

type queued struct {
	ctx context.Context
	ev  Event
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger used for delivery failures.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// WithProvider overrides the session token provider.
func WithProvider(p *Provider) Option {
	return func(t *Tracker) { t.provider = p }
}

// WithQueueSize sets how many page views may wait for delivery before new
// ones are dropped.
func WithQueueSize(n int) Option {
	return func(t *Tracker) { t.queueSize = n }
}

// New returns a Tracker delivering through sender. Events are delivered in
// navigation order by a single goroutine that runs until Close.
func New(sender Sender, opts ...Option) *Tracker {
	t := &Tracker{sender: sender, logger: slog.Default(), queueSize: DefaultQueueSize}
	for _, opt := range opts {
		opt(t)
	}
	if t.provider == nil {
		t.provider = NewProvider(t.logger)
	}
	if t.queueSize < 1 {
		t.queueSize = 1
	}
	t.queue = make(chan queued, t.queueSize)
	go t.dispatch()
	return t
}

// Provider returns the session token provider.
func (t *Tracker) Provider() *Provider {
	return t.provider
}

// Navigate records a navigation to path. It fires one event per distinct
// path change of the session; a repeat of the last tracked path fires
// nothing. The event is queued without blocking and delivered in order;
// failures and a full queue are logged and never reach the caller. Reports
// whether an event was queued.
func (t *Tracker) Navigate(ctx context.Context, st Storage, path, userAgent, country string) bool {
	sessionID := t.provider.GetOrCreate(st)

	last, err := st.Get(lastPathKey)
	if err == nil && last == path {
		return false
	}
	if err := st.Set(lastPathKey, path); err != nil {
		t.logger.Warn("session storage write failed", slog.Any("error", err))
	}

	ev := Event{
		SessionID: sessionID,
		PageURL:   path,
		Browser:   analytics.ClassifyBrowser(userAgent),
		Country:   country,
		UserAgent: userAgent,
	}
	return t.enqueue(queued{ctx: context.WithoutCancel(ctx), ev: ev})
}

func (t *Tracker) enqueue(q queued) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		t.logger.Warn("tracker closed, dropping page view", slog.String("page", q.ev.PageURL))
		return false
	}
	t.wg.Add(1)
	select {
	case t.queue <- q:
		return true
	default:
		t.wg.Done()
		t.logger.Warn("page view queue full, dropping event",
			slog.String("page", q.ev.PageURL),
			slog.String("session", q.ev.SessionID))
		return false
	}
}

func (t *Tracker) dispatch() {
	for q := range t.queue {
		if err := t.sender.Send(q.ctx, q.ev); err != nil {
			t.logger.Error("page view delivery failed",
				slog.String("page", q.ev.PageURL),
				slog.String("session", q.ev.SessionID),
				slog.Any("error", err))
		}
		t.wg.Done()
	}
}

// Wait blocks until every queued event has been attempted. The tracker keeps
// accepting navigations afterwards.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

// Close drains the queue and stops the dispatcher. Later navigations are
// dropped. Close is safe to call more than once.
func (t *Tracker) Close() {
	t.once.Do(func() {
		t.mu.Lock()
		t.closed = true
		t.mu.Unlock()
		t.wg.Wait()
		close(t.queue)
	})
}

// MiddlewareConfig configures Middleware.
type MiddlewareConfig struct {
	// Skipper excludes requests from tracking.
	Skipper middleware.Skipper
	// Storage binds session storage to a request.
	Storage func(c echo.Context) Storage
}

// Middleware tracks GET navigations to HTML pages. Routes without a match,
// bots and Do-Not-Track requests are not tracked.
func Middleware(t *Tracker, cfg MiddlewareConfig) echo.MiddlewareFunc {
	if cfg.Skipper == nil {
		cfg.Skipper = middleware.DefaultSkipper
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if cfg.Skipper(c) || !isPageNavigation(c) {
				return next(c)
			}
			ua := req.UserAgent()
			if req.Header.Get("DNT") == "1" || analytics.IsBot(ua) {
				return next(c)
			}
			t.Navigate(req.Context(), cfg.Storage(c), req.URL.Path, ua, analytics.CountryFromHeader(req.Header))
			return next(c)
		}
	}
}

func isPageNavigation(c echo.Context) bool {
	req := c.Request()
	if req.Method != "GET" || c.Path() == "" {
		return false
	}
	if req.Header.Get("HX-Request") == "true" {
		return false
	}
	accept := req.Header.Get(echo.HeaderAccept)
	return accept == "" || strings.Contains(accept, "text/html") || strings.Contains(accept, "*/*")
}
