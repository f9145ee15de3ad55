package analytics

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/antlia/antlia/ratelimit"
)

// Handler serves the ingestion and report endpoints.
type Handler struct {
	store          EventStore
	reader         Reader
	collectLimiter *ratelimit.Limiter
	now            func() time.Time
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithReader serves reports from r (for example a CachedReader) instead of
// the store itself.
func WithReader(r Reader) HandlerOption {
	return func(h *Handler) { h.reader = r }
}

// WithCollectLimit overrides the per-IP ingestion rate limit.
func WithCollectLimit(max int, window time.Duration) HandlerOption {
	return func(h *Handler) {
		h.collectLimiter.Stop()
		h.collectLimiter = ratelimit.New(max, window)
	}
}

// NewHandler creates a new analytics handler. Ingestion is rate-limited to
// 120 requests per IP per minute.
func NewHandler(store EventStore, opts ...HandlerOption) *Handler {
	h := &Handler{
		store:          store,
		reader:         store,
		collectLimiter: ratelimit.New(120, time.Minute),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Close stops background work owned by the handler.
func (h *Handler) Close() {
	h.collectLimiter.Stop()
}

// Input validation limits for the ingestion endpoint.
const (
	maxSessionIDLen = 128
	maxPageURLLen   = 2048
	maxBrowserLen   = 32
)

var errInvalidEvent = errors.New("invalid event")

func validateEvent(req *EventRequest) error {
	req.SessionID = strings.TrimSpace(req.SessionID)
	req.PageURL = strings.TrimSpace(req.PageURL)
	switch {
	case req.SessionID == "":
		return fmt.Errorf("%w: sessionId is required", errInvalidEvent)
	case len(req.SessionID) > maxSessionIDLen:
		return fmt.Errorf("%w: sessionId exceeds maximum length of %d", errInvalidEvent, maxSessionIDLen)
	case req.PageURL == "":
		return fmt.Errorf("%w: pageUrl is required", errInvalidEvent)
	case len(req.PageURL) > maxPageURLLen:
		return fmt.Errorf("%w: pageUrl exceeds maximum length of %d", errInvalidEvent, maxPageURLLen)
	case len(req.Browser) > maxBrowserLen:
		return fmt.Errorf("%w: browser exceeds maximum length of %d", errInvalidEvent, maxBrowserLen)
	case !utf8.ValidString(req.SessionID) || !utf8.ValidString(req.PageURL):
		return fmt.Errorf("%w: invalid utf-8", errInvalidEvent)
	}
	return nil
}

type ackResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Collect records one page-view event. The server stamps the time and derives
// the country from edge headers.
func (h *Handler) Collect(c echo.Context) error {
	if !h.collectLimiter.Allow(c.RealIP()) {
		return c.JSON(http.StatusTooManyRequests, errorResponse{Error: "too many requests"})
	}
	if c.Request().Header.Get("DNT") == "1" || IsBot(c.Request().UserAgent()) {
		return c.JSON(http.StatusAccepted, ackResponse{Status: "ignored"})
	}

	var req EventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if err := validateEvent(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	pv := PageView{
		SessionID: req.SessionID,
		PageURL:   req.PageURL,
		Browser:   ParseBrowser(req.Browser),
		Country:   CountryFromHeader(c.Request().Header),
		Timestamp: h.now().UTC(),
	}
	if err := h.store.Record(c.Request().Context(), pv); err != nil {
		c.Logger().Errorf("Failed to record page view: %v", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to record event"})
	}
	return c.JSON(http.StatusOK, ackResponse{Status: "ok"})
}

type dataResponse struct {
	Data any `json:"data"`
}

// Report answers GET ?type=<report>.
func (h *Handler) Report(c echo.Context) error {
	t, err := ParseReportType(c.QueryParam("type"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "unknown report type"})
	}
	data, err := Query(c.Request().Context(), h.reader, t)
	if err != nil {
		c.Logger().Errorf("Failed to load %s report: %v", t, err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
	}
	return c.JSON(http.StatusOK, dataResponse{Data: data})
}

// RegisterRoutes mounts POST and GET on path. Report reads pass through
// readMiddleware.
func (h *Handler) RegisterRoutes(e *echo.Echo, path string, readMiddleware ...echo.MiddlewareFunc) {
	e.POST(path, h.Collect)
	e.GET(path, h.Report, readMiddleware...)
}
