package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/antlia/antlia/analytics"
)

// HTTPSource reads the aggregate views from a remote analytics endpoint.
// It implements analytics.Reader.
type HTTPSource struct {
	endpoint string
	token    string
	tokenFn  func() (string, error)
	client   *http.Client
}

// NewHTTPSource returns a source for endpoint. token, when set, is sent as
// a bearer token. A nil client gets one with a 10 second timeout.
func NewHTTPSource(endpoint, token string, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPSource{endpoint: endpoint, token: token, client: client}
}

// WithTokenFunc makes s mint its bearer token per request, so short-lived
// tokens never go stale.
func (s *HTTPSource) WithTokenFunc(fn func() (string, error)) *HTTPSource {
	s.tokenFn = fn
	return s
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// fetch GETs ?type=t and decodes the data member into out. A missing or
// null data member leaves out untouched.
func (s *HTTPSource) fetch(ctx context.Context, t analytics.ReportType, out any) error {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("type", string(t))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	token := s.token
	if s.tokenFn != nil {
		if token, err = s.tokenFn(); err != nil {
			return fmt.Errorf("report token: %w", err)
		}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", t, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&env); err != nil && err != io.EOF {
		return fmt.Errorf("decode %s: %w", t, err)
	}
	if resp.StatusCode != http.StatusOK {
		if env.Error != "" {
			return fmt.Errorf("fetch %s: %s (status %d)", t, env.Error, resp.StatusCode)
		}
		return fmt.Errorf("fetch %s: unexpected status %d", t, resp.StatusCode)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s: %w", t, err)
	}
	return nil
}

func (s *HTTPSource) TotalVisitors(ctx context.Context) (int, error) {
	var v analytics.TotalVisitors
	err := s.fetch(ctx, analytics.ReportTotalVisitors, &v)
	return v.TotalVisitors, err
}

func (s *HTTPSource) AverageSessionTime(ctx context.Context) (int, error) {
	var v analytics.AverageSessionTime
	err := s.fetch(ctx, analytics.ReportAverageSessionTime, &v)
	return v.AverageTime, err
}

func (s *HTTPSource) VisitorsByCountry(ctx context.Context) ([]analytics.CountryCount, error) {
	rows := []analytics.CountryCount{}
	err := s.fetch(ctx, analytics.ReportVisitorsByCountry, &rows)
	return rows, err
}

func (s *HTTPSource) VisitorsByBrowser(ctx context.Context) ([]analytics.BrowserCount, error) {
	rows := []analytics.BrowserCount{}
	err := s.fetch(ctx, analytics.ReportVisitorsByBrowser, &rows)
	return rows, err
}

func (s *HTTPSource) PageViews(ctx context.Context) ([]analytics.PageCount, error) {
	rows := []analytics.PageCount{}
	err := s.fetch(ctx, analytics.ReportPageViews, &rows)
	return rows, err
}
