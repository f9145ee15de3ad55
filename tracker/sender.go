package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/antlia/antlia/analytics"
)

// Event is one page view as seen by the tracker.
type Event struct {
	SessionID string
	PageURL   string
	Browser   analytics.Browser
	Country   string
	UserAgent string
}

// Sender delivers a page-view event to the aggregation endpoint.
type Sender interface {
	Send(ctx context.Context, ev Event) error
}

// HTTPSender posts events as JSON to a remote endpoint.
type HTTPSender struct {
	endpoint string
	client   *http.Client
}

// NewHTTPSender returns a sender targeting endpoint. A nil client gets a
// client with a 10 second timeout.
func NewHTTPSender(endpoint string, client *http.Client) *HTTPSender {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPSender{endpoint: endpoint, client: client}
}

func (s *HTTPSender) Send(ctx context.Context, ev Event) error {
	body, err := json.Marshal(analytics.EventRequest{
		SessionID: ev.SessionID,
		PageURL:   ev.PageURL,
		Browser:   string(ev.Browser),
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if ev.UserAgent != "" {
		req.Header.Set("User-Agent", ev.UserAgent)
	}
	if ev.Country != "" && ev.Country != analytics.UnknownCountry {
		req.Header.Set("X-Country-Code", ev.Country)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post page view: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<14))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("post page view: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// StoreSender records events straight into an in-process event store.
type StoreSender struct {
	store analytics.EventStore
	now   func() time.Time
}

// NewStoreSender returns a sender writing to store.
func NewStoreSender(store analytics.EventStore) *StoreSender {
	return &StoreSender{store: store, now: time.Now}
}

func (s *StoreSender) Send(ctx context.Context, ev Event) error {
	country := ev.Country
	if country == "" {
		country = analytics.UnknownCountry
	}
	return s.store.Record(ctx, analytics.PageView{
		SessionID: ev.SessionID,
		PageURL:   ev.PageURL,
		Browser:   ev.Browser,
		Country:   country,
		Timestamp: s.now().UTC(),
	})
}
