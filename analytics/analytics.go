// Package analytics ingests page-view events and answers the aggregate
// report queries the dashboard reads.
package analytics

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Browser is the closed set of browser families an event can carry.
type Browser string

const (
	Chrome  Browser = "Chrome"
	Firefox Browser = "Firefox"
	Safari  Browser = "Safari"
	Opera   Browser = "Opera"
	Edge    Browser = "Edge"
	Unknown Browser = "Unknown"
)

// Browsers lists every family in classification priority order.
var Browsers = []Browser{Chrome, Firefox, Safari, Opera, Edge, Unknown}

// browserRules are checked in order; the first match wins. Edge and Opera
// user agents also carry "Chrome" and so classify as Chrome.
var browserRules = []struct {
	re      *regexp.Regexp
	browser Browser
}{
	{regexp.MustCompile(`(?i)chrome|chromium|crios`), Chrome},
	{regexp.MustCompile(`(?i)firefox|fxios`), Firefox},
	{regexp.MustCompile(`(?i)safari`), Safari},
	{regexp.MustCompile(`(?i)opr/`), Opera},
	{regexp.MustCompile(`(?i)edg`), Edge},
}

// ClassifyBrowser maps a user-agent string onto a browser family.
func ClassifyBrowser(ua string) Browser {
	for _, r := range browserRules {
		if r.re.MatchString(ua) {
			return r.browser
		}
	}
	return Unknown
}

// ParseBrowser normalises a client-supplied family name. Anything outside
// the closed set becomes Unknown.
func ParseBrowser(name string) Browser {
	name = strings.TrimSpace(name)
	for _, b := range Browsers {
		if strings.EqualFold(name, string(b)) {
			return b
		}
	}
	return Unknown
}

// IsBot checks if the User-Agent is likely a bot/crawler.
func IsBot(ua string) bool {
	ua = strings.ToLower(ua)
	for _, bot := range botMarkers {
		if strings.Contains(ua, bot) {
			return true
		}
	}
	return false
}

var botMarkers = []string{
	"bot", "crawler", "spider", "crawl", "slurp", "scrape",
	"googlebot", "bingbot", "yandex", "baidu", "duckduckbot",
	"facebookexternalhit", "twitterbot", "linkedinbot",
	"ahrefsbot", "semrushbot", "mj12bot", "dotbot", "headless",
}

// UnknownCountry is recorded when no edge header names a country.
const UnknownCountry = "Unknown"

// CountryHeaders are consulted in order for a two-letter country code set by
// the CDN or reverse proxy in front of the site.
var CountryHeaders = []string{"CF-IPCountry", "X-Country-Code", "X-Vercel-IP-Country"}

// CountryFromHeader returns the visitor country derived from proxy headers.
func CountryFromHeader(h http.Header) string {
	for _, name := range CountryHeaders {
		v := strings.ToUpper(strings.TrimSpace(h.Get(name)))
		if len(v) != 2 || v == "XX" || v == "T1" {
			continue
		}
		if v[0] < 'A' || v[0] > 'Z' || v[1] < 'A' || v[1] > 'Z' {
			continue
		}
		return v
	}
	return UnknownCountry
}

// PageView is one immutable page-view event.
type PageView struct {
	SessionID string
	PageURL   string
	Browser   Browser
	Country   string
	Timestamp time.Time
}

// EventRequest is the JSON body of the ingestion endpoint.
type EventRequest struct {
	SessionID string `json:"sessionId"`
	PageURL   string `json:"pageUrl"`
	Browser   string `json:"browser"`
}

// ReportType names one of the aggregate views.
type ReportType string

const (
	ReportTotalVisitors      ReportType = "totalVisitors"
	ReportAverageSessionTime ReportType = "averageSessionTime"
	ReportVisitorsByCountry  ReportType = "visitorsByCountry"
	ReportVisitorsByBrowser  ReportType = "visitorsByBrowser"
	ReportPageViews          ReportType = "pageViews"
)

// ReportTypes lists every report in dashboard order.
var ReportTypes = []ReportType{
	ReportTotalVisitors,
	ReportAverageSessionTime,
	ReportVisitorsByCountry,
	ReportVisitorsByBrowser,
	ReportPageViews,
}

// ErrUnknownReport is returned for a type outside ReportTypes.
var ErrUnknownReport = errors.New("analytics: unknown report type")

// ParseReportType validates a ?type= value.
func ParseReportType(s string) (ReportType, error) {
	for _, t := range ReportTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", ErrUnknownReport
}

// TotalVisitors is the totalVisitors payload.
type TotalVisitors struct {
	TotalVisitors int `json:"totalVisitors"`
}

// AverageSessionTime is the averageSessionTime payload, in whole seconds.
type AverageSessionTime struct {
	AverageTime int `json:"averageTime"`
}

// CountryCount is one visitorsByCountry row.
type CountryCount struct {
	Country string `json:"country"`
	Count   int    `json:"count"`
}

// BrowserCount is one visitorsByBrowser row.
type BrowserCount struct {
	Browser string `json:"browser"`
	Count   int    `json:"count"`
}

// PageCount is one pageViews row.
type PageCount struct {
	PageURL string `json:"pageUrl"`
	Count   int    `json:"count"`
}

// Reader answers the five aggregate views. Grouped views are ordered by
// count descending and never nil.
type Reader interface {
	TotalVisitors(ctx context.Context) (int, error)
	AverageSessionTime(ctx context.Context) (int, error)
	VisitorsByCountry(ctx context.Context) ([]CountryCount, error)
	VisitorsByBrowser(ctx context.Context) ([]BrowserCount, error)
	PageViews(ctx context.Context) ([]PageCount, error)
}

// EventStore is an append-only page-view log that can aggregate itself.
type EventStore interface {
	Reader
	Record(ctx context.Context, pv PageView) error
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Close() error
}

// Query runs the named report against r and returns its JSON payload.
func Query(ctx context.Context, r Reader, t ReportType) (any, error) {
	switch t {
	case ReportTotalVisitors:
		n, err := r.TotalVisitors(ctx)
		return TotalVisitors{TotalVisitors: n}, err
	case ReportAverageSessionTime:
		n, err := r.AverageSessionTime(ctx)
		return AverageSessionTime{AverageTime: n}, err
	case ReportVisitorsByCountry:
		rows, err := r.VisitorsByCountry(ctx)
		if rows == nil {
			rows = []CountryCount{}
		}
		return rows, err
	case ReportVisitorsByBrowser:
		rows, err := r.VisitorsByBrowser(ctx)
		if rows == nil {
			rows = []BrowserCount{}
		}
		return rows, err
	case ReportPageViews:
		rows, err := r.PageViews(ctx)
		if rows == nil {
			rows = []PageCount{}
		}
		return rows, err
	}
	return nil, ErrUnknownReport
}
