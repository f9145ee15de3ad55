// Package report loads the five analytics views into a dashboard snapshot
// and renders it as charts, a raster image, a PDF or Markdown.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/antlia/antlia/analytics"
)

// NotAvailable is shown where a top entry does not exist.
const NotAvailable = "N/A"

// State is the lifecycle of one dashboard card.
type State int

const (
	Loading State = iota
	Loaded
	Failed
)

func (s State) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	}
	return "loading"
}

// Card holds one report result and its load state.
type Card[T any] struct {
	State State
	Value T
	Err   error
}

func (c *Card[T]) resolve(v T, err error) {
	if err != nil {
		c.State = Failed
		c.Err = err
		return
	}
	c.State = Loaded
	c.Value = v
}

// Snapshot is the dashboard at one point in time. Each card resolves
// independently of the others.
type Snapshot struct {
	GeneratedAt        time.Time
	TotalVisitors      Card[int]
	AverageSessionTime Card[int]
	Countries          Card[[]analytics.CountryCount]
	Browsers           Card[[]analytics.BrowserCount]
	Pages              Card[[]analytics.PageCount]
}

// NewSnapshot returns a snapshot with every card still loading.
func NewSnapshot(now time.Time) *Snapshot {
	return &Snapshot{GeneratedAt: now}
}

// Dashboard reads the aggregate views from a source.
type Dashboard struct {
	source  analytics.Reader
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

// Option configures a Dashboard.
type Option func(*Dashboard)

// WithLogger sets the logger for failed card loads.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dashboard) { d.logger = l }
}

// WithTimeout bounds each individual read. Zero disables the bound.
func WithTimeout(t time.Duration) Option {
	return func(d *Dashboard) { d.timeout = t }
}

// NewDashboard returns a Dashboard reading from source.
func NewDashboard(source analytics.Reader, opts ...Option) *Dashboard {
	d := &Dashboard{source: source, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Load issues all five reads concurrently and waits for them. A failed read
// marks its own card Failed and leaves the others untouched.
func (d *Dashboard) Load(ctx context.Context) *Snapshot {
	s := NewSnapshot(d.now())
	var g errgroup.Group
	for _, t := range analytics.ReportTypes {
		g.Go(func() error {
			d.LoadCard(ctx, s, t)
			return nil
		})
	}
	_ = g.Wait()
	return s
}

// LoadCard resolves the card for report t in s. Concurrent calls for
// different report types are safe.
func (d *Dashboard) LoadCard(ctx context.Context, s *Snapshot, t analytics.ReportType) error {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	var err error
	switch t {
	case analytics.ReportTotalVisitors:
		var n int
		n, err = d.source.TotalVisitors(ctx)
		s.TotalVisitors.resolve(n, err)
	case analytics.ReportAverageSessionTime:
		var n int
		n, err = d.source.AverageSessionTime(ctx)
		s.AverageSessionTime.resolve(n, err)
	case analytics.ReportVisitorsByCountry:
		var rows []analytics.CountryCount
		rows, err = d.source.VisitorsByCountry(ctx)
		s.Countries.resolve(rows, err)
	case analytics.ReportVisitorsByBrowser:
		var rows []analytics.BrowserCount
		rows, err = d.source.VisitorsByBrowser(ctx)
		s.Browsers.resolve(rows, err)
	case analytics.ReportPageViews:
		var rows []analytics.PageCount
		rows, err = d.source.PageViews(ctx)
		s.Pages.resolve(rows, err)
	default:
		return analytics.ErrUnknownReport
	}
	if err != nil {
		d.logger.Error("analytics report failed", slog.String("type", string(t)), slog.Any("error", err))
	}
	return err
}

// FormatSeconds renders a duration the way the stat card shows it:
// "45 detik" below a minute, "2 menit 5 detik" from a minute up.
func FormatSeconds(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	if seconds < 60 {
		return fmt.Sprintf("%d detik", seconds)
	}
	return fmt.Sprintf("%d menit %d detik", seconds/60, seconds%60)
}

// TopCountry is the first country of the ordered list, or NotAvailable.
func (s *Snapshot) TopCountry() string {
	if s.Countries.State != Loaded || len(s.Countries.Value) == 0 {
		return NotAvailable
	}
	return s.Countries.Value[0].Country
}

// TopBrowser is the first browser of the ordered list, or NotAvailable.
func (s *Snapshot) TopBrowser() string {
	if s.Browsers.State != Loaded || len(s.Browsers.Value) == 0 {
		return NotAvailable
	}
	return s.Browsers.Value[0].Browser
}

// StatCard is one headline figure of the dashboard.
type StatCard struct {
	Title string
	Value string
	State State
}

// StatCards returns the four headline cards in display order.
func (s *Snapshot) StatCards() []StatCard {
	return []StatCard{
		{Title: "Total Pengunjung", Value: fmt.Sprint(s.TotalVisitors.Value), State: s.TotalVisitors.State},
		{Title: "Rata-rata Waktu Sesi", Value: FormatSeconds(s.AverageSessionTime.Value), State: s.AverageSessionTime.State},
		{Title: "Negara Teratas", Value: s.TopCountry(), State: s.Countries.State},
		{Title: "Browser Teratas", Value: s.TopBrowser(), State: s.Browsers.State},
	}
}
