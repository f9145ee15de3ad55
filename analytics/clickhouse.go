package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

var _ EventStore = (*ClickHouseStore)(nil)

// ClickHouseConfig addresses a ClickHouse server over the native protocol.
type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
}

// ClickHouseStore keeps the page-view log in a ClickHouse MergeTree table.
type ClickHouseStore struct {
	conn driver.Conn
}

// NewClickHouseStore connects, pings and creates the events table.
func NewClickHouseStore(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseStore, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		ClientInfo: clickhouse.ClientInfo{
			Products: []struct {
				Name    string
				Version string
			}{{Name: "antlia", Version: "1"}},
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := conn.Ping(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	s := &ClickHouseStore{conn: conn}
	if err := s.ensureSchema(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

func (s *ClickHouseStore) ensureSchema(ctx context.Context) error {
	return s.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS page_views (
			session_id String,
			page_url String,
			browser LowCardinality(String),
			country LowCardinality(String),
			ts DateTime64(3, 'UTC')
		)
		ENGINE = MergeTree
		ORDER BY (ts, session_id)`)
}

// Close closes the connection.
func (s *ClickHouseStore) Close() error {
	return s.conn.Close()
}

// Record appends a page-view event.
func (s *ClickHouseStore) Record(ctx context.Context, pv PageView) error {
	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO page_views (session_id, page_url, browser, country, ts)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	if err := batch.Append(pv.SessionID, pv.PageURL, string(pv.Browser), pv.Country, pv.Timestamp.UTC()); err != nil {
		return fmt.Errorf("append page view: %w", err)
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// TotalVisitors counts distinct sessions.
func (s *ClickHouseStore) TotalVisitors(ctx context.Context) (int, error) {
	var n uint64
	if err := s.conn.QueryRow(ctx, `SELECT uniqExact(session_id) FROM page_views`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count visitors: %w", err)
	}
	return int(n), nil
}

// AverageSessionTime is the mean over sessions of last minus first event,
// in whole seconds.
func (s *ClickHouseStore) AverageSessionTime(ctx context.Context) (int, error) {
	var avg float64
	err := s.conn.QueryRow(ctx, `
		SELECT ifNotFinite(avg(duration), 0) FROM (
			SELECT dateDiff('millisecond', min(ts), max(ts)) / 1000.0 AS duration
			FROM page_views
			GROUP BY session_id
		)`).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("average session time: %w", err)
	}
	return int(math.Round(avg)), nil
}

// VisitorsByCountry counts distinct sessions per country.
func (s *ClickHouseStore) VisitorsByCountry(ctx context.Context) ([]CountryCount, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT country, uniqExact(session_id) AS c
		FROM page_views
		GROUP BY country
		ORDER BY c DESC, country ASC`)
	if err != nil {
		return nil, fmt.Errorf("visitors by country: %w", err)
	}
	defer rows.Close()
	out := []CountryCount{}
	for rows.Next() {
		var (
			country string
			c       uint64
		)
		if err := rows.Scan(&country, &c); err != nil {
			return nil, err
		}
		out = append(out, CountryCount{Country: country, Count: int(c)})
	}
	return out, rows.Err()
}

// VisitorsByBrowser counts distinct sessions per browser family.
func (s *ClickHouseStore) VisitorsByBrowser(ctx context.Context) ([]BrowserCount, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT browser, uniqExact(session_id) AS c
		FROM page_views
		GROUP BY browser
		ORDER BY c DESC, browser ASC`)
	if err != nil {
		return nil, fmt.Errorf("visitors by browser: %w", err)
	}
	defer rows.Close()
	out := []BrowserCount{}
	for rows.Next() {
		var (
			browser string
			c       uint64
		)
		if err := rows.Scan(&browser, &c); err != nil {
			return nil, err
		}
		out = append(out, BrowserCount{Browser: browser, Count: int(c)})
	}
	return out, rows.Err()
}

// PageViews counts events per page path.
func (s *ClickHouseStore) PageViews(ctx context.Context) ([]PageCount, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT page_url, count() AS c
		FROM page_views
		GROUP BY page_url
		ORDER BY c DESC, page_url ASC`)
	if err != nil {
		return nil, fmt.Errorf("page views: %w", err)
	}
	defer rows.Close()
	out := []PageCount{}
	for rows.Next() {
		var (
			page string
			c    uint64
		)
		if err := rows.Scan(&page, &c); err != nil {
			return nil, err
		}
		out = append(out, PageCount{PageURL: page, Count: int(c)})
	}
	return out, rows.Err()
}

// DeleteBefore removes events older than cutoff. ClickHouse mutations are
// asynchronous, so the affected row count is not known and -1 is returned.
func (s *ClickHouseStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := s.conn.Exec(ctx, `ALTER TABLE page_views DELETE WHERE ts < ?`, cutoff.UTC()); err != nil {
		return 0, fmt.Errorf("cleanup page views: %w", err)
	}
	return -1, nil
}
