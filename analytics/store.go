package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

var _ EventStore = (*SQLiteStore)(nil)

// SQLiteStore keeps the page-view log in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the analytics database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open analytics db: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS page_views (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			page_url TEXT NOT NULL,
			browser TEXT NOT NULL,
			country TEXT NOT NULL,
			ts INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_page_views_ts ON page_views(ts);
		CREATE INDEX IF NOT EXISTS idx_page_views_session ON page_views(session_id, ts);
		CREATE INDEX IF NOT EXISTS idx_page_views_page ON page_views(page_url);

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	return err
}

// currentSchemaVersion is the latest schema version. Increment when adding migrations.
const currentSchemaVersion = 1

func (s *SQLiteStore) migrate() error {
	verStr, err := s.getSetting("schema_version")
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	version := 0
	if verStr != "" {
		if version, err = strconv.Atoi(verStr); err != nil {
			return fmt.Errorf("parse schema version %q: %w", verStr, err)
		}
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("schema version %d is newer than supported %d", version, currentSchemaVersion)
	}
	return s.setSetting("schema_version", strconv.Itoa(currentSchemaVersion))
}

func (s *SQLiteStore) getSetting(key string) (string, error) {
	var val string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return val, err
}

func (s *SQLiteStore) setSetting(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// Record appends a page-view event.
func (s *SQLiteStore) Record(ctx context.Context, pv PageView) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO page_views (session_id, page_url, browser, country, ts) VALUES (?, ?, ?, ?, ?)`,
		pv.SessionID, pv.PageURL, string(pv.Browser), pv.Country, pv.Timestamp.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("insert page view: %w", err)
	}
	return nil
}

// TotalVisitors counts distinct sessions.
func (s *SQLiteStore) TotalVisitors(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT session_id) FROM page_views`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count visitors: %w", err)
	}
	return n, nil
}

// AverageSessionTime is the mean over sessions of last minus first event,
// in whole seconds.
func (s *SQLiteStore) AverageSessionTime(ctx context.Context) (int, error) {
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT AVG(duration) FROM (
			SELECT (MAX(ts) - MIN(ts)) / 1000.0 AS duration
			FROM page_views
			GROUP BY session_id
		)`).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("average session time: %w", err)
	}
	if !avg.Valid {
		return 0, nil
	}
	return int(math.Round(avg.Float64)), nil
}

// VisitorsByCountry counts distinct sessions per country.
func (s *SQLiteStore) VisitorsByCountry(ctx context.Context) ([]CountryCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT country, COUNT(DISTINCT session_id) AS c
		FROM page_views
		GROUP BY country
		ORDER BY c DESC, country ASC`)
	if err != nil {
		return nil, fmt.Errorf("visitors by country: %w", err)
	}
	defer rows.Close()
	out := []CountryCount{}
	for rows.Next() {
		var r CountryCount
		if err := rows.Scan(&r.Country, &r.Count); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// VisitorsByBrowser counts distinct sessions per browser family.
func (s *SQLiteStore) VisitorsByBrowser(ctx context.Context) ([]BrowserCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT browser, COUNT(DISTINCT session_id) AS c
		FROM page_views
		GROUP BY browser
		ORDER BY c DESC, browser ASC`)
	if err != nil {
		return nil, fmt.Errorf("visitors by browser: %w", err)
	}
	defer rows.Close()
	out := []BrowserCount{}
	for rows.Next() {
		var r BrowserCount
		if err := rows.Scan(&r.Browser, &r.Count); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PageViews counts events per page path.
func (s *SQLiteStore) PageViews(ctx context.Context) ([]PageCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT page_url, COUNT(*) AS c
		FROM page_views
		GROUP BY page_url
		ORDER BY c DESC, page_url ASC`)
	if err != nil {
		return nil, fmt.Errorf("page views: %w", err)
	}
	defer rows.Close()
	out := []PageCount{}
	for rows.Next() {
		var r PageCount
		if err := rows.Scan(&r.PageURL, &r.Count); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteBefore removes events older than cutoff.
func (s *SQLiteStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM page_views WHERE ts < ?`, cutoff.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("cleanup page views: %w", err)
	}
	return res.RowsAffected()
}

// StartCleanupScheduler periodically deletes events older than the retention
// period. Returns a stop function.
func StartCleanupScheduler(store EventStore, retentionDays int, interval time.Duration, logger *slog.Logger) func() {
	if logger == nil {
		logger = slog.Default()
	}
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
				n, err := store.DeleteBefore(context.Background(), cutoff)
				if err != nil {
					logger.Error("analytics cleanup failed", slog.Any("error", err))
					continue
				}
				if n > 0 {
					logger.Info("analytics cleanup", slog.Int64("deleted", n), slog.Time("cutoff", cutoff))
				}
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }
}
