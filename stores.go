package antlia

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/antlia/antlia/analytics"
	"github.com/antlia/antlia/article"
	"github.com/antlia/antlia/media"
	"github.com/antlia/antlia/report"
	"github.com/antlia/antlia/tracker"
)

const (
	analyticsPath      = "/api/analytics"
	mediaPath          = "/media"
	cleanupInterval    = 24 * time.Hour
	reportTokenSubject = "dashboard"
)

// Migrator is implemented by stores with versioned schema migrations.
type Migrator interface {
	Migrate(ctx context.Context, logger *slog.Logger) error
}

// OpenArticleRepository opens the article backend selected by cfg.
func OpenArticleRepository(ctx context.Context, cfg SiteConfig) (article.Repository, error) {
	switch cfg.ArticleDriver {
	case "postgres":
		store, err := article.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open article store: %w", err)
		}
		return store, nil
	default:
		if err := ensureDir(cfg.DatabasePath); err != nil {
			return nil, err
		}
		store, err := article.NewSQLiteStore(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("open article store: %w", err)
		}
		return store, nil
	}
}

// OpenEventStore opens the page-view store selected by cfg.
func OpenEventStore(ctx context.Context, cfg SiteConfig) (analytics.EventStore, error) {
	switch cfg.AnalyticsDriver {
	case "clickhouse":
		store, err := analytics.NewClickHouseStore(ctx, analytics.ClickHouseConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
		})
		if err != nil {
			return nil, fmt.Errorf("open event store: %w", err)
		}
		return store, nil
	default:
		if err := ensureDir(cfg.AnalyticsDatabasePath); err != nil {
			return nil, err
		}
		store, err := analytics.NewSQLiteStore(cfg.AnalyticsDatabasePath)
		if err != nil {
			return nil, fmt.Errorf("open event store: %w", err)
		}
		return store, nil
	}
}

// OpenMediaStorage opens the upload backend selected by cfg.
func OpenMediaStorage(ctx context.Context, cfg SiteConfig) (media.Storage, error) {
	if cfg.MediaDriver == "s3" {
		store, err := media.NewS3Storage(ctx, media.S3Config{
			Bucket:         cfg.S3Bucket,
			Region:         cfg.S3Region,
			AccessKeyID:    cfg.S3AccessKeyID,
			SecretKey:      cfg.S3SecretAccessKey,
			Endpoint:       cfg.S3Endpoint,
			BaseURL:        cfg.S3BaseURL,
			ForcePathStyle: cfg.S3ForcePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("open media storage: %w", err)
		}
		return store, nil
	}
	return media.NewLocalStorage(cfg.MediaDir, mediaPath), nil
}

// OpenReportCache returns a Redis cache when REDIS_URL is set and an
// in-process cache otherwise.
func OpenReportCache(ctx context.Context, cfg SiteConfig) (analytics.Cache, func() error, error) {
	if cfg.RedisURL == "" {
		return analytics.NewMemoryCache(), func() error { return nil }, nil
	}
	rc, err := analytics.NewRedisCache(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open report cache: %w", err)
	}
	return rc, rc.Close, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return nil
}

func (a *App) openStores(ctx context.Context) error {
	if a.Articles == nil {
		repo, err := OpenArticleRepository(ctx, a.Config)
		if err != nil {
			return err
		}
		a.Articles = repo
		a.closers = append(a.closers, repo.Close)
		if m, ok := repo.(Migrator); ok {
			if err := m.Migrate(ctx, a.logger); err != nil {
				return err
			}
		}
	}

	if a.mediaStore == nil {
		store, err := OpenMediaStorage(ctx, a.Config)
		if err != nil {
			return err
		}
		a.mediaStore = store
	}
	a.uploader = media.NewUploader(a.mediaStore)
	return nil
}

// setupAnalytics wires the collection endpoint, the tracker and the
// dashboard. With ANALYTICS_ENABLED the site hosts the endpoint itself;
// ANALYTICS_ENDPOINT points the tracker and dashboard at a remote one.
func (a *App) setupAnalytics(ctx context.Context) error {
	a.reportAuth = analytics.NewTokenAuth(a.Config.ReportTokenSecret, 0)

	var (
		sender tracker.Sender
		source analytics.Reader
	)

	if a.Config.AnalyticsEnabled {
		if a.events == nil {
			store, err := OpenEventStore(ctx, a.Config)
			if err != nil {
				return err
			}
			a.events = store
			a.closers = append(a.closers, store.Close)
		}

		cache, closeCache, err := OpenReportCache(ctx, a.Config)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, closeCache)

		reader := analytics.NewCachedReader(a.events, cache, a.Config.ReportCacheTTL, a.logger)
		a.collector = analytics.NewHandler(a.events, analytics.WithReader(reader))
		a.closers = append(a.closers, closeFunc(a.collector.Close))

		stop := analytics.StartCleanupScheduler(a.events, a.Config.AnalyticsRetentionDays, cleanupInterval, a.logger)
		a.closers = append(a.closers, closeFunc(stop))

		sender = tracker.NewStoreSender(a.events)
		source = reader
	}

	if a.Config.AnalyticsEndpoint != "" && !a.isLocalEndpoint() {
		sender = tracker.NewHTTPSender(a.Config.AnalyticsEndpoint, nil)
		source = report.NewHTTPSource(a.Config.AnalyticsEndpoint, "", nil).WithTokenFunc(func() (string, error) {
			return a.reportAuth.Issue(reportTokenSubject)
		})
		if !a.reportAuth.Enabled() {
			a.logger.Warn("REPORT_TOKEN_SECRET is not set; remote analytics reads will fail")
		}
	}

	if sender != nil {
		a.Tracker = tracker.New(sender, tracker.WithLogger(a.logger))
		a.closers = append(a.closers, closeFunc(a.Tracker.Close))
	}
	if source != nil {
		a.Dashboard = report.NewDashboard(source, report.WithLogger(a.logger))
	}
	return nil
}

// isLocalEndpoint reports whether ANALYTICS_ENDPOINT is this site's own
// collection endpoint, which is served in-process.
func (a *App) isLocalEndpoint() bool {
	if !a.Config.AnalyticsEnabled {
		return false
	}
	u, err := url.Parse(a.Config.AnalyticsEndpoint)
	if err != nil {
		return false
	}
	self, err := url.Parse(a.Config.URL)
	if err != nil {
		return false
	}
	return u.Host == self.Host && u.Path == analyticsPath
}
