package antlia

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/antlia/antlia/analytics"
	"github.com/antlia/antlia/article"
	"github.com/antlia/antlia/media"
	"github.com/antlia/antlia/site"
)

// SiteConfig holds all configuration for the site. Every field can be set
// from the environment.
type SiteConfig struct {
	Name        string `env:"SITE_NAME"`        // default "ANTLIA"
	URL         string `env:"SITE_URL"`         // canonical URL, default "http://localhost:3000"
	Description string `env:"SITE_DESCRIPTION"` // RSS and meta description

	Addr string `env:"ADDR"` // listen address, default ":3000"

	ArticleDriver string `env:"ARTICLE_DRIVER"` // "sqlite" (default) or "postgres"
	DatabasePath  string `env:"DATABASE_PATH"`  // SQLite path, default "data/antlia.db"
	DatabaseURL   string `env:"DATABASE_URL"`   // Postgres DSN

	AnalyticsEnabled       bool          `env:"ANALYTICS_ENABLED" envDefault:"true"`
	AnalyticsDriver        string        `env:"ANALYTICS_DRIVER"` // "sqlite" (default) or "clickhouse"
	AnalyticsDatabasePath  string        `env:"ANALYTICS_DATABASE_PATH"`
	ClickHouseAddr         string        `env:"CLICKHOUSE_ADDR"`
	ClickHouseDatabase     string        `env:"CLICKHOUSE_DATABASE"`
	ClickHouseUsername     string        `env:"CLICKHOUSE_USERNAME"`
	ClickHousePassword     string        `env:"CLICKHOUSE_PASSWORD"`
	AnalyticsEndpoint      string        `env:"ANALYTICS_ENDPOINT"` // remote aggregation endpoint; empty records in-process
	AnalyticsRetentionDays int           `env:"ANALYTICS_RETENTION_DAYS"`
	ReportCacheTTL         time.Duration `env:"REPORT_CACHE_TTL"`
	RedisURL               string        `env:"REDIS_URL"`
	ReportTokenSecret      string        `env:"REPORT_TOKEN_SECRET"`

	AdminPassword string `env:"ADMIN_PASSWORD"` // required; plain text or bcrypt hash
	SessionSecret string `env:"SESSION_SECRET"` // required
	CookieSecure  bool   `env:"COOKIE_SECURE"`

	MediaDriver       string `env:"MEDIA_DRIVER"` // "local" (default) or "s3"
	MediaDir          string `env:"MEDIA_DIR"`
	S3Bucket          string `env:"S3_BUCKET"`
	S3Region          string `env:"S3_REGION"`
	S3Endpoint        string `env:"S3_ENDPOINT"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	S3BaseURL         string `env:"S3_BASE_URL"`
	S3ForcePathStyle  bool   `env:"S3_FORCE_PATH_STYLE"`

	WhatsAppNumber  string        `env:"WHATSAPP_NUMBER"`
	ArticleCacheTTL time.Duration `env:"ARTICLE_CACHE_TTL"`
	ContentFile     string        `env:"CONTENT_FILE"` // YAML site content; empty uses the built-in copy
}

// LoadConfig reads .env when present, then the environment.
func LoadConfig() (SiteConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return SiteConfig{}, fmt.Errorf("load .env: %w", err)
	}
	return parseConfig(env.Options{})
}

func parseConfig(opts env.Options) (SiteConfig, error) {
	var cfg SiteConfig
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return SiteConfig{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills unset fields with their defaults.
func (c *SiteConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "ANTLIA"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	c.URL = strings.TrimSuffix(c.URL, "/")
	if c.Description == "" {
		c.Description = "Konsultasi IT, solusi bisnis dan pelatihan untuk perusahaan Indonesia."
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.ArticleDriver == "" {
		c.ArticleDriver = "sqlite"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/antlia.db"
	}
	if c.AnalyticsDriver == "" {
		c.AnalyticsDriver = "sqlite"
	}
	if c.AnalyticsDatabasePath == "" {
		c.AnalyticsDatabasePath = "data/analytics.db"
	}
	if c.ClickHouseDatabase == "" {
		c.ClickHouseDatabase = "default"
	}
	if c.AnalyticsRetentionDays == 0 {
		c.AnalyticsRetentionDays = 365
	}
	if c.ReportCacheTTL == 0 {
		c.ReportCacheTTL = time.Minute
	}
	if c.MediaDriver == "" {
		c.MediaDriver = "local"
	}
	if c.MediaDir == "" {
		c.MediaDir = "data/media"
	}
	if c.WhatsAppNumber == "" {
		c.WhatsAppNumber = "6285846612211"
	}
	if c.ArticleCacheTTL == 0 {
		c.ArticleCacheTTL = 5 * time.Minute
	}
}

// Validate reports settings the server cannot start without.
func (c SiteConfig) Validate() error {
	var errs []error
	if c.AdminPassword == "" {
		errs = append(errs, errors.New("ADMIN_PASSWORD is required"))
	}
	if c.SessionSecret == "" {
		errs = append(errs, errors.New("SESSION_SECRET is required"))
	}
	switch c.ArticleDriver {
	case "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ARTICLE_DRIVER %q", c.ArticleDriver))
	}
	switch c.AnalyticsDriver {
	case "sqlite", "clickhouse":
	default:
		errs = append(errs, fmt.Errorf("unknown ANALYTICS_DRIVER %q", c.AnalyticsDriver))
	}
	switch c.MediaDriver {
	case "local":
	case "s3":
		if c.S3Bucket == "" || c.S3Region == "" {
			errs = append(errs, errors.New("S3_BUCKET and S3_REGION are required for the s3 media driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown MEDIA_DRIVER %q", c.MediaDriver))
	}
	return errors.Join(errs...)
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithLogger sets the logger of background services.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.logger = l
	}
}

// WithCatalog replaces the site content.
func WithCatalog(c *site.Catalog) Option {
	return func(a *App) {
		a.Catalog = c
	}
}

// WithArticleRepository uses repo instead of opening one from the config.
func WithArticleRepository(repo article.Repository) Option {
	return func(a *App) {
		a.Articles = repo
	}
}

// WithEventStore uses store instead of opening one from the config.
func WithEventStore(store analytics.EventStore) Option {
	return func(a *App) {
		a.events = store
	}
}

// WithMediaStorage uses store for uploads instead of the configured driver.
func WithMediaStorage(store media.Storage) Option {
	return func(a *App) {
		a.mediaStore = store
	}
}
