package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/antlia/antlia"
)

// NewMigrateCmd creates the migrate command.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schemas",
		Long: `Migrate brings the article store and, when analytics is enabled, the
page-view store up to date. Postgres runs versioned migrations; SQLite and
ClickHouse create their tables on open.`,
		Args: cobra.NoArgs,
		RunE: runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	logger := setupLogger(cmd)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	repo, err := antlia.OpenArticleRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()
	if m, ok := repo.(antlia.Migrator); ok {
		if err := m.Migrate(ctx, logger); err != nil {
			return err
		}
	}
	logger.Info("article store ready", slog.String("driver", cfg.ArticleDriver))

	if !cfg.AnalyticsEnabled {
		return nil
	}
	store, err := antlia.OpenEventStore(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Info("event store ready", slog.String("driver", cfg.AnalyticsDriver))
	return store.Close()
}
