package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"

	"github.com/antlia/antlia"
)

const appName = "antlia"

// xdgDataDir selects the platform data directory for --data-dir.
const xdgDataDir = "xdg"

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   appName,
		Short: "ANTLIA company website",
		Long: `antlia serves the ANTLIA company website: marketing pages, articles,
the admin back-office and the page-view analytics dashboard.

Settings come from the environment and an optional .env file. SQLite databases and
uploaded media live under --data-dir unless DATABASE_PATH,
ANALYTICS_DATABASE_PATH or MEDIA_DIR say otherwise.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().String("data-dir", "",
		`Directory for databases and uploads ("xdg" uses the platform data directory)`)

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewReportCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// loadConfig reads the environment and applies --data-dir.
func loadConfig(cmd *cobra.Command) (antlia.SiteConfig, error) {
	cfg, err := antlia.LoadConfig()
	if err != nil {
		return antlia.SiteConfig{}, err
	}
	dir, _ := cmd.Flags().GetString("data-dir")
	applyDataDir(&cfg, resolveDataDir(dir))
	return cfg, nil
}

func resolveDataDir(dir string) string {
	if dir == xdgDataDir {
		return filepath.Join(xdg.DataHome, appName)
	}
	return dir
}

// applyDataDir moves the databases and media directory that still point at
// their built-in locations under dir.
func applyDataDir(cfg *antlia.SiteConfig, dir string) {
	if dir == "" {
		return
	}
	defaults := antlia.SiteConfig{}
	defaults.ApplyDefaults()
	if cfg.DatabasePath == defaults.DatabasePath {
		cfg.DatabasePath = filepath.Join(dir, filepath.Base(defaults.DatabasePath))
	}
	if cfg.AnalyticsDatabasePath == defaults.AnalyticsDatabasePath {
		cfg.AnalyticsDatabasePath = filepath.Join(dir, filepath.Base(defaults.AnalyticsDatabasePath))
	}
	if cfg.MediaDir == defaults.MediaDir {
		cfg.MediaDir = filepath.Join(dir, filepath.Base(defaults.MediaDir))
	}
}
