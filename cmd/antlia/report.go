package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/antlia/antlia"
	"github.com/antlia/antlia/analytics"
	"github.com/antlia/antlia/report"
)

const (
	formatPDF      = "pdf"
	formatMarkdown = "md"
	stdoutPath     = "-"
	cliTokenName   = "cli"
)

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export the analytics dashboard",
		Long: `Report loads every dashboard card and writes the result as PDF or Markdown.

Reports are read from ANALYTICS_ENDPOINT when it is set, otherwise straight
from the configured page-view store.

Examples:
  antlia report
  antlia report --format md --out -`,
		Args: cobra.NoArgs,
		RunE: runReport,
	}
	cmd.Flags().StringP("format", "f", formatPDF, "Output format: pdf or md")
	cmd.Flags().StringP("out", "o", "", `Output file ("-" for stdout; default laporan-analitik.<format>)`)
	cmd.Flags().Duration("timeout", 30*time.Second, "Timeout for loading all cards")
	return cmd
}

func runReport(cmd *cobra.Command, _ []string) error {
	logger := setupLogger(cmd)
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("out")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	write, name, err := reportWriter(format)
	if err != nil {
		return err
	}
	if out == "" {
		out = name
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	source, closeSource, err := reportSource(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeSource()

	snap := report.NewDashboard(source, report.WithLogger(logger), report.WithTimeout(timeout)).Load(cmd.Context())

	var buf bytes.Buffer
	if err := write(&buf, snap); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	if out == stdoutPath {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	logger.Info("report written", slog.String("path", out))
	return nil
}

func reportWriter(format string) (func(io.Writer, *report.Snapshot) error, string, error) {
	switch format {
	case formatPDF:
		return report.ExportPDF, report.PDFFilename, nil
	case formatMarkdown:
		return report.WriteMarkdown, report.MarkdownFilename, nil
	default:
		return nil, "", fmt.Errorf("unknown format %q (want %s or %s)", format, formatPDF, formatMarkdown)
	}
}

// reportSource reads from the remote endpoint when one is configured and
// from the local event store otherwise.
func reportSource(cmd *cobra.Command, cfg antlia.SiteConfig) (analytics.Reader, func() error, error) {
	if cfg.AnalyticsEndpoint != "" {
		auth := analytics.NewTokenAuth(cfg.ReportTokenSecret, 0)
		src := report.NewHTTPSource(cfg.AnalyticsEndpoint, "", nil).WithTokenFunc(func() (string, error) {
			return auth.Issue(cliTokenName)
		})
		return src, func() error { return nil }, nil
	}
	store, err := antlia.OpenEventStore(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}
