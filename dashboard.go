package antlia

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/antlia/antlia/analytics"
	"github.com/antlia/antlia/report"
)

// handleAnalyticsDashboard renders the dashboard shell with every card
// loading; each card then fetches its own fragment.
func (a *App) handleAnalyticsDashboard(c echo.Context) error {
	snap := report.NewSnapshot(time.Now())
	return Render(c, a.Views.AdminAnalytics(a.adminPage(c, "Analitik"), snap))
}

func (a *App) handleAnalyticsCard(c echo.Context) error {
	t, err := analytics.ParseReportType(c.Param("type"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	snap := report.NewSnapshot(time.Now())
	if err := a.Dashboard.LoadCard(c.Request().Context(), snap, t); errors.Is(err, analytics.ErrUnknownReport) {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	return Render(c, a.Views.AnalyticsCard(t, snap))
}

func (a *App) handleAnalyticsPDF(c echo.Context) error {
	snap := a.Dashboard.Load(c.Request().Context())
	var buf bytes.Buffer
	if err := report.ExportPDF(&buf, snap); err != nil {
		return fmt.Errorf("export pdf: %w", err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, attachment(report.PDFFilename))
	return c.Blob(http.StatusOK, "application/pdf", buf.Bytes())
}

func (a *App) handleAnalyticsMarkdown(c echo.Context) error {
	snap := a.Dashboard.Load(c.Request().Context())
	var buf bytes.Buffer
	if err := report.WriteMarkdown(&buf, snap); err != nil {
		return fmt.Errorf("export markdown: %w", err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, attachment(report.MarkdownFilename))
	return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", buf.Bytes())
}

func attachment(name string) string {
	return fmt.Sprintf("attachment; filename=%q", name)
}
