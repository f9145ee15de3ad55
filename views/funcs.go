package views

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/antlia/antlia/analytics"
	"github.com/antlia/antlia/report"
)

const (
	barWidth  = 560
	barHeight = 260
	pieRadius = 110
)

var cardTitles = map[analytics.ReportType]string{
	analytics.ReportTotalVisitors:      "Total Pengunjung",
	analytics.ReportAverageSessionTime: "Rata-rata Waktu Sesi",
	analytics.ReportVisitorsByCountry:  "Pengunjung per Negara",
	analytics.ReportVisitorsByBrowser:  "Pengunjung per Browser",
	analytics.ReportPageViews:          "Tampilan Halaman",
}

var funcs = template.FuncMap{
	// html marks article bodies, which are sanitized on save.
	"html": func(s string) template.HTML { return template.HTML(s) },
	"jsonld": func(s string) template.JS {
		return template.JS(s)
	},
	"href":        href,
	"year":        func() int { return time.Now().Year() },
	"seconds":     report.FormatSeconds,
	"percent":     func(f float64) string { return fmt.Sprintf("%.1f%%", f) },
	"reportTypes": func() []analytics.ReportType { return analytics.ReportTypes },
	"cardTitle":   func(t analytics.ReportType) string { return cardTitles[t] },
	"barSVG": func(rows []analytics.PageCount) template.HTML {
		return template.HTML(report.NewBarChart(rows, barWidth, barHeight).SVG())
	},
	"pie": func(rows []analytics.BrowserCount) report.PieChart {
		return report.NewPieChart(rows, pieRadius)
	},
	"svg":  func(pc report.PieChart) template.HTML { return template.HTML(pc.SVG()) },
	"css":  func(s string) template.CSS { return template.CSS(s) },
	"join": strings.Join,
	"statusLabel": func(published bool) string {
		if published {
			return "Terbit"
		}
		return "Draf"
	},
	"initial": func(s string) string {
		for _, r := range s {
			return strings.ToUpper(string(r))
		}
		return ""
	},
}

// href turns a navigation path into the canonical directory-style link.
func href(p string) string {
	if p == "" || p == "/" || strings.HasSuffix(p, "/") {
		return "/" + strings.TrimPrefix(p, "/")
	}
	return p + "/"
}
