package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownFilename is the download name of the Markdown report.
const MarkdownFilename = "laporan-analitik.md"

// WriteMarkdown writes s as a Markdown report with a mermaid pie chart of
// visitors by browser.
func WriteMarkdown(w io.Writer, s *Snapshot) error {
	md := markdown.NewMarkdown(w)

	md.H1("Laporan Analitik")
	if st := stamp(s); st != "" {
		md.PlainText("Dibuat: " + st)
	}
	md.PlainText("")

	rows := make([][]string, 0, 4)
	for _, card := range s.StatCards() {
		rows = append(rows, []string{card.Title, cardText(card.State, card.Value)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Metrik", "Nilai"},
		Rows:   rows,
	})
	md.PlainText("")

	writeBrowsers(md, s)
	writePages(md, s)
	writeCountries(md, s)

	return md.Build()
}

func cardText(st State, value string) string {
	switch st {
	case Loading:
		return "Memuat..."
	case Failed:
		return "Gagal memuat data"
	}
	return value
}

func failed(md *markdown.Markdown, st State, err error) bool {
	if st != Failed {
		return false
	}
	msg := "Gagal memuat data"
	if err != nil {
		msg += ": " + err.Error()
	}
	md.Warning(msg)
	md.PlainText("")
	return true
}

func writeBrowsers(md *markdown.Markdown, s *Snapshot) {
	md.H2("Pengunjung per Browser")
	md.PlainText("")
	if failed(md, s.Browsers.State, s.Browsers.Err) {
		return
	}
	pie := NewPieChart(s.Browsers.Value, 1)
	if len(pie.Slices) == 0 {
		md.PlainText("Belum ada data.")
		md.PlainText("")
		return
	}
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Pengunjung per Browser"),
		piechart.WithShowData(true),
	)
	for _, sl := range pie.Slices {
		chart.LabelAndIntValue(sl.Label, uint64(sl.Value))
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func writePages(md *markdown.Markdown, s *Snapshot) {
	md.H2("Tampilan Halaman")
	md.PlainText("")
	if failed(md, s.Pages.State, s.Pages.Err) {
		return
	}
	rows := make([][]string, 0, len(s.Pages.Value))
	for _, p := range s.Pages.Value {
		rows = append(rows, []string{"`" + p.PageURL + "`", strconv.Itoa(p.Count)})
	}
	writeTable(md, []string{"Halaman", "Tampilan"}, rows)
}

func writeCountries(md *markdown.Markdown, s *Snapshot) {
	md.H2("Pengunjung per Negara")
	md.PlainText("")
	if failed(md, s.Countries.State, s.Countries.Err) {
		return
	}
	rows := make([][]string, 0, len(s.Countries.Value))
	for _, c := range s.Countries.Value {
		rows = append(rows, []string{c.Country, strconv.Itoa(c.Count)})
	}
	writeTable(md, []string{"Negara", "Pengunjung"}, rows)
}

func writeTable(md *markdown.Markdown, header []string, rows [][]string) {
	if len(rows) == 0 {
		md.PlainText("Belum ada data.")
		md.PlainText("")
		return
	}
	md.Table(markdown.TableSet{Header: header, Rows: rows})
	md.PlainText("")
}
