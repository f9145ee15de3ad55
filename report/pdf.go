package report

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"

	"github.com/go-pdf/fpdf"
)

// PDFFilename is the download name of the exported dashboard.
const PDFFilename = "laporan-analitik.pdf"

// pageOffsets returns the vertical image position on each page when an
// image of height imgH is laid across pages of height pageH. Every page
// shows the next pageH slice of the image.
func pageOffsets(imgH, pageH float64) []float64 {
	pages := int(math.Ceil(imgH/pageH - 1e-6))
	if pages < 1 {
		pages = 1
	}
	offsets := make([]float64, pages)
	for i := range offsets {
		offsets[i] = -float64(i) * pageH
	}
	return offsets
}

// WritePDF writes img into an A4 portrait document. The image spans the
// full page width, keeps its aspect ratio and continues onto further pages
// when taller than one page.
func WritePDF(w io.Writer, img image.Image) error {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return fmt.Errorf("report: empty image")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode dashboard: %w", err)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle("Laporan Analitik", true)

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("dashboard", opts, &buf)

	pageW, pageH := pdf.GetPageSize()
	imgH := float64(b.Dy()) * pageW / float64(b.Dx())
	for _, y := range pageOffsets(imgH, pageH) {
		pdf.AddPage()
		pdf.ImageOptions("dashboard", 0, y, pageW, imgH, false, opts, 0, "")
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	return pdf.Output(w)
}

// ExportPDF rasterizes s and writes it as a PDF.
func ExportPDF(w io.Writer, s *Snapshot) error {
	return WritePDF(w, Rasterize(s))
}
