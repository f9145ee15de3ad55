package report

import (
	"fmt"
	"html"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/antlia/antlia/analytics"
)

// Palette is the chart colour cycle.
var Palette = []string{"#0088FE", "#00C49F", "#FFBB28", "#FF8042", "#8884d8", "#82ca9d", "#ffc658"}

// ColorAt returns the palette colour for the i-th data point.
func ColorAt(i int) string {
	return Palette[i%len(Palette)]
}

// RGBA parses a #rrggbb colour. Malformed input yields opaque black.
func RGBA(hex string) color.RGBA {
	c := color.RGBA{A: 0xff}
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return c
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return c
	}
	c.R, c.G, c.B = uint8(v>>16), uint8(v>>8), uint8(v)
	return c
}

// Bar is one bar of a vertical bar chart, in chart coordinates.
type Bar struct {
	Label string
	Value int
	X, Y  float64
	W, H  float64
}

// BarChart lays out page views as vertical bars.
type BarChart struct {
	Width, Height float64
	Bars          []Bar
	Max           int
}

const (
	barAxis = 24.0
	barGap  = 0.2
)

// NewBarChart scales rows into a width x height plot area. The tallest bar
// fills the area above the label axis.
func NewBarChart(rows []analytics.PageCount, width, height float64) BarChart {
	bc := BarChart{Width: width, Height: height}
	if len(rows) == 0 {
		return bc
	}
	for _, r := range rows {
		bc.Max = max(bc.Max, r.Count)
	}
	slot := width / float64(len(rows))
	plot := height - barAxis
	for i, r := range rows {
		h := 0.0
		if bc.Max > 0 {
			h = plot * float64(r.Count) / float64(bc.Max)
		}
		bc.Bars = append(bc.Bars, Bar{
			Label: r.PageURL,
			Value: r.Count,
			X:     float64(i)*slot + slot*barGap/2,
			Y:     plot - h,
			W:     slot * (1 - barGap),
			H:     h,
		})
	}
	return bc
}

// SVG renders the chart as an inline svg element.
func (bc BarChart) SVG() string {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg class="chart chart-bar" viewBox="0 0 %s %s" role="img" aria-label="Tampilan per halaman">`, num(bc.Width), num(bc.Height))
	for _, bar := range bc.Bars {
		fmt.Fprintf(&b, `<rect x="%s" y="%s" width="%s" height="%s" fill="%s"><title>%s: %d</title></rect>`,
			num(bar.X), num(bar.Y), num(bar.W), num(bar.H), Palette[0], html.EscapeString(bar.Label), bar.Value)
		fmt.Fprintf(&b, `<text x="%s" y="%s" text-anchor="middle" font-size="10">%s</text>`,
			num(bar.X+bar.W/2), num(bc.Height-barAxis/3), html.EscapeString(bar.Label))
	}
	b.WriteString(`</svg>`)
	return b.String()
}

// Slice is one pie segment. Angles are in radians, clockwise from 12 o'clock.
type Slice struct {
	Label      string
	Value      int
	Color      string
	Start, End float64
}

// Percent is the share of the slice, 0 to 100.
func (s Slice) Percent() float64 {
	return (s.End - s.Start) / (2 * math.Pi) * 100
}

// PieChart lays out visitors by browser.
type PieChart struct {
	Radius float64
	Slices []Slice
}

// NewPieChart builds one slice per row with a positive count, coloured by
// list position. An empty list gives a pie with no slices.
func NewPieChart(rows []analytics.BrowserCount, radius float64) PieChart {
	pc := PieChart{Radius: radius}
	total := 0
	for _, r := range rows {
		total += max(r.Count, 0)
	}
	if total == 0 {
		return pc
	}
	angle := 0.0
	for i, r := range rows {
		if r.Count <= 0 {
			continue
		}
		sweep := 2 * math.Pi * float64(r.Count) / float64(total)
		pc.Slices = append(pc.Slices, Slice{
			Label: r.Browser,
			Value: r.Count,
			Color: ColorAt(i),
			Start: angle,
			End:   angle + sweep,
		})
		angle += sweep
	}
	return pc
}

// SliceAt returns the index of the slice covering angle a, or -1.
func (pc PieChart) SliceAt(a float64) int {
	for i, s := range pc.Slices {
		if a >= s.Start && a < s.End {
			return i
		}
	}
	if n := len(pc.Slices); n > 0 && a >= pc.Slices[n-1].End-1e-9 {
		return n - 1
	}
	return -1
}

func (pc PieChart) point(a float64) (float64, float64) {
	return pc.Radius + pc.Radius*math.Sin(a), pc.Radius - pc.Radius*math.Cos(a)
}

// SVG renders the pie as an inline svg element.
func (pc PieChart) SVG() string {
	var b strings.Builder
	d := num(pc.Radius * 2)
	fmt.Fprintf(&b, `<svg class="chart chart-pie" viewBox="0 0 %s %s" role="img" aria-label="Pengunjung per browser">`, d, d)
	for _, s := range pc.Slices {
		title := fmt.Sprintf("<title>%s: %d</title>", html.EscapeString(s.Label), s.Value)
		if len(pc.Slices) == 1 {
			fmt.Fprintf(&b, `<circle cx="%s" cy="%s" r="%s" fill="%s">%s</circle>`, num(pc.Radius), num(pc.Radius), num(pc.Radius), s.Color, title)
			continue
		}
		x0, y0 := pc.point(s.Start)
		x1, y1 := pc.point(s.End)
		large := 0
		if s.End-s.Start > math.Pi {
			large = 1
		}
		fmt.Fprintf(&b, `<path d="M%s %s L%s %s A%s %s 0 %d 1 %s %s Z" fill="%s">%s</path>`,
			num(pc.Radius), num(pc.Radius), num(x0), num(y0), num(pc.Radius), num(pc.Radius), large, num(x1), num(y1), s.Color, title)
	}
	b.WriteString(`</svg>`)
	return b.String()
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
