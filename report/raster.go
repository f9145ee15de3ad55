package report

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Layout of the rasterized dashboard, before scaling.
const (
	canvasWidth = 800
	margin      = 20
	lineHeight  = 16
	cardHeight  = 56
	barHeight   = 200
	pieRadius   = 90
	rasterScale = 2
	tableRows   = 10
)

var (
	white    = color.RGBA{0xff, 0xff, 0xff, 0xff}
	ink      = color.RGBA{0x1f, 0x29, 0x37, 0xff}
	muted    = color.RGBA{0x6b, 0x72, 0x80, 0xff}
	rule     = color.RGBA{0xe5, 0xe7, 0xeb, 0xff}
	errorInk = color.RGBA{0xb9, 0x1c, 0x1c, 0xff}
	cardFill = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	fontFace = basicfont.Face7x13
)

type canvas struct {
	img *image.RGBA
	y   int
}

func (c *canvas) text(x, y int, s string, col color.Color) {
	d := font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: fontFace,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func (c *canvas) fill(r image.Rectangle, col color.Color) {
	draw.Draw(c.img, r, image.NewUniform(col), image.Point{}, draw.Src)
}

func (c *canvas) border(r image.Rectangle, col color.Color) {
	c.fill(image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1), col)
	c.fill(image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y), col)
	c.fill(image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y), col)
	c.fill(image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y), col)
}

func (c *canvas) heading(s string) {
	c.y += lineHeight + 8
	c.text(margin, c.y, s, ink)
	c.y += 6
	c.fill(image.Rect(margin, c.y, canvasWidth-margin, c.y+1), rule)
	c.y += 8
}

// stateLine draws the placeholder for a card that is not loaded and
// reports whether it did.
func (c *canvas) stateLine(st State) bool {
	switch st {
	case Loading:
		c.y += lineHeight
		c.text(margin, c.y, "Memuat...", muted)
	case Failed:
		c.y += lineHeight
		c.text(margin, c.y, "Gagal memuat data", errorInk)
	default:
		return false
	}
	c.y += 4
	return true
}

func truncate(s string, width int) string {
	limit := width / fontFace.Advance
	runes := []rune(s)
	if len(runes) <= limit || limit < 2 {
		return s
	}
	return string(runes[:limit-1]) + "~"
}

// Rasterize draws s into a bitmap. Text is rendered with a fixed bitmap font
// and the whole image is upscaled for print sharpness.
func Rasterize(s *Snapshot) *image.RGBA {
	height := estimateHeight(s)
	c := &canvas{img: image.NewRGBA(image.Rect(0, 0, canvasWidth, height))}
	c.fill(c.img.Bounds(), white)

	c.y = margin + lineHeight
	c.text(margin, c.y, "Dashboard Analitik", ink)
	c.text(canvasWidth-margin-font.MeasureString(fontFace, stamp(s)).Round(), c.y, stamp(s), muted)
	c.y += 12

	drawCards(c, s.StatCards())

	c.heading("Tampilan Halaman")
	if !c.stateLine(s.Pages.State) {
		drawBars(c, NewBarChart(s.Pages.Value, canvasWidth-2*margin, barHeight))
	}

	c.heading("Pengunjung per Browser")
	if !c.stateLine(s.Browsers.State) {
		drawPie(c, NewPieChart(s.Browsers.Value, pieRadius))
	}

	c.heading("Halaman Populer")
	if !c.stateLine(s.Pages.State) {
		rows := make([][2]string, 0, len(s.Pages.Value))
		for _, p := range s.Pages.Value {
			rows = append(rows, [2]string{p.PageURL, strconv.Itoa(p.Count)})
		}
		drawTable(c, [2]string{"Halaman", "Tampilan"}, rows)
	}

	c.heading("Pengunjung per Negara")
	if !c.stateLine(s.Countries.State) {
		rows := make([][2]string, 0, len(s.Countries.Value))
		for _, p := range s.Countries.Value {
			rows = append(rows, [2]string{p.Country, strconv.Itoa(p.Count)})
		}
		drawTable(c, [2]string{"Negara", "Pengunjung"}, rows)
	}

	return upscale(c.img, rasterScale)
}

func stamp(s *Snapshot) string {
	if s.GeneratedAt.IsZero() {
		return ""
	}
	return s.GeneratedAt.Format("02-01-2006 15:04")
}

func tableLen(n int) int {
	return max(min(n, tableRows), 1) + 1
}

func estimateHeight(s *Snapshot) int {
	h := margin + lineHeight + 12 + cardHeight + 8
	section := lineHeight + 22
	h += 4 * section
	h += barHeight + 8
	h += 2*pieRadius + 8
	h += tableLen(len(s.Pages.Value))*lineHeight + 8
	h += tableLen(len(s.Countries.Value))*lineHeight + 8
	return h + margin
}

func drawCards(c *canvas, cards []StatCard) {
	gap := 12
	w := (canvasWidth - 2*margin - gap*(len(cards)-1)) / len(cards)
	for i, card := range cards {
		x := margin + i*(w+gap)
		r := image.Rect(x, c.y, x+w, c.y+cardHeight)
		c.fill(r, cardFill)
		c.border(r, rule)
		c.text(x+10, c.y+lineHeight+2, card.Title, muted)
		value, col := card.Value, color.Color(ink)
		switch card.State {
		case Loading:
			value, col = "Memuat...", muted
		case Failed:
			value, col = "Gagal memuat", errorInk
		}
		c.text(x+10, c.y+2*lineHeight+12, truncate(value, w-20), col)
	}
	c.y += cardHeight + 8
}

func drawBars(c *canvas, bc BarChart) {
	top := c.y
	if len(bc.Bars) == 0 {
		c.text(margin, top+lineHeight, "Belum ada data", muted)
	}
	fill := RGBA(Palette[0])
	for _, b := range bc.Bars {
		x0 := margin + int(math.Round(b.X))
		r := image.Rect(x0, top+int(math.Round(b.Y)), x0+int(math.Round(b.W)), top+int(math.Round(b.Y+b.H)))
		c.fill(r, fill)
		label := fmt.Sprintf("%d", b.Value)
		c.text(x0, r.Min.Y-3, label, ink)
		c.text(x0, top+barHeight-6, truncate(b.Label, int(b.W)), muted)
	}
	c.fill(image.Rect(margin, top+barHeight-barAxis, canvasWidth-margin, top+barHeight-barAxis+1), rule)
	c.y = top + barHeight + 8
}

func drawPie(c *canvas, pc PieChart) {
	top := c.y
	r := int(pc.Radius)
	cx, cy := margin+r, top+r
	if len(pc.Slices) == 0 {
		c.text(margin, top+lineHeight, "Belum ada data", muted)
	}
	for y := -r; y < r; y++ {
		for x := -r; x < r; x++ {
			fx, fy := float64(x)+0.5, float64(y)+0.5
			if fx*fx+fy*fy > pc.Radius*pc.Radius {
				continue
			}
			a := math.Atan2(fx, -fy)
			if a < 0 {
				a += 2 * math.Pi
			}
			if i := pc.SliceAt(a); i >= 0 {
				c.img.SetRGBA(cx+x, cy+y, RGBA(pc.Slices[i].Color))
			}
		}
	}
	lx := cx + r + 30
	for i, s := range pc.Slices {
		ly := top + i*lineHeight
		c.fill(image.Rect(lx, ly+3, lx+10, ly+13), RGBA(s.Color))
		c.text(lx+16, ly+12, fmt.Sprintf("%s: %d (%.0f%%)", s.Label, s.Value, s.Percent()), ink)
	}
	c.y = top + 2*r + 8
}

func drawTable(c *canvas, header [2]string, rows [][2]string) {
	colX := canvasWidth - margin - 120
	c.y += lineHeight
	c.text(margin, c.y, header[0], muted)
	c.text(colX, c.y, header[1], muted)
	if len(rows) == 0 {
		c.y += lineHeight
		c.text(margin, c.y, "Belum ada data", muted)
	}
	for i, row := range rows {
		if i == tableRows {
			break
		}
		c.y += lineHeight
		c.text(margin, c.y, truncate(row[0], colX-margin-10), ink)
		c.text(colX, c.y, row[1], ink)
	}
	c.y += 8
}

func upscale(src *image.RGBA, factor int) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
