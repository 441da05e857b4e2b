package render

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/rmitchellscott/kindling/internal/imageprocessing"
)

// Align positions text horizontally relative to its anchor.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

var (
	White     = color.Gray{Y: 255}
	Black     = color.Gray{Y: 0}
	LightGrey = color.Gray{Y: 204}
)

// Surface is a width × height raster with a 2D drawing API. Every render
// allocates its own surface; surfaces are never shared or reused.
type Surface struct {
	dc       *gg.Context
	fonts    *Fonts
	fontSize float64
}

// NewSurface allocates a surface cleared to white.
func NewSurface(width, height int, fonts *Fonts) *Surface {
	s := &Surface{dc: gg.NewContext(width, height), fonts: fonts}
	s.Clear(White)
	s.SetFontSize(20)
	return s
}

func (s *Surface) Width() int  { return s.dc.Width() }
func (s *Surface) Height() int { return s.dc.Height() }

// Context exposes the underlying gg context for drawing not covered by
// the helpers below.
func (s *Surface) Context() *gg.Context { return s.dc }

// Clear fills the whole surface with c.
func (s *Surface) Clear(c color.Color) {
	s.dc.SetColor(c)
	s.dc.Clear()
}

// FillRect fills the rectangle at (x, y) of size w × h.
func (s *Surface) FillRect(x, y, w, h float64, c color.Color) {
	s.dc.SetColor(c)
	s.dc.DrawRectangle(x, y, w, h)
	s.dc.Fill()
}

// StrokeRect outlines a rectangle.
func (s *Surface) StrokeRect(x, y, w, h, lineWidth float64, c color.Color) {
	s.dc.SetColor(c)
	s.dc.SetLineWidth(lineWidth)
	s.dc.DrawRectangle(x, y, w, h)
	s.dc.Stroke()
}

// Line strokes a line between two points.
func (s *Surface) Line(x1, y1, x2, y2, lineWidth float64, c color.Color) {
	s.dc.SetColor(c)
	s.dc.SetLineWidth(lineWidth)
	s.dc.DrawLine(x1, y1, x2, y2)
	s.dc.Stroke()
}

// SetFontSize selects the face used by Text and MeasureText.
func (s *Surface) SetFontSize(size float64) {
	if size == s.fontSize {
		return
	}
	s.fontSize = size
	s.dc.SetFontFace(s.fonts.Face(size))
}

// FontSize returns the current font size.
func (s *Surface) FontSize() float64 { return s.fontSize }

// Text draws text with its baseline at y, aligned around x.
func (s *Surface) Text(text string, x, y float64, align Align, c color.Color) {
	ax := 0.0
	switch align {
	case AlignCenter:
		ax = 0.5
	case AlignRight:
		ax = 1
	}
	s.dc.SetColor(c)
	s.dc.DrawStringAnchored(text, x, y, ax, 0)
}

// MeasureText returns the advance width of text in the current font.
func (s *Surface) MeasureText(text string) float64 {
	w, _ := s.dc.MeasureString(text)
	return w
}

// DrawImage composites img with its top-left corner at (x, y).
func (s *Surface) DrawImage(img image.Image, x, y int) {
	s.dc.DrawImage(img, x, y)
}

// Gray returns the surface contents as an 8-bit greyscale raster.
func (s *Surface) Gray() *image.Gray {
	return imageprocessing.ToGray(s.dc.Image())
}

// RotateClockwise composites src into a fresh raster of transposed size,
// turned 90° clockwise: source pixel (x, y) lands on (H-1-y, x).
func RotateClockwise(src *image.Gray) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, h, w))

	// source space to destination space: x' = H - y, y' = x
	s2d := f64.Aff3{
		0, -1, float64(b.Min.Y + h),
		1, 0, float64(-b.Min.X),
	}
	draw.NearestNeighbor.Transform(dst, s2d, src, b, draw.Src, nil)
	return dst
}
