package render

import (
	"strings"
)

const (
	errorMargin     = 20.0
	errorLineHeight = 20.0
	errorFirstLine  = 90.0
	errorTitleH     = 55.0
	errorTitleBase  = 40.0
	errorFooterH    = 30.0
	errorFooterBase = 8.0
	errorBigFont    = 36.0
	errorSmallFont  = 20.0
	errorBullet     = "- "
)

// TextLine is one positioned line of the cause list.
type TextLine struct {
	Text string
	X, Y float64
}

// ErrorRenderer draws diagnostic pages: a title bar reading ERROR, the
// error chain as a bulleted, word-wrapped list and a footer with the
// build timestamp.
type ErrorRenderer struct {
	buildTime string
}

func NewErrorRenderer(buildTime string) *ErrorRenderer {
	return &ErrorRenderer{buildTime: buildTime}
}

// BuildTime returns the timestamp printed in the footer.
func (r *ErrorRenderer) BuildTime() string { return r.buildTime }

// Draw renders causes onto s. s is expected to be freshly cleared.
func (r *ErrorRenderer) Draw(s *Surface, causes []string) {
	w, h := float64(s.Width()), float64(s.Height())

	footerTop := h - errorFooterH
	s.FillRect(0, footerTop, w, errorFooterH, LightGrey)
	s.FillRect(0, footerTop, w, 1, Black)
	s.SetFontSize(errorSmallFont)
	s.Text("Kindling built "+r.buildTime, w/2, h-errorFooterBase, AlignCenter, Black)

	s.FillRect(0, 0, w, errorTitleH, LightGrey)
	s.FillRect(0, errorTitleH, w, 1, Black)
	s.SetFontSize(errorBigFont)
	s.Text("ERROR", w/2, errorTitleBase, AlignCenter, Black)

	s.SetFontSize(errorSmallFont)
	for _, line := range r.Layout(s, causes) {
		s.Text(line.Text, line.X, line.Y, AlignLeft, Black)
	}
}

// Layout positions the cause list for s using its small font. Lines that
// would run into the footer are dropped.
func (r *ErrorRenderer) Layout(s *Surface, causes []string) []TextLine {
	s.SetFontSize(errorSmallFont)
	w := float64(s.Width())
	limit := float64(s.Height()) - errorFooterH - 4
	indent := errorMargin + s.MeasureText(errorBullet)

	var out []TextLine
	y := errorFirstLine
	for _, cause := range causes {
		for i, text := range WrapCause(cause, w-2*errorMargin, s.MeasureText) {
			if y > limit {
				return out
			}
			x := errorMargin
			if i > 0 {
				x = indent
			}
			out = append(out, TextLine{Text: text, X: x, Y: y})
			y += errorLineHeight
		}
	}
	return out
}

// WrapCause splits cause into lines no wider than width once prefixed
// with a bullet. The first line carries the bullet; continuation lines
// are meant to be drawn indented by the bullet's width, so they get that
// much less room. A single word wider than the line stays whole.
func WrapCause(cause string, width float64, measure func(string) float64) []string {
	words := strings.Fields(cause)
	if len(words) == 0 {
		return []string{errorBullet}
	}

	var lines []string
	avail := width
	line := errorBullet + words[0]
	for _, word := range words[1:] {
		candidate := line + " " + word
		if measure(candidate) > avail {
			lines = append(lines, line)
			line = word
			avail = width - measure(errorBullet)
			continue
		}
		line = candidate
	}
	return append(lines, line)
}
