package pages

import (
	"context"
	"errors"
	"fmt"

	"github.com/rmitchellscott/kindling/internal/render"
)

func init() {
	mustRegister("blackout", func(Definition, Deps) (render.Bound, error) {
		return render.Bind[struct{}](Blackout{}), nil
	})
	mustRegister("label", newLabel)
	mustRegister("orientation-test", newOrientationTest)
	mustRegister("error", newFailing)
}

// Blackout fills the whole page with black. It is served as a built-in
// diagnostic route.
type Blackout struct{}

func (Blackout) Name() string { return "blackout" }

func (Blackout) Load(context.Context) (struct{}, error) { return struct{}{}, nil }

func (Blackout) Draw(s *render.Surface, _ render.ImageParams, _ struct{}) error {
	s.FillRect(0, 0, float64(s.Width()), float64(s.Height()), render.Black)
	return nil
}

// Label draws a line of text in the middle of the page.
type Label struct {
	Text        string
	FontSize    float64
	orientation render.Orientation
}

func newLabel(def Definition, _ Deps) (render.Bound, error) {
	o, err := def.orientation()
	if err != nil {
		return nil, err
	}
	if def.Text == "" {
		return nil, errors.New("label needs text")
	}
	size := def.FontSize
	if size <= 0 {
		size = 48
	}
	return render.Bind[struct{}](&Label{Text: def.Text, FontSize: size, orientation: o}), nil
}

func (l *Label) Name() string                           { return "label" }
func (l *Label) Orientation() render.Orientation        { return l.orientation }
func (l *Label) Load(context.Context) (struct{}, error) { return struct{}{}, nil }

func (l *Label) Draw(s *render.Surface, _ render.ImageParams, _ struct{}) error {
	s.SetFontSize(l.FontSize)
	s.Text(l.Text, float64(s.Width())/2, float64(s.Height())/2+l.FontSize/3, render.AlignCenter, render.Black)
	return nil
}

// OrientationTest outlines the page and labels its corners, making the
// rotation applied to a device visible.
type OrientationTest struct {
	orientation render.Orientation
}

func newOrientationTest(def Definition, _ Deps) (render.Bound, error) {
	o, err := def.orientation()
	if err != nil {
		return nil, err
	}
	return render.Bind[struct{}](&OrientationTest{orientation: o}), nil
}

func (t *OrientationTest) Name() string                           { return "orientation-test" }
func (t *OrientationTest) Orientation() render.Orientation        { return t.orientation }
func (t *OrientationTest) Load(context.Context) (struct{}, error) { return struct{}{}, nil }

func (t *OrientationTest) Draw(s *render.Surface, params render.ImageParams, _ struct{}) error {
	w, h := float64(s.Width()), float64(s.Height())
	s.StrokeRect(0.5, 0.5, w-1, h-1, 1, render.Black)

	s.SetFontSize(24)
	s.Text("top left", 10, 34, render.AlignLeft, render.Black)
	s.Text("top right", w-10, 34, render.AlignRight, render.Black)
	s.Text("bottom left", 10, h-14, render.AlignLeft, render.Black)
	s.Text("bottom right", w-10, h-14, render.AlignRight, render.Black)

	s.SetFontSize(32)
	s.Text(fmt.Sprintf("%dx%d %s", s.Width(), s.Height(), t.orientation), w/2, h/2, render.AlignCenter, render.Black)
	s.SetFontSize(20)
	s.Text("target: "+string(params.Target), w/2, h/2+30, render.AlignCenter, render.Black)
	return nil
}

// Failing always fails to load. It shows what an error page looks like.
type Failing struct {
	Message string
}

func newFailing(def Definition, _ Deps) (render.Bound, error) {
	msg := def.Text
	if msg == "" {
		msg = "this page always fails"
	}
	return render.Bind[struct{}](&Failing{Message: msg}), nil
}

func (f *Failing) Name() string { return "error" }

func (f *Failing) Load(context.Context) (struct{}, error) {
	return struct{}{}, errors.New(f.Message)
}

func (f *Failing) Draw(*render.Surface, render.ImageParams, struct{}) error {
	return errors.New("draw called after a failed load")
}
