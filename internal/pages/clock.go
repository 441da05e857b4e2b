package pages

import (
	"context"
	"time"

	"github.com/rmitchellscott/kindling/internal/render"
	"github.com/rmitchellscott/kindling/internal/utils"
)

func init() {
	mustRegister("clock", newClock)
}

// Clock shows the current time and date in a fixed zone.
type Clock struct {
	location    *time.Location
	format      string
	orientation render.Orientation
	now         func() time.Time
}

func newClock(def Definition, deps Deps) (render.Bound, error) {
	o, err := def.orientation()
	if err != nil {
		return nil, err
	}
	loc, err := utils.LoadTimezone(def.Timezone)
	if err != nil {
		return nil, err
	}
	format := def.Format
	if format == "" {
		format = "15:04"
	}
	return render.Bind[time.Time](&Clock{location: loc, format: format, orientation: o, now: deps.now}), nil
}

func (c *Clock) Name() string                    { return "clock" }
func (c *Clock) Orientation() render.Orientation { return c.orientation }

func (c *Clock) Load(context.Context) (time.Time, error) {
	return c.now().In(c.location), nil
}

func (c *Clock) Draw(s *render.Surface, _ render.ImageParams, now time.Time) error {
	w, h := float64(s.Width()), float64(s.Height())

	size := h / 4
	if size > w/4 {
		size = w / 4
	}
	s.SetFontSize(size)
	s.Text(now.Format(c.format), w/2, h/2, render.AlignCenter, render.Black)

	s.SetFontSize(size / 3)
	s.Text(now.Format("Monday, 2 January 2006"), w/2, h/2+size*0.6, render.AlignCenter, render.Black)
	return nil
}
