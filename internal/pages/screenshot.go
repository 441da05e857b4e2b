package pages

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/rmitchellscott/kindling/internal/imageprocessing"
	"github.com/rmitchellscott/kindling/internal/render"
	"github.com/rmitchellscott/kindling/internal/utils"
)

func init() {
	mustRegister("screenshot", newScreenshot)
}

// Capturer takes a PNG screenshot of a web page at the given viewport.
type Capturer interface {
	Capture(ctx context.Context, url string, width, height int, wait time.Duration) ([]byte, error)
}

// Screenshot captures a web page in a headless browser and shows it.
type Screenshot struct {
	url            string
	wait           time.Duration
	viewportWidth  int
	viewportHeight int
	cover          bool
	capturer       Capturer
	urlConfig      utils.URLValidationConfig
	orientation    render.Orientation
}

func newScreenshot(def Definition, deps Deps) (render.Bound, error) {
	o, err := def.orientation()
	if err != nil {
		return nil, err
	}
	if def.URL == "" {
		return nil, errors.New("screenshot needs a url")
	}
	if deps.Capturer == nil {
		return nil, errors.New("screenshot pages need a browser (set CHROME_PATH or BROWSERLESS_URL)")
	}
	wait, err := def.wait(2 * time.Second)
	if err != nil {
		return nil, err
	}
	if wait < 0 || wait > 30*time.Second {
		return nil, fmt.Errorf("wait must be between 0 and 30s, got %s", wait)
	}
	cover, err := parseFit(def.Fit)
	if err != nil {
		return nil, err
	}

	// The capture viewport defaults to the page's natural size.
	vw, vh := def.ViewportWidth, def.ViewportHeight
	if vw <= 0 || vh <= 0 {
		vw, vh = render.DefaultWidth, render.DefaultHeight
		if o == render.Portrait {
			vw, vh = vh, vw
		}
	}

	return render.Bind[image.Image](&Screenshot{
		url:            def.URL,
		wait:           wait,
		viewportWidth:  vw,
		viewportHeight: vh,
		cover:          cover,
		capturer:       deps.Capturer,
		urlConfig:      deps.URLConfig,
		orientation:    o,
	}), nil
}

func (s *Screenshot) Name() string                    { return "screenshot" }
func (s *Screenshot) Orientation() render.Orientation { return s.orientation }

func (s *Screenshot) Load(ctx context.Context) (image.Image, error) {
	if err := utils.ValidateURLWithConfig(s.url, s.urlConfig); err != nil {
		return nil, fmt.Errorf("url validation failed: %w", err)
	}
	data, err := s.capturer.Capture(ctx, s.url, s.viewportWidth, s.viewportHeight, s.wait)
	if err != nil {
		return nil, fmt.Errorf("failed to capture screenshot of %s: %w", s.url, err)
	}
	img, _, err := imageprocessing.DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}
	return img, nil
}

func (s *Screenshot) Draw(surface *render.Surface, _ render.ImageParams, img image.Image) error {
	return drawScaled(surface, img, s.cover)
}
