package pages

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"time"

	"github.com/rmitchellscott/kindling/internal/imageprocessing"
	"github.com/rmitchellscott/kindling/internal/render"
	"github.com/rmitchellscott/kindling/internal/utils"
)

func init() {
	mustRegister("image", newRemoteImage)
}

// RemoteImage fetches an image on every render and scales it onto the page.
type RemoteImage struct {
	url         string
	cover       bool
	client      *http.Client
	urlConfig   utils.URLValidationConfig
	orientation render.Orientation
}

func newRemoteImage(def Definition, deps Deps) (render.Bound, error) {
	o, err := def.orientation()
	if err != nil {
		return nil, err
	}
	if def.URL == "" {
		return nil, errors.New("image needs a url")
	}
	cover, err := parseFit(def.Fit)
	if err != nil {
		return nil, err
	}
	client := deps.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return render.Bind[image.Image](&RemoteImage{
		url:         def.URL,
		cover:       cover,
		client:      redirectChecked(client, deps.URLConfig),
		urlConfig:   deps.URLConfig,
		orientation: o,
	}), nil
}

// redirectChecked returns a copy of base that validates every redirect
// target against cfg before following it.
func redirectChecked(base *http.Client, cfg utils.URLValidationConfig) *http.Client {
	c := *base
	next := base.CheckRedirect
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if err := utils.ValidateURLWithConfig(req.URL.String(), cfg); err != nil {
			return fmt.Errorf("redirect blocked: %w", err)
		}
		if next != nil {
			return next(req, via)
		}
		if len(via) >= 10 {
			return errors.New("stopped after 10 redirects")
		}
		return nil
	}
	return &c
}

// parseFit accepts "contain" (letterbox, default) and "cover" (crop).
func parseFit(fit string) (cover bool, err error) {
	switch fit {
	case "", "contain":
		return false, nil
	case "cover":
		return true, nil
	default:
		return false, fmt.Errorf("unknown fit %q", fit)
	}
}

func (r *RemoteImage) Name() string                    { return "image" }
func (r *RemoteImage) Orientation() render.Orientation { return r.orientation }

func (r *RemoteImage) Load(ctx context.Context) (image.Image, error) {
	if err := utils.ValidateURLWithConfig(r.url, r.urlConfig); err != nil {
		return nil, fmt.Errorf("url validation failed: %w", err)
	}
	img, _, err := imageprocessing.LoadImageFromURL(ctx, r.client, r.url)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (r *RemoteImage) Draw(s *render.Surface, _ render.ImageParams, img image.Image) error {
	return drawScaled(s, img, r.cover)
}

func drawScaled(s *render.Surface, img image.Image, cover bool) error {
	if img == nil || img.Bounds().Empty() {
		return errors.New("empty image")
	}
	var scaled image.Image
	if cover {
		scaled = imageprocessing.ResizeToFill(img, s.Width(), s.Height())
	} else {
		scaled = imageprocessing.ResizeToFit(img, s.Width(), s.Height(), render.White)
	}
	s.DrawImage(scaled, 0, 0)
	return nil
}
