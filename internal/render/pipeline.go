package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/rmitchellscott/kindling/internal/imageprocessing"
	"github.com/rmitchellscott/kindling/internal/logging"
)

// Phases reported to an Observer.
const (
	PhaseLoad   = "load"
	PhaseDraw   = "draw"
	PhaseEncode = "encode"
)

// Observer receives phase timings. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObservePhase(handler, phase string, d time.Duration)
}

// Options configure a Pipeline. Zero values select defaults.
type Options struct {
	// BuildTime is printed in the footer of every error image.
	BuildTime string
	// Fonts used by surfaces; nil selects DefaultFonts.
	Fonts *Fonts
	// KindleBitDepth is the grey depth of Kindle output: 1, 2, 4 or 8.
	KindleBitDepth int
	// LoadTimeout bounds each Load call; zero disables the bound.
	LoadTimeout time.Duration
	// MaxDimension caps width and height; zero disables the cap.
	MaxDimension int
	// Defaults replace invalid parameters when rendering error images.
	Defaults ImageParams
	Observer Observer
}

// Pipeline runs handlers and turns their surfaces into PNG bytes. It holds
// no per-request state and is safe for concurrent use.
type Pipeline struct {
	opts      Options
	errors    *ErrorRenderer
	drawError func(s *Surface, causes []string)
	encode    func(w io.Writer, img *image.Gray, bitDepth int) error
}

func NewPipeline(opts Options) *Pipeline {
	if opts.Fonts == nil {
		fonts, err := DefaultFonts()
		if err != nil {
			logging.WarnWithComponent(logging.ComponentRenderer, "falling back to bitmap font", "error", err)
		}
		opts.Fonts = fonts
	}
	switch opts.KindleBitDepth {
	case 1, 2, 4, 8:
	case 0:
		opts.KindleBitDepth = 8
	default:
		logging.WarnWithComponent(logging.ComponentRenderer, "unsupported kindle bit depth, using 8", "bit_depth", opts.KindleBitDepth)
		opts.KindleBitDepth = 8
	}
	if opts.Defaults.Validate(0) != nil {
		opts.Defaults = DefaultParams()
	}
	if opts.Defaults.Target == "" {
		opts.Defaults.Target = TargetBrowser
	}
	p := &Pipeline{opts: opts, errors: NewErrorRenderer(opts.BuildTime)}
	p.drawError = p.errors.Draw
	p.encode = imageprocessing.EncodeForDisplay
	return p
}

// Defaults returns the parameters used when a request supplies none.
func (p *Pipeline) Defaults() ImageParams { return p.opts.Defaults }

// ErrorRenderer returns the renderer used for diagnostic pages.
func (p *Pipeline) ErrorRenderer() *ErrorRenderer { return p.errors }

// Validate checks params against the pipeline's limits.
func (p *Pipeline) Validate(params ImageParams) error {
	return params.Validate(p.opts.MaxDimension)
}

// Render runs h once for params. Load and draw failures come back as
// *LoadError and *DrawError, invalid params as *ConfigError and a failed
// encode as *EncodeError. Load is never retried.
func (p *Pipeline) Render(ctx context.Context, params ImageParams, h Bound) ([]byte, error) {
	if err := p.Validate(params); err != nil {
		return nil, err
	}
	if params.Target == "" {
		params.Target = TargetBrowser
	}
	name := h.Name()

	s := NewSurface(params.Width, params.Height, p.opts.Fonts)

	drawer, err := p.load(ctx, h)
	if err != nil {
		return nil, &LoadError{Handler: name, Err: err}
	}
	if err := p.draw(name, s, params, drawer); err != nil {
		return nil, &DrawError{Handler: name, Err: err}
	}
	return p.finalize(name, s, params, h.Orientation())
}

// RenderError draws err as a diagnostic page. It always returns a PNG:
// invalid params are replaced by defaults, a failing draw leaves a blank
// page and a failing encode yields a minimal placeholder.
func (p *Pipeline) RenderError(params ImageParams, err error) []byte {
	params = p.Sanitize(params)
	causes := Chain(err)
	if len(causes) == 0 {
		causes = []string{"unknown error"}
	}

	data, ferr := p.renderError(params, causes)
	if ferr != nil {
		logging.ErrorWithComponent(logging.ComponentRenderer, "error image could not be encoded",
			"error", ferr, "width", params.Width, "height", params.Height)
		return FallbackPNG()
	}
	return data
}

func (p *Pipeline) renderError(params ImageParams, causes []string) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			data, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()

	s := NewSurface(params.Width, params.Height, p.opts.Fonts)
	if derr := p.drawErrorPage(s, causes); derr != nil {
		logging.WarnWithComponent(logging.ComponentRenderer, "error image drawing failed, sending blank page", "error", derr)
		s = NewSurface(params.Width, params.Height, p.opts.Fonts)
	}
	return p.finalize("error", s, params, Landscape)
}

func (p *Pipeline) drawErrorPage(s *Surface, causes []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	p.drawError(s, causes)
	return nil
}

// Sanitize replaces any invalid field of params with the default.
func (p *Pipeline) Sanitize(params ImageParams) ImageParams {
	d := p.opts.Defaults
	switch params.Target {
	case TargetBrowser, TargetKindle:
	default:
		params.Target = d.Target
	}
	if params.Width <= 0 || (p.opts.MaxDimension > 0 && params.Width > p.opts.MaxDimension) {
		params.Width = d.Width
	}
	if params.Height <= 0 || (p.opts.MaxDimension > 0 && params.Height > p.opts.MaxDimension) {
		params.Height = d.Height
	}
	return params
}

func (p *Pipeline) load(ctx context.Context, h Bound) (drawer Drawer, err error) {
	if p.opts.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.LoadTimeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			drawer, err = nil, fmt.Errorf("panic: %v", r)
		}
		p.observe(h.Name(), PhaseLoad, time.Since(start))
	}()

	drawer, err = h.Load(ctx)
	if err == nil && drawer == nil {
		err = fmt.Errorf("load returned no data")
	}
	return drawer, err
}

func (p *Pipeline) draw(name string, s *Surface, params ImageParams, drawer Drawer) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		p.observe(name, PhaseDraw, time.Since(start))
	}()
	return drawer(s, params)
}

func (p *Pipeline) finalize(name string, s *Surface, params ImageParams, o Orientation) ([]byte, error) {
	start := time.Now()
	defer func() { p.observe(name, PhaseEncode, time.Since(start)) }()

	img := s.Gray()
	if ShouldRotate(params.Target, o) {
		img = RotateClockwise(img)
	}

	depth := 8
	if params.Target == TargetKindle {
		depth = p.opts.KindleBitDepth
	}

	var buf bytes.Buffer
	if err := p.encode(&buf, img, depth); err != nil {
		return nil, &EncodeError{Err: err}
	}
	return buf.Bytes(), nil
}

func (p *Pipeline) observe(handler, phase string, d time.Duration) {
	if p.opts.Observer != nil {
		p.opts.Observer.ObservePhase(handler, phase, d)
	}
}

// fallbackPNG is a 1x1 transparent PNG.
var fallbackPNG = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4, 0x89, 0x00, 0x00, 0x00,
	0x0A, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9C, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4E, 0x44, 0xAE, 0x42, 0x60, 0x82,
}

// FallbackPNG returns a copy of the placeholder sent when nothing else
// can be encoded.
func FallbackPNG() []byte {
	return append([]byte(nil), fallbackPNG...)
}
