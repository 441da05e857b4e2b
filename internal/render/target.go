package render

import (
	"fmt"
	"strings"
)

// Target is the class of client an image is rendered for.
type Target string

const (
	TargetBrowser Target = "browser"
	TargetKindle  Target = "kindle"
)

// ParseTarget accepts "browser" and "kindle" (case-insensitive). Empty
// input yields TargetBrowser.
func ParseTarget(s string) (Target, error) {
	switch Target(strings.ToLower(strings.TrimSpace(s))) {
	case "", TargetBrowser:
		return TargetBrowser, nil
	case TargetKindle:
		return TargetKindle, nil
	default:
		return "", fmt.Errorf("unknown render target %q", s)
	}
}

// Orientation is the orientation a handler's drawing code assumes.
type Orientation string

const (
	Landscape Orientation = "landscape"
	Portrait  Orientation = "portrait"
)

// ParseOrientation accepts "landscape" and "portrait"; empty means Landscape.
func ParseOrientation(s string) (Orientation, error) {
	switch Orientation(strings.ToLower(strings.TrimSpace(s))) {
	case "", Landscape:
		return Landscape, nil
	case Portrait:
		return Portrait, nil
	default:
		return "", fmt.Errorf("unknown orientation %q", s)
	}
}

const (
	DefaultWidth  = 1058
	DefaultHeight = 754
)

// ImageParams are the per-request render parameters. Width and Height
// are logical, handler-facing dimensions.
type ImageParams struct {
	Target Target
	Width  int
	Height int
}

// DefaultParams returns the parameters used when a request has none.
func DefaultParams() ImageParams {
	return ImageParams{Target: TargetBrowser, Width: DefaultWidth, Height: DefaultHeight}
}

// Validate reports a *ConfigError for unknown targets and non-positive
// dimensions, and for dimensions above maxDimension when it is positive.
func (p ImageParams) Validate(maxDimension int) error {
	switch p.Target {
	case "", TargetBrowser, TargetKindle:
	default:
		return &ConfigError{Field: "target", Err: fmt.Errorf("unknown render target %q", p.Target)}
	}
	if p.Width <= 0 {
		return &ConfigError{Field: "width", Err: fmt.Errorf("must be positive, got %d", p.Width)}
	}
	if p.Height <= 0 {
		return &ConfigError{Field: "height", Err: fmt.Errorf("must be positive, got %d", p.Height)}
	}
	if maxDimension > 0 && (p.Width > maxDimension || p.Height > maxDimension) {
		return &ConfigError{Field: "size", Err: fmt.Errorf("%dx%d exceeds the maximum of %d", p.Width, p.Height, maxDimension)}
	}
	return nil
}

// ShouldRotate reports whether the finished raster is turned 90° before
// encoding. Only landscape content bound for a Kindle is rotated.
func ShouldRotate(target Target, o Orientation) bool {
	return target == TargetKindle && o != Portrait
}

// OutputSize returns the physical dimensions of the encoded image.
// Surfaces are always allocated at the logical size; rotation swaps the
// dimensions afterwards.
func OutputSize(p ImageParams, o Orientation) (width, height int) {
	if ShouldRotate(p.Target, o) {
		return p.Height, p.Width
	}
	return p.Width, p.Height
}
