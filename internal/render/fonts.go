package render

import (
	"fmt"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
)

// Fonts holds a parsed TrueType font. Parsed fonts are immutable and
// shared; faces carry glyph caches and are created per surface. A nil
// *Fonts, or one without a font, falls back to basicfont.
type Fonts struct {
	regular *truetype.Font
}

var (
	defaultFontsOnce sync.Once
	defaultFonts     *Fonts
	defaultFontsErr  error
)

// ParseFonts parses a TrueType font file.
func ParseFonts(ttf []byte) (*Fonts, error) {
	f, err := truetype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &Fonts{regular: f}, nil
}

// DefaultFonts returns Go Regular, parsed once per process. On failure
// it returns fallback fonts together with the parse error.
func DefaultFonts() (*Fonts, error) {
	defaultFontsOnce.Do(func() {
		defaultFonts, defaultFontsErr = ParseFonts(goregular.TTF)
		if defaultFontsErr != nil {
			defaultFonts = &Fonts{}
		}
	})
	return defaultFonts, defaultFontsErr
}

// Face returns a new face of the given pixel size.
func (f *Fonts) Face(size float64) font.Face {
	if f == nil || f.regular == nil {
		return basicfont.Face7x13
	}
	return truetype.NewFace(f.regular, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// Scalable reports whether faces honour the requested size.
func (f *Fonts) Scalable() bool {
	return f != nil && f.regular != nil
}
