package imageprocessing

import (
	"image"

	"github.com/makeworld-the-better-one/dither/v2"
)

// DitherFloydSteinberg reduces img to the grey levels of bitDepth with
// Floyd-Steinberg error diffusion. The result is deterministic for a
// given input.
func DitherFloydSteinberg(img image.Image, bitDepth int) *image.Paletted {
	if img == nil {
		return nil
	}

	ditherer := dither.NewDitherer(GrayscalePalette(bitDepth))
	ditherer.Matrix = dither.FloydSteinberg

	return ditherer.DitherPaletted(img)
}
