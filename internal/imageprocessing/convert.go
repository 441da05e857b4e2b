package imageprocessing

import (
	"image"
	"image/color"
	"image/draw"
)

// ToGray converts an image to 8-bit greyscale using the luminance
// weights of color.GrayModel. A *image.Gray anchored at the origin is
// returned as is.
func ToGray(img image.Image) *image.Gray {
	if img == nil {
		return nil
	}
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}

	bounds := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(gray, gray.Bounds(), img, bounds.Min, draw.Src)
	return gray
}

// QuantizeColor reduces a grey value to the nearest lower level of the
// given bit depth.
func QuantizeColor(gray uint8, bitDepth int) uint8 {
	switch bitDepth {
	case 1:
		if gray >= 128 {
			return 255
		}
		return 0
	case 2:
		// 0, 85, 170, 255
		return (gray / 64) * 85
	case 4:
		// 17 * 15 = 255
		return (gray / 16) * 17
	default:
		return gray
	}
}

// GetColorLevels returns the number of grey levels for a bit depth
func GetColorLevels(bitDepth int) int {
	switch bitDepth {
	case 1:
		return 2
	case 2:
		return 4
	case 4:
		return 16
	default:
		return 256
	}
}

// GrayscalePalette returns evenly spaced grey levels for bitDepth, ordered
// so that a palette index equals the PNG sample value at that depth.
func GrayscalePalette(bitDepth int) color.Palette {
	levels := GetColorLevels(bitDepth)
	palette := make(color.Palette, levels)
	for i := 0; i < levels; i++ {
		palette[i] = color.Gray{Y: uint8((i * 255) / (levels - 1))}
	}
	return palette
}
