package imageprocessing

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// ResizeToFit scales img to fit within the target while preserving its
// aspect ratio, centered on a canvas filled with bg.
func ResizeToFit(img image.Image, targetWidth, targetHeight int, bg color.Color) image.Image {
	if img == nil {
		return nil
	}

	bounds := img.Bounds()
	newWidth, newHeight := GetScaledDimensions(bounds.Dx(), bounds.Dy(), targetWidth, targetHeight)

	canvas := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{bg}, image.Point{}, draw.Src)

	offsetX := (targetWidth - newWidth) / 2
	offsetY := (targetHeight - newHeight) / 2
	targetRect := image.Rect(offsetX, offsetY, offsetX+newWidth, offsetY+newHeight)

	xdraw.BiLinear.Scale(canvas, targetRect, img, bounds, xdraw.Over, nil)
	return canvas
}

// GetScaledDimensions returns the largest size with the source aspect
// ratio that fits within the target.
func GetScaledDimensions(srcWidth, srcHeight, targetWidth, targetHeight int) (int, int) {
	if srcWidth <= 0 || srcHeight <= 0 {
		return 0, 0
	}
	scaleX := float64(targetWidth) / float64(srcWidth)
	scaleY := float64(targetHeight) / float64(srcHeight)
	scale := scaleX
	if scaleY < scaleX {
		scale = scaleY
	}
	return int(float64(srcWidth) * scale), int(float64(srcHeight) * scale)
}

// ResizeToFill scales img to cover the whole target, cropping the
// overflow around the center.
func ResizeToFill(img image.Image, targetWidth, targetHeight int) image.Image {
	if img == nil {
		return nil
	}

	bounds := img.Bounds()
	srcWidth := bounds.Dx()
	srcHeight := bounds.Dy()

	scaleX := float64(targetWidth) / float64(srcWidth)
	scaleY := float64(targetHeight) / float64(srcHeight)
	scale := scaleX
	if scaleY > scaleX {
		scale = scaleY
	}

	newWidth := int(float64(srcWidth) * scale)
	newHeight := int(float64(srcHeight) * scale)
	if newWidth < targetWidth {
		newWidth = targetWidth
	}
	if newHeight < targetHeight {
		newHeight = targetHeight
	}

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	xdraw.BiLinear.Scale(resized, resized.Bounds(), img, bounds, xdraw.Over, nil)

	canvas := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	offset := image.Pt((newWidth-targetWidth)/2, (newHeight-targetHeight)/2)
	draw.Draw(canvas, canvas.Bounds(), resized, offset, draw.Src)
	return canvas
}
