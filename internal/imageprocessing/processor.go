package imageprocessing

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io"
	"net/http"

	_ "golang.org/x/image/bmp"  // Register BMP decoder
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// MaxDownloadBytes caps remote image downloads.
const MaxDownloadBytes = 20 << 20

// EncodeForDisplay encodes a greyscale raster as PNG. Below 8 bits per
// pixel the raster is dithered to the available grey levels first.
func EncodeForDisplay(w io.Writer, img *image.Gray, bitDepth int) error {
	if img == nil {
		return fmt.Errorf("input image is nil")
	}
	switch bitDepth {
	case 8:
		return EncodeGray(w, img)
	case 1, 2, 4:
		return EncodePalettedPNG(w, DitherFloydSteinberg(img, bitDepth), bitDepth)
	default:
		return fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}
}

// LoadImageFromURL downloads and decodes an image. The request is bound
// to ctx; client may be nil to use http.DefaultClient.
func LoadImageFromURL(ctx context.Context, client *http.Client, url string) (image.Image, string, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > MaxDownloadBytes {
		return nil, "", fmt.Errorf("image exceeds %d bytes", MaxDownloadBytes)
	}

	return DecodeImage(data)
}

// DecodeImage decodes any registered image format.
func DecodeImage(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}
