package imageprocessing

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"io"
)

var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// EncodeGray writes an 8-bit greyscale PNG.
func EncodeGray(w io.Writer, img *image.Gray) error {
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode greyscale png: %w", err)
	}
	return nil
}

// EncodePalettedPNG encodes a paletted image as a greyscale PNG (color
// type 0) at bitDepth. Palette indices are written directly as grey
// samples, so the palette must come from GrayscalePalette(bitDepth).
func EncodePalettedPNG(w io.Writer, paletted *image.Paletted, bitDepth int) error {
	if paletted == nil {
		return fmt.Errorf("image must not be nil")
	}
	if bitDepth != 1 && bitDepth != 2 && bitDepth != 4 && bitDepth != 8 {
		return fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}

	bounds := paletted.Bounds()

	var buf bytes.Buffer
	buf.Write(pngSignature)

	var ihdr bytes.Buffer
	binary.Write(&ihdr, binary.BigEndian, uint32(bounds.Dx()))
	binary.Write(&ihdr, binary.BigEndian, uint32(bounds.Dy()))
	ihdr.Write([]byte{
		uint8(bitDepth),
		0, // color type: greyscale
		0, // compression
		0, // filter
		0, // interlace
	})
	writeChunk(&buf, "IHDR", ihdr.Bytes())

	compressed, err := zlibCompress(packGrayscaleImageData(paletted, bitDepth))
	if err != nil {
		return fmt.Errorf("failed to compress image data: %w", err)
	}
	writeChunk(&buf, "IDAT", compressed)
	writeChunk(&buf, "IEND", nil)

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write png: %w", err)
	}
	return nil
}

// packGrayscaleImageData packs palette indices into scanlines of
// bitDepth-sized samples, each row prefixed by filter type 0.
func packGrayscaleImageData(paletted *image.Paletted, bitDepth int) []byte {
	bounds := paletted.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	pixelsPerByte := 8 / bitDepth
	bytesPerRow := (width + pixelsPerByte - 1) / pixelsPerByte
	data := make([]byte, height*(bytesPerRow+1))

	for y := 0; y < height; y++ {
		rowStart := y * (bytesPerRow + 1)
		for x := 0; x < width; x++ {
			level := paletted.ColorIndexAt(bounds.Min.X+x, bounds.Min.Y+y)
			byteIndex := rowStart + 1 + x/pixelsPerByte
			bitOffset := (pixelsPerByte - 1 - (x % pixelsPerByte)) * bitDepth
			data[byteIndex] |= level << bitOffset
		}
	}
	return data
}

func writeChunk(buf *bytes.Buffer, chunkType string, data []byte) {
	binary.Write(buf, binary.BigEndian, uint32(len(data)))
	buf.WriteString(chunkType)
	buf.Write(data)

	crc := crc32.NewIEEE()
	crc.Write([]byte(chunkType))
	crc.Write(data)
	binary.Write(buf, binary.BigEndian, crc.Sum32())
}

func zlibCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("failed to create zlib writer: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to write data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close zlib writer: %w", err)
	}
	return buf.Bytes(), nil
}
