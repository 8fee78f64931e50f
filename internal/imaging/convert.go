package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder

	"github.com/ironsheep/ppm-edge/internal/raster"
)

// Import decodes a PNG, JPEG, GIF, BMP or TIFF image held in data.
//
// EXIF orientation is applied, so a photo comes out the way it is displayed.
// The result has MaxValue 255, or 65535 when the source stores 16-bit samples.
func Import(data []byte) (*raster.Image, error) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return FromStdImage(src), nil
}

// FromStdImage converts a standard library image to a raster.Image.
//
// Colour is taken from the alpha-premultiplied RGBA() values, so transparent
// regions come out black. Sources with 16-bit samples keep their full
// precision; everything else is reduced to 8 bits.
func FromStdImage(src image.Image) *raster.Image {
	bounds := src.Bounds()
	wide := is16Bit(src)

	maxValue := 255
	if wide {
		maxValue = raster.MaxChannelValue
	}

	out := raster.NewImage(bounds.Dx(), bounds.Dy(), maxValue)
	for y := 0; y < out.Height; y++ {
		row := out.Pixels[y]
		for x := 0; x < out.Width; x++ {
			r, g, b, _ := src.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			if !wide {
				r, g, b = r>>8, g>>8, b>>8
			}
			row[x] = raster.Pixel{R: uint16(r), G: uint16(g), B: uint16(b)}
		}
	}
	return out
}

func is16Bit(img image.Image) bool {
	switch img.(type) {
	case *image.RGBA64, *image.NRGBA64, *image.Gray16:
		return true
	}
	return false
}

// ToStdImage converts img to an opaque *image.RGBA64, stretching [0, MaxValue]
// over the full 16-bit range so the brightest possible sample becomes white.
func ToStdImage(img *raster.Image) *image.RGBA64 {
	out := image.NewRGBA64(image.Rect(0, 0, img.Width, img.Height))
	scale := func(v uint16) uint16 {
		return uint16(uint32(v) * 0xFFFF / uint32(img.MaxValue))
	}

	for y, row := range img.Pixels {
		for x, p := range row {
			out.SetRGBA64(x, y, color.RGBA64{
				R: scale(p.R),
				G: scale(p.G),
				B: scale(p.B),
				A: 0xFFFF,
			})
		}
	}
	return out
}
