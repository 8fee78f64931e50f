package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/disintegration/imaging"
	"golang.org/x/image/tiff"

	"github.com/ironsheep/ppm-edge/internal/fileio"
	"github.com/ironsheep/ppm-edge/internal/raster"
)

// PreviewResult contains a viewable rendering of an image encoded as base64 PNG.
type PreviewResult struct {
	// Width of the preview in pixels (may be smaller than the source).
	Width int `json:"width"`

	// Height of the preview in pixels.
	Height int `json:"height"`

	// ImageBase64 is the preview encoded as base64 PNG.
	ImageBase64 string `json:"image_base64"`

	// MimeType is always "image/png" for previews.
	MimeType string `json:"mime_type"`
}

// Render converts img for display, scaling samples to the full range and
// shrinking it to fit within maxSize x maxSize when maxSize is positive.
// Images are never enlarged.
func Render(img *raster.Image, maxSize int) image.Image {
	var out image.Image = ToStdImage(img)
	if maxSize > 0 && (img.Width > maxSize || img.Height > maxSize) {
		out = imaging.Fit(out, maxSize, maxSize, imaging.Lanczos)
	}
	return out
}

// Preview renders img and returns it as a base64 PNG.
func Preview(img *raster.Image, maxSize int) (*PreviewResult, error) {
	rendered := Render(img, maxSize)

	var buf bytes.Buffer
	if err := imgio.PNGEncoder()(&buf, rendered); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}

	return &PreviewResult{
		Width:       rendered.Bounds().Dx(),
		Height:      rendered.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// PreviewEncoder returns the encoder for path's extension: PNG, JPEG, BMP or
// TIFF. TIFF previews keep 16-bit samples when the image is not resized.
func PreviewEncoder(path string) (imgio.Encoder, error) {
	switch ext := fileio.Ext(path); ext {
	case ".png":
		return imgio.PNGEncoder(), nil
	case ".jpg", ".jpeg":
		return imgio.JPEGEncoder(90), nil
	case ".bmp":
		return imgio.BMPEncoder(), nil
	case ".tif", ".tiff":
		return func(w io.Writer, img image.Image) error {
			return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
		}, nil
	default:
		return nil, fmt.Errorf("unsupported preview format %q", strings.TrimPrefix(ext, "."))
	}
}

// SavePreview renders img and writes it to path in the format implied by the
// extension.
func SavePreview(path string, img *raster.Image, maxSize int) error {
	encode, err := PreviewEncoder(path)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := encode(&buf, Render(img, maxSize)); err != nil {
		return fmt.Errorf("failed to encode preview: %w", err)
	}
	return fileio.WriteFile(path, buf.Bytes())
}
