// Package raster defines the in-memory image shared by every pipeline stage.
//
// An Image is a row-major grid of RGB pixels with a declared maximum channel
// value. Stages never mutate an Image they received; each one allocates a new
// Image for its output.
package raster

import (
	"errors"
	"fmt"
)

// MaxChannelValue is the largest maxValue a P6 file can declare.
const MaxChannelValue = 65535

// ErrInvalidImage is wrapped by every Validate failure.
var ErrInvalidImage = errors.New("invalid image")

// Pixel holds the three channels of one pixel. Each channel is bounded by the
// owning image's MaxValue.
type Pixel struct {
	R uint16 `json:"r"`
	G uint16 `json:"g"`
	B uint16 `json:"b"`
}

// Grey returns a pixel with all three channels set to v.
func Grey(v uint16) Pixel {
	return Pixel{R: v, G: v, B: v}
}

// Image is the decoded raster.
//
// Pixels has exactly Height rows of exactly Width pixels. The rows of an Image
// built by NewImage share a single backing array, so Pixels[y][x] and the flat
// index y*Width+x address the same cell.
type Image struct {
	Width    int
	Height   int
	MaxValue int
	Pixels   [][]Pixel
}

// NewImage allocates a zero-filled width x height image.
//
// NewImage does not validate its arguments; callers that accept dimensions from
// untrusted input must check them first.
func NewImage(width, height, maxValue int) *Image {
	flat := make([]Pixel, width*height)
	rows := make([][]Pixel, height)
	for y := range rows {
		rows[y] = flat[y*width : (y+1)*width : (y+1)*width]
	}
	return &Image{
		Width:    width,
		Height:   height,
		MaxValue: maxValue,
		Pixels:   rows,
	}
}

// ChannelBytes returns the on-disk width of one channel: 1 byte when MaxValue
// is below 256, otherwise 2 bytes.
func (img *Image) ChannelBytes() int {
	return ChannelBytes(img.MaxValue)
}

// ChannelBytes returns the on-disk channel width for maxValue.
func ChannelBytes(maxValue int) int {
	if maxValue < 256 {
		return 1
	}
	return 2
}

// Len returns the number of pixels in the image.
func (img *Image) Len() int {
	return img.Width * img.Height
}

// At returns the pixel in column x of row y.
func (img *Image) At(x, y int) Pixel {
	return img.Pixels[y][x]
}

// Set stores p in column x of row y.
func (img *Image) Set(x, y int, p Pixel) {
	img.Pixels[y][x] = p
}

// Clone returns a deep copy of img.
func (img *Image) Clone() *Image {
	out := NewImage(img.Width, img.Height, img.MaxValue)
	for y, row := range img.Pixels {
		copy(out.Pixels[y], row)
	}
	return out
}

// Validate reports whether img satisfies the container invariants: positive
// dimensions, MaxValue in [1, 65535], a fully populated grid and no channel
// above MaxValue.
func (img *Image) Validate() error {
	if img.Width <= 0 || img.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidImage, img.Width, img.Height)
	}
	if img.MaxValue < 1 || img.MaxValue > MaxChannelValue {
		return fmt.Errorf("%w: max value %d outside [1, %d]", ErrInvalidImage, img.MaxValue, MaxChannelValue)
	}
	if len(img.Pixels) != img.Height {
		return fmt.Errorf("%w: %d rows, want %d", ErrInvalidImage, len(img.Pixels), img.Height)
	}

	limit := uint16(img.MaxValue)
	for y, row := range img.Pixels {
		if len(row) != img.Width {
			return fmt.Errorf("%w: row %d has %d pixels, want %d", ErrInvalidImage, y, len(row), img.Width)
		}
		for x, p := range row {
			if p.R > limit || p.G > limit || p.B > limit {
				return fmt.Errorf("%w: pixel (%d,%d) = %v exceeds max value %d", ErrInvalidImage, x, y, p, img.MaxValue)
			}
		}
	}
	return nil
}
