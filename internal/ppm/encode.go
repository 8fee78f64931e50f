package ppm

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/ironsheep/ppm-edge/internal/raster"
)

// AppendHeader appends "P6\n<width>\n<height>\n<maxValue>\n" to dst.
func AppendHeader(dst []byte, width, height, maxValue int) []byte {
	dst = append(dst, 'P', '6', '\n')
	dst = strconv.AppendUint(dst, uint64(width), 10)
	dst = append(dst, '\n')
	dst = strconv.AppendUint(dst, uint64(height), 10)
	dst = append(dst, '\n')
	dst = strconv.AppendUint(dst, uint64(maxValue), 10)
	return append(dst, '\n')
}

// Encode writes img to w as a binary P6 file.
//
// img is validated first; an image that breaks the container invariants is
// refused rather than written as a file no decoder would accept.
func Encode(w io.Writer, img *raster.Image) error {
	if err := img.Validate(); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(AppendHeader(nil, img.Width, img.Height, img.MaxValue)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	cb := img.ChannelBytes()
	row := make([]byte, 0, img.Width*3*cb)
	for _, pixels := range img.Pixels {
		row = row[:0]
		for _, p := range pixels {
			if cb == 1 {
				row = append(row, byte(p.R), byte(p.G), byte(p.B))
			} else {
				row = append(row,
					byte(p.R/256), byte(p.R%256),
					byte(p.G/256), byte(p.G%256),
					byte(p.B/256), byte(p.B%256))
			}
		}
		if _, err := bw.Write(row); err != nil {
			return fmt.Errorf("failed to write pixel data: %w", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write pixel data: %w", err)
	}
	return nil
}

// Marshal returns the P6 encoding of img.
func Marshal(img *raster.Image) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(32 + img.Len()*3*img.ChannelBytes())
	if err := Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
