package imaging

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/ppm-edge/internal/raster"
)

// ErrImageTooSmall is returned by Sobel for images without an interior, i.e.
// width or height of 2 pixels or less.
var ErrImageTooSmall = errors.New("image too small for the sobel operator")

// cancelCheckInterval is how many output pixels a worker computes between
// context checks.
const cancelCheckInterval = 4096

// Span is a half-open range [Start, End) of flattened output pixel indices.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of indices in the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Partition splits [0, total) into min(workers, total) contiguous spans of
// total/n indices each, the last span also taking the remainder. A worker
// count below 1 is treated as 1.
func Partition(total, workers int) []Span {
	if total <= 0 {
		return nil
	}
	n := min(max(workers, 1), total)
	chunk := total / n

	spans := make([]Span, n)
	for i := range spans {
		start := i * chunk
		end := start + chunk
		if i == n-1 {
			end = total
		}
		spans[i] = Span{Start: start, End: end}
	}
	return spans
}

// Sobel computes the gradient magnitude map of a greyscale image.
//
// The output is (Width-2) x (Height-2): output pixel (x, y) is the magnitude
// of the 3x3 neighbourhood centred on input pixel (x+1, y+1). Only the red
// channel of the input is read; Greyscale leaves all three channels equal.
//
// # Kernels
//
// With P(r, c) the input at row r, column c, and (i, j) the output row and
// column:
//
//	gx = -P(i,j) - 2P(i+1,j) - P(i+2,j) + P(i,j+2) + 2P(i+1,j+2) + P(i+2,j+2)
//	gy = -P(i,j) - 2P(i,j+1) - P(i,j+2) + P(i+2,j) + 2P(i+2,j+1) + P(i+2,j+2)
//	magnitude = round(sqrt(gx² + gy²))
//
// # Parallelism
//
// The flattened output index space is split by Partition and each span is
// computed by its own goroutine. Spans are disjoint, so workers write to the
// shared output grid without locking; the input is only read. Sobel returns
// once every worker has finished, or with the first worker error if ctx is
// cancelled, in which case no image is returned.
//
// # Range
//
// Magnitudes are stored clamped to 65535, the largest encodable sample. The
// result's MaxValue is the largest stored magnitude, but at least 1 so that
// an all-black edge map still encodes to a valid file.
func Sobel(ctx context.Context, img *raster.Image, workers int) (*raster.Image, error) {
	if img.Width <= 2 || img.Height <= 2 {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooSmall, img.Width, img.Height)
	}

	out := raster.NewImage(img.Width-2, img.Height-2, 1)

	g, ctx := errgroup.WithContext(ctx)
	for _, span := range Partition(out.Len(), workers) {
		g.Go(func() error {
			return sobelSpan(ctx, img, out, span)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("sobel cancelled: %w", err)
	}

	out.MaxValue = max(maxChannel(out), 1)
	return out, nil
}

// EdgeMap converts img to greyscale and runs Sobel on the result.
func EdgeMap(ctx context.Context, img *raster.Image, workers int) (*raster.Image, error) {
	return Sobel(ctx, Greyscale(img), workers)
}

// sobelSpan fills the output pixels of one span.
func sobelSpan(ctx context.Context, in, out *raster.Image, span Span) error {
	w := out.Width
	for k := span.Start; k < span.End; k++ {
		if (k-span.Start)%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		i, j := k/w, k%w
		m := clamp(magnitude(in, i, j), 0, raster.MaxChannelValue)
		out.Pixels[i][j] = raster.Grey(uint16(m))
	}
	return nil
}

// gradient applies both kernels to the neighbourhood whose top-left corner is
// input row i, column j.
func gradient(in *raster.Image, i, j int) (gx, gy int) {
	r0, r1, r2 := in.Pixels[i], in.Pixels[i+1], in.Pixels[i+2]

	a, b, c := int(r0[j].R), int(r0[j+1].R), int(r0[j+2].R)
	d, f := int(r1[j].R), int(r1[j+2].R)
	g, h, k := int(r2[j].R), int(r2[j+1].R), int(r2[j+2].R)

	gx = -a - 2*d - g + c + 2*f + k
	gy = -a - 2*b - c + g + 2*h + k
	return gx, gy
}

// magnitude returns the unclamped, rounded gradient magnitude for output
// pixel (i, j).
func magnitude(in *raster.Image, i, j int) int {
	gx, gy := gradient(in, i, j)
	return int(math.Round(math.Sqrt(float64(gx*gx + gy*gy))))
}

// maxChannel returns the largest red sample in img.
func maxChannel(img *raster.Image) int {
	m := 0
	for _, row := range img.Pixels {
		for _, p := range row {
			if int(p.R) > m {
				m = int(p.R)
			}
		}
	}
	return m
}

// clamp constrains an integer value to the range [lo, hi].
func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
