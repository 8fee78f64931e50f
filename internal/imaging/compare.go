package imaging

import (
	"errors"
	"fmt"
	"math"

	"github.com/ironsheep/ppm-edge/internal/raster"
)

// ErrSizeMismatch is returned by Compare for images of different dimensions.
var ErrSizeMismatch = errors.New("images differ in size")

// CompareResult contains pixel-by-pixel comparison information.
type CompareResult struct {
	// Identical is true when every sample and the max values match.
	Identical bool `json:"identical"`

	// SameMaxValue reports whether both images declare the same MaxValue.
	SameMaxValue bool `json:"same_max_value"`

	// PixelsDifferent counts pixels with any channel differing by more than
	// the tolerance passed to Compare.
	PixelsDifferent int `json:"pixels_different"`

	// TotalPixels is the number of pixels compared.
	TotalPixels int `json:"total_pixels"`

	// SimilarityScore is the fraction of pixels within tolerance (0-1).
	SimilarityScore float64 `json:"similarity_score"`

	// MaxChannelDiff is the largest absolute difference of any sample.
	MaxChannelDiff int `json:"max_channel_diff"`

	// AverageChannelDiff is the mean absolute sample difference.
	AverageChannelDiff float64 `json:"average_channel_diff"`
}

// Compare compares two images of equal size sample by sample.
//
// Samples are compared as stored, without rescaling by MaxValue. A pixel
// counts as different when any of its channels differs by more than tolerance.
// Comparing Sobel outputs computed with different worker counts must report
// Identical.
func Compare(a, b *raster.Image, tolerance int) (*CompareResult, error) {
	if a.Width != b.Width || a.Height != b.Height {
		return nil, fmt.Errorf("%w: %dx%d vs %dx%d", ErrSizeMismatch, a.Width, a.Height, b.Width, b.Height)
	}

	total := a.Len()
	different := 0
	maxDiff := 0
	var sumDiff float64

	for y, row := range a.Pixels {
		other := b.Pixels[y]
		for x, p := range row {
			q := other[x]
			dr := absDiff(p.R, q.R)
			dg := absDiff(p.G, q.G)
			db := absDiff(p.B, q.B)

			worst := max(dr, dg, db)
			maxDiff = max(maxDiff, worst)
			sumDiff += float64(dr + dg + db)

			if worst > tolerance {
				different++
			}
		}
	}

	result := &CompareResult{
		SameMaxValue:    a.MaxValue == b.MaxValue,
		PixelsDifferent: different,
		TotalPixels:     total,
		MaxChannelDiff:  maxDiff,
	}
	result.Identical = maxDiff == 0 && result.SameMaxValue
	if total > 0 {
		result.SimilarityScore = math.Round((1-float64(different)/float64(total))*1000) / 1000
		result.AverageChannelDiff = math.Round(sumDiff/float64(3*total)*100) / 100
	}
	return result, nil
}

func absDiff(a, b uint16) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
