package imaging

import (
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/ppm-edge/internal/raster"
)

// Stats summarises the pixel values of an image.
type Stats struct {
	// MinLuminance and MaxLuminance bound the per-pixel luminance.
	MinLuminance int `json:"min_luminance"`
	MaxLuminance int `json:"max_luminance"`

	// MeanLuminance is the average luminance over all pixels.
	MeanLuminance float64 `json:"mean_luminance"`

	// MeanColor is the average colour as "#rrggbb", each channel scaled from
	// [0, MaxValue] to [0, 255].
	MeanColor string `json:"mean_color"`
}

// ComputeStats scans img once and returns its luminance range and mean colour.
func ComputeStats(img *raster.Image) *Stats {
	st := &Stats{MinLuminance: raster.MaxChannelValue}
	var sumR, sumG, sumB, sumL float64

	for _, row := range img.Pixels {
		for _, p := range row {
			l := int(Luminance(p))
			st.MinLuminance = min(st.MinLuminance, l)
			st.MaxLuminance = max(st.MaxLuminance, l)
			sumL += float64(l)
			sumR += float64(p.R)
			sumG += float64(p.G)
			sumB += float64(p.B)
		}
	}

	n := float64(img.Len())
	if n == 0 {
		st.MinLuminance = 0
		return st
	}
	st.MeanLuminance = sumL / n

	scale := n * float64(img.MaxValue)
	mean := colorful.Color{R: sumR / scale, G: sumG / scale, B: sumB / scale}
	st.MeanColor = mean.Clamped().Hex()
	return st
}
