package imaging

import "github.com/ironsheep/ppm-edge/internal/raster"

// Luminance returns the ITU-R BT.601 luma of p using integer arithmetic:
//
//	(299*R + 587*G + 114*B) / 1000
//
// The result never exceeds the largest channel of p.
func Luminance(p raster.Pixel) uint16 {
	return uint16((299*uint32(p.R) + 587*uint32(p.G) + 114*uint32(p.B)) / 1000)
}

// Greyscale returns a new image with every pixel replaced by its luminance in
// all three channels. Dimensions and MaxValue are unchanged and img is not
// modified.
func Greyscale(img *raster.Image) *raster.Image {
	out := raster.NewImage(img.Width, img.Height, img.MaxValue)
	for y, row := range img.Pixels {
		dst := out.Pixels[y]
		for x, p := range row {
			dst[x] = raster.Grey(Luminance(p))
		}
	}
	return out
}
