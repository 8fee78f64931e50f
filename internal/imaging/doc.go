// Package imaging implements the processing stages of the edge pipeline.
//
// Every stage takes a *raster.Image and returns a new one; inputs are never
// modified, so a decoded image may be shared between goroutines and cached.
//
// # Stages
//
//   - Greyscale: RGB to luminance with integer BT.601 weights
//     (299*R + 587*G + 114*B) / 1000, replicated into all three channels.
//   - Sobel: 3x3 gradient magnitude over the image interior, computed in
//     parallel over a static partition of the output pixels.
//   - EdgeMap: Greyscale followed by Sobel.
//
// # Coordinate System
//
// Pixels are addressed as (x, y) with (0,0) at the top-left corner, X
// increasing rightward and Y increasing downward. Internally the grid is
// row-major, Pixels[y][x].
//
// # Interop
//
// Import and FromStdImage bring PNG, JPEG, GIF, BMP and TIFF sources into the
// pipeline; ToStdImage, Preview and SavePreview render results for viewing,
// stretching [0, MaxValue] to full white so that edge maps with a small
// dynamic range stay visible.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. All other functions are
// stateless and can be called concurrently.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Images too small for the Sobel operator (ErrImageTooSmall)
//   - Images of different sizes passed to Compare (ErrSizeMismatch)
//   - File I/O errors during loading (wrapping fileio.ErrIO)
//   - Decode errors (wrapping the ppm package's sentinel errors)
package imaging
