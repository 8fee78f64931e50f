// Package ppm reads and writes binary Netpbm pixmaps ("P6").
//
// # Format
//
// A P6 file is a short text header followed by raw samples:
//
//	P6 <width> <height> <maxval><single whitespace byte><pixels>
//
// Header fields are separated by runs of spaces, tabs and newlines, and a '#'
// comment running to the end of its line may appear wherever such a run is
// allowed. Exactly one whitespace byte separates the max value from the pixel
// data, so a comment cannot follow the max value directly.
//
// Pixels are stored row-major, three samples (red, green, blue) per pixel.
// Samples are one byte when the max value is below 256 and two bytes, most
// significant first, otherwise.
//
// # Truncated Data
//
// By default a file whose pixel data ends early decodes successfully and the
// pixels that were not present are left black. Set Decoder.Strict to treat a
// short payload as ErrTruncated instead.
//
// # Errors
//
// Decode errors are *DecodeError values wrapping one of ErrTooShort,
// ErrBadMagic, ErrMalformedHeader, ErrInvalidDimension, ErrInvalidMaxValue,
// ErrChannelOverflow or ErrTruncated. Decoding never returns a partial image
// alongside an error.
package ppm
