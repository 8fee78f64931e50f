package ppm

import (
	"errors"
	"fmt"
)

// Decode failures. Every error returned by Decode wraps exactly one of these in
// a *DecodeError, so callers can match with errors.Is.
var (
	ErrTooShort         = errors.New("buffer too short")
	ErrBadMagic         = errors.New("image format must be \"P6\"")
	ErrMalformedHeader  = errors.New("malformed header")
	ErrInvalidDimension = errors.New("image size is incorrect")
	ErrInvalidMaxValue  = errors.New("maximum color value is incorrect")
	ErrChannelOverflow  = errors.New("color element exceeds maximum value")
	ErrTruncated        = errors.New("pixel data truncated")
)

// DecodeError records where in the input a decode failure was detected.
type DecodeError struct {
	// Offset is the byte position in the input at which decoding stopped.
	Offset int

	// Detail optionally describes the offending input.
	Detail string

	// Err is one of the package's sentinel errors.
	Err error
}

func (e *DecodeError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("ppm: %v at byte %d: %s", e.Err, e.Offset, e.Detail)
	}
	return fmt.Sprintf("ppm: %v at byte %d", e.Err, e.Offset)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func decodeErr(offset int, err error, format string, args ...interface{}) error {
	de := &DecodeError{Offset: offset, Err: err}
	if format != "" {
		de.Detail = fmt.Sprintf(format, args...)
	}
	return de
}
