// Package fileio reads and writes whole image files.
//
// Paths ending in ".zst" are transparently zstd-decompressed on read and
// compressed on write. Writes go to a temporary file in the destination
// directory that is renamed into place only once every byte is on disk, so
// a failed run never leaves a partial output file behind.
package fileio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// ErrIO is wrapped by every open, read, write or (de)compression failure.
var ErrIO = errors.New("i/o failure")

// CompressedExt marks zstd-compressed files.
const CompressedExt = ".zst"

// IsCompressed reports whether path names a zstd-compressed file.
func IsCompressed(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), CompressedExt)
}

// Ext returns the lower-cased extension of path, looking through a trailing
// ".zst" so that "frame.ppm.zst" reports ".ppm".
func Ext(path string) string {
	if IsCompressed(path) {
		path = path[:len(path)-len(CompressedExt)]
	}
	return strings.ToLower(filepath.Ext(path))
}

// ReadFile returns the full, decompressed content of path.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", ErrIO, path, err)
	}
	if !IsCompressed(path) {
		return data, nil
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create zstd decoder: %w", ErrIO, err)
	}
	defer dec.Close()

	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decompress %s: %w", ErrIO, path, err)
	}
	return out, nil
}

// WriteFile atomically replaces path with data, compressing it first when
// path ends in ".zst".
func WriteFile(path string, data []byte) error {
	if IsCompressed(path) {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return fmt.Errorf("%w: failed to create zstd encoder: %w", ErrIO, err)
		}
		data = enc.EncodeAll(data, make([]byte, 0, len(data)/2))
		if err := enc.Close(); err != nil {
			return fmt.Errorf("%w: failed to compress %s: %w", ErrIO, path, err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: failed to create %s: %w", ErrIO, path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: failed to write %s: %w", ErrIO, path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: failed to write %s: %w", ErrIO, path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: failed to write %s: %w", ErrIO, path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: failed to write %s: %w", ErrIO, path, err)
	}
	return nil
}
