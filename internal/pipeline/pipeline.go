// Package pipeline runs the decode, greyscale, Sobel and encode stages end to
// end over files.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/ironsheep/ppm-edge/internal/fileio"
	"github.com/ironsheep/ppm-edge/internal/imaging"
	"github.com/ironsheep/ppm-edge/internal/ppm"
	"github.com/ironsheep/ppm-edge/internal/raster"
)

// ErrInvalidConfig is returned by Run when Config is unusable.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config describes one pipeline run.
type Config struct {
	// Input is the source image. ".ppm" files (optionally ".ppm.zst") are
	// decoded as P6; other extensions go through imaging.Import.
	Input string

	// Output receives the result as P6, zstd-compressed when it ends in ".zst".
	Output string

	// Workers is the Sobel worker count and must be at least 1.
	Workers int

	// Strict rejects truncated pixel payloads instead of zero-filling them.
	Strict bool

	// MaxPixels bounds the decoded image size; 0 means ppm.DefaultMaxPixels.
	MaxPixels int

	// GreyscaleOnly stops after the luminance stage.
	GreyscaleOnly bool

	// Preview, when set, also writes a viewable rendering of the result in the
	// format implied by its extension, shrunk to fit PreviewSize if positive.
	Preview     string
	PreviewSize int

	// Logger receives stage timings and the worker partition. Nil disables
	// logging.
	Logger *log.Logger
}

// Validate reports whether c can be run.
func (c *Config) Validate() error {
	if c.Input == "" {
		return fmt.Errorf("%w: no input file", ErrInvalidConfig)
	}
	if c.Output == "" {
		return fmt.Errorf("%w: no output file", ErrInvalidConfig)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.Preview != "" {
		if _, err := imaging.PreviewEncoder(c.Preview); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

// Timings records how long each stage took.
type Timings struct {
	Decode    time.Duration `json:"decode_ns"`
	Greyscale time.Duration `json:"greyscale_ns"`
	Sobel     time.Duration `json:"sobel_ns"`
	Encode    time.Duration `json:"encode_ns"`
}

// Result describes a completed run.
type Result struct {
	Input          string  `json:"input"`
	Output         string  `json:"output"`
	Preview        string  `json:"preview,omitempty"`
	InputWidth     int     `json:"input_width"`
	InputHeight    int     `json:"input_height"`
	InputMaxValue  int     `json:"input_max_value"`
	OutputWidth    int     `json:"output_width"`
	OutputHeight   int     `json:"output_height"`
	OutputMaxValue int     `json:"output_max_value"`
	Workers        int     `json:"workers"`
	Timings        Timings `json:"timings"`
}

// Run executes the pipeline described by cfg.
//
// The output file is written only after every stage has succeeded, and then
// atomically, so a failed run never leaves a partial or stale-looking result.
// The preview, if requested, is written just before the output and removed
// again if the output cannot be written.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	res := &Result{Input: cfg.Input, Output: cfg.Output, Preview: cfg.Preview}

	start := time.Now()
	img, err := imaging.LoadFile(cfg.Input, ppm.Decoder{Strict: cfg.Strict, MaxPixels: cfg.MaxPixels})
	if err != nil {
		return nil, err
	}
	res.Timings.Decode = time.Since(start)
	res.InputWidth, res.InputHeight, res.InputMaxValue = img.Width, img.Height, img.MaxValue
	logger.Printf("decode %s: %dx%d max %d in %v", cfg.Input, img.Width, img.Height, img.MaxValue, res.Timings.Decode)

	start = time.Now()
	out := imaging.Greyscale(img)
	res.Timings.Greyscale = time.Since(start)
	logger.Printf("greyscale: %v", res.Timings.Greyscale)

	if !cfg.GreyscaleOnly {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("pipeline cancelled: %w", err)
		}

		spans := imaging.Partition(max(img.Width-2, 0)*max(img.Height-2, 0), cfg.Workers)
		res.Workers = len(spans)
		logger.Printf("sobel: %d of %d requested workers, spans %v", len(spans), cfg.Workers, spans)

		start = time.Now()
		out, err = imaging.Sobel(ctx, out, cfg.Workers)
		if err != nil {
			return nil, fmt.Errorf("failed to compute edges of %s: %w", cfg.Input, err)
		}
		res.Timings.Sobel = time.Since(start)
		logger.Printf("sobel: %dx%d max %d in %v", out.Width, out.Height, out.MaxValue, res.Timings.Sobel)
	}
	res.OutputWidth, res.OutputHeight, res.OutputMaxValue = out.Width, out.Height, out.MaxValue

	// The preview goes first so that a failure in either file leaves neither.
	if cfg.Preview != "" {
		if err := imaging.SavePreview(cfg.Preview, out, cfg.PreviewSize); err != nil {
			return nil, fmt.Errorf("failed to write preview %s: %w", cfg.Preview, err)
		}
		logger.Printf("preview %s written", cfg.Preview)
	}

	start = time.Now()
	if err := writeImage(cfg.Output, out); err != nil {
		if cfg.Preview != "" {
			os.Remove(cfg.Preview)
		}
		return nil, err
	}
	res.Timings.Encode = time.Since(start)
	logger.Printf("encode %s: %v", cfg.Output, res.Timings.Encode)

	return res, nil
}

// writeImage encodes img as P6 and stores it at path.
func writeImage(path string, img *raster.Image) error {
	data, err := ppm.Marshal(img)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return fileio.WriteFile(path, data)
}
