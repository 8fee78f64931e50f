package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strconv"

	"github.com/ironsheep/ppm-edge/internal/fileio"
	"github.com/ironsheep/ppm-edge/internal/imaging"
	"github.com/ironsheep/ppm-edge/internal/pipeline"
	"github.com/ironsheep/ppm-edge/internal/ppm"
	"github.com/ironsheep/ppm-edge/internal/raster"
	"github.com/ironsheep/ppm-edge/internal/server"
	"github.com/ironsheep/ppm-edge/internal/watch"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Exit codes.
const (
	exitOK = iota
	exitUsage
	exitIO
	exitDecode
	exitTooSmall
	exitOther
)

// errUsage marks command-line mistakes.
var errUsage = errors.New("usage error")

func main() {
	// Configure logging to stderr (stdout is for MCP protocol and results)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the subcommand in args and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	debug := os.Getenv("PPM_EDGE_LOG_LEVEL") == "debug"
	if debug {
		log.Printf("ppm-edge v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}

	if len(args) == 0 {
		printHelp(stderr)
		return exitUsage
	}

	var err error
	switch cmd, rest := args[0], args[1:]; cmd {
	case "run":
		err = runPipeline(ctx, rest, stdout, debug)
	case "compare":
		err = runCompare(rest, stdout)
	case "serve":
		err = runServe(ctx, rest, debug)
	case "watch":
		err = runWatch(ctx, rest, debug)
	case "--version", "-v", "version":
		printVersion(stdout)
	case "--help", "-h", "help":
		printHelp(stdout)
	default:
		err = fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}

	if err == nil {
		return exitOK
	}
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	fmt.Fprintf(stderr, "ppm-edge: %v\n", err)
	return exitCode(err)
}

// exitCode maps an error to the documented exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errUsage), errors.Is(err, pipeline.ErrInvalidConfig):
		return exitUsage
	case errors.Is(err, fileio.ErrIO):
		return exitIO
	case isDecodeError(err):
		return exitDecode
	case errors.Is(err, imaging.ErrImageTooSmall):
		return exitTooSmall
	default:
		return exitOther
	}
}

func isDecodeError(err error) bool {
	var de *ppm.DecodeError
	return errors.As(err, &de) || errors.Is(err, raster.ErrInvalidImage)
}

// defaultWorkers returns PPM_EDGE_WORKERS if set, otherwise the CPU count.
func defaultWorkers() (int, error) {
	v := os.Getenv("PPM_EDGE_WORKERS")
	if v == "" {
		return runtime.NumCPU(), nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: PPM_EDGE_WORKERS must be a positive integer, got %q", errUsage, v)
	}
	return n, nil
}

// newFlagSet creates a flag set that reports errors instead of exiting.
func newFlagSet(name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: ppm-edge %s %s\n\nOptions:\n", name, usage)
		fs.PrintDefaults()
	}
	return fs
}

// parseFlags parses args into fs, wrapping failures as usage errors.
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	return nil
}

func runPipeline(ctx context.Context, args []string, stdout io.Writer, debug bool) error {
	workers, err := defaultWorkers()
	if err != nil {
		return err
	}

	fs := newFlagSet("run", "[options] [input output]")
	input := fs.String("i", "", "input image (.ppm, .ppm.zst, or any format the importer reads)")
	output := fs.String("o", "", "output P6 file (.ppm or .ppm.zst)")
	fs.IntVar(&workers, "t", workers, "number of Sobel workers (env PPM_EDGE_WORKERS)")
	strict := fs.Bool("strict", false, "reject truncated pixel data")
	maxPixels := fs.Int("max-pixels", 0, "reject images with more pixels than this (0 = 2^28)")
	grey := fs.Bool("grey", false, "stop after greyscale conversion")
	preview := fs.String("preview", "", "also write a PNG, JPEG, BMP or TIFF rendering of the result")
	previewSize := fs.Int("preview-size", 0, "longest side of the preview in pixels (0 = full size)")
	jsonOut := fs.Bool("json", false, "print the run summary as JSON")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	// Positional form: ppm-edge run input output
	switch rest := fs.Args(); {
	case len(rest) == 2 && *input == "" && *output == "":
		*input, *output = rest[0], rest[1]
	case len(rest) != 0:
		return fmt.Errorf("%w: unexpected arguments %q", errUsage, rest)
	}

	cfg := pipeline.Config{
		Input:         *input,
		Output:        *output,
		Workers:       workers,
		Strict:        *strict,
		MaxPixels:     *maxPixels,
		GreyscaleOnly: *grey,
		Preview:       *preview,
		PreviewSize:   *previewSize,
	}
	if debug {
		cfg.Logger = log.Default()
	}

	res, err := pipeline.Run(ctx, cfg)
	if err != nil {
		return err
	}

	if *jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Fprintf(stdout, "%s: %dx%d -> %s: %dx%d max %d\n",
		res.Input, res.InputWidth, res.InputHeight,
		res.Output, res.OutputWidth, res.OutputHeight, res.OutputMaxValue)
	return nil
}

func runCompare(args []string, stdout io.Writer) error {
	fs := newFlagSet("compare", "[options] a b")
	tolerance := fs.Int("tolerance", 0, "largest per-channel difference counted as equal")
	strict := fs.Bool("strict", false, "reject truncated pixel data")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("%w: compare needs exactly two images", errUsage)
	}

	d := ppm.Decoder{Strict: *strict}
	a, err := imaging.LoadFile(fs.Arg(0), d)
	if err != nil {
		return err
	}
	b, err := imaging.LoadFile(fs.Arg(1), d)
	if err != nil {
		return err
	}

	res, err := imaging.Compare(a, b, *tolerance)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}
	// Differences within -tolerance still count as a match.
	if res.PixelsDifferent > 0 || !res.SameMaxValue {
		return fmt.Errorf("images differ: %d of %d pixels, max value equal: %v",
			res.PixelsDifferent, res.TotalPixels, res.SameMaxValue)
	}
	return nil
}

func runServe(ctx context.Context, args []string, debug bool) error {
	workers, err := defaultWorkers()
	if err != nil {
		return err
	}

	fs := newFlagSet("serve", "[options]")
	fs.IntVar(&workers, "t", workers, "default number of Sobel workers (env PPM_EDGE_WORKERS)")
	strict := fs.Bool("strict", false, "reject truncated pixel data")
	maxPixels := fs.Int("max-pixels", 0, "reject images with more pixels than this (0 = 2^28)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if workers < 1 {
		return fmt.Errorf("%w: -t must be at least 1", errUsage)
	}

	srv := server.NewWithOptions(server.Options{
		Workers: workers,
		Decoder: ppm.Decoder{Strict: *strict, MaxPixels: *maxPixels},
		Version: Version,
		Debug:   debug,
	})
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func runWatch(ctx context.Context, args []string, debug bool) error {
	workers, err := defaultWorkers()
	if err != nil {
		return err
	}

	fs := newFlagSet("watch", "[options]")
	input := fs.String("i", "", "directory to watch for .ppm and .ppm.zst files")
	output := fs.String("o", "", "directory receiving the edge maps")
	fs.IntVar(&workers, "t", workers, "number of Sobel workers (env PPM_EDGE_WORKERS)")
	strict := fs.Bool("strict", false, "reject truncated pixel data")
	maxPixels := fs.Int("max-pixels", 0, "reject images with more pixels than this (0 = 2^28)")
	existing := fs.Bool("existing", false, "also process files already in the directory")
	settle := fs.Duration("settle", watch.DefaultSettle, "quiet period before a written file is processed")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *input == "" || *output == "" {
		return fmt.Errorf("%w: watch needs -i and -o", errUsage)
	}
	if workers < 1 {
		return fmt.Errorf("%w: -t must be at least 1", errUsage)
	}

	return watch.Run(ctx, watch.Config{
		InputDir:        *input,
		OutputDir:       *output,
		Workers:         workers,
		Strict:          *strict,
		MaxPixels:       *maxPixels,
		ProcessExisting: *existing,
		Settle:          *settle,
		Logger:          log.Default(),
		Debug:           debug,
	})
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "ppm-edge %s\n", Version)
	fmt.Fprintf(w, "  Build time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "ppm-edge - Sobel edge detection for binary PPM (P6) images")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: ppm-edge <command> [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  run       Decode, convert to greyscale, run Sobel and encode one image")
	fmt.Fprintln(w, "  compare   Compare two images sample by sample")
	fmt.Fprintln(w, "  serve     Run the MCP server on stdin/stdout")
	fmt.Fprintln(w, "  watch     Run the pipeline on every PPM written to a directory")
	fmt.Fprintln(w, "  version   Print version information")
	fmt.Fprintln(w, "  help      Print this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables:")
	fmt.Fprintln(w, "  PPM_EDGE_LOG_LEVEL=debug    Enable debug logging")
	fmt.Fprintln(w, "  PPM_EDGE_WORKERS=N          Default number of Sobel workers")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Exit status: 0 ok, 1 usage, 2 I/O, 3 decode, 4 image too small, 5 other.")
}
