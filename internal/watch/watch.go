// Package watch runs the edge pipeline on every PPM file written to a
// directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ironsheep/ppm-edge/internal/fileio"
	"github.com/ironsheep/ppm-edge/internal/pipeline"
)

// DefaultSettle is how long a file must stay unmodified before it is
// processed.
const DefaultSettle = 200 * time.Millisecond

// ErrSameDirectory is returned when input and output directories coincide;
// every result would trigger another run.
var ErrSameDirectory = errors.New("input and output directories must differ")

// Config describes a watch session.
type Config struct {
	// InputDir is watched for new or rewritten .ppm and .ppm.zst files.
	InputDir string

	// OutputDir receives each edge map under the input file's name.
	OutputDir string

	// Workers, Strict and MaxPixels are passed to every pipeline run.
	Workers   int
	Strict    bool
	MaxPixels int

	// ProcessExisting runs the pipeline over matching files already present
	// when the watch starts.
	ProcessExisting bool

	// Settle debounces bursts of write events; 0 means DefaultSettle.
	Settle time.Duration

	// Logger receives one line per processed file and every error. Nil
	// discards them.
	Logger *log.Logger

	// Debug also passes Logger to the pipeline for stage timings.
	Debug bool

	// OnResult, when set, is called after every pipeline run.
	OnResult func(input string, res *pipeline.Result, err error)
}

// Matches reports whether path names a file the watcher processes.
func Matches(path string) bool {
	base := filepath.Base(path)
	return fileio.Ext(path) == ".ppm" && base[0] != '.'
}

// Run watches cfg.InputDir until ctx is cancelled. Pipeline failures are
// logged and do not stop the watch; only a failing watcher does.
func Run(ctx context.Context, cfg Config) error {
	if err := validate(&cfg); err != nil {
		return err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(cfg.InputDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", cfg.InputDir, err)
	}

	w := &watcher{cfg: cfg, logger: logger}

	if cfg.ProcessExisting {
		entries, err := os.ReadDir(cfg.InputDir)
		if err != nil {
			return fmt.Errorf("%w: failed to list %s: %w", fileio.ErrIO, cfg.InputDir, err)
		}
		for _, e := range entries {
			if e.Type().IsRegular() && Matches(e.Name()) {
				w.process(ctx, filepath.Join(cfg.InputDir, e.Name()))
			}
		}
	}

	logger.Printf("watching %s, writing to %s", cfg.InputDir, cfg.OutputDir)

	deb := newDebouncer(cfg.Settle)
	defer deb.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if Matches(event.Name) {
				deb.touch(event.Name)
			}

		case path := <-deb.ready:
			w.process(ctx, path)

		case err, ok := <-fsw.Errors:
			if !ok {
				return fmt.Errorf("error channel closed")
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

func validate(cfg *Config) error {
	if cfg.Settle <= 0 {
		cfg.Settle = DefaultSettle
	}
	for _, dir := range []string{cfg.InputDir, cfg.OutputDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("%w: %w", fileio.ErrIO, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%w: %s is not a directory", pipeline.ErrInvalidConfig, dir)
		}
	}

	in, err := filepath.Abs(cfg.InputDir)
	if err != nil {
		return fmt.Errorf("%w: %w", fileio.ErrIO, err)
	}
	out, err := filepath.Abs(cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("%w: %w", fileio.ErrIO, err)
	}
	if in == out {
		return fmt.Errorf("%w: %w", pipeline.ErrInvalidConfig, ErrSameDirectory)
	}
	return nil
}

type watcher struct {
	cfg    Config
	logger *log.Logger
}

// process runs the pipeline for one input file.
func (w *watcher) process(ctx context.Context, path string) {
	pc := pipeline.Config{
		Input:     path,
		Output:    filepath.Join(w.cfg.OutputDir, filepath.Base(path)),
		Workers:   w.cfg.Workers,
		Strict:    w.cfg.Strict,
		MaxPixels: w.cfg.MaxPixels,
	}
	if w.cfg.Debug {
		pc.Logger = w.logger
	}

	res, err := pipeline.Run(ctx, pc)
	if err != nil {
		w.logger.Printf("Error processing %s: %v", path, err)
	} else {
		w.logger.Printf("%s -> %s (%dx%d, max %d)", path, res.Output, res.OutputWidth, res.OutputHeight, res.OutputMaxValue)
	}
	if w.cfg.OnResult != nil {
		w.cfg.OnResult(path, res, err)
	}
}

// debouncer delivers a path on ready once no touch has been seen for delay.
type debouncer struct {
	delay  time.Duration
	ready  chan string
	done   chan struct{}
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:  delay,
		ready:  make(chan string),
		done:   make(chan struct{}),
		timers: make(map[string]*time.Timer),
	}
}

func (d *debouncer) touch(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[path]; ok {
		t.Reset(d.delay)
		return
	}
	d.timers[path] = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		delete(d.timers, path)
		d.mu.Unlock()

		select {
		case d.ready <- path:
		case <-d.done:
		}
	})
}

func (d *debouncer) stop() {
	close(d.done)
	d.mu.Lock()
	for _, t := range d.timers {
		t.Stop()
	}
	d.mu.Unlock()
}
