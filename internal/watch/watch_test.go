package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ironsheep/ppm-edge/internal/fileio"
	"github.com/ironsheep/ppm-edge/internal/imaging"
	"github.com/ironsheep/ppm-edge/internal/pipeline"
	"github.com/ironsheep/ppm-edge/internal/ppm"
	"github.com/ironsheep/ppm-edge/internal/raster"
)

type runResult struct {
	input string
	res   *pipeline.Result
	err   error
}

// writePPM writes a width x height P6 file with a bright left column.
func writePPM(t *testing.T, path string, width, height int) {
	t.Helper()
	img := raster.NewImage(width, height, 255)
	for y := 0; y < height; y++ {
		img.Set(0, y, raster.Grey(255))
	}
	data, err := ppm.Marshal(img)
	if err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	if err := fileio.WriteFile(path, data); err != nil {
		t.Fatalf("failed to write image: %v", err)
	}
}

// startWatch runs Run in the background and returns the channel fed by
// OnResult. The watch is stopped when the test ends.
func startWatch(t *testing.T, cfg Config) <-chan runResult {
	t.Helper()

	results := make(chan runResult, 16)
	cfg.Workers = 2
	cfg.Settle = 20 * time.Millisecond
	cfg.OnResult = func(input string, res *pipeline.Result, err error) {
		results <- runResult{input, res, err}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run returned %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Run did not stop after cancellation")
		}
	})

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	return results
}

func waitResult(t *testing.T, results <-chan runResult) runResult {
	t.Helper()
	select {
	case r := <-results:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the pipeline")
		return runResult{}
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"frame.ppm", true},
		{"FRAME.PPM", true},
		{"/in/frame.ppm.zst", true},
		{"frame.png", false},
		{"frame.ppm.tmp", false},
		{".frame.ppm.123.tmp", false},
		{".hidden.ppm", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := Matches(tt.path); got != tt.want {
				t.Errorf("Matches(%q): got %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestRun_ProcessesNewFiles(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	results := startWatch(t, Config{InputDir: in, OutputDir: out})

	writePPM(t, filepath.Join(in, "frame.ppm"), 6, 5)

	r := waitResult(t, results)
	if r.err != nil {
		t.Fatalf("pipeline failed: %v", r.err)
	}
	if r.res.OutputWidth != 4 || r.res.OutputHeight != 3 {
		t.Errorf("output: got %dx%d, want 4x3", r.res.OutputWidth, r.res.OutputHeight)
	}

	data, err := fileio.ReadFile(filepath.Join(out, "frame.ppm"))
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	img, err := ppm.Decode(data)
	if err != nil {
		t.Fatalf("output does not decode: %v", err)
	}
	if img.MaxValue != 1020 {
		t.Errorf("MaxValue: got %d, want 1020", img.MaxValue)
	}
}

func TestRun_Compressed(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	results := startWatch(t, Config{InputDir: in, OutputDir: out})

	writePPM(t, filepath.Join(in, "frame.ppm.zst"), 4, 4)

	if r := waitResult(t, results); r.err != nil {
		t.Fatalf("pipeline failed: %v", r.err)
	}
	if _, err := fileio.ReadFile(filepath.Join(out, "frame.ppm.zst")); err != nil {
		t.Errorf("compressed output not readable: %v", err)
	}
}

func TestRun_ErrorsDoNotStopWatch(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	results := startWatch(t, Config{InputDir: in, OutputDir: out})

	// Ignored: not a PPM.
	if err := os.WriteFile(filepath.Join(in, "notes.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	// Fails: too small for the operator.
	writePPM(t, filepath.Join(in, "tiny.ppm"), 2, 2)

	r := waitResult(t, results)
	if !errors.Is(r.err, imaging.ErrImageTooSmall) {
		t.Errorf("tiny.ppm: got %v, want too-small error", r.err)
	}
	if _, err := os.Stat(filepath.Join(out, "tiny.ppm")); !os.IsNotExist(err) {
		t.Error("no output expected for a failed run")
	}

	writePPM(t, filepath.Join(in, "good.ppm"), 5, 5)
	r = waitResult(t, results)
	if r.err != nil || filepath.Base(r.input) != "good.ppm" {
		t.Errorf("good.ppm: got input %s err %v", r.input, r.err)
	}
}

func TestRun_ProcessExisting(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writePPM(t, filepath.Join(in, "old.ppm"), 4, 4)

	results := startWatch(t, Config{InputDir: in, OutputDir: out, ProcessExisting: true})

	r := waitResult(t, results)
	if r.err != nil || filepath.Base(r.input) != "old.ppm" {
		t.Errorf("got input %s err %v, want old.ppm processed", r.input, r.err)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.ppm")
	writePPM(t, file, 3, 3)

	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"same directory", Config{InputDir: dir, OutputDir: dir}, ErrSameDirectory},
		{"same directory different spelling", Config{InputDir: dir, OutputDir: dir + string(filepath.Separator) + "."}, ErrSameDirectory},
		{"missing input", Config{InputDir: filepath.Join(dir, "nope"), OutputDir: t.TempDir()}, fileio.ErrIO},
		{"output is a file", Config{InputDir: t.TempDir(), OutputDir: file}, pipeline.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Run(context.Background(), tt.cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDebouncer_CoalescesBursts(t *testing.T) {
	d := newDebouncer(30 * time.Millisecond)
	defer d.stop()

	for i := 0; i < 5; i++ {
		d.touch("a.ppm")
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case p := <-d.ready:
		if p != "a.ppm" {
			t.Errorf("got %s, want a.ppm", p)
		}
	case <-time.After(time.Second):
		t.Fatal("no path delivered")
	}

	select {
	case p := <-d.ready:
		t.Errorf("burst delivered twice (%s)", p)
	case <-time.After(100 * time.Millisecond):
	}
}
