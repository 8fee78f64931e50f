package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ironsheep/ppm-edge/internal/fileio"
	"github.com/ironsheep/ppm-edge/internal/ppm"
	"github.com/ironsheep/ppm-edge/internal/raster"
)

// writeTestPPM encodes img to path, compressing when path ends in ".zst".
func writeTestPPM(t *testing.T, path string, img *raster.Image) {
	t.Helper()
	data, err := ppm.Marshal(img)
	if err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	if err := fileio.WriteFile(path, data); err != nil {
		t.Fatalf("failed to write test image: %v", err)
	}
}

func TestImageCache_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.ppm")
	src := createNoiseImage(6, 4, 255)
	writeTestPPM(t, path, src)

	cache := NewImageCache()

	img1, err := cache.Load(path)
	if err != nil {
		t.Fatalf("first load failed: %v", err)
	}
	if diff := cmp.Diff(src, img1); diff != "" {
		t.Errorf("decoded image mismatch (-want +got):\n%s", diff)
	}

	// Remove the file; the second load must be served from the cache.
	if err := os.Remove(path); err != nil {
		t.Fatalf("failed to remove file: %v", err)
	}
	img2, err := cache.Load(path)
	if err != nil {
		t.Fatalf("cached load failed: %v", err)
	}
	if img1 != img2 {
		t.Error("expected the same cached image")
	}
	if cache.Len() != 1 {
		t.Errorf("Len: got %d, want 1", cache.Len())
	}

	cache.Evict(path)
	if cache.Len() != 0 {
		t.Errorf("Len after Evict: got %d, want 0", cache.Len())
	}
	if _, err := cache.Load(path); !errors.Is(err, fileio.ErrIO) {
		t.Errorf("load after evict: got %v, want ErrIO", err)
	}
}

func TestImageCache_Clear(t *testing.T) {
	dir := t.TempDir()
	cache := NewImageCache()
	for _, name := range []string{"a.ppm", "b.ppm", "c.ppm"} {
		path := filepath.Join(dir, name)
		writeTestPPM(t, path, createGradientImage(4, 4))
		if _, err := cache.Load(path); err != nil {
			t.Fatalf("load %s failed: %v", name, err)
		}
	}

	if cache.Len() != 3 {
		t.Fatalf("Len: got %d, want 3", cache.Len())
	}
	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("Len after Clear: got %d, want 0", cache.Len())
	}
}

func TestImageCache_ConcurrentLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.ppm")
	writeTestPPM(t, path, createNoiseImage(16, 16, 255))

	cache := NewImageCache()
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Load(path); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent load failed: %v", err)
	}
	if cache.Len() != 1 {
		t.Errorf("Len: got %d, want 1", cache.Len())
	}
}

func TestImageCache_FailedLoadNotCached(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.ppm")
	if err := os.WriteFile(path, []byte("P3\n1 1\n255\n0 0 0\n"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	cache := NewImageCache()
	if _, err := cache.Load(path); !errors.Is(err, ppm.ErrBadMagic) {
		t.Errorf("got %v, want ErrBadMagic", err)
	}
	if cache.Len() != 0 {
		t.Errorf("Len: got %d, want 0", cache.Len())
	}
}

func TestImageCache_StrictDecoder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.ppm")
	// Two pixels declared, one supplied.
	if err := os.WriteFile(path, []byte("P6 2 1 255\n\x01\x02\x03"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	lenient, err := NewImageCache().Load(path)
	if err != nil {
		t.Fatalf("lenient load failed: %v", err)
	}
	if got := lenient.At(1, 0); got != (raster.Pixel{}) {
		t.Errorf("missing pixel: got %v, want zero", got)
	}

	strict := NewImageCacheWithDecoder(ppm.Decoder{Strict: true})
	if _, err := strict.Load(path); !errors.Is(err, ppm.ErrTruncated) {
		t.Errorf("strict load: got %v, want ErrTruncated", err)
	}
}

func TestLoadFile_Compressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.ppm.zst")
	src := createNoiseImage(8, 8, 4095)
	writeTestPPM(t, path, src)

	img, err := LoadFile(path, ppm.Decoder{})
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if diff := cmp.Diff(src, img); diff != "" {
		t.Errorf("decoded image mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFile_PNG(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 3))
	src.Set(1, 1, color.RGBA{0, 255, 0, 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("png.Encode failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "photo.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	img, err := LoadFile(path, ppm.Decoder{})
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if got := img.At(1, 1); got != (raster.Pixel{G: 255}) {
		t.Errorf("pixel: got %v, want {0 255 0}", got)
	}
}

func TestLoadImageInfo(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name           string
		maxValue       int
		wantDepth      string
		wantCompressed bool
	}{
		{"eight.ppm", 255, "8-bit", false},
		{"sixteen.ppm", 1023, "16-bit", false},
		{"packed.ppm.zst", 255, "8-bit", true},
	}

	cache := NewImageCache()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			writeTestPPM(t, path, createSolidImage(12, 5, tt.maxValue, raster.Grey(1)))

			info, err := LoadImageInfo(cache, path)
			if err != nil {
				t.Fatalf("LoadImageInfo failed: %v", err)
			}

			if info.Width != 12 || info.Height != 5 {
				t.Errorf("dimensions: got %dx%d, want 12x5", info.Width, info.Height)
			}
			if info.MaxValue != tt.maxValue {
				t.Errorf("MaxValue: got %d, want %d", info.MaxValue, tt.maxValue)
			}
			if info.ColorDepth != tt.wantDepth {
				t.Errorf("ColorDepth: got %s, want %s", info.ColorDepth, tt.wantDepth)
			}
			if info.Compressed != tt.wantCompressed {
				t.Errorf("Compressed: got %v, want %v", info.Compressed, tt.wantCompressed)
			}
			stat, _ := os.Stat(path)
			if info.FileSizeBytes != stat.Size() {
				t.Errorf("FileSizeBytes: got %d, want %d", info.FileSizeBytes, stat.Size())
			}
			if info.Stats == nil || info.Stats.MaxLuminance != 1 {
				t.Errorf("Stats: got %+v, want MaxLuminance 1", info.Stats)
			}
		})
	}
}

func TestLoadImageInfo_MissingFile(t *testing.T) {
	_, err := LoadImageInfo(NewImageCache(), filepath.Join(t.TempDir(), "missing.ppm"))
	if !errors.Is(err, fileio.ErrIO) {
		t.Errorf("got %v, want ErrIO", err)
	}
}
