package imaging

import (
	"fmt"
	"os"
	"sync"

	"github.com/ironsheep/ppm-edge/internal/fileio"
	"github.com/ironsheep/ppm-edge/internal/ppm"
	"github.com/ironsheep/ppm-edge/internal/raster"
)

// ImageCache provides thread-safe caching of decoded images to avoid redundant
// disk reads.
//
// The cache stores decoded *raster.Image values keyed by their file path. Once
// an image is loaded, subsequent Load() calls for the same path return the
// cached copy without disk I/O. Cached images are shared between callers and
// must be treated as read-only; every operation in this package already does.
//
// # Memory Management
//
// Cached images remain in memory until explicitly removed via Evict() or Clear().
// For long-running processes handling many images, consider periodic cleanup to
// prevent unbounded memory growth.
type ImageCache struct {
	mu      sync.RWMutex
	images  map[string]*raster.Image
	decoder ppm.Decoder
}

// NewImageCache creates an empty cache that decodes with a lenient decoder.
func NewImageCache() *ImageCache {
	return NewImageCacheWithDecoder(ppm.Decoder{})
}

// NewImageCacheWithDecoder creates an empty cache that decodes P6 files with d.
func NewImageCacheWithDecoder(d ppm.Decoder) *ImageCache {
	return &ImageCache{
		images:  make(map[string]*raster.Image),
		decoder: d,
	}
}

// Load retrieves an image from the cache or loads it from disk if not cached.
//
// The image is cached using the exact path string provided. Different paths to
// the same file (e.g., relative vs absolute) will result in separate cache
// entries. Failed loads are not cached.
func (c *ImageCache) Load(path string) (*raster.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	img, err := LoadFile(path, c.decoder)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]*raster.Image)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path.
// If the path is not in the cache, this method does nothing.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// LoadFile reads and decodes the image at path.
//
// Files with a ".ppm" extension (optionally followed by ".zst") are decoded
// with d. Anything else is handed to Import, so PNG, JPEG, GIF, BMP and TIFF
// sources can feed the pipeline too.
//
// Read failures wrap fileio.ErrIO; decode failures wrap the ppm package's
// sentinel errors.
func LoadFile(path string, d ppm.Decoder) (*raster.Image, error) {
	data, err := fileio.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if fileio.Ext(path) != ".ppm" {
		return Import(data)
	}

	img, err := d.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

// ImageInfo contains metadata about a loaded image file.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// MaxValue is the declared maximum channel value.
	MaxValue int `json:"max_value"`

	// ColorDepth is "8-bit" when samples take one byte on disk, else "16-bit".
	ColorDepth string `json:"color_depth"`

	// Compressed reports whether the file is zstd-compressed.
	Compressed bool `json:"compressed"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`

	// Stats summarises the pixel values.
	Stats *Stats `json:"stats"`
}

// LoadImageInfo loads an image through cache and returns its metadata.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to stat file: %w", fileio.ErrIO, err)
	}

	colorDepth := "8-bit"
	if img.ChannelBytes() == 2 {
		colorDepth = "16-bit"
	}

	return &ImageInfo{
		Width:         img.Width,
		Height:        img.Height,
		MaxValue:      img.MaxValue,
		ColorDepth:    colorDepth,
		Compressed:    fileio.IsCompressed(path),
		FileSizeBytes: stat.Size(),
		Stats:         ComputeStats(img),
	}, nil
}
