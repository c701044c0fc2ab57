package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"sync"
	"time"
)

type cachedImage struct {
	buf     *image.NRGBA
	format  string
	modTime time.Time
	size    int64
}

// ImageCache provides thread-safe caching of decoded pixel buffers to avoid
// redundant disk reads and conversions.
//
// The cache stores each image already normalized to *image.NRGBA, keyed by its
// file path. Once an image is loaded, subsequent Load() calls for the same path
// return the cached buffer without decoding again, as long as the file's
// modification time and size are unchanged. A changed file is decoded into a
// new buffer. Callers must treat returned buffers as read-only; every
// segmentation pass allocates its own output.
//
// # Memory Management
//
// Cached images remain in memory until explicitly removed via Evict() or Clear().
// For long-running processes handling many images, consider periodic cleanup to
// prevent unbounded memory growth.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]cachedImage
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]cachedImage),
	}
}

// Load retrieves an image from the cache or decodes it from disk if not cached.
//
// Supported formats are PNG, JPEG, and GIF. The image is converted to a
// zero-origin *image.NRGBA so that alpha is available unpremultiplied as the
// validity flag.
//
// # Errors
//
//   - Returns error if the file does not exist or cannot be read
//   - Returns error if the file is not a valid PNG, JPEG, or GIF image
func (c *ImageCache) Load(path string) (*image.NRGBA, error) {
	entry, err := c.load(path)
	if err != nil {
		return nil, err
	}
	return entry.buf, nil
}

func (c *ImageCache) load(path string) (cachedImage, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return cachedImage{}, fmt.Errorf("failed to open image: %w", err)
	}

	c.mu.RLock()
	entry, ok := c.images[path]
	c.mu.RUnlock()
	if ok && entry.modTime.Equal(stat.ModTime()) && entry.size == stat.Size() {
		return entry, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return cachedImage{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return cachedImage{}, fmt.Errorf("failed to decode image: %w", err)
	}

	entry = cachedImage{
		buf:     ToNRGBA(img),
		format:  format,
		modTime: stat.ModTime(),
		size:    stat.Size(),
	}

	c.mu.Lock()
	c.images[path] = entry
	c.mu.Unlock()

	return entry, nil
}

// Clear removes all images from the cache, freeing the associated memory.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]cachedImage)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path.
// If the path is not in the cache, this method does nothing.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// ImageInfo contains metadata about a loaded image file.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the decoder that recognized the file: "png", "jpeg" or "gif".
	Format string `json:"format"`

	// ValidPixels is the number of pixels with alpha 255, i.e. the samples
	// that statistics and tile averages will consider.
	ValidPixels int `json:"valid_pixels"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads an image into the cache (if not already cached) and
// returns its dimensions, format, valid-sample count and file size.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	entry, err := cache.load(path)
	if err != nil {
		return nil, err
	}

	return &ImageInfo{
		Width:         entry.buf.Rect.Dx(),
		Height:        entry.buf.Rect.Dy(),
		Format:        entry.format,
		ValidPixels:   CountValid(entry.buf),
		FileSizeBytes: entry.size,
	}, nil
}
