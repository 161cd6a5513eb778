package imaging

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// Frame is a decoded image together with its grayscale rendition.
type Frame struct {
	// Path is the file the frame was read from.
	Path string

	// Original is the decoded image with EXIF orientation applied.
	Original image.Image

	// Gray is the luminance of Original, origin at (0,0).
	Gray *image.Gray
}

// Load reads and decodes the image at path and converts it to grayscale.
//
// Supported formats are PNG, JPEG, GIF, BMP, TIFF and WebP. JPEG files are
// rotated according to their EXIF orientation tag so the frame matches what
// an image viewer shows.
//
// # Errors
//
//   - Returns error if the file does not exist or cannot be read
//   - Returns error if the file is not in a supported image format
func Load(path string) (*Frame, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to load image %s: %w", path, err)
	}

	return &Frame{
		Path:     path,
		Original: img,
		Gray:     Grayscale(img),
	}, nil
}

// Grayscale converts img to 8-bit luminance using the weights
// 0.299 R + 0.587 G + 0.114 B, rounded to the nearest integer.
func Grayscale(img image.Image) *image.Gray {
	nrgba := imaging.Grayscale(img)

	b := nrgba.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+b.Dx()*4]
		dst := gray.Pix[y*gray.Stride : y*gray.Stride+b.Dx()]
		for x := range dst {
			// R, G and B are equal after imaging.Grayscale.
			dst[x] = src[x*4]
		}
	}
	return gray
}

// ImageCache provides thread-safe caching of loaded frames to avoid redundant
// disk reads and grayscale conversions.
//
// The cache stores frames keyed by their file path. Once a frame is loaded,
// subsequent Load() calls for the same path return the cached copy without
// disk I/O. Frames must be treated as read-only by callers.
//
// ImageCache is safe for concurrent use by multiple goroutines.
//
// # Memory Management
//
// Cached frames remain in memory until explicitly removed via Evict() or
// Clear(). Each frame holds both the decoded image and its grayscale copy.
type ImageCache struct {
	mu     sync.RWMutex
	frames map[string]*Frame
}

// NewImageCache creates and initializes a new empty frame cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		frames: make(map[string]*Frame),
	}
}

// Load retrieves a frame from the cache or loads it from disk if not cached.
//
// The frame is cached using the exact path string provided. Different paths
// to the same file (e.g., relative vs absolute) result in separate entries.
func (c *ImageCache) Load(path string) (*Frame, error) {
	c.mu.RLock()
	if f, ok := c.frames[path]; ok {
		c.mu.RUnlock()
		return f, nil
	}
	c.mu.RUnlock()

	f, err := Load(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.frames[path] = f
	c.mu.Unlock()

	return f, nil
}

// Len returns the number of cached frames.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.frames)
}

// Clear removes all frames from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.frames = make(map[string]*Frame)
	c.mu.Unlock()
}

// Evict removes a specific frame from the cache by its path. The next Load()
// for this path reads from disk again.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.frames, path)
	c.mu.Unlock()
}

// ImageInfo contains metadata about a loaded image file.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the image format guessed from the file extension, or
	// "unknown".
	Format string `json:"format"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads a frame through cache and returns its metadata.
//
// # Format Detection
//
// The format is determined by file extension, case-insensitively:
//   - ".png" -> "png"
//   - ".jpg", ".jpeg" -> "jpeg"
//   - ".gif" -> "gif"
//   - ".bmp" -> "bmp"
//   - ".tif", ".tiff" -> "tiff"
//   - ".webp" -> "webp"
//   - Other extensions -> "unknown"
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	f, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	bounds := f.Original.Bounds()
	return &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        formatFromExt(path),
		FileSizeBytes: stat.Size(),
	}, nil
}

func formatFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "png"
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".gif":
		return "gif"
	case ".bmp":
		return "bmp"
	case ".tif", ".tiff":
		return "tiff"
	case ".webp":
		return "webp"
	}
	return "unknown"
}

// DimensionsResult contains the width and height of an image.
type DimensionsResult struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`
}

// GetDimensions returns the dimensions of an image, loading it into cache if
// not already present.
func GetDimensions(cache *ImageCache, path string) (*DimensionsResult, error) {
	f, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	bounds := f.Original.Bounds()
	return &DimensionsResult{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}
