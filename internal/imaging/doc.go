// Package imaging reads images from disk and prepares them for horizon
// detection.
//
// Load decodes a file into a Frame holding the original image and its 8-bit
// grayscale rendition. Decoding goes through github.com/disintegration/imaging,
// so JPEG EXIF orientation is honoured, and WebP is available through
// golang.org/x/image.
//
// # Coordinate System
//
// Frame.Gray always has its origin at (0,0): X increases rightward and Y
// increases downward, matching the row/column indices used by the detector.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Frames returned from the
// cache are shared and must not be modified.
package imaging
