// Package detection finds the horizon line in a grayscale image.
//
// The detector separates sky from non-sky with a single automatically chosen
// global threshold and reports where the boundary between the two crosses the
// first and last image columns. The horizon is approximated as the straight
// segment between those two points.
//
// # Pipeline
//
// Every detection runs the same four stages, in order:
//
//  1. Smooth: 3x3 Gaussian blur with sigma derived from the kernel size
//     (weights 1-2-1 in each direction, reflect-101 borders).
//  2. Binarize: Otsu threshold over the 256-bin intensity histogram of the
//     smoothed image. Pixels strictly above the threshold become 1, the rest 0.
//     The detector then subtracts 1 from every sample with uint8 wrap-around,
//     so sky pixels become 0 and non-sky pixels become 255.
//  3. Close: morphological closing (dilation then erosion) with a 9x9 all-ones
//     structuring element. Only neighbours inside the image take part.
//  4. Extract: in column 0 and column width-1, the lowest row whose closed
//     value is 0 is that column's horizon row.
//
// The stages are reached through the Stages interface. PureStages is the
// default, dependency-light implementation; building with the "gocv" tag adds
// OpenCVStages backed by OpenCV.
//
// # Coordinate System
//
// Coordinates are 0-based and relative to the image bounds:
//   - X: column (0 = leftmost)
//   - Y: row (0 = topmost, increasing downward)
//
// A Line always has X1 == 0 and X2 == width-1. Y1 and Y2 are not clamped or
// checked against each other.
//
// # Errors
//
// Input that is not a single-channel *image.Gray, or that has no pixels, is
// rejected with ErrNotGrayscale or ErrEmptyImage before any stage runs. An edge
// column that contains no sky pixel after closing yields ErrNoSky; there is no
// "no horizon" sentinel value.
//
// # Thread Safety
//
// Detection keeps no state between calls and never writes to its input, so a
// Detector may be shared by any number of goroutines.
package detection
