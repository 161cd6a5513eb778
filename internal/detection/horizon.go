package detection

import (
	"errors"
	"fmt"
	"image"
)

var (
	// ErrNotGrayscale is returned for any input other than a single-channel
	// *image.Gray.
	ErrNotGrayscale = errors.New("image must be a 2-dimensional grayscale image of shape (height, width)")

	// ErrEmptyImage is returned when the input has no rows or no columns.
	ErrEmptyImage = errors.New("image has no pixels")

	// ErrRaggedRows is returned by GrayFromRows when the rows differ in length.
	ErrRaggedRows = errors.New("rows must all have the same length")

	// ErrNoSky is returned when a scanned edge column holds no sky pixel
	// after closing.
	ErrNoSky = errors.New("no sky pixel in column")
)

// Line is the straight-line approximation of the horizon, given by its
// crossings with the first and last image columns.
type Line struct {
	X1 int `json:"x1" yaml:"x1"` // Always 0
	X2 int `json:"x2" yaml:"x2"` // Always width-1
	Y1 int `json:"y1" yaml:"y1"` // Horizon row at X1
	Y2 int `json:"y2" yaml:"y2"` // Horizon row at X2
}

// Coords returns the line as the (x1, x2, y1, y2) tuple.
func (l Line) Coords() (x1, x2, y1, y2 int) {
	return l.X1, l.X2, l.Y1, l.Y2
}

// Detector runs the horizon pipeline over a set of Stages.
type Detector struct {
	stages Stages
}

// NewDetector returns a Detector that drives the given stages. A nil stages
// value selects PureStages.
func NewDetector(stages Stages) *Detector {
	if stages == nil {
		stages = PureStages{}
	}
	return &Detector{stages: stages}
}

// DetectHorizonLine detects the horizon in img using PureStages.
//
// img must be a *image.Gray. The returned Line has X1 = 0 and
// X2 = width-1; Y1 and Y2 are the lowest sky rows in those two columns.
func DetectHorizonLine(img image.Image) (Line, error) {
	return NewDetector(nil).Detect(img)
}

// Detect runs smoothing, binarization, closing and edge-column extraction
// over img and returns the detected horizon.
//
// # Errors
//
//   - ErrNotGrayscale if img is nil or not a *image.Gray
//   - ErrEmptyImage if img has zero width or height
//   - ErrNoSky (wrapped with the column) if an edge column has no sky pixel
//   - any error returned by a stage
func (d *Detector) Detect(img image.Image) (Line, error) {
	gray, err := checkInput(img)
	if err != nil {
		return Line{}, err
	}
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	blurred, err := d.stages.Smooth(gray)
	if err != nil {
		return Line{}, fmt.Errorf("smooth: %w", err)
	}

	thresholded, err := d.stages.Binarize(blurred)
	if err != nil {
		return Line{}, fmt.Errorf("binarize: %w", err)
	}

	closed, err := d.stages.Close(shiftDown(thresholded))
	if err != nil {
		return Line{}, fmt.Errorf("close: %w", err)
	}
	if cb := closed.Bounds(); cb.Dx() != width || cb.Dy() != height {
		return Line{}, fmt.Errorf("close: mask is %dx%d, want %dx%d", cb.Dx(), cb.Dy(), width, height)
	}

	line := Line{X1: 0, X2: width - 1}
	if line.Y1, err = lowestSkyRow(closed, line.X1); err != nil {
		return Line{}, err
	}
	if line.Y2, err = lowestSkyRow(closed, line.X2); err != nil {
		return Line{}, err
	}
	return line, nil
}

// checkInput enforces the single-channel, non-empty precondition.
func checkInput(img image.Image) (*image.Gray, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: got nil", ErrNotGrayscale)
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrNotGrayscale, img)
	}
	if gray == nil || gray.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	return gray, nil
}

// shiftDown subtracts 1 from every sample with uint8 wrap-around, mapping the
// threshold classes {0, 1} to {255, 0}. Sky ends up as 0.
func shiftDown(mask *image.Gray) *image.Gray {
	b := mask.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := mask.Pix[mask.PixOffset(b.Min.X, b.Min.Y+y):]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < b.Dx(); x++ {
			dst[x] = src[x] - 1
		}
	}
	return out
}

// lowestSkyRow returns the largest row index in column x whose value is 0.
func lowestSkyRow(mask *image.Gray, x int) (int, error) {
	b := mask.Bounds()
	for y := b.Dy() - 1; y >= 0; y-- {
		if mask.Pix[mask.PixOffset(b.Min.X+x, b.Min.Y+y)] == 0 {
			return y, nil
		}
	}
	return 0, fmt.Errorf("%w %d", ErrNoSky, x)
}

// GrayFromRows builds a grayscale image from a row-major matrix, one slice
// per row.
//
// # Errors
//
//   - ErrEmptyImage if there are no rows or the rows are empty
//   - ErrRaggedRows if the rows differ in length
func GrayFromRows(rows [][]uint8) (*image.Gray, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmptyImage
	}
	width := len(rows[0])
	img := image.NewGray(image.Rect(0, 0, width, len(rows)))
	for y, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrRaggedRows, y, len(row), width)
		}
		copy(img.Pix[y*img.Stride:], row)
	}
	return img, nil
}
