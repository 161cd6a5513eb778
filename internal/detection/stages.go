package detection

import (
	"image"

	"github.com/anthonynsimon/bild/histogram"
)

const (
	// BlurKernelSize is the side of the square smoothing kernel.
	BlurKernelSize = 3

	// CloseKernelSize is the side of the all-ones structuring element used
	// for closing.
	CloseKernelSize = 9

	// thresholdMaxValue is the value the binarization stage writes for
	// pixels above the threshold.
	thresholdMaxValue = 1

	// fltEpsilon matches single-precision machine epsilon; Otsu skips splits
	// whose lighter class weight falls below it.
	fltEpsilon = 1.1920928955078125e-07
)

// Stages are the image operations the Detector composes. Each stage returns
// a new image and must not modify its argument.
type Stages interface {
	// Smooth blurs a grayscale image with a 3x3 Gaussian kernel.
	Smooth(src *image.Gray) (*image.Gray, error)

	// Binarize applies an Otsu threshold, writing 1 above the threshold
	// and 0 elsewhere.
	Binarize(src *image.Gray) (*image.Gray, error)

	// Close applies morphological closing with a 9x9 all-ones element.
	Close(mask *image.Gray) (*image.Gray, error)
}

// PureStages implements Stages in Go without cgo. Results are bit-identical
// to OpenCV's GaussianBlur(3x3, sigma 0), threshold(BINARY|OTSU) and
// morphologyEx(CLOSE) on 8-bit single-channel data.
type PureStages struct{}

// Smooth implements Stages.
func (PureStages) Smooth(src *image.Gray) (*image.Gray, error) {
	return gaussianBlur3(src), nil
}

// Binarize implements Stages.
func (PureStages) Binarize(src *image.Gray) (*image.Gray, error) {
	return thresholdAbove(src, OtsuThreshold(src), thresholdMaxValue), nil
}

// Close implements Stages.
func (PureStages) Close(mask *image.Gray) (*image.Gray, error) {
	return Erode(Dilate(mask, CloseKernelSize), CloseKernelSize), nil
}

// gaussianBlur3 applies the separable 1-2-1 kernel that a 3x3 Gaussian with
// sigma derived from the kernel size reduces to.
//
// Borders are reflected without repeating the edge pixel (gfedcb|abcdefgh).
// The 16x-scaled integer sum is rounded half up back to 8 bits, so the result
// is exact rather than float-approximated.
func gaussianBlur3(src *image.Gray) *image.Gray {
	b := src.Bounds()
	width, height := b.Dx(), b.Dy()

	// Horizontal pass, scaled by 4
	rows := make([]int, width*height)
	for y := 0; y < height; y++ {
		line := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < width; x++ {
			left := int(line[reflect101(x-1, width)])
			right := int(line[reflect101(x+1, width)])
			rows[y*width+x] = left + 2*int(line[x]) + right
		}
	}

	// Vertical pass, scaled by 16 in total
	dst := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		up := reflect101(y-1, height) * width
		mid := y * width
		down := reflect101(y+1, height) * width
		out := dst.Pix[y*dst.Stride:]
		for x := 0; x < width; x++ {
			sum := rows[up+x] + 2*rows[mid+x] + rows[down+x]
			out[x] = uint8((sum + 8) >> 4)
		}
	}
	return dst
}

// reflect101 maps an out-of-range index back into [0, n) by mirroring
// around the edge pixel.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	if i < 0 {
		return -i
	}
	if i >= n {
		return 2*n - i - 2
	}
	return i
}

// OtsuThreshold returns the intensity that maximizes the between-class
// variance of the two pixel populations it separates (class 0 holds values
// at or below the threshold).
//
// Splits where either class weighs less than single-precision epsilon are
// skipped, and the first maximum wins. A single-valued image therefore
// yields 0.
func OtsuThreshold(img *image.Gray) uint8 {
	bins := histogram.NewRGBAHistogram(img).R.Bins
	b := img.Bounds()
	scale := 1.0 / float64(b.Dx()*b.Dy())

	var mu float64
	for i, count := range bins {
		mu += float64(i) * float64(count)
	}
	mu *= scale

	var (
		q1, mu1    float64
		maxSigma   float64
		bestThresh int
	)
	for i, count := range bins {
		p := float64(count) * scale
		mu1 *= q1
		q1 += p
		q2 := 1 - q1

		if min(q1, q2) < fltEpsilon || max(q1, q2) > 1-fltEpsilon {
			continue
		}

		mu1 = (mu1 + float64(i)*p) / q1
		mu2 := (mu - q1*mu1) / q2
		sigma := q1 * q2 * (mu1 - mu2) * (mu1 - mu2)
		if sigma > maxSigma {
			maxSigma = sigma
			bestThresh = i
		}
	}
	return uint8(bestThresh)
}

// thresholdAbove writes maxValue where a pixel is strictly greater than
// thresh and 0 elsewhere.
func thresholdAbove(src *image.Gray, thresh, maxValue uint8) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		in := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
		out := dst.Pix[y*dst.Stride:]
		for x := 0; x < b.Dx(); x++ {
			if in[x] > thresh {
				out[x] = maxValue
			}
		}
	}
	return dst
}
