//go:build gocv

package detection

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// OpenCVStages implements Stages with OpenCV through gocv. It is only
// compiled with the "gocv" build tag and needs OpenCV 4 installed.
type OpenCVStages struct{}

// Smooth implements Stages.
func (OpenCVStages) Smooth(src *image.Gray) (*image.Gray, error) {
	return withMat(src, func(in gocv.Mat, out *gocv.Mat) {
		gocv.GaussianBlur(in, out, image.Point{X: BlurKernelSize, Y: BlurKernelSize}, 0, 0, gocv.BorderDefault)
	})
}

// Binarize implements Stages.
func (OpenCVStages) Binarize(src *image.Gray) (*image.Gray, error) {
	return withMat(src, func(in gocv.Mat, out *gocv.Mat) {
		gocv.Threshold(in, out, 0, thresholdMaxValue, gocv.ThresholdBinary|gocv.ThresholdOtsu)
	})
}

// Close implements Stages.
func (OpenCVStages) Close(mask *image.Gray) (*image.Gray, error) {
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{X: CloseKernelSize, Y: CloseKernelSize})
	defer kernel.Close()

	return withMat(mask, func(in gocv.Mat, out *gocv.Mat) {
		gocv.MorphologyEx(in, out, gocv.MorphClose, kernel)
	})
}

// withMat copies src into an 8-bit single-channel Mat, runs op, and copies
// the result back out.
func withMat(src *image.Gray, op func(in gocv.Mat, out *gocv.Mat)) (*image.Gray, error) {
	b := src.Bounds()
	width, height := b.Dx(), b.Dy()

	buf := make([]byte, width*height)
	for y := 0; y < height; y++ {
		copy(buf[y*width:(y+1)*width], src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):])
	}

	in, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC1, buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create Mat: %w", err)
	}
	defer in.Close()

	out := gocv.NewMat()
	defer out.Close()

	op(in, &out)

	if out.Rows() != height || out.Cols() != width || out.Channels() != 1 {
		return nil, fmt.Errorf("unexpected Mat shape %dx%dx%d", out.Cols(), out.Rows(), out.Channels())
	}

	dst := image.NewGray(image.Rect(0, 0, width, height))
	data := out.ToBytes()
	for y := 0; y < height; y++ {
		copy(dst.Pix[y*dst.Stride:], data[y*width:(y+1)*width])
	}
	return dst, nil
}
