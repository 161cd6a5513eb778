package detection

import "image"

// Dilate replaces every pixel with the maximum over a size x size window
// centred on it. Window cells outside the image are ignored.
func Dilate(src *image.Gray, size int) *image.Gray {
	return rankFilter(src, size, func(a, b uint8) uint8 { return max(a, b) })
}

// Erode replaces every pixel with the minimum over a size x size window
// centred on it. Window cells outside the image are ignored.
func Erode(src *image.Gray, size int) *image.Gray {
	return rankFilter(src, size, func(a, b uint8) uint8 { return min(a, b) })
}

// rankFilter applies pick over a square all-ones window. A rectangular
// element is separable, so the window is reduced along rows first and then
// along columns.
func rankFilter(src *image.Gray, size int, pick func(a, b uint8) uint8) *image.Gray {
	b := src.Bounds()
	width, height := b.Dx(), b.Dy()
	half := size / 2

	horiz := make([]uint8, width*height)
	for y := 0; y < height; y++ {
		line := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < width; x++ {
			lo, hi := clamp(x-half, 0, width-1), clamp(x+half, 0, width-1)
			v := line[lo]
			for k := lo + 1; k <= hi; k++ {
				v = pick(v, line[k])
			}
			horiz[y*width+x] = v
		}
	}

	dst := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		lo, hi := clamp(y-half, 0, height-1), clamp(y+half, 0, height-1)
		out := dst.Pix[y*dst.Stride:]
		for x := 0; x < width; x++ {
			v := horiz[lo*width+x]
			for k := lo + 1; k <= hi; k++ {
				v = pick(v, horiz[k*width+x])
			}
			out[x] = v
		}
	}
	return dst
}

// clamp constrains an integer value to the range [lo, hi].
func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
