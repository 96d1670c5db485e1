// Package imaging holds the raster algorithms used by document preprocessing.
// Every function takes an *image.Gray and returns a new image; inputs are never modified.
package imaging

import (
	"image"
	"image/color"
	"math"
)

// White and Black are the background and ink levels of binary images.
const (
	White uint8 = 255
	Black uint8 = 0
)

// ToGray converts img to 8-bit luminance anchored at the origin.
func ToGray(img image.Image) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if g, ok := img.(*image.Gray); ok {
		for y := 0; y < h; y++ {
			off := g.PixOffset(b.Min.X, b.Min.Y+y)
			copy(out.Pix[y*out.Stride:y*out.Stride+w], g.Pix[off:off+w])
		}
		return out
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Pix[y*out.Stride+x] = color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray).Y
		}
	}
	return out
}

// Clone returns a compact copy of img.
func Clone(img *image.Gray) *image.Gray {
	return ToGray(img)
}

// NewFilled returns a w×h image with every pixel set to v.
func NewFilled(w, h int, v uint8) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, w, h))
	if v != 0 {
		for i := range out.Pix {
			out.Pix[i] = v
		}
	}
	return out
}

// compact guarantees origin-anchored images with Stride == width.
func compact(img *image.Gray) *image.Gray {
	b := img.Bounds()
	if b.Min == (image.Point{}) && img.Stride == b.Dx() {
		return img
	}
	return ToGray(img)
}

// grayOf collapses a filter result back to luminance. Sources are gray, so the red
// channel carries the value.
func grayOf(src *image.RGBA) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		off := src.PixOffset(b.Min.X, b.Min.Y+y)
		for x := 0; x < w; x++ {
			out.Pix[y*w+x] = src.Pix[off+x*4]
		}
	}
	return out
}

// radiusOf converts an odd kernel size to the integral radius the filter package expects.
func radiusOf(size int) float64 {
	return float64(OddKernel(size) / 2)
}

func dims(img *image.Gray) (int, int) {
	b := img.Bounds()
	return b.Dx(), b.Dy()
}

// reflect101 mirrors out-of-range indices without repeating the edge pixel (gfedcb|abcdefgh|gfedcba).
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

// replicate clamps out-of-range indices to the edge pixel (aaaaaa|abcdefgh|hhhhhhh).
func replicate(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func clampU8(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// OddKernel coerces a window or kernel size to an odd value of at least 3.
func OddKernel(k int) int {
	if k < 3 {
		return 3
	}
	if k%2 == 0 {
		return k + 1
	}
	return k
}
