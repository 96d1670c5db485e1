package imaging

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/convolution"
	"github.com/anthonynsimon/bild/effect"
)

// BorderMode selects how pixels outside the image are synthesised.
type BorderMode int

const (
	BorderReflect101 BorderMode = iota
	BorderReplicate
)

func (m BorderMode) index(i, n int) int {
	if m == BorderReplicate {
		return replicate(i, n)
	}
	return reflect101(i, n)
}

// gaussianKernel returns a normalised 1-D kernel with sigma derived from the size.
func gaussianKernel(size int) []float64 {
	size = OddKernel(size)
	sigma := 0.3*(float64(size-1)*0.5-1) + 0.8
	k := make([]float64, size)
	r := size / 2
	var sum float64
	for i := range k {
		d := float64(i - r)
		k[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

func separable(img *image.Gray, k []float64, border BorderMode) []float64 {
	w, h := dims(img)
	r := len(k) / 2
	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := img.Pix[y*w : y*w+w]
		for x := 0; x < w; x++ {
			var acc float64
			for i, kv := range k {
				acc += kv * float64(row[border.index(x+i-r, w)])
			}
			tmp[y*w+x] = acc
		}
	}
	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for i, kv := range k {
				acc += kv * tmp[border.index(y+i-r, h)*w+x]
			}
			out[y*w+x] = acc
		}
	}
	return out
}

func fromFloats(w, h int, v []float64) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, w, h))
	for i, f := range v {
		out.Pix[i] = clampU8(f)
	}
	return out
}

// gaussianBlurBorder is the local-mean estimate for Gaussian adaptive thresholding.
// Weights follow the OpenCV kernel so thresholds stay comparable.
func gaussianBlurBorder(img *image.Gray, size int, border BorderMode) *image.Gray {
	img = compact(img)
	w, h := dims(img)
	return fromFloats(w, h, separable(img, gaussianKernel(size), border))
}

// GaussianBlur smooths img with a Gaussian of radius size/2.
func GaussianBlur(img *image.Gray, size int) *image.Gray {
	return grayOf(blur.Gaussian(compact(img), radiusOf(size)))
}

// MedianBlur replaces each pixel with the median of its size×size neighbourhood.
func MedianBlur(img *image.Gray, size int) *image.Gray {
	return grayOf(effect.Median(compact(img), radiusOf(size)))
}

// RemoveSaltPepper suppresses isolated black and white specks with a median pass.
func RemoveSaltPepper(img *image.Gray, size int) *image.Gray {
	if size < 3 {
		size = 5
	}
	return MedianBlur(img, size)
}

// BilateralFilter smooths flat regions while keeping edges. d is the neighbourhood diameter.
func BilateralFilter(img *image.Gray, d int, sigmaColor, sigmaSpace float64) *image.Gray {
	img = compact(img)
	w, h := dims(img)
	if sigmaColor <= 0 {
		sigmaColor = 1
	}
	if sigmaSpace <= 0 {
		sigmaSpace = 1
	}
	r := d / 2
	if d <= 0 {
		r = int(math.Round(sigmaSpace * 1.5))
	}
	if r < 1 {
		r = 1
	}

	type tap struct {
		dx, dy int
		weight float64
	}
	var taps []tap
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			dist := math.Sqrt(float64(dx*dx + dy*dy))
			if dist > float64(r) {
				continue
			}
			taps = append(taps, tap{dx, dy, math.Exp(-(dist * dist) / (2 * sigmaSpace * sigmaSpace))})
		}
	}
	var colorW [256]float64
	for i := range colorW {
		colorW[i] = math.Exp(-float64(i*i) / (2 * sigmaColor * sigmaColor))
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := int(img.Pix[y*w+x])
			var sum, wsum float64
			for _, t := range taps {
				v := int(img.Pix[reflect101(y+t.dy, h)*w+reflect101(x+t.dx, w)])
				diff := v - c
				if diff < 0 {
					diff = -diff
				}
				wt := t.weight * colorW[diff]
				sum += wt * float64(v)
				wsum += wt
			}
			out.Pix[y*w+x] = clampU8(sum / wsum)
		}
	}
	return out
}

// Erode takes the minimum over a size×size window.
func Erode(img *image.Gray, size int) *image.Gray {
	return grayOf(effect.Erode(compact(img), radiusOf(size)))
}

// Dilate takes the maximum over a size×size window.
func Dilate(img *image.Gray, size int) *image.Gray {
	return grayOf(effect.Dilate(compact(img), radiusOf(size)))
}

// MorphOpen is erosion followed by dilation.
func MorphOpen(img *image.Gray, size int) *image.Gray {
	return Dilate(Erode(img, size), size)
}

// MorphClose is dilation followed by erosion.
func MorphClose(img *image.Gray, size int) *image.Gray {
	return Erode(Dilate(img, size), size)
}

// Sharpen convolves with the 3×3 high-boost kernel (centre 9, neighbours -1) scaled by strength.
func Sharpen(img *image.Gray, strength float64) *image.Gray {
	k := convolution.NewKernel(3, 3)
	copy(k.Matrix, []float64{-1, -1, -1, -1, 9, -1, -1, -1, -1})
	for i := range k.Matrix {
		k.Matrix[i] *= strength
	}
	return grayOf(convolution.Convolve(compact(img), k, &convolution.Options{}))
}

// localMoments returns per-pixel mean and standard deviation over a window×window box.
func localMoments(img *image.Gray, window int, border BorderMode) (mean, std []float64) {
	img = compact(img)
	w, h := dims(img)
	r := window / 2
	pw, ph := w+2*r, h+2*r
	// integral images over the padded image, one extra row/column of zeros
	s := make([]float64, (pw+1)*(ph+1))
	sq := make([]float64, (pw+1)*(ph+1))
	for y := 0; y < ph; y++ {
		sy := border.index(y-r, h)
		var rowSum, rowSq float64
		for x := 0; x < pw; x++ {
			v := float64(img.Pix[sy*w+border.index(x-r, w)])
			rowSum += v
			rowSq += v * v
			i := (y+1)*(pw+1) + x + 1
			s[i] = s[i-(pw+1)] + rowSum
			sq[i] = sq[i-(pw+1)] + rowSq
		}
	}
	area := float64(window * window)
	mean = make([]float64, w*h)
	std = make([]float64, w*h)
	box := func(t []float64, x0, y0, x1, y1 int) float64 {
		return t[y1*(pw+1)+x1] - t[y0*(pw+1)+x1] - t[y1*(pw+1)+x0] + t[y0*(pw+1)+x0]
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m := box(s, x, y, x+window, y+window) / area
			m2 := box(sq, x, y, x+window, y+window) / area
			variance := m2 - m*m
			if variance < 0 {
				variance = 0
			}
			mean[y*w+x] = m
			std[y*w+x] = math.Sqrt(variance)
		}
	}
	return mean, std
}
