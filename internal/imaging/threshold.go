package imaging

import (
	"image"
	"math"
)

// AdaptiveMethod selects the local mean used by AdaptiveThreshold.
type AdaptiveMethod int

const (
	AdaptiveGaussian AdaptiveMethod = iota
	AdaptiveMean
)

// Threshold maps pixels above t to 255 and the rest to 0; inverse swaps the two.
func Threshold(img *image.Gray, t uint8, inverse bool) *image.Gray {
	img = compact(img)
	w, h := dims(img)
	out := image.NewGray(image.Rect(0, 0, w, h))
	hi, lo := White, Black
	if inverse {
		hi, lo = Black, White
	}
	for i, v := range img.Pix {
		if v > t {
			out.Pix[i] = hi
		} else {
			out.Pix[i] = lo
		}
	}
	return out
}

// OtsuThreshold picks the level that maximises between-class variance.
func OtsuThreshold(img *image.Gray) uint8 {
	hist := Histogram(img)
	total := 0
	var mu float64
	for v, c := range hist {
		total += c
		mu += float64(v) * float64(c)
	}
	if total == 0 {
		return 0
	}
	n := float64(total)
	mu /= n

	const eps = 1.19209290e-07
	var q1, s1, best float64
	level := 0
	for i := 0; i < 256; i++ {
		p := float64(hist[i]) / n
		q1 += p
		s1 += float64(i) * p
		q2 := 1 - q1
		if math.Min(q1, q2) < eps || math.Max(q1, q2) > 1-eps {
			continue
		}
		mu1 := s1 / q1
		mu2 := (mu - s1) / q2
		sigma := q1 * q2 * (mu1 - mu2) * (mu1 - mu2)
		if sigma > best {
			best = sigma
			level = i
		}
	}
	return uint8(level)
}

// Otsu binarises img at its Otsu level and returns the level used.
func Otsu(img *image.Gray, inverse bool) (*image.Gray, uint8) {
	t := OtsuThreshold(img)
	return Threshold(img, t, inverse), t
}

// TriangleThreshold finds the level furthest from the line joining the histogram peak to the
// far end of its longer tail.
func TriangleThreshold(img *image.Gray) uint8 {
	hist := Histogram(img)
	const n = 256
	left, right := 0, n-1
	for left < n && hist[left] == 0 {
		left++
	}
	if left == n {
		return 0
	}
	for right > 0 && hist[right] == 0 {
		right--
	}
	if left > 0 {
		left--
	}
	if right < n-1 {
		right++
	}
	peak := 0
	for i := 0; i < n; i++ {
		if hist[i] > hist[peak] {
			peak = i
		}
	}

	flip := false
	if peak-left < right-peak {
		flip = true
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			hist[i], hist[j] = hist[j], hist[i]
		}
		left = n - 1 - right
		peak = n - 1 - peak
	}

	thresh := left
	a := float64(hist[peak])
	b := float64(left - peak)
	var dist float64
	for i := left + 1; i <= peak; i++ {
		d := a*float64(i) + b*float64(hist[i])
		if d > dist {
			dist = d
			thresh = i
		}
	}
	thresh--
	if flip {
		thresh = n - 1 - thresh
	}
	if thresh < 0 {
		thresh = 0
	}
	if thresh > 255 {
		thresh = 255
	}
	return uint8(thresh)
}

// AdaptiveThreshold marks a pixel white when it exceeds its local mean minus c.
// The local mean is a Gaussian-weighted or plain blockSize×blockSize window.
func AdaptiveThreshold(img *image.Gray, blockSize int, c float64, method AdaptiveMethod) *image.Gray {
	img = compact(img)
	blockSize = OddKernel(blockSize)
	w, h := dims(img)
	var local *image.Gray
	if method == AdaptiveMean {
		mean, _ := localMoments(img, blockSize, BorderReplicate)
		local = fromFloats(w, h, mean)
	} else {
		local = gaussianBlurBorder(img, blockSize, BorderReplicate)
	}
	delta := int(math.Round(c))
	out := image.NewGray(image.Rect(0, 0, w, h))
	for i, v := range img.Pix {
		if int(v)-int(local.Pix[i]) > -delta {
			out.Pix[i] = White
		}
	}
	return out
}

// Sauvola thresholds against mean·(1 + k·(std/r − 1)) over a window×window neighbourhood.
func Sauvola(img *image.Gray, window int, k, r float64) *image.Gray {
	if r == 0 {
		r = 128
	}
	return localThreshold(img, window, func(mean, std float64) float64 {
		return mean * (1 + k*((std/r)-1))
	})
}

// Niblack thresholds against mean + k·std over a window×window neighbourhood.
func Niblack(img *image.Gray, window int, k float64) *image.Gray {
	return localThreshold(img, window, func(mean, std float64) float64 {
		return mean + k*std
	})
}

func localThreshold(img *image.Gray, window int, thresh func(mean, std float64) float64) *image.Gray {
	img = compact(img)
	window = OddKernel(window)
	w, h := dims(img)
	mean, std := localMoments(img, window, BorderReflect101)
	out := image.NewGray(image.Rect(0, 0, w, h))
	for i, v := range img.Pix {
		if float64(v) > thresh(mean[i], std[i]) {
			out.Pix[i] = White
		}
	}
	return out
}

// MultiScaleAdaptive combines Gaussian adaptive thresholds at several block sizes by
// per-pixel median.
func MultiScaleAdaptive(img *image.Gray, scales []int, c float64) *image.Gray {
	img = compact(img)
	if len(scales) == 0 {
		scales = []int{11, 21, 31}
	}
	layers := make([]*image.Gray, len(scales))
	for i, s := range scales {
		layers[i] = AdaptiveThreshold(img, s, c, AdaptiveGaussian)
	}
	w, h := dims(img)
	out := image.NewGray(image.Rect(0, 0, w, h))
	for i := range out.Pix {
		white := 0
		for _, l := range layers {
			if l.Pix[i] == White {
				white++
			}
		}
		if white*2 > len(layers) {
			out.Pix[i] = White
		}
	}
	return out
}

// InkRatio is the fraction of pixels darker than mid-gray.
func InkRatio(img *image.Gray) float64 {
	img = compact(img)
	if len(img.Pix) == 0 {
		return 0
	}
	ink := 0
	for _, v := range img.Pix {
		if v < 128 {
			ink++
		}
	}
	return float64(ink) / float64(len(img.Pix))
}
