package imaging

import (
	"image"
	"math"
)

// Stats summarises the intensity distribution of a grayscale image.
type Stats struct {
	Width  int
	Height int
	Mean   float64
	Std    float64
	Min    uint8
	Max    uint8
}

// Statistics computes mean and population standard deviation of img.
func Statistics(img *image.Gray) Stats {
	img = compact(img)
	w, h := dims(img)
	s := Stats{Width: w, Height: h}
	n := len(img.Pix)
	if n == 0 {
		return s
	}
	hist := Histogram(img)
	var sum float64
	s.Min, s.Max = 255, 0
	for v, c := range hist {
		if c == 0 {
			continue
		}
		if uint8(v) < s.Min {
			s.Min = uint8(v)
		}
		if uint8(v) > s.Max {
			s.Max = uint8(v)
		}
		sum += float64(v) * float64(c)
	}
	s.Mean = sum / float64(n)
	var sq float64
	for v, c := range hist {
		d := float64(v) - s.Mean
		sq += d * d * float64(c)
	}
	s.Std = math.Sqrt(sq / float64(n))
	return s
}

// Histogram counts pixels per intensity level.
func Histogram(img *image.Gray) [256]int {
	img = compact(img)
	var hist [256]int
	for _, v := range img.Pix {
		hist[v]++
	}
	return hist
}

// LaplacianVariance is the variance of the 4-neighbour Laplacian response, a cheap noise/sharpness estimate.
func LaplacianVariance(img *image.Gray) float64 {
	img = compact(img)
	w, h := dims(img)
	n := w * h
	if n == 0 {
		return 0
	}
	at := func(x, y int) float64 {
		return float64(img.Pix[reflect101(y, h)*w+reflect101(x, w)])
	}
	var sum, sq float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			l := at(x, y-1) + at(x-1, y) + at(x+1, y) + at(x, y+1) - 4*at(x, y)
			sum += l
			sq += l * l
		}
	}
	mean := sum / float64(n)
	return sq/float64(n) - mean*mean
}
