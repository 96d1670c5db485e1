package imaging

import (
	"image"
	"math"
)

// NonLocalMeans averages every pixel with the pixels in a search×search window whose
// template×template patches look alike. h controls how quickly dissimilar patches lose weight.
func NonLocalMeans(img *image.Gray, h float64, template, search int) *image.Gray {
	img = compact(img)
	w, ht := dims(img)
	if w == 0 || ht == 0 {
		return image.NewGray(image.Rect(0, 0, w, ht))
	}
	if h <= 0 {
		h = 10
	}
	tr, sr := OddKernel(template)/2, OddKernel(search)/2
	inv := 1 / (h * h)

	sum := make([]float64, w*ht)
	wsum := make([]float64, w*ht)
	// integral image of squared differences against the shifted image, one zero row/column
	ssd := make([]float64, (w+1)*(ht+1))
	for dy := -sr; dy <= sr; dy++ {
		for dx := -sr; dx <= sr; dx++ {
			for y := 0; y < ht; y++ {
				sy := reflect101(y+dy, ht)
				var row float64
				for x := 0; x < w; x++ {
					d := float64(img.Pix[y*w+x]) - float64(img.Pix[sy*w+reflect101(x+dx, w)])
					row += d * d
					ssd[(y+1)*(w+1)+x+1] = ssd[y*(w+1)+x+1] + row
				}
			}
			for y := 0; y < ht; y++ {
				sy := reflect101(y+dy, ht)
				y0, y1 := max(y-tr, 0), min(y+tr+1, ht)
				for x := 0; x < w; x++ {
					x0, x1 := max(x-tr, 0), min(x+tr+1, w)
					n := float64((y1 - y0) * (x1 - x0))
					dist := (ssd[y1*(w+1)+x1] - ssd[y0*(w+1)+x1] - ssd[y1*(w+1)+x0] + ssd[y0*(w+1)+x0]) / n
					wt := math.Exp(-math.Max(dist, 0) * inv)
					sum[y*w+x] += wt * float64(img.Pix[sy*w+reflect101(x+dx, w)])
					wsum[y*w+x] += wt
				}
			}
		}
	}

	out := image.NewGray(image.Rect(0, 0, w, ht))
	for i := range out.Pix {
		out.Pix[i] = clampU8(sum[i] / wsum[i])
	}
	return out
}

// NoiseBands are the Laplacian-variance cut-offs used to pick a filter for a region.
type NoiseBands struct {
	High   float64
	Medium float64
}

// AdaptiveDenoise splits img into block×block tiles and filters each by its own noise
// estimate: bilateral above High, median above Medium, otherwise a light Gaussian.
func AdaptiveDenoise(img *image.Gray, block int, bands NoiseBands) *image.Gray {
	img = compact(img)
	w, h := dims(img)
	if block < 8 {
		block = 64
	}
	out := Clone(img)
	for y0 := 0; y0 < h; y0 += block {
		for x0 := 0; x0 < w; x0 += block {
			r := image.Rect(x0, y0, min(x0+block, w), min(y0+block, h))
			tile := ToGray(img.SubImage(r))
			var filtered *image.Gray
			switch noise := LaplacianVariance(tile); {
			case noise > bands.High:
				filtered = BilateralFilter(tile, 5, 50, 50)
			case noise > bands.Medium:
				filtered = MedianBlur(tile, 3)
			default:
				filtered = GaussianBlur(tile, 3)
			}
			tw := r.Dx()
			for y := 0; y < r.Dy(); y++ {
				row := (y0+y)*w + x0
				copy(out.Pix[row:row+tw], filtered.Pix[y*tw:(y+1)*tw])
			}
		}
	}
	return out
}
