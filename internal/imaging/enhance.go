package imaging

import (
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/effect"
)

// CLAHE applies contrast-limited adaptive histogram equalisation over a tilesX×tilesY grid
// with bilinear interpolation between neighbouring tile mappings.
func CLAHE(img *image.Gray, clipLimit float64, tilesX, tilesY int) *image.Gray {
	img = compact(img)
	w, h := dims(img)
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return out
	}
	if tilesX < 1 {
		tilesX = 1
	}
	if tilesY < 1 {
		tilesY = 1
	}
	tileW := (w + tilesX - 1) / tilesX
	tileH := (h + tilesY - 1) / tilesY
	area := tileW * tileH

	clip := 0
	if clipLimit > 0 {
		clip = int(clipLimit * float64(area) / 256)
		if clip < 1 {
			clip = 1
		}
	}
	scale := 255.0 / float64(area)

	luts := make([][256]uint8, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			var hist [256]int
			for y := ty * tileH; y < (ty+1)*tileH; y++ {
				sy := reflect101(y, h)
				for x := tx * tileW; x < (tx+1)*tileW; x++ {
					hist[img.Pix[sy*w+reflect101(x, w)]]++
				}
			}
			if clip > 0 {
				clipHistogram(&hist, clip)
			}
			lut := &luts[ty*tilesX+tx]
			sum := 0
			for v := 0; v < 256; v++ {
				sum += hist[v]
				lut[v] = clampU8(float64(sum) * scale)
			}
		}
	}

	for y := 0; y < h; y++ {
		fy := (float64(y)+0.5)/float64(tileH) - 0.5
		ty1 := int(math.Floor(fy))
		ya := fy - float64(ty1)
		ty2 := ty1 + 1
		ty1, ty2 = clampTile(ty1, tilesY), clampTile(ty2, tilesY)
		for x := 0; x < w; x++ {
			fx := (float64(x)+0.5)/float64(tileW) - 0.5
			tx1 := int(math.Floor(fx))
			xa := fx - float64(tx1)
			tx2 := tx1 + 1
			tx1, tx2 = clampTile(tx1, tilesX), clampTile(tx2, tilesX)

			v := img.Pix[y*w+x]
			top := float64(luts[ty1*tilesX+tx1][v])*(1-xa) + float64(luts[ty1*tilesX+tx2][v])*xa
			bottom := float64(luts[ty2*tilesX+tx1][v])*(1-xa) + float64(luts[ty2*tilesX+tx2][v])*xa
			out.Pix[y*w+x] = clampU8(top*(1-ya) + bottom*ya)
		}
	}
	return out
}

func clampTile(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// clipHistogram caps every bin at limit and spreads the excess evenly.
func clipHistogram(hist *[256]int, limit int) {
	clipped := 0
	for i := range hist {
		if hist[i] > limit {
			clipped += hist[i] - limit
			hist[i] = limit
		}
	}
	batch := clipped / 256
	residual := clipped - batch*256
	for i := range hist {
		hist[i] += batch
	}
	if residual > 0 {
		step := 256 / residual
		if step < 1 {
			step = 1
		}
		for i := 0; i < 256 && residual > 0; i += step {
			hist[i]++
			residual--
		}
	}
}

// EqualizeHistogram stretches the cumulative histogram over the full 0..255 range.
func EqualizeHistogram(img *image.Gray) *image.Gray {
	img = compact(img)
	w, h := dims(img)
	hist := Histogram(img)
	total := w * h
	out := image.NewGray(image.Rect(0, 0, w, h))
	if total == 0 {
		return out
	}
	first := 0
	for first < 255 && hist[first] == 0 {
		first++
	}
	if hist[first] == total {
		for i := range out.Pix {
			out.Pix[i] = uint8(first)
		}
		return out
	}
	var lut [256]uint8
	scale := 255.0 / float64(total-hist[first])
	sum := 0
	for v := first + 1; v < 256; v++ {
		sum += hist[v]
		lut[v] = clampU8(float64(sum) * scale)
	}
	return applyLUT(img, &lut)
}

// Gamma remaps intensities by (i/255)^(1/gamma). gamma > 1 brightens, gamma < 1 darkens.
func Gamma(img *image.Gray, gamma float64) *image.Gray {
	if gamma <= 0 {
		gamma = 1
	}
	return grayOf(adjust.Gamma(compact(img), gamma))
}

// AdjustBrightnessContrast shifts intensities by brightness then scales around 128 by the
// contrast correction factor 259(c+255)/(255(259-c)).
func AdjustBrightnessContrast(img *image.Gray, brightness, contrast int) *image.Gray {
	if contrast > 258 {
		contrast = 258
	}
	factor := 1.0
	if contrast != 0 {
		factor = (259 * float64(contrast+255)) / (255 * float64(259-contrast))
	}
	level := func(c uint8) uint8 {
		v := float64(c) + float64(brightness)
		if contrast != 0 {
			v = factor*(v-128) + 128
		}
		return uint8(math.Max(0, math.Min(255, v)))
	}
	return grayOf(adjust.Apply(compact(img), func(c color.RGBA) color.RGBA {
		v := level(c.R)
		return color.RGBA{R: v, G: v, B: v, A: c.A}
	}))
}

// EnhanceForText is a light CLAHE followed by a half-strength unsharp mask. Mean
// brightness is kept.
func EnhanceForText(img *image.Gray) *image.Gray {
	return grayOf(effect.UnsharpMask(CLAHE(img, 2.0, 8, 8), 1, 0.5))
}

func applyLUT(img *image.Gray, lut *[256]uint8) *image.Gray {
	w, h := dims(img)
	out := image.NewGray(image.Rect(0, 0, w, h))
	for i, v := range img.Pix {
		out.Pix[i] = lut[v]
	}
	return out
}
