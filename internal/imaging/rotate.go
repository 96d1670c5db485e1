package imaging

import (
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// MinRotation is the smallest angle, in degrees, that Rotate acts on.
const MinRotation = 0.1

// rotationMatrix returns the source-to-destination affine transform for a counter-clockwise
// rotation by angle degrees about (cx, cy), followed by a translation of (shiftX, shiftY).
func rotationMatrix(angle, cx, cy, shiftX, shiftY float64) f64.Aff3 {
	rad := angle * math.Pi / 180
	a, b := math.Cos(rad), math.Sin(rad)
	return f64.Aff3{
		a, b, (1-a)*cx - b*cy + shiftX,
		-b, a, b*cx + (1-a)*cy + shiftY,
	}
}

// RotatedSize is the canvas needed to hold a w×h image rotated by angle degrees.
func RotatedSize(w, h int, angle float64) (int, int) {
	rad := angle * math.Pi / 180
	c, s := math.Abs(math.Cos(rad)), math.Abs(math.Sin(rad))
	nw := int(float64(h)*s + float64(w)*c)
	nh := int(float64(h)*c + float64(w)*s)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}

// Rotate turns img counter-clockwise by angle degrees about its centre, expanding the canvas so
// no content is cropped and filling uncovered area with background. Angles below MinRotation
// return img itself.
func Rotate(img *image.Gray, angle float64, background uint8) *image.Gray {
	if math.Abs(angle) < MinRotation {
		return img
	}
	img = compact(img)
	w, h := dims(img)
	nw, nh := RotatedSize(w, h, angle)
	cx, cy := float64(w/2), float64(h/2)
	m := rotationMatrix(angle, cx, cy, float64(nw)/2-cx, float64(nh)/2-cy)
	return warp(img, m, nw, nh, background)
}

// RotateKeepSize rotates about the centre without growing the canvas; corners are cropped.
func RotateKeepSize(img *image.Gray, angle float64, background uint8) *image.Gray {
	if math.Abs(angle) < MinRotation {
		return img
	}
	img = compact(img)
	w, h := dims(img)
	m := rotationMatrix(angle, float64(w/2), float64(h/2), 0, 0)
	return warp(img, m, w, h, background)
}

func warp(img *image.Gray, m f64.Aff3, w, h int, background uint8) *image.Gray {
	dst := NewFilled(w, h, background)
	draw.BiLinear.Transform(dst, m, img, img.Bounds(), draw.Src, nil)
	return dst
}
