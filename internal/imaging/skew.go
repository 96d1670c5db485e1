package imaging

import (
	"errors"
	"image"
	"math"
	"sort"
)

var (
	// ErrNoLines is returned when the Hough estimator finds no usable line.
	ErrNoLines = errors.New("no lines detected")
	// ErrNoInk is returned when binarisation leaves nothing to measure.
	ErrNoInk = errors.New("no ink pixels found")
)

// Hough estimator parameters.
const (
	CannyLow       = 50
	CannyHigh      = 150
	HoughThreshold = 100
)

// DetectSkewHough estimates the correcting rotation from straight lines: each line's normal
// angle minus 90° is kept when within ±angleRange and the median is returned with the number
// of lines it was drawn from.
func DetectSkewHough(img *image.Gray, angleRange float64) (float64, int, error) {
	if angleRange <= 0 {
		angleRange = 45
	}
	edges := Canny(img, CannyLow, CannyHigh)
	lines := HoughLines(edges, 1, math.Pi/180, HoughThreshold)
	angles := make([]float64, 0, len(lines))
	for _, l := range lines {
		a := l.Theta*180/math.Pi - 90
		if math.Abs(a) < angleRange {
			angles = append(angles, a)
		}
	}
	if len(angles) == 0 {
		return 0, 0, ErrNoLines
	}
	return median(angles), len(angles), nil
}

// DetectSkewProjection tries every angle in [-angleRange, angleRange) by step and returns the
// rotation whose horizontal ink profile has the largest variance, with that variance.
func DetectSkewProjection(img *image.Gray, angleRange, step float64) (float64, float64, error) {
	img = compact(img)
	if angleRange <= 0 {
		angleRange = 45
	}
	if step <= 0 {
		step = 0.5
	}
	w, h := dims(img)
	bin, _ := Otsu(img, true)
	var ink []image.Point
	for i, v := range bin.Pix {
		if v == White {
			ink = append(ink, image.Pt(i%w, i/w))
		}
	}
	if len(ink) == 0 {
		return 0, 0, ErrNoInk
	}

	cx, cy := float64(w/2), float64(h/2)
	best, bestScore := 0.0, 0.0
	steps := int(math.Ceil(2 * angleRange / step))
	for i := 0; i < steps; i++ {
		angle := -angleRange + float64(i)*step
		score := profileVariance(ink, w, h, cx, cy, angle)
		if score > bestScore {
			bestScore = score
			best = angle
		}
	}
	return best, bestScore, nil
}

// profileVariance rotates ink coordinates the way Rotate would and measures the variance of
// the per-row counts over the expanded canvas.
func profileVariance(ink []image.Point, w, h int, cx, cy, angle float64) float64 {
	_, nh := RotatedSize(w, h, angle)
	m := rotationMatrix(angle, cx, cy, 0, float64(nh)/2-cy)
	rows := make([]float64, nh)
	for _, p := range ink {
		y := m[3]*float64(p.X) + m[4]*float64(p.Y) + m[5]
		r := int(math.Floor(y + 0.5))
		if r >= 0 && r < nh {
			rows[r]++
		}
	}
	var sum, sq float64
	for _, v := range rows {
		sum += v
		sq += v * v
	}
	n := float64(nh)
	mean := sum / n
	return sq/n - mean*mean
}

// DetectSkewContour measures the minimum-area rectangle around the largest ink component and
// returns its edge angle folded into (-45, 45].
func DetectSkewContour(img *image.Gray) (float64, error) {
	img = compact(img)
	w, _ := dims(img)
	bin, _ := Otsu(img, false)
	labels, comps := InkComponents(bin)
	if len(comps) == 0 {
		return 0, ErrNoInk
	}
	largest := comps[0]
	for _, c := range comps[1:] {
		if c.Area > largest.Area {
			largest = c
		}
	}
	angle, _, _ := MinAreaRect(ComponentPoints(labels, w, largest.Label))
	return foldAngle(angle), nil
}

func foldAngle(a float64) float64 {
	a = math.Mod(a, 90)
	if a < 0 {
		a += 90
	}
	if a > 45 {
		a -= 90
	}
	return a
}

func median(v []float64) float64 {
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
