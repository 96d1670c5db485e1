package imaging

import (
	"image"
	"math"
	"sort"
)

// Line is a Hough line in normal form: x·cos(Theta) + y·sin(Theta) = Rho.
type Line struct {
	Rho   float64
	Theta float64
	Votes int
}

// HoughLines runs the standard Hough transform over the non-zero pixels of edges and returns
// accumulator local maxima above threshold, strongest first.
func HoughLines(edges *image.Gray, rhoStep, thetaStep float64, threshold int) []Line {
	edges = compact(edges)
	w, h := dims(edges)
	if rhoStep <= 0 {
		rhoStep = 1
	}
	if thetaStep <= 0 {
		thetaStep = math.Pi / 180
	}
	numAngle := int(math.Round(math.Pi / thetaStep))
	numRho := int(math.Round(float64((w+h)*2+1) / rhoStep))
	if numAngle <= 0 || numRho <= 0 {
		return nil
	}

	cosT := make([]float64, numAngle)
	sinT := make([]float64, numAngle)
	for n := 0; n < numAngle; n++ {
		a := float64(n) * thetaStep
		cosT[n] = math.Cos(a) / rhoStep
		sinT[n] = math.Sin(a) / rhoStep
	}

	// accumulator padded by one cell on each side to simplify the neighbour test
	stride := numRho + 2
	acc := make([]int, (numAngle+2)*stride)
	offset := (numRho - 1) / 2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if edges.Pix[y*w+x] == 0 {
				continue
			}
			for n := 0; n < numAngle; n++ {
				r := int(math.Round(float64(x)*cosT[n]+float64(y)*sinT[n])) + offset
				if r < 0 || r >= numRho {
					continue
				}
				acc[(n+1)*stride+r+1]++
			}
		}
	}

	var lines []Line
	for n := 0; n < numAngle; n++ {
		for r := 0; r < numRho; r++ {
			base := (n+1)*stride + r + 1
			v := acc[base]
			if v > threshold &&
				v > acc[base-1] && v >= acc[base+1] &&
				v > acc[base-stride] && v >= acc[base+stride] {
				lines = append(lines, Line{
					Rho:   (float64(r) - float64(numRho-1)*0.5) * rhoStep,
					Theta: float64(n) * thetaStep,
					Votes: v,
				})
			}
		}
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Votes > lines[j].Votes })
	return lines
}
