package imaging

import (
	"image"
	"math"
	"sort"
)

// Component is an 8-connected blob of ink pixels (values below 128).
type Component struct {
	Label  int
	Area   int
	Bounds image.Rectangle
}

// InkComponents labels 8-connected ink regions. labels holds 0 for background and
// Component.Label for ink pixels.
func InkComponents(img *image.Gray) (labels []int32, comps []Component) {
	img = compact(img)
	w, h := dims(img)
	labels = make([]int32, w*h)
	var stack []int
	next := int32(0)
	for start, v := range img.Pix {
		if v >= 128 || labels[start] != 0 {
			continue
		}
		next++
		labels[start] = next
		stack = append(stack[:0], start)
		c := Component{Label: int(next), Bounds: image.Rect(start%w, start/w, start%w+1, start/w+1)}
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			c.Area++
			x, y := i%w, i/w
			c.Bounds = c.Bounds.Union(image.Rect(x, y, x+1, y+1))
			for dy := -1; dy <= 1; dy++ {
				yy := y + dy
				if yy < 0 || yy >= h {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					xx := x + dx
					if xx < 0 || xx >= w {
						continue
					}
					j := yy*w + xx
					if labels[j] == 0 && img.Pix[j] < 128 {
						labels[j] = next
						stack = append(stack, j)
					}
				}
			}
		}
		comps = append(comps, c)
	}
	return labels, comps
}

// CleanBinary whitens ink components smaller than minArea pixels.
func CleanBinary(img *image.Gray, minArea int) *image.Gray {
	img = compact(img)
	out := Clone(img)
	if minArea <= 1 {
		return out
	}
	labels, comps := InkComponents(img)
	small := make(map[int32]bool)
	for _, c := range comps {
		if c.Area < minArea {
			small[int32(c.Label)] = true
		}
	}
	if len(small) == 0 {
		return out
	}
	for i, l := range labels {
		if l != 0 && small[l] {
			out.Pix[i] = White
		}
	}
	return out
}

// ComponentPoints returns the pixel coordinates carrying the given label.
func ComponentPoints(labels []int32, width int, label int) []image.Point {
	var pts []image.Point
	for i, l := range labels {
		if int(l) == label {
			pts = append(pts, image.Pt(i%width, i/width))
		}
	}
	return pts
}

// ConvexHull returns the hull of pts in counter-clockwise order (monotone chain).
func ConvexHull(pts []image.Point) []image.Point {
	if len(pts) < 3 {
		return append([]image.Point(nil), pts...)
	}
	p := append([]image.Point(nil), pts...)
	sort.Slice(p, func(i, j int) bool {
		if p[i].X != p[j].X {
			return p[i].X < p[j].X
		}
		return p[i].Y < p[j].Y
	})
	cross := func(o, a, b image.Point) int {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}
	hull := make([]image.Point, 0, 2*len(p))
	for _, pt := range p {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], pt) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, pt)
	}
	lower := len(hull) + 1
	for i := len(p) - 2; i >= 0; i-- {
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p[i]) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p[i])
	}
	return hull[:len(hull)-1]
}

// MinAreaRect finds the smallest enclosing rectangle of pts by rotating calipers over the
// convex hull. angle is the direction of one rectangle edge in degrees (image coordinates).
func MinAreaRect(pts []image.Point) (angle, width, height float64) {
	hull := ConvexHull(pts)
	if len(hull) < 2 {
		return 0, 0, 0
	}
	best := math.Inf(1)
	for i := range hull {
		a, b := hull[i], hull[(i+1)%len(hull)]
		dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		ux, uy := dx/l, dy/l
		minU, maxU := math.Inf(1), math.Inf(-1)
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, p := range hull {
			px, py := float64(p.X), float64(p.Y)
			u := px*ux + py*uy
			v := -px*uy + py*ux
			minU, maxU = math.Min(minU, u), math.Max(maxU, u)
			minV, maxV = math.Min(minV, v), math.Max(maxV, v)
		}
		area := (maxU - minU) * (maxV - minV)
		if area < best {
			best = area
			angle = math.Atan2(uy, ux) * 180 / math.Pi
			width, height = maxU-minU, maxV-minV
		}
	}
	return angle, width, height
}
