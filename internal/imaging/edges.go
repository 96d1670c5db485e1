package imaging

import "image"

// Sobel returns the 3×3 Sobel derivatives of img using replicated borders.
func Sobel(img *image.Gray) (gx, gy []int) {
	img = compact(img)
	w, h := dims(img)
	gx = make([]int, w*h)
	gy = make([]int, w*h)
	at := func(x, y int) int { return int(img.Pix[replicate(y, h)*w+replicate(x, w)]) }
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			tl, tc, tr := at(x-1, y-1), at(x, y-1), at(x+1, y-1)
			ml, mr := at(x-1, y), at(x+1, y)
			bl, bc, br := at(x-1, y+1), at(x, y+1), at(x+1, y+1)
			gx[y*w+x] = (tr + 2*mr + br) - (tl + 2*ml + bl)
			gy[y*w+x] = (bl + 2*bc + br) - (tl + 2*tc + tr)
		}
	}
	return gx, gy
}

// Canny detects edges with an L1 gradient magnitude, non-maximum suppression and
// hysteresis between low and high. Edge pixels are 255, everything else 0.
func Canny(img *image.Gray, low, high float64) *image.Gray {
	img = compact(img)
	w, h := dims(img)
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w < 3 || h < 3 {
		return out
	}
	if low > high {
		low, high = high, low
	}
	gx, gy := Sobel(img)
	mag := make([]int, w*h)
	for i := range mag {
		mag[i] = abs(gx[i]) + abs(gy[i])
	}

	const (
		tan22 = 0.4142135623730950488
		tan67 = 2.4142135623730950488
	)
	const (
		none = iota
		weak
		strong
	)
	state := make([]uint8, w*h)
	var stack []int
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			m := mag[i]
			if float64(m) <= low {
				continue
			}
			ax, ay := float64(abs(gx[i])), float64(abs(gy[i]))
			var keep bool
			switch {
			case ay <= ax*tan22:
				keep = m > mag[i-1] && m >= mag[i+1]
			case ay >= ax*tan67:
				keep = m > mag[i-w] && m >= mag[i+w]
			default:
				s := 1
				if (gx[i] < 0) != (gy[i] < 0) {
					s = -1
				}
				keep = m > mag[i-w-s] && m > mag[i+w+s]
			}
			if !keep {
				continue
			}
			if float64(m) > high {
				state[i] = strong
				stack = append(stack, i)
			} else {
				state[i] = weak
			}
		}
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out.Pix[i] = 255
		x, y := i%w, i/w
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				xx, yy := x+dx, y+dy
				if xx < 0 || yy < 0 || xx >= w || yy >= h {
					continue
				}
				j := yy*w + xx
				if state[j] == weak {
					state[j] = strong
					stack = append(stack, j)
				}
			}
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
