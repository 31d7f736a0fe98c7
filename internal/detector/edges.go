package detector

import (
	"image"
	"math"
	"slices"

	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/stat"

	"github.com/MeKo-Tech/pagescan/internal/mempool"
)

// luminance holds a blurred greyscale plane in row-major order.
type luminance struct {
	pix  []float32
	gray *image.Gray
	w, h int
}

func (l *luminance) release() {
	mempool.PutFloat32(l.pix)
	l.pix = nil
}

// newLuminance converts img to greyscale and applies a Gaussian blur with
// the given sigma. The plane is taken from the pool; call release when done.
func newLuminance(img image.Image, sigma float64) *luminance {
	g := imaging.Grayscale(img)
	if sigma > 0 {
		g = imaging.Blur(g, sigma)
	}
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	l := &luminance{
		pix:  mempool.GetFloat32(w * h),
		gray: image.NewGray(image.Rect(0, 0, w, h)),
		w:    w,
		h:    h,
	}
	for y := range h {
		src := g.Pix[y*g.Stride : y*g.Stride+w*4]
		for x := range w {
			v := src[x*4]
			l.pix[y*w+x] = float32(v)
			l.gray.Pix[y*l.gray.Stride+x] = v
		}
	}
	return l
}

// median returns the median intensity of the plane.
func (l *luminance) median() float64 {
	vals := make([]float64, len(l.pix))
	for i, v := range l.pix {
		vals[i] = float64(v)
	}
	slices.Sort(vals)
	return stat.Quantile(0.5, stat.Empirical, vals, nil)
}

// autoCannyThresholds derives hysteresis thresholds from the median intensity.
func autoCannyThresholds(median float64) (low, high float64) {
	low = math.Max(0, 0.66*median)
	high = math.Min(255, 1.33*median)
	return low, high
}

// sobel computes L1 gradient magnitude and the quantized gradient direction
// (0 horizontal, 1 vertical, 2 and 3 the two diagonals). Borders replicate.
func sobel(l *luminance, mag []float32, dir []int) {
	w, h := l.w, l.h
	at := func(x, y int) float32 {
		x = min(max(x, 0), w-1)
		y = min(max(y, 0), h-1)
		return l.pix[y*w+x]
	}
	// tan(22.5) and tan(67.5)
	const tg22 = 0.4142135623730951
	const tg67 = 2.414213562373095
	for y := range h {
		for x := range w {
			gx := (at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1)) -
				(at(x-1, y-1) + 2*at(x-1, y) + at(x-1, y+1))
			gy := (at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)) -
				(at(x-1, y-1) + 2*at(x, y-1) + at(x+1, y-1))
			ax, ay := math.Abs(float64(gx)), math.Abs(float64(gy))
			i := y*w + x
			mag[i] = float32(ax + ay)
			switch {
			case ay < tg22*ax:
				dir[i] = 0
			case ay > tg67*ax:
				dir[i] = 1
			case (gx < 0) != (gy < 0):
				dir[i] = 2
			default:
				dir[i] = 3
			}
		}
	}
}

// canny produces a binary edge mask from the luminance plane.
func canny(l *luminance, low, high float64) []bool {
	w, h := l.w, l.h
	n := w * h
	mag := mempool.GetFloat32(n)
	defer mempool.PutFloat32(mag)
	dir := mempool.GetInt(n)
	defer mempool.PutInt(dir)

	sobel(l, mag, dir)

	magAt := func(x, y int) float32 {
		if x < 0 || y < 0 || x >= w || y >= h {
			return 0
		}
		return mag[y*w+x]
	}

	// 0 none, 1 weak, 2 strong
	state := mempool.GetInt(n)
	defer mempool.PutInt(state)
	stack := make([]int, 0, 1024)

	for y := range h {
		for x := range w {
			i := y*w + x
			m := mag[i]
			if float64(m) <= low {
				continue
			}
			var keep bool
			switch dir[i] {
			case 0:
				keep = m > magAt(x-1, y) && m >= magAt(x+1, y)
			case 1:
				keep = m > magAt(x, y-1) && m >= magAt(x, y+1)
			case 2:
				keep = m > magAt(x+1, y-1) && m > magAt(x-1, y+1)
			default:
				keep = m > magAt(x-1, y-1) && m > magAt(x+1, y+1)
			}
			if !keep {
				continue
			}
			if float64(m) > high {
				state[i] = 2
				stack = append(stack, i)
			} else {
				state[i] = 1
			}
		}
	}

	edges := mempool.GetBool(n)
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if edges[i] {
			continue
		}
		edges[i] = true
		cx, cy := i%w, i/w
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := cx+dx, cy+dy
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if state[j] > 0 && !edges[j] {
					stack = append(stack, j)
				}
			}
		}
	}
	return edges
}

// otsuLevel returns the global threshold that maximizes between-class variance.
func otsuLevel(gray *image.Gray) uint8 {
	var hist [256]int
	b := gray.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for _, v := range gray.Pix[y*gray.Stride : y*gray.Stride+b.Dx()] {
			hist[v]++
		}
	}
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 128
	}
	var sumAll float64
	for i, c := range hist {
		sumAll += float64(i * c)
	}
	var (
		sumB, bestVar float64
		wB            int
		best          int
	)
	for t := range 256 {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t * hist[t])
		mB := sumB / float64(wB)
		mF := (sumAll - sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > bestVar {
			bestVar = between
			best = t
		}
	}
	return uint8(best)
}

// thresholdMask binarizes at the Otsu level; pixels above it are foreground.
func thresholdMask(l *luminance) []bool {
	level := otsuLevel(l.gray)
	// segment.Threshold keeps values >= level
	if level < 255 {
		level++
	}
	bin := segment.Threshold(l.gray, level)
	mask := mempool.GetBool(l.w * l.h)
	for y := range l.h {
		row := bin.Pix[y*bin.Stride : y*bin.Stride+l.w]
		for x, v := range row {
			mask[y*l.w+x] = v != 0
		}
	}
	return mask
}

// maskToGray renders a mask as a black image with white foreground.
func maskToGray(mask []bool, w, h int) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, w, h))
	for i, on := range mask {
		if on {
			out.Pix[i] = 255
		}
	}
	return out
}
