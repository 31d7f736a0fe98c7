package postprocess

import (
	"image"
	"math"

	"github.com/MeKo-Tech/pagescan/internal/mempool"
)

// AdaptiveThreshold binarizes src against a local threshold: a pixel becomes
// white when it is brighter than its neighbourhood average minus C. Invalid
// options fall back to the defaults.
func AdaptiveThreshold(src *image.Gray, opts Options) *image.Gray {
	if opts.Validate() != nil {
		opts = DefaultOptions()
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return dst
	}

	local := mempool.GetFloat32(w * h)
	defer mempool.PutFloat32(local)
	switch opts.Method {
	case MethodMean:
		boxMean(src, local, opts.BlockSize/2)
	default:
		gaussianMean(src, local, opts.BlockSize)
	}

	for y := range h {
		s := src.Pix[y*src.Stride:]
		d := dst.Pix[y*dst.Stride:]
		for x := range w {
			if float64(s[x]) > float64(local[y*w+x])-opts.C {
				d[x] = 255
			}
		}
	}
	return dst
}

// boxMean writes the mean over a (2r+1)^2 window, clipped to the image, using
// an integral image.
func boxMean(src *image.Gray, out []float32, r int) {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	sw := w + 1
	sum := make([]int64, sw*(h+1))
	for y := range h {
		var row int64
		s := src.Pix[y*src.Stride:]
		for x := range w {
			row += int64(s[x])
			sum[(y+1)*sw+x+1] = sum[y*sw+x+1] + row
		}
	}
	for y := range h {
		y0, y1 := max(0, y-r), min(h, y+r+1)
		for x := range w {
			x0, x1 := max(0, x-r), min(w, x+r+1)
			total := sum[y1*sw+x1] - sum[y0*sw+x1] - sum[y1*sw+x0] + sum[y0*sw+x0]
			out[y*w+x] = float32(float64(total) / float64((y1-y0)*(x1-x0)))
		}
	}
}

// gaussianKernel returns normalized 1-D weights with the sigma OpenCV derives
// from the kernel size.
func gaussianKernel(size int) []float64 {
	sigma := 0.3*(float64(size-1)*0.5-1) + 0.8
	k := make([]float64, size)
	c := size / 2
	var total float64
	for i := range k {
		d := float64(i - c)
		k[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		total += k[i]
	}
	for i := range k {
		k[i] /= total
	}
	return k
}

// gaussianMean writes the Gaussian-weighted neighbourhood mean, replicating
// border pixels.
func gaussianMean(src *image.Gray, out []float32, size int) {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	k := gaussianKernel(size)
	c := size / 2

	tmp := mempool.GetFloat32(w * h)
	defer mempool.PutFloat32(tmp)

	for y := range h {
		s := src.Pix[y*src.Stride:]
		for x := range w {
			var acc float64
			for i, kv := range k {
				xx := min(max(x+i-c, 0), w-1)
				acc += kv * float64(s[xx])
			}
			tmp[y*w+x] = float32(acc)
		}
	}
	for y := range h {
		for x := range w {
			var acc float64
			for i, kv := range k {
				yy := min(max(y+i-c, 0), h-1)
				acc += kv * float64(tmp[yy*w+x])
			}
			out[y*w+x] = float32(acc)
		}
	}
}
