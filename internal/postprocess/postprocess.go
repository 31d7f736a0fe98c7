// Package postprocess turns a rectified page into a binary raster suited to
// text recognition.
package postprocess

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Method selects how the local threshold is computed.
type Method string

const (
	MethodMean     Method = "mean"
	MethodGaussian Method = "gaussian"
)

// Defaults match a typical OpenCV adaptiveThreshold(11, 2) setup.
const (
	DefaultBlockSize = 11
	DefaultC         = 2.0
)

var (
	gaussian3x3 = [9]float64{
		1, 2, 1,
		2, 4, 2,
		1, 2, 1,
	}
	sharpen3x3 = [9]float64{
		-1, -1, -1,
		-1, 9, -1,
		-1, -1, -1,
	}
)

// Options configures Process.
type Options struct {
	Method    Method  `mapstructure:"method" yaml:"method" json:"method"`
	BlockSize int     `mapstructure:"block_size" yaml:"block_size" json:"block_size"`
	C         float64 `mapstructure:"c" yaml:"c" json:"c"`
}

// DefaultOptions returns the default post-processing options.
func DefaultOptions() Options {
	return Options{Method: MethodGaussian, BlockSize: DefaultBlockSize, C: DefaultC}
}

// Validate checks the options for out-of-range values.
func (o Options) Validate() error {
	switch o.Method {
	case MethodMean, MethodGaussian:
	default:
		return fmt.Errorf("unknown threshold method %q", o.Method)
	}
	if o.BlockSize < 3 || o.BlockSize%2 == 0 {
		return fmt.Errorf("block size must be odd and at least 3, got %d", o.BlockSize)
	}
	return nil
}

// Process converts img to greyscale, smooths it, sharpens it and applies an
// adaptive binary threshold.
func Process(img image.Image, opts Options) *image.Gray {
	g := imaging.Grayscale(img)
	g = imaging.Convolve3x3(g, gaussian3x3, &imaging.ConvolveOptions{Normalize: true})
	g = imaging.Convolve3x3(g, sharpen3x3, nil)
	return AdaptiveThreshold(toGray(g), opts)
}

// toGray copies the first channel of a greyscale NRGBA image.
func toGray(src *image.NRGBA) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		s := src.Pix[y*src.Stride:]
		d := dst.Pix[y*dst.Stride:]
		for x := range w {
			d[x] = s[x*4]
		}
	}
	return dst
}
