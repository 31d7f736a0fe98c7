package detector

import (
	"errors"
	"fmt"
)

// EdgeMode selects how the binary edge map is produced.
type EdgeMode string

const (
	// EdgeCanny runs Canny edge detection on the blurred luminance.
	EdgeCanny EdgeMode = "canny"
	// EdgeThreshold binarizes the blurred luminance at its Otsu level.
	EdgeThreshold EdgeMode = "threshold"
)

// Default tuning, matching the classic 5x5 blur + Canny(75, 200) document scanner setup.
const (
	DefaultBlurSigma     = 1.1
	DefaultCannyLow      = 75.0
	DefaultCannyHigh     = 200.0
	DefaultApproxEpsilon = 0.02
	DefaultMaxQuads      = 5
	DefaultMaxDimension  = 1600
)

// Config holds detector settings.
type Config struct {
	EdgeMode      EdgeMode    `mapstructure:"edge_mode" yaml:"edge_mode" json:"edge_mode"`
	BlurSigma     float64     `mapstructure:"blur_sigma" yaml:"blur_sigma" json:"blur_sigma"`
	CannyLow      float64     `mapstructure:"canny_low" yaml:"canny_low" json:"canny_low"`
	CannyHigh     float64     `mapstructure:"canny_high" yaml:"canny_high" json:"canny_high"`
	CannyAuto     bool        `mapstructure:"canny_auto" yaml:"canny_auto" json:"canny_auto"`
	ApproxEpsilon float64     `mapstructure:"approx_epsilon" yaml:"approx_epsilon" json:"approx_epsilon"`
	MaxQuads      int         `mapstructure:"max_quads" yaml:"max_quads" json:"max_quads"`
	MinArea       float64     `mapstructure:"min_area" yaml:"min_area" json:"min_area"`
	MaxDimension  int         `mapstructure:"max_dimension" yaml:"max_dimension" json:"max_dimension"`
	Morph         MorphConfig `mapstructure:"morph" yaml:"morph" json:"morph"`
}

// DefaultConfig returns the default detector configuration.
func DefaultConfig() Config {
	return Config{
		EdgeMode:      EdgeCanny,
		BlurSigma:     DefaultBlurSigma,
		CannyLow:      DefaultCannyLow,
		CannyHigh:     DefaultCannyHigh,
		ApproxEpsilon: DefaultApproxEpsilon,
		MaxQuads:      DefaultMaxQuads,
		MaxDimension:  DefaultMaxDimension,
		Morph:         DefaultMorphConfig(),
	}
}

// Validate checks the configuration for out-of-range values.
func (c Config) Validate() error {
	switch c.EdgeMode {
	case EdgeCanny, EdgeThreshold:
	default:
		return fmt.Errorf("unknown edge mode %q", c.EdgeMode)
	}
	if c.BlurSigma < 0 {
		return errors.New("blur sigma must be non-negative")
	}
	if !c.CannyAuto && (c.CannyLow < 0 || c.CannyHigh < c.CannyLow) {
		return fmt.Errorf("invalid canny thresholds %.1f/%.1f", c.CannyLow, c.CannyHigh)
	}
	if c.ApproxEpsilon < 0.005 || c.ApproxEpsilon > 0.1 {
		return fmt.Errorf("approx epsilon %.3f out of range [0.005, 0.1]", c.ApproxEpsilon)
	}
	if c.MaxQuads < 1 {
		return errors.New("max quads must be at least 1")
	}
	if c.MaxDimension < 0 {
		return errors.New("max dimension must be non-negative")
	}
	return c.Morph.validate()
}
