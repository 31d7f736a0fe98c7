package rectify

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/pagescan/internal/postprocess"
)

// ParallelTolerance is the maximum inverted-slope difference at which two
// opposing edges count as parallel.
const ParallelTolerance = 0.01

// DefaultMaxOutputPixels caps the rectified raster size.
const DefaultMaxOutputPixels = 64 << 20

// Config holds configuration for the rectification process.
type Config struct {
	ParallelTolerance float64             `mapstructure:"parallel_tolerance" yaml:"parallel_tolerance" json:"parallel_tolerance"`
	PostProcess       bool                `mapstructure:"postprocess" yaml:"postprocess" json:"postprocess"`
	Postprocess       postprocess.Options `mapstructure:"-" yaml:"-" json:"-"`
	MaxOutputPixels   int                 `mapstructure:"max_output_pixels" yaml:"max_output_pixels" json:"max_output_pixels"`
	// Debug dumping
	DebugDir string `mapstructure:"debug_dir" yaml:"debug_dir" json:"debug_dir"` // if non-empty, writes overlay and compare PNGs here
}

// DefaultConfig returns sensible defaults for rectification.
func DefaultConfig() Config {
	return Config{
		ParallelTolerance: ParallelTolerance,
		PostProcess:       true,
		Postprocess:       postprocess.DefaultOptions(),
		MaxOutputPixels:   DefaultMaxOutputPixels,
	}
}

// Validate checks the configuration for out-of-range values.
func (c Config) Validate() error {
	if c.ParallelTolerance <= 0 {
		return fmt.Errorf("parallel tolerance must be positive, got %g", c.ParallelTolerance)
	}
	if c.MaxOutputPixels < 0 {
		return errors.New("max output pixels must be non-negative")
	}
	if c.PostProcess {
		return c.Postprocess.Validate()
	}
	return nil
}
