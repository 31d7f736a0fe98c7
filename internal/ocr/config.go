package ocr

import "fmt"

// Defaults for the recognition pool.
const (
	DefaultWorkers       = 5
	DefaultLanguage      = "eng"
	OrientationThreshold = 0.1
)

// Config configures recognition.
type Config struct {
	Enabled              bool    `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Workers              int     `mapstructure:"workers" yaml:"workers" json:"workers"`
	Language             string  `mapstructure:"language" yaml:"language" json:"language"`
	TessdataPrefix       string  `mapstructure:"tessdata_prefix" yaml:"tessdata_prefix" json:"tessdata_prefix"`
	LowConfidence        float64 `mapstructure:"low_confidence" yaml:"low_confidence" json:"low_confidence"`
	AutoOrient           bool    `mapstructure:"auto_orient" yaml:"auto_orient" json:"auto_orient"`
	OrientationThreshold float64 `mapstructure:"orientation_threshold" yaml:"orientation_threshold" json:"orientation_threshold"`
}

// DefaultConfig returns the default recognition configuration.
func DefaultConfig() Config {
	return Config{
		Workers:              DefaultWorkers,
		Language:             DefaultLanguage,
		LowConfidence:        LowConfidence,
		OrientationThreshold: OrientationThreshold,
	}
}

// Validate checks the configuration for out-of-range values.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("ocr workers must be at least 1, got %d", c.Workers)
	}
	if c.LowConfidence < 0 || c.LowConfidence > 1 {
		return fmt.Errorf("low confidence must be within [0,1], got %g", c.LowConfidence)
	}
	if c.OrientationThreshold < 0 || c.OrientationThreshold > 1 {
		return fmt.Errorf("orientation threshold must be within [0,1], got %g", c.OrientationThreshold)
	}
	return nil
}
