package config

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/MeKo-Tech/pagescan/internal/detector"
	"github.com/MeKo-Tech/pagescan/internal/ocr"
	"github.com/MeKo-Tech/pagescan/internal/pipeline"
	"github.com/MeKo-Tech/pagescan/internal/postprocess"
	"github.com/MeKo-Tech/pagescan/internal/rectify"
)

var (
	validLogLevels = []string{"debug", "info", "warn", "error"}
	validFormats   = []string{"text", "json", "csv"}
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	rc := rectify.DefaultConfig()
	return Config{
		LogLevel:    "info",
		Detector:    detector.DefaultConfig(),
		Rectify:     rc,
		Postprocess: rc.Postprocess,
		OCR:         ocr.DefaultConfig(),
		Batch: BatchConfig{
			Workers:      runtime.NumCPU(),
			ShowProgress: true,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 60,
				RequestsPerHour:   1000,
			},
		},
		Output: OutputConfig{Format: "text"},
	}
}

// Validate validates the configuration and returns the first error found.
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if c.Output.Format != "" && !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}

	if err := c.Detector.Validate(); err != nil {
		return fmt.Errorf("detector: %w", err)
	}
	if err := c.Rectify.Validate(); err != nil {
		return fmt.Errorf("rectify: %w", err)
	}
	if err := c.Postprocess.Validate(); err != nil {
		return fmt.Errorf("postprocess: %w", err)
	}
	if err := c.OCR.Validate(); err != nil {
		return fmt.Errorf("ocr: %w", err)
	}

	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}
	return c.Server.validate()
}

func (s ServerConfig) validate() error {
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", s.Port)
	}
	if s.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", s.MaxUploadMB)
	}
	if s.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", s.TimeoutSec)
	}
	rl := s.RateLimit
	if rl.RequestsPerMinute < 0 || rl.RequestsPerHour < 0 || rl.MaxRequestsPerDay < 0 || rl.MaxDataPerDayMB < 0 {
		return errors.New("rate limits must not be negative")
	}
	return nil
}

// ToPipelineConfig converts the config to the pipeline configuration.
// The postprocess section overrides the options embedded in rectify.
func (c *Config) ToPipelineConfig() pipeline.Config {
	pc := pipeline.DefaultConfig()
	pc.Detector = c.Detector
	pc.Rectify = c.Rectify
	pc.Rectify.Postprocess = c.PostprocessOptions()
	pc.OCR = c.OCR
	pc.Parallel.MaxWorkers = c.Batch.Workers
	pc.FullFrameFallback = c.Batch.FullFrameFallback
	return pc
}

// PostprocessOptions returns the thresholding options with defaults filled in
// for zero fields.
func (c *Config) PostprocessOptions() postprocess.Options {
	opts := c.Postprocess
	def := postprocess.DefaultOptions()
	if opts.Method == "" {
		opts.Method = def.Method
	}
	if opts.BlockSize == 0 {
		opts.BlockSize = def.BlockSize
	}
	return opts
}
