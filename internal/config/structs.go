//nolint:lll
package config

import (
	"github.com/MeKo-Tech/pagescan/internal/detector"
	"github.com/MeKo-Tech/pagescan/internal/ocr"
	"github.com/MeKo-Tech/pagescan/internal/postprocess"
	"github.com/MeKo-Tech/pagescan/internal/rectify"
)

// Config represents the complete configuration for pagescan. It covers every
// command (detect, rectify, batch, pdf, serve) and is loaded from a config
// file, environment variables and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Detector    detector.Config     `mapstructure:"detector" yaml:"detector" json:"detector"`
	Rectify     rectify.Config      `mapstructure:"rectify" yaml:"rectify" json:"rectify"`
	Postprocess postprocess.Options `mapstructure:"postprocess" yaml:"postprocess" json:"postprocess"`
	OCR         ocr.Config          `mapstructure:"ocr" yaml:"ocr" json:"ocr"`

	Batch  BatchConfig  `mapstructure:"batch" yaml:"batch" json:"batch"`
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers           int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	Recursive         bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Include           []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude           []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
	OutputDir         string   `mapstructure:"output_dir" yaml:"output_dir" json:"output_dir"`
	FullFrameFallback bool     `mapstructure:"full_frame_fallback" yaml:"full_frame_fallback" json:"full_frame_fallback"`
	ShowProgress      bool     `mapstructure:"show_progress" yaml:"show_progress" json:"show_progress"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host" json:"host"`
	Port            int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int             `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig contains per-client request limits. Zero disables a limit.
type RateLimitConfig struct {
	Enabled           bool  `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int   `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int   `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int   `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDayMB   int64 `mapstructure:"max_data_per_day_mb" yaml:"max_data_per_day_mb" json:"max_data_per_day_mb"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	File   string `mapstructure:"file" yaml:"file" json:"file"`
}
