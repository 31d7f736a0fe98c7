package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "pagescan"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "PAGESCAN"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader on the global viper instance so flags bound by
// the root command are visible.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// NewLoaderWithViper creates a loader on v.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// Load reads defaults, the first config file found on the search path,
// environment variables and bound flags, then validates the result.
func (l *Loader) Load() (*Config, error) {
	return l.LoadWithFile("")
}

// LoadWithFile is Load with an explicit config file. An empty path searches
// the standard locations; a missing file there is not an error.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	cfg, err := l.LoadWithFileWithoutValidation(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadWithFileWithoutValidation loads configuration without validating it.
func (l *Loader) LoadWithFileWithoutValidation(configFile string) (*Config, error) {
	l.setupEnvironmentVariables()
	l.setDefaults()

	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
		if err := l.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.Rectify.Postprocess = config.PostprocessOptions()
	return &config, nil
}

// BindFlag binds a command-line flag to a configuration key.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("flag for %s not defined", key)
	}
	return l.v.BindPFlag(key, flag)
}

// BindFlags binds each key to the flag of the same name in fs. Missing
// flags are skipped.
func (l *Loader) BindFlags(fs *pflag.FlagSet, bindings map[string]string) error {
	for key, name := range bindings {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := l.v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind %s: %w", name, err)
		}
	}
	return nil
}

// Set sets a value in the configuration.
func (l *Loader) Set(key string, value any) {
	l.v.Set(key, value)
}

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper returns the underlying viper instance.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

func (l *Loader) addConfigPaths() {
	for _, p := range GetConfigSearchPaths() {
		l.v.AddConfigPath(p)
	}
}

func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults registers every key so environment variables can override it.
func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("log_level", d.LogLevel)
	l.v.SetDefault("verbose", d.Verbose)

	l.v.SetDefault("detector.edge_mode", string(d.Detector.EdgeMode))
	l.v.SetDefault("detector.blur_sigma", d.Detector.BlurSigma)
	l.v.SetDefault("detector.canny_low", d.Detector.CannyLow)
	l.v.SetDefault("detector.canny_high", d.Detector.CannyHigh)
	l.v.SetDefault("detector.canny_auto", d.Detector.CannyAuto)
	l.v.SetDefault("detector.approx_epsilon", d.Detector.ApproxEpsilon)
	l.v.SetDefault("detector.max_quads", d.Detector.MaxQuads)
	l.v.SetDefault("detector.min_area", d.Detector.MinArea)
	l.v.SetDefault("detector.max_dimension", d.Detector.MaxDimension)
	l.v.SetDefault("detector.morph.operation", string(d.Detector.Morph.Operation))
	l.v.SetDefault("detector.morph.kernel_size", d.Detector.Morph.KernelSize)
	l.v.SetDefault("detector.morph.iterations", d.Detector.Morph.Iterations)

	l.v.SetDefault("rectify.parallel_tolerance", d.Rectify.ParallelTolerance)
	l.v.SetDefault("rectify.postprocess", d.Rectify.PostProcess)
	l.v.SetDefault("rectify.max_output_pixels", d.Rectify.MaxOutputPixels)
	l.v.SetDefault("rectify.debug_dir", d.Rectify.DebugDir)

	l.v.SetDefault("postprocess.method", string(d.Postprocess.Method))
	l.v.SetDefault("postprocess.block_size", d.Postprocess.BlockSize)
	l.v.SetDefault("postprocess.c", d.Postprocess.C)

	l.v.SetDefault("ocr.enabled", d.OCR.Enabled)
	l.v.SetDefault("ocr.workers", d.OCR.Workers)
	l.v.SetDefault("ocr.language", d.OCR.Language)
	l.v.SetDefault("ocr.tessdata_prefix", d.OCR.TessdataPrefix)
	l.v.SetDefault("ocr.low_confidence", d.OCR.LowConfidence)
	l.v.SetDefault("ocr.auto_orient", d.OCR.AutoOrient)
	l.v.SetDefault("ocr.orientation_threshold", d.OCR.OrientationThreshold)

	l.v.SetDefault("batch.workers", d.Batch.Workers)
	l.v.SetDefault("batch.recursive", d.Batch.Recursive)
	l.v.SetDefault("batch.include", d.Batch.Include)
	l.v.SetDefault("batch.exclude", d.Batch.Exclude)
	l.v.SetDefault("batch.output_dir", d.Batch.OutputDir)
	l.v.SetDefault("batch.full_frame_fallback", d.Batch.FullFrameFallback)
	l.v.SetDefault("batch.show_progress", d.Batch.ShowProgress)

	l.v.SetDefault("server.host", d.Server.Host)
	l.v.SetDefault("server.port", d.Server.Port)
	l.v.SetDefault("server.cors_origin", d.Server.CORSOrigin)
	l.v.SetDefault("server.max_upload_mb", d.Server.MaxUploadMB)
	l.v.SetDefault("server.timeout_sec", d.Server.TimeoutSec)
	l.v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	l.v.SetDefault("server.rate_limit.enabled", d.Server.RateLimit.Enabled)
	l.v.SetDefault("server.rate_limit.requests_per_minute", d.Server.RateLimit.RequestsPerMinute)
	l.v.SetDefault("server.rate_limit.requests_per_hour", d.Server.RateLimit.RequestsPerHour)
	l.v.SetDefault("server.rate_limit.max_requests_per_day", d.Server.RateLimit.MaxRequestsPerDay)
	l.v.SetDefault("server.rate_limit.max_data_per_day_mb", d.Server.RateLimit.MaxDataPerDayMB)

	l.v.SetDefault("output.format", d.Output.Format)
	l.v.SetDefault("output.file", d.Output.File)
}

// GetResolvedConfig returns the current resolved settings for debugging.
func (l *Loader) GetResolvedConfig() map[string]any {
	return l.v.AllSettings()
}

// MarshalYAML renders cfg as a YAML document.
func MarshalYAML(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// GenerateDefaultConfigFile writes the default configuration to filename,
// refusing to overwrite an existing file.
func GenerateDefaultConfigFile(filename string) error {
	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}
	if _, err := os.Stat(filename); err == nil {
		return fmt.Errorf("config file already exists: %s", filename)
	}
	data, err := MarshalYAML(DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	header := []byte("# pagescan configuration\n# Environment variables use the " + EnvPrefix + "_ prefix, e.g. " +
		EnvPrefix + "_DETECTOR_APPROX_EPSILON=0.03\n")
	return os.WriteFile(filename, append(header, data...), 0o600)
}

// GetConfigSearchPaths returns the paths where configuration files are searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}
	if configDir, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		paths = append(paths, filepath.Join(configDir, "pagescan"))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "pagescan"))
	}
	return append(paths, "/etc/pagescan")
}
