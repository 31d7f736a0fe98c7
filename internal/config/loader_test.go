package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/pagescan/internal/detector"
)

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	return NewLoaderWithViper(viper.New())
}

func TestLoader_Defaults(t *testing.T) {
	cfg, err := newTestLoader(t).Load()
	require.NoError(t, err)
	def := DefaultConfig()
	assert.Equal(t, def.Detector, cfg.Detector)
	assert.Equal(t, def.Postprocess, cfg.Postprocess)
	assert.Equal(t, def.Server.Port, cfg.Server.Port)
	assert.Equal(t, def.Rectify.ParallelTolerance, cfg.Rectify.ParallelTolerance)
}

func TestLoader_Environment(t *testing.T) {
	l := newTestLoader(t)
	t.Setenv("PAGESCAN_DETECTOR_APPROX_EPSILON", "0.03")
	t.Setenv("PAGESCAN_SERVER_PORT", "9090")
	t.Setenv("PAGESCAN_DETECTOR_EDGE_MODE", "threshold")

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.InDelta(t, 0.03, cfg.Detector.ApproxEpsilon, 1e-12)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, detector.EdgeThreshold, cfg.Detector.EdgeMode)
}

func TestLoader_File(t *testing.T) {
	l := newTestLoader(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	content := `
detector:
  approx_epsilon: 0.04
  morph:
    operation: dilate
postprocess:
  method: mean
  block_size: 21
server:
  port: 9000
batch:
  include: ["*.png", "*.jpg"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := l.LoadWithFile(path)
	require.NoError(t, err)
	assert.InDelta(t, 0.04, cfg.Detector.ApproxEpsilon, 1e-12)
	assert.Equal(t, detector.MorphDilate, cfg.Detector.Morph.Operation)
	assert.Equal(t, 3, cfg.Detector.Morph.KernelSize)
	assert.Equal(t, 21, cfg.Postprocess.BlockSize)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []string{"*.png", "*.jpg"}, cfg.Batch.Include)
	assert.Equal(t, path, l.GetConfigFileUsed())
}

func TestLoader_SearchPath(t *testing.T) {
	l := newTestLoader(t)
	require.NoError(t, os.WriteFile("pagescan.yaml", []byte("log_level: debug\n"), 0o600))

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoader_Errors(t *testing.T) {
	l := newTestLoader(t)
	_, err := l.LoadWithFile("/does/not/exist.yaml")
	assert.ErrorContains(t, err, "does not exist")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("server:\n  port: 0\n"), 0o600))
	_, err = newTestLoader(t).LoadWithFile(bad)
	assert.ErrorContains(t, err, "validation failed")

	cfg, err := newTestLoader(t).LoadWithFileWithoutValidation(bad)
	require.NoError(t, err)
	assert.Zero(t, cfg.Server.Port)
}

func TestLoader_Flags(t *testing.T) {
	l := newTestLoader(t)
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Float64("approx-epsilon", 0.02, "")
	fs.Int("port", 8080, "")
	require.NoError(t, fs.Parse([]string{"--approx-epsilon=0.05"}))

	require.NoError(t, l.BindFlags(fs, map[string]string{
		"detector.approx_epsilon": "approx-epsilon",
		"server.port":             "port",
		"server.host":             "missing",
	}))
	assert.Error(t, l.BindFlag("x", nil))

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.InDelta(t, 0.05, cfg.Detector.ApproxEpsilon, 1e-12)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestGenerateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagescan.yaml")
	require.NoError(t, GenerateDefaultConfigFile(path))
	assert.Error(t, GenerateDefaultConfigFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, yaml.Unmarshal(data, &raw))
	assert.Contains(t, raw, "detector")
	assert.Contains(t, raw, "postprocess")

	cfg, err := newTestLoader(t).LoadWithFile(path)
	require.NoError(t, err)
	def := DefaultConfig()
	assert.Equal(t, def.Detector, cfg.Detector)
	assert.Equal(t, def.OCR, cfg.OCR)
	assert.Equal(t, def.Server, cfg.Server)
}
