package cmd

import (
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/pagescan/internal/detector"
	"github.com/MeKo-Tech/pagescan/internal/ocr"
	"github.com/MeKo-Tech/pagescan/internal/testutil"
	"github.com/MeKo-Tech/pagescan/internal/utils"
)

// workspace returns a temp dir holding page.png, the 200x200 scene with a
// white square spanning (40,40)-(160,160).
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteImage(t, dir, "page.png", testutil.RectPage(testutil.DefaultPageConfig()))
	return dir
}

func loadPNG(t *testing.T, path string) image.Image {
	t.Helper()
	img, _, err := utils.LoadImage(path)
	require.NoError(t, err)
	return img
}

func TestDetectCommand(t *testing.T) {
	dir := workspace(t)

	out, err := executeIn(t, dir, "detect", "page.png")
	require.NoError(t, err)
	assert.Contains(t, out, "quadrilateral(s) in 200x200 image")

	out, err = executeIn(t, dir, "detect", "page.png", "--format", "json", "--max-quads", "1", "--overlay", "overlay.png")
	require.NoError(t, err)
	var res detector.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Found)
	assert.Len(t, res.Quads, 1)
	assert.Equal(t, 200, res.Width)
	assert.FileExists(t, filepath.Join(dir, "overlay.png"))
}

func TestDetectCommandErrors(t *testing.T) {
	dir := workspace(t)
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing argument", []string{"detect"}, "accepts 1 arg"},
		{"missing file", []string{"detect", "nope.png"}, "nope.png"},
		{"bad format", []string{"detect", "page.png", "--format", "xml"}, "invalid output format"},
		{"bad edge mode", []string{"detect", "page.png", "--edge-mode", "sobel"}, "error loading configuration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeIn(t, dir, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRectifyCommand(t *testing.T) {
	t.Run("auto detect", func(t *testing.T) {
		dir := workspace(t)
		out, err := executeIn(t, dir, "rectify", "page.png")
		require.NoError(t, err)
		assert.Contains(t, out, "page_rectified.png")

		img := loadPNG(t, filepath.Join(dir, "page_rectified.png"))
		assert.InDelta(t, 120, img.Bounds().Dx(), 3)
		assert.InDelta(t, 120, img.Bounds().Dy(), 3)
	})

	t.Run("explicit points", func(t *testing.T) {
		dir := workspace(t)
		out, err := executeIn(t, dir, "rectify", "page.png",
			"--points", "40,40 159,40 159,159 40,159", "--output", "out.png", "--format", "json")
		require.NoError(t, err)

		var summary struct {
			Output string `json:"output"`
			Result struct {
				Found     bool `json:"found"`
				Rectified struct {
					Width  int `json:"width"`
					Height int `json:"height"`
				} `json:"rectified"`
			} `json:"result"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &summary))
		assert.Equal(t, "out.png", summary.Output)
		assert.True(t, summary.Result.Found)
		assert.Equal(t, 119, summary.Result.Rectified.Width)
		assert.Equal(t, 119, loadPNG(t, filepath.Join(dir, "out.png")).Bounds().Dx())
	})

	t.Run("no page", func(t *testing.T) {
		dir := t.TempDir()
		testutil.WriteImage(t, dir, "blank.png", image.NewGray(image.Rect(0, 0, 100, 100)))
		_, err := executeIn(t, dir, "rectify", "blank.png")
		require.ErrorIs(t, err, errNoPage)

		out, err := executeIn(t, dir, "rectify", "blank.png", "--full-frame")
		require.NoError(t, err)
		assert.Contains(t, out, "full frame")
		assert.Equal(t, 99, loadPNG(t, filepath.Join(dir, "blank_rectified.png")).Bounds().Dx())
	})

	t.Run("invalid points", func(t *testing.T) {
		dir := workspace(t)
		_, err := executeIn(t, dir, "rectify", "page.png", "--points", "1,2,3")
		require.ErrorIs(t, err, utils.ErrInvalidQuad)
	})

	t.Run("ocr unavailable", func(t *testing.T) {
		if ocr.BackendName != "none" {
			t.Skip("recognition backend compiled in")
		}
		dir := workspace(t)
		_, err := executeIn(t, dir, "rectify", "page.png", "--ocr")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "start OCR")
	})
}

func TestRotateCommand(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteImage(t, dir, "wide.png", image.NewGray(image.Rect(0, 0, 60, 30)))

	out, err := executeIn(t, dir, "rotate", "wide.png", "--degrees", "90")
	require.NoError(t, err)
	assert.Equal(t, "wide_rotated.png: 30x60\n", out)

	_, err = executeIn(t, dir, "rotate", "wide.png", "--degrees", "45")
	var degenerate *utils.DegenerateRotationError
	require.ErrorAs(t, err, &degenerate)
	assert.Equal(t, 45, degenerate.Degrees)
}

func TestEdgesCommand(t *testing.T) {
	dir := workspace(t)
	out, err := executeIn(t, dir, "edges", "page.png", "--edge-mode", "threshold", "-o", "edges.png")
	require.NoError(t, err)
	assert.Equal(t, "edges.png: 200x200\n", out)

	b := loadPNG(t, filepath.Join(dir, "edges.png")).Bounds()
	assert.Equal(t, 200, b.Dx())
}

func TestBatchCommand(t *testing.T) {
	dir := workspace(t)
	sub := filepath.Join(dir, "more")
	testutil.WriteImage(t, sub, "blank.png", image.NewGray(image.Rect(0, 0, 100, 100)))

	out, err := executeIn(t, dir, "batch", ".", "--recursive", "--workers", "2",
		"--format", "json", "--output-dir", "pages", "--quiet")
	require.NoError(t, err)

	var parsed struct {
		Images []struct {
			File   string `json:"file"`
			Result struct {
				Found bool `json:"found"`
			} `json:"result"`
		} `json:"images"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	require.Len(t, parsed.Images, 2)
	found := 0
	for _, img := range parsed.Images {
		if img.Result.Found {
			found++
		}
	}
	assert.Equal(t, 1, found)
	assert.FileExists(t, filepath.Join(dir, "pages", "page_rectified.png"))
	assert.NoFileExists(t, filepath.Join(dir, "pages", "blank_rectified.png"))
}

func TestBatchCommandCSVToFile(t *testing.T) {
	dir := workspace(t)
	out, err := executeIn(t, dir, "batch", "page.png", "--format", "csv", "--output", "results.csv", "--progress=false")
	require.NoError(t, err)
	assert.Contains(t, out, "Results written to results.csv")

	data, err := os.ReadFile(filepath.Join(dir, "results.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "file,found,width"))
}

func TestBatchCommandNoImages(t *testing.T) {
	_, err := execute(t, "batch", ".")
	require.Error(t, err)
}

func TestPDFCommandErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.pdf"), []byte("not a pdf"), 0o600))

	_, err := executeIn(t, dir, "pdf", "broken.pdf")
	require.Error(t, err)

	_, err = executeIn(t, dir, "pdf", "broken.pdf", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")
}

func TestServeCommandFlags(t *testing.T) {
	root := NewRootCommand()
	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	for _, name := range []string{"host", "port", "cors-origin", "max-upload-size", "timeout", "rate-limit", "requests-per-minute", "ocr"} {
		assert.NotNil(t, serve.Flags().Lookup(name), name)
	}

	_, err = execute(t, "serve", "--port", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid server port")
}

func TestConfigCommands(t *testing.T) {
	dir := t.TempDir()

	out, err := executeIn(t, dir, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "pagescan.yaml")

	_, err = executeIn(t, dir, "config", "init")
	require.Error(t, err)
	_, err = executeIn(t, dir, "config", "init", "--force")
	require.NoError(t, err)

	out, err = executeIn(t, dir, "config", "show", "--log-level", "debug")
	require.NoError(t, err)
	assert.Contains(t, out, "# loaded from")

	body := out[strings.Index(out, "\n")+1:]
	var shown map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(body), &shown))
	assert.Equal(t, "debug", shown["log_level"])

	out, err = executeIn(t, dir, "config", "paths")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, ".\n"))
}

func TestBenchmarkCommand(t *testing.T) {
	if testing.Short() {
		t.Skip("runs the pipeline on large scenes")
	}
	dir := t.TempDir()
	out, err := executeIn(t, dir, "benchmark", "--iterations", "1", "--images", "3", "--workers", "2", "--output", "bench.json")
	require.NoError(t, err)
	assert.Contains(t, out, "Pipeline_tilted_640: 1 iterations")
	assert.Contains(t, out, "Parallel: 3 images")

	data, err := os.ReadFile(filepath.Join(dir, "bench.json"))
	require.NoError(t, err)
	var parsed struct {
		Results []struct {
			Name string `json:"name"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Len(t, parsed.Results, 6)
}
