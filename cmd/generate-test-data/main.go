// Command generate-test-data writes synthetic page photos and their
// ground-truth corners under testdata/.
package main

import (
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/MeKo-Tech/pagescan/internal/testutil"
	"github.com/MeKo-Tech/pagescan/internal/utils"
)

// Fixture records the expected page corners of one generated scene.
type Fixture struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	InputFile   string            `json:"input_file"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	Found       bool              `json:"found"`
	Corners     *utils.FourPoints `json:"corners,omitempty"`
	// AspectRatio is the width/height of the physical page, 0 when unknown.
	AspectRatio float64 `json:"aspect_ratio,omitempty"`
}

type scene struct {
	fixture Fixture
	img     image.Image
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	var (
		outDir  = pflag.StringP("output", "o", "", "output directory (default <project root>/testdata)")
		noise   = pflag.Float64("noise", 0.02, "fraction of pixels replaced by noise in the noisy scenes")
		seed    = pflag.Uint64("seed", 1, "noise seed")
		verbose = pflag.BoolP("verbose", "v", false, "verbose output")
	)
	pflag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\nGenerate synthetic page photos for pagescan tests.\n\nOPTIONS:\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()
	if *verbose {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	dir := *outDir
	if dir == "" {
		root, err := testutil.GetProjectRoot()
		if err != nil {
			slog.Error("Failed to find project root", "error", err)
			os.Exit(1)
		}
		dir = filepath.Join(root, "testdata")
	}

	if err := generate(dir, scenes(*noise, *seed)); err != nil {
		slog.Error("Failed to generate test data", "error", err)
		os.Exit(1)
	}
	slog.Info("Test data generation completed", "dir", dir)
}

func scenes(noise float64, seed uint64) []scene {
	flat := testutil.DefaultPageConfig()
	flat.Lines = []string{"INVOICE 2024-001", "Total: 42.00 EUR"}
	flatCorners := utils.FourPoints{{X: 40, Y: 40}, {X: 159, Y: 40}, {X: 159, Y: 159}, {X: 40, Y: 159}}

	out := []scene{{
		fixture: Fixture{Name: "flat_page", Description: "Axis-aligned page with two text lines", Found: true, Corners: &flatCorners, AspectRatio: 1},
		img:     testutil.RectPage(flat),
	}}

	tilts := []struct {
		name   string
		tx, ty float64
	}{
		{"tilt_x", 0.3, 0},
		{"tilt_y", 0, 0.3},
		{"tilt_xy", 0.3, 0.2},
		{"tilt_strong", 0.5, 0.35},
	}
	for _, tl := range tilts {
		img, q := testutil.PerspectivePage(300, 200, tl.tx, tl.ty, testutil.MediumSize)
		out = append(out, scene{
			fixture: Fixture{
				Name:        "perspective_" + tl.name,
				Description: fmt.Sprintf("3:2 page tilted %.2f/%.2f rad", tl.tx, tl.ty),
				Found:       true,
				Corners:     &q,
				AspectRatio: 1.5,
			},
			img: img,
		})
	}

	noisy, q := testutil.PerspectivePage(300, 200, 0.3, 0.2, testutil.MediumSize)
	out = append(out,
		scene{
			fixture: Fixture{Name: "perspective_noisy", Description: "Tilted page with salt noise", Found: true, Corners: &q, AspectRatio: 1.5},
			img:     testutil.AddNoise(noisy, noise, seed),
		},
		scene{
			fixture: Fixture{Name: "blank", Description: "Uniform image without a page"},
			img:     image.NewGray(image.Rect(0, 0, 100, 100)),
		},
	)
	return out
}

func generate(dir string, scenes []scene) error {
	imagesDir := filepath.Join(dir, "pages")
	fixturesDir := filepath.Join(dir, "fixtures")
	for _, d := range []string{imagesDir, fixturesDir} {
		if err := os.MkdirAll(d, 0o750); err != nil {
			return fmt.Errorf("create %s: %w", d, err)
		}
	}

	for _, sc := range scenes {
		name := sc.fixture.Name + ".png"
		if err := utils.SavePNG(filepath.Join(imagesDir, name), sc.img); err != nil {
			return fmt.Errorf("save %s: %w", name, err)
		}
		f := sc.fixture
		f.InputFile = filepath.Join("pages", name)
		b := sc.img.Bounds()
		f.Width, f.Height = b.Dx(), b.Dy()

		data, err := json.MarshalIndent(f, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(fixturesDir, f.Name+".json"), data, 0o600); err != nil {
			return fmt.Errorf("save fixture %s: %w", f.Name, err)
		}
		slog.Debug("Generated scene", "name", f.Name, "width", f.Width, "height", f.Height)
	}
	return nil
}
