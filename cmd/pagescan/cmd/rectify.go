package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/pagescan/internal/pipeline"
	"github.com/MeKo-Tech/pagescan/internal/utils"
)

// errNoPage is returned when neither detection nor explicit corners yield a page.
var errNoPage = errors.New("no page found")

func newRectifyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rectify IMAGE",
		Short: "Produce a flat, upright scan of the page in an image",
		Long: `Rectify detects the page in an image (or uses the given corners), removes
the perspective distortion and writes the result as PNG.

Examples:
  pagescan rectify photo.jpg
  pagescan rectify photo.jpg --points "40,40 159,40 159,159 40,159"
  pagescan rectify photo.jpg --no-postprocess --output page.png
  pagescan rectify photo.jpg --ocr --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRectify(cmd, args[0])
		},
	}
	addDetectorFlags(cmd)
	addRectifyFlags(cmd)
	f := cmd.Flags()
	f.String("points", "", "page corners as 8 numbers \"x1,y1 x2,y2 x3,y3 x4,y4\" (skips detection)")
	f.StringP("output", "o", "", "output PNG path (default <name>_rectified.png)")
	f.StringP("format", "f", outputFormatText, "summary format (text, json)")
	a.bind(cmd, detectorBindings)
	a.bind(cmd, rectifyBindings)
	return cmd
}

func (a *app) runRectify(cmd *cobra.Command, path string) error {
	format, _ := cmd.Flags().GetString("format")
	if err := checkFormat(format, outputFormatText, outputFormatJSON); err != nil {
		return err
	}
	var corners *utils.FourPoints
	if s, _ := cmd.Flags().GetString("points"); s != "" {
		fp, err := utils.ParseFourPoints(s)
		if err != nil {
			return err
		}
		corners = &fp
	}

	img, err := loadInput(path)
	if err != nil {
		return err
	}
	pl, cleanup, err := a.buildPipeline(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := commandContext(cmd)
	var res *pipeline.PageResult
	if corners != nil {
		res, err = pl.ProcessImageWithCorners(ctx, img, *corners)
	} else {
		res, err = pl.ProcessImage(ctx, img)
	}
	if err != nil {
		return fmt.Errorf("rectify %s: %w", path, err)
	}
	if res.Image == nil {
		return fmt.Errorf("%s: %w", path, errNoPage)
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = derivedName(path, "rectified")
	}
	if err := utils.SavePNG(output, res.Image); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	slog.Info("Rectified page", "input", path, "output", output,
		"mode", res.Rectified.Mode, "width", res.Rectified.Width, "height", res.Rectified.Height)

	out := cmd.OutOrStdout()
	if format == outputFormatJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Input  string               `json:"input"`
			Output string               `json:"output"`
			Result *pipeline.PageResult `json:"result"`
		}{path, output, res})
	}
	return writeRectifyText(out, output, res)
}

func writeRectifyText(w io.Writer, output string, res *pipeline.PageResult) error {
	r := res.Rectified
	if _, err := fmt.Fprintf(w, "%s: %dx%d (%s", output, r.Width, r.Height, r.Mode); err != nil {
		return err
	}
	switch {
	case r.FullFrame:
		_, _ = fmt.Fprint(w, ", full frame")
	case r.Fallback:
		_, _ = fmt.Fprint(w, ", fallback")
	}
	if _, err := fmt.Fprintf(w, ", aspect %.3f)\n", r.AspectRatio); err != nil {
		return err
	}
	if res.Text != nil {
		if _, err := fmt.Fprintf(w, "\n%s\n", res.Text.Content); err != nil {
			return err
		}
	}
	return nil
}
