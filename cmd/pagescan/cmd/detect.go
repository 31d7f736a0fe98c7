package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/pagescan/internal/detector"
	"github.com/MeKo-Tech/pagescan/internal/utils"
)

func newDetectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect IMAGE",
		Short: "Find page-shaped quadrilaterals in an image",
		Long: `Detect runs edge detection and contour approximation on an image and
reports the candidate page quadrilaterals, largest first.

Examples:
  pagescan detect photo.jpg
  pagescan detect photo.jpg --format json
  pagescan detect photo.jpg --overlay quads.png --edge-mode threshold`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDetect(cmd, args[0])
		},
	}
	addDetectorFlags(cmd)
	cmd.Flags().StringP("format", "f", outputFormatText, "output format (text, json)")
	cmd.Flags().String("overlay", "", "write a PNG with the detected quads drawn on the input")
	a.bind(cmd, detectorBindings)
	return cmd
}

func (a *app) runDetect(cmd *cobra.Command, path string) error {
	format, _ := cmd.Flags().GetString("format")
	if err := checkFormat(format, outputFormatText, outputFormatJSON); err != nil {
		return err
	}
	img, err := loadInput(path)
	if err != nil {
		return err
	}
	det, err := detector.NewDetector(a.cfg.Detector)
	if err != nil {
		return err
	}
	res, err := det.Detect(commandContext(cmd), img)
	if err != nil {
		return fmt.Errorf("detect %s: %w", path, err)
	}

	if overlay, _ := cmd.Flags().GetString("overlay"); overlay != "" {
		vis := detector.VisualizeQuads(img, res.Quads, detector.VisualizeOptions{})
		if err := utils.SavePNG(overlay, vis); err != nil {
			return fmt.Errorf("write overlay: %w", err)
		}
		slog.Info("Wrote overlay", "path", overlay)
	}

	out := cmd.OutOrStdout()
	if format == outputFormatJSON {
		data, err := res.ToJSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}
	return writeDetectText(out, path, res)
}

func writeDetectText(w io.Writer, path string, res *detector.Result) error {
	if !res.Found {
		_, err := fmt.Fprintf(w, "%s: no page found (%dx%d)\n", path, res.Width, res.Height)
		return err
	}
	if _, err := fmt.Fprintf(w, "%s: %d quadrilateral(s) in %dx%d image\n", path, len(res.Quads), res.Width, res.Height); err != nil {
		return err
	}
	for i, q := range res.Quads {
		var corners string
		if fp, err := q.Quad(); err == nil {
			corners = fp.String()
		}
		if _, err := fmt.Fprintf(w, "  %d. area=%.0f corners=%s\n", i+1, q.Area, corners); err != nil {
			return err
		}
	}
	return nil
}
