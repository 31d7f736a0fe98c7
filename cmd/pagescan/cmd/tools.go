package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/pagescan/internal/detector"
	"github.com/MeKo-Tech/pagescan/internal/utils"
)

func newRotateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rotate IMAGE",
		Short: "Rotate an image by a multiple of 90 degrees",
		Example: `  pagescan rotate page.png --degrees 90
  pagescan rotate page.png --degrees -90 --output upright.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			degrees, _ := cmd.Flags().GetInt("degrees")
			output, _ := cmd.Flags().GetString("output")
			return runRotate(cmd, args[0], degrees, output)
		},
	}
	cmd.Flags().IntP("degrees", "d", 90, "clockwise rotation (90, 180 or 270)")
	cmd.Flags().StringP("output", "o", "", "output PNG path (default <name>_rotated.png)")
	return cmd
}

func runRotate(cmd *cobra.Command, path string, degrees int, output string) error {
	img, err := loadInput(path)
	if err != nil {
		return err
	}
	rotated, err := utils.Rotate(img, degrees)
	if err != nil {
		return err
	}
	if output == "" {
		output = derivedName(path, "rotated")
	}
	if err := utils.SavePNG(output, rotated); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	b := rotated.Bounds()
	slog.Debug("Rotated image", "input", path, "degrees", degrees)
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %dx%d\n", output, b.Dx(), b.Dy())
	return err
}

func newEdgesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edges IMAGE",
		Short: "Write the binary edge map used for page detection",
		Example: `  pagescan edges photo.jpg
  pagescan edges photo.jpg --edge-mode threshold --output edges.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runEdges(cmd, args[0])
		},
	}
	addDetectorFlags(cmd)
	cmd.Flags().StringP("output", "o", "", "output PNG path (default <name>_edges.png)")
	a.bind(cmd, detectorBindings)
	return cmd
}

func (a *app) runEdges(cmd *cobra.Command, path string) error {
	img, err := loadInput(path)
	if err != nil {
		return err
	}
	det, err := detector.NewDetector(a.cfg.Detector)
	if err != nil {
		return err
	}
	edges, err := det.Edges(commandContext(cmd), img)
	if err != nil {
		return fmt.Errorf("edges %s: %w", path, err)
	}
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = derivedName(path, "edges")
	}
	if err := utils.SavePNG(output, edges); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	b := edges.Bounds()
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %dx%d\n", output, b.Dx(), b.Dy())
	return err
}
