package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/pagescan/internal/batch"
)

func newBatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch PATH...",
		Short: "Rectify every image in files and directories",
		Long: `Batch processes image files and directories with a pool of workers.
Rectified pages are written to --output-dir; a summary of every input is
printed as text, JSON or CSV.

Examples:
  pagescan batch ./photos --output-dir ./pages
  pagescan batch ./photos --recursive --include "*.jpg" --format csv --output results.csv
  pagescan batch a.jpg b.png --workers 2 --stats`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBatch(cmd, args)
		},
	}
	addDetectorFlags(cmd)
	addRectifyFlags(cmd)
	f := cmd.Flags()
	f.BoolP("recursive", "r", false, "descend into subdirectories")
	f.IntP("workers", "w", 0, "number of parallel workers (default: number of CPUs)")
	f.String("output-dir", "", "write rectified PNGs here")
	f.StringSlice("include", nil, "only process files matching these glob patterns")
	f.StringSlice("exclude", nil, "skip files matching these glob patterns")
	f.StringP("format", "f", outputFormatText, "result format (text, json, csv)")
	f.StringP("output", "o", "", "write results to this file instead of stdout")
	f.BoolP("quiet", "q", false, "suppress progress and statistics")
	f.Bool("stats", false, "print processing statistics")
	f.Bool("progress", true, "show a progress indicator")

	a.bind(cmd, detectorBindings)
	a.bind(cmd, rectifyBindings)
	a.bind(cmd, map[string]string{
		"batch.recursive":     "recursive",
		"batch.workers":       "workers",
		"batch.output_dir":    "output-dir",
		"batch.include":       "include",
		"batch.exclude":       "exclude",
		"batch.show_progress": "progress",
		"output.format":       "format",
		"output.file":         "output",
	})
	return cmd
}

func (a *app) runBatch(cmd *cobra.Command, paths []string) error {
	cfg := a.cfg
	quiet, _ := cmd.Flags().GetBool("quiet")
	stats, _ := cmd.Flags().GetBool("stats")

	pool, closePool, err := newOCRPool(cfg)
	if err != nil {
		return err
	}
	defer closePool()

	bc := batch.DefaultConfig()
	bc.Pipeline = a.pipelineConfig(cmd)
	bc.OCRPool = pool
	bc.Workers = cfg.Batch.Workers
	bc.Recursive = cfg.Batch.Recursive
	bc.IncludePatterns = cfg.Batch.Include
	bc.ExcludePatterns = cfg.Batch.Exclude
	bc.OutputDir = cfg.Batch.OutputDir
	bc.Format = cfg.Output.Format
	bc.OutputFile = cfg.Output.File
	bc.ShowProgress = cfg.Batch.ShowProgress && !quiet
	bc.Quiet = quiet
	bc.ShowStats = stats
	bc.Stdout = cmd.OutOrStdout()

	res, err := batch.ProcessBatch(commandContext(cmd), paths, bc)
	if err != nil {
		return err
	}
	slog.Debug("Batch complete", "files", len(res.Files), "duration", res.Duration)

	out := cmd.OutOrStdout()
	if err := res.SaveResults(out, bc.Format, bc.OutputFile, quiet); err != nil {
		return err
	}
	if stats {
		res.PrintStats(out, quiet)
	}
	return nil
}
