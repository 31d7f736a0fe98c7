package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/pagescan/internal/benchmark"
)

func newBenchmarkCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Measure pipeline throughput on synthetic pages",
		Long: `Benchmark runs detection and the full pipeline on generated page scenes
(flat, tilted and large) and compares sequential with parallel processing.

Examples:
  pagescan benchmark
  pagescan benchmark --iterations 10 --workers 8 --output bench.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runBenchmark(cmd)
		},
	}
	addDetectorFlags(cmd)
	addRectifyFlags(cmd)
	f := cmd.Flags()
	f.IntP("iterations", "n", 3, "iterations per benchmark")
	f.IntP("workers", "w", runtime.NumCPU(), "workers for the parallel comparison")
	f.Int("images", 16, "images in the parallel comparison")
	f.StringP("output", "o", "", "also write results as JSON to this file")
	a.bind(cmd, detectorBindings)
	a.bind(cmd, rectifyBindings)
	return cmd
}

func (a *app) runBenchmark(cmd *cobra.Command) error {
	flags := cmd.Flags()
	iterations, _ := flags.GetInt("iterations")
	workers, _ := flags.GetInt("workers")
	images, _ := flags.GetInt("images")
	output, _ := flags.GetString("output")

	pl, cleanup, err := a.buildPipeline(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()
	scenes := benchmark.DefaultScenes()
	_, _ = fmt.Fprintf(out, "Running %d iterations per benchmark...\n", iterations)

	results := benchmark.NewPipelineSuite(pl, scenes).RunAll(ctx, iterations)
	benchmark.WriteResults(out, results)

	cmp, err := benchmark.CompareParallel(ctx, pl, scenes, images, workers)
	if err != nil {
		return fmt.Errorf("parallel comparison: %w", err)
	}
	_, _ = fmt.Fprintf(out, "\nParallel: %s\n", cmp)

	if output == "" {
		return nil
	}
	data, err := json.MarshalIndent(struct {
		Results  []benchmark.Result           `json:"results"`
		Parallel benchmark.ParallelComparison `json:"parallel"`
	}{results, cmp}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(output, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	_, err = fmt.Fprintf(out, "Results saved to: %s\n", output)
	return err
}
