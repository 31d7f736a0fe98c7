// Package cmd implements the pagescan command line.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/pagescan/internal/config"
)

// app is the state shared by one command tree.
type app struct {
	loader  *config.Loader
	cfg     *config.Config
	cfgFile string
	// bindings maps each command to the config keys its flags override.
	// Viper holds one flag per key, so only the executing command is bound.
	bindings map[*cobra.Command][]map[string]string
	// logOutput receives structured logs; stdout stays reserved for results.
	logOutput io.Writer
}

// bind registers configuration keys for flags on cmd. Explicitly set flags
// override config files and environment variables once cmd runs.
func (a *app) bind(cmd *cobra.Command, bindings map[string]string) {
	a.bindings[cmd] = append(a.bindings[cmd], bindings)
}

func (a *app) bindCommand(cmd *cobra.Command) error {
	for _, b := range a.bindings[cmd] {
		if err := a.loader.BindFlags(cmd.Flags(), b); err != nil {
			return fmt.Errorf("bind flags for %s: %w", cmd.Name(), err)
		}
	}
	return nil
}

func (a *app) loadConfig() error {
	cfg, err := a.loader.LoadWithFile(a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func (a *app) setupLogging() {
	level := slog.LevelInfo
	if a.cfg.Verbose {
		level = slog.LevelDebug
	} else {
		switch a.cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{Level: level})))
}

// NewRootCommand builds a fresh command tree with its own configuration
// state, so it can be executed repeatedly in-process.
func NewRootCommand() *cobra.Command {
	return newRootCommand(os.Stderr)
}

func newRootCommand(logOutput io.Writer) *cobra.Command {
	a := &app{
		loader:    config.NewLoaderWithViper(viper.New()),
		logOutput: logOutput,
		bindings:  make(map[*cobra.Command][]map[string]string),
	}

	root := &cobra.Command{
		Use:   "pagescan",
		Short: "Detect, rectify and recognize document pages in photographs",
		Long: `pagescan finds the page in a photograph of a document, removes the
perspective distortion and optionally thresholds and recognizes the result.

This tool provides:
- Page boundary detection with Canny or threshold edge maps
- Perspective rectification with true aspect ratio recovery
- Adaptive thresholding for a scanned look
- Batch processing of directories and PDF documents
- An HTTP API with WebSocket progress and Prometheus metrics

Examples:
  pagescan detect photo.jpg
  pagescan rectify photo.jpg --output page.png
  pagescan batch ./photos --recursive --output-dir ./pages
  pagescan serve --port 8080`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.bindCommand(cmd); err != nil {
				return err
			}
			if err := a.loadConfig(); err != nil {
				return fmt.Errorf("error loading configuration: %w", err)
			}
			a.setupLogging()
			if used := a.loader.GetConfigFileUsed(); used != "" {
				slog.Debug("Loaded configuration", "file", used)
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is search in ., $XDG_CONFIG_HOME/pagescan, /etc/pagescan)")
	pf.BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	if err := a.loader.BindFlags(pf, map[string]string{
		"verbose":   "verbose",
		"log_level": "log-level",
	}); err != nil {
		panic(err)
	}

	root.AddCommand(
		newDetectCmd(a),
		newRectifyCmd(a),
		newRotateCmd(a),
		newEdgesCmd(a),
		newBatchCmd(a),
		newPDFCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
		newBenchmarkCmd(a),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		os.Exit(1)
	}
}
