package cmd

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/pagescan/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve starts an HTTP server exposing detection, rectification, rotation,
edge maps and OCR over JSON and multipart requests, with WebSocket progress
updates on /ws and Prometheus metrics on /metrics.

Examples:
  pagescan serve
  pagescan serve --host 0.0.0.0 --port 9000 --ocr
  pagescan serve --rate-limit --requests-per-minute 30`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runServe(ctx, cmd)
		},
	}
	addDetectorFlags(cmd)
	addRectifyFlags(cmd)
	f := cmd.Flags()
	f.String("host", "localhost", "address to listen on")
	f.IntP("port", "p", 8080, "port to listen on")
	f.String("cors-origin", "*", "allowed CORS origin")
	f.Int("max-upload-size", 50, "maximum upload size in MB")
	f.Int("timeout", 30, "per-request processing timeout in seconds")
	f.Int("shutdown-timeout", 10, "graceful shutdown timeout in seconds")
	f.Bool("rate-limit", false, "enable per-client rate limiting")
	f.Int("requests-per-minute", 60, "requests per client and minute (0 = unlimited)")
	f.Int("requests-per-hour", 1000, "requests per client and hour (0 = unlimited)")
	f.Int("max-requests-per-day", 0, "requests per client and day (0 = unlimited)")
	f.Int64("max-data-per-day", 0, "uploaded MB per client and day (0 = unlimited)")

	a.bind(cmd, detectorBindings)
	a.bind(cmd, rectifyBindings)
	a.bind(cmd, map[string]string{
		"server.host":                            "host",
		"server.port":                            "port",
		"server.cors_origin":                     "cors-origin",
		"server.max_upload_mb":                   "max-upload-size",
		"server.timeout_sec":                     "timeout",
		"server.shutdown_timeout":                "shutdown-timeout",
		"server.rate_limit.enabled":              "rate-limit",
		"server.rate_limit.requests_per_minute":  "requests-per-minute",
		"server.rate_limit.requests_per_hour":    "requests-per-hour",
		"server.rate_limit.max_requests_per_day": "max-requests-per-day",
		"server.rate_limit.max_data_per_day_mb":  "max-data-per-day",
	})
	return cmd
}

// serverConfig assembles the server settings from the loaded configuration.
func (a *app) serverConfig(cmd *cobra.Command) server.Config {
	sc := a.cfg.Server
	pc := a.pipelineConfig(cmd)
	pc.OCR.Enabled = false
	return server.Config{
		Host:        sc.Host,
		Port:        sc.Port,
		CORSOrigin:  sc.CORSOrigin,
		MaxUploadMB: int64(sc.MaxUploadMB),
		TimeoutSec:  sc.TimeoutSec,
		Pipeline:    pc,
		RateLimit:   sc.RateLimit,
	}
}

func (a *app) runServe(ctx context.Context, cmd *cobra.Command) error {
	pool, closePool, err := newOCRPool(a.cfg)
	if err != nil {
		return err
	}
	defer closePool()

	sc := a.serverConfig(cmd)
	sc.OCRPool = pool
	srv, err := server.NewServer(sc)
	if err != nil {
		return err
	}
	defer func() { _ = srv.Close() }()

	addr := net.JoinHostPort(sc.Host, strconv.Itoa(sc.Port))
	shutdown := time.Duration(a.cfg.Server.ShutdownTimeout) * time.Second
	return srv.ListenAndServe(ctx, addr, shutdown)
}
