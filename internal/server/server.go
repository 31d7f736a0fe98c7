// Package server exposes the page detection and rectification pipeline over
// HTTP and WebSocket.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/pagescan/internal/config"
	"github.com/MeKo-Tech/pagescan/internal/ocr"
	"github.com/MeKo-Tech/pagescan/internal/pipeline"
)

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
	Pipeline    pipeline.Config
	// OCRPool backs /ocr. The server does not close it.
	OCRPool   *ocr.Pool
	RateLimit config.RateLimitConfig
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	pipeline    *pipeline.Pipeline
	ocrPipeline *pipeline.Pipeline
	pool        *ocr.Pool
	corsOrigin  string
	maxUploadMB int64
	timeout     time.Duration
	rateLimiter *RateLimiter
}

// NewServer builds the pipelines used by the handlers. Recognition only runs
// on /ocr, so the pipeline behind the other endpoints never holds the pool.
func NewServer(cfg Config) (*Server, error) {
	pc := cfg.Pipeline
	pc.Observer = chainObserver(pc.Observer)

	base := pc
	base.OCR.Enabled = false
	pl, err := pipeline.NewBuilder().WithConfig(base).Build()
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}

	s := &Server{
		pipeline:    pl,
		pool:        cfg.OCRPool,
		corsOrigin:  cfg.CORSOrigin,
		maxUploadMB: cfg.MaxUploadMB,
		timeout:     time.Duration(cfg.TimeoutSec) * time.Second,
	}
	if s.maxUploadMB <= 0 {
		s.maxUploadMB = 50
	}

	if cfg.OCRPool != nil {
		oc := pc
		oc.FullFrameFallback = true
		s.ocrPipeline, err = pipeline.NewBuilder().WithConfig(oc).WithOCRPool(cfg.OCRPool).Build()
		if err != nil {
			return nil, fmt.Errorf("build ocr pipeline: %w", err)
		}
	}

	if rl := cfg.RateLimit; rl.Enabled {
		s.rateLimiter = NewRateLimiter(rl.RequestsPerMinute, rl.RequestsPerHour, rl.MaxRequestsPerDay, rl.MaxDataPerDayMB*1024*1024)
		slog.Info("Rate limiting enabled",
			"requests_per_minute", rl.RequestsPerMinute,
			"requests_per_hour", rl.RequestsPerHour,
			"max_requests_per_day", rl.MaxRequestsPerDay,
			"max_data_per_day_mb", rl.MaxDataPerDayMB)
	}
	return s, nil
}

// Close releases server resources.
func (s *Server) Close() error {
	if s.ocrPipeline != nil {
		_ = s.ocrPipeline.Close()
	}
	if s.pipeline != nil {
		return s.pipeline.Close()
	}
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/detect", s.corsMiddleware(s.rateLimitMiddleware(s.detectHandler)))
	mux.HandleFunc("/rectify", s.corsMiddleware(s.rateLimitMiddleware(s.rectifyHandler)))
	mux.HandleFunc("/rotate", s.corsMiddleware(s.rateLimitMiddleware(s.rotateHandler)))
	mux.HandleFunc("/edges", s.corsMiddleware(s.rateLimitMiddleware(s.edgesHandler)))
	mux.HandleFunc("/ocr", s.corsMiddleware(s.rateLimitMiddleware(s.ocrHandler)))
	// the upgrade needs the raw ResponseWriter, so no status-capturing wrapper here
	mux.HandleFunc("/ws", s.rateLimitMiddleware(s.webSocketHandler))
	mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns a mux with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.timeout)
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if s.timeout > 0 {
		httpServer.ReadTimeout = s.timeout
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting pagescan server", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down server", "timeout", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	slog.Info("Server stopped")
	return nil
}
