// Package server exposes the ingestion pipeline over HTTP.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Veraticus/spice-ingest/internal/common"
	"github.com/Veraticus/spice-ingest/internal/keypool"
	"github.com/Veraticus/spice-ingest/internal/pipeline"
)

// Processor runs transaction text through the pipeline.
type Processor interface {
	Process(ctx context.Context, req pipeline.Request) (pipeline.Response, error)
	Stream(ctx context.Context, req pipeline.Request, emit func(pipeline.Event) error) error
}

// PoolStatus reports credential pool state.
type PoolStatus interface {
	Status() keypool.Status
}

// CertificateSource supplies the certificate for HTTPS.
type CertificateSource interface {
	GetOrCreateCertificate() (tls.Certificate, error)
}

// Config holds HTTP settings.
type Config struct {
	Addr string
	// RateLimit is the number of requests a client may make per RateWindow.
	RateLimit  int
	RateWindow time.Duration
	// MaxBodyBytes bounds request bodies.
	MaxBodyBytes int64
	// RequestTimeout bounds a single parse request.
	RequestTimeout time.Duration
}

// DefaultConfig returns the server defaults.
func DefaultConfig() Config {
	return Config{
		Addr:           ":8080",
		RateLimit:      30,
		RateWindow:     time.Minute,
		MaxBodyBytes:   64 << 10,
		RequestTimeout: 2 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Addr == "" {
		c.Addr = d.Addr
	}
	if c.RateLimit <= 0 {
		c.RateLimit = d.RateLimit
	}
	if c.RateWindow <= 0 {
		c.RateWindow = d.RateWindow
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = d.MaxBodyBytes
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	return c
}

// Server is the HTTP front end.
type Server struct {
	processor Processor
	pool      PoolStatus
	limiter   *RateLimiter
	certs     CertificateSource
	logger    *slog.Logger
	cfg       Config
}

// New creates a Server. pool may be nil, which disables the key status route.
func New(cfg Config, processor Processor, pool PoolStatus, logger *slog.Logger) *Server {
	cfg = cfg.withDefaults()
	return &Server{
		processor: processor,
		pool:      pool,
		limiter:   NewRateLimiter(cfg.RateLimit, cfg.RateWindow),
		logger:    common.LoggerOrDefault(logger),
		cfg:       cfg,
	}
}

// UseTLS makes ListenAndServe serve HTTPS with a certificate from src.
func (s *Server) UseTLS(src CertificateSource) {
	s.certs = src
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	limited := func(h http.HandlerFunc) http.Handler {
		return RateLimitMiddleware(s.limiter, h)
	}

	mux.Handle("POST /api/v1/transactions/parse", limited(s.handleParse))
	mux.Handle("POST /api/v1/transactions/parse/stream", limited(s.handleStream))
	mux.HandleFunc("GET /api/v1/keys/status", s.handleKeyStatus)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	return s.logRequests(mux)
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	if s.certs != nil {
		cert, err := s.certs.GetOrCreateCertificate()
		if err != nil {
			s.limiter.Stop()
			return fmt.Errorf("failed to load TLS certificate: %w", err)
		}
		srv.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.cfg.Addr, "tls", s.certs != nil)
		var err error
		if s.certs != nil {
			err = srv.ListenAndServeTLS("", "")
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		s.limiter.Stop()
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	defer s.limiter.Stop()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

// Close releases background resources.
func (s *Server) Close() {
	s.limiter.Stop()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}
