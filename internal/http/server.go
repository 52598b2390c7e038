// Package http exposes the takings JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"takings/internal/core"
	"takings/internal/log"
	"takings/internal/middleware/ratelimit"
	"takings/internal/middleware/security"
	"takings/internal/middleware/trace"
	"takings/internal/services"
)

// TakingsService is what the handlers need from the import service.
type TakingsService interface {
	ImportFile(ctx context.Context, filename string, data []byte) (services.ImportResult, error)
	ImportSheet(ctx context.Context, spreadsheetID, readRange string) (services.ImportResult, error)
	GetTaking(ctx context.Context, storeName string, date core.Date) (core.Taking, error)
	ListTakingsByDate(ctx context.Context, date core.Date) ([]core.Taking, error)
	ListStores(ctx context.Context) ([]core.Store, error)
	Ready(ctx context.Context) error
}

// Options tunes the server; zero values select defaults.
type Options struct {
	MaxUploadBytes     int64
	CORSOrigin         string
	RateLimitPerMinute int
}

type appMetrics struct {
	started        time.Time
	uploads        int64
	uploadFailures int64
}

type Server struct {
	http.Server
	svc            TakingsService
	logger         *log.Logger
	maxUploadBytes int64

	tracer   *trace.Middleware
	limiter  *ratelimit.Limiter
	detector *security.Detector
	metrics  *appMetrics

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc TakingsService, logger *log.Logger, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.CORSOrigin == "" {
		opts.CORSOrigin = "*"
	}

	detector := security.NewDetector()
	s := &Server{
		svc:            svc,
		logger:         logger.WithComponent(log.ComponentHTTP),
		maxUploadBytes: opts.MaxUploadBytes,
		tracer:         trace.NewMiddleware(logger, detector.ExtractClientIP),
		limiter:        ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:       detector,
		metrics:        &appMetrics{started: time.Now()},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload/{$}", s.handleUpload)
	mux.HandleFunc("GET /upload/{$}", s.handleGetTakings)
	mux.HandleFunc("GET /stores/{$}", s.handleListStores)
	mux.HandleFunc("POST /import/sheet", s.handleImportSheet)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	limit := s.limiter.Middleware(detector.ExtractClientIP, s.handleRateLimited, http.MethodPost)
	var h http.Handler = mux
	h = limit(h)
	h = detector.Middleware(h)
	h = security.NewCORSMiddleware(security.DefaultCORSConfig(opts.CORSOrigin)).Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.tracer.Middleware(h)
	h = log.Middleware(logger)(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(),
		"Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	s.sendDetail(w, r, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
}

// Shutdown stops background work and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
