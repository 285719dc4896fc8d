package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"file-drop/internal/audit"
	"file-drop/internal/logging"
	"file-drop/internal/storage"
)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version string
	Commit  string
}

// Mirror receives a copy of every stored file.
type Mirror interface {
	Put(ctx context.Context, localPath, objectName string) error
	Check(ctx context.Context) error
}

// AuditRecorder persists upload attempts.
type AuditRecorder interface {
	Record(ctx context.Context, ev audit.Event) error
	Recent(ctx context.Context, limit int) ([]audit.Event, error)
	Ping(ctx context.Context) error
}

const (
	mirrorMaxFailures = 5
	mirrorCooldown    = 30 * time.Second
)

// RateLimit configures per-IP limiting. RPS 0 disables it.
type RateLimit struct {
	RPS   float64
	Burst int
}

type Config struct {
	Addr            string // e.g. ":8090"
	Store           *storage.Store
	MaxRequestBytes int64
	Mirror          Mirror        // optional
	Audit           AuditRecorder // optional
	RateLimit       RateLimit
	Build           BuildInfo
	Logger          *logging.Logger
}

type Server struct {
	httpServer *http.Server
	store      *storage.Store
	maxRequest int64
	mirror     Mirror
	audit      AuditRecorder
	metrics    *Metrics
	log        *logging.Logger
	build      BuildInfo
}

func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	s := &Server{
		store:      cfg.Store,
		maxRequest: cfg.MaxRequestBytes,
		audit:      cfg.Audit,
		metrics:    NewMetrics(cfg.Build),
		log:        logger,
		build:      cfg.Build,
	}
	if cfg.Mirror != nil {
		s.mirror = newGuardedMirror(cfg.Mirror, NewCircuitBreaker("mirror", mirrorMaxFailures, mirrorCooldown, logger))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("GET /files", s.handleListFiles)
	mux.HandleFunc("GET /uploads/recent", s.handleRecentUploads)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /live", s.handleLive)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())

	// Wrap middleware: requestID -> tracing -> logging -> headers -> ratelimit -> gzip -> mux
	var handler http.Handler = mux
	handler = gzhttp.GzipHandler(handler)
	if cfg.RateLimit.RPS > 0 {
		handler = newRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst).middleware(handler)
	}
	handler = securityHeadersMiddleware(handler)
	handler = s.loggingMiddleware(handler)
	handler = tracingMiddleware(handler)
	handler = requestIDMiddleware(handler)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
