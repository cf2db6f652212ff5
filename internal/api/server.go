package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/obscode/magdash/internal/dashboard"
	"github.com/obscode/magdash/internal/filter"
	"github.com/obscode/magdash/internal/health"
	"github.com/obscode/magdash/internal/httputil"
	"github.com/obscode/magdash/internal/metrics"
)

// Dashboard is the session the handlers drive.
type Dashboard interface {
	Snapshot() *dashboard.Snapshot
	Ready() bool
	IngestCatalog(ctx context.Context, name string, data []byte) (*dashboard.Report, error)
	IngestRemote(ctx context.Context) (*dashboard.Report, error)
	IngestQueue(ctx context.Context, name string) (*dashboard.Report, error)
	ApplyFilter(ctx context.Context, u filter.Update) error
	Select(ctx context.Context, rows []int) error
	Reset(ctx context.Context) error
	SetDate(ctx context.Context, date string) error
	Telescope(ctx context.Context, tel string) (*dashboard.TelescopeStatus, error)
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server. stream serves the SSE route;
// trustProxy controls which address request logs attribute requests to.
func NewServer(addr string, d Dashboard, stream http.HandlerFunc, trustProxy bool, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	h := &handlers{d: d, logger: logger}

	// Register routes.
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(d.Ready))
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/v1/view", h.view)
	mux.HandleFunc("GET /api/v1/skymap", h.skymap)
	mux.HandleFunc("POST /api/v1/ingest/catalog", h.ingestCatalog)
	mux.HandleFunc("POST /api/v1/ingest/remote", h.ingestRemote)
	mux.HandleFunc("POST /api/v1/ingest/queue/{queue}", h.ingestQueue)
	mux.HandleFunc("PUT /api/v1/filters/{name}", h.applyFilter)
	mux.HandleFunc("POST /api/v1/selection", h.selection)
	mux.HandleFunc("POST /api/v1/reset", h.reset)
	mux.HandleFunc("PUT /api/v1/date", h.setDate)
	mux.HandleFunc("GET /api/v1/telescope/{tel}", h.telescope)
	if stream != nil {
		mux.HandleFunc("GET /api/v1/stream", stream)
	}

	// Build middleware chain: metrics -> logging -> mux.
	var handler http.Handler = mux
	handler = loggingMiddleware(logger, trustProxy)(handler)
	handler = metrics.Middleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       30 * time.Second, // catalog uploads
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      60 * time.Second, // remote and queue ingestion wait on providers
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", httputil.ClientIP(r, trustProxy),
			)
		})
	}
}
