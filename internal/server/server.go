// Package server is the local report preview server behind
// 'nexora report serve'. It serves one project's sanitized report page,
// a health endpoint and Prometheus metrics, and shuts down gracefully.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"github.com/felixgeelhaar/nexora/internal/health"
	"github.com/felixgeelhaar/nexora/internal/log"
	"github.com/felixgeelhaar/nexora/internal/metrics"
	"github.com/felixgeelhaar/nexora/internal/report"
)

const contentSecurityPolicy = "default-src 'none'; style-src 'unsafe-inline'; img-src https: data:"

// Content is the report being previewed.
type Content struct {
	ProjectID int
	Title     string
	// HTML is the sanitized report body.
	HTML string
}

// page is Content rendered for serving.
type page struct {
	Content
	full   []byte
	digest string
	loaded time.Time
}

// Config holds server configuration.
type Config struct {
	// Address is the listen address, e.g. "127.0.0.1:8089".
	Address string

	// ShutdownTimeout bounds connection draining. Defaults to 10 seconds.
	ShutdownTimeout time.Duration

	// ReadTimeout defaults to 10 seconds.
	ReadTimeout time.Duration

	// WriteTimeout defaults to 10 seconds.
	WriteTimeout time.Duration

	// IdleTimeout defaults to 60 seconds.
	IdleTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics counts requests in m and serves handler at /metrics.
func WithMetrics(m *metrics.Metrics, handler http.Handler) Option {
	return func(s *Server) {
		s.metrics = m
		s.metricsHandler = handler
	}
}

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithChecker adds a dependency check to /health.
func WithChecker(c health.Checker) Option {
	return func(s *Server) { s.health.AddChecker(c) }
}

// Server serves a report preview.
type Server struct {
	httpServer      *http.Server
	router          *mux.Router
	health          *health.Manager
	metrics         *metrics.Metrics
	metricsHandler  http.Handler
	logger          *log.Logger
	shutdownTimeout time.Duration

	mu         sync.RWMutex
	page       *page
	inShutdown atomic.Bool
}

// New creates a server previewing content.
func New(content Content, cfg Config, opts ...Option) (*Server, error) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}

	s := &Server{
		health:          health.NewManager().WithTimeout(3 * time.Second),
		logger:          log.DefaultLogger(),
		shutdownTimeout: cfg.ShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.health.AddChecker(health.NewCheckFunc("report", s.checkReport))

	if err := s.SetContent(content); err != nil {
		return nil, err
	}

	s.router = mux.NewRouter()
	s.router.Use(s.observe, secureHeaders)
	s.router.HandleFunc("/", s.handlePage).Methods(http.MethodGet, http.MethodHead)
	s.router.HandleFunc("/report.html", s.handleFragment).Methods(http.MethodGet, http.MethodHead)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.metricsHandler != nil {
		s.router.Handle("/metrics", s.metricsHandler).Methods(http.MethodGet)
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s, nil
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetContent replaces the previewed report. A changed body is logged.
func (s *Server) SetContent(c Content) error {
	full, err := report.Page(c.Title, c.HTML)
	if err != nil {
		return err
	}
	p := &page{Content: c, full: []byte(full), digest: report.Digest(c.HTML), loaded: time.Now()}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.page != nil && s.page.digest != p.digest {
		s.logger.Info("report content changed", "project_id", c.ProjectID, "blake3", p.digest)
	}
	s.page = p
	return nil
}

func (s *Server) current() *page {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.page
}

// Start listens on the configured address and serves until Shutdown.
// It returns http.ErrServerClosed after a graceful shutdown.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Serve serves on an existing listener.
func (s *Server) Serve(l net.Listener) error {
	return s.httpServer.Serve(l)
}

// Shutdown stops accepting connections and drains open ones for at most
// the configured shutdown timeout. /health reports unhealthy meanwhile.
func (s *Server) Shutdown(ctx context.Context) error {
	s.inShutdown.Store(true)
	s.httpServer.SetKeepAlivesEnabled(false)

	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// IsShuttingDown returns whether the server is shutting down.
func (s *Server) IsShuttingDown() bool {
	return s.inShutdown.Load()
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	s.serveBody(w, r, func(p *page) []byte { return p.full })
}

func (s *Server) handleFragment(w http.ResponseWriter, r *http.Request) {
	s.serveBody(w, r, func(p *page) []byte { return []byte(p.HTML) })
}

func (s *Server) serveBody(w http.ResponseWriter, r *http.Request, body func(*page) []byte) {
	p := s.current()
	etag := `"` + p.digest + `"`

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	data := body(p)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(data)
}

// healthResponse is the /health body.
type healthResponse struct {
	Status    health.Status             `json:"status"`
	ProjectID int                       `json:"project_id"`
	Checks    map[string]*health.Result `json:"checks"`
	Timestamp time.Time                 `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    health.StatusUnhealthy,
		ProjectID: s.current().ProjectID,
		Checks:    map[string]*health.Result{},
		Timestamp: time.Now().UTC(),
	}
	if !s.IsShuttingDown() {
		rep := s.health.Run(r.Context())
		resp.Status = rep.Status
		resp.Checks = rep.Checks
	}

	code := http.StatusOK
	if resp.Status == health.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("failed to encode health response", "error", err)
	}
}

func (s *Server) checkReport(ctx context.Context) *health.Result {
	p := s.current()
	if p == nil {
		return health.Unhealthy("no report loaded")
	}
	r := health.Healthy(fmt.Sprintf("report for project %d loaded", p.ProjectID)).
		WithDetail("blake3", p.digest).
		WithDetail("bytes", len(p.HTML)).
		WithDetail("loaded_at", p.loaded.UTC().Format(time.RFC3339))
	if p.HTML == "" {
		r.Status = health.StatusDegraded
		r.Message = "report is empty"
	}
	return r
}

// statusRecorder captures the response code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// observe counts and logs each routed request.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tmpl, err := cur.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		if s.metrics != nil {
			s.metrics.PreviewRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		}
		s.logger.Debug("preview request", "method", r.Method, "route", route, "status", rec.status, "duration", time.Since(start))
	})
}

func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", contentSecurityPolicy)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}
