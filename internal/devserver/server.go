// Package devserver serves the output directory during development with
// live reload, optional brotli compression and a metrics endpoint.
package devserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/conneroisu/sitebuild/internal/config"
	siteerrors "github.com/conneroisu/sitebuild/internal/errors"
	"github.com/conneroisu/sitebuild/internal/livereload"
	"github.com/conneroisu/sitebuild/internal/logging"
	"github.com/conneroisu/sitebuild/internal/metrics"
)

// MetricsPath exposes the Prometheus registry.
const MetricsPath = "/__metrics"

const readHeaderTimeout = 10 * time.Second

// Options configures a Server.
type Options struct {
	Host     string
	Port     int
	Dir      string // directory served at /
	Compress bool
	Open     bool
}

// OptionsFromConfig maps the server section of cfg onto Options serving dir.
func OptionsFromConfig(cfg *config.Config, dir string) Options {
	return Options{
		Host:     cfg.Server.Host,
		Port:     cfg.Server.Port,
		Dir:      dir,
		Compress: cfg.Server.Compress,
		Open:     cfg.Server.Open,
	}
}

// Server is the development HTTP server.
type Server struct {
	opts    Options
	hub     *livereload.Hub
	metrics *metrics.Recorder
	logger  logging.Logger

	mu         sync.RWMutex
	httpServer *http.Server
	listener   net.Listener
	errs       chan error

	shutdownOnce sync.Once
}

// New creates a server. The hub must be running before Start is called.
func New(opts Options, hub *livereload.Hub, rec *metrics.Recorder, logger logging.Logger) *Server {
	return &Server{
		opts:    opts,
		hub:     hub,
		metrics: rec,
		logger:  logger.WithComponent("devserver"),
		errs:    make(chan error, 1),
	}
}

// Handler returns the routed handler without binding a listener.
func (s *Server) Handler() http.Handler {
	files := livereload.Middleware(http.FileServer(http.Dir(s.opts.Dir)))
	script := livereload.ScriptHandler()
	if s.opts.Compress {
		files = Compress(files)
		script = Compress(script)
	}

	mux := http.NewServeMux()
	mux.Handle(livereload.SocketPath, s.hub)
	mux.Handle(livereload.ScriptPath, script)
	mux.Handle(MetricsPath, s.metrics.Handler())
	mux.Handle("/", files)

	return s.logRequests(mux)
}

// Start binds the listener and serves in the background. A bind failure is
// returned here; later serve errors arrive on Err.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return siteerrors.NewEnhancedError(
			"Failed to start server",
			siteerrors.NewServerError(siteerrors.CodeBind, "listen on "+addr, err),
			siteerrors.ServerStartError(err, s.opts.Port),
		)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	s.mu.Lock()
	s.listener = ln
	s.httpServer = srv
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error(ctx, err, "Server stopped unexpectedly")
			s.errs <- siteerrors.NewServerError("SERVE", "serve "+addr, err)
		}
		close(s.errs)
	}()

	s.logger.Info(ctx, "Serving", "url", s.URL(), "dir", s.opts.Dir)

	if s.opts.Open {
		go s.openBrowser(ctx, s.URL())
	}
	return nil
}

// Err delivers an unexpected serve error and is closed when serving ends.
func (s *Server) Err() <-chan error {
	return s.errs
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// URL returns the address browsers should open.
func (s *Server) URL() string {
	addr := s.Addr()
	if addr == "" {
		return ""
	}
	_, port, _ := net.SplitHostPort(addr)
	host := s.opts.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.mu.RLock()
		srv := s.httpServer
		s.mu.RUnlock()
		if srv == nil {
			return
		}
		s.logger.Info(ctx, "Shutting down server")
		err = srv.Shutdown(ctx)
	})
	return err
}

func (s *Server) openBrowser(ctx context.Context, url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		s.logger.Warn(ctx, fmt.Errorf("unsupported platform %s", runtime.GOOS), "Failed to open browser")
		return
	}
	if err := cmd.Start(); err != nil {
		s.logger.Warn(ctx, err, "Failed to open browser", "url", url)
	}
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the hijacker for WebSockets.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == livereload.SocketPath {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug(r.Context(), "Request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).String(),
		)
	})
}
