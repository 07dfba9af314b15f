// Package server provides the HTTP server for the healthz endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cscheib/mount-status-monitor/internal/monitor"
)

// SnapshotSource returns the state published by the latest tick.
type SnapshotSource interface {
	Snapshot() (monitor.Snapshot, bool)
}

// Server provides the healthz and metrics HTTP endpoints.
type Server struct {
	source  SnapshotSource
	version string
	logger  *slog.Logger
	server  *http.Server
	addr    net.Addr
}

// New creates a new Server instance. A nil metrics handler leaves /metrics
// unrouted.
func New(source SnapshotSource, metrics http.Handler, port int, version string, logger *slog.Logger) *Server {
	s := &Server{
		source:  source,
		version: version,
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/healthz", func(r chi.Router) {
		r.Get("/live", s.handleLiveness)
		r.Get("/ready", s.handleReadiness)
		r.Get("/status", s.handleStatus)
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Start binds the listening socket and serves requests in the background.
// A bind failure is returned directly.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.server.Addr, err)
	}
	s.addr = ln.Addr()

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing purposes.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// MountStatusResponse represents the status of a single mount.
type MountStatusResponse struct {
	Path         string `json:"path"`
	Status       string `json:"status"`
	Alive        bool   `json:"alive"`
	ExitCode     int    `json:"exit_code,omitempty"`
	Signal       int    `json:"signal,omitempty"`
	RunningSince string `json:"running_since,omitempty"`
}

// StatusResponse represents the overall status response.
type StatusResponse struct {
	Status    string                `json:"status"`
	Version   string                `json:"version,omitempty"`
	Timestamp string                `json:"timestamp"`
	LastTick  string                `json:"last_tick,omitempty"`
	Total     int                   `json:"total"`
	Dead      int                   `json:"dead"`
	Mounts    []MountStatusResponse `json:"mounts"`
}

// handleLiveness answers 200 while the process can serve requests. Dead
// mounts are reported by readiness, never by liveness.
func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	s.logger.Debug("healthz request", "endpoint", "/healthz/live", "status", http.StatusOK, "result", "alive")
	s.writeJSON(w, http.StatusOK, StatusResponse{
		Status:    "alive",
		Version:   s.version,
		Timestamp: time.Now().Format(time.RFC3339),
		Mounts:    []MountStatusResponse{},
	})
}

// handleReadiness returns 200 only once a tick has completed with every
// mount alive, and 503 otherwise.
func (s *Server) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	response, healthy := s.buildResponse(false)
	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	s.logger.Debug("healthz request", "endpoint", "/healthz/ready", "status", code, "result", response.Status)
	s.writeJSON(w, code, response)
}

// handleStatus responds with the detailed status of every mount, using the
// same status code as readiness.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	response, healthy := s.buildResponse(true)
	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	s.logger.Debug("healthz request", "endpoint", "/healthz/status", "status", code, "result", response.Status)
	s.writeJSON(w, code, response)
}

// buildResponse reports "unknown" until the first tick has been published.
func (s *Server) buildResponse(detailed bool) (StatusResponse, bool) {
	response := StatusResponse{
		Status:    "unknown",
		Version:   s.version,
		Timestamp: time.Now().Format(time.RFC3339),
		Mounts:    []MountStatusResponse{},
	}

	snap, ok := s.source.Snapshot()
	if !ok {
		return response, false
	}

	healthy := snap.Summary.Dead == 0
	response.Status = "healthy"
	if !healthy {
		response.Status = "unhealthy"
	}
	response.LastTick = snap.Time.Format(time.RFC3339)
	response.Total = snap.Summary.Total
	response.Dead = snap.Summary.Dead

	if detailed {
		for _, m := range snap.Mounts {
			entry := MountStatusResponse{
				Path:     m.Path,
				Status:   m.Status,
				Alive:    m.Alive,
				ExitCode: m.ExitCode,
				Signal:   m.Signal,
			}
			if !m.RunningSince.IsZero() {
				entry.RunningSince = m.RunningSince.Format(time.RFC3339)
			}
			response.Mounts = append(response.Mounts, entry)
		}
	}
	return response, healthy
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode healthz response", "error", err)
	}
}
