// Package status exposes the progress aggregate over HTTP for external
// polling during a batch run.
package status

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhada/appraisal-extractor/internal/entity"
)

// ProgressSource yields the current snapshot. Satisfied by scheduler.Tracker.
type ProgressSource interface {
	Current() entity.ProgressSnapshot
}

// Server serves /progress and /healthz.
type Server struct {
	src    ProgressSource
	logger *slog.Logger
	http   *http.Server
}

func NewServer(addr string, src ProgressSource, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{src: src, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/progress", s.handleProgress)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start serves in the background. Errors other than a clean shutdown are
// logged, not fatal: the endpoint is a reporting aid.
func (s *Server) Start() {
	go func() {
		s.logger.Info("status.listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("status.serve_error", "error", err)
		}
	}()
}

// Close stops the listener.
func (s *Server) Close() error {
	return s.http.Close()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleProgress(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.src.Current()); err != nil {
		s.logger.Warn("status.encode_error", "error", err)
	}
}
