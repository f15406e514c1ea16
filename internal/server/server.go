// Package server exposes the HTTP control surface for a monitored task:
// status, captured logs, start/stop control, and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	uuidgen "github.com/taskmon/taskmon/internal/id/uuid"
	"github.com/taskmon/taskmon/internal/progress/sinks"
	"github.com/taskmon/taskmon/internal/runner"
)

// requestIDHeader carries the per-request identifier on every response.
const requestIDHeader = "X-Request-Id"

// TaskController is the slice of the process runner the API drives.
// *runner.ProcessRunner satisfies it.
type TaskController interface {
	Start(ctx context.Context) error
	Stop() error
	Status() runner.Status
	TaskID() uuid.UUID
	Logs() string
}

// Server wires HTTP handlers to the task controller and the status store.
type Server struct {
	router     chi.Router
	controller TaskController
	store      *sinks.StoreSink
	registry   *prometheus.Registry
	logger     *zap.Logger
	idGen      *uuidgen.Generator
}

// New constructs a Server with middleware and routes. The store and registry
// may be nil; the corresponding endpoints then serve empty data.
func New(
	controller TaskController,
	store *sinks.StoreSink,
	registry *prometheus.Registry,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		controller: controller,
		store:      store,
		registry:   registry,
		logger:     logger,
		idGen:      uuidgen.NewGenerator(),
	}

	r := chi.NewRouter()
	r.Use(s.loggingMiddleware)
	r.Use(recoverMiddleware)

	r.Get("/healthz", s.healthz)
	r.Get("/metrics", s.metrics())

	r.Route("/v1/task", func(r chi.Router) {
		r.Get("/status", s.taskStatus)
		r.Get("/logs", s.taskLogs)
		r.Post("/start", s.taskStart)
		r.Post("/stop", s.taskStop)
	})
	r.Get("/v1/tasks", s.taskList)

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) metrics() http.HandlerFunc {
	if s.registry == nil {
		return func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "metrics disabled", http.StatusNotFound)
		}
	}
	h := promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
	return h.ServeHTTP
}

type statusResponse struct {
	Status runner.Status       `json:"status"`
	TaskID string              `json:"task_id,omitempty"`
	Task   *sinks.TaskSnapshot `json:"task,omitempty"`
}

func (s *Server) taskStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{Status: s.controller.Status()}
	if id := s.controller.TaskID(); id != uuid.Nil {
		resp.TaskID = id.String()
		if s.store != nil {
			if snap, ok := s.store.Snapshot(id); ok {
				resp.Task = &snap
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) taskList(w http.ResponseWriter, _ *http.Request) {
	list := []sinks.TaskSnapshot{}
	if s.store != nil {
		list = s.store.List()
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": list})
}

func (s *Server) taskLogs(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(s.controller.Logs()))
}

func (s *Server) taskStart(w http.ResponseWriter, r *http.Request) {
	// The run outlives the request: the request context is cancelled as soon
	// as the handler returns, which would kill the child mid-flight.
	if err := s.controller.Start(context.WithoutCancel(r.Context())); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  string(runner.StatusRunning),
		"task_id": s.controller.TaskID().String(),
	})
}

func (s *Server) taskStop(w http.ResponseWriter, _ *http.Request) {
	if err := s.controller.Stop(); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "stopping"})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID, err := s.idGen.NewID()
		if err == nil {
			w.Header().Set(requestIDHeader, reqID)
		}
		next.ServeHTTP(w, r)
		s.logger.Debug("http request",
			zap.String("request_id", reqID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("dur", time.Since(start)))
	})
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
