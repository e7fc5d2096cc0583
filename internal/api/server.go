package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"qcalab/app"
	"qcalab/internal"
	"qcalab/internal/errors"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 32 << 20

// Server exposes the analysis service over HTTP
type Server struct {
	router  *chi.Mux
	service *app.AnalysisService
	health  func(ctx context.Context) error
	logger  *internal.Logger
}

// NewServer creates the HTTP API. health may be nil; when set it backs /healthz.
func NewServer(service *app.AnalysisService, health func(ctx context.Context) error, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	s := &Server{
		router:  chi.NewRouter(),
		service: service,
		health:  health,
		logger:  logger.With("api"),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(2 * time.Minute))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api/qca", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/convert", s.handleConvert)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Get("/runs/{id}/report", s.handleRunReport)
	})
}

// requestLogger logs one line per request through the application logger
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("[API] %s %s -> %d (%d bytes) in %.2fms [%s]",
			r.Method, r.URL.Path, ww.Status(), ww.BytesWritten(),
			float64(time.Since(start).Nanoseconds())/1e6, middleware.GetReqID(r.Context()))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("[API] failed to write response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("[API] %v", err)
	}
	s.writeJSON(w, status, map[string]errorBody{"error": {Code: errors.GetCode(err), Message: err.Error()}})
}

// decodeJSON reads a bounded JSON body, rejecting unknown fields
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.WithCode(errors.CodeInvalidInput, err)
	}
	return nil
}
