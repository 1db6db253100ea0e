// Package api serves predictions and training over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mimir-aip/winequality/pkg/mlmodel"
	"github.com/mimir-aip/winequality/pkg/models"
)

// Trainer provides models for prediction and runs training on request
type Trainer interface {
	Model(ctx context.Context) (*mlmodel.Model, error)
	TryRun(ctx context.Context, trigger models.RunTrigger) (*models.TrainingRun, error)
}

// RunRegistry lists recorded training runs
type RunRegistry interface {
	ListRuns(limit int) ([]*models.TrainingRun, error)
	GetRun(id string) (*models.TrainingRun, error)
}

// Server provides HTTP API endpoints
type Server struct {
	trainer    Trainer
	runs       RunRegistry
	port       string
	router     *mux.Router
	logger     *slog.Logger
	httpServer *http.Server
}

// NewServer creates a new API server
func NewServer(trainer Trainer, runs RunRegistry, port string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		trainer: trainer,
		runs:    runs,
		port:    port,
		router:  mux.NewRouter(),
		logger:  logger.With("component", "http"),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.errorRecoveryMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/predict", s.handlePredict).Methods("POST")

	s.router.HandleFunc("/", s.handleForm).Methods("GET")
	s.router.HandleFunc("/", s.handleFormSubmit).Methods("POST")

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/runs", s.handleListRuns).Methods("GET")
	api.HandleFunc("/runs/{id}", s.handleGetRun).Methods("GET")
	api.HandleFunc("/train", s.handleTrain).Methods("POST")

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErrorResponse(w, http.StatusNotFound, "Not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
}

// Handler returns the routed handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured port and blocks until the server is shut down
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         ":" + s.port,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Minute, // POST /api/train answers once training has finished
		IdleTimeout:  60 * time.Second,
	}
	s.logger.Info("starting server", "port", s.port)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
