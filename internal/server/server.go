// Package server provides the HTTP REST API for the job search assistant.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/jobscout/internal/results"
	"github.com/jonathan/jobscout/internal/types"
)

// Store is the persistence surface the handlers use.
type Store interface {
	UpsertProfile(ctx context.Context, p *types.CandidateProfile) (*types.CandidateProfile, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*types.CandidateProfile, error)

	CreateSearch(ctx context.Context, s *types.SearchConfig) (*types.SearchConfig, error)
	GetSearch(ctx context.Context, id uuid.UUID) (*types.SearchConfig, error)
	SetSearchActive(ctx context.Context, id uuid.UUID, active bool) error

	ListResultRows(ctx context.Context, searchID uuid.UUID) ([]results.Row, error)
	SetResultChecked(ctx context.Context, resultID uuid.UUID, checked bool) error
	ClearResults(ctx context.Context, searchID uuid.UUID) (int64, error)
	ListRuns(ctx context.Context, searchID uuid.UUID, limit int) ([]*types.SearchRun, error)
}

// Runner executes search runs.
type Runner interface {
	Run(ctx context.Context, searchID uuid.UUID, trigger string) (*types.SearchRun, error)
}

// SchedulerControl is the scheduler surface exposed over HTTP.
type SchedulerControl interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context)
	Running() bool
	IntervalMinutes() int
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	store      Store
	runner     Runner
	sched      SchedulerControl
	log        *zap.Logger
	validate   *validator.Validate
}

// Config holds server configuration
type Config struct {
	Port int
}

// New creates a new server instance
func New(cfg Config, store Store, runner Runner, sched SchedulerControl, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		store:    store,
		runner:   runner,
		sched:    sched,
		log:      log,
		validate: validator.New(),
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	// Profile endpoints
	mux.HandleFunc("POST /profiles", s.handleUpsertProfile)
	mux.HandleFunc("GET /profiles/{id}", s.handleGetProfile)

	// Search endpoints
	mux.HandleFunc("POST /searches", s.handleCreateSearch)
	mux.HandleFunc("GET /searches/{id}", s.handleGetSearch)
	mux.HandleFunc("PATCH /searches/{id}/active", s.handleSetSearchActive)
	mux.HandleFunc("POST /searches/{id}/run", s.handleRunSearch)
	mux.HandleFunc("GET /searches/{id}/runs", s.handleListRuns)

	// Result endpoints
	mux.HandleFunc("GET /searches/{id}/results", s.handleListResults)
	mux.HandleFunc("GET /searches/{id}/facets", s.handleFacets)
	mux.HandleFunc("GET /searches/{id}/new-count", s.handleNewCount)
	mux.HandleFunc("DELETE /searches/{id}/results", s.handleClearResults)
	mux.HandleFunc("PATCH /results/{id}/check", s.handleCheckResult)

	// Scheduler endpoints
	mux.HandleFunc("POST /scheduler/start", s.handleSchedulerStart)
	mux.HandleFunc("POST /scheduler/stop", s.handleSchedulerStop)
	mux.HandleFunc("GET /scheduler/status", s.handleSchedulerStatus)

	return mux
}

// Start runs the server until an interrupt, then shuts down gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}
	s.log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("failed to encode JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// pathUUID parses the {id} path segment.
func (s *Server) pathUUID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid ID")
		return uuid.Nil, false
	}
	return id, true
}
