package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/jobscout/internal/search"
	"github.com/jonathan/jobscout/internal/sources"
	"github.com/jonathan/jobscout/internal/types"
)

type createSearchRequest struct {
	ProfileID       uuid.UUID `json:"profile_id" validate:"required"`
	Country         *string   `json:"country"`
	City            *string   `json:"city"`
	TimeWindowHours int       `json:"time_window_hours" validate:"min=0,max=720"`
	Keywords        []string  `json:"keywords"`
	Sources         []string  `json:"sources"`
}

// handleCreateSearch registers a new search context.
func (s *Server) handleCreateSearch(w http.ResponseWriter, r *http.Request) {
	var req createSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	profile, err := s.store.GetProfile(r.Context(), req.ProfileID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if profile == nil {
		s.errorResponse(w, http.StatusNotFound, "Profile not found")
		return
	}

	if req.TimeWindowHours == 0 {
		req.TimeWindowHours = 24
	}

	created, err := s.store.CreateSearch(r.Context(), &types.SearchConfig{
		ProfileID:       req.ProfileID,
		Country:         req.Country,
		City:            req.City,
		TimeWindowHours: req.TimeWindowHours,
		Keywords:        req.Keywords,
		Sources:         sources.NormalizeSources(req.Sources),
		Active:          true,
	})
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusCreated, created)
}

// handleGetSearch retrieves a search config.
func (s *Server) handleGetSearch(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r)
	if !ok {
		return
	}

	cfg, err := s.store.GetSearch(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if cfg == nil {
		s.errorResponse(w, http.StatusNotFound, "Search not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, cfg)
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

// handleSetSearchActive toggles whether the scheduler picks a search up.
func (s *Server) handleSetSearchActive(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r)
	if !ok {
		return
	}
	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.store.SetSearchActive(r.Context(), id, req.Active); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]bool{"active": req.Active})
}

// handleRunSearch triggers a manual run and waits for it to finish.
func (s *Server) handleRunSearch(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r)
	if !ok {
		return
	}

	run, err := s.runner.Run(r.Context(), id, types.RunTriggerManual)
	if err != nil {
		switch {
		case errors.Is(err, search.ErrSearchNotFound):
			s.errorResponse(w, http.StatusNotFound, "Search not found")
		case errors.Is(err, search.ErrRunInProgress):
			s.errorResponse(w, http.StatusConflict, "A run is already in progress for this search")
		default:
			s.errorResponse(w, http.StatusInternalServerError, "Run failed: "+err.Error())
		}
		return
	}
	s.jsonResponse(w, http.StatusOK, run)
}

// handleListRuns lists recent runs of a search.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r)
	if !ok {
		return
	}
	limit := parseQueryInt(r, "limit", 20, 100)

	runs, err := s.store.ListRuns(r.Context(), id, limit)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"runs": runs})
}
