package server

import (
	"encoding/json"
	"net/http"

	"github.com/jonathan/jobscout/internal/types"
)

type upsertProfileRequest struct {
	CVKey              string                  `json:"cv_key" validate:"required"`
	Skills             []string                `json:"skills"`
	Experience         []types.ExperienceEntry `json:"experience"`
	Education          []string                `json:"education"`
	Languages          []string                `json:"languages"`
	TargetRoles        []string                `json:"target_roles"`
	Seniority          string                  `json:"seniority"`
	Industries         []string                `json:"industries"`
	RecommendedQueries []string                `json:"recommended_queries"`
}

// handleUpsertProfile stores or replaces a candidate profile by cv_key.
func (s *Server) handleUpsertProfile(w http.ResponseWriter, r *http.Request) {
	var req upsertProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	profile, err := s.store.UpsertProfile(r.Context(), &types.CandidateProfile{
		CVKey:              req.CVKey,
		Skills:             req.Skills,
		Experience:         req.Experience,
		Education:          req.Education,
		Languages:          req.Languages,
		TargetRoles:        req.TargetRoles,
		Seniority:          req.Seniority,
		Industries:         req.Industries,
		RecommendedQueries: req.RecommendedQueries,
	})
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, profile)
}

// handleGetProfile retrieves a profile by ID.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r)
	if !ok {
		return
	}

	profile, err := s.store.GetProfile(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if profile == nil {
		s.errorResponse(w, http.StatusNotFound, "Profile not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, profile)
}
