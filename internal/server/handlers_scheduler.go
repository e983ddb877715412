package server

import "net/http"

// handleSchedulerStart turns on periodic runs.
func (s *Server) handleSchedulerStart(w http.ResponseWriter, r *http.Request) {
	if err := s.sched.Start(r.Context()); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to start scheduler: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"running":          true,
		"interval_minutes": s.sched.IntervalMinutes(),
	})
}

// handleSchedulerStop turns off periodic runs.
func (s *Server) handleSchedulerStop(w http.ResponseWriter, r *http.Request) {
	s.sched.Stop(r.Context())
	s.jsonResponse(w, http.StatusOK, map[string]any{"running": false})
}

// handleSchedulerStatus reports whether periodic runs are on.
func (s *Server) handleSchedulerStatus(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"running":          s.sched.Running(),
		"interval_minutes": s.sched.IntervalMinutes(),
	})
}
