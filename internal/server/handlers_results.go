package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/jonathan/jobscout/internal/results"
)

// parseQueryInt parses an integer query parameter with default and max values
func parseQueryInt(r *http.Request, key string, defaultValue, maxValue int) int {
	valStr := r.URL.Query().Get(key)
	if valStr == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val < 0 {
		return defaultValue
	}
	if maxValue > 0 && val > maxValue {
		return maxValue
	}
	return val
}

func parseFilters(r *http.Request) results.Filters {
	q := r.URL.Query()
	f := results.Filters{
		OnlyNew:          q.Get("only_new") == "true",
		Source:           q.Get("source"),
		Category:         q.Get("category"),
		Subcategory:      q.Get("subcategory"),
		Modality:         q.Get("modality"),
		LocationContains: q.Get("location"),
	}
	if v := q.Get("max_age_hours"); v != "" {
		if hours, err := strconv.ParseFloat(v, 64); err == nil && hours > 0 {
			f.MaxPostedAgeHours = &hours
		}
	}
	return f
}

// handleListResults returns a ranked, filtered page of a search's results.
func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r)
	if !ok {
		return
	}

	rows, err := s.store.ListResultRows(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}

	page := results.Select(rows,
		parseFilters(r),
		results.ParseSort(r.URL.Query().Get("sort")),
		parseQueryInt(r, "page", 1, 0),
		parseQueryInt(r, "page_size", 20, 100),
		time.Now())

	s.jsonResponse(w, http.StatusOK, renderPage(page))
}

// handleFacets returns facet counts for a search under the active filters.
func (s *Server) handleFacets(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r)
	if !ok {
		return
	}

	rows, err := s.store.ListResultRows(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, results.Facets(rows, parseFilters(r), time.Now()))
}

// handleNewCount returns the unread badge count for a search.
func (s *Server) handleNewCount(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r)
	if !ok {
		return
	}

	rows, err := s.store.ListResultRows(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]int{"new_count": results.NewCount(rows)})
}

// handleClearResults deletes every result of a search.
func (s *Server) handleClearResults(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r)
	if !ok {
		return
	}

	deleted, err := s.store.ClearResults(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

type checkResultRequest struct {
	Checked bool `json:"checked"`
}

// handleCheckResult flags a result as triaged (or clears the flag).
func (s *Server) handleCheckResult(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r)
	if !ok {
		return
	}
	var req checkResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.store.SetResultChecked(r.Context(), id, req.Checked); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]bool{"checked": req.Checked})
}

// resultView is the wire shape of one listing item.
type resultView struct {
	ID             string    `json:"id"`
	PostingID      string    `json:"posting_id"`
	Title          string    `json:"title"`
	Company        *string   `json:"company"`
	Location       *string   `json:"location"`
	URL            string    `json:"url"`
	Source         string    `json:"source"`
	Modality       string    `json:"modality"`
	EasyApply      bool      `json:"easy_apply"`
	ApplicantCount *int      `json:"applicant_count"`
	PostedAt       *string   `json:"posted_at"`
	Category       *string   `json:"job_category"`
	Subcategory    *string   `json:"job_subcategory"`
	MatchPercent   float64   `json:"match_percent"`
	LLMFitScore    *float64  `json:"llm_fit_score"`
	FinalScore     float64   `json:"final_score"`
	FitReasons     []string  `json:"fit_reasons"`
	LLMStatus      string    `json:"llm_status"`
	IsNew          bool      `json:"is_new"`
	Checked        bool      `json:"checked"`
	FirstSeenAt    time.Time `json:"first_seen_at"`
}

type pageView struct {
	Items      []resultView `json:"items"`
	Total      int          `json:"total"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalPages int          `json:"total_pages"`
	HasPrev    bool         `json:"has_prev"`
	HasNext    bool         `json:"has_next"`
}

func renderPage(page results.Page) pageView {
	items := make([]resultView, 0, len(page.Items))
	for _, row := range page.Items {
		v := resultView{
			ID:             row.Result.ID.String(),
			PostingID:      row.Posting.ID.String(),
			Title:          row.Posting.Title,
			Company:        row.Posting.Company,
			Location:       row.Posting.Location,
			URL:            row.Posting.CanonicalURL,
			Source:         string(row.Posting.Source),
			Modality:       string(row.Posting.Modality),
			EasyApply:      row.Posting.EasyApply,
			ApplicantCount: row.Posting.ApplicantCount,
			Category:       row.Posting.JobCategory,
			Subcategory:    row.Posting.JobSubcategory,
			MatchPercent:   row.Result.MatchPercent,
			LLMFitScore:    row.Result.LLMFitScore,
			FinalScore:     row.Result.FinalScore,
			FitReasons:     row.Result.FitReasons,
			LLMStatus:      row.Result.LLMStatus,
			IsNew:          row.Result.IsNew,
			Checked:        row.Result.Checked,
			FirstSeenAt:    row.Posting.FirstSeenAt,
		}
		if row.Posting.PostedAt != nil {
			formatted := row.Posting.PostedAt.UTC().Format(time.RFC3339)
			v.PostedAt = &formatted
		}
		items = append(items, v)
	}
	return pageView{
		Items:      items,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
		HasPrev:    page.HasPrev,
		HasNext:    page.HasNext,
	}
}
