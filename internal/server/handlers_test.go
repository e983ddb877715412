package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jobscout/internal/results"
	"github.com/jonathan/jobscout/internal/search"
	"github.com/jonathan/jobscout/internal/types"
)

type fakeStore struct {
	profiles map[uuid.UUID]*types.CandidateProfile
	searches map[uuid.UUID]*types.SearchConfig
	rows     map[uuid.UUID][]results.Row
	checked  map[uuid.UUID]bool
	cleared  int64
}

func newStore() *fakeStore {
	return &fakeStore{
		profiles: map[uuid.UUID]*types.CandidateProfile{},
		searches: map[uuid.UUID]*types.SearchConfig{},
		rows:     map[uuid.UUID][]results.Row{},
		checked:  map[uuid.UUID]bool{},
	}
}

func (s *fakeStore) UpsertProfile(_ context.Context, p *types.CandidateProfile) (*types.CandidateProfile, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s.profiles[p.ID] = p
	return p, nil
}

func (s *fakeStore) GetProfile(_ context.Context, id uuid.UUID) (*types.CandidateProfile, error) {
	return s.profiles[id], nil
}

func (s *fakeStore) CreateSearch(_ context.Context, cfg *types.SearchConfig) (*types.SearchConfig, error) {
	cfg.ID = uuid.New()
	cfg.CreatedAt = time.Now()
	s.searches[cfg.ID] = cfg
	return cfg, nil
}

func (s *fakeStore) GetSearch(_ context.Context, id uuid.UUID) (*types.SearchConfig, error) {
	return s.searches[id], nil
}

func (s *fakeStore) SetSearchActive(_ context.Context, id uuid.UUID, active bool) error {
	if cfg, ok := s.searches[id]; ok {
		cfg.Active = active
	}
	return nil
}

func (s *fakeStore) ListResultRows(_ context.Context, searchID uuid.UUID) ([]results.Row, error) {
	return s.rows[searchID], nil
}

func (s *fakeStore) SetResultChecked(_ context.Context, resultID uuid.UUID, checked bool) error {
	s.checked[resultID] = checked
	return nil
}

func (s *fakeStore) ClearResults(_ context.Context, searchID uuid.UUID) (int64, error) {
	n := int64(len(s.rows[searchID]))
	delete(s.rows, searchID)
	s.cleared += n
	return n, nil
}

func (s *fakeStore) ListRuns(_ context.Context, searchID uuid.UUID, limit int) ([]*types.SearchRun, error) {
	return []*types.SearchRun{{SearchID: searchID, Status: types.RunStatusOK}}, nil
}

type fakeRunner struct {
	err error
	run *types.SearchRun
}

func (r *fakeRunner) Run(_ context.Context, searchID uuid.UUID, trigger string) (*types.SearchRun, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.run != nil {
		return r.run, nil
	}
	return &types.SearchRun{SearchID: searchID, Trigger: trigger, Status: types.RunStatusOK}, nil
}

type fakeSched struct {
	running bool
}

func (s *fakeSched) Start(context.Context) error { s.running = true; return nil }
func (s *fakeSched) Stop(context.Context)        { s.running = false }
func (s *fakeSched) Running() bool               { return s.running }
func (s *fakeSched) IntervalMinutes() int        { return 60 }

type fixture struct {
	store  *fakeStore
	runner *fakeRunner
	sched  *fakeSched
	srv    *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newStore()
	runner := &fakeRunner{}
	sched := &fakeSched{}
	s := New(Config{Port: 0}, store, runner, sched, nil)
	srv := httptest.NewServer(s.routes())
	t.Cleanup(srv.Close)
	return &fixture{store: store, runner: runner, sched: sched, srv: srv}
}

func (fx *fixture) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, fx.srv.URL+path, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func seedRows(store *fakeStore, searchID uuid.UUID, n int) []results.Row {
	var rows []results.Row
	for i := 0; i < n; i++ {
		cat := "Engineering"
		rows = append(rows, results.Row{
			Result: types.SearchResult{
				ID:         uuid.New(),
				SearchID:   searchID,
				FinalScore: float64(10 * i),
				IsNew:      i%2 == 0,
				LLMStatus:  types.LLMStatusFallback,
			},
			Posting: types.Posting{
				ID:          uuid.New(),
				Source:      types.SourceLinkedInPublic,
				Title:       "Engineer",
				JobCategory: &cat,
				FirstSeenAt: time.Now().Add(-time.Duration(i) * time.Hour),
			},
		})
	}
	store.rows[searchID] = rows
	return rows
}

func TestHandleHealth(t *testing.T) {
	fx := newFixture(t)
	resp, body := fx.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestHandleUpsertProfile(t *testing.T) {
	fx := newFixture(t)

	resp, body := fx.do(t, http.MethodPost, "/profiles", map[string]any{
		"cv_key": "cv-2026",
		"skills": []string{"Go", "SQL"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["id"])
	assert.Equal(t, "cv-2026", body["cv_key"])

	t.Run("missing cv_key rejected", func(t *testing.T) {
		resp, _ := fx.do(t, http.MethodPost, "/profiles", map[string]any{"skills": []string{"Go"}})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestHandleCreateSearch(t *testing.T) {
	fx := newFixture(t)
	profile := &types.CandidateProfile{ID: uuid.New(), CVKey: "cv"}
	fx.store.profiles[profile.ID] = profile

	resp, _ := fx.do(t, http.MethodPost, "/searches", map[string]any{
		"profile_id": profile.ID,
		"city":       "Santiago",
		"sources":    []string{"linkedin_public"},
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Len(t, fx.store.searches, 1)
	for _, cfg := range fx.store.searches {
		assert.Equal(t, 24, cfg.TimeWindowHours)
		assert.True(t, cfg.Active)
		assert.Equal(t, []types.Source{types.SourceLinkedInPublic}, cfg.Sources)
	}

	t.Run("unknown profile", func(t *testing.T) {
		resp, _ := fx.do(t, http.MethodPost, "/searches", map[string]any{"profile_id": uuid.New()})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestHandleRunSearch(t *testing.T) {
	fx := newFixture(t)
	id := uuid.New()

	resp, body := fx.do(t, http.MethodPost, "/searches/"+id.String()+"/run", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, types.RunStatusOK, body["status"])

	t.Run("not found", func(t *testing.T) {
		fx.runner.err = search.ErrSearchNotFound
		resp, _ := fx.do(t, http.MethodPost, "/searches/"+id.String()+"/run", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("already running", func(t *testing.T) {
		fx.runner.err = search.ErrRunInProgress
		resp, _ := fx.do(t, http.MethodPost, "/searches/"+id.String()+"/run", nil)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("bad id", func(t *testing.T) {
		resp, _ := fx.do(t, http.MethodPost, "/searches/not-a-uuid/run", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestHandleListResults(t *testing.T) {
	fx := newFixture(t)
	searchID := uuid.New()
	seedRows(fx.store, searchID, 7)

	resp, body := fx.do(t, http.MethodGet, "/searches/"+searchID.String()+"/results?sort=best_fit&page_size=5", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(7), body["total"])
	items := body["items"].([]any)
	require.Len(t, items, 5)
	first := items[0].(map[string]any)
	assert.Equal(t, float64(60), first["final_score"])
	assert.Equal(t, true, body["has_next"])

	t.Run("only_new filter", func(t *testing.T) {
		resp, body := fx.do(t, http.MethodGet, "/searches/"+searchID.String()+"/results?only_new=true", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(4), body["total"])
	})
}

func TestHandleFacets(t *testing.T) {
	fx := newFixture(t)
	searchID := uuid.New()
	seedRows(fx.store, searchID, 3)

	resp, body := fx.do(t, http.MethodGet, "/searches/"+searchID.String()+"/facets", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	sources := body["sources"].(map[string]any)
	assert.Equal(t, float64(3), sources["linkedin_public"])
	categories := body["categories"].(map[string]any)
	assert.Equal(t, float64(3), categories["Engineering"])
}

func TestHandleNewCount(t *testing.T) {
	fx := newFixture(t)
	searchID := uuid.New()
	seedRows(fx.store, searchID, 4)

	resp, body := fx.do(t, http.MethodGet, "/searches/"+searchID.String()+"/new-count", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["new_count"])
}

func TestHandleClearResults(t *testing.T) {
	fx := newFixture(t)
	searchID := uuid.New()
	seedRows(fx.store, searchID, 3)

	resp, body := fx.do(t, http.MethodDelete, "/searches/"+searchID.String()+"/results", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), body["deleted"])
	assert.Empty(t, fx.store.rows[searchID])
}

func TestHandleCheckResult(t *testing.T) {
	fx := newFixture(t)
	resultID := uuid.New()

	resp, _ := fx.do(t, http.MethodPatch, "/results/"+resultID.String()+"/check", map[string]any{"checked": true})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, fx.store.checked[resultID])
}

func TestSchedulerEndpoints(t *testing.T) {
	fx := newFixture(t)

	resp, body := fx.do(t, http.MethodGet, "/scheduler/status", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["running"])

	resp, body = fx.do(t, http.MethodPost, "/scheduler/start", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["running"])
	assert.Equal(t, float64(60), body["interval_minutes"])

	resp, body = fx.do(t, http.MethodPost, "/scheduler/stop", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["running"])
	assert.False(t, fx.sched.running)
}
