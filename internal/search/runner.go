// Package search orchestrates a search run: fan out queries to sources,
// funnel raw postings through normalization and dedup, score them, and
// persist results with run bookkeeping.
package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/jobscout/internal/ingest"
	"github.com/jonathan/jobscout/internal/llm"
	"github.com/jonathan/jobscout/internal/match"
	"github.com/jonathan/jobscout/internal/normalize"
	"github.com/jonathan/jobscout/internal/score"
	"github.com/jonathan/jobscout/internal/sources"
	"github.com/jonathan/jobscout/internal/types"
)

// ErrSearchNotFound is returned when the search or its profile is missing.
var ErrSearchNotFound = errors.New("search not found")

// Store is the persistence surface a run needs beyond posting ingestion.
type Store interface {
	GetSearch(ctx context.Context, id uuid.UUID) (*types.SearchConfig, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*types.CandidateProfile, error)
	MarkResultsSeen(ctx context.Context, searchID uuid.UUID) error
	GetResultAnalysis(ctx context.Context, searchID, postingID uuid.UUID) (*types.SearchResult, error)
	UpsertResult(ctx context.Context, r *types.SearchResult) error
	UpdatePosting(ctx context.Context, p *types.Posting) error
	CreateRun(ctx context.Context, searchID uuid.UUID, trigger string) (uuid.UUID, error)
	FinishRun(ctx context.Context, run *types.SearchRun) error
}

// Config bounds a run's work.
type Config struct {
	MaxLLMJobsPerRun   int // fresh LLM evaluations per run, 0 disables
	LLMConcurrency     int
	MaxResultsPerQuery int
}

// Runner executes search runs.
type Runner struct {
	store      Store
	merger     *ingest.Merger
	connectors map[types.Source]sources.Connector
	judge      *llm.FitJudge
	log        *zap.Logger
	cfg        Config
	now        func() time.Time

	mu      sync.Mutex
	running map[uuid.UUID]bool
}

// NewRunner wires a runner. judge may be nil-valued (no LLM); connectors
// missing for a configured source are skipped at run time.
func NewRunner(store Store, merger *ingest.Merger, connectors []sources.Connector, judge *llm.FitJudge, log *zap.Logger, cfg Config) *Runner {
	byName := make(map[types.Source]sources.Connector, len(connectors))
	for _, c := range connectors {
		byName[c.Source()] = c
	}
	if cfg.LLMConcurrency <= 0 {
		cfg.LLMConcurrency = 4
	}
	if cfg.MaxResultsPerQuery <= 0 {
		cfg.MaxResultsPerQuery = 100
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		store:      store,
		merger:     merger,
		connectors: byName,
		judge:      judge,
		log:        log,
		cfg:        cfg,
		now:        time.Now,
		running:    make(map[uuid.UUID]bool),
	}
}

// ErrRunInProgress is returned when a run for the same search is already
// executing in this process.
var ErrRunInProgress = errors.New("run already in progress for this search")

// candidate is one posting moving through the scoring pipeline.
type candidate struct {
	posting  *types.Posting
	match    match.Match
	existing *types.SearchResult
	eval     llm.FitEvaluation
	reused   bool
}

// Run executes one search end to end and returns its run record. Source
// failures are logged and skipped; only missing search data or a storage
// failure aborts the run.
func (r *Runner) Run(ctx context.Context, searchID uuid.UUID, trigger string) (*types.SearchRun, error) {
	r.mu.Lock()
	if r.running[searchID] {
		r.mu.Unlock()
		return nil, ErrRunInProgress
	}
	r.running[searchID] = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.running, searchID)
		r.mu.Unlock()
	}()

	search, err := r.store.GetSearch(ctx, searchID)
	if err != nil {
		return nil, err
	}
	if search == nil {
		return nil, ErrSearchNotFound
	}
	profile, err := r.store.GetProfile(ctx, search.ProfileID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: profile %s", ErrSearchNotFound, search.ProfileID)
	}

	runID, err := r.store.CreateRun(ctx, searchID, trigger)
	if err != nil {
		return nil, err
	}
	startedAt := r.now()
	run := &types.SearchRun{
		ID:        runID,
		SearchID:  searchID,
		Trigger:   trigger,
		StartedAt: startedAt,
		Status:    types.RunStatusRunning,
	}

	if err := r.execute(ctx, search, profile, run); err != nil {
		msg := err.Error()
		run.Status = types.RunStatusError
		run.Error = &msg
		if finishErr := r.store.FinishRun(ctx, run); finishErr != nil {
			r.log.Error("failed to record failed run", zap.Error(finishErr))
		}
		return run, err
	}

	run.Status = types.RunStatusOK
	if err := r.store.FinishRun(ctx, run); err != nil {
		return run, err
	}
	r.log.Info("search run finished",
		zap.String("search_id", searchID.String()),
		zap.String("trigger", trigger),
		zap.Int("total_found", run.TotalFound),
		zap.Int("new_found", run.NewFound),
		zap.Int("excluded", run.Excluded),
		zap.Int("fallback", run.Fallback))
	return run, nil
}

func (r *Runner) execute(ctx context.Context, search *types.SearchConfig, profile *types.CandidateProfile, run *types.SearchRun) error {
	// Anything not rediscovered by this run stops being new.
	if err := r.store.MarkResultsSeen(ctx, search.ID); err != nil {
		return err
	}

	raws := r.collect(ctx, search, profile)
	raws = dedupeRaw(raws)

	candidates, err := r.ingestAndMatch(ctx, raws, profile, run)
	if err != nil {
		return err
	}

	r.evaluate(ctx, profile, candidates, run)

	return r.persist(ctx, search, candidates, run)
}

// collect fans the run's queries out to every configured, supported source.
func (r *Runner) collect(ctx context.Context, search *types.SearchConfig, profile *types.CandidateProfile) []types.RawPosting {
	queries := BuildQueries(profile, search)
	location := queryLocation(search)

	var raws []types.RawPosting
	for _, source := range search.Sources {
		spec, ok := sources.Lookup(source)
		if !ok || spec.Status != sources.StatusSupported {
			continue
		}
		connector, ok := r.connectors[source]
		if !ok {
			continue
		}

		for _, keywords := range queries {
			batch, err := connector.FetchJobs(ctx, sources.Query{
				Keywords:        keywords,
				Location:        location,
				TimeWindowHours: search.TimeWindowHours,
				Limit:           r.cfg.MaxResultsPerQuery,
			})
			if err != nil {
				r.log.Warn("source query failed",
					zap.String("source", string(source)),
					zap.String("keywords", keywords),
					zap.Error(err))
				continue
			}
			raws = append(raws, batch...)
		}
	}
	return raws
}

func (r *Runner) ingestAndMatch(ctx context.Context, raws []types.RawPosting, profile *types.CandidateProfile, run *types.SearchRun) ([]*candidate, error) {
	observedAt := r.now()
	var candidates []*candidate
	seen := make(map[uuid.UUID]bool)

	for i := range raws {
		posting, _, err := r.merger.Ingest(ctx, raws[i], observedAt)
		if err != nil {
			if errors.Is(err, ingest.ErrUnidentifiable) {
				run.Skipped++
				continue
			}
			return nil, err
		}
		if seen[posting.ID] {
			continue
		}
		seen[posting.ID] = true

		if score.Excluded(posting.ApplicantCount) {
			run.Excluded++
			continue
		}

		candidates = append(candidates, &candidate{
			posting: posting,
			match:   match.Score(profile, posting),
		})
	}
	run.TotalFound = len(candidates)
	return candidates, nil
}

// evaluate attaches an LLM fit to each candidate. A stored analysis for
// unchanged posting content is reused without spending budget; fresh calls
// are capped per run and bounded in concurrency. Failures degrade to the
// deterministic fallback.
func (r *Runner) evaluate(ctx context.Context, profile *types.CandidateProfile, candidates []*candidate, run *types.SearchRun) {
	for _, c := range candidates {
		existing, err := r.store.GetResultAnalysis(ctx, run.SearchID, c.posting.ID)
		if err != nil {
			r.log.Warn("failed to load stored analysis", zap.Error(err))
			continue
		}
		c.existing = existing
		if existing != nil && existing.LLMFitScore != nil &&
			existing.AnalysisHash != nil && *existing.AnalysisHash == c.posting.ContentHash {
			c.eval = llm.FitEvaluation{
				Outcome:    llm.OutcomeOK,
				FitScore:   *existing.LLMFitScore,
				FitReasons: existing.FitReasons,
			}
			c.reused = true
		}
	}

	if r.judge == nil || !r.judge.Available() || r.cfg.MaxLLMJobsPerRun <= 0 {
		return
	}

	budget := r.cfg.MaxLLMJobsPerRun
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.LLMConcurrency)
	for _, c := range candidates {
		if c.reused {
			continue
		}
		if budget == 0 {
			break
		}
		budget--

		c := c
		g.Go(func() error {
			c.eval = r.judge.Evaluate(gctx, profile, c.posting, c.match.Percent)
			if c.eval.Outcome != llm.OutcomeOK {
				r.log.Debug("llm evaluation degraded",
					zap.String("posting_id", c.posting.ID.String()),
					zap.String("outcome", string(c.eval.Outcome)),
					zap.Error(c.eval.Err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Runner) persist(ctx context.Context, search *types.SearchConfig, candidates []*candidate, run *types.SearchRun) error {
	now := r.now()
	for _, c := range candidates {
		input := score.Input{
			MatchPercent:  c.match.Percent,
			RecencyScore:  score.Recency(c.posting.PostedAgeHours(now)),
			LocationScore: score.Location(c.posting.Location, c.posting.Modality, search.City, search.Country),
		}

		result := &types.SearchResult{
			SearchID:  search.ID,
			PostingID: c.posting.ID,
		}
		result.MatchPercent = c.match.Percent

		if c.eval.Outcome == llm.OutcomeOK {
			fit := c.eval.FitScore
			input.LLMFit = &fit
			result.LLMFitScore = &fit
			result.LLMStatus = types.LLMStatusOK
			result.FitReasons = c.eval.FitReasons
			hash := c.posting.ContentHash
			result.AnalysisHash = &hash

			if !c.reused && c.eval.Category != "" {
				c.posting.JobCategory = &c.eval.Category
				if c.eval.Subcategory != "" {
					c.posting.JobSubcategory = &c.eval.Subcategory
				}
				if err := r.store.UpdatePosting(ctx, c.posting); err != nil {
					r.log.Warn("failed to store llm category", zap.Error(err))
				}
			}
		} else {
			result.LLMStatus = types.LLMStatusFallback
			result.FitReasons = c.match.Reasons
			run.Fallback++
		}

		result.FinalScore = score.Compose(input)
		if err := r.store.UpsertResult(ctx, result); err != nil {
			return err
		}
		if c.existing == nil {
			run.NewFound++
		}
	}
	return nil
}

// dedupeRaw collapses raw postings that resolve to the same identity within
// one run, keeping the observation that carries more signal.
func dedupeRaw(raws []types.RawPosting) []types.RawPosting {
	byKey := make(map[string]int)
	var out []types.RawPosting
	for _, raw := range raws {
		key := rawIdentity(&raw)
		if key == "" {
			out = append(out, raw)
			continue
		}
		if idx, ok := byKey[key]; ok {
			if rawRichness(&raw) > rawRichness(&out[idx]) {
				out[idx] = raw
			}
			continue
		}
		byKey[key] = len(out)
		out = append(out, raw)
	}
	return out
}

func rawIdentity(raw *types.RawPosting) string {
	id := raw.ExternalJobID
	if id == "" && raw.Source == types.SourceLinkedInPublic {
		id = normalize.ExtractLinkedInJobID(raw.URL)
	}
	if id != "" {
		return string(raw.Source) + "::id::" + id
	}
	if u := normalize.CanonicalURL(raw.URL); u != "" {
		return string(raw.Source) + "::url::" + normalize.HashURL(u)
	}
	return ""
}

func rawRichness(raw *types.RawPosting) int {
	richness := len(raw.Description) + len(raw.CardText)
	if raw.ApplicantText != "" {
		richness += 1000
	}
	return richness
}
