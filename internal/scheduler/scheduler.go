// Package scheduler runs active searches on a fixed interval.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/jonathan/jobscout/internal/db"
	"github.com/jonathan/jobscout/internal/types"
)

// RunFunc executes one search. It matches search.Runner.Run.
type RunFunc func(ctx context.Context, searchID uuid.UUID, trigger string) (*types.SearchRun, error)

// Store is the persistence surface the scheduler needs.
type Store interface {
	ListActiveSearches(ctx context.Context) ([]*types.SearchConfig, error)
	GetSchedulerState(ctx context.Context) (*db.SchedulerState, error)
	SaveSchedulerState(ctx context.Context, s *db.SchedulerState) error
	TouchSchedulerTick(ctx context.Context, at time.Time) error
}

// Scheduler periodically runs every active search. Searches within a tick
// run sequentially so a large search list cannot stampede the sources; a
// tick that is still running when the next fires is skipped.
type Scheduler struct {
	store           Store
	run             RunFunc
	log             *zap.Logger
	intervalMinutes int

	mu      sync.Mutex
	cron    *cron.Cron
	entryID cron.EntryID
	started bool

	ticking atomic.Bool
}

// New creates a scheduler. intervalMinutes must be at least 1.
func New(store Store, run RunFunc, log *zap.Logger, intervalMinutes int) *Scheduler {
	if intervalMinutes < 1 {
		intervalMinutes = 60
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		store:           store,
		run:             run,
		log:             log,
		intervalMinutes: intervalMinutes,
	}
}

// Start begins periodic execution and persists the running state. Starting
// an already started scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	c := cron.New()
	spec := fmt.Sprintf("@every %dm", s.intervalMinutes)
	entryID, err := c.AddFunc(spec, func() { s.Tick(context.Background()) })
	if err != nil {
		return fmt.Errorf("failed to schedule runs: %w", err)
	}
	c.Start()

	s.cron = c
	s.entryID = entryID
	s.started = true

	if err := s.saveState(ctx, true); err != nil {
		s.log.Warn("failed to persist scheduler state", zap.Error(err))
	}
	s.log.Info("scheduler started", zap.Int("interval_minutes", s.intervalMinutes))
	return nil
}

// Stop halts periodic execution. A tick already in flight finishes.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.cron.Stop()
	s.cron = nil
	s.started = false

	if err := s.saveState(ctx, false); err != nil {
		s.log.Warn("failed to persist scheduler state", zap.Error(err))
	}
	s.log.Info("scheduler stopped")
}

// Running reports whether the scheduler is started.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// IntervalMinutes returns the configured interval.
func (s *Scheduler) IntervalMinutes() int {
	return s.intervalMinutes
}

// Restore resumes the scheduler if it was running before the last shutdown.
func (s *Scheduler) Restore(ctx context.Context) error {
	state, err := s.store.GetSchedulerState(ctx)
	if err != nil {
		return err
	}
	if state != nil && state.Running {
		return s.Start(ctx)
	}
	return nil
}

// Tick runs every active search once, sequentially. Overlapping ticks are
// dropped.
func (s *Scheduler) Tick(ctx context.Context) {
	if !s.ticking.CompareAndSwap(false, true) {
		s.log.Warn("previous scheduler tick still running, skipping")
		return
	}
	defer s.ticking.Store(false)

	searches, err := s.store.ListActiveSearches(ctx)
	if err != nil {
		s.log.Error("failed to list active searches", zap.Error(err))
		return
	}

	for _, search := range searches {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.run(ctx, search.ID, types.RunTriggerScheduled); err != nil {
			s.log.Error("scheduled run failed",
				zap.String("search_id", search.ID.String()),
				zap.Error(err))
		}
	}

	if err := s.store.TouchSchedulerTick(ctx, time.Now()); err != nil {
		s.log.Warn("failed to record scheduler tick", zap.Error(err))
	}
}

func (s *Scheduler) saveState(ctx context.Context, running bool) error {
	state, err := s.store.GetSchedulerState(ctx)
	if err != nil || state == nil {
		state = &db.SchedulerState{}
	}
	state.Running = running
	state.IntervalMinutes = s.intervalMinutes
	return s.store.SaveSchedulerState(ctx, state)
}
