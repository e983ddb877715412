package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jobscout/internal/db"
	"github.com/jonathan/jobscout/internal/types"
)

type fakeStore struct {
	mu       sync.Mutex
	searches []*types.SearchConfig
	state    db.SchedulerState
	ticks    int
}

func (s *fakeStore) ListActiveSearches(context.Context) ([]*types.SearchConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searches, nil
}

func (s *fakeStore) GetSchedulerState(context.Context) (*db.SchedulerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := s.state
	return &cp, nil
}

func (s *fakeStore) SaveSchedulerState(_ context.Context, state *db.SchedulerState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = *state
	return nil
}

func (s *fakeStore) TouchSchedulerTick(context.Context, time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks++
	return nil
}

func search(id uuid.UUID) *types.SearchConfig {
	return &types.SearchConfig{ID: id, Active: true}
}

func TestTick_RunsEveryActiveSearch(t *testing.T) {
	store := &fakeStore{searches: []*types.SearchConfig{search(uuid.New()), search(uuid.New())}}

	var mu sync.Mutex
	var ran []uuid.UUID
	run := func(_ context.Context, id uuid.UUID, trigger string) (*types.SearchRun, error) {
		mu.Lock()
		defer mu.Unlock()
		ran = append(ran, id)
		assert.Equal(t, types.RunTriggerScheduled, trigger)
		return &types.SearchRun{}, nil
	}

	s := New(store, run, nil, 60)
	s.Tick(context.Background())

	assert.Len(t, ran, 2)
	assert.Equal(t, 1, store.ticks)
}

func TestTick_ContinuesAfterRunFailure(t *testing.T) {
	store := &fakeStore{searches: []*types.SearchConfig{search(uuid.New()), search(uuid.New())}}

	var calls int
	run := func(context.Context, uuid.UUID, string) (*types.SearchRun, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("source exploded")
		}
		return &types.SearchRun{}, nil
	}

	s := New(store, run, nil, 60)
	s.Tick(context.Background())

	assert.Equal(t, 2, calls)
}

func TestTick_OverlappingTickSkipped(t *testing.T) {
	store := &fakeStore{searches: []*types.SearchConfig{search(uuid.New())}}

	started := make(chan struct{})
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex
	run := func(context.Context, uuid.UUID, string) (*types.SearchRun, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		close(started)
		<-release
		return &types.SearchRun{}, nil
	}

	s := New(store, run, nil, 60)
	go s.Tick(context.Background())
	<-started

	// Second tick while the first is blocked inside run.
	s.Tick(context.Background())
	close(release)

	// Give the first tick time to finish.
	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return store.ticks == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestStartStop(t *testing.T) {
	store := &fakeStore{}
	s := New(store, func(context.Context, uuid.UUID, string) (*types.SearchRun, error) {
		return &types.SearchRun{}, nil
	}, nil, 60)

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.Running())
	assert.True(t, store.state.Running)
	assert.Equal(t, 60, store.state.IntervalMinutes)

	// Idempotent start.
	require.NoError(t, s.Start(context.Background()))

	s.Stop(context.Background())
	assert.False(t, s.Running())
	assert.False(t, store.state.Running)

	// Idempotent stop.
	s.Stop(context.Background())
}

func TestRestore(t *testing.T) {
	t.Run("resumes when previously running", func(t *testing.T) {
		store := &fakeStore{state: db.SchedulerState{Running: true, IntervalMinutes: 30}}
		s := New(store, func(context.Context, uuid.UUID, string) (*types.SearchRun, error) {
			return &types.SearchRun{}, nil
		}, nil, 30)

		require.NoError(t, s.Restore(context.Background()))
		assert.True(t, s.Running())
		s.Stop(context.Background())
	})

	t.Run("stays stopped otherwise", func(t *testing.T) {
		store := &fakeStore{}
		s := New(store, nil, nil, 30)

		require.NoError(t, s.Restore(context.Background()))
		assert.False(t, s.Running())
	})
}

func TestNew_ClampsInterval(t *testing.T) {
	s := New(&fakeStore{}, nil, nil, 0)
	assert.Equal(t, 60, s.IntervalMinutes())
}
