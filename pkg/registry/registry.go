package registry

import (
	"sync"
	"time"

	"github.com/cuemby/beacon/pkg/health"
	"github.com/cuemby/beacon/pkg/log"
	"github.com/cuemby/beacon/pkg/metrics"
	"github.com/cuemby/beacon/pkg/types"
	"github.com/rs/zerolog"
)

// entry pairs a worker record with its own lock so heartbeats for different
// workers never serialize against each other. The store lock only guards the
// map and registration order.
type entry struct {
	mu sync.Mutex
	w  *types.Worker
}

// Store is the in-memory, concurrency-safe worker table. It is the single
// source of truth for registration and heartbeat data. Records are volatile:
// workers re-register after a process restart.
type Store struct {
	mu      sync.RWMutex
	workers map[string]*entry
	order   []string // worker IDs in registration order

	logger zerolog.Logger
}

// NewStore creates an empty worker store
func NewStore() *Store {
	return &Store{
		workers: make(map[string]*entry),
		logger:  log.WithComponent("registry"),
	}
}

// Register creates a new worker record. Fails with ErrDuplicateWorker when
// the ID already exists; re-registration is a distinct operation, never a
// silent overwrite.
func (s *Store) Register(id string, tier types.Tier, caps types.Capabilities) (*types.Worker, error) {
	if !tier.Valid() {
		return nil, ErrInvalidTier
	}
	if !caps.MatchesTier(tier) {
		return nil, ErrInvalidCapabilities
	}

	now := time.Now()
	w := &types.Worker{
		ID:              id,
		Tier:            tier,
		Capabilities:    caps,
		RegisteredAt:    now,
		LastHeartbeatAt: now,
	}

	s.mu.Lock()
	if _, exists := s.workers[id]; exists {
		s.mu.Unlock()
		return nil, ErrDuplicateWorker
	}
	s.workers[id] = &entry{w: w}
	s.order = append(s.order, id)
	s.mu.Unlock()

	metrics.RegistrationsTotal.WithLabelValues(tier.String()).Inc()
	s.logger.Info().
		Str("worker_id", id).
		Str("tier", tier.String()).
		Msg("worker registered")

	return w.Clone(), nil
}

// Reregister performs an idempotent capability update for an existing worker,
// preserving RegisteredAt and TasksCompleted. A new worker ID is created when
// absent (expected after a process restart on the worker side). Tier remains
// immutable: a mismatch is rejected.
func (s *Store) Reregister(id string, tier types.Tier, caps types.Capabilities) (*types.Worker, error) {
	if !tier.Valid() {
		return nil, ErrInvalidTier
	}
	if !caps.MatchesTier(tier) {
		return nil, ErrInvalidCapabilities
	}

	s.mu.RLock()
	e, exists := s.workers[id]
	s.mu.RUnlock()

	if !exists {
		return s.Register(id, tier, caps)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.w.Tier != tier {
		return nil, ErrTierMismatch
	}
	e.w.Capabilities = caps
	e.w.LastHeartbeatAt = time.Now()

	s.logger.Info().
		Str("worker_id", id).
		Str("tier", tier.String()).
		Msg("worker re-registered")

	return e.w.Clone(), nil
}

// HeartbeatUpdate carries the mutable fields a worker reports periodically
type HeartbeatUpdate struct {
	WorkerID       string
	Load           int
	TasksCompleted int64
	Containers     []string
	Degraded       bool
}

// Heartbeat applies a worker's periodic report as one atomic unit. Concurrent
// readers never observe a partial update. A regressed tasks_completed value
// returns ErrRegressionRejected with the counter untouched while the rest of
// the update still applies.
func (s *Store) Heartbeat(u HeartbeatUpdate) (*types.Worker, error) {
	s.mu.RLock()
	e, exists := s.workers[u.WorkerID]
	s.mu.RUnlock()

	if !exists {
		return nil, ErrUnknownWorker
	}

	load := u.Load
	if load < 0 {
		load = 0
	} else if load > 100 {
		load = 100
	}

	e.mu.Lock()
	e.w.LastHeartbeatAt = time.Now()
	e.w.ReportedLoad = load
	e.w.Degraded = u.Degraded
	if u.Containers != nil {
		e.w.AssignedContainers = append([]string(nil), u.Containers...)
	}

	var regressed bool
	if u.TasksCompleted >= e.w.TasksCompleted {
		e.w.TasksCompleted = u.TasksCompleted
	} else {
		regressed = true
	}
	snap := e.w.Clone()
	e.mu.Unlock()

	metrics.HeartbeatsTotal.WithLabelValues(snap.Tier.String()).Inc()
	if regressed {
		metrics.RegressionsTotal.Inc()
		s.logger.Warn().
			Str("worker_id", u.WorkerID).
			Int64("reported", u.TasksCompleted).
			Int64("stored", snap.TasksCompleted).
			Msg("tasks_completed regression rejected")
		return snap, ErrRegressionRejected
	}

	return snap, nil
}

// Get returns a snapshot of one worker
func (s *Store) Get(id string) (*types.Worker, error) {
	s.mu.RLock()
	e, exists := s.workers[id]
	s.mu.RUnlock()

	if !exists {
		return nil, ErrUnknownWorker
	}

	e.mu.Lock()
	snap := e.w.Clone()
	e.mu.Unlock()
	return snap, nil
}

// ListFilter narrows a listing. Nil fields match everything. Now and
// OfflineAfter feed the status derivation; zero values take the defaults.
type ListFilter struct {
	Tier         *types.Tier
	Status       *types.WorkerStatus
	Now          time.Time
	OfflineAfter time.Duration
}

// List returns worker snapshots in registration order. The status filter is
// evaluated through pkg/health at call time, not from a stored field.
func (s *Store) List(f ListFilter) []*types.Worker {
	now := f.Now
	if now.IsZero() {
		now = time.Now()
	}
	offlineAfter := f.OfflineAfter
	if offlineAfter == 0 {
		offlineAfter = health.DefaultOfflineAfter
	}

	snaps := s.Snapshot()
	out := make([]*types.Worker, 0, len(snaps))
	for _, w := range snaps {
		if f.Tier != nil && w.Tier != *f.Tier {
			continue
		}
		if f.Status != nil && health.Status(w, now, offlineAfter) != *f.Status {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Snapshot returns all workers in registration order. Each record is cloned
// under its own lock, so no partial heartbeat is ever visible.
func (s *Store) Snapshot() []*types.Worker {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.order))
	for _, id := range s.order {
		if e, ok := s.workers[id]; ok {
			entries = append(entries, e)
		}
	}
	s.mu.RUnlock()

	out := make([]*types.Worker, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.w.Clone())
		e.mu.Unlock()
	}
	return out
}

// Len returns the number of registered workers
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.workers)
}

// Reap removes workers whose last heartbeat precedes the cutoff and returns
// their IDs. Administrative: nothing in the store calls this on a timer.
func (s *Store) Reap(olderThan time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	kept := s.order[:0]
	for _, id := range s.order {
		e, ok := s.workers[id]
		if !ok {
			continue
		}
		e.mu.Lock()
		stale := e.w.LastHeartbeatAt.Before(olderThan)
		e.mu.Unlock()

		if stale {
			delete(s.workers, id)
			removed = append(removed, id)
		} else {
			kept = append(kept, id)
		}
	}
	s.order = kept

	if len(removed) > 0 {
		s.logger.Info().
			Int("count", len(removed)).
			Time("older_than", olderThan).
			Msg("reaped absent workers")
	}
	return removed
}
