package directory

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cuemby/beacon/pkg/log"
	"github.com/cuemby/beacon/pkg/metrics"
	"github.com/cuemby/beacon/pkg/types"
	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"
)

var bucketCoordinators = []byte("coordinators")

// Config holds directory configuration
type Config struct {
	DataDir string

	// PersistInterval is the minimum gap between persisted refreshes of one
	// coordinator's last_seen. Touches inside the gap stay in memory.
	PersistInterval time.Duration

	// WriteBudget is the hard ceiling on persistent writes per day. Zero
	// means unlimited.
	WriteBudget int
}

// coordState is the in-memory authority for one coordinator. Its mutex gives
// the record single-writer semantics: operations on one coordinator are
// sequenced, different coordinators proceed in parallel.
type coordState struct {
	mu            sync.Mutex
	rec           types.Coordinator
	suspect       bool
	suspectSince  time.Time
	lastPersisted time.Time
}

// Directory is the quota-constrained persistent store of edge coordinators.
// bbolt holds one JSON record per coordinator; writes are minimized with a
// TTL strategy so coordinator heartbeats never translate one-to-one into
// store writes. In-memory state is authoritative between persists.
type Directory struct {
	db     *bolt.DB
	budget *writeBudget

	persistInterval time.Duration

	mu     sync.RWMutex
	coords map[string]*coordState
	order  []string

	logger zerolog.Logger
}

// Open opens (creating if needed) the directory database and loads the
// persisted coordinator records.
func Open(cfg Config) (*Directory, error) {
	if cfg.PersistInterval <= 0 {
		cfg.PersistInterval = 10 * time.Minute
	}

	dbPath := filepath.Join(cfg.DataDir, "beacon.db")
	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCoordinators)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	d := &Directory{
		db:              db,
		budget:          newWriteBudget(cfg.WriteBudget, time.Now()),
		persistInterval: cfg.PersistInterval,
		coords:          make(map[string]*coordState),
		logger:          log.WithComponent("directory"),
	}

	if err := d.load(); err != nil {
		db.Close()
		return nil, err
	}

	metrics.CoordinatorsTotal.Set(float64(len(d.order)))
	return d, nil
}

// load restores coordinator records from disk into memory
func (d *Directory) load() error {
	var recs []types.Coordinator
	err := d.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCoordinators)
		return b.ForEach(func(k, v []byte) error {
			var rec types.Coordinator
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("corrupt coordinator record %s: %w", k, err)
			}
			recs = append(recs, rec)
			return nil
		})
	})
	if err != nil {
		return err
	}

	sort.Slice(recs, func(i, j int) bool {
		if recs[i].RegisteredAt.Equal(recs[j].RegisteredAt) {
			return recs[i].ID < recs[j].ID
		}
		return recs[i].RegisteredAt.Before(recs[j].RegisteredAt)
	})

	for _, rec := range recs {
		d.coords[rec.ID] = &coordState{rec: rec, lastPersisted: rec.LastSeen}
		d.order = append(d.order, rec.ID)
	}
	return nil
}

// Close closes the database
func (d *Directory) Close() error {
	return d.db.Close()
}

// Register persists a coordinator record. Registering an existing ID with
// the same tunnel URL and role is a refresh; a conflicting endpoint is
// rejected. When the write budget is spent the record still registers in
// memory and persistence is skipped.
func (d *Directory) Register(id, tunnelURL, role string) (*types.Coordinator, error) {
	now := time.Now()

	d.mu.Lock()
	st, exists := d.coords[id]
	if !exists {
		st = &coordState{
			rec: types.Coordinator{
				ID:           id,
				TunnelURL:    tunnelURL,
				Role:         role,
				RegisteredAt: now,
				LastSeen:     now,
			},
		}
		d.coords[id] = st
		d.order = append(d.order, id)
		metrics.CoordinatorsTotal.Set(float64(len(d.order)))
	}
	d.mu.Unlock()

	st.mu.Lock()
	defer st.mu.Unlock()

	if exists {
		if st.rec.TunnelURL != tunnelURL || st.rec.Role != role {
			return nil, ErrDuplicateCoordinator
		}
		st.rec.LastSeen = now
		d.clearSuspectLocked(st)
		snap := st.rec
		snap.Suspect = st.suspect
		return &snap, nil
	}

	d.persistLocked(st, now, true)

	d.logger.Info().
		Str("coordinator_id", id).
		Str("tunnel_url", tunnelURL).
		Str("role", role).
		Msg("coordinator registered")

	snap := st.rec
	return &snap, nil
}

// Touch refreshes a coordinator's last_seen. The refresh is always applied in
// memory; it is persisted only when the persist interval has elapsed and the
// write budget allows, so heartbeats never hit the quota directly.
func (d *Directory) Touch(id string) error {
	d.mu.RLock()
	st, exists := d.coords[id]
	d.mu.RUnlock()
	if !exists {
		return ErrUnknownCoordinator
	}

	now := time.Now()
	st.mu.Lock()
	defer st.mu.Unlock()

	st.rec.LastSeen = now
	d.clearSuspectLocked(st)
	d.persistLocked(st, now, false)
	return nil
}

// persistLocked writes the record if allowed. force bypasses the interval
// check (new registrations), never the budget. Callers hold st.mu.
func (d *Directory) persistLocked(st *coordState, now time.Time, force bool) {
	if !force && now.Sub(st.lastPersisted) < d.persistInterval {
		metrics.DirectoryWriteSkipsTotal.WithLabelValues("interval").Inc()
		return
	}

	if err := d.budget.take(now); err != nil {
		metrics.DirectoryWriteSkipsTotal.WithLabelValues("budget").Inc()
		d.logger.Warn().
			Str("coordinator_id", st.rec.ID).
			Msg("write budget exhausted, skipping persist")
		return
	}

	rec := st.rec
	err := d.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCoordinators)
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put([]byte(rec.ID), data)
	})
	if err != nil {
		d.logger.Error().Err(err).
			Str("coordinator_id", rec.ID).
			Msg("failed to persist coordinator")
		return
	}

	st.lastPersisted = now
	metrics.DirectoryWritesTotal.Inc()
}

// Remove deletes a coordinator from memory and disk. The delete counts
// against the write budget; on exhaustion the record is removed from memory
// only and the persisted record expires via its stale last_seen.
func (d *Directory) Remove(id string) error {
	d.mu.Lock()
	_, exists := d.coords[id]
	if !exists {
		d.mu.Unlock()
		return ErrUnknownCoordinator
	}
	delete(d.coords, id)
	for i, oid := range d.order {
		if oid == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	metrics.CoordinatorsTotal.Set(float64(len(d.order)))
	d.mu.Unlock()

	if err := d.budget.take(time.Now()); err != nil {
		d.logger.Warn().
			Str("coordinator_id", id).
			Msg("write budget exhausted, record removed from memory only")
		return nil
	}

	err := d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCoordinators).Delete([]byte(id))
	})
	if err != nil {
		return fmt.Errorf("failed to delete coordinator: %w", err)
	}
	metrics.DirectoryWritesTotal.Inc()

	d.logger.Info().Str("coordinator_id", id).Msg("coordinator removed")
	return nil
}

// Get returns a snapshot of one coordinator
func (d *Directory) Get(id string) (*types.Coordinator, error) {
	d.mu.RLock()
	st, exists := d.coords[id]
	d.mu.RUnlock()
	if !exists {
		return nil, ErrUnknownCoordinator
	}

	st.mu.Lock()
	snap := st.rec
	snap.Suspect = st.suspect
	st.mu.Unlock()
	return &snap, nil
}

// List returns coordinator snapshots in registration order
func (d *Directory) List() []*types.Coordinator {
	d.mu.RLock()
	states := make([]*coordState, 0, len(d.order))
	for _, id := range d.order {
		if st, ok := d.coords[id]; ok {
			states = append(states, st)
		}
	}
	d.mu.RUnlock()

	out := make([]*types.Coordinator, 0, len(states))
	for _, st := range states {
		st.mu.Lock()
		snap := st.rec
		snap.Suspect = st.suspect
		st.mu.Unlock()
		out = append(out, &snap)
	}
	return out
}

// MarkSuspect flags a coordinator as recently unresponsive. In-memory only,
// never persisted; the mark steers routing away until last_seen refreshes.
func (d *Directory) MarkSuspect(id string) {
	d.mu.RLock()
	st, exists := d.coords[id]
	d.mu.RUnlock()
	if !exists {
		return
	}

	st.mu.Lock()
	if !st.suspect {
		st.suspect = true
		st.suspectSince = time.Now()
		metrics.CoordinatorsSuspect.Inc()
		d.logger.Warn().Str("coordinator_id", id).Msg("coordinator marked suspect")
	}
	st.mu.Unlock()
}

// ClearSuspect removes the suspect mark
func (d *Directory) ClearSuspect(id string) {
	d.mu.RLock()
	st, exists := d.coords[id]
	d.mu.RUnlock()
	if !exists {
		return
	}

	st.mu.Lock()
	st.rec.LastSeen = time.Now()
	d.clearSuspectLocked(st)
	st.mu.Unlock()
}

// clearSuspectLocked drops the mark once last_seen has moved past the moment
// the coordinator went suspect. Callers hold st.mu.
func (d *Directory) clearSuspectLocked(st *coordState) {
	if st.suspect && st.rec.LastSeen.After(st.suspectSince) {
		st.suspect = false
		metrics.CoordinatorsSuspect.Dec()
		d.logger.Info().Str("coordinator_id", st.rec.ID).Msg("coordinator suspect mark cleared")
	}
}

// BudgetRemaining reports how many persistent writes are left in the current
// window. Negative means unlimited.
func (d *Directory) BudgetRemaining() int {
	return d.budget.remaining(time.Now())
}
