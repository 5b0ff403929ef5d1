package health

import (
	"fmt"
	"time"

	"github.com/cuemby/beacon/pkg/types"
)

const (
	// DefaultOfflineAfter is how long a worker may stay silent before it is
	// considered offline.
	DefaultOfflineAfter = 120 * time.Second

	// clockSkewTolerance bounds how far in the future a heartbeat timestamp
	// may sit before the record is treated as inconsistent.
	clockSkewTolerance = 5 * time.Second
)

// Status derives a worker's status from its snapshot and the current time.
// Offline detection takes precedence over a stale degraded flag.
func Status(w *types.Worker, now time.Time, offlineAfter time.Duration) types.WorkerStatus {
	if offlineAfter <= 0 {
		offlineAfter = DefaultOfflineAfter
	}
	if now.Sub(w.LastHeartbeatAt) >= offlineAfter {
		return types.WorkerOffline
	}
	if w.Degraded {
		return types.WorkerDegraded
	}
	return types.WorkerHealthy
}

// inconsistent reports whether a record carries an impossible timestamp
func inconsistent(w *types.Worker, now time.Time) bool {
	if w.RegisteredAt.IsZero() {
		return true
	}
	if w.LastHeartbeatAt.After(now.Add(clockSkewTolerance)) {
		return true
	}
	return w.LastHeartbeatAt.Before(w.RegisteredAt)
}

// SystemHealth derives the aggregate fleet health from a snapshot.
//
// Healthy requires at least one GPU worker, at least one SERVICE worker, and
// strictly more than half of all workers healthy. A missing required tier or
// a failed majority degrades the system; a non-empty fleet with zero healthy
// workers is an error. An empty fleet is degraded, not an error: no workers
// is a startup condition, not a fault.
func SystemHealth(workers []*types.Worker, now time.Time, offlineAfter time.Duration) (types.SystemHealth, string) {
	if len(workers) == 0 {
		return types.SystemDegraded, "no workers registered"
	}

	var healthy int
	tierPresent := make(map[types.Tier]bool)
	for _, w := range workers {
		if inconsistent(w, now) {
			return types.SystemError, fmt.Sprintf("inconsistent record for worker %s", w.ID)
		}
		tierPresent[w.Tier] = true
		if Status(w, now, offlineAfter) == types.WorkerHealthy {
			healthy++
		}
	}

	if healthy == 0 {
		return types.SystemError, "no healthy workers"
	}
	if !tierPresent[types.TierGPU] {
		return types.SystemDegraded, "missing GPU tier"
	}
	if !tierPresent[types.TierService] {
		return types.SystemDegraded, "missing SERVICE tier"
	}
	if healthy*2 <= len(workers) {
		return types.SystemDegraded,
			fmt.Sprintf("healthy majority not met (%d of %d)", healthy, len(workers))
	}
	return types.SystemHealthy, ""
}

// TierAverageLoad returns the mean reported load over workers of one tier.
// The second return is false when the tier has no workers: "no data" must
// never read as "idle".
func TierAverageLoad(workers []*types.Worker, tier types.Tier) (float64, bool) {
	var sum, n int
	for _, w := range workers {
		if w.Tier == tier {
			sum += w.ReportedLoad
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return float64(sum) / float64(n), true
}
