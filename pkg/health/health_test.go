package health

import (
	"math/rand"
	"testing"
	"time"

	"github.com/cuemby/beacon/pkg/types"
)

func worker(id string, tier types.Tier, lastBeat time.Time, degraded bool) *types.Worker {
	return &types.Worker{
		ID:              id,
		Tier:            tier,
		RegisteredAt:    lastBeat.Add(-time.Hour),
		LastHeartbeatAt: lastBeat,
		Degraded:        degraded,
	}
}

// TestStatus tests per-worker status derivation
func TestStatus(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		lastBeat time.Time
		degraded bool
		expected types.WorkerStatus
	}{
		{
			name:     "fresh heartbeat is healthy",
			lastBeat: now.Add(-60 * time.Second),
			expected: types.WorkerHealthy,
		},
		{
			name:     "silent for 125s is offline",
			lastBeat: now.Add(-125 * time.Second),
			expected: types.WorkerOffline,
		},
		{
			name:     "exactly at threshold is offline",
			lastBeat: now.Add(-120 * time.Second),
			expected: types.WorkerOffline,
		},
		{
			name:     "just under threshold is healthy",
			lastBeat: now.Add(-119 * time.Second),
			expected: types.WorkerHealthy,
		},
		{
			name:     "degraded flag set",
			lastBeat: now.Add(-10 * time.Second),
			degraded: true,
			expected: types.WorkerDegraded,
		},
		{
			name:     "offline takes precedence over stale degraded flag",
			lastBeat: now.Add(-300 * time.Second),
			degraded: true,
			expected: types.WorkerOffline,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := worker("w1", types.TierGPU, tt.lastBeat, tt.degraded)
			got := Status(w, now, DefaultOfflineAfter)
			if got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

// TestStatusScenario covers the register-then-wait timeline: healthy at
// t=60s, offline at t=125s
func TestStatusScenario(t *testing.T) {
	t0 := time.Now()
	w := worker("gpu-1", types.TierGPU, t0, false)
	w.ReportedLoad = 30

	if got := Status(w, t0.Add(60*time.Second), DefaultOfflineAfter); got != types.WorkerHealthy {
		t.Errorf("at t=60s expected healthy, got %s", got)
	}
	if got := Status(w, t0.Add(125*time.Second), DefaultOfflineAfter); got != types.WorkerOffline {
		t.Errorf("at t=125s expected offline, got %s", got)
	}
}

// TestSystemHealth tests the aggregate derivation
func TestSystemHealth(t *testing.T) {
	now := time.Now()
	fresh := now.Add(-10 * time.Second)
	stale := now.Add(-10 * time.Minute)

	tests := []struct {
		name           string
		workers        []*types.Worker
		expected       types.SystemHealth
		expectedReason string
	}{
		{
			name:           "empty fleet is degraded not error",
			workers:        nil,
			expected:       types.SystemDegraded,
			expectedReason: "no workers registered",
		},
		{
			name: "one healthy GPU, no SERVICE",
			workers: []*types.Worker{
				worker("gpu-1", types.TierGPU, fresh, false),
			},
			expected:       types.SystemDegraded,
			expectedReason: "missing SERVICE tier",
		},
		{
			name: "one healthy SERVICE, no GPU",
			workers: []*types.Worker{
				worker("svc-1", types.TierService, fresh, false),
			},
			expected:       types.SystemDegraded,
			expectedReason: "missing GPU tier",
		},
		{
			name: "both required tiers, all healthy",
			workers: []*types.Worker{
				worker("gpu-1", types.TierGPU, fresh, false),
				worker("svc-1", types.TierService, fresh, false),
			},
			expected: types.SystemHealthy,
		},
		{
			name: "majority fails with two offline of three",
			workers: []*types.Worker{
				worker("gpu-1", types.TierGPU, fresh, false),
				worker("svc-1", types.TierService, stale, false),
				worker("svc-2", types.TierService, stale, false),
			},
			expected: types.SystemDegraded,
		},
		{
			name: "exactly half healthy is not a majority",
			workers: []*types.Worker{
				worker("gpu-1", types.TierGPU, fresh, false),
				worker("svc-1", types.TierService, fresh, false),
				worker("svc-2", types.TierService, stale, false),
				worker("data-1", types.TierData, stale, false),
			},
			expected: types.SystemDegraded,
		},
		{
			name: "zero healthy is an error",
			workers: []*types.Worker{
				worker("gpu-1", types.TierGPU, stale, false),
				worker("svc-1", types.TierService, stale, false),
			},
			expected:       types.SystemError,
			expectedReason: "no healthy workers",
		},
		{
			name: "degraded workers count against the majority",
			workers: []*types.Worker{
				worker("gpu-1", types.TierGPU, fresh, false),
				worker("svc-1", types.TierService, fresh, true),
				worker("svc-2", types.TierService, fresh, true),
			},
			expected: types.SystemDegraded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := SystemHealth(tt.workers, now, DefaultOfflineAfter)
			if got != tt.expected {
				t.Errorf("expected %s, got %s (reason: %s)", tt.expected, got, reason)
			}
			if tt.expectedReason != "" && reason != tt.expectedReason {
				t.Errorf("expected reason %q, got %q", tt.expectedReason, reason)
			}
		})
	}
}

// TestSystemHealthInconsistentRecord tests that impossible timestamps
// surface as an error
func TestSystemHealthInconsistentRecord(t *testing.T) {
	now := time.Now()

	future := worker("gpu-1", types.TierGPU, now.Add(time.Minute), false)
	got, _ := SystemHealth([]*types.Worker{future}, now, DefaultOfflineAfter)
	if got != types.SystemError {
		t.Errorf("future heartbeat: expected error, got %s", got)
	}

	unregistered := &types.Worker{ID: "gpu-2", Tier: types.TierGPU, LastHeartbeatAt: now}
	got, _ = SystemHealth([]*types.Worker{unregistered}, now, DefaultOfflineAfter)
	if got != types.SystemError {
		t.Errorf("zero registered_at: expected error, got %s", got)
	}
}

// TestSystemHealthProperty checks the healthy invariant under randomized
// worker sets: healthy requires both required tiers present and a strict
// healthy majority.
func TestSystemHealthProperty(t *testing.T) {
	now := time.Now()
	rng := rand.New(rand.NewSource(42))
	tiers := []types.Tier{types.TierGPU, types.TierService, types.TierData}

	for i := 0; i < 500; i++ {
		n := rng.Intn(12)
		workers := make([]*types.Worker, 0, n)
		healthyCount := 0
		hasGPU, hasService := false, false

		for j := 0; j < n; j++ {
			tier := tiers[rng.Intn(len(tiers))]
			beat := now.Add(-time.Duration(rng.Intn(300)) * time.Second)
			degraded := rng.Intn(4) == 0
			w := worker("w", tier, beat, degraded)

			if Status(w, now, DefaultOfflineAfter) == types.WorkerHealthy {
				healthyCount++
			}
			switch tier {
			case types.TierGPU:
				hasGPU = true
			case types.TierService:
				hasService = true
			}
			workers = append(workers, w)
		}

		got, reason := SystemHealth(workers, now, DefaultOfflineAfter)
		shouldBeHealthy := n > 0 && hasGPU && hasService && healthyCount*2 > n
		if (got == types.SystemHealthy) != shouldBeHealthy {
			t.Fatalf("iteration %d: n=%d healthy=%d gpu=%v svc=%v: got %s (%s)",
				i, n, healthyCount, hasGPU, hasService, got, reason)
		}
	}
}

// TestTierAverageLoad distinguishes "no data" from "idle"
func TestTierAverageLoad(t *testing.T) {
	now := time.Now()
	w1 := worker("gpu-1", types.TierGPU, now, false)
	w1.ReportedLoad = 40
	w2 := worker("gpu-2", types.TierGPU, now, false)
	w2.ReportedLoad = 60
	workers := []*types.Worker{w1, w2}

	avg, ok := TierAverageLoad(workers, types.TierGPU)
	if !ok || avg != 50 {
		t.Errorf("expected (50, true), got (%v, %v)", avg, ok)
	}

	if _, ok := TierAverageLoad(workers, types.TierData); ok {
		t.Error("empty tier must report no data, not zero")
	}
}
