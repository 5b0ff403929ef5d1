package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cuemby/beacon/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCoordinator stands in for the server side of the fleet protocol
type fakeCoordinator struct {
	registrations int32
	heartbeats    int32
	rejectNext    int32 // heartbeats to answer with 404
	lastLoad      int32
	lastTasks     int64
}

func (f *fakeCoordinator) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/worker/register", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.registrations, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"worker_id": "gpu-1", "tier": "GPU"})
	})
	mux.HandleFunc("/api/worker/heartbeat", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Load           int   `json:"load"`
			TasksCompleted int64 `json:"tasks_completed"`
		}
		json.NewDecoder(r.Body).Decode(&req)

		if atomic.AddInt32(&f.rejectNext, -1) >= 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "unknown worker"})
			return
		}
		atomic.AddInt32(&f.heartbeats, 1)
		atomic.StoreInt32(&f.lastLoad, int32(req.Load))
		atomic.StoreInt64(&f.lastTasks, req.TasksCompleted)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	return mux
}

func startAgent(t *testing.T, fc *fakeCoordinator, interval time.Duration) *Agent {
	t.Helper()
	srv := httptest.NewServer(fc.handler())
	t.Cleanup(srv.Close)

	a, err := New(Config{
		WorkerID:   "gpu-1",
		Tier:       types.TierGPU,
		ServerAddr: srv.URL,
		Interval:   interval,
	})
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))
	t.Cleanup(a.Stop)
	return a
}

func TestNewValidation(t *testing.T) {
	_, err := New(Config{Tier: types.TierGPU})
	assert.Error(t, err, "worker id required")

	_, err = New(Config{WorkerID: "w1", Tier: types.Tier(9)})
	assert.Error(t, err, "tier must be valid")
}

func TestJitteredTinyInterval(t *testing.T) {
	a, err := New(Config{
		WorkerID:   "gpu-1",
		Tier:       types.TierGPU,
		ServerAddr: "localhost:8080",
		Interval:   5 * time.Nanosecond,
	})
	require.NoError(t, err)

	// an interval with no room for jitter must pass through, not panic
	assert.Equal(t, 5*time.Nanosecond, a.jittered())
}

func TestAgentRegistersAndHeartbeats(t *testing.T) {
	fc := &fakeCoordinator{rejectNext: -1 << 20}
	a := startAgent(t, fc, 20*time.Millisecond)

	a.SetLoad(55)
	a.TaskDone()
	a.TaskDone()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&fc.heartbeats) >= 2
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, int32(1), atomic.LoadInt32(&fc.registrations))
	assert.Equal(t, int32(55), atomic.LoadInt32(&fc.lastLoad))
	assert.Equal(t, int64(2), atomic.LoadInt64(&fc.lastTasks))
}

func TestAgentReregistersOnUnknownWorker(t *testing.T) {
	fc := &fakeCoordinator{}
	atomic.StoreInt32(&fc.rejectNext, 1)
	startAgent(t, fc, 20*time.Millisecond)

	// the rejected heartbeat triggers one extra registration, then beats resume
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&fc.heartbeats) >= 1
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, int32(2), atomic.LoadInt32(&fc.registrations))
}

func TestAgentStopHaltsHeartbeats(t *testing.T) {
	fc := &fakeCoordinator{rejectNext: -1 << 20}
	a := startAgent(t, fc, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&fc.heartbeats) >= 1
	}, 2*time.Second, 5*time.Millisecond)

	a.Stop()
	after := atomic.LoadInt32(&fc.heartbeats)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&fc.heartbeats))
}
