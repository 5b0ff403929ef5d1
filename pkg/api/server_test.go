package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cuemby/beacon/pkg/directory"
	"github.com/cuemby/beacon/pkg/health"
	"github.com/cuemby/beacon/pkg/registry"
	"github.com/cuemby/beacon/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir, err := directory.Open(directory.Config{DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { dir.Close() })
	return NewServer(registry.NewStore(), dir, health.DefaultOfflineAfter)
}

func doJSON(t *testing.T, s *Server, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func registerPayload(id, tier string) map[string]any {
	caps := map[string]any{}
	switch tier {
	case "GPU":
		caps["gpu"] = map[string]any{"gpu_model": "a100", "vram_bytes": 1 << 30}
	case "SERVICE":
		caps["service"] = map[string]any{"services": []string{"ocr"}, "concurrency": 8}
	case "DATA":
		caps["data"] = map[string]any{"engines": []string{"postgres"}}
	}
	return map[string]any{"worker_id": id, "tier": tier, "capabilities": caps}
}

func TestWorkerRegister(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/worker/register", registerPayload("gpu-1", "GPU"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	view := decode[types.WorkerView](t, rec)
	assert.Equal(t, "gpu-1", view.ID)
	assert.Equal(t, "GPU", view.TierName)
	assert.Equal(t, types.WorkerHealthy, view.Status)
	assert.Equal(t, types.LoadNominal, view.LoadClass)
}

func TestWorkerRegisterErrors(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/worker/register", registerPayload("gpu-1", "GPU"))
	require.Equal(t, http.StatusCreated, rec.Code)

	tests := []struct {
		name     string
		payload  any
		expected int
	}{
		{
			name:     "duplicate ID",
			payload:  registerPayload("gpu-1", "GPU"),
			expected: http.StatusConflict,
		},
		{
			name:     "missing worker_id",
			payload:  map[string]any{"tier": "GPU"},
			expected: http.StatusBadRequest,
		},
		{
			name:     "unknown tier",
			payload:  map[string]any{"worker_id": "w2", "tier": "EDGE"},
			expected: http.StatusBadRequest,
		},
		{
			name: "capabilities for another tier",
			payload: map[string]any{
				"worker_id": "w3", "tier": "GPU",
				"capabilities": map[string]any{"service": map[string]any{"concurrency": 4}},
			},
			expected: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodPost, "/api/worker/register", tt.payload)
			assert.Equal(t, tt.expected, rec.Code, rec.Body.String())
		})
	}
}

func TestWorkerRegisterMalformedBody(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/worker/register", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWorkerReregister(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/worker/register", registerPayload("gpu-1", "GPU"))
	require.Equal(t, http.StatusCreated, rec.Code)
	first := decode[types.WorkerView](t, rec)

	payload := registerPayload("gpu-1", "GPU")
	payload["reregister"] = true
	rec = doJSON(t, s, http.MethodPost, "/api/worker/register", payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	again := decode[types.WorkerView](t, rec)
	assert.True(t, first.RegisteredAt.Equal(again.RegisteredAt), "re-registration keeps identity")

	// tier change under the same ID is rejected
	payload = registerPayload("gpu-1", "SERVICE")
	payload["reregister"] = true
	rec = doJSON(t, s, http.MethodPost, "/api/worker/register", payload)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestWorkerHeartbeat(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/worker/register", registerPayload("gpu-1", "GPU"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/worker/heartbeat", map[string]any{
		"worker_id": "gpu-1", "load": 30, "tasks_completed": 12,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", resp["status"])
	assert.NotContains(t, resp, "regression_rejected")
}

func TestWorkerHeartbeatUnknown(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/worker/heartbeat", map[string]any{"worker_id": "ghost"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWorkerHeartbeatRegressionFlagged(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/worker/register", registerPayload("gpu-1", "GPU"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/worker/heartbeat", map[string]any{
		"worker_id": "gpu-1", "tasks_completed": 100,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/worker/heartbeat", map[string]any{
		"worker_id": "gpu-1", "tasks_completed": 40, "load": 70,
	})
	require.Equal(t, http.StatusOK, rec.Code, "a regression is not a failed heartbeat")
	resp := decode[map[string]any](t, rec)
	assert.Equal(t, true, resp["regression_rejected"])
}

func TestAdminWorkers(t *testing.T) {
	s := newTestServer(t)

	for _, wc := range [][2]string{{"gpu-1", "GPU"}, {"svc-1", "SERVICE"}} {
		rec := doJSON(t, s, http.MethodPost, "/api/worker/register", registerPayload(wc[0], wc[1]))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, s, http.MethodGet, "/api/admin/workers", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[map[string][]types.WorkerView](t, rec)
	workers := resp["workers"]
	require.Len(t, workers, 2)
	assert.Equal(t, "gpu-1", workers[0].ID)
	assert.Equal(t, "SERVICE", workers[1].TierName)
	assert.Equal(t, types.WorkerHealthy, workers[0].Status)
}

func TestAdminStats(t *testing.T) {
	s := newTestServer(t)

	for _, wc := range [][2]string{{"gpu-1", "GPU"}, {"gpu-2", "GPU"}, {"svc-1", "SERVICE"}} {
		rec := doJSON(t, s, http.MethodPost, "/api/worker/register", registerPayload(wc[0], wc[1]))
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	for _, hb := range []map[string]any{
		{"worker_id": "gpu-1", "load": 40, "tasks_completed": 3},
		{"worker_id": "gpu-2", "load": 80, "tasks_completed": 7},
	} {
		rec := doJSON(t, s, http.MethodPost, "/api/worker/heartbeat", hb)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doJSON(t, s, http.MethodGet, "/api/admin/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[types.SystemStats](t, rec)

	assert.Equal(t, 3, stats.TotalWorkers)
	assert.Equal(t, int64(10), stats.TasksCompleted)
	assert.Equal(t, types.SystemHealthy, stats.Health)

	gpu := stats.Tiers["GPU"]
	require.NotNil(t, gpu.AverageLoad)
	assert.Equal(t, float64(60), *gpu.AverageLoad)
	assert.Equal(t, types.LoadModerate, gpu.LoadClass)

	// an empty tier reports presence, not a zero average
	data := stats.Tiers["DATA"]
	assert.Equal(t, 0, data.Count)
	assert.Nil(t, data.AverageLoad)
}

func TestAdminHealth(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/admin/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[map[string]any](t, rec)
	assert.Equal(t, "degraded", resp["system_health"])
	assert.Equal(t, "no workers registered", resp["reason"])

	rec = doJSON(t, s, http.MethodPost, "/api/worker/register", registerPayload("gpu-1", "GPU"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/admin/health", nil)
	resp = decode[map[string]any](t, rec)
	assert.Equal(t, "degraded", resp["system_health"])
	assert.Equal(t, "missing SERVICE tier", resp["reason"])

	rec = doJSON(t, s, http.MethodPost, "/api/worker/register", registerPayload("svc-1", "SERVICE"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/admin/health", nil)
	resp = decode[map[string]any](t, rec)
	assert.Equal(t, "healthy", resp["system_health"])
	assert.NotContains(t, resp, "reason")
}

func TestEdgeRegisterAndList(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/edge/register", map[string]any{
		"coordinator_id": "edge-1",
		"tunnel_url":     "https://edge-1.tunnel.example.com",
		"role":           "edge",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// legacy agents send worker_id instead
	rec = doJSON(t, s, http.MethodPost, "/api/edge/register", map[string]any{
		"worker_id":  "edge-2",
		"tunnel_url": "https://edge-2.tunnel.example.com",
		"role":       "edge",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/edge/register", map[string]any{
		"coordinator_id": "edge-1",
		"tunnel_url":     "https://other.example.com",
		"role":           "edge",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/admin/coordinators", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[map[string][]types.Coordinator](t, rec)
	require.Len(t, resp["coordinators"], 2)
	assert.Equal(t, "edge-1", resp["coordinators"][0].ID)
}

func TestEdgeHeartbeat(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/edge/heartbeat", map[string]any{"coordinator_id": "ghost"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/edge/register", map[string]any{
		"coordinator_id": "edge-1",
		"tunnel_url":     "https://edge-1.tunnel.example.com",
		"role":           "edge",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/edge/heartbeat", map[string]any{"coordinator_id": "edge-1"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEdgeRemove(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/edge/remove", map[string]any{"coordinator_id": "ghost"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/edge/register", map[string]any{
		"coordinator_id": "edge-1",
		"tunnel_url":     "https://edge-1.tunnel.example.com",
		"role":           "edge",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/edge/remove", map[string]any{"coordinator_id": "edge-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/admin/coordinators", nil)
	resp := decode[map[string][]types.Coordinator](t, rec)
	assert.Empty(t, resp["coordinators"])
}

func TestAdminReap(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/worker/register", registerPayload("gpu-1", "GPU"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/admin/reap", map[string]any{"older_than_seconds": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// a fresh worker survives a 1h cutoff
	rec = doJSON(t, s, http.MethodPost, "/api/admin/reap", map[string]any{"older_than_seconds": 3600})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[map[string][]string](t, rec)
	assert.Empty(t, resp["removed"])
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/worker/register", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/admin/workers", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestLiveness(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[map[string]any](t, rec)
	assert.Equal(t, "healthy", resp["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "beacon_")
}

// TestStatsConsistencyAfterTimeout walks the register/heartbeat/silence
// timeline through the HTTP surface with an aggressive offline threshold.
func TestStatsConsistencyAfterTimeout(t *testing.T) {
	dir, err := directory.Open(directory.Config{DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { dir.Close() })
	s := NewServer(registry.NewStore(), dir, 50*time.Millisecond)

	for _, wc := range [][2]string{{"gpu-1", "GPU"}, {"svc-1", "SERVICE"}} {
		rec := doJSON(t, s, http.MethodPost, "/api/worker/register", registerPayload(wc[0], wc[1]))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, s, http.MethodGet, "/api/admin/health", nil)
	resp := decode[map[string]any](t, rec)
	require.Equal(t, "healthy", resp["system_health"])

	time.Sleep(80 * time.Millisecond)

	rec = doJSON(t, s, http.MethodGet, "/api/admin/health", nil)
	resp = decode[map[string]any](t, rec)
	assert.Equal(t, "error", resp["system_health"], "all workers silent past the threshold")

	rec = doJSON(t, s, http.MethodGet, "/api/admin/workers", nil)
	views := decode[map[string][]types.WorkerView](t, rec)
	for _, v := range views["workers"] {
		assert.Equal(t, types.WorkerOffline, v.Status)
	}
}
