package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/cuemby/beacon/pkg/directory"
	"github.com/cuemby/beacon/pkg/log"
	"github.com/cuemby/beacon/pkg/metrics"
	"github.com/cuemby/beacon/pkg/registry"
	"github.com/cuemby/beacon/pkg/types"
	"github.com/rs/zerolog"
)

// Server is the HTTP registration and admin surface. It composes the worker
// store, health monitor and coordinator directory; it holds no state of its
// own beyond the mux.
type Server struct {
	store        *registry.Store
	dir          *directory.Directory
	offlineAfter time.Duration
	mux          *http.ServeMux
	logger       zerolog.Logger
}

// NewServer creates the API server
func NewServer(store *registry.Store, dir *directory.Directory, offlineAfter time.Duration) *Server {
	s := &Server{
		store:        store,
		dir:          dir,
		offlineAfter: offlineAfter,
		mux:          http.NewServeMux(),
		logger:       log.WithComponent("api"),
	}

	s.handle("/api/worker/register", http.MethodPost, s.handleWorkerRegister)
	s.handle("/api/worker/heartbeat", http.MethodPost, s.handleWorkerHeartbeat)
	s.handle("/api/edge/register", http.MethodPost, s.handleEdgeRegister)
	s.handle("/api/edge/heartbeat", http.MethodPost, s.handleEdgeHeartbeat)
	s.handle("/api/edge/remove", http.MethodPost, s.handleEdgeRemove)
	s.handle("/api/admin/workers", http.MethodGet, s.handleAdminWorkers)
	s.handle("/api/admin/stats", http.MethodGet, s.handleAdminStats)
	s.handle("/api/admin/health", http.MethodGet, s.handleAdminHealth)
	s.handle("/api/admin/coordinators", http.MethodGet, s.handleAdminCoordinators)
	s.handle("/api/admin/reap", http.MethodPost, s.handleAdminReap)
	s.handle("/health", http.MethodGet, s.handleLiveness)
	s.mux.Handle("/metrics", metrics.Handler())

	return s
}

// Handler returns the HTTP handler for embedding in other servers
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves the API until the listener fails
func (s *Server) Start(addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.logger.Info().Str("addr", addr).Msg("API listening")
	return server.ListenAndServe()
}

type registerRequest struct {
	WorkerID     string             `json:"worker_id"`
	Tier         string             `json:"tier"`
	Capabilities types.Capabilities `json:"capabilities"`
	Reregister   bool               `json:"reregister"`
}

func (s *Server) handleWorkerRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed registration payload")
		return
	}
	if req.WorkerID == "" {
		writeError(w, http.StatusBadRequest, "worker_id is required")
		return
	}
	tier, ok := types.ParseTier(req.Tier)
	if !ok {
		writeError(w, http.StatusBadRequest, "tier must be one of GPU, SERVICE, DATA")
		return
	}

	var (
		worker *types.Worker
		err    error
	)
	if req.Reregister {
		worker, err = s.store.Reregister(req.WorkerID, tier, req.Capabilities)
	} else {
		worker, err = s.store.Register(req.WorkerID, tier, req.Capabilities)
	}

	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, s.view(worker, time.Now()))
	case errors.Is(err, registry.ErrDuplicateWorker):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, registry.ErrTierMismatch):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, registry.ErrInvalidTier),
		errors.Is(err, registry.ErrInvalidCapabilities):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

type heartbeatRequest struct {
	WorkerID       string   `json:"worker_id"`
	Load           int      `json:"load"`
	TasksCompleted int64    `json:"tasks_completed"`
	Containers     []string `json:"containers"`
	Degraded       bool     `json:"degraded"`
}

type heartbeatResponse struct {
	Status             string `json:"status"`
	RegressionRejected bool   `json:"regression_rejected,omitempty"`
}

func (s *Server) handleWorkerHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req heartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed heartbeat payload")
		return
	}
	if req.WorkerID == "" {
		writeError(w, http.StatusBadRequest, "worker_id is required")
		return
	}

	_, err := s.store.Heartbeat(registry.HeartbeatUpdate{
		WorkerID:       req.WorkerID,
		Load:           req.Load,
		TasksCompleted: req.TasksCompleted,
		Containers:     req.Containers,
		Degraded:       req.Degraded,
	})

	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, heartbeatResponse{Status: "ok"})
	case errors.Is(err, registry.ErrRegressionRejected):
		// Non-fatal: the heartbeat applied except for the counter
		writeJSON(w, http.StatusOK, heartbeatResponse{Status: "ok", RegressionRejected: true})
	case errors.Is(err, registry.ErrUnknownWorker):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

type edgeRegisterRequest struct {
	// Legacy coordinator agents send their ID in worker_id
	CoordinatorID string `json:"coordinator_id"`
	WorkerID      string `json:"worker_id"`
	TunnelURL     string `json:"tunnel_url"`
	Role          string `json:"role"`
}

func (r edgeRegisterRequest) id() string {
	if r.CoordinatorID != "" {
		return r.CoordinatorID
	}
	return r.WorkerID
}

func (s *Server) handleEdgeRegister(w http.ResponseWriter, r *http.Request) {
	var req edgeRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed registration payload")
		return
	}
	if req.id() == "" || req.TunnelURL == "" {
		writeError(w, http.StatusBadRequest, "coordinator id and tunnel_url are required")
		return
	}

	coord, err := s.dir.Register(req.id(), req.TunnelURL, req.Role)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, coord)
	case errors.Is(err, directory.ErrDuplicateCoordinator):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

type edgeHeartbeatRequest struct {
	CoordinatorID string `json:"coordinator_id"`
	WorkerID      string `json:"worker_id"`
}

func (s *Server) handleEdgeHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req edgeHeartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed heartbeat payload")
		return
	}
	id := req.CoordinatorID
	if id == "" {
		id = req.WorkerID
	}
	if id == "" {
		writeError(w, http.StatusBadRequest, "coordinator id is required")
		return
	}

	err := s.dir.Touch(id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case errors.Is(err, directory.ErrUnknownCoordinator):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleEdgeRemove(w http.ResponseWriter, r *http.Request) {
	var req edgeHeartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed removal payload")
		return
	}
	id := req.CoordinatorID
	if id == "" {
		id = req.WorkerID
	}
	if id == "" {
		writeError(w, http.StatusBadRequest, "coordinator id is required")
		return
	}

	err := s.dir.Remove(id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
	case errors.Is(err, directory.ErrUnknownCoordinator):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

type reapRequest struct {
	OlderThanSeconds int64 `json:"older_than_seconds"`
}

type reapResponse struct {
	Removed []string `json:"removed"`
}

func (s *Server) handleAdminReap(w http.ResponseWriter, r *http.Request) {
	var req reapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed reap payload")
		return
	}
	if req.OlderThanSeconds <= 0 {
		writeError(w, http.StatusBadRequest, "older_than_seconds must be positive")
		return
	}

	cutoff := time.Now().Add(-time.Duration(req.OlderThanSeconds) * time.Second)
	removed := s.store.Reap(cutoff)
	if removed == nil {
		removed = []string{}
	}
	writeJSON(w, http.StatusOK, reapResponse{Removed: removed})
}

// handleLiveness always answers 200 while the process is up
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
