package api

import (
	"net/http"
	"time"

	"github.com/cuemby/beacon/pkg/health"
	"github.com/cuemby/beacon/pkg/types"
)

// view joins one worker snapshot with its derived status and load class
func (s *Server) view(w *types.Worker, now time.Time) types.WorkerView {
	return types.WorkerView{
		Worker:    *w,
		TierName:  w.Tier.String(),
		Status:    health.Status(w, now, s.offlineAfter),
		LoadClass: health.ClassifyLoad(float64(w.ReportedLoad)),
	}
}

func (s *Server) handleAdminWorkers(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	workers := s.store.Snapshot()

	views := make([]types.WorkerView, 0, len(workers))
	for _, wk := range workers {
		views = append(views, s.view(wk, now))
	}
	writeJSON(w, http.StatusOK, map[string]any{"workers": views})
}

// handleAdminStats computes the aggregate view in one pass over a single
// consistent snapshot. Nothing here is cached: two consecutive reads may
// disagree after a heartbeat or timeout in between.
func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	workers := s.store.Snapshot()

	stats := types.SystemStats{
		TotalWorkers: len(workers),
		Tiers:        make(map[string]types.TierStats, 3),
		GeneratedAt:  now,
	}

	type tierAgg struct {
		count int
		load  int
	}
	agg := make(map[types.Tier]*tierAgg, 3)
	for _, wk := range workers {
		a := agg[wk.Tier]
		if a == nil {
			a = &tierAgg{}
			agg[wk.Tier] = a
		}
		a.count++
		a.load += wk.ReportedLoad
		stats.TasksCompleted += wk.TasksCompleted
	}

	for _, tier := range []types.Tier{types.TierGPU, types.TierService, types.TierData} {
		ts := types.TierStats{}
		if a := agg[tier]; a != nil {
			ts.Count = a.count
			avg := float64(a.load) / float64(a.count)
			ts.AverageLoad = &avg
			ts.LoadClass = health.ClassifyLoad(avg)
		}
		stats.Tiers[tier.String()] = ts
	}

	stats.Health, stats.HealthReason = health.SystemHealth(workers, now, s.offlineAfter)
	writeJSON(w, http.StatusOK, stats)
}

type healthResponse struct {
	Health    types.SystemHealth `json:"system_health"`
	Reason    string             `json:"reason,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

func (s *Server) handleAdminHealth(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	state, reason := health.SystemHealth(s.store.Snapshot(), now, s.offlineAfter)
	writeJSON(w, http.StatusOK, healthResponse{
		Health:    state,
		Reason:    reason,
		Timestamp: now,
	})
}

func (s *Server) handleAdminCoordinators(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"coordinators": s.dir.List()})
}
