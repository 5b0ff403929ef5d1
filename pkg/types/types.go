package types

import (
	"time"
)

// Tier classifies a worker by the workload class it serves
type Tier int

const (
	// TierGPU runs model inference on GPU hardware
	TierGPU Tier = 1

	// TierService runs stateless document-processing services
	TierService Tier = 2

	// TierData runs storage-backed data services
	TierData Tier = 3
)

// String returns the canonical name used on the wire and in logs
func (t Tier) String() string {
	switch t {
	case TierGPU:
		return "GPU"
	case TierService:
		return "SERVICE"
	case TierData:
		return "DATA"
	default:
		return "UNKNOWN"
	}
}

// ParseTier maps a wire name to a Tier
func ParseTier(s string) (Tier, bool) {
	switch s {
	case "GPU":
		return TierGPU, true
	case "SERVICE":
		return TierService, true
	case "DATA":
		return TierData, true
	default:
		return 0, false
	}
}

// Valid reports whether t is one of the three fixed tiers
func (t Tier) Valid() bool {
	return t == TierGPU || t == TierService || t == TierData
}

// WorkerStatus is derived from a worker snapshot and the current time,
// never stored
type WorkerStatus string

const (
	WorkerHealthy  WorkerStatus = "healthy"
	WorkerDegraded WorkerStatus = "degraded"
	WorkerOffline  WorkerStatus = "offline"
)

// SystemHealth is the aggregate health of the whole fleet
type SystemHealth string

const (
	SystemHealthy  SystemHealth = "healthy"
	SystemDegraded SystemHealth = "degraded"
	SystemError    SystemHealth = "error"
)

// LoadClass buckets a 0-100 load percentage for dashboards
type LoadClass string

const (
	LoadNominal  LoadClass = "nominal"
	LoadModerate LoadClass = "moderate"
	LoadHigh     LoadClass = "high"
)

// Capabilities is the tier-tagged capability payload submitted at
// registration. Exactly the variant matching the worker's tier is set;
// the others are nil.
type Capabilities struct {
	GPU     *GPUCapabilities     `json:"gpu,omitempty"`
	Service *ServiceCapabilities `json:"service,omitempty"`
	Data    *DataCapabilities    `json:"data,omitempty"`
}

// GPUCapabilities describes an inference worker
type GPUCapabilities struct {
	GPUModel  string   `json:"gpu_model"`
	VRAMBytes int64    `json:"vram_bytes"`
	Models    []string `json:"models"`
	MaxBatch  int      `json:"max_batch"`
	Quantized bool     `json:"quantized"`
}

// ServiceCapabilities describes a stateless service worker
type ServiceCapabilities struct {
	Services    []string `json:"services"`
	Concurrency int      `json:"concurrency"`
}

// DataCapabilities describes a data-tier worker
type DataCapabilities struct {
	Engines   []string `json:"engines"`
	DiskBytes int64    `json:"disk_bytes"`
	Replicas  int      `json:"replicas"`
}

// Variant returns the capability variant matching the given tier, or nil
// when the payload carries no data for that tier
func (c Capabilities) Variant(t Tier) any {
	switch t {
	case TierGPU:
		if c.GPU != nil {
			return c.GPU
		}
	case TierService:
		if c.Service != nil {
			return c.Service
		}
	case TierData:
		if c.Data != nil {
			return c.Data
		}
	}
	return nil
}

// MatchesTier reports whether the payload carries exactly the variant for
// tier t and no other
func (c Capabilities) MatchesTier(t Tier) bool {
	set := 0
	if c.GPU != nil {
		set++
	}
	if c.Service != nil {
		set++
	}
	if c.Data != nil {
		set++
	}
	return set <= 1 && (set == 0 || c.Variant(t) != nil)
}

// Worker is a single registered compute worker. ID and Tier are immutable
// after registration; the remaining fields are mutated only by heartbeats
// from the same worker.
type Worker struct {
	ID                 string       `json:"worker_id"`
	Tier               Tier         `json:"-"`
	Capabilities       Capabilities `json:"capabilities"`
	AssignedContainers []string     `json:"assigned_containers"`
	RegisteredAt       time.Time    `json:"registered_at"`
	LastHeartbeatAt    time.Time    `json:"last_heartbeat_at"`
	ReportedLoad       int          `json:"reported_load"`
	TasksCompleted     int64        `json:"tasks_completed"`
	Degraded           bool         `json:"degraded"`
}

// Clone returns a deep copy so store snapshots never alias live records
func (w *Worker) Clone() *Worker {
	cp := *w
	if w.AssignedContainers != nil {
		cp.AssignedContainers = append([]string(nil), w.AssignedContainers...)
	}
	if w.Capabilities.GPU != nil {
		g := *w.Capabilities.GPU
		g.Models = append([]string(nil), w.Capabilities.GPU.Models...)
		cp.Capabilities.GPU = &g
	}
	if w.Capabilities.Service != nil {
		s := *w.Capabilities.Service
		s.Services = append([]string(nil), w.Capabilities.Service.Services...)
		cp.Capabilities.Service = &s
	}
	if w.Capabilities.Data != nil {
		d := *w.Capabilities.Data
		d.Engines = append([]string(nil), w.Capabilities.Data.Engines...)
		cp.Capabilities.Data = &d
	}
	return &cp
}

// Coordinator is an edge process owning a subset of workers. Records are
// owned exclusively by the directory.
type Coordinator struct {
	ID           string    `json:"coordinator_id"`
	TunnelURL    string    `json:"tunnel_url"`
	Role         string    `json:"role"`
	RegisteredAt time.Time `json:"registered_at"`
	LastSeen     time.Time `json:"last_seen"`
	Suspect      bool      `json:"suspect"`
}

// TierStats aggregates one tier for the stats view
type TierStats struct {
	Count       int       `json:"count"`
	AverageLoad *float64  `json:"average_load,omitempty"` // nil when the tier has no workers
	LoadClass   LoadClass `json:"load_class,omitempty"`
}

// SystemStats is the admin stats view, computed fresh from a snapshot on
// every read
type SystemStats struct {
	TotalWorkers   int                  `json:"total_workers"`
	Tiers          map[string]TierStats `json:"tiers"`
	TasksCompleted int64                `json:"tasks_completed"`
	Health         SystemHealth         `json:"system_health"`
	HealthReason   string               `json:"health_reason,omitempty"`
	GeneratedAt    time.Time            `json:"generated_at"`
}

// WorkerView is a worker snapshot joined with its computed status for
// read APIs
type WorkerView struct {
	Worker
	TierName  string       `json:"tier"`
	Status    WorkerStatus `json:"status"`
	LoadClass LoadClass    `json:"load_class"`
}
