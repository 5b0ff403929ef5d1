/*
Package types defines the shared data model for Beacon: workers, edge
coordinators, derived status enums, and the aggregate stats views.

All cross-package entities live here so that the registry, health monitor,
directory, router and API agree on one representation. Derived values
(WorkerStatus, SystemHealth, SystemStats) are computed fresh from snapshots
and are never persisted.

# Entities

Worker:
  - Registered compute worker (GPU, SERVICE, or DATA tier)
  - ID and Tier immutable after registration
  - Mutable fields updated only by heartbeats from the same worker
  - Status is NOT a field: it is derived by pkg/health from
    LastHeartbeatAt, the degraded flag, and the current time

Capabilities:
  - Tier-tagged variant payload validated at the registration boundary
  - Exactly one variant set, matching the worker's tier
  - GPU: model, VRAM, loaded models
  - Service: service names, concurrency
  - Data: engines, disk, replication

Coordinator:
  - Edge process owning a subset of workers
  - Record owned exclusively by pkg/directory
  - Suspect flag is in-memory routing state, never persisted

# Tier Semantics

Tier numbering is fixed and never inferred from capability contents:

	1 = GPU / inference
	2 = stateless service
	3 = data / storage-backed

# Derived Views

SystemStats and WorkerView are computed on every read from a consistent
snapshot, so two consecutive reads can legitimately disagree after a
registration, heartbeat, or timeout in between. No caching layer hides this.

# See Also

  - pkg/registry for the worker store
  - pkg/health for status derivation
  - pkg/directory for coordinator records
*/
package types
