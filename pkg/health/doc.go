/*
Package health derives worker status and aggregate fleet health from worker
store snapshots.

Everything in this package is a pure function over a point-in-time snapshot
and an explicit clock. Nothing is stored, no background sweep runs, and no
locking is required: status can never go stale independently of its inputs,
because it has no existence independent of its inputs.

# Status Derivation

	Status(worker, now, offlineAfter):

	  now - LastHeartbeatAt >= offlineAfter ──► OFFLINE
	  else worker.Degraded                  ──► DEGRADED
	  else                                  ──► HEALTHY

Time-based offline detection takes precedence over a stale degraded flag: a
worker that set its flag and then vanished reads as offline, not degraded.
Reconnection is implicit. A heartbeat from an offline worker immediately
returns it to healthy or degraded per the flag; no special call exists.

# System Health

	SystemHealth(workers, now, offlineAfter):

	  empty fleet                          ──► DEGRADED ("no workers registered")
	  any impossible record                ──► ERROR
	  zero healthy (non-empty fleet)       ──► ERROR
	  GPU tier absent                      ──► DEGRADED ("missing GPU tier")
	  SERVICE tier absent                  ──► DEGRADED ("missing SERVICE tier")
	  healthy*2 <= total                   ──► DEGRADED (majority not met)
	  otherwise                            ──► HEALTHY

An empty fleet is a startup condition, not a fault. An impossible record is a
zero RegisteredAt, a heartbeat before registration, or a heartbeat further in
the future than the tolerated clock skew.

# Load Classification

ClassifyLoad is the single source of truth for load buckets (<50 nominal,
50-80 moderate, >80 high). Tier semantics are fixed by pkg/types and are
never inferred from capability contents.

TierAverageLoad returns (0, false) for a tier with no workers so dashboards
cannot confuse "no data" with "idle".

# Design Trade-off

Read-time derivation instead of a background sweep avoids a timer subsystem
and guarantees status is always consistent with the latest stored heartbeat,
at the cost of doing the arithmetic on every read. Fleets here are tens of
workers, not millions, so the O(n) pass is noise.
*/
package health
