/*
Package metrics exposes Prometheus metrics for Beacon.

Counters (registrations, heartbeats, regressions, routed requests, failovers,
directory writes) are incremented inline where the events happen. Derived
gauges (workers by tier and status, per-tier load, system health state) are
refreshed by a Collector ticking over registry snapshots, since their values
only exist relative to a clock.

# Exported Metrics

Fleet:
  - beacon_workers_total{tier,status}: registered workers by tier and
    derived status
  - beacon_tier_load_average{tier}: mean reported load per tier
  - beacon_tasks_completed_sum: fleet-wide completed task counter
  - beacon_system_health{state}: 1 for the active aggregate state

Registry:
  - beacon_registrations_total{tier}
  - beacon_heartbeats_total{tier}
  - beacon_heartbeat_regressions_total

Router:
  - beacon_route_requests_total{outcome}: ok, failover_ok, failed, timeout,
    no_candidate
  - beacon_failovers_total
  - beacon_coordinators_suspect

Directory:
  - beacon_coordinators_total
  - beacon_directory_writes_total
  - beacon_directory_write_skips_total{reason}: interval, budget

API:
  - beacon_api_requests_total{path,status}
  - beacon_api_request_duration_seconds{path}

# Serving

Handler() returns the promhttp handler; the admin API mounts it at /metrics.

The collector is optional: the JSON admin API derives the same numbers
per-request and does not depend on this package's gauges.
*/
package metrics
