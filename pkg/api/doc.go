/*
Package api exposes Beacon's HTTP surface: worker registration and
heartbeats, edge coordinator registration, and the read-only admin views
consumed by dashboards and operators.

The server is a thin composition layer. It validates payloads at the
boundary, translates sentinel errors into status codes, and derives every
view fresh from a registry snapshot. It owns no state beyond the mux.

# Endpoints

Write side:

	POST /api/worker/register    {worker_id, tier, capabilities[, reregister]}
	                             → 201 created, 409 duplicate, 400 malformed
	POST /api/worker/heartbeat   {worker_id, load, tasks_completed,
	                              containers, degraded}
	                             → 200 ok (regression_rejected flagged in
	                               body, non-fatal), 404 unknown worker
	POST /api/edge/register      {coordinator_id|worker_id, tunnel_url, role}
	                             → 201 created, 409 conflicting endpoint
	POST /api/edge/heartbeat     {coordinator_id|worker_id} → 200, 404
	POST /api/edge/remove        {coordinator_id|worker_id} → 200, 404
	POST /api/admin/reap         {older_than_seconds} → removed worker ids

Read side:

	GET /api/admin/workers       registration-ordered snapshots with derived
	                             status and load class
	GET /api/admin/stats         totals, per-tier counts and average load,
	                             tasks completed sum, system health
	GET /api/admin/health        health enum plus the specific reason
	GET /api/admin/coordinators  coordinator listing
	GET /health                  liveness, always 200 while the process is up
	GET /metrics                 Prometheus

# Error Mapping

	registry.ErrDuplicateWorker      → 409
	registry.ErrUnknownWorker        → 404
	registry.ErrRegressionRejected   → 200 (body notes the rejection)
	registry.ErrTierMismatch         → 409
	directory.ErrDuplicateCoordinator → 409
	malformed payloads               → 400, rejected before reaching the core

Worker offline and degraded conditions are never errors. They are status
values in the read responses.

# Consistency

Reads compute from a point-in-time snapshot. The average load of an empty
tier is omitted from the JSON rather than reported as zero, so a dashboard
cannot confuse "no data" with "idle".
*/
package api
