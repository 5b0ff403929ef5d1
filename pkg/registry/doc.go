/*
Package registry implements the in-memory worker store, the single source of
truth for registration and heartbeat data.

Workers live in a shared table with explicit concurrency control instead of
ambient shared mutable state: the store lock guards only the ID map and
registration order, and every record carries its own lock. A heartbeat takes
the record lock alone, so the many independent writers (one per worker, each
on its own cadence) never serialize against each other, and a snapshot clones
each record under its lock so readers never observe a partial update.

# Lifecycle

	Register   ──► record created, RegisteredAt set once
	Heartbeat  ──► mutable fields updated as one atomic unit
	Reap       ──► explicit administrative removal after extended absence

There is no implicit lifecycle. A heartbeat for an unregistered ID is an
error, not an auto-registration; removal never happens on a timer.
Re-registration is its own operation (Reregister), an idempotent capability
update that preserves RegisteredAt and TasksCompleted — never a silent
overwrite, and never a tier change.

# Invariants

  - Worker IDs are unique for the lifetime of the process
  - TasksCompleted never decreases: a regressed heartbeat value is rejected
    (ErrRegressionRejected) while the rest of that heartbeat still applies
  - ReportedLoad is clamped to [0,100]
  - Listings preserve registration order

# Status

Status is not stored. List's status filter calls into pkg/health at query
time, so a filter can never disagree with what a direct read would derive.

Records are volatile by design: after a process restart the fleet
re-registers, which is why Reregister treats an unknown ID as a fresh
registration.
*/
package registry
