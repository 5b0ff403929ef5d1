/*
Package directory is the quota-constrained persistent store of edge
coordinators.

One record per coordinator (tunnel endpoint, role, last-seen) lives in a
bbolt bucket as JSON. The backing store enforces a hard daily write ceiling,
so the directory never persists per heartbeat: it applies every refresh in
memory and writes through at most once per persist interval, under a counted
budget. In-memory state is authoritative between persists; the disk copy is
a recovery snapshot, not the live view.

# Write Minimization

	coordinator heartbeat (Touch)
	        │
	        ▼
	  in-memory last_seen refresh          ── always
	        │
	        ▼
	  persist interval elapsed?            ── no  → skip (reason=interval)
	        │ yes
	        ▼
	  daily write budget available?        ── no  → skip (reason=budget), warn
	        │ yes
	        ▼
	  bbolt Put (one JSON record)

Budget exhaustion is graceful degradation, never an error surfaced to the
coordinator: the skip is logged and counted, and routing keeps working off
the in-memory record.

# Concurrency Model

Single writer per key: each coordinator's state carries its own mutex, so
operations on one record are sequenced while different coordinators mutate
in parallel. The directory-level lock only guards the ID map and the
registration order.

# Suspect Marks

MarkSuspect / ClearSuspect are in-memory routing hints set by the router on
forward failures. They are never persisted. A mark auto-clears as soon as
the coordinator's last_seen refreshes after the mark was set, so a recovered
coordinator rejoins the candidate pool without operator action and without a
permanent blacklist.

# Durability

The database file survives restarts; worker state deliberately does not.
After a crash the directory reloads its records, coordinators keep their
registration order, and stale entries age out via last_seen rather than via
deletes (deletes cost budget).
*/
package directory
