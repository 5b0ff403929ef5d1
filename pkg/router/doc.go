/*
Package router forwards inbound requests to a live edge coordinator with a
single bounded failover.

The proxy is request-scoped and stateless between requests except for two
shared signals: the round-robin cursor and the directory's suspect marks.
Both are best-effort. A slightly stale suspect mark costs at most one extra
failed attempt, never correctness.

# Request Flow

	inbound request
	       │
	       ▼
	candidate selection ── X-Beacon-Coordinator header → direct match
	       │               otherwise → non-suspect, round-robin order
	       ▼
	forward to candidate[0]  (reverse proxy, bounded timeout)
	       │
	   success ──────────────────────────────► response streamed back
	       │ failure
	       ▼
	mark candidate[0] suspect
	       │
	caller deadline expired? ── yes ──► 504 Gateway Timeout
	       │ no
	       ▼
	forward to candidate[1]  (exactly one failover)
	       │
	   success ──► response        failure ──► mark suspect, 502

An always-failing fleet sees exactly two upstream calls per request: the
first attempt plus one failover. There is no retry loop.

# Failure Semantics

A forward error means the coordinator was not reached and nothing was
written to the client, so the attempt is safe to retry. Request bodies are
buffered (up to 8 MiB) to make the replay possible; larger bodies forward
normally but skip the failover.

Suspect marks are temporary: the directory clears them as soon as the
coordinator is seen again, so a recovered coordinator is retried on a later,
independent request. There is no permanent blacklist.

# Headers

The proxy preserves the inbound Host and adds X-Forwarded-For,
X-Forwarded-Host, and a generated X-Beacon-Request-Id that also tags every
log line for the request.
*/
package router
