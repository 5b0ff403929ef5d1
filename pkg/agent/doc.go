/*
Package agent runs the worker side of the fleet protocol: one registration,
then heartbeats on a jittered cadence.

The task executor is external. It feeds the agent load, container
assignments, the degraded flag, and task completions; the agent only owns
the wire traffic. When a heartbeat comes back 404 the agent re-registers
under the same identity — the server's worker state is volatile and a server
restart is expected to look exactly like this.
*/
package agent
