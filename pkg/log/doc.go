/*
Package log provides structured logging for Beacon using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper functions
for common logging patterns. All logs include timestamps and support filtering
by severity level for production debugging.

# Usage

Initialize once at process start:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
	})

Create component loggers for subsystems:

	logger := log.WithComponent("registry")
	logger.Info().Str("worker_id", id).Msg("worker registered")

Child loggers attach domain identifiers:

  - WithComponent("router")     for subsystem tagging
  - WithWorkerID("gpu-1")       for worker lifecycle events
  - WithCoordinatorID("edge-2") for directory and routing events
  - WithRequestID(uuid)         for per-request tracing through the router

# Output Formats

JSON (production):

	{"level":"info","component":"registry","worker_id":"gpu-1",
	 "time":"2026-08-25T10:30:00Z","message":"worker registered"}

Console (development): human-readable with RFC3339 timestamps.

# Levels

debug, info, warn, error. The level is global; zerolog filters below the
configured level with near-zero overhead.
*/
package log
